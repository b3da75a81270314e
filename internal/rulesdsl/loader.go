package rulesdsl

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/jclscan"
	"github.com/acrajesh/automationaccelerator/internal/resolver"
	"github.com/acrajesh/automationaccelerator/internal/rules"
)

type dslPack struct {
	Rules []dslRule `yaml:"rules"`
}

type dslRule struct {
	ID       string `yaml:"id"`
	Summary  string `yaml:"summary"`
	Type     string `yaml:"type"`     // RISK|INFO
	Severity string `yaml:"severity"` // LOW|MEDIUM|HIGH
	Message  string `yaml:"message"`

	Where struct {
		Program   string `yaml:"program"`    // regex (case-insensitive)
		DDName    string `yaml:"ddname"`     // require a DD with this name (optional)
		SysinType string `yaml:"sysin_type"` // None|InlineSYSIN|ControlCard (optional)
		CardRegex string `yaml:"card_regex"` // regex on control card text (optional)
	} `yaml:"where"`
}

type compiled struct {
	rule       dslRule
	reProgram  *regexp.Regexp
	reCard     *regexp.Regexp
	needDDName string
	sysinType  ir.SysinType
}

// LoadAndRegister compiles a YAML rule pack and registers each rule.
func LoadAndRegister(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read rules pack: %w", err)
	}
	var pack dslPack
	if err := yaml.Unmarshal(b, &pack); err != nil {
		return 0, fmt.Errorf("parse yaml: %w", err)
	}
	var n int
	for _, r := range pack.Rules {
		cr, err := compile(r)
		if err != nil {
			return n, fmt.Errorf("compile rule %q: %w", r.ID, err)
		}
		registerCompiled(*cr)
		n++
	}
	return n, nil
}

func compile(r dslRule) (*compiled, error) {
	if r.ID == "" || r.Type == "" || r.Severity == "" || r.Message == "" {
		return nil, fmt.Errorf("missing required fields (id/type/severity/message)")
	}
	c := &compiled{
		rule:       r,
		needDDName: strings.ToUpper(strings.TrimSpace(r.Where.DDName)),
		sysinType:  ir.SysinType(strings.TrimSpace(r.Where.SysinType)),
	}
	switch c.sysinType {
	case "", ir.SysinNone, ir.SysinInline, ir.SysinControlCard:
	default:
		return nil, fmt.Errorf("sysin_type %q: want None, InlineSYSIN or ControlCard", r.Where.SysinType)
	}
	if r.Where.Program != "" {
		re, err := regexp.Compile("(?i)" + r.Where.Program)
		if err != nil {
			return nil, fmt.Errorf("program regex: %w", err)
		}
		c.reProgram = re
	}
	if r.Where.CardRegex != "" {
		re, err := regexp.Compile("(?i)" + r.Where.CardRegex)
		if err != nil {
			return nil, fmt.Errorf("card_regex: %w", err)
		}
		c.reCard = re
	}
	return c, nil
}

func (c compiled) matches(st ir.ExtractedStep) bool {
	if c.reProgram != nil && !c.reProgram.MatchString(st.Program) {
		return false
	}
	if c.sysinType != "" && st.SysinType != c.sysinType {
		return false
	}
	if c.needDDName != "" {
		found := false
		for _, dd := range jclscan.ParseDDs(st.StepBlock) {
			if dd.Name == c.needDDName {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.reCard != nil {
		if resolver.IsControlCardSentinel(st.ControlCardContent) || !c.reCard.MatchString(st.ControlCardContent) {
			return false
		}
	}
	return true
}

func registerCompiled(c compiled) {
	rules.Register(rules.Rule{
		ID:              c.rule.ID,
		Summary:         c.rule.Summary,
		Type:            strings.ToUpper(c.rule.Type),
		DefaultSeverity: strings.ToUpper(c.rule.Severity),
		Eval: func(f *rules.File) []ir.Finding {
			var out []ir.Finding
			for _, st := range f.Steps {
				if !c.matches(st) {
					continue
				}
				out = append(out, ir.Finding{
					RuleID:   c.rule.ID,
					Type:     strings.ToUpper(c.rule.Type),
					Severity: strings.ToUpper(c.rule.Severity),
					File:     f.Name,
					Step:     st.StepName,
					Message:  c.rule.Message,
					Evidence: evidenceFor(st, c),
				})
			}
			return out
		},
	})
}

func evidenceFor(st ir.ExtractedStep, c compiled) string {
	parts := []string{"PGM=" + st.Program}
	if c.needDDName != "" {
		parts = append(parts, "has DD="+c.needDDName)
	}
	if c.reCard != nil {
		txt := strings.TrimSpace(st.ControlCardContent)
		if len(txt) > 80 {
			txt = strings.TrimSpace(txt[:80]) + "..."
		}
		parts = append(parts, "CARD~"+st.ControlCardMember, txt)
	}
	return strings.Join(parts, " | ")
}
