package impact

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/resolver"
)

// Program is the utility whose steps are analyzed.
const Program = "ADRDSSU"

// Risk levels of a statement, by its worst option.
const (
	RiskHigh   = "High"
	RiskMedium = "Medium"
	RiskLow    = "Low"
	RiskNone   = "None"
)

var (
	reComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reWord    = regexp.MustCompile(`^[A-Z][A-Z0-9]*$`)

	// Abbreviations of the data set filter keyword.
	aliases = map[string]string{"DS": "DATASET", "DSN": "DATASET", "DATA": "DATASET"}
)

// OptionUse is one option of one statement.
type OptionUse struct {
	Name   string
	Status Status
}

// Usage is one ADRDSSU control statement and its classified options.
type Usage struct {
	File      string
	Step      string
	Line      int
	Statement string
	// Known is false when the matrix has no entry for Statement.
	Known   bool
	Options []OptionUse
}

// Ref names the job step the statement came from.
func (u Usage) Ref() string { return u.File + " - " + u.Step }

// Count returns how many of the statement's options have status st.
func (u Usage) Count(st Status) int {
	n := 0
	for _, o := range u.Options {
		if o.Status == st {
			n++
		}
	}
	return n
}

// Names returns the statement's options with status st, in statement order.
func (u Usage) Names(st Status) []string {
	var out []string
	for _, o := range u.Options {
		if o.Status == st {
			out = append(out, o.Name)
		}
	}
	return out
}

// Risk is High with any unsupported option, then Medium for unknown options
// or statements, Low for ignored options and None otherwise.
func (u Usage) Risk() string {
	switch {
	case u.Count(NotSupported) > 0:
		return RiskHigh
	case u.Count(Unknown) > 0 || !u.Known:
		return RiskMedium
	case u.Count(AcceptedIgnored) > 0:
		return RiskLow
	}
	return RiskNone
}

// OptionSummary aggregates one option across the run.
type OptionSummary struct {
	Name       string
	Status     Status
	Count      int
	Statements []string
	Refs       []string
}

// Analysis is the ADRDSSU impact of one run.
type Analysis struct {
	Usages  []Usage
	Options []OptionSummary
	// Occurrences counts every option use by status.
	Occurrences map[Status]int
	// Unanalyzed lists steps with no readable control statements.
	Unanalyzed []string
}

// Unique counts distinct options by status.
func (a Analysis) Unique() map[Status]int {
	out := map[Status]int{}
	for _, o := range a.Options {
		out[o.Status]++
	}
	return out
}

// Analyze classifies the control statements of every ADRDSSU step. Control
// statements come from inline SYSIN records or the control card member.
func Analyze(steps []ir.ExtractedStep, meta *Metadata) Analysis {
	a := Analysis{Occurrences: map[Status]int{}}
	byName := map[string]*OptionSummary{}
	stmtSets := map[string]map[string]bool{}
	refSets := map[string]map[string]bool{}

	for _, st := range steps {
		if !strings.EqualFold(st.Program, Program) {
			continue
		}
		text := ControlText(st)
		stmts := Statements(text)
		if len(stmts) == 0 {
			ref := st.Key() + " - " + st.StepName
			slog.Warn("adrdssu step has no control statements", "step", ref)
			a.Unanalyzed = append(a.Unanalyzed, ref)
			continue
		}
		for _, s := range stmts {
			u := meta.Classify(s)
			u.File, u.Step, u.Line = st.Key(), st.StepName, st.Line
			a.Usages = append(a.Usages, u)
			for _, o := range u.Options {
				a.Occurrences[o.Status]++
				sum, ok := byName[o.Name]
				if !ok {
					sum = &OptionSummary{Name: o.Name, Status: o.Status}
					byName[o.Name] = sum
					stmtSets[o.Name] = map[string]bool{}
					refSets[o.Name] = map[string]bool{}
				}
				// The same option may be rated differently per statement; keep the worst.
				if o.Status.rank() > sum.Status.rank() {
					sum.Status = o.Status
				}
				sum.Count++
				stmtSets[o.Name][u.Statement] = true
				refSets[o.Name][u.Ref()] = true
			}
		}
	}

	for name, sum := range byName {
		sum.Statements = keys(stmtSets[name])
		sum.Refs = keys(refSets[name])
		a.Options = append(a.Options, *sum)
	}
	sort.Slice(a.Options, func(i, j int) bool {
		if ri, rj := a.Options[i].Status.rank(), a.Options[j].Status.rank(); ri != rj {
			return ri > rj
		}
		return a.Options[i].Name < a.Options[j].Name
	})
	slog.Info("adrdssu impact analyzed", "statements", len(a.Usages), "options", len(a.Options),
		"unanalyzed", len(a.Unanalyzed))
	return a
}

// ControlText returns the step's control statements: inline SYSIN records,
// else the control card text when the member was read.
func ControlText(st ir.ExtractedStep) string {
	switch st.SysinType {
	case ir.SysinInline:
		return st.SysinData
	case ir.SysinControlCard:
		if !resolver.IsControlCardSentinel(st.ControlCardContent) {
			return st.ControlCardContent
		}
	}
	return ""
}

// Statements splits control text into statements, one string each. Comments
// are dropped and a trailing '-' or '+' continues a statement onto the next
// record.
func Statements(text string) []string {
	text = reComment.ReplaceAllString(text, " ")
	var out []string
	var cur []string
	for _, line := range strings.Split(text, "\n") {
		l := strings.TrimSpace(line)
		if l == "" {
			continue
		}
		cont := strings.HasSuffix(l, "-") || strings.HasSuffix(l, "+")
		if cont {
			l = strings.TrimSpace(l[:len(l)-1])
		}
		if l != "" {
			cur = append(cur, l)
		}
		if !cont && len(cur) > 0 {
			out = append(out, strings.Join(cur, " "))
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, " "))
	}
	return out
}

// Classify works out the statement type of stmt and rates each top-level
// keyword. A keyword K whose parenthesized value holds a keyword J is first
// looked up as "K(J)", so the matrix can rate DATASET(INCLUDE) apart from
// DATASET(BY). Keywords the matrix does not list are Unknown.
func (m *Metadata) Classify(stmt string) Usage {
	its := items(strings.ToUpper(stmt))
	if len(its) == 0 {
		return Usage{}
	}
	u := Usage{Statement: its[0].key}
	if u.Statement == "COPY" && len(its) > 1 {
		u.Statement = "COPY " + its[1].key
	}
	if !m.knows(u.Statement) && m.knows(its[0].key) {
		u.Statement = its[0].key
	}
	u.Known = m.knows(u.Statement)

	seen := map[string]bool{}
	add := func(name string, st Status) {
		if !seen[name] {
			seen[name] = true
			u.Options = append(u.Options, OptionUse{Name: name, Status: st})
		}
	}
	for i, it := range its[1:] {
		matched := false
		for _, in := range it.inner {
			name := it.key + "(" + in + ")"
			if st, ok := m.Status(u.Statement, name); ok {
				add(name, st)
				matched = true
			}
		}
		// The second word of COPY DATASET names the statement.
		if matched || (i == 0 && u.Statement == "COPY "+it.key) {
			continue
		}
		st, _ := m.Status(u.Statement, it.key)
		add(it.key, st)
	}
	return u
}

type item struct {
	key   string
	inner []string // keywords directly inside the item's parentheses
}

// items splits an upper-cased statement into its top-level keywords.
func items(stmt string) []item {
	var out []item
	for _, raw := range splitTop(stmt) {
		key, rest, _ := strings.Cut(raw, "(")
		key = strings.TrimSpace(key)
		if !reWord.MatchString(key) {
			continue
		}
		if a, ok := aliases[key]; ok {
			key = a
		}
		it := item{key: key}
		if rest != "" {
			rest = strings.TrimSuffix(rest, ")")
			for _, sub := range splitTop(rest) {
				k, _, _ := strings.Cut(sub, "(")
				if k = strings.TrimSpace(k); reWord.MatchString(k) {
					it.inner = append(it.inner, k)
				}
			}
		}
		out = append(out, it)
	}
	return out
}

// splitTop splits s on blanks and commas outside parentheses.
func splitTop(s string) []string {
	var out []string
	depth, start := 0, -1
	flush := func(end int) {
		if start >= 0 {
			out = append(out, s[start:end])
			start = -1
		}
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && (c == ' ' || c == ',' || c == '\t'):
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(s))
	return out
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
