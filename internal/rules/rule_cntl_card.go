package rules

import (
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/resolver"
)

func init() {
	Register(Rule{
		ID:              "CNTL-CARD-MISSING",
		Summary:         "SYSIN points at a control card member that could not be read from CNTLLIB.",
		Type:            "RISK",
		DefaultSeverity: "MEDIUM",
		Eval:            evalCntlCardMissing,
	})
	Register(Rule{
		ID:              "CNTL-CARD-EMPTY",
		Summary:         "SYSIN control card member exists but has no content.",
		Type:            "RISK",
		DefaultSeverity: "LOW",
		Eval:            evalCntlCardEmpty,
	})
}

func evalCntlCardMissing(f *File) []ir.Finding {
	var out []ir.Finding
	for _, st := range f.Steps {
		if st.SysinType != ir.SysinControlCard || st.ControlCardMember == "" {
			continue
		}
		c := st.ControlCardContent
		if !resolver.IsControlCardSentinel(c) || c == resolver.ControlCardEmpty {
			continue
		}
		out = append(out, finding(f, st, "CNTL-CARD-MISSING", "RISK", "MEDIUM",
			"Control card "+st.ControlCardMember+" is not available; the step's behavior cannot be inventoried.",
			c))
	}
	return out
}

func evalCntlCardEmpty(f *File) []ir.Finding {
	var out []ir.Finding
	for _, st := range f.Steps {
		if st.SysinType == ir.SysinControlCard && st.ControlCardContent == resolver.ControlCardEmpty {
			out = append(out, finding(f, st, "CNTL-CARD-EMPTY", "RISK", "LOW",
				"Control card "+st.ControlCardMember+" is empty; "+st.Program+" will run on defaults.",
				strings.TrimSpace(st.SysinStatement)))
		}
	}
	return out
}
