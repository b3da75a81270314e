package rules

import (
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/jclscan"
)

func init() {
	Register(Rule{
		ID:              "DD-DISP-OLD-SERIALIZATION",
		Summary:         "DISP=OLD can over-serialize dataset usage; verify if needed.",
		Type:            "RISK",
		DefaultSeverity: "LOW",
		Eval:            evalDispOld,
	})
}

func evalDispOld(f *File) []ir.Finding {
	var out []ir.Finding
	for _, st := range f.Steps {
		for _, dd := range jclscan.ParseDDs(st.StepBlock) {
			if strings.Contains(strings.ToUpper(dd.Disp), "OLD") {
				out = append(out, finding(f, st, "DD-DISP-OLD-SERIALIZATION", "RISK", "LOW",
					"DD uses DISP=OLD which enforces exclusive access; consider DISP=SHR if safe.",
					dd.Name+" DISP="+dd.Disp))
			}
		}
	}
	return out
}
