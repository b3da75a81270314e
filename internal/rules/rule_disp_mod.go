package rules

import (
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/jclscan"
)

func init() {
	Register(Rule{
		ID:              "DD-DISP-MOD-APPEND",
		Summary:         "DD uses DISP=MOD (append); verify it’s intentional.",
		Type:            "RISK",
		DefaultSeverity: "LOW",
		Eval:            evalDispMod,
	})
}

func evalDispMod(f *File) []ir.Finding {
	var out []ir.Finding
	for _, st := range f.Steps {
		for _, dd := range jclscan.ParseDDs(st.StepBlock) {
			if strings.Contains(strings.ToUpper(dd.Disp), "MOD") {
				out = append(out, finding(f, st, "DD-DISP-MOD-APPEND", "RISK", "LOW",
					"DISP=MOD appends to dataset; can cause unexpected growth and serialization.",
					dd.Name+" DISP="+dd.Disp))
			}
		}
	}
	return out
}
