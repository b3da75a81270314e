package rules

import (
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/jclscan"
)

func init() {
	Register(Rule{
		ID:              "DD-TEMP-DATASET-KEEP",
		Summary:         "Temporary dataset (&&) is kept/cataloged; potential leakage.",
		Type:            "RISK",
		DefaultSeverity: "LOW",
		Eval:            evalTempKeep,
	})
}

func evalTempKeep(f *File) []ir.Finding {
	var out []ir.Finding
	for _, st := range f.Steps {
		for _, dd := range jclscan.ParseDDs(st.StepBlock) {
			if !strings.HasPrefix(dd.Dataset, "&&") {
				continue
			}
			up := strings.ToUpper(dd.Disp)
			if strings.Contains(up, "KEEP") || strings.Contains(up, "CATLG") {
				out = append(out, finding(f, st, "DD-TEMP-DATASET-KEEP", "RISK", "LOW",
					"Temporary dataset (&&name) marked KEEP/CATLG; verify lifecycle to avoid catalog clutter.",
					dd.Name+" "+dd.Disp))
			}
		}
	}
	return out
}
