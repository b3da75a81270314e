package rules

import (
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/jclscan"
)

func init() {
	Register(Rule{
		ID:              "DD-NEW-MISSING-SPACE",
		Summary:         "NEW allocation without SPACE specified.",
		Type:            "RISK",
		DefaultSeverity: "LOW",
		Eval:            evalDDNewMissingSpace,
	})
}

func evalDDNewMissingSpace(f *File) []ir.Finding {
	var out []ir.Finding
	for _, st := range f.Steps {
		for _, dd := range jclscan.ParseDDs(st.StepBlock) {
			if strings.Contains(strings.ToUpper(dd.Disp), "NEW") && dd.Space == "" {
				out = append(out, finding(f, st, "DD-NEW-MISSING-SPACE", "RISK", "LOW",
					"DD allocates NEW dataset without SPACE=; verify SMS defaults on the target platform.",
					dd.Name+" DISP="+dd.Disp))
			}
		}
	}
	return out
}
