package rules

import (
	"sort"
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/jclscan"
)

func init() {
	Register(Rule{
		ID:              "DD-DUPLICATE-DATASET",
		Summary:         "Multiple DDs reference the same dataset within a step; consider consolidation.",
		Type:            "RISK",
		DefaultSeverity: "LOW",
		Eval:            evalDuplicateDataset,
	})
}

func evalDuplicateDataset(f *File) []ir.Finding {
	var out []ir.Finding
	for _, st := range f.Steps {
		counts := make(map[string]int)
		for _, dd := range jclscan.ParseDDs(st.StepBlock) {
			ds := strings.ToUpper(strings.TrimSpace(dd.Dataset))
			if ds == "" || strings.HasPrefix(ds, "*.") {
				continue
			}
			counts[ds]++
		}
		var ev []string
		for ds, c := range counts {
			if c > 1 {
				ev = append(ev, ds)
			}
		}
		if len(ev) > 0 {
			sort.Strings(ev)
			out = append(out, finding(f, st, "DD-DUPLICATE-DATASET", "RISK", "LOW",
				"Same dataset referenced multiple times within the step; verify necessity.",
				strings.Join(ev, ", ")))
		}
	}
	return out
}
