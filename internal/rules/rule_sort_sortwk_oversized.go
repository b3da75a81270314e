package rules

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/jclscan"
)

// m[1] = unit ("CYL" or "TRK"), m[2] = primary quantity
var cylRe = regexp.MustCompile(`\b(CYL|TRK)\s*,?\s*\(\s*(\d+)`)

func init() {
	Register(Rule{
		ID:              "SORT-SORTWK-OVERSIZED",
		Summary:         "SORTWK work space appears oversized; consider tuning.",
		Type:            "INFO",
		DefaultSeverity: "LOW",
		Eval:            evalSortwkOversized,
	})
}

func evalSortwkOversized(f *File) []ir.Finding {
	var out []ir.Finding
	for _, st := range f.Steps {
		if !isSort(st.Program) {
			continue
		}
		var ev []string
		for _, dd := range jclscan.ParseDDs(st.StepBlock) {
			if !strings.HasPrefix(dd.Name, "SORTWK") {
				continue
			}
			m := cylRe.FindStringSubmatch(strings.ToUpper(dd.Space))
			if len(m) < 3 {
				continue
			}
			if primary, _ := strconv.Atoi(m[2]); primary > rsettings.SortwkPrimaryCylThreshold {
				ev = append(ev, dd.Name+" SPACE="+dd.Space)
			}
		}
		if len(ev) > 0 {
			out = append(out, finding(f, st, "SORT-SORTWK-OVERSIZED", "INFO", "LOW",
				"SORTWK primary allocation exceeds the configured threshold.",
				strings.Join(ev, " | ")))
		}
	}
	return out
}
