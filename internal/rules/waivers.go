package rules

import (
	"strings"
	"time"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/storage"
)

// ApplyWaivers filters out findings that match any active waiver and returns
// the kept findings and the number waived.
func ApplyWaivers(in []ir.Finding, waivers []storage.Waiver, now time.Time) ([]ir.Finding, int) {
	if len(waivers) == 0 || len(in) == 0 {
		return in, 0
	}
	var out []ir.Finding
	waived := 0
nextFinding:
	for _, f := range in {
		for _, w := range waivers {
			if !w.ActiveAt(now) || !eqCI(f.RuleID, w.RuleID) {
				continue
			}
			if w.File != "" && !eqCI(f.File, w.File) {
				continue
			}
			if w.Step != "" && !eqCI(f.Step, w.Step) {
				continue
			}
			if w.PatternSub != "" {
				ps := strings.ToUpper(w.PatternSub)
				if !strings.Contains(strings.ToUpper(f.Evidence), ps) &&
					!strings.Contains(strings.ToUpper(f.Message), ps) {
					continue
				}
			}
			waived++
			continue nextFinding
		}
		out = append(out, f)
	}
	return out, waived
}

func eqCI(a, b string) bool { return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) }
