package rules

import (
	"regexp"
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/jclscan"
)

var gdgRe = regexp.MustCompile(`\(([+-]?\d+)\)\s*$`)

func init() {
	Register(Rule{
		ID:              "GDG-ROLLOFF-RISK",
		Summary:         "File reads a prior GDG generation and writes a new one; verify roll-off logic.",
		Type:            "RISK",
		DefaultSeverity: "MEDIUM",
		Eval:            evalGDGRollOff,
	})
}

// evalGDGRollOff looks across all utility steps of the file, not one step.
func evalGDGRollOff(f *File) []ir.Finding {
	var readEv, writeEv []string
	var first ir.ExtractedStep
	for _, st := range f.Steps {
		for _, dd := range jclscan.ParseDDs(st.StepBlock) {
			m := gdgRe.FindStringSubmatch(strings.ToUpper(dd.Dataset))
			if len(m) != 2 {
				continue
			}
			switch m[1] {
			case "-1":
				readEv = append(readEv, st.StepName+"."+dd.Name+"="+dd.Dataset)
			case "+1", "0":
				disp := strings.ToUpper(dd.Disp)
				if m[1] == "+1" || strings.Contains(disp, "NEW") || strings.Contains(disp, "CATLG") || strings.Contains(disp, "MOD") {
					if len(writeEv) == 0 {
						first = st
					}
					writeEv = append(writeEv, st.StepName+"."+dd.Name+"="+dd.Dataset)
				}
			}
		}
	}
	if len(readEv) == 0 || len(writeEv) == 0 {
		return nil
	}
	return []ir.Finding{finding(f, first, "GDG-ROLLOFF-RISK", "RISK", "MEDIUM",
		"Reads GDG(-1) and writes a new generation in the same job; validate roll-off windows and restart behavior.",
		"reads: "+strings.Join(readEv, ", ")+" | writes: "+strings.Join(writeEv, ", "))}
}
