package rules

import (
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
)

func init() {
	Register(Rule{
		ID:              "SORT-MISSING-SYSIN",
		Summary:         "SORT step missing SYSIN; intent unclear.",
		Type:            "RISK",
		DefaultSeverity: "LOW",
		Eval:            evalSortMissingSYSIN,
	})
}

var sortPrograms = map[string]bool{"SORT": true, "DFSORT": true, "ICEMAN": true, "SYNCSORT": true}

func isSort(program string) bool { return sortPrograms[strings.ToUpper(program)] }

func evalSortMissingSYSIN(f *File) []ir.Finding {
	var out []ir.Finding
	for _, st := range f.Steps {
		if !isSort(st.Program) || st.SysinType != ir.SysinNone {
			continue
		}
		out = append(out, finding(f, st, "SORT-MISSING-SYSIN", "RISK", "LOW",
			"SORT has no SYSIN; verify default behavior vs. intended transform.",
			"PGM="+st.Program))
	}
	return out
}
