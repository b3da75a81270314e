package rules

import (
	"fmt"
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/impact"
	"github.com/acrajesh/automationaccelerator/internal/ir"
)

func init() {
	Register(Rule{
		ID:              "ADRDSSU-UNSUPPORTED-OPTION",
		Summary:         "ADRDSSU statement uses options the target platform does not support.",
		Type:            "RISK",
		DefaultSeverity: "HIGH",
		Eval:            evalAdrdssuUnsupported,
	})
}

func evalAdrdssuUnsupported(f *File) []ir.Finding {
	meta := rsettings.ADRDSSU
	if meta == nil {
		return nil
	}
	var out []ir.Finding
	for _, st := range f.Steps {
		if !strings.EqualFold(st.Program, impact.Program) {
			continue
		}
		for _, stmt := range impact.Statements(impact.ControlText(st)) {
			u := meta.Classify(stmt)
			bad := u.Names(impact.NotSupported)
			if len(bad) == 0 {
				continue
			}
			fd := finding(f, st, "ADRDSSU-UNSUPPORTED-OPTION", "RISK", "HIGH",
				fmt.Sprintf("ADRDSSU %s uses unsupported options: %s.", u.Statement, strings.Join(bad, ", ")),
				snippet(stmt))
			fd.Metadata["statement"] = u.Statement
			fd.Metadata["options"] = bad
			out = append(out, fd)
		}
	}
	return out
}
