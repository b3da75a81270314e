package rules

import (
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/jclscan"
)

func init() {
	Register(Rule{
		ID:              "IEBGENER-REDUNDANT-COPY",
		Summary:         "IEBGENER copies entire dataset without filtering; may be redundant.",
		Type:            "INFO",
		DefaultSeverity: "LOW",
		Eval:            evalIEBGENERRedundant,
	})
}

func evalIEBGENERRedundant(f *File) []ir.Finding {
	var out []ir.Finding
	for _, st := range f.Steps {
		if !strings.EqualFold(st.Program, "IEBGENER") {
			continue
		}
		var (
			sysin           string
			haveSysin       bool
			haveIn, haveOut bool
		)
		for _, dd := range jclscan.ParseDDs(st.StepBlock) {
			switch dd.Name {
			case "SYSIN":
				haveSysin, sysin = true, strings.TrimSpace(dd.Params)
			case "SYSUT1":
				haveIn = true
			case "SYSUT2":
				haveOut = true
			}
		}
		dummy := !haveSysin || strings.HasPrefix(strings.ToUpper(sysin), "DUMMY")
		if dummy && haveIn && haveOut {
			out = append(out, finding(f, st, "IEBGENER-REDUNDANT-COPY", "INFO", "LOW",
				"IEBGENER appears to copy the full dataset without filtering; consider inlining or eliminating redundant copies.",
				"SYSIN=DUMMY or absent; SYSUT1→SYSUT2 full copy."))
		}
	}
	return out
}
