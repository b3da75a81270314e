package rules

import (
	"regexp"
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/resolver"
)

var (
	reRepro    = regexp.MustCompile(`(?i)\bREPRO\b`)
	reSelect   = regexp.MustCompile(`(?i)\b(INCLUDE|EXCLUDE|FROMKEY|TOKEY|KEYS|SKIP|COUNT)\b`)
	reHasFiles = regexp.MustCompile(`(?i)\b(INFILE|OUTFILE|INDATASET|OUTDATASET|IDS|ODS|IFILE|OFILE)\b`)
)

func init() {
	Register(Rule{
		ID:              "IDCAMS-REPRO-IDENTITY",
		Summary:         "IDCAMS REPRO appears to copy without filtering.",
		Type:            "INFO",
		DefaultSeverity: "LOW",
		Eval:            evalIDCAMSReproIdentity,
	})
}

func evalIDCAMSReproIdentity(f *File) []ir.Finding {
	var out []ir.Finding
	for _, st := range f.Steps {
		if !strings.EqualFold(st.Program, "IDCAMS") || st.SysinType != ir.SysinControlCard {
			continue
		}
		card := st.ControlCardContent
		if resolver.IsControlCardSentinel(card) {
			continue
		}
		if reRepro.MatchString(card) && reHasFiles.MatchString(card) && !reSelect.MatchString(card) {
			out = append(out, finding(f, st, "IDCAMS-REPRO-IDENTITY", "INFO", "LOW",
				"IDCAMS REPRO without selection clauses; consider eliminating or consolidating redundant copies.",
				"REPRO with IN/OUT and no INCLUDE/EXCLUDE/KEYS in "+st.ControlCardMember))
		}
	}
	return out
}
