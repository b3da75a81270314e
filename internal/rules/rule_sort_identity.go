package rules

import (
	"regexp"
	"strings"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/resolver"
)

var reSortShaping = regexp.MustCompile(`(?i)\b(INCLUDE|OMIT|INREC|OUTREC|OUTFIL|SUM)\b`)

func init() {
	Register(Rule{
		ID:              "SORT-IDENTITY",
		Summary:         "SORT control card only copies (FIELDS=COPY without reshaping).",
		Type:            "INFO",
		DefaultSeverity: "MEDIUM",
		Eval:            evalSortIdentity,
	})
}

func evalSortIdentity(f *File) []ir.Finding {
	var out []ir.Finding
	for _, st := range f.Steps {
		if !isSort(st.Program) || st.SysinType != ir.SysinControlCard {
			continue
		}
		card := st.ControlCardContent
		if resolver.IsControlCardSentinel(card) {
			continue
		}
		if strings.Contains(strings.ToUpper(card), "FIELDS=COPY") && !reSortShaping.MatchString(card) {
			out = append(out, finding(f, st, "SORT-IDENTITY", "INFO", "MEDIUM",
				"SORT performs an identity copy; a plain copy utility or removal may be enough after migration.",
				snippet(card)))
		}
	}
	return out
}
