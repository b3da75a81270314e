package reporting

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/acrajesh/automationaccelerator/internal/ir"
)

var reParamName = regexp.MustCompile(`^[A-Z0-9-]+$`)

// IMSStats summarizes the DL/I calls of an IMS run.
type IMSStats struct {
	COBOLPrograms int
	ASMPrograms   int
	COBOLWithIMS  int
	ASMWithIMS    int
	// Params counts first USING parameters that are data names.
	Params    map[string]int
	Functions map[string]int
}

// SummarizeIMS counts programs with and without DL/I calls, by language.
func SummarizeIMS(run *ir.Run) IMSStats {
	s := IMSStats{
		COBOLPrograms: run.Files["COBOL"],
		ASMPrograms:   run.Files["ASM"],
		Params:        map[string]int{},
		Functions:     map[string]int{},
	}
	with := map[string]map[string]bool{"COBOL": {}, "ASM": {}}
	for _, c := range run.Calls {
		if w, ok := with[c.FileType]; ok {
			w[c.Key()] = true
		}
		if reParamName.MatchString(c.Param) {
			s.Params[c.Param]++
		}
		if c.Function != "" {
			s.Functions[c.Function]++
		}
	}
	s.COBOLWithIMS = len(with["COBOL"])
	s.ASMWithIMS = len(with["ASM"])
	return s
}

func (s IMSStats) rows() [][]any {
	using := s.COBOLWithIMS + s.ASMWithIMS
	return [][]any{
		{"Total COBOL Programs", s.COBOLPrograms},
		{"Total ASM Programs", s.ASMPrograms},
		{"COBOL with IMS Calls", s.COBOLWithIMS},
		{"ASM with IMS Calls", s.ASMWithIMS},
		{"COBOL without IMS Calls", s.COBOLPrograms - s.COBOLWithIMS},
		{"ASM without IMS Calls", s.ASMPrograms - s.ASMWithIMS},
		{"Total IMS-Using Programs", using},
		{"IMS Usage %", pct(using, s.COBOLPrograms+s.ASMPrograms, 2)},
	}
}

// WriteIMSWorkbook writes <base>.xlsx with the Summary, the call inventory
// and the parameter and function code counts.
func WriteIMSWorkbook(outDir, base string, versioning bool, run *ir.Run) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(outDir, base+".xlsx")
	if versioning {
		p = VersionedPath(p)
	}
	stats := SummarizeIMS(run)

	sum := table{name: "Summary", header: []string{"Metric", "Count"}, rows: stats.rows()}

	inv := table{name: "IMS Call Inventory", tall: true, header: []string{
		"Program", "File Name", "Language", "Static/Dynamic", "Line #", "Entry Point", "Extracted IMS Call", "Function Code", "Context/Comments",
	}}
	for _, c := range run.Calls {
		prog := c.Module
		if prog == "" {
			prog = c.FileName
		}
		inv.rows = append(inv.rows, []any{prog, c.Key(), c.FileType, c.CallType, c.Line, c.Utility, c.Snippet, c.Function, c.Comments})
	}

	params := table{name: "IMS Parameters", header: []string{"Parameter", "Count"}}
	for _, k := range sortedCountKeys(stats.Params, false) {
		params.rows = append(params.rows, []any{k, stats.Params[k]})
	}
	funcs := table{name: "IMS Functions", header: []string{"Function Code", "Count"}}
	for _, k := range sortedCountKeys(stats.Functions, true) {
		funcs.rows = append(funcs.rows, []any{k, stats.Functions[k]})
	}
	return p, writeWorkbook(p, []table{sum, inv, params, funcs})
}

// sortedCountKeys orders keys by name, or by count descending then name.
func sortedCountKeys(m map[string]int, byCount bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if byCount && m[out[i]] != m[out[j]] {
			return m[out[i]] > m[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
