package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/acrajesh/automationaccelerator/internal/ir"
)

const (
	maxColWidth   = 50
	maxSheetName  = 31
	maxCellChars  = excelize.TotalCellChars
	pointsPerLine = 15
	dashboardName = "Dashboard"
)

var (
	stepHeader = []string{
		"File Name", "File Type", "Step Name", "Comments", "Step",
		"SYSIN Type", "SYSIN Statement", "Control Card Member", "Control Card Content",
	}
	callHeader = []string{
		"File Name", "Module Name", "Line Number", "Macro/Call Target", "Invocation Snippet", "Context/Comments",
	}
)

type table struct {
	name   string
	header []string
	rows   [][]any
	// tall rows grow to fit multi-line cells
	tall bool
	// fillCol (1-based) is colored by its cell value through fills.
	fillCol int
	fills   map[string]string
}

// VersionedPath returns path if nothing exists there, otherwise the first
// free <root>_vN<ext>.
func VersionedPath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	root := strings.TrimSuffix(path, ext)
	for v := 1; ; v++ {
		p := fmt.Sprintf("%s_v%d%s", root, v, ext)
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
	}
}

// WriteStepWorkbooks writes <base>_default.xlsx and <base>_custom.xlsx, each
// with a Dashboard and one sheet per utility of that list, found or not.
func WriteStepWorkbooks(outDir, base string, versioning bool, run *ir.Run) (defaultPath, customPath string, err error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", "", err
	}
	byProgram := map[string][]ir.ExtractedStep{}
	for _, st := range run.Steps {
		byProgram[st.Program] = append(byProgram[st.Program], st)
	}

	write := func(suffix string, utils []string) (string, error) {
		p := filepath.Join(outDir, base+"_"+suffix+".xlsx")
		if versioning {
			p = VersionedPath(p)
		}
		utils = sortedUnique(utils)
		dash := table{name: dashboardName, header: []string{"Utility", "Found", "Count"}}
		sheets := []table{}
		for _, u := range utils {
			steps := byProgram[u]
			dash.rows = append(dash.rows, []any{u, yesNo(len(steps) > 0), len(steps)})
			t := table{name: u, header: stepHeader, tall: true}
			for _, st := range steps {
				t.rows = append(t.rows, []any{
					st.FileName, st.FileType, st.StepName, st.Comments, st.StepBlock,
					st.SysinType.Label(), st.SysinStatement, st.ControlCardMember, st.ControlCardContent,
				})
			}
			sheets = append(sheets, t)
		}
		return p, writeWorkbook(p, append([]table{dash}, sheets...))
	}

	if defaultPath, err = write("default", run.Utilities.Default); err != nil {
		return "", "", fmt.Errorf("default workbook: %w", err)
	}
	if customPath, err = write("custom", run.Utilities.Custom); err != nil {
		return defaultPath, "", fmt.Errorf("custom workbook: %w", err)
	}
	return defaultPath, customPath, nil
}

// WriteCallWorkbook writes <base>.xlsx for a COBOL or Assembler run: a
// Dashboard over every listed utility and one sheet per utility found.
func WriteCallWorkbook(outDir, base string, versioning bool, run *ir.Run) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	p := filepath.Join(outDir, base+".xlsx")
	if versioning {
		p = VersionedPath(p)
	}
	byUtil := map[string][]ir.CallSite{}
	for _, c := range run.Calls {
		byUtil[c.Utility] = append(byUtil[c.Utility], c)
	}

	dash := table{name: dashboardName, header: []string{"Utility Name", "Found", "Count", "Modules/Files Found In"}}
	var sheets []table
	for _, u := range sortedUnique(append(append([]string(nil), run.Utilities.Default...), run.Utilities.Custom...)) {
		calls := byUtil[u]
		files := map[string]bool{}
		for _, c := range calls {
			files[c.Key()] = true
		}
		dash.rows = append(dash.rows, []any{u, yesNo(len(calls) > 0), len(calls), strings.Join(sortedKeys(files), ", ")})
		if len(calls) == 0 {
			continue
		}
		t := table{name: u, header: callHeader, tall: true}
		for _, c := range calls {
			t.rows = append(t.rows, []any{c.FileName, c.Module, c.Line, c.Target, c.Snippet, c.Comments})
		}
		sheets = append(sheets, t)
	}
	return p, writeWorkbook(p, append([]table{dash}, sheets...))
}

func writeWorkbook(path string, tables []table) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D7E4BC"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return err
	}

	used := map[string]bool{}
	for i, t := range tables {
		name := sheetName(t.name, used)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := writeTable(f, name, t, header, wrap); err != nil {
			return fmt.Errorf("sheet %s: %w", name, err)
		}
	}
	return f.SaveAs(path)
}

func writeTable(f *excelize.File, sheet string, t table, header, wrap int) error {
	hdr := make([]any, len(t.header))
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		hdr[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return err
	}

	for r, row := range t.rows {
		lines := 1
		for c, v := range row {
			if s, ok := v.(string); ok {
				s = truncRunes(s, maxCellChars)
				row[c] = s
				lines = max(lines, strings.Count(s, "\n")+1)
				widths[c] = max(widths[c], utf8.RuneCountInString(s))
			} else {
				widths[c] = max(widths[c], len(fmt.Sprint(v)))
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
		if t.tall {
			if err := f.SetRowHeight(sheet, r+2, float64(max(pointsPerLine, lines*pointsPerLine))); err != nil {
				return err
			}
		}
	}

	last, err := excelize.ColumnNumberToName(len(t.header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", header); err != nil {
		return err
	}
	if len(t.rows) > 0 {
		if err := f.SetCellStyle(sheet, "A2", fmt.Sprintf("%s%d", last, len(t.rows)+1), wrap); err != nil {
			return err
		}
	}
	if err := fillCells(f, sheet, t); err != nil {
		return err
	}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(min(w+2, maxColWidth))); err != nil {
			return err
		}
	}
	return nil
}

func fillCells(f *excelize.File, sheet string, t table) error {
	if t.fillCol == 0 {
		return nil
	}
	styles := map[string]int{}
	for r, row := range t.rows {
		color := t.fills[fmt.Sprint(row[t.fillCol-1])]
		if color == "" {
			continue
		}
		id, ok := styles[color]
		if !ok {
			var err error
			id, err = f.NewStyle(&excelize.Style{
				Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
				Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
			})
			if err != nil {
				return err
			}
			styles[color] = id
		}
		cell, err := excelize.CoordinatesToCellName(t.fillCol, r+2)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, id); err != nil {
			return err
		}
	}
	return nil
}

// sheetName trims to Excel's 31 characters, strips characters Excel rejects
// and keeps names unique within a workbook (case-insensitive, as Excel does).
func sheetName(name string, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "Sheet"
	}
	cand := truncRunes(name, maxSheetName)
	for n := 2; used[strings.ToUpper(cand)]; n++ {
		sfx := fmt.Sprintf("_%d", n)
		cand = truncRunes(name, maxSheetName-len(sfx)) + sfx
	}
	used[strings.ToUpper(cand)] = true
	return cand
}

func truncRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func sortedUnique(in []string) []string {
	seen := map[string]bool{}
	for _, s := range in {
		seen[s] = true
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
