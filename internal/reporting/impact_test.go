package reporting

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/acrajesh/automationaccelerator/internal/impact"
	"github.com/acrajesh/automationaccelerator/internal/ir"
)

func adrdssuAnalysis(t *testing.T) impact.Analysis {
	t.Helper()
	meta, err := impact.ParseMetadata([]byte(`ADRDSSU:
  Statements:
    DUMP:
      Supported: [OUTDDNAME, DATASET(INCLUDE)]
      Not supported: [CONCURRENT]
`))
	require.NoError(t, err)
	return impact.Analyze([]ir.ExtractedStep{
		{FileName: "A.jcl", StepName: "D1", Line: 3, Program: "ADRDSSU", SysinType: ir.SysinInline,
			SysinData: "DUMP DATASET(INCLUDE(A.**)) CONCURRENT OUTDDNAME(T)"},
		{FileName: "B.jcl", StepName: "D2", Line: 7, Program: "ADRDSSU", SysinType: ir.SysinInline,
			SysinData: "DUMP OUTDDNAME(T) SPHERE"},
	}, meta)
}

func TestWriteADRDSSUWorkbook(t *testing.T) {
	p, err := WriteADRDSSUWorkbook(t.TempDir(), "adrdssu_impact_analysis", true, adrdssuAnalysis(t))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, "adrdssu_impact_analysis.xlsx"))

	f, err := excelize.OpenFile(p)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Dashboard", "Options Analysis", "Job References"}, f.GetSheetList())

	dash, err := f.GetRows("Dashboard")
	require.NoError(t, err)
	assert.Equal(t, []string{"ADRDSSU", "4", "2", "50.00%", "0", "0.00%", "1", "25.00%", "1", "25.00%", "2", "50.0%", "1", "25.0%"}, dash[1])

	opts, err := f.GetRows("Options Analysis")
	require.NoError(t, err)
	require.Len(t, opts, 5)
	assert.Equal(t, []string{"CONCURRENT", "DUMP", "Not supported", "1", "A.jcl - D1"}, opts[1])
	assert.Equal(t, "SPHERE", opts[2][0])
	assert.Equal(t, []string{"OUTDDNAME", "DUMP", "Supported", "2", "A.jcl - D1, B.jcl - D2"}, opts[4])

	id, err := f.GetCellStyle("Options Analysis", "C2")
	require.NoError(t, err)
	st, err := f.GetStyle(id)
	require.NoError(t, err)
	require.NotEmpty(t, st.Fill.Color)
	assert.Contains(t, strings.ToUpper(st.Fill.Color[0]), "FF0000")

	jobs, err := f.GetRows("Job References")
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"A.jcl - D1", "3", "DUMP", "High", "2", "1", "0", "0",
		"Not supported: CONCURRENT\nSupported: DATASET(INCLUDE), OUTDDNAME", "None"}, jobs[1])
	assert.Equal(t, "Medium", jobs[2][3])
	assert.Equal(t, "SPHERE", jobs[2][9])
}

func TestWriteADRDSSUWorkbook_ListsUnanalyzedSteps(t *testing.T) {
	a := impact.Analysis{Unanalyzed: []string{"C.jcl - S9"}}
	p, err := WriteADRDSSUWorkbook(t.TempDir(), "adrdssu", false, a)
	require.NoError(t, err)
	f, err := excelize.OpenFile(p)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Unanalyzed Steps")
	dash, err := f.GetRows("Dashboard")
	require.NoError(t, err)
	assert.Equal(t, "0.00%", dash[1][3], "no options must not divide by zero")
}

func imsRun() *ir.Run {
	return &ir.Run{
		ID:    "i1",
		Kind:  ir.KindIMS,
		Files: map[string]int{"COBOL": 2, "ASM": 1},
		Calls: []ir.CallSite{
			{FileName: "P1.cbl", Path: "src/P1.cbl", FileType: "COBOL", Module: "P1", Line: 10, Utility: "CBLTDLI",
				Target: "CBLTDLI", Snippet: "CALL 'CBLTDLI' USING DLI-GU", CallType: "Static", Function: "GU", Param: "DLI-GU"},
			{FileName: "P1.cbl", Path: "src/P1.cbl", FileType: "COBOL", Module: "P1", Line: 12, Utility: "CBLTDLI",
				Target: "CBLTDLI", CallType: "Static", Function: "GN", Param: "'GN  '"},
			{FileName: "A1.asm", FileType: "ASM", Line: 4, Utility: "DFSLI000", Target: "DFSLI000",
				Snippet: "L 15,=V(DFSLI000)", CallType: "Static", Function: "Unknown"},
		},
	}
}

func TestSummarizeIMS(t *testing.T) {
	s := SummarizeIMS(imsRun())
	assert.Equal(t, 1, s.COBOLWithIMS)
	assert.Equal(t, 1, s.ASMWithIMS)
	assert.Equal(t, map[string]int{"DLI-GU": 1}, s.Params)
	assert.Equal(t, map[string]int{"GU": 1, "GN": 1, "Unknown": 1}, s.Functions)
}

func TestWriteIMSWorkbook(t *testing.T) {
	p, err := WriteIMSWorkbook(t.TempDir(), "ims_impact_report", false, imsRun())
	require.NoError(t, err)
	f, err := excelize.OpenFile(p)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Summary", "IMS Call Inventory", "IMS Parameters", "IMS Functions"}, f.GetSheetList())

	sum, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"COBOL without IMS Calls", "1"}, sum[5])
	assert.Equal(t, []string{"IMS Usage %", "66.67%"}, sum[8])

	inv, err := f.GetRows("IMS Call Inventory")
	require.NoError(t, err)
	require.Len(t, inv, 4)
	assert.Equal(t, []string{"P1", "src/P1.cbl", "COBOL", "Static", "10", "CBLTDLI", "CALL 'CBLTDLI' USING DLI-GU", "GU"}, inv[1])
	assert.Equal(t, "A1.asm", inv[3][0], "programs without a module name fall back to the file name")

	fn, err := f.GetRows("IMS Functions")
	require.NoError(t, err)
	assert.Equal(t, []string{"GN", "1"}, fn[1])
}
