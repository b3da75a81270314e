package callscan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/shared"
	"github.com/acrajesh/automationaccelerator/internal/source"
)

const imsCOBOL = `       IDENTIFICATION DIVISION.
       PROGRAM-ID. CUSTINQ.
       DATA DIVISION.
       WORKING-STORAGE SECTION.
       COPY DLIFUNC.
       01  WS-DLI-EP      PIC X(8) VALUE 'CBLTDLI'.
       01  WS-OTHER       PIC X(8) VALUE 'MYSUB'.
       PROCEDURE DIVISION.
      * read the customer root
           CALL 'CBLTDLI' USING DLI-GU
                                CUST-PCB
                                CUST-SEG.
           CALL WS-DLI-EP USING FUNC-ISRT, CUST-PCB, CUST-SEG.
           CALL WS-OTHER USING X.
           CALL 'CBLTDLI' USING 'GN  ' CUST-PCB CUST-SEG.
           CALL "AIBTDLI" USING GHU-CODE AIB IO-AREA.
      *    CALL 'CBLTDLI' USING DLI-GU.
           COPY DLICALL.
           STOP RUN.
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestScanIMSCOBOL_CopybooksAndCallTypes(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "cobol")
	cpy := filepath.Join(root, "copy")
	writeFile(t, filepath.Join(src, "inq", "CUSTINQ.cbl"), imsCOBOL)
	writeFile(t, filepath.Join(cpy, "dlifunc.cpy"),
		"       01  DLI-GU         PIC X(4) VALUE 'GU  '.\n       01  FUNC-ISRT      PIC X(4) VALUE 'ISRT'.\n")
	writeFile(t, filepath.Join(cpy, "DLICALL"), "           CALL 'CBLTDLI' USING FUNC-ISRT CUST-PCB CUST-SEG.\n")

	res, err := Scan(context.Background(), Options{Root: src, Lang: IMSCOBOL(cpy), Threads: 2, Diag: &shared.MemDiagnostics{}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Files)
	require.Len(t, res.Calls, 5)

	c := res.Calls
	assert.Equal(t, "CUSTINQ", c[0].Module)
	assert.Equal(t, "inq/CUSTINQ.cbl", c[0].Path)
	assert.Equal(t, 10, c[0].Line)
	assert.Equal(t, "CBLTDLI", c[0].Utility)
	assert.Equal(t, CallStatic, c[0].CallType)
	assert.Equal(t, "DLI-GU", c[0].Param)
	assert.Equal(t, "GU", c[0].Function, "function code read from the copybook VALUE clause")
	assert.Equal(t, 3, len(source.SplitLines(c[0].Snippet)))
	assert.Equal(t, "      * read the customer root", c[0].Comments)

	assert.Equal(t, 13, c[1].Line)
	assert.Equal(t, CallDynamic, c[1].CallType)
	assert.Equal(t, "CBLTDLI", c[1].Utility)
	assert.Equal(t, "WS-DLI-EP", c[1].Target)
	assert.Equal(t, "ISRT", c[1].Function)

	assert.Equal(t, 15, c[2].Line)
	assert.Equal(t, "GN", c[2].Function)

	assert.Equal(t, 16, c[3].Line)
	assert.Equal(t, "AIBTDLI", c[3].Utility)
	assert.Equal(t, "GHU", c[3].Function)

	assert.Equal(t, 18, c[4].Line, "calls inside a copybook point at the COPY statement")
	assert.Contains(t, c[4].Comments, "from copybook DLICALL line 1")
	assert.Equal(t, "ISRT", c[4].Function)
}

func TestScanIMSCOBOL_MissingCopybookDirectory(t *testing.T) {
	lines := source.SplitLines("       PROGRAM-ID. P1.\n       COPY NOPE.\n           CALL 'CBLTDLI' USING DLI-XYZ.\n")
	calls := ScanLines(IMSCOBOL(""), "/src/P1.cbl", lines, shared.UtilityList{})
	require.Len(t, calls, 1)
	assert.Equal(t, FuncUnknown, calls[0].Function)
	assert.Equal(t, 3, calls[0].Line)
}

const imsASM = `CUSTASM  CSECT
* get unique customer
         CALL  ASMTDLI,(GUFUNC,PCB,IOAREA),VL
         MVC   EPNAME,=CL8'CBLTDLI'
         L     15,=V(DFSLI000)
EPNAME   DC    CL8'AIBTDLI'
GUFUNC   DC    CL4'GU'
*        CALL  ASMTDLI,(X)
         END
`

func TestScanIMSASM(t *testing.T) {
	calls := ScanLines(IMSASM, "/asm/CUSTASM.asm", source.SplitLines(imsASM), shared.UtilityList{})
	require.Len(t, calls, 3)

	assert.Equal(t, "CUSTASM", calls[0].Module)
	assert.Equal(t, ir.CallSite{
		FileName: "CUSTASM.asm", FileType: FileTypeASM, Module: "CUSTASM", Line: 3,
		Utility: "ASMTDLI", Target: "ASMTDLI", Snippet: "CALL  ASMTDLI,(GUFUNC,PCB,IOAREA),VL",
		Comments: "* get unique customer", CallType: CallStatic, Function: "GU", Param: "GUFUNC",
	}, calls[0])

	assert.Equal(t, "CBLTDLI", calls[1].Utility)
	assert.Equal(t, CallDynamic, calls[1].CallType)
	assert.Equal(t, FuncUnknown, calls[1].Function)

	assert.Equal(t, "DFSLI000", calls[2].Utility)
	assert.Equal(t, CallStatic, calls[2].CallType)
}

func TestDLIFunction(t *testing.T) {
	values := map[string]string{"WS-FUNC": "GHNP"}
	assert.Equal(t, "GHNP", dliFunction("ws-func", values))
	assert.Equal(t, "REPL", dliFunction("'REPL'", nil))
	assert.Equal(t, "DLET", dliFunction("DLI-DLET-CODE", nil))
	assert.Equal(t, FuncUnknown, dliFunction("GUARD-AREA", nil))
	assert.Equal(t, FuncUnknown, dliFunction("", nil))
}
