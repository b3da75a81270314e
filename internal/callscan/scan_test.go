package callscan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acrajesh/automationaccelerator/internal/shared"
	"github.com/acrajesh/automationaccelerator/internal/source"
)

func utilities(t *testing.T, text string) shared.UtilityList {
	t.Helper()
	return shared.ParseUtilities(text)
}

const cobolSample = `       IDENTIFICATION DIVISION.
       PROGRAM-ID. PAYROLL.
       PROCEDURE DIVISION.
      * sort the payroll extract
           CALL 'DFSORT' USING WS-PARM
      -        WS-AREA.
           CALL 'MYSUB' USING WS-PARM.
           CALL "IEBGENR2".
      *    CALL 'DFSORT'
           STOP RUN.
`

func TestScanCOBOL_CallsAndContinuations(t *testing.T) {
	ul := utilities(t, "DFSORT\nIEBGENER\n")
	calls := ScanLines(COBOL, "/src/PAYROLL.cbl", source.SplitLines(cobolSample), ul)

	require.Len(t, calls, 2)
	first := calls[0]
	assert.Equal(t, "PAYROLL.cbl", first.FileName)
	assert.Equal(t, FileTypeCOBOL, first.FileType)
	assert.Equal(t, "PAYROLL", first.Module)
	assert.Equal(t, 5, first.Line)
	assert.Equal(t, "DFSORT", first.Utility)
	assert.Contains(t, first.Snippet, "WS-AREA.")
	assert.Contains(t, first.Comments, "sort the payroll extract")

	// prefix match: IEB covers IEBGENR2
	assert.Equal(t, "IEBGENER", calls[1].Utility)
	assert.Equal(t, "IEBGENR2", calls[1].Target)
}

func TestScanCOBOL_CommentedCallIgnored(t *testing.T) {
	ul := utilities(t, "DFSORT\n")
	calls := ScanLines(COBOL, "X.cbl", []string{
		"      *    CALL 'DFSORT'",
		"      *> CALL 'DFSORT'",
	}, ul)
	assert.Empty(t, calls)
}

func TestScanASM_Macros(t *testing.T) {
	ul := utilities(t, "IDCAMS\nGETMAIN\n")
	lines := source.SplitLines(`MYPROG   START 0
* acquire storage
         GETMAIN R,LV=4096
         LR    R2,R1
`)
	calls := ScanLines(ASM, "/src/MYPROG.asm", lines, ul)
	require.Len(t, calls, 1)
	assert.Equal(t, "GETMAIN", calls[0].Utility)
	assert.Equal(t, "MYPROG", calls[0].Module)
	assert.Equal(t, 3, calls[0].Line)
	assert.Equal(t, "* acquire storage", calls[0].Comments)
}

func TestScanASM_LabelPrefixMatch(t *testing.T) {
	ul := utilities(t, "IDCAMS\n")
	calls := ScanLines(ASM, "A.asm", []string{"IDCAMSX  DS    0H"}, ul)
	require.Len(t, calls, 1)
	assert.Equal(t, "IDCAMS", calls[0].Utility)
	assert.Equal(t, "IDCAMSX", calls[0].Target)
}

func TestScan_EmptyUtilityList(t *testing.T) {
	calls := ScanLines(COBOL, "X.cbl", source.SplitLines(cobolSample), shared.UtilityList{})
	assert.Empty(t, calls)
}

func TestScan_ThreadCountDoesNotChangeResults(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 40; i++ {
		p := filepath.Join(root, fmt.Sprintf("d%d", i%4), fmt.Sprintf("P%02d.cbl", i))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(cobolSample), 0o644))
	}
	ul := utilities(t, "DFSORT\nIEBGENER\n")

	one, err := Scan(context.Background(), Options{Root: root, Lang: COBOL, Utilities: ul, Threads: 1, Diag: &shared.MemDiagnostics{}})
	require.NoError(t, err)
	many, err := Scan(context.Background(), Options{Root: root, Lang: COBOL, Utilities: ul, Threads: 6, Diag: &shared.MemDiagnostics{}})
	require.NoError(t, err)

	assert.Equal(t, 40, one.Files)
	assert.Len(t, one.Calls, 80)
	one.Sort()
	many.Sort()
	assert.Equal(t, one.Calls, many.Calls)
	assert.Equal(t, "DFSORT", one.Calls[0].Utility)
}

func TestScan_UnreadableFileIsIsolated(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "OK.asm"), []byte("         GETMAIN R\n"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(root, "nowhere"), filepath.Join(root, "BAD.asm")))
	diag := &shared.MemDiagnostics{}

	res, err := Scan(context.Background(), Options{Root: root, Lang: ASM, Utilities: utilities(t, "GETMAIN\n"), Diag: diag})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Files)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, res.Calls, 1)
	assert.Len(t, diag.Items(), 1)
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(context.Background(), Options{Root: filepath.Join(t.TempDir(), "none"), Lang: ASM})
	assert.True(t, errors.Is(err, shared.ErrConfig))
}

func TestScan_UnknownLanguage(t *testing.T) {
	_, err := Scan(context.Background(), Options{Root: t.TempDir()})
	assert.True(t, errors.Is(err, shared.ErrConfig))
}
