package jclscan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/resolver"
)

func split(s string) []string { return strings.Split(strings.TrimRight(s, "\n"), "\n") }

func task(cntl string, utils ...string) ir.ScanTask {
	u := map[string]bool{}
	for _, n := range utils {
		u[n] = true
	}
	return ir.ScanTask{Path: "/jcl/BACKUP.jcl", FileType: FileTypeJCL, Utilities: u, CntlLib: cntl}
}

func TestExtract_InlineSysinScenario(t *testing.T) {
	jcl := `//BACKUP   JOB (1),'B',CLASS=A
//* Backup volume
//STEP1    EXEC PGM=IDCAMS
//SYSPRINT DD SYSOUT=*
//SYSIN    DD *
  LISTCAT ENTRIES(PROD.DATA) ALL
  PRINT INFILE(IN1) CHARACTER
/*
`
	steps, skips := ExtractLines(task("", "IDCAMS"), split(jcl), nil)
	require.Empty(t, skips)
	require.Len(t, steps, 1)

	st := steps[0]
	assert.Equal(t, "BACKUP.jcl", st.FileName)
	assert.Equal(t, "JCL", st.FileType)
	assert.Equal(t, "STEP1", st.StepName)
	assert.Equal(t, 3, st.Line)
	assert.Equal(t, "IDCAMS", st.Program)
	assert.Empty(t, st.ResolvedFrom)
	assert.Equal(t, ir.SysinInline, st.SysinType)
	assert.Equal(t, "//SYSIN    DD *", st.SysinStatement)
	assert.Equal(t, "//* Backup volume", st.Comments)
	assert.Equal(t, "//STEP1    EXEC PGM=IDCAMS\n//SYSPRINT DD SYSOUT=*\n//SYSIN    DD *", st.StepBlock)
}

func TestExtract_SymbolicResolutionChain(t *testing.T) {
	jcl := `//COPYJOB JOB (1)
// SET UTILNAME=IEBGENER
//S2 EXEC &UTILNAME
//SYSUT1 DD DSN=IN.FILE,DISP=SHR
`
	steps, skips := ExtractLines(task("", "IEBGENER"), split(jcl), resolver.New(4))
	require.Empty(t, skips)
	require.Len(t, steps, 1)
	assert.Equal(t, "IEBGENER", steps[0].Program)
	assert.Equal(t, "S2", steps[0].StepName)
	assert.Equal(t, "SET", steps[0].ResolvedFrom)
	assert.True(t, strings.HasPrefix(steps[0].StepBlock, "//S2 EXEC &UTILNAME"))
}

func TestExtract_ResolvedValueIsUppercased(t *testing.T) {
	steps, _ := ExtractLines(task("", "IEBGENER"), split("// SET U=iebgener\n//S1 EXEC PGM=&U\n"), nil)
	require.Len(t, steps, 1)
	assert.Equal(t, "IEBGENER", steps[0].Program)
}

func TestExtract_UnresolvedSymbolIsSkipped(t *testing.T) {
	steps, skips := ExtractLines(task(t.TempDir(), "IDCAMS"), split("//J JOB\n//S1 EXEC &UNDEFINEDPARM\n"), nil)
	assert.Empty(t, steps)
	require.Len(t, skips, 1)
	assert.Contains(t, skips[0].Reason, "&UNDEFINEDPARM")
	assert.Contains(t, skips[0].Reason, "S1")
}

func TestExtract_MembershipFilter(t *testing.T) {
	jcl := `//S1 EXEC PGM=IEFBR14
//S2 EXEC PGM=SORT
//S3 EXEC PGM=IDCAMS
//S4 EXEC PGM=MYAPP01
`
	utils := task("", "IDCAMS", "SORT")
	steps, _ := ExtractLines(utils, split(jcl), nil)
	require.Len(t, steps, 2)
	for _, st := range steps {
		assert.True(t, utils.Utilities[st.Program], st.Program)
	}
}

func TestExtract_SkipsCommentedExec(t *testing.T) {
	jcl := "//* EXEC PGM=IDCAMS\n//*OLD EXEC PGM=IDCAMS\n//S1 EXEC PGM=SORT\n"
	steps, _ := ExtractLines(task("", "IDCAMS", "SORT"), split(jcl), nil)
	require.Len(t, steps, 1)
	assert.Equal(t, "SORT", steps[0].Program)
}

func TestExtract_MissingControlCard(t *testing.T) {
	jcl := "//S1 EXEC PGM=IDCAMS\n//SYSIN DD DSN=X.Y(MEMBER),DISP=SHR\n"
	steps, _ := ExtractLines(task(t.TempDir(), "IDCAMS"), split(jcl), nil)
	require.Len(t, steps, 1)
	st := steps[0]
	assert.Equal(t, ir.SysinControlCard, st.SysinType)
	assert.Equal(t, "MEMBER", st.ControlCardMember)
	assert.Equal(t, "[Control card 'MEMBER' not found in CNTLLIB]", st.ControlCardContent)
	assert.Equal(t, "//SYSIN DD DSN=X.Y(MEMBER),DISP=SHR", st.SysinStatement)
}

func TestExtract_ControlCardContentAndEmpty(t *testing.T) {
	cntl := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cntl, "REPRO1.incl"), []byte(" REPRO INFILE(A) OUTFILE(B)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cntl, "EMPTY1.incl"), nil, 0o644))
	jcl := `//S1 EXEC PGM=IDCAMS
//SYSIN DD DISP=SHR,DSN=PROD.CNTL(REPRO1)

//S2 EXEC PGM=IDCAMS
//SYSIN DD DSN=PROD.CNTL(EMPTY1)
`
	steps, _ := ExtractLines(task(cntl, "IDCAMS"), split(jcl), nil)
	require.Len(t, steps, 2)
	assert.Equal(t, " REPRO INFILE(A) OUTFILE(B)\n", steps[0].ControlCardContent)
	assert.Equal(t, resolver.ControlCardEmpty, steps[1].ControlCardContent)
}

func TestExtract_FirstSysinWins(t *testing.T) {
	jcl := "//S1 EXEC PGM=SORT\n//SYSIN DD *\n//SYSIN DD DSN=A.B(C)\n"
	steps, _ := ExtractLines(task("", "SORT"), split(jcl), nil)
	require.Len(t, steps, 1)
	assert.Equal(t, ir.SysinInline, steps[0].SysinType)
	assert.Empty(t, steps[0].ControlCardMember)
}

func TestExtract_AdjacentStepWindowsDoNotOverlap(t *testing.T) {
	jcl := `//* first step
//S1 EXEC PGM=IDCAMS
//SYSIN DD *
  DELETE X
/*
//* belongs to S1 block
//S2 EXEC PGM=IEBGENER
//SYSUT1 DD DSN=A,DISP=SHR
`
	steps, _ := ExtractLines(task("", "IDCAMS", "IEBGENER"), split(jcl), nil)
	require.Len(t, steps, 2)
	assert.Equal(t, "//* first step", steps[0].Comments)
	assert.Equal(t, "//S1 EXEC PGM=IDCAMS\n//SYSIN DD *\n//* belongs to S1 block", steps[0].StepBlock)
	assert.Empty(t, steps[1].Comments)
	assert.Equal(t, "//S2 EXEC PGM=IEBGENER\n//SYSUT1 DD DSN=A,DISP=SHR", steps[1].StepBlock)
}

func TestExtract_BlankLineEndsBlockAndComments(t *testing.T) {
	jcl := `//* detached comment

//* attached comment
//S1 EXEC PGM=SORT
//SORTIN DD DSN=A

//STRAY DD DSN=B
`
	steps, _ := ExtractLines(task("", "SORT"), split(jcl), nil)
	require.Len(t, steps, 1)
	assert.Equal(t, "//* attached comment", steps[0].Comments)
	assert.Equal(t, "//S1 EXEC PGM=SORT\n//SORTIN DD DSN=A", steps[0].StepBlock)
	assert.Equal(t, ir.SysinNone, steps[0].SysinType)
}

func TestExtract_Idempotent(t *testing.T) {
	jcl := "// SET U=SORT\n//A EXEC PGM=&U\n//SYSIN DD *\n//B EXEC PGM=IDCAMS\n"
	tk := task(t.TempDir(), "SORT", "IDCAMS")
	first, _ := ExtractLines(tk, split(jcl), nil)
	second, _ := ExtractLines(tk, split(jcl), nil)
	assert.ElementsMatch(t, first, second)
}

func TestExtractFile_EmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "EMPTY.jcl")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	tk := task("", "SORT")
	tk.Path = empty
	fr := ExtractFile(tk, nil)
	assert.NoError(t, fr.Err)
	require.Len(t, fr.Skips, 1)
	assert.Equal(t, "empty file", fr.Skips[0].Reason)

	tk.Path = filepath.Join(dir, "NOPE.jcl")
	fr = ExtractFile(tk, nil)
	assert.Error(t, fr.Err)
	assert.Empty(t, fr.Steps)
}

func TestExtract_NationalCharactersInSymbols(t *testing.T) {
	jcl := `// SET UTIL$1=IDCAMS,UTIL=SORT
//S1 EXEC &UTIL$1
//S2 EXEC PGM=$UTIL#
`
	steps, skips := ExtractLines(task("", "IDCAMS", "$UTIL#"), split(jcl), nil)
	require.Empty(t, skips)
	require.Len(t, steps, 2)
	assert.Equal(t, "IDCAMS", steps[0].Program)
	assert.Equal(t, "$UTIL#", steps[1].Program)
}

func TestExtract_ProcCallEndsPreviousBlock(t *testing.T) {
	jcl := `//S1 EXEC PGM=SORT
//SORTIN DD DSN=A,DISP=SHR
//S2 EXEC MYPROC
//S2.SYSIN DD DSN=PROD.CNTL(OVR),DISP=SHR
`
	steps, _ := ExtractLines(task("", "SORT"), split(jcl), nil)
	require.Len(t, steps, 1)
	assert.Equal(t, "//S1 EXEC PGM=SORT\n//SORTIN DD DSN=A,DISP=SHR", steps[0].StepBlock)
	assert.Equal(t, ir.SysinNone, steps[0].SysinType)
}

func TestExtract_InlineSysinDataIsKept(t *testing.T) {
	jcl := `//DUMP1 EXEC PGM=ADRDSSU
//TAPE  DD DSN=BKUP.DUMP,DISP=(NEW,CATLG)
//SYSIN DD *
  DUMP DATASET(INCLUDE(PROD.**)) -
       OUTDDNAME(TAPE)
/*
//S2 EXEC PGM=ADRDSSU
//SYSIN DD DSN=CNTL(RST),DISP=SHR
`
	steps, _ := ExtractLines(task("", "ADRDSSU"), split(jcl), nil)
	require.Len(t, steps, 2)
	assert.Equal(t, "  DUMP DATASET(INCLUDE(PROD.**)) -\n       OUTDDNAME(TAPE)", steps[0].SysinData)
	assert.NotContains(t, steps[0].StepBlock, "OUTDDNAME")
	assert.Empty(t, steps[1].SysinData)
}
