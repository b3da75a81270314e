package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acrajesh/automationaccelerator/internal/callscan"
	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/rules"
	"github.com/acrajesh/automationaccelerator/internal/shared"
	"github.com/acrajesh/automationaccelerator/internal/storage"
)

const samplePayroll = `//PAYROLL  JOB (12345),'DEMO RUN',CLASS=A,MSGCLASS=X
//S1       EXEC PGM=SORT
//SYSIN    DD *
  SORT  FIELDS=COPY
/*
//SORTWK01 DD UNIT=SYSDA,SPACE=(CYL,(900,50))
//S2       EXEC PGM=IEBGENER
//SYSUT1   DD DSN=INPUT.FILE,DISP=SHR
//SYSUT2   DD DSN=OUTPUT.FILE,DISP=(NEW,CATLG,DELETE)
//SYSIN    DD DUMMY
//X1       DD DSN=SHARED.DATA.SET,DISP=OLD
//X2       DD DSN=SHARED.DATA.SET,DISP=OLD
`

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func testConfig(t *testing.T) shared.Config {
	t.Helper()
	root := t.TempDir()
	cfg := shared.DefaultConfig()
	cfg.Directories.JCL = filepath.Join(root, "jcl")
	cfg.Directories.CNTLLIB = filepath.Join(root, "cntl")
	cfg.Directories.COBOL = filepath.Join(root, "cobol")
	cfg.Output.Directory = filepath.Join(root, "out")
	cfg.Database.DSN = filepath.Join(root, "utilscan.db")
	cfg.DefaultUtilities = []string{"SORT", "IEBGENER"}
	cfg.CustomUtilities = []string{"IDCAMS"}
	cfg.UtilitiesFile = filepath.Join(root, "utilities.txt")
	require.NoError(t, os.MkdirAll(cfg.Directories.CNTLLIB, 0o755))
	write(t, filepath.Join(cfg.Directories.JCL, "PAYROLL.jcl"), samplePayroll)
	write(t, cfg.UtilitiesFile, "DFSORT\nCEEDAYS\n")
	write(t, filepath.Join(cfg.Directories.COBOL, "PAY.cbl"),
		"       IDENTIFICATION DIVISION.\n       PROGRAM-ID. PAY.\n       PROCEDURE DIVISION.\n           CALL 'DFSORT' USING WS-PARM.\n")
	return cfg
}

func ruleIDs(fs []ir.Finding) []string {
	var out []string
	for _, f := range fs {
		out = append(out, f.RuleID)
	}
	return out
}

func TestJCLPipeline(t *testing.T) {
	cfg := testConfig(t)
	diag := &shared.MemDiagnostics{}

	run, err := scanJCL(context.Background(), cfg, diag)
	require.NoError(t, err)
	require.Len(t, run.Steps, 2)
	assert.Equal(t, "IEBGENER", run.Steps[0].Program, "steps are sorted by program")
	assert.Equal(t, ir.SysinInline, run.Steps[1].SysinType)
	assert.Empty(t, diag.Items())

	require.NoError(t, applyRules(cfg, run, nil))
	got := ruleIDs(run.Findings)
	assert.Contains(t, got, "IEBGENER-REDUNDANT-COPY")
	assert.Contains(t, got, "SORT-SORTWK-OVERSIZED")
	assert.Contains(t, got, "DD-DISP-OLD-SERIALIZATION")
	assert.Contains(t, got, "DD-DUPLICATE-DATASET")

	db, err := openDB(cfg)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.SaveRun(run))
	loaded, err := db.LoadRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Steps, loaded.Steps)

	out := writeReports(cfg, run)
	assert.Empty(t, out.errs)
	assert.Len(t, out.paths, 4, "default and custom workbooks, JSON, HTML")
	for _, p := range out.paths {
		assert.FileExists(t, p)
	}
}

func TestJCLPipeline_WaiverAndThreshold(t *testing.T) {
	cfg := testConfig(t)
	t.Cleanup(func() { rules.SetSettings(rules.Settings{SeverityThreshold: "LOW"}) })
	run, err := scanJCL(context.Background(), cfg, nil)
	require.NoError(t, err)

	w := []storage.Waiver{{RuleID: "IEBGENER-REDUNDANT-COPY", File: "PAYROLL.jcl", ExpiresAt: time.Now().Add(24 * time.Hour)}}
	require.NoError(t, applyRules(cfg, run, w))
	assert.NotContains(t, ruleIDs(run.Findings), "IEBGENER-REDUNDANT-COPY")

	cfg.Rules.SeverityThreshold = "HIGH"
	require.NoError(t, applyRules(cfg, run, nil))
	for _, f := range run.Findings {
		assert.Equal(t, "HIGH", f.Severity)
	}
}

func TestJCLPipeline_ConfigErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Directories.CNTLLIB = filepath.Join(t.TempDir(), "missing")
	_, err := scanJCL(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, shared.ErrConfig)

	cfg = testConfig(t)
	cfg.Rules.Pack = filepath.Join(t.TempDir(), "nope.yaml")
	run, err := scanJCL(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, applyRules(cfg, run, nil), shared.ErrConfig)
}

func TestCallPipeline(t *testing.T) {
	cfg := testConfig(t)
	run, err := scanCalls(context.Background(), cfg, callscan.COBOL, cfg.Directories.COBOL, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.KindCOBOL, run.Kind)
	require.Len(t, run.Calls, 1)
	assert.Equal(t, "DFSORT", run.Calls[0].Utility)
	assert.Equal(t, []string{"CEEDAYS", "DFSORT"}, run.Utilities.Default)

	out := writeReports(cfg, run)
	assert.Empty(t, out.errs)
	assert.Len(t, out.paths, 3)

	_, err = scanCalls(context.Background(), cfg, callscan.ASM, "", nil)
	assert.ErrorIs(t, err, shared.ErrConfig)
	cfg.UtilitiesFile = ""
	_, err = scanCalls(context.Background(), cfg, callscan.COBOL, cfg.Directories.COBOL, nil)
	assert.ErrorIs(t, err, shared.ErrConfig)
}

func TestJCLPipeline_SameNameAcrossDirectories(t *testing.T) {
	cfg := testConfig(t)
	write(t, filepath.Join(cfg.Directories.JCL, "a", "NIGHTLY.jcl"),
		"//NIGHTA JOB\n//R EXEC PGM=SORT\n//SORTIN DD DSN=PROD.GDG(-1),DISP=SHR\n")
	write(t, filepath.Join(cfg.Directories.JCL, "b", "NIGHTLY.jcl"),
		"//NIGHTB JOB\n//W EXEC PGM=IEBGENER\n//SYSUT2 DD DSN=PROD.GDG(+1),DISP=(NEW,CATLG),SPACE=(TRK,1)\n")

	run, err := scanJCL(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, applyRules(cfg, run, nil))
	assert.NotContains(t, ruleIDs(run.Findings), "GDG-ROLLOFF-RISK")

	db, err := openDB(cfg)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.SaveRun(run))
	steps, err := db.ListSteps(run.ID, "IEBGENER")
	require.NoError(t, err)
	var paths []string
	for _, st := range steps {
		paths = append(paths, st.Key())
	}
	assert.Equal(t, []string{"PAYROLL.jcl", "b/NIGHTLY.jcl"}, paths)
}

func TestJCLPipeline_ADRDSSUImpact(t *testing.T) {
	cfg := testConfig(t)
	t.Cleanup(func() { rules.SetSettings(rules.Settings{SeverityThreshold: "LOW"}) })
	cfg.DefaultUtilities = append(cfg.DefaultUtilities, "ADRDSSU")
	cfg.Impact.ADRDSSUMetadata = "../../configs/adrdssu_metadata.yaml"
	write(t, filepath.Join(cfg.Directories.JCL, "BACKUP.jcl"), `//BACKUP   JOB (1),'DUMP'
//D1       EXEC PGM=ADRDSSU
//TAPE     DD DSN=BKUP.FULL,DISP=(NEW,CATLG)
//SYSIN    DD *
  DUMP FULL OUTDDNAME(TAPE) -
       CONCURRENT
/*
`)

	run, err := scanJCL(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, applyRules(cfg, run, nil))
	assert.Contains(t, ruleIDs(run.Findings), "ADRDSSU-UNSUPPORTED-OPTION")

	out := writeReports(cfg, run)
	assert.Empty(t, out.errs)
	var found bool
	for _, p := range out.paths {
		if filepath.Base(p) == "adrdssu_impact_analysis.xlsx" {
			found = true
			assert.FileExists(t, p)
		}
	}
	assert.True(t, found, "ADRDSSU steps produce the impact workbook")

	cfg.Impact.ADRDSSUMetadata = filepath.Join(t.TempDir(), "missing.yaml")
	assert.ErrorIs(t, applyRules(cfg, run, nil), shared.ErrConfig)
}

func TestIMSPipeline(t *testing.T) {
	cfg := testConfig(t)
	root := t.TempDir()
	cfg.Directories.Copybooks = filepath.Join(root, "copy")
	cfg.Directories.Assembler = filepath.Join(root, "asm")
	write(t, filepath.Join(cfg.Directories.COBOL, "INQ.cbl"),
		"       PROGRAM-ID. INQ.\n       COPY DLIFUNC.\n       PROCEDURE DIVISION.\n           CALL 'CBLTDLI' USING DLI-GU PCB SEG.\n")
	write(t, filepath.Join(cfg.Directories.Copybooks, "DLIFUNC.cpy"), "       01  DLI-GU  PIC X(4) VALUE 'GU  '.\n")
	write(t, filepath.Join(cfg.Directories.Assembler, "UPD.asm"),
		"UPD      CSECT\n         CALL  ASMTDLI,(ISRTF,PCB,IO),VL\nISRTF    DC    CL4'ISRT'\n")

	run, err := scanIMS(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.KindIMS, run.Kind)
	assert.Equal(t, map[string]int{"COBOL": 2, "ASM": 1}, run.Files)
	require.Len(t, run.Calls, 2)
	assert.Equal(t, "ASMTDLI", run.Calls[0].Utility)
	assert.Equal(t, "ISRT", run.Calls[0].Function)
	assert.Equal(t, "GU", run.Calls[1].Function)

	out := writeReports(cfg, run)
	assert.Empty(t, out.errs)
	require.Len(t, out.paths, 3)
	assert.Equal(t, "ims_impact_report.xlsx", filepath.Base(out.paths[0]))

	cfg.Directories.COBOL, cfg.Directories.Assembler = "", ""
	_, err = scanIMS(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, shared.ErrConfig)
}
