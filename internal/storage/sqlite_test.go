package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acrajesh/automationaccelerator/internal/ir"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "utilscan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.CreateSchema())
	return db
}

func sampleRun(id, kind string, at time.Time) *ir.Run {
	return &ir.Run{
		ID:        id,
		Kind:      kind,
		StartedAt: at,
		Source:    "/jcl",
		IRVersion: ir.Version,
		Utilities: ir.Utilities{Default: []string{"SORT"}, Custom: []string{"IDCAMS"}},
		Steps: []ir.ExtractedStep{
			{FileName: "B.jcl", StepName: "S2", Line: 4, Program: "SORT", SysinType: ir.SysinInline, StepBlock: "//S2 EXEC PGM=SORT",
				SysinData: "  SORT FIELDS=COPY"},
			{FileName: "A.jcl", StepName: "S1", Line: 2, Program: "IDCAMS", SysinType: ir.SysinControlCard, ControlCardMember: "C1"},
		},
		Calls: []ir.CallSite{{FileName: "P.cbl", FileType: "COBOL", Line: 9, Utility: "SORT", Target: "SORT"}},
		Skips: []ir.Skip{{Path: "/jcl/X.jcl", Reason: "empty file"}},
		Findings: []ir.Finding{
			{ID: "F1", File: "A.jcl", Step: "S1", RuleID: "CNTL-CARD-MISSING", Type: "RISK", Severity: "MEDIUM", Message: "m"},
			{ID: "F2", File: "B.jcl", Step: "S2", RuleID: "SORT-MISSING-SYSIN", Type: "RISK", Severity: "LOW", Message: "m"},
		},
	}
}

func TestSaveAndLoadRun(t *testing.T) {
	db := openTemp(t)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := sampleRun("r1", ir.KindJCL, at)
	require.NoError(t, db.SaveRun(run))

	got, err := db.LoadRun("r1")
	require.NoError(t, err)
	assert.Equal(t, run.Steps, got.Steps)
	assert.Equal(t, run.Utilities, got.Utilities)
	assert.True(t, at.Equal(got.StartedAt))

	// saving again replaces child rows instead of duplicating them
	require.NoError(t, db.SaveRun(run))
	steps, err := db.ListSteps("r1", "")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "IDCAMS", steps[0].Program)
	assert.Equal(t, ir.SysinControlCard, steps[0].SysinType)

	sorts, err := db.ListSteps("r1", "SORT")
	require.NoError(t, err)
	require.Len(t, sorts, 1)

	calls, err := db.ListCalls("r1", "")
	require.NoError(t, err)
	assert.Len(t, calls, 1)
	assert.Equal(t, "  SORT FIELDS=COPY", sorts[0].SysinData)
}

func TestSaveRun_IMSCallFields(t *testing.T) {
	db := openTemp(t)
	run := &ir.Run{ID: "i1", Kind: ir.KindIMS, StartedAt: time.Now(), Files: map[string]int{"COBOL": 1},
		Calls: []ir.CallSite{{FileName: "P.cbl", Path: "x/P.cbl", FileType: "COBOL", Line: 9, Utility: "CBLTDLI",
			Target: "WS-EP", CallType: "Dynamic", Function: "GU", Param: "DLI-GU"}}}
	require.NoError(t, db.SaveRun(run))

	calls, err := db.ListCalls("i1", "CBLTDLI")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, run.Calls[0], calls[0])

	got, err := db.LoadRun("i1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"COBOL": 1}, got.Files)
}

func TestLoadRun_Missing(t *testing.T) {
	db := openTemp(t)
	_, err := db.LoadRun("nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	ok, err := db.HasRun("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListRunsAndLatest(t *testing.T) {
	db := openTemp(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.SaveRun(sampleRun("old", ir.KindJCL, base)))
	require.NoError(t, db.SaveRun(sampleRun("new", ir.KindJCL, base.Add(time.Hour))))
	require.NoError(t, db.SaveRun(sampleRun("cob", ir.KindCOBOL, base.Add(2*time.Hour))))

	all, err := db.ListRuns("", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "cob", all[0].ID)
	assert.Equal(t, 2, all[0].Steps)
	assert.Equal(t, 1, all[0].Calls)
	assert.Equal(t, 1, all[0].Skips)
	assert.Equal(t, 2, all[0].Findings)

	jcl, err := db.ListRuns(ir.KindJCL, 10, 0)
	require.NoError(t, err)
	require.Len(t, jcl, 2)
	assert.Equal(t, "new", jcl[0].ID)

	latest, err := db.LoadLatestRun(ir.KindJCL)
	require.NoError(t, err)
	assert.Equal(t, "new", latest.ID)
}

func TestListFindings_SeverityFloor(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.SaveRun(sampleRun("r1", ir.KindJCL, time.Now())))

	all, err := db.ListFindings("r1", "LOW")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "MEDIUM", all[0].Severity)

	med, err := db.ListFindings("r1", "MEDIUM")
	require.NoError(t, err)
	require.Len(t, med, 1)
	assert.Equal(t, "A.jcl", med[0].File)
}

func TestUsersAndSessions(t *testing.T) {
	db := openTemp(t)
	id, err := db.CreateUser("ops", "hash", "admin")
	require.NoError(t, err)

	u, hash, err := db.GetUserByUsername("ops")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "hash", hash)

	require.NoError(t, db.CreateSession(id, "tok", time.Now().Add(time.Hour)))
	require.NoError(t, db.CreateSession(id, "stale", time.Now().Add(-time.Hour)))

	su, err := db.GetSession("tok")
	require.NoError(t, err)
	assert.Equal(t, "ops", su.Username)

	_, err = db.GetSession("stale")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	n, err := db.PurgeSessions(time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, db.DeleteSession("tok"))
	assert.Error(t, db.DeleteSession("tok"))
	require.NoError(t, db.LogAudit("ops", "logout", "session", nil))
}

func TestWaivers(t *testing.T) {
	db := openTemp(t)
	id, err := db.CreateWaiver(Waiver{RuleID: "SORT-MISSING-SYSIN", File: "B.jcl", Reason: "known", CreatedBy: "ops", ExpiresAt: time.Now().Add(24 * time.Hour)})
	require.NoError(t, err)
	_, err = db.CreateWaiver(Waiver{RuleID: "X", Reason: "old", CreatedBy: "ops", ExpiresAt: time.Now().Add(-time.Hour)})
	require.NoError(t, err)

	active, err := db.ListWaivers(true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "B.jcl", active[0].File)
	assert.Empty(t, active[0].Step)

	require.NoError(t, db.RevokeWaiver(id))
	active, err = db.ListWaivers(true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := db.ListWaivers(false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, id, all[1].ID)
	assert.NotNil(t, all[1].RevokedAt)
	assert.False(t, all[1].ActiveAt(time.Now()))
	assert.Nil(t, all[0].RevokedAt)
	assert.False(t, all[0].ActiveAt(time.Now()))
}
