package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/acrajesh/automationaccelerator/internal/ir"
)

// ListRuns returns a lightweight list of runs with counts, newest first.
// An empty kind lists every kind.
func (db *DB) ListRuns(kind string, limit, offset int) ([]RunRow, error) {
	const q = `
		SELECT r.id, r.kind, r.started_at, r.source, r.ir_version, r.skips,
		       (SELECT COUNT(1) FROM steps s WHERE s.run_id = r.id) AS steps,
		       (SELECT COUNT(1) FROM calls c WHERE c.run_id = r.id) AS calls,
		       (SELECT COUNT(1) FROM findings f WHERE f.run_id = r.id) AS findings
		  FROM runs r
		 WHERE (? = '' OR r.kind = ?)
		 ORDER BY r.started_at DESC, r.id DESC
		 LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(q, kind, kind, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var rr RunRow
		var startedAt string
		if err := rows.Scan(&rr.ID, &rr.Kind, &startedAt, &rr.Source, &rr.IRVersion, &rr.Skips, &rr.Steps, &rr.Calls, &rr.Findings); err != nil {
			return nil, err
		}
		rr.StartedAt = parseTime(startedAt)
		out = append(out, rr)
	}
	return out, rows.Err()
}

// ListSteps returns a run's extracted steps, optionally for one program.
func (db *DB) ListSteps(runID, program string) ([]ir.ExtractedStep, error) {
	const q = `
		SELECT file_name, path, file_type, step_name, line, program, resolved_from, sysin_type,
		       sysin_stmt, sysin_data, cntl_member, cntl_content, step_block, comments
		  FROM steps
		 WHERE run_id = ? AND (? = '' OR program = ?)
		 ORDER BY program, CASE path WHEN '' THEN file_name ELSE path END, line`
	rows, err := db.conn.Query(q, runID, program, program)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ir.ExtractedStep
	for rows.Next() {
		var s ir.ExtractedStep
		var sysin string
		if err := rows.Scan(&s.FileName, &s.Path, &s.FileType, &s.StepName, &s.Line, &s.Program, &s.ResolvedFrom, &sysin,
			&s.SysinStatement, &s.SysinData, &s.ControlCardMember, &s.ControlCardContent, &s.StepBlock, &s.Comments); err != nil {
			return nil, err
		}
		s.SysinType = ir.SysinType(sysin)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListCalls returns a run's COBOL/ASM/IMS call sites, optionally for one utility.
func (db *DB) ListCalls(runID, utility string) ([]ir.CallSite, error) {
	const q = `
		SELECT file_name, path, file_type, module, line, utility, target, snippet, comments,
		       call_type, function, param
		  FROM calls
		 WHERE run_id = ? AND (? = '' OR utility = ?)
		 ORDER BY utility, CASE path WHEN '' THEN file_name ELSE path END, line`
	rows, err := db.conn.Query(q, runID, utility, utility)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ir.CallSite
	for rows.Next() {
		var c ir.CallSite
		if err := rows.Scan(&c.FileName, &c.Path, &c.FileType, &c.Module, &c.Line, &c.Utility, &c.Target, &c.Snippet, &c.Comments,
			&c.CallType, &c.Function, &c.Param); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListFindings returns findings for a run at or above a minimum severity.
func (db *DB) ListFindings(runID, minSeverity string) ([]ir.Finding, error) {
	const q = `
		SELECT id, file, step, rule_id, type, severity, message, evidence
		  FROM findings
		 WHERE run_id = ?
		   AND (CASE severity WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END)
		       >= (CASE ? WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END)
		 ORDER BY
		       (CASE severity WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END) DESC,
		       rule_id, file, step, id`
	rows, err := db.conn.Query(q, runID, minSeverity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ir.Finding
	for rows.Next() {
		var f ir.Finding
		if err := rows.Scan(&f.ID, &f.File, &f.Step, &f.RuleID, &f.Type, &f.Severity, &f.Message, &f.Evidence); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (db *DB) HasRun(id string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`SELECT 1 FROM runs WHERE id = ? LIMIT 1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// tsLayout is fixed-width so stored timestamps compare correctly as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// parseTime reads RFC3339Nano, falling back to RFC3339; anything else is zero.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}
