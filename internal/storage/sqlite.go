package storage

import (
	"database/sql"
	"encoding/json"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/acrajesh/automationaccelerator/internal/ir"
)

// DB is the concrete storage backed by SQLite.
type DB struct {
	conn *sql.DB
}

// OpenSQLite opens (and creates if missing) a SQLite DB at path.
func OpenSQLite(path string) (*DB, error) {
	// Pragmas via DSN keep it portable with the modernc driver.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{conn: c}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// CreateSchema ensures tables exist.
func (db *DB) CreateSchema() error {
	_, err := db.conn.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id         TEXT PRIMARY KEY,
  kind       TEXT NOT NULL,     -- jcl|cobol|asm|ims
  started_at TEXT,              -- RFC3339Nano
  source     TEXT,
  ir_version TEXT,
  skips      INTEGER NOT NULL DEFAULT 0,
  run_json   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, started_at);

CREATE TABLE IF NOT EXISTS steps (
  run_id         TEXT NOT NULL,
  seq            INTEGER NOT NULL,
  file_name      TEXT,
  path           TEXT NOT NULL DEFAULT '',
  file_type      TEXT,
  step_name      TEXT,
  line           INTEGER,
  program        TEXT,
  resolved_from  TEXT,
  sysin_type     TEXT,
  sysin_stmt     TEXT,
  sysin_data     TEXT NOT NULL DEFAULT '',
  cntl_member    TEXT,
  cntl_content   TEXT,
  step_block     TEXT,
  comments       TEXT,
  PRIMARY KEY (run_id, seq),
  FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_steps_program ON steps(run_id, program);

CREATE TABLE IF NOT EXISTS calls (
  run_id    TEXT NOT NULL,
  seq       INTEGER NOT NULL,
  file_name TEXT,
  path      TEXT NOT NULL DEFAULT '',
  file_type TEXT,
  module    TEXT,
  line      INTEGER,
  utility   TEXT,
  target    TEXT,
  snippet   TEXT,
  comments  TEXT,
  call_type TEXT NOT NULL DEFAULT '',
  function  TEXT NOT NULL DEFAULT '',
  param     TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (run_id, seq),
  FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_calls_utility ON calls(run_id, utility);

CREATE TABLE IF NOT EXISTS findings (
  id        TEXT,
  run_id    TEXT NOT NULL,
  file      TEXT,
  step      TEXT,
  rule_id   TEXT,
  type      TEXT,
  severity  TEXT,
  message   TEXT,
  evidence  TEXT,
  PRIMARY KEY (id, run_id),
  FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
CREATE INDEX IF NOT EXISTS idx_findings_rule ON findings(rule_id);

CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  username TEXT UNIQUE NOT NULL,
  pass_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'viewer',
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
  token TEXT PRIMARY KEY,
  user_id INTEGER NOT NULL,
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL,
  FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS audit (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts TEXT NOT NULL,
  username TEXT,
  action TEXT NOT NULL,
  resource TEXT,
  meta_json TEXT
);

CREATE TABLE IF NOT EXISTS waivers (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  rule_id     TEXT NOT NULL,
  file        TEXT,              -- optional exact match; NULL = any
  step        TEXT,              -- optional exact match; NULL = any
  pattern_sub TEXT,              -- optional substring to match evidence/message
  reason      TEXT NOT NULL,
  expires_at  TEXT NOT NULL,     -- RFC3339Nano
  created_by  TEXT NOT NULL,
  created_at  TEXT NOT NULL,
  revoked_at  TEXT               -- NULL = active
);
`)
	return err
}

// SaveRun upserts a run JSON and rewrites its steps, calls and findings.
func (db *DB) SaveRun(run *ir.Run) error {
	b, err := json.Marshal(run)
	if err != nil {
		return err
	}
	ts := run.StartedAt.UTC().Format(tsLayout)

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO runs (id, kind, started_at, source, ir_version, skips, run_json)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET kind=excluded.kind, started_at=excluded.started_at, source=excluded.source,
           ir_version=excluded.ir_version, skips=excluded.skips, run_json=excluded.run_json`,
		run.ID, run.Kind, ts, run.Source, run.IRVersion, len(run.Skips), string(b),
	); err != nil {
		return err
	}
	for _, tbl := range []string{"steps", "calls", "findings"} {
		if _, err := tx.Exec(`DELETE FROM `+tbl+` WHERE run_id = ?`, run.ID); err != nil {
			return err
		}
	}

	if len(run.Steps) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO steps
			(run_id, seq, file_name, path, file_type, step_name, line, program, resolved_from,
			 sysin_type, sysin_stmt, sysin_data, cntl_member, cntl_content, step_block, comments)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, s := range run.Steps {
			if _, err := stmt.Exec(run.ID, i, s.FileName, s.Path, s.FileType, s.StepName, s.Line, s.Program, s.ResolvedFrom,
				string(s.SysinType), s.SysinStatement, s.SysinData, s.ControlCardMember, s.ControlCardContent, s.StepBlock, s.Comments); err != nil {
				return err
			}
		}
	}

	if len(run.Calls) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO calls
			(run_id, seq, file_name, path, file_type, module, line, utility, target, snippet, comments,
			 call_type, function, param)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, c := range run.Calls {
			if _, err := stmt.Exec(run.ID, i, c.FileName, c.Path, c.FileType, c.Module, c.Line, c.Utility, c.Target, c.Snippet, c.Comments,
				c.CallType, c.Function, c.Param); err != nil {
				return err
			}
		}
	}

	if len(run.Findings) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO findings
			(id, run_id, file, step, rule_id, type, severity, message, evidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, f := range run.Findings {
			if _, err := stmt.Exec(f.ID, run.ID, f.File, f.Step, f.RuleID, f.Type, f.Severity, f.Message, f.Evidence); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadRun returns the full run (from stored JSON). A missing run is sql.ErrNoRows.
func (db *DB) LoadRun(id string) (ir.Run, error) {
	var s string
	if err := db.conn.QueryRow(`SELECT run_json FROM runs WHERE id = ?`, id).Scan(&s); err != nil {
		return ir.Run{}, err
	}
	var run ir.Run
	if err := json.Unmarshal([]byte(s), &run); err != nil {
		return ir.Run{}, err
	}
	return run, nil
}

// LoadLatestRun returns the most recent run of kind, or of any kind if kind is empty.
func (db *DB) LoadLatestRun(kind string) (ir.Run, error) {
	var id string
	err := db.conn.QueryRow(`
		SELECT id FROM runs
		 WHERE (? = '' OR kind = ?)
		 ORDER BY started_at DESC, id DESC
		 LIMIT 1`, kind, kind).Scan(&id)
	if err != nil {
		return ir.Run{}, err
	}
	return db.LoadRun(id)
}
