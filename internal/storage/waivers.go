package storage

import (
	"database/sql"
	"time"
)

// Waiver suppresses findings of one rule, optionally narrowed to a file, a
// step, or a substring of the evidence or message.
type Waiver struct {
	ID         int64      `json:"id"`
	RuleID     string     `json:"rule_id"`
	File       string     `json:"file,omitempty"`
	Step       string     `json:"step,omitempty"`
	PatternSub string     `json:"pattern_sub,omitempty"`
	Reason     string     `json:"reason"`
	ExpiresAt  time.Time  `json:"expires_at"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
}

// ActiveAt reports whether w is neither revoked nor expired at t.
func (w Waiver) ActiveAt(t time.Time) bool {
	return w.RevokedAt == nil && w.ExpiresAt.After(t)
}

func (db *DB) CreateWaiver(w Waiver) (int64, error) {
	now := time.Now().UTC().Format(tsLayout)
	res, err := db.conn.Exec(`
INSERT INTO waivers(rule_id, file, step, pattern_sub, reason, expires_at, created_by, created_at)
VALUES(?,?,?,?,?,?,?,?)`,
		w.RuleID, nz(w.File), nz(w.Step), nz(w.PatternSub), w.Reason,
		w.ExpiresAt.UTC().Format(tsLayout), w.CreatedBy, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RevokeWaiver marks a waiver revoked; the revoker goes to the audit table.
func (db *DB) RevokeWaiver(id int64) error {
	return execOne(db.conn, `UPDATE waivers SET revoked_at=? WHERE id=? AND revoked_at IS NULL`,
		time.Now().UTC().Format(tsLayout), id)
}

func (db *DB) ListWaivers(activeOnly bool) ([]Waiver, error) {
	q := `
SELECT id, rule_id, COALESCE(file,''), COALESCE(step,''), COALESCE(pattern_sub,''),
       reason, expires_at, created_by, created_at, revoked_at
FROM waivers`
	args := []any{}
	if activeOnly {
		q += ` WHERE (revoked_at IS NULL) AND (expires_at > ?)`
		args = append(args, time.Now().UTC().Format(tsLayout))
	}
	q += ` ORDER BY id DESC`
	rows, err := db.conn.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Waiver
	for rows.Next() {
		var (
			w           Waiver
			exp, ca, ra sql.NullString
		)
		if err := rows.Scan(&w.ID, &w.RuleID, &w.File, &w.Step, &w.PatternSub, &w.Reason, &exp, &w.CreatedBy, &ca, &ra); err != nil {
			return nil, err
		}
		w.ExpiresAt = parseTime(exp.String)
		w.CreatedAt = parseTime(ca.String)
		if ra.Valid {
			t := parseTime(ra.String)
			w.RevokedAt = &t
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func nz(s string) any {
	if s == "" {
		return nil
	}
	return s
}
