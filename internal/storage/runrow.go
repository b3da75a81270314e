package storage

import "time"

// RunRow is a lightweight listing row for /runs.
type RunRow struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	StartedAt time.Time `json:"started_at"`
	Source    string    `json:"source,omitempty"`
	IRVersion string    `json:"ir_version,omitempty"`
	Steps     int       `json:"steps"`
	Calls     int       `json:"calls"`
	Skips     int       `json:"skips"`
	Findings  int       `json:"findings"`
}
