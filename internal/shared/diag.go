package shared

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Diagnostics receives skipped files and steps. Implementations must be safe
// for concurrent use by scan workers.
type Diagnostics interface {
	Skip(path, reason string)
}

// SkipLog appends "<timestamp> - <path>: <reason>" lines to a file.
// Write failures are reported through slog and otherwise ignored.
type SkipLog struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewSkipLog(path string) *SkipLog {
	return &SkipLog{path: path, now: time.Now}
}

func (l *SkipLog) Path() string { return l.path }

func (l *SkipLog) Skip(path, reason string) {
	slog.Warn("skipped", "path", path, "reason", reason)
	if l == nil || l.path == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		slog.Debug("skip log unavailable", "err", err)
		return
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		slog.Debug("skip log unavailable", "err", err)
		return
	}
	defer f.Close()
	_, _ = fmt.Fprintf(f, "%s - %s: %s\n", l.now().Format("2006-01-02 15:04:05"), path, reason)
}

// MemDiagnostics collects skips in memory.
type MemDiagnostics struct {
	mu    sync.Mutex
	items []string
}

func (m *MemDiagnostics) Skip(path, reason string) {
	m.mu.Lock()
	m.items = append(m.items, path+": "+reason)
	m.mu.Unlock()
}

func (m *MemDiagnostics) Items() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.items...)
}
