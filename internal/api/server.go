package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/acrajesh/automationaccelerator/internal/ir"
	"github.com/acrajesh/automationaccelerator/internal/reporting"
	"github.com/acrajesh/automationaccelerator/internal/rules"
	"github.com/acrajesh/automationaccelerator/internal/storage"
)

// Store is the minimal contract the API needs.
type Store interface {
	ListRuns(kind string, limit, offset int) ([]storage.RunRow, error)
	LoadRun(id string) (ir.Run, error)
	LoadLatestRun(kind string) (ir.Run, error)
	ListSteps(runID, program string) ([]ir.ExtractedStep, error)
	ListCalls(runID, utility string) ([]ir.CallSite, error)
	ListFindings(runID, minSeverity string) ([]ir.Finding, error)

	ListWaivers(activeOnly bool) ([]storage.Waiver, error)
	CreateWaiver(w storage.Waiver) (int64, error)
	RevokeWaiver(id int64) error
}

// UserStore is the auth/audit contract the API uses.
type UserStore interface {
	GetUserByUsername(string) (storage.User, string, error)
	CreateSession(int64, string, time.Time) error
	GetSession(string) (storage.User, error)
	DeleteSession(string) error
	LogAudit(username, action, resource string, meta map[string]any) error
}

type Server struct {
	DB              Store
	UserStore       UserStore
	Logger          *slog.Logger
	AllowedOrigins  []string
	SessionDuration time.Duration
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	withCORS := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if o := s.pickCORSOrigin(r); o != "" {
				w.Header().Set("Access-Control-Allow-Origin", o)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS, POST")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			h(w, r)
		}
	}

	mux.HandleFunc("GET /api/v1/health", withCORS(s.handleHealth))

	mux.HandleFunc("POST /api/v1/auth/login", withCORS(s.handleLogin))
	mux.HandleFunc("POST /api/v1/auth/logout", withCORS(withAuth(s, s.handleLogout, "auth:logout")))
	mux.HandleFunc("GET /api/v1/me", withCORS(withAuth(s, s.handleMe, "me")))

	mux.HandleFunc("GET /api/v1/runs", withCORS(s.handleListRuns))
	mux.HandleFunc("GET /api/v1/runs/latest", withCORS(s.handleGetLatest))
	mux.HandleFunc("GET /api/v1/runs/{id}", withCORS(s.handleGetRun))
	mux.HandleFunc("GET /api/v1/runs/{id}/steps", withCORS(s.handleListSteps))
	mux.HandleFunc("GET /api/v1/runs/{id}/calls", withCORS(s.handleListCalls))
	mux.HandleFunc("GET /api/v1/runs/{id}/findings", withCORS(s.handleListFindings))
	mux.HandleFunc("GET /api/v1/runs/{id}/summary", withCORS(s.handleSummary))
	mux.HandleFunc("GET /api/v1/diff", withCORS(s.handleDiff))

	mux.HandleFunc("GET /api/v1/rules", withCORS(s.handleRules))

	mux.HandleFunc("GET /api/v1/waivers", withCORS(withAuth(s, s.handleListWaivers, "waivers:list")))
	mux.HandleFunc("POST /api/v1/waivers", withCORS(withAdmin(s, s.handleCreateWaiver, "waivers:create")))
	mux.HandleFunc("POST /api/v1/waivers/{id}/revoke", withCORS(withAdmin(s, s.handleRevokeWaiver, "waivers:revoke")))

	mux.HandleFunc("/", withCORS(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	return mux
}

func (s *Server) pickCORSOrigin(r *http.Request) string {
	if len(s.AllowedOrigins) == 0 {
		return ""
	}
	origin := r.Header.Get("Origin")
	for _, ao := range s.AllowedOrigins {
		if ao == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(origin, ao) {
			return origin
		}
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := clamp(parseInt(q.Get("limit"), 20), 1, 200)
	offset := max(parseInt(q.Get("offset"), 0), 0)
	kind := strings.ToLower(strings.TrimSpace(q.Get("kind")))

	rows, err := s.DB.ListRuns(kind, limit, offset)
	if err != nil {
		s.dbErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": rows, "limit": limit, "offset": offset, "kind": kind,
	})
}

// GET /api/v1/runs/latest?kind=jcl
func (s *Server) handleGetLatest(w http.ResponseWriter, r *http.Request) {
	run, err := s.DB.LoadLatestRun(strings.ToLower(r.URL.Query().Get("kind")))
	if err != nil {
		s.notFoundOr500(w, err, "no runs")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.DB.LoadRun(r.PathValue("id"))
	if err != nil {
		s.notFoundOr500(w, err, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListSteps(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	program := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("program")))
	items, err := s.DB.ListSteps(id, program)
	if err != nil {
		s.dbErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": id, "program": program, "items": items, "count": len(items)})
}

func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	utility := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("utility")))
	items, err := s.DB.ListCalls(id, utility)
	if err != nil {
		s.dbErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": id, "utility": utility, "items": items, "count": len(items)})
}

func (s *Server) handleListFindings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	minSev := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("min_severity")))
	if minSev == "" {
		minSev = "LOW"
	}
	items, err := s.DB.ListFindings(id, minSev)
	if err != nil {
		s.dbErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": id, "min_severity": minSev, "items": items,
	})
}

// GET /api/v1/runs/{id}/summary: per-utility counts and utilities never found.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	run, err := s.DB.LoadRun(r.PathValue("id"))
	if err != nil {
		s.notFoundOr500(w, err, "run not found")
		return
	}
	sum := reporting.Summarize(&run)
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":          run.ID,
		"kind":            run.Kind,
		"counts":          sum.Counts,
		"missing_default": sum.MissingDefault,
		"missing_custom":  sum.MissingCustom,
		"skips":           len(run.Skips),
	})
}

// GET /api/v1/diff?base=<id>&head=<id>
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	baseID, headID := q.Get("base"), q.Get("head")
	if baseID == "" || headID == "" {
		s.err(w, http.StatusBadRequest, "base and head required")
		return
	}
	base, err := s.DB.LoadRun(baseID)
	if err != nil {
		s.notFoundOr500(w, err, "base run not found")
		return
	}
	head, err := s.DB.LoadRun(headID)
	if err != nil {
		s.notFoundOr500(w, err, "head run not found")
		return
	}
	writeJSON(w, http.StatusOK, reporting.Compare(&base, &head))
}

// GET /api/v1/rules (no auth needed for read-only)
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	type R struct {
		ID              string `json:"id"`
		Summary         string `json:"summary"`
		Type            string `json:"type"`
		DefaultSeverity string `json:"default_severity"`
	}
	var out []R
	for _, rr := range rules.List() {
		out = append(out, R{ID: rr.ID, Summary: rr.Summary, Type: rr.Type, DefaultSeverity: rr.DefaultSeverity})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Server) err(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func (s *Server) dbErr(w http.ResponseWriter, err error) {
	s.logger().Error("db error", "err", err)
	s.err(w, http.StatusInternalServerError, "db error")
}

func (s *Server) notFoundOr500(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, sql.ErrNoRows) {
		s.err(w, http.StatusNotFound, msg)
		return
	}
	s.dbErr(w, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
