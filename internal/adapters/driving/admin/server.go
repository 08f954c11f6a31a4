// Package admin exposes a small authenticated HTTP API for triggering
// and observing sync runs. It is a driving adapter: handlers translate
// HTTP requests into driving-port calls and core results into JSON.
package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/kbsync/internal/core/domain"
	"github.com/custodia-labs/kbsync/internal/core/ports/driving"
	"github.com/custodia-labs/kbsync/internal/logger"
)

// Config holds admin server settings.
type Config struct {
	// Addr is the listen address, e.g. ":8787".
	Addr string

	// Token is the bearer token required on every request. When empty
	// the API answers 503 rather than running unauthenticated.
	Token string
}

// Server serves the admin API.
type Server struct {
	httpServer *http.Server
	token      string
	syncOrch   driving.SyncOrchestrator
}

// NewServer creates an admin server. The server is not listening until
// Start is called.
func NewServer(cfg Config, syncOrch driving.SyncOrchestrator) *Server {
	s := &Server{
		token:    cfg.Token,
		syncOrch: syncOrch,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sync", s.handleSync)
	mux.HandleFunc("GET /v1/status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the underlying handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens and serves until Shutdown is called.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// syncResponse is the JSON body for trigger and status responses.
type syncResponse struct {
	OK         bool        `json:"ok"`
	InProgress bool        `json:"inProgress,omitempty"`
	Error      string      `json:"error,omitempty"`
	Summary    *runSummary `json:"summary,omitempty"`
	Status     *statusBody `json:"status,omitempty"`
}

type runSummary struct {
	RunID     string    `json:"runId"`
	Processed int       `json:"processed"`
	Uploaded  int       `json:"uploaded"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	StartedAt time.Time `json:"startedAt"`
	EndedAt   time.Time `json:"endedAt"`
}

type statusBody struct {
	Running   bool      `json:"running"`
	RunID     string    `json:"runId,omitempty"`
	Processed int       `json:"processed"`
	Uploaded  int       `json:"uploaded"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	StartedAt time.Time `json:"startedAt,omitzero"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if !s.authorise(w, r) {
		return
	}

	summary, err := s.syncOrch.SyncAll(r.Context())
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		// A run is already in flight. The trigger is acknowledged, not
		// queued: the running pass will pick up the same changes.
		writeJSON(w, http.StatusOK, syncResponse{OK: true, InProgress: true})
	case err != nil:
		logger.Warn("admin: sync trigger failed: %v", err)
		resp := syncResponse{OK: false, Error: err.Error()}
		if summary != nil {
			resp.Summary = newRunSummary(summary)
		}
		writeJSON(w, http.StatusInternalServerError, resp)
	default:
		writeJSON(w, http.StatusOK, syncResponse{OK: true, Summary: newRunSummary(summary)})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.authorise(w, r) {
		return
	}

	status, err := s.syncOrch.Status(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, syncResponse{OK: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{OK: true, Status: &statusBody{
		Running:   status.Running,
		RunID:     status.RunID,
		Processed: status.Processed,
		Uploaded:  status.Uploaded,
		Skipped:   status.Skipped,
		Failed:    status.Failed,
		StartedAt: status.StartedAt,
	}})
}

// authorise enforces bearer-token auth. With no token configured the
// API refuses service entirely rather than running open.
func (s *Server) authorise(w http.ResponseWriter, r *http.Request) bool {
	if s.token == "" {
		writeJSON(w, http.StatusServiceUnavailable,
			syncResponse{OK: false, Error: "admin token not configured"})
		return false
	}

	presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(s.token)) != 1 {
		writeJSON(w, http.StatusUnauthorized,
			syncResponse{OK: false, Error: "invalid or missing bearer token"})
		return false
	}
	return true
}

func newRunSummary(summary *domain.RunSummary) *runSummary {
	return &runSummary{
		RunID:     summary.RunID,
		Processed: summary.Processed,
		Uploaded:  summary.Uploaded,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
		StartedAt: summary.StartedAt,
		EndedAt:   summary.EndedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("admin: failed to encode response: %v", err)
	}
}
