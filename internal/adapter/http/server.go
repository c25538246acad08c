// Package http exposes the operator API plus health, readiness, and
// metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/hurricane-panel/internal/build"
	"github.com/couchcryptid/hurricane-panel/internal/colconfig"
	"github.com/couchcryptid/hurricane-panel/internal/frame"
	"github.com/couchcryptid/hurricane-panel/internal/rebuild"
)

// defaultPageSize bounds /api/master responses.
const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// ColumnStore is the column configuration surface the API mutates.
type ColumnStore interface {
	Snapshot() ([]colconfig.Entry, error)
	SetInclude(dataset, column string, include bool) error
	SetRename(dataset, column, rename string) error
	Delete(dataset, column string) error
	Reset() error
}

// Controller triggers rebuilds and reports the loop state.
type Controller interface {
	RebuildNow()
	State() rebuild.State
	LastError() error
}

// MasterSource serves the current master dataset, readiness, and column
// rescans.
type MasterSource interface {
	Master() (*frame.Table, bool)
	LastBuild() (build.Report, bool)
	CheckReadiness(ctx context.Context) error
	Rescan(ctx context.Context) (int, error)
}

// Server exposes the operator API over HTTP.
type Server struct {
	httpServer *http.Server
	store      ColumnStore
	controller Controller
	master     MasterSource
	logger     *slog.Logger
}

// NewServer creates the HTTP server and wires all routes.
func NewServer(addr string, store ColumnStore, controller Controller, master MasterSource, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:      store,
		controller: controller,
		master:     master,
		logger:     logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/columns", s.handleColumns)
	mux.HandleFunc("POST /api/columns/include", s.handleInclude)
	mux.HandleFunc("POST /api/columns/rename", s.handleRename)
	mux.HandleFunc("POST /api/columns/delete", s.handleDelete)
	mux.HandleFunc("POST /api/columns/reset", s.handleReset)
	mux.HandleFunc("POST /api/scan", s.handleScan)
	mux.HandleFunc("POST /api/rebuild", s.handleRebuild)
	mux.HandleFunc("GET /api/master", s.handleMaster)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.master.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleColumns(w http.ResponseWriter, _ *http.Request) {
	entries, err := s.store.Snapshot()
	if err != nil {
		s.serverError(w, "snapshot failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": entries})
}

// columnRequest addresses one configuration entry.
type columnRequest struct {
	Dataset string `json:"dataset"`
	Column  string `json:"column"`
	Include bool   `json:"include"`
	Rename  string `json:"rename"`
}

func (s *Server) handleInclude(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeColumnRequest(w, r)
	if !ok {
		return
	}
	s.mutateColumn(w, req, s.store.SetInclude(req.Dataset, req.Column, req.Include))
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeColumnRequest(w, r)
	if !ok {
		return
	}
	s.mutateColumn(w, req, s.store.SetRename(req.Dataset, req.Column, req.Rename))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeColumnRequest(w, r)
	if !ok {
		return
	}
	s.mutateColumn(w, req, s.store.Delete(req.Dataset, req.Column))
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	if err := s.store.Reset(); err != nil {
		s.serverError(w, "reset failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	added, err := s.master.Rescan(r.Context())
	if err != nil {
		s.serverError(w, "scan failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "scanned", "columns_added": added})
}

func (s *Server) handleRebuild(w http.ResponseWriter, _ *http.Request) {
	s.controller.RebuildNow()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "rebuild requested"})
}

func (s *Server) handleMaster(w http.ResponseWriter, r *http.Request) {
	master, ok := s.master.Master()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no master dataset built yet"})
		return
	}

	limit := queryInt(r, "limit", defaultPageSize)
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	total := master.NumRows()
	end := offset + limit
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}

	rows := make([][]string, 0, end-offset)
	for i := offset; i < end; i++ {
		vals := master.Row(i)
		rendered := make([]string, len(vals))
		for j, v := range vals {
			rendered[j] = v.Render()
		}
		rows = append(rows, rendered)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"columns":    master.Columns(),
		"rows":       rows,
		"total_rows": total,
		"offset":     offset,
		"limit":      limit,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"state": s.controller.State().String(),
	}
	if err := s.controller.LastError(); err != nil {
		status["last_error"] = err.Error()
	}
	if report, ok := s.master.LastBuild(); ok {
		status["last_build"] = report
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) decodeColumnRequest(w http.ResponseWriter, r *http.Request) (columnRequest, bool) {
	var req columnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return req, false
	}
	if req.Dataset == "" || req.Column == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "dataset and column are required"})
		return req, false
	}
	return req, true
}

func (s *Server) mutateColumn(w http.ResponseWriter, req columnRequest, err error) {
	switch {
	case errors.Is(err, colconfig.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "unknown column " + req.Dataset + "/" + req.Column,
		})
	case err != nil:
		s.serverError(w, "column mutation failed", err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
