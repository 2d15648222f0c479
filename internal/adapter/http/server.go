// Package http exposes the operational endpoints (health, readiness,
// metrics) and the replay session REST API.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/hazard-replay/internal/catalog"
	"github.com/couchcryptid/hazard-replay/internal/domain"
	"github.com/couchcryptid/hazard-replay/internal/replay"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// SessionEngine is the slice of the replay engine the API drives.
type SessionEngine interface {
	Start(cfg replay.SessionConfig) bool
	Stop()
	SetTime(ts time.Time)
	IsActive() bool
	ActiveSessionID() string
}

// SequenceStore is the catalog surface the API reads sequences from.
type SequenceStore interface {
	Events(sequenceID string) ([]domain.Event, bool)
	List() []catalog.Info
}

// Defaults carries the service-level session defaults applied when a
// start request leaves the matching field unset.
type Defaults struct {
	PropagationSpeedKmH float64
}

// Server exposes health, readiness, metrics, and session control routes.
type Server struct {
	httpServer *http.Server
	engine     SessionEngine
	store      SequenceStore
	defaults   Defaults
	logger     *slog.Logger
}

// NewServer wires all HTTP routes. wsHandler serves the websocket render
// stream; pass nil to skip mounting it (tests).
func NewServer(addr string, engine SessionEngine, store SequenceStore,
	ready ReadinessChecker, wsHandler http.HandlerFunc, defaults Defaults,
	logger *slog.Logger) *Server {

	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		engine:   engine,
		store:    store,
		defaults: defaults,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /sequences", s.handleListSequences)
	mux.HandleFunc("POST /sessions", s.handleStartSession)
	mux.HandleFunc("GET /sessions/active", s.handleSessionStatus)
	mux.HandleFunc("DELETE /sessions/active", s.handleStopSession)
	mux.HandleFunc("PUT /sessions/active/time", s.handleSetTime)

	if wsHandler != nil {
		mux.HandleFunc("GET /ws", wsHandler)
	}

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

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleListSequences(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sequences": s.store.List(),
	})
}

// startSessionRequest is the POST /sessions body. Omitted fields fall back
// to engine defaults.
type startSessionRequest struct {
	SequenceID          string                 `json:"sequence_id"`
	SessionID           string                 `json:"session_id,omitempty"`
	Label               string                 `json:"label,omitempty"`
	Mode                string                 `json:"mode"`
	TimeField           string                 `json:"time_field,omitempty"`
	Granularity         string                 `json:"granularity,omitempty"`
	Window              string                 `json:"window,omitempty"`
	Renderer            string                 `json:"renderer,omitempty"`
	RendererOptions     map[string]interface{} `json:"renderer_options,omitempty"`
	UseFade             bool                   `json:"use_fade,omitempty"`
	MainshockID         string                 `json:"mainshock_id,omitempty"`
	PropagationSpeedKmH float64                `json:"propagation_speed_kmh,omitempty"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse request: %w", err))
		return
	}
	if req.SequenceID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("sequence_id is required"))
		return
	}

	mode, err := replay.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var window time.Duration
	if req.Window != "" {
		window, err = time.ParseDuration(req.Window)
		if err != nil || window <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid window %q", req.Window))
			return
		}
	}

	events, ok := s.store.Events(req.SequenceID)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown sequence %q", req.SequenceID))
		return
	}

	cfg := replay.SessionConfig{
		ID:                  req.SessionID,
		Label:               req.Label,
		Mode:                mode,
		TimeField:           req.TimeField,
		Granularity:         replay.Granularity(req.Granularity),
		Window:              window,
		RendererName:        req.Renderer,
		RendererOptions:     req.RendererOptions,
		UseFade:             req.UseFade,
		Events:              events,
		PropagationSpeedKmH: req.PropagationSpeedKmH,
	}
	if cfg.ID == "" {
		cfg.ID = req.SequenceID
	}
	if cfg.PropagationSpeedKmH <= 0 {
		cfg.PropagationSpeedKmH = s.defaults.PropagationSpeedKmH
	}
	if cfg.Granularity == "" {
		cfg.Granularity = replay.GranularityDaily
	}
	if req.MainshockID != "" {
		found := false
		for i := range events {
			if events[i].ID == req.MainshockID {
				cfg.Mainshock = &events[i]
				found = true
				break
			}
		}
		if !found {
			writeError(w, http.StatusUnprocessableEntity,
				fmt.Errorf("mainshock %q not in sequence %q", req.MainshockID, req.SequenceID))
			return
		}
	}

	if !s.engine.Start(cfg) {
		writeError(w, http.StatusUnprocessableEntity,
			fmt.Errorf("sequence %q cannot start a %s session", req.SequenceID, mode))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": cfg.ID,
		"mode":       string(mode),
		"events":     len(events),
	})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, _ *http.Request) {
	if !s.engine.IsActive() {
		writeJSON(w, http.StatusOK, map[string]interface{}{"active": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active":     true,
		"session_id": s.engine.ActiveSessionID(),
	})
}

func (s *Server) handleStopSession(w http.ResponseWriter, _ *http.Request) {
	if !s.engine.IsActive() {
		writeError(w, http.StatusNotFound, fmt.Errorf("no active session"))
		return
	}
	s.engine.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetTime(w http.ResponseWriter, r *http.Request) {
	if !s.engine.IsActive() {
		writeError(w, http.StatusNotFound, fmt.Errorf("no active session"))
		return
	}

	var req struct {
		Timestamp string `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse request: %w", err))
		return
	}
	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid timestamp %q", req.Timestamp))
		return
	}

	s.engine.SetTime(ts)
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort health response
}
