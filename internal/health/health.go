// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package health serves liveness and readiness for the control API.
//
// Liveness always answers 200 while the process runs. Readiness runs every
// registered checker concurrently and answers 503 while any of them reports
// StatusUnhealthy; degraded components are listed but keep the daemon ready.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/jellyplay/internal/log"
	"golang.org/x/sync/errgroup"
)

// Status orders from best to worst.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) rank() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// CheckResult is one component's answer.
type CheckResult struct {
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"durationMs"`
}

type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker probes one component. Check must honor ctx.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Manager aggregates checkers. Register everything before serving.
type Manager struct {
	version  string
	checkers []Checker
}

func NewManager(version string) *Manager {
	return &Manager{version: version}
}

func (m *Manager) RegisterChecker(c Checker) {
	m.checkers = append(m.checkers, c)
}

func (m *Manager) runChecks(ctx context.Context) (map[string]CheckResult, Status) {
	var (
		mu      sync.Mutex
		checks  = make(map[string]CheckResult, len(m.checkers))
		overall = StatusHealthy
	)
	var g errgroup.Group
	for _, c := range m.checkers {
		g.Go(func() error {
			start := time.Now()
			res := c.Check(ctx)
			res.DurationMS = time.Since(start).Milliseconds()

			mu.Lock()
			defer mu.Unlock()
			checks[c.Name()] = res
			if res.Status.rank() > overall.rank() {
				overall = res.Status
			}
			return nil
		})
	}
	_ = g.Wait()
	return checks, overall
}

// Health is the liveness view. Component checks only run when verbose.
func (m *Manager) Health(ctx context.Context, verbose bool) HealthResponse {
	resp := HealthResponse{Status: StatusHealthy, Version: m.version, Timestamp: time.Now()}
	if verbose && len(m.checkers) > 0 {
		resp.Checks, resp.Status = m.runChecks(ctx)
	}
	return resp
}

// Ready is the readiness view.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{Ready: true, Status: StatusHealthy, Timestamp: time.Now()}
	if len(m.checkers) == 0 {
		return resp
	}
	resp.Checks, resp.Status = m.runChecks(ctx)
	resp.Ready = resp.Status != StatusUnhealthy
	return resp
}

// ServeHealth answers /healthz. ?verbose=true includes component checks.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	resp := m.Health(r.Context(), r.URL.Query().Get("verbose") == "true")
	writeJSON(w, r, http.StatusOK, resp)
}

// ServeReady answers /readyz.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, resp)

	logger := log.WithComponentFromContext(r.Context(), "health")
	logger.Debug().
		Str(log.FieldEvent, "health.readiness").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness checked")
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "health")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "health.encode_error").
			Msg("failed to encode health response")
	}
}
