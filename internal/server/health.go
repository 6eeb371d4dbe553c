package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
)

// storePingTimeout bounds the store check of a readiness request.
const storePingTimeout = 2 * time.Second

// Pinger is implemented by connection stores with a remote backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusUnavailable  = "unavailable"
)

// HealthChecker serves the liveness and readiness endpoints. It starts ready;
// the serve command flips it off before draining connections.
type HealthChecker struct {
	ready     atomic.Bool
	sc        *ServerContext
	startTime time.Time
}

// NewHealthChecker creates a checker over sc. A nil sc skips the shutdown
// and store checks.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{sc: sc, startTime: time.Now()}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness state.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks,omitempty"`
}

// runChecks runs the readiness checks. status is the first failing check's
// value, or ok.
func (h *HealthChecker) runChecks(ctx context.Context) (status string, checks map[string]string) {
	checks = map[string]string{
		"ready":    healthStatusOK,
		"shutdown": healthStatusOK,
		"store":    healthStatusOK,
	}
	status = healthStatusOK
	fail := func(name, value string) {
		checks[name] = value
		if status == healthStatusOK {
			status = value
		}
	}

	if !h.ready.Load() {
		fail("ready", healthStatusNotReady)
	}
	if h.sc != nil && h.sc.IsShutdown() {
		fail("shutdown", healthStatusShuttingDown)
	}
	if err := h.pingStore(ctx); err != nil {
		fail("store", healthStatusUnavailable)
	}
	return status, checks
}

func (h *HealthChecker) pingStore(ctx context.Context) error {
	if h.sc == nil {
		return nil
	}
	p, ok := h.sc.Store().(Pinger)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()
	return p.Ping(ctx)
}

func statusCode(status string) int {
	if status == healthStatusOK {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

// LivenessHandler serves /healthz. It only proves the process answers, so a
// broken store never gets the pod restarted.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler serves /readyz.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, checks := h.runChecks(r.Context())
		resp := HealthResponse{Status: healthStatusOK, Checks: checks}
		if status != healthStatusOK {
			resp.Status = healthStatusNotReady
		}
		writeJSON(w, statusCode(status), resp)
	})
}

// DetailedHealthHandler serves /healthz/detailed with uptime and the
// individual check results.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, checks := h.runChecks(r.Context())
		writeJSON(w, statusCode(status), DetailedHealthResponse{
			Status: status,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
			Checks: checks,
		})
	})
}

// RegisterHealthEndpoints mounts the health endpoints on r.
func (h *HealthChecker) RegisterHealthEndpoints(r *mux.Router) {
	r.Handle("/healthz", h.LivenessHandler()).Methods(http.MethodGet)
	r.Handle("/readyz", h.ReadinessHandler()).Methods(http.MethodGet)
	r.Handle("/healthz/detailed", h.DetailedHealthHandler()).Methods(http.MethodGet)
}
