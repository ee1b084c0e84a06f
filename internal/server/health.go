package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/teemow/meetscribe/internal/api"
)

// Health status constants for health check responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusUnreachable  = "unreachable"
)

// backendProbeTimeout bounds the backend check of the detailed endpoint.
const backendProbeTimeout = 3 * time.Second

// BackendProber checks the transcript backend.
type BackendProber interface {
	BackendHealth(ctx context.Context) (*api.Health, error)
}

// SessionCounter reports the number of open browser sessions.
type SessionCounter interface {
	Count() int
}

// Handler is satisfied by http.ServeMux and chi routers.
type Handler interface {
	Handle(pattern string, handler http.Handler)
}

// HealthChecker provides liveness and readiness endpoints.
type HealthChecker struct {
	// ready indicates whether the server is ready to receive traffic
	ready atomic.Bool
	// serverContext provides access to dependencies for health checks
	serverContext *ServerContext
	// sessions is optional
	sessions SessionCounter
	// startTime tracks when the server started
	startTime time.Time
}

// NewHealthChecker creates a new HealthChecker. sc may be nil in tests.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	// Server starts as ready by default
	h.ready.Store(true)
	return h
}

// SetSessionCounter adds the open session count to the detailed endpoint.
func (h *HealthChecker) SetSessionCounter(c SessionCounter) {
	h.sessions = c
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// isServerShuttingDown checks if the server context is shutting down.
// Returns false if serverContext is nil (safe for testing).
func (h *HealthChecker) isServerShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse provides comprehensive health information.
type DetailedHealthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Backend  string `json:"backend,omitempty"`
	Sessions *int   `json:"sessions,omitempty"`
}

// LivenessHandler returns an HTTP handler for the /healthz endpoint.
// It only reports that the process is serving requests.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealthJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler returns an HTTP handler for the /readyz endpoint.
// The backend is not consulted; an unreachable backend is shown to users
// as an error screen, not as an unready front-end.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks := make(map[string]string)
		allOk := true

		// Check if server is marked as ready
		if !h.ready.Load() {
			checks["ready"] = healthStatusNotReady
			allOk = false
		} else {
			checks["ready"] = healthStatusOK
		}

		// Check if server context is not shutdown
		if h.isServerShuttingDown() {
			checks["shutdown"] = healthStatusShuttingDown
			allOk = false
		} else {
			checks["shutdown"] = healthStatusOK
		}

		response := HealthResponse{Checks: checks}
		if allOk {
			response.Status = healthStatusOK
			writeHealthJSON(w, http.StatusOK, response)
			return
		}
		response.Status = healthStatusNotReady
		writeHealthJSON(w, http.StatusServiceUnavailable, response)
	})
}

// RegisterHealthEndpoints registers health check endpoints on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux Handler) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

// DetailedHealthHandler returns an HTTP handler for the /healthz/detailed
// endpoint. It also probes the backend and reports the session count.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response := DetailedHealthResponse{
			Status: healthStatusOK,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		}

		// Probe the backend with a short timeout
		if h.serverContext != nil {
			ctx, cancel := context.WithTimeout(r.Context(), backendProbeTimeout)
			backend, err := h.serverContext.BackendHealth(ctx)
			cancel()
			if err != nil {
				response.Backend = healthStatusUnreachable
			} else {
				response.Backend = backend.Status
			}
		}
		// Report open browser sessions when a counter is attached
		if h.sessions != nil {
			n := h.sessions.Count()
			response.Sessions = &n
		}

		// Determine overall status
		status := http.StatusOK
		if !h.ready.Load() {
			response.Status = healthStatusNotReady
			status = http.StatusServiceUnavailable
		} else if h.isServerShuttingDown() {
			response.Status = healthStatusShuttingDown
			status = http.StatusServiceUnavailable
		}
		writeHealthJSON(w, status, response)
	})
}

func writeHealthJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
