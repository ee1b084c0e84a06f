package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetscribe/internal/api"
)

type fixedCounter int

func (c fixedCounter) Count() int { return int(c) }

func newBackedContext(t *testing.T, healthy bool) *ServerContext {
	t.Helper()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"status": "healthy", "timestamp": "2024-03-01T10:00:00"}`)
	}))
	t.Cleanup(backend.Close)

	client, err := api.NewClient(backend.URL + "/api")
	require.NoError(t, err)
	sc, err := NewServerContext(context.Background(), client)
	require.NoError(t, err)
	return sc
}

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil)
	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealthChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		shutdown   bool
		wantStatus int
	}{
		{name: "ready", ready: true, wantStatus: http.StatusOK},
		{name: "not ready", ready: false, wantStatus: http.StatusServiceUnavailable},
		{name: "shutting down", ready: true, shutdown: true, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newBackedContext(t, true)
			h := NewHealthChecker(sc)
			h.SetReady(tt.ready)
			if tt.shutdown {
				require.NoError(t, sc.Shutdown())
			}

			rec := httptest.NewRecorder()
			h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestHealthChecker_Detailed(t *testing.T) {
	tests := []struct {
		name        string
		healthy     bool
		wantBackend string
	}{
		{name: "backend healthy", healthy: true, wantBackend: "healthy"},
		{name: "backend down", healthy: false, wantBackend: "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(newBackedContext(t, tt.healthy))
			h.SetSessionCounter(fixedCounter(3))

			mux := http.NewServeMux()
			h.RegisterHealthEndpoints(mux)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var resp DetailedHealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "ok", resp.Status)
			assert.Equal(t, tt.wantBackend, resp.Backend)
			require.NotNil(t, resp.Sessions)
			assert.Equal(t, 3, *resp.Sessions)
		})
	}
}

func TestServerContext_Shutdown(t *testing.T) {
	sc := newBackedContext(t, true)
	assert.False(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())
	assert.Error(t, sc.Shutdown(), "second shutdown is rejected")

	_, err := NewServerContext(context.Background(), nil)
	assert.Error(t, err)
}
