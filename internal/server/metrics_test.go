package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/meetscribe/internal/instrumentation"
)

func newProvider(t *testing.T, cfg instrumentation.Config) *instrumentation.Provider {
	t.Helper()
	cfg.ServiceName = "meetscribe-test"
	cfg.ServiceVersion = "1.0.0"
	if cfg.TracingExporter == "" {
		cfg.TracingExporter = instrumentation.ExporterNone
	}
	provider, err := instrumentation.NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider
}

func TestNewMetricsServer(t *testing.T) {
	prom := newProvider(t, instrumentation.Config{Enabled: true, MetricsExporter: instrumentation.ExporterPrometheus})
	stdout := newProvider(t, instrumentation.Config{Enabled: true, MetricsExporter: instrumentation.ExporterStdout})
	disabled := newProvider(t, instrumentation.Config{Enabled: false})

	tests := []struct {
		name     string
		config   MetricsServerConfig
		wantErr  string
		wantAddr string
	}{
		{name: "prometheus", config: MetricsServerConfig{Addr: ":9091", InstrumentationProvider: prom}, wantAddr: ":9091"},
		{name: "default addr", config: MetricsServerConfig{InstrumentationProvider: prom}, wantAddr: DefaultMetricsAddr},
		{name: "nil provider", config: MetricsServerConfig{}, wantErr: "instrumentation provider is required"},
		{name: "stdout exporter", config: MetricsServerConfig{InstrumentationProvider: stdout}, wantErr: "requires the prometheus exporter"},
		{name: "disabled provider", config: MetricsServerConfig{InstrumentationProvider: disabled}, wantErr: "not enabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, err := NewMetricsServer(tt.config)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, srv.Addr())
		})
	}
}

func TestMetricsServer_ServesRecordedMetrics(t *testing.T) {
	provider := newProvider(t, instrumentation.Config{Enabled: true, MetricsExporter: instrumentation.ExporterPrometheus})
	provider.Metrics().RecordAPIRequest(context.Background(), instrumentation.EndpointListMeetings, instrumentation.StatusSuccess, 20*time.Millisecond)

	srv, err := NewMetricsServer(MetricsServerConfig{Addr: "127.0.0.1:0", InstrumentationProvider: provider})
	require.NoError(t, err)

	ready := make(chan struct{})
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.StartWithReadySignal(ready); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ready:
	case err := <-serverErr:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not become ready")
	}
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr())

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "api_requests_total")
	assert.Contains(t, string(body), `endpoint="list_meetings"`)

	resp, err = http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-serverErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Error("server did not stop")
	}
}

func TestMetricsServer_ShutdownWithoutStart(t *testing.T) {
	provider := newProvider(t, instrumentation.Config{Enabled: true, MetricsExporter: instrumentation.ExporterPrometheus})

	srv, err := NewMetricsServer(MetricsServerConfig{InstrumentationProvider: provider})
	require.NoError(t, err)
	assert.NoError(t, srv.Shutdown(context.Background()))
}
