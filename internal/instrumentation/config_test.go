package instrumentation

import (
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("INSTRUMENTATION_ENABLED", "")
	t.Setenv("METRICS_EXPORTER", "")
	t.Setenv("TRACING_EXPORTER", "")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "")

	config := DefaultConfig()

	if config.ServiceName != "meetscribe" {
		t.Errorf("ServiceName = %q, want meetscribe", config.ServiceName)
	}
	if !config.Enabled {
		t.Error("expected instrumentation to be enabled by default")
	}
	if config.MetricsExporter != ExporterPrometheus {
		t.Errorf("MetricsExporter = %q, want %q", config.MetricsExporter, ExporterPrometheus)
	}
	if config.TracingExporter != ExporterNone {
		t.Errorf("TracingExporter = %q, want %q", config.TracingExporter, ExporterNone)
	}
	if config.TraceSamplingRate != 0.1 {
		t.Errorf("TraceSamplingRate = %v, want 0.1", config.TraceSamplingRate)
	}
}

func TestDefaultConfig_FromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "custom")
	t.Setenv("INSTRUMENTATION_ENABLED", "false")
	t.Setenv("METRICS_EXPORTER", "stdout")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")

	config := DefaultConfig()

	if config.ServiceName != "custom" {
		t.Errorf("ServiceName = %q, want custom", config.ServiceName)
	}
	if config.Enabled {
		t.Error("expected instrumentation to be disabled")
	}
	if config.MetricsExporter != ExporterStdout {
		t.Errorf("MetricsExporter = %q, want stdout", config.MetricsExporter)
	}
	if config.TraceSamplingRate != 0.5 {
		t.Errorf("TraceSamplingRate = %v, want 0.5", config.TraceSamplingRate)
	}
}

func TestDefaultConfig_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("INSTRUMENTATION_ENABLED", "not-a-bool")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "lots")

	config := DefaultConfig()

	if !config.Enabled {
		t.Error("invalid bool should fall back to default true")
	}
	if config.TraceSamplingRate != 0.1 {
		t.Errorf("invalid float should fall back to 0.1, got %v", config.TraceSamplingRate)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		errContains string
	}{
		{
			name:   "valid defaults",
			config: Config{MetricsExporter: ExporterPrometheus, TracingExporter: ExporterNone, TraceSamplingRate: 0.1},
		},
		{
			name:        "sampling rate too high",
			config:      Config{TraceSamplingRate: 1.5},
			errContains: "sampling rate",
		},
		{
			name:        "negative sampling rate",
			config:      Config{TraceSamplingRate: -0.1},
			errContains: "sampling rate",
		},
		{
			name:        "unknown metrics exporter",
			config:      Config{MetricsExporter: "graphite"},
			errContains: "invalid metrics exporter",
		},
		{
			name:        "unknown tracing exporter",
			config:      Config{TracingExporter: "jaeger"},
			errContains: "invalid tracing exporter",
		},
		{
			name:        "otlp tracing without endpoint",
			config:      Config{TracingExporter: ExporterOTLP},
			errContains: "OTLP endpoint is required",
		},
		{
			name:   "otlp with endpoint",
			config: Config{MetricsExporter: ExporterOTLP, TracingExporter: ExporterOTLP, OTLPEndpoint: "localhost:4318"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errContains == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errContains) {
				t.Fatalf("expected error containing %q, got %v", tt.errContains, err)
			}
		})
	}
}
