// Package instrumentation provides OpenTelemetry instrumentation for meetscribe.
//
// # Metrics
//
// Backend API client:
//   - api_requests_total: Counter of API calls by endpoint and status
//   - api_request_duration_seconds: Histogram of API call durations
//
// Navigation:
//   - screen_transitions_total: Counter of controller transitions by from/to screen
//   - stale_responses_total: Counter of fetch results dropped because their scope changed
//   - transcript_downloads_total: Counter of downloads by status
//
// Web front-end:
//   - http_requests_total / http_request_duration_seconds by method, route and status
//   - active_sessions: Gauge of live browser sessions
//
// # Tracing
//
// Every backend call runs in an "api.<endpoint>" client span.
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: meetscribe)
package instrumentation
