package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod   = "method"
	attrPath     = "path"
	attrStatus   = "status"
	attrEndpoint = "endpoint"
	attrFrom     = "from"
	attrTo       = "to"
	attrLoader   = "loader"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics value is a valid no-op recorder.
type Metrics struct {
	// Web front-end metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	// Backend API client metrics
	apiRequestsTotal   metric.Int64Counter
	apiRequestDuration metric.Float64Histogram

	// Navigation metrics
	screenTransitionsTotal metric.Int64Counter
	staleResponsesTotal    metric.Int64Counter
	downloadsTotal         metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests served by the web front-end"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of active browser sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	m.apiRequestsTotal, err = meter.Int64Counter(
		"api_requests_total",
		metric.WithDescription("Total number of backend API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api_requests_total counter: %w", err)
	}

	m.apiRequestDuration, err = meter.Float64Histogram(
		"api_request_duration_seconds",
		metric.WithDescription("Backend API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api_request_duration_seconds histogram: %w", err)
	}

	m.screenTransitionsTotal, err = meter.Int64Counter(
		"screen_transitions_total",
		metric.WithDescription("Total number of navigation transitions between screens"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create screen_transitions_total counter: %w", err)
	}

	m.staleResponsesTotal, err = meter.Int64Counter(
		"stale_responses_total",
		metric.WithDescription("Responses discarded because their scope changed while in flight"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stale_responses_total counter: %w", err)
	}

	m.downloadsTotal, err = meter.Int64Counter(
		"transcript_downloads_total",
		metric.WithDescription("Total number of transcript downloads"),
		metric.WithUnit("{download}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transcript_downloads_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
// path must be a route pattern, not a raw URL, to keep cardinality bounded.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAPIRequest records a backend API call.
//
// Parameters:
//   - endpoint: one of the Endpoint* constants
//   - status: "success" or "error"
//   - duration: time taken for the call
func (m *Metrics) RecordAPIRequest(ctx context.Context, endpoint, status string, duration time.Duration) {
	if m == nil || m.apiRequestsTotal == nil || m.apiRequestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrEndpoint, endpoint),
		attribute.String(attrStatus, status),
	}

	m.apiRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.apiRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordScreenTransition records a navigation from one screen to another.
func (m *Metrics) RecordScreenTransition(ctx context.Context, from, to string) {
	if m == nil || m.screenTransitionsTotal == nil {
		return
	}

	m.screenTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrFrom, from),
		attribute.String(attrTo, to),
	))
}

// RecordStaleResponse records a response dropped because a newer fetch superseded it.
func (m *Metrics) RecordStaleResponse(ctx context.Context, loader string) {
	if m == nil || m.staleResponsesTotal == nil {
		return
	}

	m.staleResponsesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrLoader, loader)))
}

// RecordDownload records a transcript download attempt.
func (m *Metrics) RecordDownload(ctx context.Context, status string) {
	if m == nil || m.downloadsTotal == nil {
		return
	}

	m.downloadsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}

	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}

	m.activeSessions.Add(ctx, -1)
}
