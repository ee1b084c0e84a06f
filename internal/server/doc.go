// Package server provides the operational pieces of the long-running
// front-end: the shared ServerContext, Kubernetes-style health endpoints and
// a dedicated Prometheus metrics server.
//
// HealthChecker serves /healthz (liveness), /readyz (readiness) and
// /healthz/detailed, which additionally probes the transcript backend and
// reports the number of open browser sessions.
//
// MetricsServer exposes /metrics on its own address so operational data is
// not reachable through the user-facing port.
package server
