// Package api is the HTTP JSON client for the meeting-transcript backend.
//
// Every JSON endpoint answers with an envelope carrying a success flag and an
// optional message. The client decodes that envelope into typed values and
// reports two kinds of failure:
//
//   - *Error: the backend answered with success=false (or an error status
//     with an envelope). Message is the server's text.
//   - *TransportError: the request never produced a usable envelope, e.g. the
//     server is unreachable or the body is not JSON.
//
// UserMessage collapses both into the single line a screen shows.
//
// Calls are traced with OpenTelemetry and recorded in the api_requests_total
// and api_request_duration_seconds metrics when a recorder is configured.
package api
