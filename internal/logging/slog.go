package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyComponent = "component"
	KeyScreen    = "screen"
	KeyEndpoint  = "endpoint"
	KeyMeetingID = "meeting_id"
	KeyFileID    = "file_id"
	KeySession   = "session"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies (instrumentation imports logging).
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusStale   = "stale"
)

// New builds a text slog.Logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithComponent returns a logger with the component attribute set.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String(KeyComponent, component))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Screen returns a slog attribute for a navigation screen.
func Screen(screen string) slog.Attr {
	return slog.String(KeyScreen, screen)
}

// Endpoint returns a slog attribute for a backend API endpoint name.
func Endpoint(endpoint string) slog.Attr {
	return slog.String(KeyEndpoint, endpoint)
}

// MeetingID returns a slog attribute for a meeting identifier.
func MeetingID(id string) slog.Attr {
	return slog.String(KeyMeetingID, id)
}

// FileID returns a slog attribute for a transcript file identifier.
func FileID(id string) slog.Attr {
	return slog.String(KeyFileID, id)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
// This allows safely passing Err(maybeNilErr) without adding empty attributes.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// SessionID returns a slog attribute with a shortened session identifier.
// Only the first eight characters are logged; that is enough to correlate
// entries without making the cookie value recoverable from logs.
func SessionID(id string) slog.Attr {
	if len(id) > 8 {
		id = id[:8]
	}
	return slog.String(KeySession, id)
}
