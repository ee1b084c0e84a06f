// Package logging provides structured logging utilities for meetscribe.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "meetings.list")
//	logger.Info("meetings loaded",
//	    logging.Status(logging.StatusSuccess))
//
// Attach identifiers with the typed helpers so attribute names stay uniform:
//
//	logger.Debug("opening transcript",
//	    logging.MeetingID(meeting.ID),
//	    logging.FileID(summary.FileID))
//
// Session cookies are never logged in full; use SessionID, which truncates.
package logging
