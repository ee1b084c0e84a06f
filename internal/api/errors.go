package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an application failure reported by the backend: the envelope
// said success=false, or an error status carried an envelope message.
type Error struct {
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: request failed with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unauthenticated reports whether the backend rejected the session.
func (e *Error) Unauthenticated() bool {
	return e.Status == http.StatusUnauthorized
}

// TransportError means no usable envelope was received: the server could not
// be reached, answered with a non-JSON body, or an unexpected status.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage turns err into the single line shown to a user. fallback is
// used when an application failure carries no message.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		if fallback != "" {
			return fallback
		}
		return http.StatusText(apiErr.Status)
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return "Unable to reach the server: " + transportErr.Err.Error()
	}

	if fallback != "" {
		return fallback
	}
	return err.Error()
}

// IsUnauthenticated reports whether err is a 401 from the backend.
func IsUnauthenticated(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Unauthenticated()
}
