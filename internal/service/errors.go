package service

import (
	"fmt"
	"strings"
)

// ConfigError reports a startup configuration problem. It is the only fatal
// class; everything else returns to the caller.
type ConfigError struct {
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error { return e.Cause }

// ConnectionNotFoundError names the requested connection and lists the
// configured ones so the caller can retry with a valid name.
type ConnectionNotFoundError struct {
	Name      string
	Available []string
}

func (e *ConnectionNotFoundError) Error() string {
	return fmt.Sprintf("Connection '%s' not found. Available: %s", e.Name, strings.Join(e.Available, ", "))
}

// ValidationError reports malformed caller input: unknown operation,
// unparseable query/sort/projection text, or unresolved template variables.
type ValidationError struct {
	Cause error
}

func (e *ValidationError) Error() string { return e.Cause.Error() }
func (e *ValidationError) Unwrap() error { return e.Cause }

// BackendError covers pod discovery, credential resolution, remote exec and
// driver failures, including classified remote error output.
type BackendError struct {
	Cause error
}

func (e *BackendError) Error() string { return e.Cause.Error() }
func (e *BackendError) Unwrap() error { return e.Cause }

// TimeoutError reports a query that exceeded its local wait. The message
// shape is identical across both backends.
type TimeoutError struct {
	Cause error
}

func (e *TimeoutError) Error() string { return e.Cause.Error() }
func (e *TimeoutError) Unwrap() error { return e.Cause }

// ParseError reports remote output that could not be parsed as a result
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string { return e.Cause.Error() }
func (e *ParseError) Unwrap() error { return e.Cause }

// PersistenceError reports a saved-query store read or write failure
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string { return e.Cause.Error() }
func (e *PersistenceError) Unwrap() error { return e.Cause }

// classifyBackendError buckets an execution failure from either backend.
// Timeouts carry the "timed out after" message both backends emit; parse
// failures carry the classifier's marker. Everything else is a backend fault.
func classifyBackendError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "timed out after"):
		return &TimeoutError{Cause: err}
	case strings.Contains(msg, "failed to parse query result") ||
		strings.Contains(msg, "failed to parse collection list"):
		return &ParseError{Cause: err}
	default:
		return &BackendError{Cause: err}
	}
}
