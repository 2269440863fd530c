package recordgate

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrUnauthorized is returned when the server rejects the API key.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrServerUnreachable is returned when the Record Gate server cannot
	// be contacted and the client runs in fail-closed mode.
	ErrServerUnreachable = errors.New("server unreachable")

	// ErrEvaluationFailed is returned when the server reports an expression
	// evaluation error.
	ErrEvaluationFailed = errors.New("evaluation failed")
)

// APIError is returned for non-2xx server responses.
type APIError struct {
	// Status is the HTTP status code.
	Status int
	// Kind is the machine-readable error kind reported by the server,
	// when present.
	Kind string
	// Message is the server's error message.
	Message string
}

// Error returns the error message.
func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("recordgate: server returned %d [%s]: %s", e.Status, e.Kind, e.Message)
	}
	return fmt.Sprintf("recordgate: server returned %d: %s", e.Status, e.Message)
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrUnauthorized).
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == 401
}

// EvaluationError is returned by Evaluate when the expression fails on the
// server. Kind carries the typed failure category, for example
// "division_by_zero" or "unknown_field".
type EvaluationError struct {
	// Kind is the machine-readable failure category.
	Kind string
	// Message is the server's error message.
	Message string
}

// Error returns a human-readable description of the evaluation failure.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation failed [%s]: %s", e.Kind, e.Message)
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrEvaluationFailed).
func (e *EvaluationError) Is(target error) bool {
	return target == ErrEvaluationFailed
}

// ServerUnreachableError is returned when the Record Gate server cannot be
// contacted and the client runs in fail-closed mode.
type ServerUnreachableError struct {
	// Cause is the underlying connection error.
	Cause error
}

// Error returns a human-readable description of the connection failure.
func (e *ServerUnreachableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("server unreachable: %v", e.Cause)
	}
	return "server unreachable"
}

// Unwrap returns the underlying error cause.
func (e *ServerUnreachableError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target error.
// It supports errors.Is(err, ErrServerUnreachable).
func (e *ServerUnreachableError) Is(target error) bool {
	return target == ErrServerUnreachable
}
