// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - Typed errors (*Error): Carry extra context and match their sentinel with errors.Is
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	// ErrInvalidInput indicates an empty or malformed submission. It is never sent upstream.
	ErrInvalidInput = errors.New("invalid input")
)

// Classifier gateway errors.
var (
	// ErrUpstreamTransport indicates the classifier could not be reached or answered with a failure status.
	ErrUpstreamTransport = errors.New("classifier unavailable")

	// ErrUpstreamFormat indicates the classifier answered but the payload did not have the expected shape.
	ErrUpstreamFormat = errors.New("classifier returned an unexpected response")

	// ErrCircuitBreakerOpen indicates the circuit breaker has tripped and requests are blocked.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

// Persistence errors.
var (
	// ErrPersistence indicates a profile or result store read/write failure.
	ErrPersistence = errors.New("persistence failure")
)

// Session and export errors.
var (
	// ErrAnalysisInProgress indicates the session is already running a submission.
	ErrAnalysisInProgress = errors.New("analysis already in progress")

	// ErrNothingToExport indicates an export was requested for an empty history.
	ErrNothingToExport = errors.New("no data to export")
)

// UpstreamTransportError describes a failed call to the classifier gateway.
// StatusCode is zero when the failure happened before an HTTP status was received.
type UpstreamTransportError struct {
	StatusCode int
	Err        error
}

func (e *UpstreamTransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %v", ErrUpstreamTransport, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s: %v", ErrUpstreamTransport, e.Err)
}

func (e *UpstreamTransportError) Unwrap() error { return e.Err }

// Is reports whether target is ErrUpstreamTransport.
func (e *UpstreamTransportError) Is(target error) bool { return target == ErrUpstreamTransport }

// UpstreamFormatError describes a classifier payload that could not be parsed.
type UpstreamFormatError struct {
	Reason  string
	Content string
	Err     error
}

func (e *UpstreamFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrUpstreamFormat, e.Reason, e.Err)
	}

	return fmt.Sprintf("%s: %s", ErrUpstreamFormat, e.Reason)
}

func (e *UpstreamFormatError) Unwrap() error { return e.Err }

// Is reports whether target is ErrUpstreamFormat.
func (e *UpstreamFormatError) Is(target error) bool { return target == ErrUpstreamFormat }

// PersistenceError wraps a store failure with the operation that failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is reports whether target is ErrPersistence.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Persistence wraps err as a PersistenceError for op. A nil err stays nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}

	return &PersistenceError{Op: op, Err: err}
}

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
