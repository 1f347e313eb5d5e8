package client

import (
	"fmt"
	"strings"
)

// ValidationError rejects input before any request is issued.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// TransportError means the request never completed.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is a completed response with a non-success status.
type ProtocolError struct {
	Op     string
	Status int
	Body   string
}

func (e *ProtocolError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s returned %d: %s", e.Op, e.Status, body)
}

// DataError is a well-formed response missing an expected field.
type DataError struct {
	Op  string
	Msg string
}

func (e *DataError) Error() string {
	if e.Op == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

// AttemptFailure records why one attempt of an ordered strategy failed.
type AttemptFailure struct {
	Name string
	Err  error
}

// AttemptsError aggregates the failures of every attempt, in order.
type AttemptsError struct {
	Op       string
	Failures []AttemptFailure
}

func (e *AttemptsError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("[%s: %v]", f.Name, f.Err))
	}
	return fmt.Sprintf("%s failed. Attempts: %s", e.Op, strings.Join(parts, ", "))
}

// Unwrap exposes every attempt's cause to errors.Is and errors.As.
func (e *AttemptsError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
