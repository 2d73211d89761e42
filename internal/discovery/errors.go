package discovery

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotReady is returned when results are requested before completion.
	ErrSessionNotReady = errors.New("discovery not completed")
)

// ValidationError reports bad or missing input at session start.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("field %q is required", e.Field)
}

// ExternalServiceError wraps a provider call failure, timeout, or malformed
// response. Stage failures of this kind terminate the session.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}
