// Package service provides the business logic for paid access,
// engagement aggregation, refunds and reward accrual.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is returned when the caller may not perform the
	// operation on the target resource.
	ErrForbidden = errors.New("operation not permitted")

	// ErrInactiveVideo is returned when an operation requires an
	// active video but it has been taken down.
	ErrInactiveVideo = errors.New("video is not active")

	// ErrPaymentRequired is returned when a viewer without access
	// requests gated content.
	ErrPaymentRequired = errors.New("payment required")
)

// ValidationError represents rejected input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConflictError represents an operation that collides with existing
// state, such as a duplicate payment. Existing carries the record the
// request collided with when one is available.
type ConflictError struct {
	Message  string
	Existing any
}

func (e *ConflictError) Error() string {
	return e.Message
}

// ProcessingError represents an internal failure while executing an
// operation.
type ProcessingError struct {
	Message string
	Cause   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}
