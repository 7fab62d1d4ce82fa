package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("order not found")
	ErrDuplicateKey          = errors.New("order id already exists")
	ErrMissingField          = errors.New("missing required field")
	ErrInvalidPayload        = errors.New("invalid payload")
	ErrSerializationFault    = errors.New("stored order field cannot be decoded")
	ErrConnectionUnavailable = errors.New("storage unavailable")

	// ErrParentCycle is an ErrInvalidPayload.
	ErrParentCycle = fmt.Errorf("%w: parent order link forms a cycle", ErrInvalidPayload)
	// Stages only move while the order is active.
	ErrOrderLocked   error = &kindError{msg: "order is not active", kind: ErrInvalidPayload}
	ErrStageNotFound error = &kindError{msg: "stage not found", kind: ErrNotFound}
)

// FieldError names the payload field a validation error is about.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

func missing(field string) error { return &FieldError{Field: field, Err: ErrMissingField} }

func invalid(field string) error { return &FieldError{Field: field, Err: ErrInvalidPayload} }

// kindError is a sentinel with its own message that still matches the
// broader sentinel it belongs to.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
