package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for the catalog error taxonomy. Dangling references are
// not errors and never surface here.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")
)

// Error is a catalog error carrying a machine-readable code.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewNotFoundError returns an error matching ErrNotFound.
func NewNotFoundError(message string) *Error {
	return &Error{Code: "NOT_FOUND", Message: message, Err: ErrNotFound}
}

// NewConflictError returns an error matching ErrConflict.
func NewConflictError(message string) *Error {
	return &Error{Code: "CONFLICT", Message: message, Err: ErrConflict}
}

// NewValidationError returns an error matching ErrValidation.
func NewValidationError(message string) *Error {
	return &Error{Code: "VALIDATION", Message: message, Err: ErrValidation}
}

func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool   { return errors.Is(err, ErrConflict) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// EntityNotFound is the standard not-found error for a data entity id.
func EntityNotFound(id int64) *Error {
	return NewNotFoundError(fmt.Sprintf("data entity with id %d not found", id))
}
