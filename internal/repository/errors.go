package repository

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by ValidationError, usable with errors.Is
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrInUse        = errors.New("in use")
	ErrConflict     = errors.New("already exists")
)

// ValidationError reports bad input, a business-rule violation or a
// mutation on a missing row. It is never retried and never logged by the
// store.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StorageError reports a connectivity or engine failure
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsStorage reports whether err is or wraps a StorageError
func IsStorage(err error) bool {
	var s *StorageError
	return errors.As(err, &s)
}

// NewValidationError builds an invalid-input ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: ErrInvalidInput}
}

func notFound(entity string, id int64) *ValidationError {
	return &ValidationError{
		Field:   "id",
		Message: fmt.Sprintf("%s with ID %d does not exist", entity, id),
		Err:     ErrNotFound,
	}
}

func inUse(entity string) *ValidationError {
	return &ValidationError{
		Field:   "id",
		Message: fmt.Sprintf("this %s cannot be deleted because transactions still reference it", entity),
		Err:     ErrInUse,
	}
}
