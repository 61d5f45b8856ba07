package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrInvalidCatalog = errors.New("invalid catalog")
	ErrDuplicateID    = errors.New("duplicate id")
	ErrNotFound       = errors.New("not found")
)

// ValidationError wraps a sentinel with the offending collection and field.
type ValidationError struct {
	Collection string
	Field      string
	Value      string
	Wrapped    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog: %s: %s.%s (value=%q)", e.Wrapped, e.Collection, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// Is lets every ValidationError match ErrInvalidCatalog as well as its own sentinel.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidCatalog }

// NewValidationError creates a ValidationError.
func NewValidationError(collection, field, value string, wrapped error) *ValidationError {
	return &ValidationError{Collection: collection, Field: field, Value: value, Wrapped: wrapped}
}
