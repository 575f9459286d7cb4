package model

import (
	"errors"
	"fmt"

	"github.com/tartampluch/remindme/internal/config"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New(config.ErrValidation)

// ValidationError reports a malformed or missing field.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", config.ErrValidation, e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
