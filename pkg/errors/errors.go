// Package errors provides coded error types for deduction calculations.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeInvalidRules = "INVALID_RULES"
)

// DeductionError is a structured error with context.
type DeductionError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *DeductionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidInputError creates an error for a salary that is not a non-negative number.
func NewInvalidInputError(field, format string, args ...any) *DeductionError {
	return &DeductionError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

// NewInvalidRulesError creates an error for a rule table that breaks its invariants.
func NewInvalidRulesError(field, format string, args ...any) *DeductionError {
	return &DeductionError{
		Code:    ErrCodeInvalidRules,
		Message: fmt.Sprintf(format, args...),
		Field:   field,
	}
}

// IsCode reports whether err wraps a DeductionError with the given code.
func IsCode(err error, code string) bool {
	var de *DeductionError
	if stderrors.As(err, &de) {
		return de.Code == code
	}
	return false
}
