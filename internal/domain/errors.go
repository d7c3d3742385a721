package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while scoring and selecting choices.
var (
	// ErrScoreNotFound indicates that a scorer handle has no entry in the
	// score store. It is a wiring mistake, not a runtime condition.
	ErrScoreNotFound = errors.New("score not found")

	// ErrUnknownEntity indicates that an entity was never allocated or has
	// already been despawned.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrEmptyValue indicates that a required value is empty or nil.
	ErrEmptyValue = errors.New("empty value")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ScoreError represents an error that occurred while reading or writing a
// Score. It provides context about which handle and operation failed.
type ScoreError struct {
	// Handle is the scorer handle involved in the failed operation.
	Handle ScorerEnt

	// Operation describes what was being performed when the error occurred.
	Operation string

	// Err is the underlying error that caused the operation to fail.
	Err error
}

// Error implements the error interface for ScoreError.
func (e *ScoreError) Error() string {
	return fmt.Sprintf("score error: operation=%s, handle=%s, err=%v", e.Operation, e.Handle, e.Err)
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *ScoreError) Unwrap() error { return e.Err }

// NewScoreError creates a new ScoreError with the given details.
func NewScoreError(handle ScorerEnt, operation string, err error) *ScoreError {
	return &ScoreError{
		Handle:    handle,
		Operation: operation,
		Err:       err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string

	causes []error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// Add records err as a validation failure. errors.Is and errors.As see
// every error recorded this way.
func (e *ValidationError) Add(err error) {
	e.Errors = append(e.Errors, err.Error())
	e.causes = append(e.causes, err)
}

// Unwrap returns the errors recorded with Add.
func (e *ValidationError) Unwrap() []error { return e.causes }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
