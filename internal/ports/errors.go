package ports

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Common infrastructure errors.
var (
	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")

	// ErrUnknownType indicates that a type tag has no registered factory.
	ErrUnknownType = errors.New("unknown type")

	// ErrUnknownParameter indicates a parameter key the type does not read.
	ErrUnknownParameter = errors.New("unknown parameter")
)

// UnknownParameterError reports a parameter key that a scorer, picker,
// measure or evaluator type does not accept.
type UnknownParameterError struct {
	// Kind is the type that rejected the key ("scorer fixed", ...).
	Kind string

	// Key is the rejected key, dotted when it sits in a nested block.
	Key string

	// Allowed lists the keys the type accepts.
	Allowed []string
}

// Error implements the error interface for UnknownParameterError.
func (e *UnknownParameterError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("unknown %s parameter %q (takes no parameters)", e.Kind, e.Key)
	}
	return fmt.Sprintf("unknown %s parameter %q (allowed: %s)", e.Kind, e.Key, strings.Join(e.Allowed, ", "))
}

// Unwrap returns ErrUnknownParameter.
func (e *UnknownParameterError) Unwrap() error { return ErrUnknownParameter }

// CheckParameters returns an *UnknownParameterError for the first key of
// params, in sorted order, that is not in allowed.
func CheckParameters(kind string, params map[string]any, allowed ...string) error {
	for _, key := range slices.Sorted(maps.Keys(params)) {
		if !slices.Contains(allowed, key) {
			return &UnknownParameterError{Kind: kind, Key: key, Allowed: allowed}
		}
	}
	return nil
}

// UnknownTypeError reports an unregistered type tag together with the
// closest registered tag, if any.
type UnknownTypeError struct {
	// Kind is the category that was searched ("scorer", "picker", ...).
	Kind string

	// Type is the tag that was requested.
	Type string

	// Suggestion is the closest registered tag, or empty.
	Suggestion string
}

// Error implements the error interface for UnknownTypeError.
func (e *UnknownTypeError) Error() string {
	msg := fmt.Sprintf("unsupported %s type: %s", e.Kind, e.Type)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// Unwrap returns ErrUnknownType.
func (e *UnknownTypeError) Unwrap() error { return ErrUnknownType }

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
