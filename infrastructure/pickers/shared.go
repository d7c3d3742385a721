// Package pickers provides selection policies that implement ports.Picker
// for the go-ponder decision kernel.
package pickers

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Common errors returned by pickers.
var (
	// ErrInvalidThreshold is returned when a threshold is NaN or infinite.
	ErrInvalidThreshold = errors.New("threshold must be a finite number")

	// ErrInvalidParameter is returned when parameters cannot be decoded.
	ErrInvalidParameter = errors.New("invalid picker parameter")
)

// thresholdKey is the only parameter both pickers accept.
const thresholdKey = "threshold"

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 with a "finite" tag for thresholds.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// RegisterValidation only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("finite", validateFinite)
	return v
}

// validateFinite rejects NaN and infinite floats.
func validateFinite(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	default:
		return true
	}
}

// validateConfig runs the struct tags of a picker configuration.
func validateConfig(config any) error {
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidThreshold, err)
	}
	return nil
}

// parametersNode converts registry parameters to a YAML node. Empty
// parameters give the zero node.
func parametersNode(params map[string]any) (yaml.Node, error) {
	var node yaml.Node
	if len(params) == 0 {
		return node, nil
	}
	if err := node.Encode(params); err != nil {
		return yaml.Node{}, fmt.Errorf("%w: failed to encode parameters: %w", ErrInvalidParameter, err)
	}
	return node, nil
}

// decodeStrict decodes node into config, rejecting keys config does not
// declare. The zero node leaves config unchanged.
func decodeStrict(node yaml.Node, config any) error {
	if node.Kind == 0 {
		return nil
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	if err := encoder.Encode(&node); err != nil {
		return fmt.Errorf("%w: failed to encode YAML node: %w", ErrInvalidParameter, err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("%w: failed to close YAML encoder: %w", ErrInvalidParameter, err)
	}

	decoder := yaml.NewDecoder(&buf)
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil {
		return fmt.Errorf("%w: failed to decode parameters (check for typos): %w", ErrInvalidParameter, err)
	}
	return nil
}
