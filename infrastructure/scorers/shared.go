// Package scorers provides scorer definitions, measures and response curves
// for the go-ponder decision kernel. Every scorer implements ports.Scorer.
package scorers

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

// Common errors returned by scorer constructors.
var (
	// ErrNoChildren is returned when a composite scorer has no children.
	ErrNoChildren = errors.New("composite scorer requires at least one child")

	// ErrNotFinite is returned when a numeric parameter is NaN or infinite.
	ErrNotFinite = errors.New("value must be a finite number")

	// ErrInvalidParameter is returned when a factory parameter has the wrong type.
	ErrInvalidParameter = errors.New("invalid scorer parameter")

	// ErrNilDependency is returned when a required collaborator is nil.
	ErrNilDependency = errors.New("required dependency is nil")
)

// DefaultWeight is the weight written into a Score when none is configured.
const DefaultWeight = 1.0

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// Options holds the settings shared by every scorer definition.
type Options struct {
	// Label names the scorer in logs and store entries. Each type supplies
	// a default when empty.
	Label string `yaml:"label" json:"label" validate:"max=100"`

	// Weight is written into the scorer's Score. Nil selects DefaultWeight;
	// an explicit zero is kept.
	Weight *float64 `yaml:"weight" json:"weight"`
}

// WeightOf returns a pointer to w for Options.Weight.
func WeightOf(w float64) *float64 { return &w }

// base carries the resolved Options of a definition.
type base struct {
	label  string
	weight float64
}

func newBase(opts Options, fallbackLabel string) (base, error) {
	if err := validate.Struct(opts); err != nil {
		return base{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	b := base{label: opts.Label, weight: DefaultWeight}
	if opts.Weight != nil {
		if err := checkFinite("weight", *opts.Weight); err != nil {
			return base{}, err
		}
		b.weight = *opts.Weight
	}
	if b.label == "" {
		b.label = fallbackLabel
	}
	return b, nil
}

// Name returns the scorer's label.
func (b base) Name() string { return b.label }

// Weight returns the weight the scorer writes into its Score.
func (b base) Weight() float64 { return b.weight }

func (b base) score(v float64) domain.Score { return domain.Score{Value: v, Weight: b.weight} }

// optionsFromSpec lifts the shared fields of a registry spec.
func optionsFromSpec(spec ports.ScorerSpec) Options {
	return Options{Label: spec.Label, Weight: spec.Weight}
}

func checkFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s: %w (got %v)", field, ErrNotFinite, v)
	}
	return nil
}

// clamp bounds v to [lo, hi]. The bounds may be given in either order.
func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// buildAll builds each child for owner, in order.
func buildAll(children []ports.Scorer, owner domain.Entity, cmds ports.Commands) []domain.ScorerEnt {
	handles := make([]domain.ScorerEnt, len(children))
	for i, child := range children {
		handles[i] = child.Build(owner, cmds)
	}
	return handles
}

// readAll reads the current Score of every handle.
func readAll(scores domain.ScoreReader, handles []domain.ScorerEnt) ([]domain.Score, error) {
	out := make([]domain.Score, len(handles))
	for i, h := range handles {
		s, err := scores.Score(h)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func checkChildren(children []ports.Scorer) error {
	if len(children) == 0 {
		return ErrNoChildren
	}
	for i, c := range children {
		if c == nil {
			return fmt.Errorf("child %d: %w", i, ErrNilDependency)
		}
	}
	return nil
}

// FloatParam reads an optional numeric parameter. YAML decodes whole
// numbers as int, so integer kinds are accepted too.
func FloatParam(params map[string]any, key string, fallback float64) (float64, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidParameter, key, raw)
	}
}

// BoolParam reads an optional boolean parameter.
func BoolParam(params map[string]any, key string, fallback bool) (bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean, got %T", ErrInvalidParameter, key, raw)
	}
	return v, nil
}

// StringParam reads an optional string parameter.
func StringParam(params map[string]any, key string, fallback string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	v, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidParameter, key, raw)
	}
	return v, nil
}
