package scorers

import (
	"fmt"

	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

// Registry tags for leaf scorers.
const (
	FixedType = "fixed"
	InputType = "input"
)

var (
	_ ports.Scorer = (*Fixed)(nil)
	_ ports.Scorer = (*Input)(nil)
	_ ports.Scorer = (*Func)(nil)
)

// Fixed always scores the same value.
type Fixed struct {
	base
	value float64
}

// NewFixed creates a constant scorer.
func NewFixed(opts Options, value float64) (*Fixed, error) {
	b, err := newBase(opts, FixedType)
	if err != nil {
		return nil, err
	}
	if err := checkFinite("value", value); err != nil {
		return nil, err
	}
	return &Fixed{base: b, value: value}, nil
}

// Build spawns an instance that writes the constant every step.
func (f *Fixed) Build(owner domain.Entity, cmds ports.Commands) domain.ScorerEnt {
	out := f.score(f.value)
	return cmds.Spawn(owner, f.label, ports.ScoreUpdaterFunc(
		func(domain.Entity, domain.ScoreReader) (domain.Score, error) { return out, nil },
	))
}

// CreateFixed builds a Fixed scorer from a registry spec ("value").
func CreateFixed(spec ports.ScorerSpec) (*Fixed, error) {
	if err := ports.CheckParameters("scorer "+FixedType, spec.Params, "value"); err != nil {
		return nil, err
	}
	v, err := FloatParam(spec.Params, "value", 0)
	if err != nil {
		return nil, err
	}
	return NewFixed(optionsFromSpec(spec), v)
}

// Input reads a named value for the owning agent from the host's world
// state. Missing values fall back to a configured default.
type Input struct {
	base
	name     string
	fallback float64
	source   ports.InputSource
}

// NewInput creates a scorer that reads name from source every step.
func NewInput(opts Options, name string, fallback float64, source ports.InputSource) (*Input, error) {
	if name == "" {
		return nil, fmt.Errorf("input name: %w", domain.ErrEmptyValue)
	}
	if source == nil {
		return nil, fmt.Errorf("input source: %w", ErrNilDependency)
	}
	if err := checkFinite("default", fallback); err != nil {
		return nil, err
	}
	b, err := newBase(opts, name)
	if err != nil {
		return nil, err
	}
	return &Input{base: b, name: name, fallback: fallback, source: source}, nil
}

// Build spawns an instance bound to owner's input.
func (in *Input) Build(owner domain.Entity, cmds ports.Commands) domain.ScorerEnt {
	return cmds.Spawn(owner, in.label, ports.ScoreUpdaterFunc(
		func(domain.Entity, domain.ScoreReader) (domain.Score, error) {
			v, ok := in.source.Input(owner, in.name)
			if !ok {
				v = in.fallback
			}
			return in.score(v), nil
		},
	))
}

// CreateInput builds an Input scorer from a registry spec ("name", "default").
func CreateInput(spec ports.ScorerSpec, source ports.InputSource) (*Input, error) {
	if err := ports.CheckParameters("scorer "+InputType, spec.Params, "name", "default"); err != nil {
		return nil, err
	}
	name, err := StringParam(spec.Params, "name", "")
	if err != nil {
		return nil, err
	}
	fallback, err := FloatParam(spec.Params, "default", 0)
	if err != nil {
		return nil, err
	}
	return NewInput(optionsFromSpec(spec), name, fallback, source)
}

// Func scores through a host callback. It is the programmatic way to add a
// consideration without registering a new type.
type Func struct {
	base
	fn func(owner domain.Entity) float64
}

// NewFunc wraps fn as a scorer.
func NewFunc(opts Options, fn func(owner domain.Entity) float64) (*Func, error) {
	if fn == nil {
		return nil, fmt.Errorf("func: %w", ErrNilDependency)
	}
	b, err := newBase(opts, "func")
	if err != nil {
		return nil, err
	}
	return &Func{base: b, fn: fn}, nil
}

// Build spawns an instance that calls fn for owner every step.
func (f *Func) Build(owner domain.Entity, cmds ports.Commands) domain.ScorerEnt {
	return cmds.Spawn(owner, f.label, ports.ScoreUpdaterFunc(
		func(domain.Entity, domain.ScoreReader) (domain.Score, error) {
			return f.score(f.fn(owner)), nil
		},
	))
}
