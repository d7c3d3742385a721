package scorers

import (
	"fmt"

	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

// Registry tags for scorers that post-process their children.
const (
	EvaluatingType = "evaluating"
	MeasuredType   = "measured"
)

var (
	_ ports.Scorer = (*Evaluating)(nil)
	_ ports.Scorer = (*Measured)(nil)
)

// Evaluating passes a single child through a response curve and clamps the
// result to [0,1].
type Evaluating struct {
	base
	child     ports.Scorer
	evaluator ports.Evaluator
}

// NewEvaluating creates an Evaluating scorer.
func NewEvaluating(opts Options, evaluator ports.Evaluator, child ports.Scorer) (*Evaluating, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator: %w", ErrNilDependency)
	}
	if child == nil {
		return nil, fmt.Errorf("child: %w", ErrNilDependency)
	}
	b, err := newBase(opts, EvaluatingType)
	if err != nil {
		return nil, err
	}
	return &Evaluating{base: b, child: child, evaluator: evaluator}, nil
}

// Build spawns the child and then the evaluating instance.
func (e *Evaluating) Build(owner domain.Entity, cmds ports.Commands) domain.ScorerEnt {
	handle := e.child.Build(owner, cmds)
	return cmds.Spawn(owner, e.label, ports.ScoreUpdaterFunc(
		func(_ domain.Entity, scores domain.ScoreReader) (domain.Score, error) {
			inner, err := scores.Score(handle)
			if err != nil {
				return domain.Score{}, err
			}
			return e.score(clamp(e.evaluator.Evaluate(inner.Value), 0, 1)), nil
		},
	))
}

// CreateEvaluating builds an Evaluating scorer from a registry spec. The
// spec must carry exactly one child.
func CreateEvaluating(spec ports.ScorerSpec, evaluator ports.Evaluator) (*Evaluating, error) {
	if err := ports.CheckParameters("scorer "+EvaluatingType, spec.Params, "evaluator"); err != nil {
		return nil, err
	}
	if len(spec.Children) != 1 {
		return nil, fmt.Errorf("%w: evaluating scorer takes exactly one child, got %d",
			ErrInvalidParameter, len(spec.Children))
	}
	return NewEvaluating(optionsFromSpec(spec), evaluator, spec.Children[0])
}

// Measured combines its children's Scores, weights included, with a
// Measure. A result below the threshold scores 0; the result is clamped
// to [0,1].
type Measured struct {
	composite
	measure domain.Measure
}

// NewMeasured creates a Measured scorer.
func NewMeasured(opts Options, threshold float64, measure domain.Measure, children ...ports.Scorer) (*Measured, error) {
	if measure == nil {
		return nil, fmt.Errorf("measure: %w", ErrNilDependency)
	}
	c, err := newComposite(opts, MeasuredType, threshold, children)
	if err != nil {
		return nil, err
	}
	return &Measured{composite: c, measure: measure}, nil
}

// Build spawns the scorer and its children.
func (m *Measured) Build(owner domain.Entity, cmds ports.Commands) domain.ScorerEnt {
	return m.spawn(owner, cmds, func(children []domain.Score) float64 {
		v := m.measure.Calculate(children)
		if v < m.threshold {
			return 0
		}
		return clamp(v, 0, 1)
	})
}

// CreateMeasured builds a Measured scorer from a registry spec.
func CreateMeasured(spec ports.ScorerSpec, measure domain.Measure) (*Measured, error) {
	if err := ports.CheckParameters("scorer "+MeasuredType, spec.Params, "threshold", "measure"); err != nil {
		return nil, err
	}
	threshold, err := FloatParam(spec.Params, "threshold", 0)
	if err != nil {
		return nil, err
	}
	return NewMeasured(optionsFromSpec(spec), threshold, measure, spec.Children...)
}
