package scorers

import (
	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

// Registry tags for composite scorers.
const (
	AllOrNothingType = "all_or_nothing"
	SumType          = "sum"
	ProductType      = "product"
	WinningType      = "winning"
)

var (
	_ ports.Scorer = (*AllOrNothing)(nil)
	_ ports.Scorer = (*Sum)(nil)
	_ ports.Scorer = (*Product)(nil)
	_ ports.Scorer = (*Winning)(nil)
)

// combineFunc reduces child scores to a value for a composite.
type combineFunc func(children []domain.Score) float64

// composite is the shared shape of every scorer that reduces a list of
// children with a threshold.
type composite struct {
	base
	threshold float64
	children  []ports.Scorer
}

func newComposite(opts Options, fallbackLabel string, threshold float64, children []ports.Scorer) (composite, error) {
	if err := checkChildren(children); err != nil {
		return composite{}, err
	}
	if err := checkFinite("threshold", threshold); err != nil {
		return composite{}, err
	}
	b, err := newBase(opts, fallbackLabel)
	if err != nil {
		return composite{}, err
	}
	return composite{base: b, threshold: threshold, children: children}, nil
}

// Threshold returns the configured threshold.
func (c composite) Threshold() float64 { return c.threshold }

// Children returns the child definitions.
func (c composite) Children() []ports.Scorer { return c.children }

// spawn builds the children, then an instance that reduces them with fn.
func (c composite) spawn(owner domain.Entity, cmds ports.Commands, fn combineFunc) domain.ScorerEnt {
	handles := buildAll(c.children, owner, cmds)
	return cmds.Spawn(owner, c.label, ports.ScoreUpdaterFunc(
		func(_ domain.Entity, scores domain.ScoreReader) (domain.Score, error) {
			children, err := readAll(scores, handles)
			if err != nil {
				return domain.Score{}, err
			}
			return c.score(fn(children)), nil
		},
	))
}

// AllOrNothing sums its children, but scores 0 if any child or the sum is
// below the threshold.
type AllOrNothing struct{ composite }

// NewAllOrNothing creates an AllOrNothing scorer.
func NewAllOrNothing(opts Options, threshold float64, children ...ports.Scorer) (*AllOrNothing, error) {
	c, err := newComposite(opts, AllOrNothingType, threshold, children)
	if err != nil {
		return nil, err
	}
	return &AllOrNothing{c}, nil
}

// Build spawns the scorer and its children.
func (a *AllOrNothing) Build(owner domain.Entity, cmds ports.Commands) domain.ScorerEnt {
	return a.spawn(owner, cmds, func(children []domain.Score) float64 {
		var sum float64
		for _, s := range children {
			if s.Value < a.threshold {
				return 0
			}
			sum += s.Value
		}
		if sum < a.threshold {
			return 0
		}
		return clamp(sum, 0, 1)
	})
}

// Sum adds its children's values; a total below the threshold scores 0.
type Sum struct{ composite }

// NewSum creates a Sum scorer.
func NewSum(opts Options, threshold float64, children ...ports.Scorer) (*Sum, error) {
	c, err := newComposite(opts, SumType, threshold, children)
	if err != nil {
		return nil, err
	}
	return &Sum{c}, nil
}

// Build spawns the scorer and its children.
func (s *Sum) Build(owner domain.Entity, cmds ports.Commands) domain.ScorerEnt {
	return s.spawn(owner, cmds, func(children []domain.Score) float64 {
		var sum float64
		for _, c := range children {
			sum += c.Value
		}
		if sum < s.threshold {
			return 0
		}
		return clamp(sum, 0, 1)
	})
}

// Product multiplies its children's values; a product below the threshold
// scores 0.
//
// With compensation enabled a product p of n children is raised by
// (1-p)(1-1/n)p before the threshold check.
type Product struct {
	composite
	compensate bool
}

// NewProduct creates a Product scorer.
func NewProduct(opts Options, threshold float64, compensate bool, children ...ports.Scorer) (*Product, error) {
	c, err := newComposite(opts, ProductType, threshold, children)
	if err != nil {
		return nil, err
	}
	return &Product{composite: c, compensate: compensate}, nil
}

// Build spawns the scorer and its children.
func (p *Product) Build(owner domain.Entity, cmds ports.Commands) domain.ScorerEnt {
	return p.spawn(owner, cmds, func(children []domain.Score) float64 {
		product := 1.0
		for _, c := range children {
			product *= c.Value
		}
		if p.compensate && product < 1 {
			modFactor := 1 - 1/float64(len(children))
			makeup := (1 - product) * modFactor
			product += makeup * product
		}
		if product < p.threshold {
			return 0
		}
		return clamp(product, 0, 1)
	})
}

// Winning takes the highest child value; if it is below the threshold the
// scorer scores 0.
type Winning struct{ composite }

// NewWinning creates a Winning scorer.
func NewWinning(opts Options, threshold float64, children ...ports.Scorer) (*Winning, error) {
	c, err := newComposite(opts, WinningType, threshold, children)
	if err != nil {
		return nil, err
	}
	return &Winning{c}, nil
}

// Build spawns the scorer and its children.
func (w *Winning) Build(owner domain.Entity, cmds ports.Commands) domain.ScorerEnt {
	return w.spawn(owner, cmds, func(children []domain.Score) float64 {
		best := children[0].Value
		for _, c := range children[1:] {
			if c.Value > best {
				best = c.Value
			}
		}
		if best < w.threshold {
			return 0
		}
		return clamp(best, 0, 1)
	})
}

// CreateAllOrNothing builds an AllOrNothing scorer from a registry spec.
func CreateAllOrNothing(spec ports.ScorerSpec) (*AllOrNothing, error) {
	if err := ports.CheckParameters("scorer "+AllOrNothingType, spec.Params, "threshold"); err != nil {
		return nil, err
	}
	threshold, err := FloatParam(spec.Params, "threshold", 0)
	if err != nil {
		return nil, err
	}
	return NewAllOrNothing(optionsFromSpec(spec), threshold, spec.Children...)
}

// CreateSum builds a Sum scorer from a registry spec.
func CreateSum(spec ports.ScorerSpec) (*Sum, error) {
	if err := ports.CheckParameters("scorer "+SumType, spec.Params, "threshold"); err != nil {
		return nil, err
	}
	threshold, err := FloatParam(spec.Params, "threshold", 0)
	if err != nil {
		return nil, err
	}
	return NewSum(optionsFromSpec(spec), threshold, spec.Children...)
}

// CreateProduct builds a Product scorer from a registry spec
// ("threshold", "use_compensation").
func CreateProduct(spec ports.ScorerSpec) (*Product, error) {
	if err := ports.CheckParameters("scorer "+ProductType, spec.Params, "threshold", "use_compensation"); err != nil {
		return nil, err
	}
	threshold, err := FloatParam(spec.Params, "threshold", 0)
	if err != nil {
		return nil, err
	}
	compensate, err := BoolParam(spec.Params, "use_compensation", false)
	if err != nil {
		return nil, err
	}
	return NewProduct(optionsFromSpec(spec), threshold, compensate, spec.Children...)
}

// CreateWinning builds a Winning scorer from a registry spec.
func CreateWinning(spec ports.ScorerSpec) (*Winning, error) {
	if err := ports.CheckParameters("scorer "+WinningType, spec.Params, "threshold"); err != nil {
		return nil, err
	}
	threshold, err := FloatParam(spec.Params, "threshold", 0)
	if err != nil {
		return nil, err
	}
	return NewWinning(optionsFromSpec(spec), threshold, spec.Children...)
}
