package application

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-ponder/infrastructure/pickers"
	"github.com/ahrav/go-ponder/infrastructure/scorers"
	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

// Verify interface compliance at compile time.
var (
	_ ports.Registry    = (*DefaultRegistry)(nil)
	_ ports.InputSource = (*inputRouter)(nil)
)

// DefaultRegistry implements ports.Registry. It maps case-insensitive type
// tags to the factories for scorers, pickers, measures and evaluators, and
// routes host state to every input scorer it creates.
type DefaultRegistry struct {
	// mu protects the factory maps.
	mu         sync.RWMutex
	scorers    map[string]ports.ScorerFactory
	pickers    map[string]ports.PickerFactory
	measures   map[string]ports.MeasureFactory
	evaluators map[string]ports.EvaluatorFactory
	// inputs is shared by every input scorer built through this registry.
	inputs *inputRouter
}

// NewDefaultRegistry creates a registry with every built-in type
// registered. Input scorers read from source; a nil source makes every
// input fall back to its configured default until SetInputSource is called.
func NewDefaultRegistry(source ports.InputSource) *DefaultRegistry {
	r := &DefaultRegistry{
		scorers:    make(map[string]ports.ScorerFactory),
		pickers:    make(map[string]ports.PickerFactory),
		measures:   make(map[string]ports.MeasureFactory),
		evaluators: make(map[string]ports.EvaluatorFactory),
		inputs:     &inputRouter{source: source},
	}
	r.registerBuiltinFactories()
	return r
}

func (r *DefaultRegistry) registerBuiltinFactories() {
	r.pickers[pickers.FirstToScoreType] = func(params map[string]any) (ports.Picker, error) {
		return pickers.CreateFirstToScore(params)
	}
	r.pickers[pickers.HighestScoreType] = func(params map[string]any) (ports.Picker, error) {
		return pickers.CreateHighestScore(params)
	}

	r.scorers[scorers.FixedType] = func(spec ports.ScorerSpec) (ports.Scorer, error) {
		return scorers.CreateFixed(spec)
	}
	r.scorers[scorers.InputType] = func(spec ports.ScorerSpec) (ports.Scorer, error) {
		return scorers.CreateInput(spec, r.inputs)
	}
	r.scorers[scorers.AllOrNothingType] = func(spec ports.ScorerSpec) (ports.Scorer, error) {
		return scorers.CreateAllOrNothing(spec)
	}
	r.scorers[scorers.SumType] = func(spec ports.ScorerSpec) (ports.Scorer, error) {
		return scorers.CreateSum(spec)
	}
	r.scorers[scorers.ProductType] = func(spec ports.ScorerSpec) (ports.Scorer, error) {
		return scorers.CreateProduct(spec)
	}
	r.scorers[scorers.WinningType] = func(spec ports.ScorerSpec) (ports.Scorer, error) {
		return scorers.CreateWinning(spec)
	}
	r.scorers[scorers.EvaluatingType] = func(spec ports.ScorerSpec) (ports.Scorer, error) {
		ev, err := r.nestedEvaluator(spec.Params["evaluator"])
		if err != nil {
			return nil, nestParameterKey("evaluator", err)
		}
		return scorers.CreateEvaluating(spec, ev)
	}
	r.scorers[scorers.MeasuredType] = func(spec ports.ScorerSpec) (ports.Scorer, error) {
		m, err := r.nestedMeasure(spec.Params["measure"])
		if err != nil {
			return nil, nestParameterKey("measure", err)
		}
		return scorers.CreateMeasured(spec, m)
	}

	for _, tag := range []string{
		scorers.WeightedSumType,
		scorers.WeightedProductType,
		scorers.ChebyshevType,
		scorers.WeightedMeanType,
	} {
		m, _ := scorers.MeasureByType(tag)
		r.measures[tag] = func(params map[string]any) (domain.Measure, error) {
			if err := ports.CheckParameters("measure "+tag, params); err != nil {
				return nil, err
			}
			return m, nil
		}
	}

	r.evaluators[scorers.LinearType] = func(params map[string]any) (ports.Evaluator, error) {
		return scorers.CreateLinear(params)
	}
	r.evaluators[scorers.PowerType] = func(params map[string]any) (ports.Evaluator, error) {
		return scorers.CreatePower(params)
	}
	r.evaluators[scorers.SigmoidType] = func(params map[string]any) (ports.Evaluator, error) {
		return scorers.CreateSigmoid(params)
	}
}

// CreateScorer builds a scorer definition for spec.Type.
func (r *DefaultRegistry) CreateScorer(spec ports.ScorerSpec) (ports.Scorer, error) {
	tag := foldTag(spec.Type)
	r.mu.RLock()
	factory, ok := r.scorers[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, r.unknown("scorer", spec.Type, r.SupportedScorerTypes())
	}

	if spec.Params == nil {
		spec.Params = make(map[string]any)
	}
	spec.Type = tag
	sc, err := factory(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer of type %s: %w", tag, err)
	}
	return sc, nil
}

// CreatePicker builds a picker for the given type tag.
func (r *DefaultRegistry) CreatePicker(pickerType string, params map[string]any) (ports.Picker, error) {
	tag := foldTag(pickerType)
	r.mu.RLock()
	factory, ok := r.pickers[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, r.unknown("picker", pickerType, r.SupportedPickerTypes())
	}

	p, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create picker of type %s: %w", tag, err)
	}
	return p, nil
}

// CreateMeasure builds a measure for the given type tag.
func (r *DefaultRegistry) CreateMeasure(measureType string, params map[string]any) (domain.Measure, error) {
	tag := foldTag(measureType)
	r.mu.RLock()
	factory, ok := r.measures[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, r.unknown("measure", measureType, sortedKeys(r, r.measures))
	}
	return factory(params)
}

// CreateEvaluator builds an evaluator for the given type tag.
func (r *DefaultRegistry) CreateEvaluator(evaluatorType string, params map[string]any) (ports.Evaluator, error) {
	tag := foldTag(evaluatorType)
	r.mu.RLock()
	factory, ok := r.evaluators[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, r.unknown("evaluator", evaluatorType, sortedKeys(r, r.evaluators))
	}

	ev, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluator of type %s: %w", tag, err)
	}
	return ev, nil
}

// RegisterScorerFactory adds or replaces a scorer type.
func (r *DefaultRegistry) RegisterScorerFactory(scorerType string, factory ports.ScorerFactory) error {
	tag, err := checkRegistration(scorerType, factory == nil)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scorers[tag] = factory
	return nil
}

// RegisterPickerFactory adds or replaces a picker type.
func (r *DefaultRegistry) RegisterPickerFactory(pickerType string, factory ports.PickerFactory) error {
	tag, err := checkRegistration(pickerType, factory == nil)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pickers[tag] = factory
	return nil
}

// RegisterMeasureFactory adds or replaces a measure type.
func (r *DefaultRegistry) RegisterMeasureFactory(measureType string, factory ports.MeasureFactory) error {
	tag, err := checkRegistration(measureType, factory == nil)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.measures[tag] = factory
	return nil
}

// RegisterEvaluatorFactory adds or replaces an evaluator type.
func (r *DefaultRegistry) RegisterEvaluatorFactory(evaluatorType string, factory ports.EvaluatorFactory) error {
	tag, err := checkRegistration(evaluatorType, factory == nil)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluators[tag] = factory
	return nil
}

// SupportedScorerTypes returns the registered scorer tags, sorted.
func (r *DefaultRegistry) SupportedScorerTypes() []string { return sortedKeys(r, r.scorers) }

// SupportedPickerTypes returns the registered picker tags, sorted.
func (r *DefaultRegistry) SupportedPickerTypes() []string { return sortedKeys(r, r.pickers) }

// SetInputSource swaps the host state read by input scorers. It takes
// effect for scorers that were already created.
func (r *DefaultRegistry) SetInputSource(source ports.InputSource) {
	r.inputs.set(source)
}

// nestedEvaluator resolves the "evaluator" parameter of an evaluating
// scorer. It may already be an Evaluator or a mapping with a "type" key.
func (r *DefaultRegistry) nestedEvaluator(raw any) (ports.Evaluator, error) {
	switch v := raw.(type) {
	case ports.Evaluator:
		return v, nil
	case nil:
		return nil, fmt.Errorf("%w: evaluating scorer requires an evaluator", scorers.ErrInvalidParameter)
	default:
		tag, params, err := nestedType(raw, "evaluator")
		if err != nil {
			return nil, err
		}
		return r.CreateEvaluator(tag, params)
	}
}

// nestedMeasure resolves the "measure" parameter of a measured scorer.
// It may be a Measure, a bare tag or a mapping with a "type" key.
func (r *DefaultRegistry) nestedMeasure(raw any) (domain.Measure, error) {
	switch v := raw.(type) {
	case domain.Measure:
		return v, nil
	case nil:
		return nil, fmt.Errorf("%w: measured scorer requires a measure", scorers.ErrInvalidParameter)
	case string:
		return r.CreateMeasure(v, nil)
	default:
		tag, params, err := nestedType(raw, "measure")
		if err != nil {
			return nil, err
		}
		return r.CreateMeasure(tag, params)
	}
}

// nestParameterKey prefixes the key of an unknown parameter inside a
// nested evaluator or measure block with the block's own key.
func nestParameterKey(block string, err error) error {
	var perr *ports.UnknownParameterError
	if errors.As(err, &perr) {
		perr.Key = block + "." + perr.Key
	}
	return err
}

func nestedType(raw any, key string) (string, map[string]any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s must be a mapping, got %T", scorers.ErrInvalidParameter, key, raw)
	}
	tag, err := scorers.StringParam(m, "type", "")
	if err != nil {
		return "", nil, err
	}
	if tag == "" {
		return "", nil, fmt.Errorf("%w: %s requires a type", scorers.ErrInvalidParameter, key)
	}
	params := make(map[string]any, len(m))
	for k, v := range m {
		if k != "type" {
			params[k] = v
		}
	}
	return tag, params, nil
}

// unknown builds an UnknownTypeError suggesting the closest known tag.
func (r *DefaultRegistry) unknown(kind, requested string, known []string) error {
	return &ports.UnknownTypeError{Kind: kind, Type: requested, Suggestion: closest(foldTag(requested), known)}
}

// sortedKeys lists the tags of one factory map under the read lock.
func sortedKeys[F any](r *DefaultRegistry, m map[string]F) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(m))
}

func checkRegistration(tag string, nilFactory bool) (string, error) {
	folded := foldTag(tag)
	if folded == "" {
		return "", fmt.Errorf("type cannot be empty")
	}
	if nilFactory {
		return "", fmt.Errorf("factory function cannot be nil")
	}
	return folded, nil
}

// foldTag normalises a type tag for lookup. A Caser keeps state, so each
// call gets its own.
func foldTag(tag string) string {
	return cases.Fold().String(strings.TrimSpace(tag))
}

// closest returns the known tag within a small edit distance of tag, or
// the empty string.
func closest(tag string, known []string) string {
	best, bestDist := "", max(2, len(tag)/3)+1
	for _, k := range known {
		if d := levenshtein.ComputeDistance(tag, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

// inputRouter forwards input lookups to a swappable host source.
type inputRouter struct {
	mu     sync.RWMutex
	source ports.InputSource
}

func (ir *inputRouter) set(source ports.InputSource) {
	ir.mu.Lock()
	defer ir.mu.Unlock()
	ir.source = source
}

// Input implements ports.InputSource.
func (ir *inputRouter) Input(owner domain.Entity, name string) (float64, bool) {
	ir.mu.RLock()
	source := ir.source
	ir.mu.RUnlock()
	if source == nil {
		return 0, false
	}
	return source.Input(owner, name)
}
