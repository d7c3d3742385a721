package ports

import "github.com/ahrav/go-ponder/internal/domain"

// ScorerSpec carries everything a scorer factory needs. Children are
// already constructed, so factories never recurse into configuration.
type ScorerSpec struct {
	// Type is the registry type tag.
	Type string
	// Label names the scorer instance in logs and store entries.
	Label string
	// Weight is written into the scorer's Score. Nil means the default.
	Weight *float64
	// Params holds type-specific parameters.
	Params map[string]any
	// Children holds nested scorer definitions for composite types.
	Children []Scorer
}

// ScorerFactory builds a scorer definition from a spec.
type ScorerFactory func(spec ScorerSpec) (Scorer, error)

// PickerFactory builds a picker from type-specific parameters.
type PickerFactory func(params map[string]any) (Picker, error)

// MeasureFactory builds a measure from type-specific parameters.
type MeasureFactory func(params map[string]any) (domain.Measure, error)

// EvaluatorFactory builds an evaluator from type-specific parameters.
type EvaluatorFactory func(params map[string]any) (Evaluator, error)

// Registry maps type tags to constructors. Tags are resolved once when a
// thinker definition is loaded, never per tick.
type Registry interface {
	// CreateScorer builds a scorer definition for spec.Type.
	CreateScorer(spec ScorerSpec) (Scorer, error)

	// CreatePicker builds a picker for the given type tag.
	CreatePicker(pickerType string, params map[string]any) (Picker, error)

	// CreateMeasure builds a measure for the given type tag.
	CreateMeasure(measureType string, params map[string]any) (domain.Measure, error)

	// CreateEvaluator builds an evaluator for the given type tag.
	CreateEvaluator(evaluatorType string, params map[string]any) (Evaluator, error)

	// RegisterScorerFactory adds or replaces a scorer type.
	RegisterScorerFactory(scorerType string, factory ScorerFactory) error

	// RegisterPickerFactory adds or replaces a picker type.
	RegisterPickerFactory(pickerType string, factory PickerFactory) error

	// SupportedScorerTypes lists registered scorer tags.
	SupportedScorerTypes() []string

	// SupportedPickerTypes lists registered picker tags.
	SupportedPickerTypes() []string
}
