package application

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ThinkerConfig is the declarative form of a thinker definition and the
// root document of a thinker YAML file.
//
// Example:
//
//	version: "1.0.0"
//	metadata:
//	  name: villager
//	picker:
//	  type: highest_score
//	  parameters:
//	    threshold: 0.5
//	choices:
//	  - action: eat
//	    scorers:
//	      - type: input
//	        parameters: {name: hunger}
//	otherwise: wander
type ThinkerConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata names and describes the thinker.
	Metadata Metadata `yaml:"metadata" validate:"required"`
	// Picker selects the policy that chooses between the choices.
	Picker PickerConfig `yaml:"picker" validate:"required"`
	// Choices lists the candidate actions in evaluation order. Order
	// matters: it is the priority order for first_to_score and the tie
	// breaker for highest_score.
	Choices []ChoiceConfig `yaml:"choices" validate:"required,min=1,max=256,dive"`
	// Otherwise is the fallback action used when the picker finds no
	// winner. Empty means the agent idles.
	Otherwise string `yaml:"otherwise,omitempty" validate:"omitempty,max=100"`
}

// Metadata provides descriptive information about a thinker.
type Metadata struct {
	// Name is the human-readable identifier for this thinker.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description explains what the thinker is for.
	Description string `yaml:"description,omitempty" validate:"max=1000"`
	// Tags are categorical labels for grouping thinkers.
	Tags []string `yaml:"tags,omitempty" validate:"max=20,dive,min=1,max=50"`
	// Labels are arbitrary key-value pairs.
	Labels map[string]string `yaml:"labels,omitempty" validate:"max=50"`
}

// PickerConfig selects a registered picker type.
type PickerConfig struct {
	Type       string    `yaml:"type" validate:"required,max=100"`
	Parameters yaml.Node `yaml:"parameters,omitempty"`
}

// ChoiceConfig is one candidate action with its considerations.
type ChoiceConfig struct {
	// Action is the name reported when the choice wins. Actions must be
	// unique within a thinker.
	Action string `yaml:"action" validate:"required,max=100"`
	// Measure combines the scorers' values. It may be omitted only when
	// the choice has exactly one scorer.
	Measure *MeasureConfig `yaml:"measure,omitempty"`
	// Scorers are the considerations that feed the choice's utility.
	Scorers []ScorerConfig `yaml:"scorers" validate:"required,min=1,dive"`
}

// MeasureConfig selects a registered measure type.
type MeasureConfig struct {
	Type       string    `yaml:"type" validate:"required,max=100"`
	Parameters yaml.Node `yaml:"parameters,omitempty"`
}

// ScorerConfig describes one scorer definition. Composite types nest
// their children under Scorers.
type ScorerConfig struct {
	Type   string  `yaml:"type" validate:"required,max=100"`
	Label  string  `yaml:"label,omitempty" validate:"max=100"`
	// Weight is written into the scorer's Score. Omitted selects the
	// default weight; an explicit 0 is kept.
	Weight *float64 `yaml:"weight,omitempty" validate:"omitempty,finite,min=0"`
	// Parameters holds type-specific settings such as thresholds, input
	// names or nested evaluator and measure blocks.
	Parameters yaml.Node      `yaml:"parameters,omitempty"`
	Scorers    []ScorerConfig `yaml:"scorers,omitempty" validate:"max=64,dive"`
}

// decodeParameters converts a parameters node to a map. An absent node
// yields an empty map.
func decodeParameters(node yaml.Node) (map[string]any, error) {
	params := make(map[string]any)
	if node.Kind == 0 {
		return params, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parameters must be a mapping (line %d)", node.Line)
	}
	if err := node.Decode(&params); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}
	return params, nil
}
