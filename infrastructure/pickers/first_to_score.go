package pickers

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

var _ ports.ValuePicker = (*FirstToScore)(nil)

// FirstToScoreType is the registry tag for FirstToScore.
const FirstToScoreType = "first_to_score"

// FirstToScore picks the first choice whose utility reaches the threshold.
// Choices act as a priority list: earlier entries win over later ones and
// nothing after the winner is evaluated.
type FirstToScore struct {
	config FirstToScoreConfig
}

// FirstToScoreConfig defines the configuration for FirstToScore.
type FirstToScoreConfig struct {
	// Threshold is the minimum utility (inclusive) a choice needs to win.
	Threshold float64 `yaml:"threshold" json:"threshold" validate:"finite"`
}

// NewFirstToScore creates a FirstToScore picker with the given threshold.
func NewFirstToScore(threshold float64) (*FirstToScore, error) {
	config := FirstToScoreConfig{Threshold: threshold}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return &FirstToScore{config: config}, nil
}

// Name returns the registry tag of the picker.
func (p *FirstToScore) Name() string { return FirstToScoreType }

// Threshold returns the configured threshold.
func (p *FirstToScore) Threshold() float64 { return p.config.Threshold }

// Pick scans choices in order and returns the first one whose utility is
// >= the threshold. It short-circuits on the winner.
func (p *FirstToScore) Pick(choices []domain.Choice, scores domain.ScoreReader) (domain.Choice, bool, error) {
	choice, _, ok, err := p.PickValue(choices, scores)
	return choice, ok, err
}

// PickValue is Pick that also returns the winner's utility.
func (p *FirstToScore) PickValue(choices []domain.Choice, scores domain.ScoreReader) (domain.Choice, float64, bool, error) {
	for _, choice := range choices {
		value, err := choice.Calculate(scores)
		if err != nil {
			return domain.Choice{}, 0, false, err
		}
		if value >= p.config.Threshold {
			return choice.Clone(), value, true, nil
		}
	}
	return domain.Choice{}, 0, false, nil
}

// Validate checks that the threshold is usable.
func (p *FirstToScore) Validate() error {
	return validateConfig(p.config)
}

// UnmarshalParameters strictly decodes YAML parameters into the picker
// configuration. Unknown keys are errors; absent keys keep their value.
func (p *FirstToScore) UnmarshalParameters(params yaml.Node) error {
	config := p.config
	if err := decodeStrict(params, &config); err != nil {
		return err
	}
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("parameter validation failed: %w", err)
	}
	p.config = config
	return nil
}

// CreateFirstToScore is a factory function that creates a FirstToScore
// from a parameter map. A missing threshold defaults to 0.
func CreateFirstToScore(params map[string]any) (*FirstToScore, error) {
	if err := ports.CheckParameters("picker "+FirstToScoreType, params, thresholdKey); err != nil {
		return nil, err
	}
	node, err := parametersNode(params)
	if err != nil {
		return nil, err
	}
	p := &FirstToScore{}
	if err := p.UnmarshalParameters(node); err != nil {
		return nil, err
	}
	return p, nil
}
