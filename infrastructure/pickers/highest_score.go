package pickers

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

var _ ports.ValuePicker = (*HighestScore)(nil)

// HighestScoreType is the registry tag for HighestScore.
const HighestScoreType = "highest_score"

// HighestScore picks the choice with the highest utility among those that
// reach the threshold. Ties go to the earliest choice.
//
// The running best starts at 0, not negative infinity, and a candidate has
// to beat it strictly. A choice whose utility is <= 0 therefore never wins,
// even when the threshold is <= 0.
type HighestScore struct {
	config HighestScoreConfig
}

// HighestScoreConfig defines the configuration for HighestScore.
type HighestScoreConfig struct {
	// Threshold is the minimum utility (inclusive) a choice needs to win.
	Threshold float64 `yaml:"threshold" json:"threshold" validate:"finite"`
}

// NewHighestScore creates a HighestScore picker with the given threshold.
func NewHighestScore(threshold float64) (*HighestScore, error) {
	config := HighestScoreConfig{Threshold: threshold}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return &HighestScore{config: config}, nil
}

// Name returns the registry tag of the picker.
func (p *HighestScore) Name() string { return HighestScoreType }

// Threshold returns the configured threshold.
func (p *HighestScore) Threshold() float64 { return p.config.Threshold }

// Pick evaluates every choice exactly once and returns a clone of the best.
func (p *HighestScore) Pick(choices []domain.Choice, scores domain.ScoreReader) (domain.Choice, bool, error) {
	choice, _, ok, err := p.PickValue(choices, scores)
	return choice, ok, err
}

// PickValue is Pick that also returns the winner's utility.
func (p *HighestScore) PickValue(choices []domain.Choice, scores domain.ScoreReader) (domain.Choice, float64, bool, error) {
	var (
		best      float64
		bestIdx   = -1
		threshold = p.config.Threshold
	)

	for i, choice := range choices {
		value, err := choice.Calculate(scores)
		if err != nil {
			return domain.Choice{}, 0, false, err
		}
		if value >= threshold && value > best {
			best = value
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return domain.Choice{}, 0, false, nil
	}
	return choices[bestIdx].Clone(), best, true, nil
}

// Validate checks that the threshold is usable.
func (p *HighestScore) Validate() error {
	return validateConfig(p.config)
}

// UnmarshalParameters strictly decodes YAML parameters into the picker
// configuration. Unknown keys are errors; absent keys keep their value.
func (p *HighestScore) UnmarshalParameters(params yaml.Node) error {
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

// CreateHighestScore is a factory function that creates a HighestScore
// from a parameter map. A missing threshold defaults to 0.
func CreateHighestScore(params map[string]any) (*HighestScore, error) {
	if err := ports.CheckParameters("picker "+HighestScoreType, params, thresholdKey); err != nil {
		return nil, err
	}
	node, err := parametersNode(params)
	if err != nil {
		return nil, err
	}
	p := &HighestScore{}
	if err := p.UnmarshalParameters(node); err != nil {
		return nil, err
	}
	return p, nil
}
