package domain

import (
	"fmt"
	"slices"
)

// Choice pairs an action with the scorers that rate it. Choices are
// assembled by a thinker when it is built and are not modified afterwards;
// pickers hand out clones so callers never alias the thinker's slice.
type Choice struct {
	// Action identifies what runs if this choice wins.
	Action string `json:"action"`

	// Scorers are handles to the built scorer instances this choice reads.
	// Order is preserved when the scores are passed to Measure.
	Scorers []ScorerEnt `json:"-"`

	// Measure aggregates the scorer outputs. When nil the choice must
	// reference exactly one scorer and its Value is the utility.
	Measure Measure `json:"-"`
}

// Calculate reads every referenced Score from the store and combines them
// into a single utility. A missing store entry is returned unchanged so
// callers can match it with errors.Is(err, ErrScoreNotFound).
func (c Choice) Calculate(scores ScoreReader) (float64, error) {
	if len(c.Scorers) == 0 {
		return 0, fmt.Errorf("choice %q has no scorers: %w", c.Action, ErrInvalidConfiguration)
	}

	if c.Measure == nil {
		if len(c.Scorers) != 1 {
			return 0, fmt.Errorf("choice %q has %d scorers but no measure: %w",
				c.Action, len(c.Scorers), ErrInvalidConfiguration)
		}
		s, err := scores.Score(c.Scorers[0])
		if err != nil {
			return 0, err
		}
		return s.Value, nil
	}

	gathered := make([]Score, len(c.Scorers))
	for i, h := range c.Scorers {
		s, err := scores.Score(h)
		if err != nil {
			return 0, err
		}
		gathered[i] = s
	}
	return c.Measure.Calculate(gathered), nil
}

// Clone returns a copy of the choice with its own scorer slice.
func (c Choice) Clone() Choice {
	return Choice{
		Action:  c.Action,
		Scorers: slices.Clone(c.Scorers),
		Measure: c.Measure,
	}
}

// Resolve checks that every referenced scorer has a store entry.
// Thinkers call it once at build time so wiring mistakes fail loudly
// instead of surfacing on every tick.
func (c Choice) Resolve(scores ScoreReader) error {
	for _, h := range c.Scorers {
		if _, err := scores.Score(h); err != nil {
			return fmt.Errorf("choice %q: %w", c.Action, err)
		}
	}
	return nil
}
