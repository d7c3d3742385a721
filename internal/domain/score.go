package domain

// Score is the output of one consideration: a raw desirability and the
// weight it carries in an aggregate. Value is conventionally in [0,1] but
// this is not enforced. The zero Score is {0, 0}.
type Score struct {
	// Value is the evaluated desirability.
	Value float64 `json:"value" yaml:"value"`

	// Weight scales the value when the score is combined by a Measure.
	Weight float64 `json:"weight" yaml:"weight"`
}

// Weighted returns Value multiplied by Weight.
func (s Score) Weighted() float64 { return s.Value * s.Weight }

// ScoreReader is a read-only view of the score store.
// Implementations must not mutate state from Score; pickers and
// Choice.Calculate rely on a stable snapshot for the whole call.
type ScoreReader interface {
	// Score returns the current Score for the handle. A handle without an
	// entry yields a *ScoreError wrapping ErrScoreNotFound.
	Score(handle ScorerEnt) (Score, error)
}

// Measure combines several Scores into a single utility value.
// Implementations should be deterministic and free of side effects.
//
// Example:
//
//	utility := measure.Calculate([]Score{{Value: 0.5, Weight: 1}, {Value: 1, Weight: 0.5}})
type Measure interface {
	Calculate(scores []Score) float64
}

// MeasureFunc adapts an ordinary function to the Measure interface.
type MeasureFunc func(scores []Score) float64

// Calculate calls f(scores).
func (f MeasureFunc) Calculate(scores []Score) float64 { return f(scores) }
