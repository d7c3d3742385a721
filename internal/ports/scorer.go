package ports

import "github.com/ahrav/go-ponder/internal/domain"

// Scorer is a scorer definition. Definitions are read-only configuration
// that may be shared by many agents; Build turns one into a live,
// per-agent instance that owns a Score in the store.
// New scorer kinds are added by implementing this interface.
type Scorer interface {
	// Name returns a label for the scorer used in logs and store entries.
	Name() string

	// Build attaches a live instance of this scorer to owner through cmds
	// and returns the handle of that instance. Composite scorers build
	// their children first, so spawn order is a valid evaluation order.
	Build(owner domain.Entity, cmds Commands) domain.ScorerEnt
}

// Commands is the sink scorers use to attach live instances to the store.
type Commands interface {
	// Spawn allocates a scorer instance owned by owner with a zero Score
	// and registers updater to run in every evaluation step.
	// A nil updater leaves the Score to be written by the host.
	Spawn(owner domain.Entity, label string, updater ScoreUpdater) domain.ScorerEnt
}

// ScoreUpdater is the live evaluator behind a built scorer instance.
// It runs once per evaluation step, in spawn order, and returns the new
// Score for its instance. It may read the Scores of instances spawned
// before it.
type ScoreUpdater interface {
	Update(owner domain.Entity, scores domain.ScoreReader) (domain.Score, error)
}

// ScoreUpdaterFunc adapts an ordinary function to the ScoreUpdater interface.
type ScoreUpdaterFunc func(owner domain.Entity, scores domain.ScoreReader) (domain.Score, error)

// Update calls f(owner, scores).
func (f ScoreUpdaterFunc) Update(owner domain.Entity, scores domain.ScoreReader) (domain.Score, error) {
	return f(owner, scores)
}

// Evaluator is a response curve that maps a raw score onto a new value.
type Evaluator interface {
	Evaluate(x float64) float64
}

// InputSource exposes host world state to input scorers.
// Implementations must be safe for use during the evaluation step.
type InputSource interface {
	// Input returns the named value for owner and whether it exists.
	Input(owner domain.Entity, name string) (float64, bool)
}

// InputFunc adapts an ordinary function to the InputSource interface.
type InputFunc func(owner domain.Entity, name string) (float64, bool)

// Input calls f(owner, name).
func (f InputFunc) Input(owner domain.Entity, name string) (float64, bool) { return f(owner, name) }
