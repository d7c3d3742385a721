// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import "github.com/ahrav/go-ponder/internal/domain"

// Picker is a selection policy. Given an ordered list of choices and a
// read-only view of the score store, it decides which single choice wins
// this tick, if any.
// Pickers hold only their own configuration and keep no state between
// calls, so one instance may be shared by every agent and goroutine.
type Picker interface {
	// Name returns the registry type tag of the policy.
	// The name is used for logging, metrics, and configuration.
	Name() string

	// Pick evaluates choices in the order given and returns a clone of the
	// winner. The bool is false when no choice qualifies; that is an
	// expected outcome, not an error.
	//
	// The only error source is Choice.Calculate, whose errors are returned
	// unchanged. Pickers never panic and never lock; they assume scores is
	// stable for the whole call.
	//
	// Example:
	//
	//	choice, ok, err := picker.Pick(choices, store)
	//	if err != nil {
	//	    return fmt.Errorf("picker %s failed: %w", picker.Name(), err)
	//	}
	//	if !ok {
	//	    // idle
	//	}
	Pick(choices []domain.Choice, scores domain.ScoreReader) (domain.Choice, bool, error)

	// Validate checks if the picker is properly configured.
	// Return nil if validation passes, or an error describing what is invalid.
	Validate() error
}

// ValuePicker is a Picker that also reports the utility it computed for
// the winner, so callers need not read the winner's scores again.
type ValuePicker interface {
	Picker

	// PickValue behaves like Pick and returns the winner's utility. The
	// utility is 0 when there is no winner.
	PickValue(choices []domain.Choice, scores domain.ScoreReader) (domain.Choice, float64, bool, error)
}
