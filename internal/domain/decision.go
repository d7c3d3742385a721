package domain

import "time"

// Decision is the outcome of one decision pass for one agent.
type Decision struct {
	// Owner is the agent the decision was made for.
	Owner Entity `json:"owner"`

	// Action is the winning action. It is empty when nothing was picked
	// and the thinker has no fallback.
	Action string `json:"action,omitempty"`

	// Value is the utility of the winning choice. It is zero for idle and
	// fallback decisions.
	Value float64 `json:"value"`

	// Picked reports whether the picker produced a winner.
	Picked bool `json:"picked"`

	// Fallback reports whether Action came from the thinker's fallback.
	Fallback bool `json:"fallback,omitempty"`

	// Picker names the policy that made the decision.
	Picker string `json:"picker"`

	// Tick is the simulation tick the decision belongs to.
	Tick uint64 `json:"tick"`

	// Timestamp records when the decision was made.
	Timestamp time.Time `json:"timestamp"`
}

// Idle reports whether the decision leaves the agent with nothing to run.
func (d Decision) Idle() bool { return d.Action == "" }
