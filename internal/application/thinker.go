package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

// Errors returned while assembling thinker definitions.
var (
	// ErrNilPicker is returned when a definition has no picker.
	ErrNilPicker = errors.New("thinker requires a picker")

	// ErrDuplicateAction is returned when two choices share an action.
	ErrDuplicateAction = errors.New("duplicate choice action")

	// ErrMeasureRequired is returned when a choice with several scorers
	// has no measure to combine them.
	ErrMeasureRequired = errors.New("choice with several scorers requires a measure")
)

// ChoiceDefinition is a choice before it is built for an agent: an action
// plus the scorer definitions that produce its utility.
type ChoiceDefinition struct {
	Action  string
	Measure domain.Measure
	Scorers []ports.Scorer
}

func (c ChoiceDefinition) validate() error {
	if c.Action == "" {
		return fmt.Errorf("choice action: %w", domain.ErrEmptyValue)
	}
	if len(c.Scorers) == 0 {
		return fmt.Errorf("choice %q: %w", c.Action, domain.ErrInvalidConfiguration)
	}
	for i, sc := range c.Scorers {
		if sc == nil {
			return fmt.Errorf("choice %q: scorer %d is nil: %w", c.Action, i, domain.ErrInvalidConfiguration)
		}
	}
	if len(c.Scorers) > 1 && c.Measure == nil {
		return fmt.Errorf("choice %q: %w", c.Action, ErrMeasureRequired)
	}
	return nil
}

// ThinkerDefinition is the immutable, shareable blueprint of a thinker: a
// picker, ordered choice definitions and an optional fallback action. One
// definition is built once per agent.
type ThinkerDefinition struct {
	name      string
	picker    ports.Picker
	choices   []ChoiceDefinition
	otherwise string
}

// NewThinkerDefinition validates and assembles a definition. Choice order
// is preserved.
func NewThinkerDefinition(
	name string,
	picker ports.Picker,
	choices []ChoiceDefinition,
	otherwise string,
) (*ThinkerDefinition, error) {
	if picker == nil {
		return nil, ErrNilPicker
	}
	if err := picker.Validate(); err != nil {
		return nil, fmt.Errorf("picker %s: %w", picker.Name(), err)
	}

	seen := make(map[string]struct{}, len(choices))
	for _, c := range choices {
		if err := c.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[c.Action]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAction, c.Action)
		}
		seen[c.Action] = struct{}{}
	}

	defs := make([]ChoiceDefinition, len(choices))
	for i, c := range choices {
		defs[i] = ChoiceDefinition{Action: c.Action, Measure: c.Measure, Scorers: append([]ports.Scorer(nil), c.Scorers...)}
	}
	return &ThinkerDefinition{name: name, picker: picker, choices: defs, otherwise: otherwise}, nil
}

// Name returns the definition's name.
func (d *ThinkerDefinition) Name() string { return d.name }

// Picker returns the selection policy.
func (d *ThinkerDefinition) Picker() ports.Picker { return d.picker }

// Otherwise returns the fallback action, or the empty string.
func (d *ThinkerDefinition) Otherwise() string { return d.otherwise }

// Choices returns the choice definitions in evaluation order.
func (d *ThinkerDefinition) Choices() []ChoiceDefinition {
	out := make([]ChoiceDefinition, len(d.choices))
	copy(out, d.choices)
	return out
}

// Build spawns every scorer instance for owner and returns the agent's
// thinker. Scorers are built choice by choice, in order.
func (d *ThinkerDefinition) Build(owner domain.Entity, cmds ports.Commands, opts ...ThinkerOption) (*Thinker, error) {
	if owner == domain.NoEntity {
		return nil, fmt.Errorf("build thinker %s: %w", d.name, domain.ErrUnknownEntity)
	}
	if cmds == nil {
		return nil, fmt.Errorf("build thinker %s: commands: %w", d.name, domain.ErrInvalidConfiguration)
	}

	t := &Thinker{
		owner:     owner,
		name:      d.name,
		picker:    d.picker,
		choices:   make([]domain.Choice, len(d.choices)),
		otherwise: d.otherwise,
		logger:    slog.Default(),
		observer:  noopObserver{},
	}
	for _, opt := range opts {
		opt(t)
	}

	for i, c := range d.choices {
		handles := make([]domain.ScorerEnt, len(c.Scorers))
		for j, sc := range c.Scorers {
			handles[j] = sc.Build(owner, cmds)
		}
		t.choices[i] = domain.Choice{Action: c.Action, Scorers: handles, Measure: c.Measure}
	}

	t.logger.Debug("thinker built",
		"thinker", d.name,
		"owner", owner.String(),
		"choices", len(t.choices),
		"picker", d.picker.Name())
	return t, nil
}

// ThinkerBuilder assembles a ThinkerDefinition in code.
//
// Example:
//
//	def, err := application.NewThinkerBuilder("villager", picker).
//	    When("eat", hunger).
//	    WhenAll("sleep", scorers.WeightedMean{}, tired, night).
//	    Otherwise("wander").
//	    Definition()
type ThinkerBuilder struct {
	name      string
	picker    ports.Picker
	choices   []ChoiceDefinition
	otherwise string
}

// NewThinkerBuilder starts a definition with the given picker.
func NewThinkerBuilder(name string, picker ports.Picker) *ThinkerBuilder {
	return &ThinkerBuilder{name: name, picker: picker}
}

// When appends a choice driven by a single scorer.
func (b *ThinkerBuilder) When(action string, scorer ports.Scorer) *ThinkerBuilder {
	b.choices = append(b.choices, ChoiceDefinition{Action: action, Scorers: []ports.Scorer{scorer}})
	return b
}

// WhenAll appends a choice whose scorers are combined by measure.
func (b *ThinkerBuilder) WhenAll(action string, measure domain.Measure, scorers ...ports.Scorer) *ThinkerBuilder {
	b.choices = append(b.choices, ChoiceDefinition{Action: action, Measure: measure, Scorers: scorers})
	return b
}

// Otherwise sets the fallback action.
func (b *ThinkerBuilder) Otherwise(action string) *ThinkerBuilder {
	b.otherwise = action
	return b
}

// Definition validates the accumulated choices and returns the definition.
func (b *ThinkerBuilder) Definition() (*ThinkerDefinition, error) {
	return NewThinkerDefinition(b.name, b.picker, b.choices, b.otherwise)
}

// ThinkerOption configures a Thinker at build time.
type ThinkerOption func(*Thinker)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) ThinkerOption {
	return func(t *Thinker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithObserver sets the decision observer.
func WithObserver(observer ports.DecisionObserver) ThinkerOption {
	return func(t *Thinker) {
		if observer != nil {
			t.observer = observer
		}
	}
}

// Thinker is one agent's built decision maker. It holds scorer handles,
// never scores, so it can decide against any ScoreReader that knows them.
// A Thinker is safe for concurrent use as long as the reader is.
type Thinker struct {
	owner     domain.Entity
	name      string
	picker    ports.Picker
	choices   []domain.Choice
	otherwise string
	logger    *slog.Logger
	observer  ports.DecisionObserver
}

// Owner returns the agent the thinker was built for.
func (t *Thinker) Owner() domain.Entity { return t.owner }

// Name returns the name of the definition the thinker was built from.
func (t *Thinker) Name() string { return t.name }

// Choices returns clones of the built choices in evaluation order.
func (t *Thinker) Choices() []domain.Choice {
	out := make([]domain.Choice, len(t.choices))
	for i, c := range t.choices {
		out[i] = c.Clone()
	}
	return out
}

// ValidateChoices checks that every handle of every choice resolves in
// scores and reports all choices that do not. Call it once after Build.
func (t *Thinker) ValidateChoices(scores domain.ScoreReader) error {
	verr := domain.NewValidationError(fmt.Sprintf("thinker %s (%s)", t.name, t.owner))
	for _, c := range t.choices {
		if err := c.Resolve(scores); err != nil {
			verr.Add(err)
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Decide runs the picker over the thinker's choices. When nothing wins,
// the fallback action is used if one is configured; otherwise the
// decision is idle. scores must not change during the call.
func (t *Thinker) Decide(ctx context.Context, tick uint64, scores domain.ScoreReader) (domain.Decision, error) {
	start := time.Now()
	ctx = t.observer.PreDecide(ctx, t.owner, len(t.choices))

	decision := domain.Decision{
		Owner:     t.owner,
		Picker:    t.picker.Name(),
		Tick:      tick,
		Timestamp: start,
	}

	choice, value, ok, err := t.pick(scores)
	if err == nil && ok {
		decision.Action = choice.Action
		decision.Picked = true
		decision.Value = value
	}
	if err != nil {
		err = fmt.Errorf("thinker %s (%s): picker %s: %w", t.name, t.owner, t.picker.Name(), err)
		t.observer.PostDecide(ctx, domain.Decision{Owner: t.owner, Picker: decision.Picker, Tick: tick, Timestamp: start}, time.Since(start), err)
		t.logger.ErrorContext(ctx, "decision failed", "owner", t.owner.String(), "tick", tick, "error", err)
		return domain.Decision{}, err
	}

	if !ok && t.otherwise != "" {
		decision.Action = t.otherwise
		decision.Fallback = true
	}

	t.observer.PostDecide(ctx, decision, time.Since(start), nil)
	t.logger.DebugContext(ctx, "decision",
		"owner", t.owner.String(),
		"tick", tick,
		"action", decision.Action,
		"value", decision.Value,
		"picked", decision.Picked,
		"fallback", decision.Fallback)
	return decision, nil
}

// pick runs the picker and returns the winner's utility. Pickers that
// report it are asked directly; others get the winner recalculated.
func (t *Thinker) pick(scores domain.ScoreReader) (domain.Choice, float64, bool, error) {
	if vp, ok := t.picker.(ports.ValuePicker); ok {
		return vp.PickValue(t.choices, scores)
	}
	choice, ok, err := t.picker.Pick(t.choices, scores)
	if err != nil || !ok {
		return domain.Choice{}, 0, ok, err
	}
	value, err := choice.Calculate(scores)
	return choice, value, true, err
}

// noopObserver is used when no observer is configured.
type noopObserver struct{}

func (noopObserver) PreDecide(ctx context.Context, _ domain.Entity, _ int) context.Context { return ctx }

func (noopObserver) PostDecide(context.Context, domain.Decision, time.Duration, error) {}
