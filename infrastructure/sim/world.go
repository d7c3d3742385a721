// Package sim is a reference host for the decision kernel. A World owns a
// score store and a set of agents and advances them in ticks: every tick
// runs one evaluation step that writes scores, then one decision pass per
// agent against an immutable snapshot of those scores.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-ponder/infrastructure/middleware"
	"github.com/ahrav/go-ponder/infrastructure/store"
	"github.com/ahrav/go-ponder/internal/application"
	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

// ErrNilDefinition is returned by Spawn when no definition is given.
var ErrNilDefinition = errors.New("thinker definition is nil")

var validate = validator.New()

// Config controls how a World schedules ticks.
type Config struct {
	// MaxConcurrency bounds the decision passes run in parallel within a
	// tick. Zero means one goroutine per agent.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency" validate:"min=0,max=4096"`

	// TickRate is the number of ticks per second Run aims for. Zero runs
	// ticks back to back.
	TickRate float64 `yaml:"tick_rate" json:"tick_rate" validate:"min=0,max=10000"`
}

// Option configures a World.
type Option func(*World)

// WithJournal records every tick's decisions.
func WithJournal(j ports.DecisionJournal) Option {
	return func(w *World) { w.journal = j }
}

// WithMetrics reports tick latency and world size.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(w *World) { w.metrics = m }
}

// WithObserver is passed to every thinker the World builds.
func WithObserver(o ports.DecisionObserver) Option {
	return func(w *World) { w.observer = o }
}

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.logger = l
		}
	}
}

// World is a tick-driven host for agents.
type World struct {
	cfg      Config
	store    *store.ScoreStore
	journal  ports.DecisionJournal
	metrics  ports.MetricsCollector
	observer ports.DecisionObserver
	logger   *slog.Logger

	// mu serialises ticks against spawning and despawning.
	mu     sync.Mutex
	agents map[domain.Entity]*application.Thinker
	tick   uint64
}

// NewWorld creates an empty world.
func NewWorld(cfg Config, opts ...Option) (*World, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	w := &World{
		cfg:    cfg,
		store:  store.NewScoreStore(),
		logger: slog.Default(),
		agents: make(map[domain.Entity]*application.Thinker),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Store exposes the score store, for hosts that write scores directly.
func (w *World) Store() *store.ScoreStore { return w.store }

// Spawn allocates an agent, builds def for it and checks that every
// choice resolves. On failure nothing is left in the store.
func (w *World) Spawn(def *application.ThinkerDefinition) (domain.Entity, error) {
	if def == nil {
		return domain.NoEntity, ErrNilDefinition
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	owner := w.store.NewEntity()
	opts := []application.ThinkerOption{application.WithLogger(w.logger)}
	if w.observer != nil {
		opts = append(opts, application.WithObserver(w.observer))
	}

	th, err := def.Build(owner, w.store, opts...)
	if err == nil {
		err = th.ValidateChoices(w.store)
	}
	if err != nil {
		if _, derr := w.store.Despawn(owner); derr != nil {
			err = errors.Join(err, derr)
		}
		return domain.NoEntity, fmt.Errorf("spawn %s: %w", def.Name(), err)
	}

	w.agents[owner] = th
	w.logger.Debug("agent spawned", "owner", owner.String(), "thinker", def.Name())
	return owner, nil
}

// Despawn removes an agent and its scorer instances.
func (w *World) Despawn(owner domain.Entity) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.agents[owner]; !ok {
		return fmt.Errorf("despawn %s: %w", owner, domain.ErrUnknownEntity)
	}
	removed, err := w.store.Despawn(owner)
	if err != nil {
		return err
	}
	delete(w.agents, owner)
	w.logger.Debug("agent despawned", "owner", owner.String(), "scorers", removed)
	return nil
}

// Agents returns the live agents in ascending order.
func (w *World) Agents() []domain.Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Sorted(maps.Keys(w.agents))
}

// Thinker returns the thinker built for owner.
func (w *World) Thinker(owner domain.Entity) (*application.Thinker, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	th, ok := w.agents[owner]
	return th, ok
}

// CurrentTick returns the number of completed ticks.
func (w *World) CurrentTick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// Tick advances the world by one step and returns one decision per agent,
// ordered by agent. A journal failure is logged and does not fail the tick.
func (w *World) Tick(ctx context.Context) ([]domain.Decision, error) {
	_, decisions, err := w.step(ctx)
	return decisions, err
}

func (w *World) step(ctx context.Context) (uint64, []domain.Decision, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	tick := w.tick + 1

	if err := w.store.Evaluate(); err != nil {
		return 0, nil, fmt.Errorf("tick %d: %w", tick, err)
	}
	w.record(func(m ports.MetricsCollector) { m.RecordLatency(middleware.OperationEvaluate, time.Since(start), nil) })

	snapshot := w.store.Snapshot()
	owners := slices.Sorted(maps.Keys(w.agents))
	decisions := make([]domain.Decision, len(owners))

	g, gctx := errgroup.WithContext(ctx)
	if w.cfg.MaxConcurrency > 0 {
		g.SetLimit(w.cfg.MaxConcurrency)
	}
	for i, owner := range owners {
		th := w.agents[owner]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := th.Decide(gctx, tick, snapshot)
			if err != nil {
				return err
			}
			decisions[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, nil, fmt.Errorf("tick %d: %w", tick, err)
	}
	w.tick = tick

	if w.journal != nil {
		status := "success"
		if err := w.journal.Record(ctx, tick, decisions); err != nil {
			status = "error"
			w.logger.WarnContext(ctx, "journal write failed", "tick", tick, "error", err)
		}
		w.record(func(m ports.MetricsCollector) {
			m.RecordCounter("journal_writes", 1, map[string]string{"status": status})
		})
	}

	elapsed := time.Since(start)
	w.record(func(m ports.MetricsCollector) {
		m.RecordLatency(middleware.OperationTick, elapsed, nil)
		m.RecordGauge(middleware.GaugeAgents, float64(len(owners)), nil)
		m.RecordGauge(middleware.GaugeScorers, float64(w.store.Len()), nil)
	})

	var picked, fallback int
	for _, d := range decisions {
		switch {
		case d.Picked:
			picked++
		case d.Fallback:
			fallback++
		}
	}
	w.logger.InfoContext(ctx, "tick complete",
		"tick", tick,
		"agents", len(owners),
		"picked", picked,
		"fallback", fallback,
		"idle", len(owners)-picked-fallback,
		"elapsed", elapsed)
	return tick, decisions, nil
}

// TickFunc receives the decisions of every completed tick. Returning an
// error stops Run.
type TickFunc func(tick uint64, decisions []domain.Decision) error

// Run advances the world ticks times, or until ctx is done when ticks is
// zero, pacing ticks at Config.TickRate. It returns ctx.Err() when
// cancelled.
func (w *World) Run(ctx context.Context, ticks int, fn TickFunc) error {
	var limiter *rate.Limiter
	if w.cfg.TickRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(w.cfg.TickRate), 1)
	}

	for i := 0; ticks <= 0 || i < ticks; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		tick, decisions, err := w.step(ctx)
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(tick, decisions); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *World) record(fn func(ports.MetricsCollector)) {
	if w.metrics != nil {
		fn(w.metrics)
	}
}
