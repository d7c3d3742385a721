package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-ponder/infrastructure/journal"
	"github.com/ahrav/go-ponder/infrastructure/middleware"
	"github.com/ahrav/go-ponder/infrastructure/sim"
	"github.com/ahrav/go-ponder/internal/domain"
)

type simulateOptions struct {
	agents      int
	ticks       int
	rate        float64
	concurrency int
	inputs      []string
	inputsFile  string
	journal     string
	metricsAddr string
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	o := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate <file>",
		Short: "Run a thinker for a number of agents and ticks",
		Long: `Spawn agents that share one thinker definition and advance them tick by
tick. Every tick evaluates all scorers, then lets each agent decide. One
line is printed per decision.

Inputs read by input scorers come from --inputs (a YAML file with
defaults and per-agent overrides) and --input name=value, which sets a
default for every agent.

Example:
  ponder simulate examples/villager.yaml --agents 3 --ticks 5 --input hunger=0.8
  ponder simulate examples/villager.yaml --ticks 0 --rate 2 --metrics-addr :9090`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), cmd.OutOrStdout(), root.logger, o, args[0])
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&o.agents, "agents", 1, "Number of agents to spawn")
	flags.IntVar(&o.ticks, "ticks", 10, "Number of ticks to run, 0 runs until interrupted")
	flags.Float64Var(&o.rate, "rate", 0, "Ticks per second, 0 runs ticks back to back")
	flags.IntVar(&o.concurrency, "concurrency", 0, "Decision passes run in parallel per tick, 0 for one per agent")
	flags.StringArrayVar(&o.inputs, "input", nil, "Input default as name=value (repeatable)")
	flags.StringVar(&o.inputsFile, "inputs", "", "YAML file with input defaults and per-agent overrides")
	flags.StringVar(&o.journal, "journal", "", "SQLite file to record decisions in")
	flags.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}

func runSimulate(ctx context.Context, out io.Writer, logger *slog.Logger, o *simulateOptions, path string) error {
	if o.agents < 1 {
		return fmt.Errorf("--agents must be at least 1, got %d", o.agents)
	}
	if o.ticks < 0 {
		return fmt.Errorf("--ticks must not be negative, got %d", o.ticks)
	}

	inputs := newInputTable()
	if o.inputsFile != "" {
		if err := inputs.load(o.inputsFile); err != nil {
			return err
		}
	}
	if err := inputs.set(o.inputs); err != nil {
		return err
	}

	def, err := loadDefinition(ctx, path, inputs)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetrics(reg)
	worldOpts := []sim.Option{
		sim.WithLogger(logger),
		sim.WithMetrics(metrics),
		sim.WithObserver(middleware.NewOTelDecisionObserver(metrics)),
	}

	if o.journal != "" {
		j, err := journal.Open(ctx, o.journal)
		if err != nil {
			return err
		}
		defer func() {
			if err := j.Close(); err != nil {
				logger.Warn("journal close failed", "error", err)
			}
		}()
		logger.Info("journal opened", "path", o.journal, "run", j.RunID())
		worldOpts = append(worldOpts, sim.WithJournal(j))
	}

	if o.metricsAddr != "" {
		shutdown, err := serveMetrics(o.metricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	world, err := sim.NewWorld(sim.Config{MaxConcurrency: o.concurrency, TickRate: o.rate}, worldOpts...)
	if err != nil {
		return err
	}
	for i := range o.agents {
		owner, err := world.Spawn(def)
		if err != nil {
			return err
		}
		inputs.bind(owner, i)
	}

	err = world.Run(ctx, o.ticks, func(_ uint64, decisions []domain.Decision) error {
		for _, d := range decisions {
			if _, err := fmt.Fprintln(out, formatDecision(d)); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, context.Canceled) {
		logger.Info("simulation interrupted", "tick", world.CurrentTick())
		return nil
	}
	return err
}

func formatDecision(d domain.Decision) string {
	switch {
	case d.Picked:
		return fmt.Sprintf("tick=%d agent=%s action=%s value=%.3f", d.Tick, d.Owner, d.Action, d.Value)
	case d.Fallback:
		return fmt.Sprintf("tick=%d agent=%s action=%s fallback", d.Tick, d.Owner, d.Action)
	default:
		return fmt.Sprintf("tick=%d agent=%s idle", d.Tick, d.Owner)
	}
}

// serveMetrics exposes reg on addr under /metrics until the returned
// function is called.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}, nil
}
