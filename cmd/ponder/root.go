package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-ponder/internal/application"
	"github.com/ahrav/go-ponder/internal/ports"
)

// rootOptions holds the global flags and what is derived from them.
type rootOptions struct {
	logLevel string
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{logger: slog.Default()}

	cmd := &cobra.Command{
		Use:   "ponder",
		Short: "Utility AI decision kernel",
		Long: `ponder loads utility AI thinkers from YAML and runs them.

A thinker scores each of its choices every tick and lets a picker decide
which action an agent takes.

Commands:
  validate   Check a thinker definition and print a summary
  simulate   Run a thinker for a number of agents and ticks
  types      List the registered scorer and picker types`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(opts.logLevel)); err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", opts.logLevel, err)
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newValidateCmd(opts),
		newSimulateCmd(opts),
		newTypesCmd(),
	)
	return cmd
}

// loadDefinition compiles the thinker at path against a registry whose
// input scorers read from source.
func loadDefinition(ctx context.Context, path string, source ports.InputSource) (*application.ThinkerDefinition, error) {
	loader, err := application.NewThinkerLoader(application.NewDefaultRegistry(source))
	if err != nil {
		return nil, err
	}
	def, err := loader.LoadFromFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return def, nil
}
