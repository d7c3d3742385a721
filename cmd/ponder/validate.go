package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-ponder/internal/application"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a thinker definition and print a summary",
		Long: `Load a thinker YAML file, resolve every type through the registry and
print the compiled choices. Exits non-zero when the file is invalid.

Example:
  ponder validate examples/villager.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadDefinition(cmd.Context(), args[0], nil)
			if err != nil {
				return err
			}
			opts.logger.Debug("thinker valid", "file", args[0], "thinker", def.Name())
			printDefinition(cmd.OutOrStdout(), def)
			return nil
		},
	}
}

func printDefinition(w io.Writer, def *application.ThinkerDefinition) {
	choices := def.Choices()
	fmt.Fprintf(w, "thinker %s: picker %s, %d choices\n", def.Name(), def.Picker().Name(), len(choices))
	for i, c := range choices {
		fmt.Fprintf(w, "  %d. %s (%s)\n", i+1, c.Action, plural(len(c.Scorers), "scorer"))
	}
	if def.Otherwise() != "" {
		fmt.Fprintf(w, "  otherwise %s\n", def.Otherwise())
	} else {
		fmt.Fprintln(w, "  otherwise idle")
	}
}

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered scorer and picker types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := application.NewDefaultRegistry(nil)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pickers: %s\n", strings.Join(reg.SupportedPickerTypes(), ", "))
			fmt.Fprintf(out, "scorers: %s\n", strings.Join(reg.SupportedScorerTypes(), ", "))
			return nil
		},
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
