package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ponder/internal/domain"
)

const villager = "../../examples/villager.yaml"

// execute runs the CLI with args and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func lines(s string) []string {
	return strings.Split(strings.TrimSpace(s), "\n")
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", villager)
	require.NoError(t, err)

	assert.Contains(t, out, "thinker villager: picker highest_score, 3 choices")
	assert.Contains(t, out, "1. flee (1 scorer)")
	assert.Contains(t, out, "2. eat (1 scorer)")
	assert.Contains(t, out, "3. sleep (2 scorers)")
	assert.Contains(t, out, "otherwise wander")
}

func TestValidateCommand_Errors(t *testing.T) {
	unknownType := writeFile(t, "bad.yaml", `
version: "1.0.0"
metadata:
  name: bad
picker:
  type: highest_scor
choices:
  - action: eat
    scorers:
      - type: fixed
`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no file", args: []string{"validate"}, want: "accepts 1 arg"},
		{name: "missing file", args: []string{"validate", filepath.Join(t.TempDir(), "nope.yaml")}, want: "failed to read file"},
		{name: "unknown picker", args: []string{"validate", unknownType}, want: "highest_score"},
		{name: "bad log level", args: []string{"validate", villager, "--log-level", "loud"}, want: "invalid --log-level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTypesCommand(t *testing.T) {
	out, err := execute(t, "types")
	require.NoError(t, err)
	assert.Contains(t, out, "pickers: first_to_score, highest_score")
	assert.Contains(t, out, "evaluating")
	assert.Contains(t, out, "all_or_nothing")
}

func TestSimulateCommand(t *testing.T) {
	t.Run("defaults from flags", func(t *testing.T) {
		out, err := execute(t, "simulate", villager, "--agents", "2", "--ticks", "3", "--input", "hunger=0.9")
		require.NoError(t, err)

		got := lines(out)
		require.Len(t, got, 6)
		for _, l := range got {
			assert.Contains(t, l, "action=eat value=0.900")
		}
		assert.True(t, strings.HasPrefix(got[0], "tick=1 "))
		assert.True(t, strings.HasPrefix(got[5], "tick=3 "))
	})

	t.Run("no inputs falls back", func(t *testing.T) {
		out, err := execute(t, "simulate", villager, "--ticks", "1")
		require.NoError(t, err)
		got := lines(out)
		require.Len(t, got, 1)
		assert.Contains(t, got[0], "action=wander fallback")
	})

	t.Run("per agent inputs", func(t *testing.T) {
		inputs := writeFile(t, "inputs.yaml", `
defaults:
  hunger: 0.1
agents:
  - {}
  - hunger: 0.8
`)
		out, err := execute(t, "simulate", villager, "--agents", "2", "--ticks", "1", "--inputs", inputs, "--concurrency", "1")
		require.NoError(t, err)
		got := lines(out)
		require.Len(t, got, 2)
		assert.Contains(t, got[0], "action=wander fallback")
		assert.Contains(t, got[1], "action=eat value=0.800")
	})

	t.Run("flag inputs override the file", func(t *testing.T) {
		inputs := writeFile(t, "inputs.yaml", "defaults:\n  hunger: 0.1\n")
		out, err := execute(t, "simulate", villager, "--ticks", "1", "--inputs", inputs, "--input", "hunger=0.6")
		require.NoError(t, err)
		assert.Contains(t, out, "action=eat value=0.600")
	})

	t.Run("journal", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "run.db")
		_, err := execute(t, "simulate", villager, "--ticks", "2", "--journal", path)
		require.NoError(t, err)
		_, err = os.Stat(path)
		assert.NoError(t, err)
	})
}

func TestSimulateCommand_Errors(t *testing.T) {
	badInputs := writeFile(t, "inputs.yaml", "defaults:\n  hunger: 0.1\nextra: true\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no agents", args: []string{"--agents", "0"}, want: "--agents"},
		{name: "negative ticks", args: []string{"--ticks", "-1"}, want: "--ticks"},
		{name: "malformed input", args: []string{"--input", "hunger"}, want: "expected name=value"},
		{name: "non numeric input", args: []string{"--input", "hunger=lots"}, want: "invalid syntax"},
		{name: "unknown inputs field", args: []string{"--inputs", badInputs}, want: "failed to parse inputs"},
		{name: "negative rate", args: []string{"--rate", "-1"}, want: "validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"simulate", villager}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFormatDecision(t *testing.T) {
	tests := []struct {
		name     string
		decision domain.Decision
		want     string
	}{
		{
			name:     "picked",
			decision: domain.Decision{Owner: 4, Tick: 2, Action: "eat", Value: 0.75, Picked: true},
			want:     "tick=2 agent=e4 action=eat value=0.750",
		},
		{
			name:     "fallback",
			decision: domain.Decision{Owner: 4, Tick: 2, Action: "wander", Fallback: true},
			want:     "tick=2 agent=e4 action=wander fallback",
		},
		{
			name:     "idle",
			decision: domain.Decision{Owner: 4, Tick: 2},
			want:     "tick=2 agent=e4 idle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatDecision(tt.decision))
		})
	}
}

func TestInputTable(t *testing.T) {
	table := newInputTable()
	require.NoError(t, table.set([]string{"hunger=0.4", " hour = 20 "}))
	table.agents = []map[string]float64{{"hunger": 0.9}}
	table.bind(domain.Entity(7), 0)
	table.bind(domain.Entity(9), 1)

	v, ok := table.Input(7, "hunger")
	assert.True(t, ok)
	assert.InDelta(t, 0.9, v, 1e-9)

	v, ok = table.Input(9, "hunger")
	assert.True(t, ok)
	assert.InDelta(t, 0.4, v, 1e-9)

	v, ok = table.Input(7, "hour")
	assert.True(t, ok)
	assert.InDelta(t, 20.0, v, 1e-9)

	_, ok = table.Input(7, "fatigue")
	assert.False(t, ok)
}
