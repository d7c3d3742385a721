package application

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-ponder/infrastructure/pickers"
	"github.com/ahrav/go-ponder/infrastructure/store"
	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

// inputTable is a per-agent InputSource for tests.
type inputTable map[domain.Entity]map[string]float64

func (in inputTable) Input(owner domain.Entity, name string) (float64, bool) {
	v, ok := in[owner][name]
	return v, ok
}

func newTestLoader(t *testing.T, source ports.InputSource) *ThinkerLoader {
	t.Helper()
	l, err := NewThinkerLoader(NewDefaultRegistry(source))
	require.NoError(t, err)
	return l
}

func TestThinkerLoader_LoadFromFile(t *testing.T) {
	inputs := inputTable{}
	l := newTestLoader(t, inputs)

	def, err := l.LoadFromFile(context.Background(), filepath.Join("testdata", "villager.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "villager", def.Name())
	assert.Equal(t, pickers.HighestScoreType, def.Picker().Name())
	assert.Equal(t, "wander", def.Otherwise())
	require.Len(t, def.Choices(), 2)
	assert.Equal(t, "eat", def.Choices()[0].Action)
	assert.Equal(t, "sleep", def.Choices()[1].Action)
	assert.NotNil(t, def.Choices()[1].Measure)

	s := store.NewScoreStore()
	owner := s.NewEntity()
	thinker, err := def.Build(owner, s)
	require.NoError(t, err)
	require.NoError(t, thinker.ValidateChoices(s))

	tests := []struct {
		name      string
		inputs    map[string]float64
		want      string
		wantValue float64
		fallback  bool
	}{
		{
			name:      "hungry agent eats",
			inputs:    map[string]float64{"hunger": 0.9, "fatigue": 0.2, "hour": 5},
			want:      "eat",
			wantValue: 0.9,
		},
		{
			name:   "tired agent at night sleeps",
			inputs: map[string]float64{"hunger": 0.1, "fatigue": 0.9, "hour": 9},
			want:   "sleep",
			// (0.9*2 + 0.9*1) / 3
			wantValue: 0.9,
		},
		{
			name:     "nothing qualifies falls back",
			inputs:   map[string]float64{"hunger": 0.1, "fatigue": 0.2, "hour": 5},
			want:     "wander",
			fallback: true,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inputs[owner] = tt.inputs
			require.NoError(t, s.Evaluate())

			d, err := thinker.Decide(context.Background(), uint64(i), s.Snapshot())
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Action)
			assert.Equal(t, tt.fallback, d.Fallback)
			assert.Equal(t, !tt.fallback, d.Picked)
			assert.InDelta(t, tt.wantValue, d.Value, 1e-9)
			assert.Equal(t, uint64(i), d.Tick)
		})
	}
}

const minimalThinker = `
version: "1.0.0"
metadata:
  name: minimal
picker:
  type: first_to_score
  parameters:
    threshold: 0.5
choices:
  - action: run
    scorers:
      - type: fixed
        parameters:
          value: 0.7
`

func TestThinkerLoader_Cache(t *testing.T) {
	l := newTestLoader(t, nil)
	ctx := context.Background()

	first, err := l.LoadFromBytes(ctx, []byte(minimalThinker))
	require.NoError(t, err)

	again, err := l.LoadFromBytes(ctx, []byte(minimalThinker))
	require.NoError(t, err)
	assert.Same(t, first, again)

	reformatted := `version: "1.0.0"
metadata: {name: minimal}
picker: {type: first_to_score, parameters: {threshold: 0.5}}
choices:
- action: run
  scorers: [{type: fixed, parameters: {value: 0.7}}]
`
	same, err := l.LoadFromBytes(ctx, []byte(reformatted))
	require.NoError(t, err)
	assert.Same(t, first, same, "normalised config shares a cache entry")

	l.ClearCache()
	fresh, err := l.LoadFromBytes(ctx, []byte(minimalThinker))
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
}

func TestThinkerLoader_ConcurrentLoadsShareDefinition(t *testing.T) {
	l := newTestLoader(t, nil)

	const workers = 16
	defs := make([]*ThinkerDefinition, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			def, err := l.LoadFromBytes(context.Background(), []byte(minimalThinker))
			assert.NoError(t, err)
			defs[i] = def
		}()
	}
	wg.Wait()

	for _, def := range defs[1:] {
		assert.Same(t, defs[0], def)
	}
}

func TestThinkerLoader_Errors(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		wantErrIs error
		wantMsg   string
	}{
		{
			name:    "unknown field",
			yaml:    minimalThinker + "extra: true\n",
			wantMsg: "field extra not found",
		},
		{
			name: "bad version",
			yaml: `version: "one"
metadata: {name: x}
picker: {type: first_to_score}
choices: [{action: a, scorers: [{type: fixed}]}]
`,
			wantMsg: "semver",
		},
		{
			name: "no choices",
			yaml: `version: "1.0.0"
metadata: {name: x}
picker: {type: first_to_score}
choices: []
`,
			wantMsg: "Choices",
		},
		{
			name: "duplicate action",
			yaml: `version: "1.0.0"
metadata: {name: x}
picker: {type: first_to_score}
choices:
  - {action: a, scorers: [{type: fixed}]}
  - {action: a, scorers: [{type: fixed}]}
`,
			wantErrIs: ErrDuplicateAction,
		},
		{
			name: "several scorers without measure",
			yaml: `version: "1.0.0"
metadata: {name: x}
picker: {type: first_to_score}
choices:
  - {action: a, scorers: [{type: fixed}, {type: fixed}]}
`,
			wantErrIs: ErrMeasureRequired,
		},
		{
			name: "unknown scorer type",
			yaml: `version: "1.0.0"
metadata: {name: x}
picker: {type: first_to_score}
choices:
  - {action: a, scorers: [{type: fixd}]}
`,
			wantErrIs: ports.ErrUnknownType,
			wantMsg:   "choices[0].scorers[0]",
		},
		{
			name: "unknown picker type",
			yaml: `version: "1.0.0"
metadata: {name: x}
picker: {type: lowest_score}
choices:
  - {action: a, scorers: [{type: fixed}]}
`,
			wantErrIs: ports.ErrUnknownType,
		},
		{
			name: "parameters not a mapping",
			yaml: `version: "1.0.0"
metadata: {name: x}
picker: {type: first_to_score, parameters: [1, 2]}
choices:
  - {action: a, scorers: [{type: fixed}]}
`,
			wantMsg: "picker.parameters",
		},
		{
			name: "composite without children",
			yaml: `version: "1.0.0"
metadata: {name: x}
picker: {type: first_to_score}
choices:
  - {action: a, scorers: [{type: sum}]}
`,
			wantMsg: "at least one child",
		},
		{
			name: "negative weight",
			yaml: `version: "1.0.0"
metadata: {name: x}
picker: {type: first_to_score}
choices:
  - {action: a, scorers: [{type: fixed, weight: -1}]}
`,
			wantMsg: "Weight",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLoader(t, nil)
			_, err := l.LoadFromBytes(context.Background(), []byte(tt.yaml))
			require.Error(t, err)
			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestThinkerLoader_ConfigErrorKey(t *testing.T) {
	l := newTestLoader(t, nil)
	_, err := l.LoadFromBytes(context.Background(), []byte(`version: "1.0.0"
metadata: {name: x}
picker: {type: first_to_score}
choices:
  - action: a
    scorers:
      - type: winning
        scorers:
          - type: fixed
          - type: fixed
            parameters: {value: oops}
`))
	var cfgErr *ports.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "choices[0].scorers[0].scorers[1]", cfgErr.ConfigKey)
}

func TestThinkerLoader_UnknownParameterKeys(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantKey string
	}{
		{
			name: "misspelled picker threshold",
			yaml: `version: "1.0.0"
metadata: {name: x}
picker: {type: first_to_score, parameters: {threshhold: 0.9}}
choices:
  - {action: a, scorers: [{type: fixed, parameters: {value: 0.8}}]}
`,
			wantKey: "picker.parameters.threshhold",
		},
		{
			name: "misspelled fixed value",
			yaml: `version: "1.0.0"
metadata: {name: x}
picker: {type: first_to_score, parameters: {threshold: 0.9}}
choices:
  - {action: a, scorers: [{type: fixed, parameters: {valeu: 0.8}}]}
`,
			wantKey: "choices[0].scorers[0].parameters.valeu",
		},
		{
			name: "nested child",
			yaml: `version: "1.0.0"
metadata: {name: x}
picker: {type: highest_score}
choices:
  - action: a
    scorers:
      - type: sum
        scorers:
          - {type: input, parameters: {name: hunger, fallback: 0.1}}
`,
			wantKey: "choices[0].scorers[0].scorers[0].parameters.fallback",
		},
		{
			name: "nested evaluator block",
			yaml: `version: "1.0.0"
metadata: {name: x}
picker: {type: highest_score}
choices:
  - action: a
    scorers:
      - type: evaluating
        parameters:
          evaluator: {type: sigmoid, steepness: 0.5}
        scorers: [{type: fixed}]
`,
			wantKey: "choices[0].scorers[0].parameters.evaluator.steepness",
		},
		{
			name: "choice measure",
			yaml: `version: "1.0.0"
metadata: {name: x}
picker: {type: highest_score}
choices:
  - action: a
    measure: {type: weighted_sum, parameters: {normalise: true}}
    scorers: [{type: fixed}, {type: fixed}]
`,
			wantKey: "choices[0].measure.parameters.normalise",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLoader(t, nil)
			_, err := l.LoadFromBytes(context.Background(), []byte(tt.yaml))
			require.ErrorIs(t, err, ports.ErrUnknownParameter)

			var cfgErr *ports.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.ConfigKey)
		})
	}
}

func TestThinkerLoader_ExplicitZeroWeight(t *testing.T) {
	l := newTestLoader(t, nil)
	def, err := l.LoadFromBytes(context.Background(), []byte(`version: "1.0.0"
metadata: {name: x}
picker: {type: highest_score}
choices:
  - action: muted
    scorers: [{type: fixed, weight: 0, parameters: {value: 0.7}}]
  - action: plain
    scorers: [{type: fixed, parameters: {value: 0.7}}]
`))
	require.NoError(t, err)

	th, s := buildAndEvaluate(t, def)
	choices := th.Choices()

	muted, err := s.Score(choices[0].Scorers[0])
	require.NoError(t, err)
	assert.Equal(t, domain.Score{Value: 0.7, Weight: 0}, muted)

	plain, err := s.Score(choices[1].Scorers[0])
	require.NoError(t, err)
	assert.Equal(t, domain.Score{Value: 0.7, Weight: 1}, plain)
}

func TestThinkerLoader_ReaderAndMissingFile(t *testing.T) {
	l := newTestLoader(t, nil)

	f, err := os.Open(filepath.Join("testdata", "villager.yaml"))
	require.NoError(t, err)
	defer f.Close()
	def, err := l.LoadFromReader(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, "villager", def.Name())

	_, err = l.LoadFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorIs(t, err, ports.ErrConfigNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.LoadFromBytes(ctx, []byte(minimalThinker))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewThinkerLoader_NilRegistry(t *testing.T) {
	_, err := NewThinkerLoader(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func FuzzThinkerLoader_LoadFromBytes(f *testing.F) {
	seeds := []string{
		minimalThinker,
		`version: "1.0.0`,
		`choices: "should be array"`,
		`version: "1.0.0"
metadata: {name: x}
picker: {type: highest_score, parameters: {threshold: .nan}}
choices: [{action: a, scorers: [{type: product, scorers: [{type: fixed}]}]}]`,
		``,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	l, err := NewThinkerLoader(NewDefaultRegistry(nil))
	require.NoError(f, err)

	f.Fuzz(func(t *testing.T, data string) {
		def, err := l.LoadFromBytes(context.Background(), []byte(data))
		if err != nil {
			return
		}
		require.NotNil(t, def)
		assert.NotEmpty(t, def.Choices())
	})
}
