package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

// maxScorerDepth bounds how deeply composite scorers may nest.
const maxScorerDepth = 16

// ThinkerLoader parses, validates and compiles thinker YAML into
// ThinkerDefinitions. Compiled definitions are cached by the SHA-256 of
// their normalised configuration, and concurrent loads of the same
// configuration are compiled once.
//
// Definitions are immutable, so one cached definition may be built for
// any number of agents.
type ThinkerLoader struct {
	validator *validator.Validate
	registry  ports.Registry
	// cache maps config hash to compiled definition.
	cache   map[string]*ThinkerDefinition
	cacheMu sync.RWMutex
	sf      singleflight.Group
}

// NewThinkerLoader creates a loader that resolves type tags through
// registry.
func NewThinkerLoader(registry ports.Registry) (*ThinkerLoader, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry: %w", domain.ErrInvalidConfiguration)
	}

	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &ThinkerLoader{
		validator: v,
		registry:  registry,
		cache:     make(map[string]*ThinkerDefinition),
	}, nil
}

// LoadFromFile loads a thinker definition from a YAML file.
func (l *ThinkerLoader) LoadFromFile(ctx context.Context, path string) (*ThinkerDefinition, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read file: %w: %w", ports.ErrConfigNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return l.load(ctx, data)
}

// LoadFromReader loads a thinker definition from r.
func (l *ThinkerLoader) LoadFromReader(ctx context.Context, r io.Reader) (*ThinkerDefinition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return l.load(ctx, data)
}

// LoadFromBytes loads a thinker definition from raw YAML.
func (l *ThinkerLoader) LoadFromBytes(ctx context.Context, data []byte) (*ThinkerDefinition, error) {
	return l.load(ctx, data)
}

// ClearCache drops every compiled definition.
func (l *ThinkerLoader) ClearCache() {
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()
	l.cache = make(map[string]*ThinkerDefinition)
}

func (l *ThinkerLoader) load(ctx context.Context, data []byte) (*ThinkerDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	config, err := parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	hash, err := configHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := l.sf.Do(hash, func() (any, error) {
		if def, ok := l.cached(hash); ok {
			return def, nil
		}

		if err := l.validateConfig(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		def, err := l.buildDefinition(config)
		if err != nil {
			return nil, fmt.Errorf("failed to build thinker: %w", err)
		}

		l.cacheMu.Lock()
		l.cache[hash] = def
		l.cacheMu.Unlock()
		return def, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ThinkerDefinition), nil
}

// parseYAML decodes strictly: unknown fields are errors.
func parseYAML(data []byte) (*ThinkerConfig, error) {
	var config ThinkerConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

func (l *ThinkerLoader) validateConfig(config *ThinkerConfig) error {
	if err := l.validator.Struct(config); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}
	if err := validateSemantics(config); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}
	return nil
}

// validateSemantics checks the rules struct tags cannot express.
func validateSemantics(config *ThinkerConfig) error {
	actions := make(map[string]int, len(config.Choices))
	for i, c := range config.Choices {
		if prev, dup := actions[c.Action]; dup {
			return fmt.Errorf("choices[%d]: %w: %q already used by choices[%d]", i, ErrDuplicateAction, c.Action, prev)
		}
		actions[c.Action] = i

		if len(c.Scorers) > 1 && c.Measure == nil {
			return fmt.Errorf("choices[%d] (%s): %w", i, c.Action, ErrMeasureRequired)
		}
		for j, sc := range c.Scorers {
			if d := scorerDepth(sc); d > maxScorerDepth {
				return fmt.Errorf("choices[%d].scorers[%d]: nesting depth %d exceeds %d", i, j, d, maxScorerDepth)
			}
		}
	}
	return nil
}

func scorerDepth(sc ScorerConfig) int {
	deepest := 0
	for _, child := range sc.Scorers {
		deepest = max(deepest, scorerDepth(child))
	}
	return deepest + 1
}

// buildDefinition resolves every type tag through the registry.
func (l *ThinkerLoader) buildDefinition(config *ThinkerConfig) (*ThinkerDefinition, error) {
	pickerParams, err := decodeParameters(config.Picker.Parameters)
	if err != nil {
		return nil, ports.NewConfigError("picker.parameters", err)
	}
	picker, err := l.registry.CreatePicker(config.Picker.Type, pickerParams)
	if err != nil {
		return nil, ports.NewConfigError(parameterKey("picker", err), err)
	}

	choices := make([]ChoiceDefinition, len(config.Choices))
	for i, cc := range config.Choices {
		key := fmt.Sprintf("choices[%d]", i)
		def := ChoiceDefinition{Action: cc.Action, Scorers: make([]ports.Scorer, len(cc.Scorers))}

		if cc.Measure != nil {
			params, err := decodeParameters(cc.Measure.Parameters)
			if err != nil {
				return nil, ports.NewConfigError(key+".measure.parameters", err)
			}
			if def.Measure, err = l.registry.CreateMeasure(cc.Measure.Type, params); err != nil {
				return nil, ports.NewConfigError(parameterKey(key+".measure", err), err)
			}
		}

		for j, sc := range cc.Scorers {
			if def.Scorers[j], err = l.buildScorer(sc, fmt.Sprintf("%s.scorers[%d]", key, j)); err != nil {
				return nil, err
			}
		}
		choices[i] = def
	}

	return NewThinkerDefinition(config.Metadata.Name, picker, choices, config.Otherwise)
}

// buildScorer builds children before their parent.
func (l *ThinkerLoader) buildScorer(config ScorerConfig, key string) (ports.Scorer, error) {
	children := make([]ports.Scorer, len(config.Scorers))
	for i, child := range config.Scorers {
		sc, err := l.buildScorer(child, fmt.Sprintf("%s.scorers[%d]", key, i))
		if err != nil {
			return nil, err
		}
		children[i] = sc
	}

	params, err := decodeParameters(config.Parameters)
	if err != nil {
		return nil, ports.NewConfigError(key+".parameters", err)
	}

	sc, err := l.registry.CreateScorer(ports.ScorerSpec{
		Type:     config.Type,
		Label:    config.Label,
		Weight:   config.Weight,
		Params:   params,
		Children: children,
	})
	if err != nil {
		return nil, ports.NewConfigError(parameterKey(key, err), err)
	}
	return sc, nil
}

// parameterKey extends key with the path of an unknown parameter when err
// carries one, so the ConfigError names the offending entry.
func parameterKey(key string, err error) string {
	var perr *ports.UnknownParameterError
	if errors.As(err, &perr) {
		return key + ".parameters." + perr.Key
	}
	return key
}

// configHash hashes the config after a round trip through a generic
// value, so key order, flow style and comments in the source do not
// defeat the cache.
func configHash(config *ThinkerConfig) (string, error) {
	raw, err := yaml.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("failed to normalise config for hashing: %w", err)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(generic); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}

	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

func (l *ThinkerLoader) cached(hash string) (*ThinkerDefinition, bool) {
	l.cacheMu.RLock()
	defer l.cacheMu.RUnlock()
	def, ok := l.cache[hash]
	return def, ok
}
