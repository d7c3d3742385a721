package main

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

// inputFile is the layout of an --inputs file.
type inputFile struct {
	// Defaults apply to every agent.
	Defaults map[string]float64 `yaml:"defaults"`
	// Agents override Defaults by spawn order.
	Agents []map[string]float64 `yaml:"agents"`
}

// inputTable serves constant inputs to input scorers. Agents are bound to
// their spawn index as they are created.
type inputTable struct {
	mu       sync.RWMutex
	defaults map[string]float64
	agents   []map[string]float64
	index    map[domain.Entity]int
}

func newInputTable() *inputTable {
	return &inputTable{
		defaults: make(map[string]float64),
		index:    make(map[domain.Entity]int),
	}
}

// load merges an --inputs file into the table.
func (t *inputTable) load(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read inputs: %w", err)
	}

	var f inputFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return fmt.Errorf("failed to parse inputs %s: %w", path, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	maps.Copy(t.defaults, f.Defaults)
	t.agents = f.Agents
	return nil
}

// set applies name=value assignments to the defaults.
func (t *inputTable) set(assignments []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, a := range assignments {
		name, raw, ok := strings.Cut(a, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return fmt.Errorf("input %q: expected name=value", a)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("input %q: %w", a, errors.Unwrap(err))
		}
		t.defaults[name] = v
	}
	return nil
}

func (t *inputTable) bind(owner domain.Entity, spawnIndex int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index[owner] = spawnIndex
}

// Input implements ports.InputSource.
func (t *inputTable) Input(owner domain.Entity, name string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if i, ok := t.index[owner]; ok && i < len(t.agents) {
		if v, ok := t.agents[i][name]; ok {
			return v, true
		}
	}
	v, ok := t.defaults[name]
	return v, ok
}

var _ ports.InputSource = (*inputTable)(nil)
