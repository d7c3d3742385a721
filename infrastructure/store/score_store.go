// Package store provides the in-memory score store that owns every live
// Score of the decision kernel.
package store

import (
	"fmt"
	"sync"

	"github.com/ahrav/go-ponder/internal/domain"
	"github.com/ahrav/go-ponder/internal/ports"
)

// Verify interface compliance at compile time.
var (
	_ domain.ScoreReader = (*ScoreStore)(nil)
	_ ports.Commands     = (*ScoreStore)(nil)
	_ domain.ScoreReader = ScoreSnapshot{}
)

// entry is one live scorer instance.
type entry struct {
	owner   domain.Entity
	label   string
	updater ports.ScoreUpdater
	score   domain.Score
}

// ScoreStore owns all Scores. Choices and pickers only ever hold handles
// into it. Scores are written by Evaluate and Set and read through Score
// or through an immutable Snapshot.
//
// ScoreStore is safe for concurrent use, but a tick should finish its
// writes before any decision pass starts reading.
type ScoreStore struct {
	mu sync.RWMutex
	// last is the most recently allocated entity.
	last domain.Entity
	// entries maps scorer entities to their instance.
	entries map[domain.Entity]*entry
	// order holds scorer entities in spawn order; Evaluate walks it.
	order []domain.Entity
	// agents holds entities allocated by NewEntity.
	agents map[domain.Entity]struct{}
}

// NewScoreStore creates an empty store.
func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		entries: make(map[domain.Entity]*entry),
		agents:  make(map[domain.Entity]struct{}),
	}
}

// NewEntity allocates an agent entity. Scorer instances spawned for it
// are removed together by Despawn.
func (s *ScoreStore) NewEntity() domain.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last++
	s.agents[s.last] = struct{}{}
	return s.last
}

// Spawn implements ports.Commands. The new instance starts with a zero
// Score until the next Evaluate.
func (s *ScoreStore) Spawn(owner domain.Entity, label string, updater ports.ScoreUpdater) domain.ScorerEnt {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last++
	s.entries[s.last] = &entry{owner: owner, label: label, updater: updater}
	s.order = append(s.order, s.last)
	return domain.NewScorerEnt(s.last)
}

// Score implements domain.ScoreReader.
func (s *ScoreStore) Score(handle domain.ScorerEnt) (domain.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[handle.Entity()]
	if !ok {
		return domain.Score{}, domain.NewScoreError(handle, "Score", domain.ErrScoreNotFound)
	}
	return e.score, nil
}

// Set overwrites the Score of a live instance.
func (s *ScoreStore) Set(handle domain.ScorerEnt, score domain.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[handle.Entity()]
	if !ok {
		return domain.NewScoreError(handle, "Set", domain.ErrScoreNotFound)
	}
	e.score = score
	return nil
}

// Evaluate runs every updater once, in spawn order, and writes the
// results. Children are spawned before their parents, so a composite
// always sees this step's child values. The first failing updater aborts
// the step.
func (s *ScoreStore) Evaluate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := unlockedView{s}
	for _, id := range s.order {
		e := s.entries[id]
		if e.updater == nil {
			continue
		}
		score, err := e.updater.Update(e.owner, view)
		if err != nil {
			return fmt.Errorf("evaluate %s (%s): %w", domain.NewScorerEnt(id), e.label, err)
		}
		e.score = score
	}
	return nil
}

// Despawn removes owner and every scorer instance it owns. It returns the
// number of scorer instances removed.
func (s *ScoreStore) Despawn(owner domain.Entity) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[owner]; !ok {
		return 0, fmt.Errorf("despawn %s: %w", owner, domain.ErrUnknownEntity)
	}
	delete(s.agents, owner)

	kept := s.order[:0]
	removed := 0
	for _, id := range s.order {
		if s.entries[id].owner == owner {
			delete(s.entries, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return removed, nil
}

// Snapshot copies every current Score into an immutable view that many
// goroutines can read without locking.
func (s *ScoreStore) Snapshot() ScoreSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(ScoreSnapshot, len(s.entries))
	for id, e := range s.entries {
		snap[id] = e.score
	}
	return snap
}

// Entry describes one live scorer instance.
type Entry struct {
	Handle domain.ScorerEnt
	Owner  domain.Entity
	Label  string
	Score  domain.Score
}

// Entries lists owner's scorer instances in spawn order.
func (s *ScoreStore) Entries(owner domain.Entity) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, id := range s.order {
		e := s.entries[id]
		if e.owner != owner {
			continue
		}
		out = append(out, Entry{Handle: domain.NewScorerEnt(id), Owner: e.owner, Label: e.label, Score: e.score})
	}
	return out
}

// Len returns the number of live scorer instances.
func (s *ScoreStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// unlockedView reads entries while Evaluate already holds the lock.
type unlockedView struct{ s *ScoreStore }

func (v unlockedView) Score(handle domain.ScorerEnt) (domain.Score, error) {
	e, ok := v.s.entries[handle.Entity()]
	if !ok {
		return domain.Score{}, domain.NewScoreError(handle, "Score", domain.ErrScoreNotFound)
	}
	return e.score, nil
}

// ScoreSnapshot is an immutable copy of the store taken at a tick boundary.
type ScoreSnapshot map[domain.Entity]domain.Score

// Score implements domain.ScoreReader.
func (s ScoreSnapshot) Score(handle domain.ScorerEnt) (domain.Score, error) {
	score, ok := s[handle.Entity()]
	if !ok {
		return domain.Score{}, domain.NewScoreError(handle, "Score", domain.ErrScoreNotFound)
	}
	return score, nil
}
