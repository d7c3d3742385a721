// Package domain contains pure, dependency-free domain models and types
// for the utility decision kernel.
package domain

import "strconv"

// Entity is an opaque identifier for an agent or a live scorer instance.
// Identifiers are allocated by the score store and never reused.
type Entity uint64

// NoEntity is the zero Entity. It is never allocated.
const NoEntity Entity = 0

// String returns the entity formatted as "e<id>".
func (e Entity) String() string { return "e" + strconv.FormatUint(uint64(e), 10) }

// ScorerEnt is a handle to a built scorer instance. A Choice holds handles,
// never Scores; the handle is only a lookup key into the score store.
type ScorerEnt struct{ ent Entity }

// NewScorerEnt wraps an allocated entity as a scorer handle.
func NewScorerEnt(e Entity) ScorerEnt { return ScorerEnt{ent: e} }

// Entity returns the store key behind the handle.
func (s ScorerEnt) Entity() Entity { return s.ent }

// IsZero reports whether the handle was never assigned.
func (s ScorerEnt) IsZero() bool { return s.ent == NoEntity }

// String implements fmt.Stringer.
func (s ScorerEnt) String() string { return "scorer:" + s.ent.String() }
