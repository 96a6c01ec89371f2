package testutil

import "sync"

// FixedIDGenerator returns the same run identifier every time.
//
// This enables deterministic test execution and golden output comparison:
// the same scenario with the same FixedIDGenerator produces byte-identical
// exported rows.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a generator for the given identifier.
// If id is empty, Generate returns "run-test-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "run-test-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed run identifier.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// SequenceIDGenerator returns predetermined run identifiers in order.
// Panics when the sequence is exhausted, a fail-fast guard against a test
// creating more runs than it declared.
type SequenceIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewSequenceIDGenerator creates a generator that returns ids in order.
func NewSequenceIDGenerator(ids ...string) *SequenceIDGenerator {
	return &SequenceIDGenerator{ids: ids}
}

// Generate returns the next predetermined identifier.
func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("SequenceIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
