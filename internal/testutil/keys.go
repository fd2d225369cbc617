package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator generates primary keys "<prefix>-000001",
// "<prefix>-000002", ... so stored rows are reproducible across runs.
//
// Thread-safety: Generate is safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix means "key".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "key"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next key.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%06d", g.prefix, g.n)
}

// Issued returns how many keys have been generated.
func (g *SequenceGenerator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}
