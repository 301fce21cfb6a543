package docnum

import (
	"context"
	"sync"
	"sync/atomic"
)

// MemoryGenerator allocates numbers from per-kind atomic counters.
type MemoryGenerator struct {
	mu       sync.Mutex
	counters map[Kind]*atomic.Int64
}

// NewMemoryGenerator constructs an empty MemoryGenerator.
func NewMemoryGenerator() *MemoryGenerator {
	return &MemoryGenerator{counters: make(map[Kind]*atomic.Int64)}
}

// Next returns the next number for kind.
func (g *MemoryGenerator) Next(_ context.Context, kind Kind) (string, error) {
	g.mu.Lock()
	counter, ok := g.counters[kind]
	if !ok {
		counter = &atomic.Int64{}
		g.counters[kind] = counter
	}
	g.mu.Unlock()
	return Format(kind, counter.Add(1)), nil
}
