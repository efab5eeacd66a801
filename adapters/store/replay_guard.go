package store

import (
	"context"
	"sync"

	"github.com/lockstitch/courier/ports"
)

const (
	// DefaultReplayCapacity is the nonce count past which the guard evicts.
	DefaultReplayCapacity = 10000
)

// MemoryReplayGuard tracks consumed nonces in a bounded, insertion-ordered
// set. Once the set exceeds its capacity it retains only the most recently
// inserted half. Eviction is a lossy approximation; the envelope freshness
// window is the complementary defense.
type MemoryReplayGuard struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	order    []string
	capacity int
}

// NewMemoryReplayGuard creates a guard that evicts down to capacity/2 once it
// holds more than capacity nonces. A non-positive capacity uses the default.
func NewMemoryReplayGuard(capacity int) *MemoryReplayGuard {
	if capacity <= 0 {
		capacity = DefaultReplayCapacity
	}
	return &MemoryReplayGuard{
		seen:     make(map[string]struct{}),
		capacity: capacity,
	}
}

// Consume records nonce and reports whether it had been seen before.
func (g *MemoryReplayGuard) Consume(ctx context.Context, nonce string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.seen[nonce]; ok {
		return true, nil
	}

	g.seen[nonce] = struct{}{}
	g.order = append(g.order, nonce)

	if len(g.order) > g.capacity {
		keep := g.capacity / 2
		evict := g.order[:len(g.order)-keep]
		for _, old := range evict {
			delete(g.seen, old)
		}
		g.order = append([]string(nil), g.order[len(g.order)-keep:]...)
	}

	return false, nil
}

// Len returns the number of tracked nonces.
func (g *MemoryReplayGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.order)
}

var _ ports.ReplayGuard = (*MemoryReplayGuard)(nil)
