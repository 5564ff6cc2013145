package memory

import (
	"context"
	"sync"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DeliveryGate = (*DeliveryGate)(nil)

// DeliveryGate implements driven.DeliveryGate with an in-process map.
// Suitable for single-instance deployments without Redis; duplicate
// suppression does not extend across instances.
type DeliveryGate struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDeliveryGate creates a new in-memory DeliveryGate.
func NewDeliveryGate() *DeliveryGate {
	return &DeliveryGate{seen: make(map[string]time.Time)}
}

// ShouldProcess reports whether a delivery is the first for its key within
// the window, recording it when allowed. Expired entries are pruned lazily.
func (g *DeliveryGate) ShouldProcess(ctx context.Context, repoFullName, eventType string, window time.Duration) (bool, error) {
	key := repoFullName + "|" + eventType
	now := time.Now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for k, expires := range g.seen {
		if now.After(expires) {
			delete(g.seen, k)
		}
	}

	if expires, ok := g.seen[key]; ok && now.Before(expires) {
		return false, nil
	}

	g.seen[key] = now.Add(window)
	return true, nil
}
