package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.DeliveryGate = (*DeliveryGate)(nil)

const deliveryPrefix = "agenthub:delivery:"

// DeliveryGate implements driven.DeliveryGate using Redis SETNX with TTL.
// The first delivery for a (repository, event) pair sets the key; duplicates
// within the window see the existing key and are dropped. Redis expiry
// handles window cleanup, so the gate works across multiple server instances.
type DeliveryGate struct {
	client *redis.Client
}

// NewDeliveryGate creates a new Redis-backed DeliveryGate.
func NewDeliveryGate(client *redis.Client) *DeliveryGate {
	return &DeliveryGate{client: client}
}

// ShouldProcess atomically records the delivery and reports whether it is
// the first one seen for this key within the window.
func (g *DeliveryGate) ShouldProcess(ctx context.Context, repoFullName, eventType string, window time.Duration) (bool, error) {
	key := deliveryPrefix + repoFullName + "|" + eventType
	first, err := g.client.SetNX(ctx, key, "1", window).Result()
	if err != nil {
		return false, fmt.Errorf("record delivery %s: %w", key, err)
	}
	return first, nil
}
