package driven

import (
	"context"
	"time"
)

// DeliveryGate suppresses duplicate webhook deliveries. A delivery for the
// same (repository, event) key within the window is dropped without
// processing.
type DeliveryGate interface {
	// ShouldProcess reports whether a delivery keyed by repo+event should be
	// processed, atomically recording it for the window when allowed.
	ShouldProcess(ctx context.Context, repoFullName, eventType string, window time.Duration) (bool, error)
}
