package driven

import (
	"context"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

// QuotaStore persists quota snapshots for observability. Persistence is
// never consulted for admission decisions; the in-memory manager holds the
// authoritative cache.
type QuotaStore interface {
	// SaveSnapshot upserts the snapshot for one resource class
	SaveSnapshot(ctx context.Context, snapshot *domain.QuotaSnapshot) error

	// ListSnapshots retrieves the latest snapshot per resource class
	ListSnapshots(ctx context.Context) ([]*domain.QuotaSnapshot, error)
}
