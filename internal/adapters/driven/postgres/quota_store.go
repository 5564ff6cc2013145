package postgres

import (
	"context"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.QuotaStore = (*QuotaStore)(nil)

// QuotaStore persists one row per resource class for observability.
// Admission decisions never read these rows; the in-memory manager is
// authoritative.
type QuotaStore struct {
	db *DB
}

// NewQuotaStore creates a new QuotaStore
func NewQuotaStore(db *DB) *QuotaStore {
	return &QuotaStore{db: db}
}

// SaveSnapshot upserts the snapshot for one resource class
func (s *QuotaStore) SaveSnapshot(ctx context.Context, snapshot *domain.QuotaSnapshot) error {
	query := `
		INSERT INTO quota_snapshots (class, "limit", remaining, reset_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (class) DO UPDATE SET
			"limit" = EXCLUDED."limit",
			remaining = EXCLUDED.remaining,
			reset_at = EXCLUDED.reset_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		string(snapshot.Class),
		snapshot.Limit,
		snapshot.Remaining,
		snapshot.Reset,
		snapshot.UpdatedAt,
	)
	return err
}

// ListSnapshots retrieves the latest snapshot per resource class
func (s *QuotaStore) ListSnapshots(ctx context.Context) ([]*domain.QuotaSnapshot, error) {
	query := `
		SELECT class, "limit", remaining, reset_at, updated_at
		FROM quota_snapshots
		ORDER BY class ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*domain.QuotaSnapshot
	for rows.Next() {
		var snapshot domain.QuotaSnapshot
		err := rows.Scan(
			&snapshot.Class,
			&snapshot.Limit,
			&snapshot.Remaining,
			&snapshot.Reset,
			&snapshot.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, &snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return snapshots, nil
}
