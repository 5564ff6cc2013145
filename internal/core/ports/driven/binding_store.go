package driven

import (
	"context"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

// BindingStore handles sync binding persistence (PostgreSQL).
// The store enforces at most one binding per agent.
type BindingStore interface {
	// Create inserts a new binding. Returns domain.ErrAlreadyExists if the
	// agent already has one.
	Create(ctx context.Context, binding *domain.SyncBinding) error

	// Get retrieves a binding by ID
	Get(ctx context.Context, id string) (*domain.SyncBinding, error)

	// GetByAgent retrieves the binding for an agent
	GetByAgent(ctx context.Context, agentID string) (*domain.SyncBinding, error)

	// ListByRepo retrieves all bindings for a repository
	ListByRepo(ctx context.Context, owner, repo string) ([]*domain.SyncBinding, error)

	// Update saves all mutable fields of a binding
	Update(ctx context.Context, binding *domain.SyncBinding) error

	// ListEnabled retrieves all enabled bindings
	ListEnabled(ctx context.Context) ([]*domain.SyncBinding, error)

	// ListStale retrieves enabled bindings whose last sync is older than the
	// cutoff (or that never synced)
	ListStale(ctx context.Context, olderThan time.Time) ([]*domain.SyncBinding, error)
}
