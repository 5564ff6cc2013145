package driven

import (
	"context"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

// AgentStore handles agent record persistence (PostgreSQL)
type AgentStore interface {
	// Create inserts a new agent record
	Create(ctx context.Context, agent *domain.Agent) error

	// Get retrieves an agent by ID
	Get(ctx context.Context, id string) (*domain.Agent, error)

	// GetBySlug retrieves an agent by its globally unique slug
	GetBySlug(ctx context.Context, slug string) (*domain.Agent, error)

	// Update saves all mutable fields of an existing agent
	Update(ctx context.Context, agent *domain.Agent) error

	// ListByRepo retrieves all agents imported from one repository
	ListByRepo(ctx context.Context, owner, repo string) ([]*domain.Agent, error)

	// List retrieves agents with pagination
	List(ctx context.Context, limit, offset int) ([]*domain.Agent, error)

	// Count returns total agent count
	Count(ctx context.Context) (int, error)
}
