package driving

import (
	"context"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

// SyncRequest represents a request to sync one agent with its repository
type SyncRequest struct {
	AgentID string `json:"agent_id"`

	// Force runs all sync passes even when no upstream change is detected
	Force bool `json:"force,omitempty"`

	// Type selects which passes run; empty means full
	Type domain.SyncJobType `json:"type,omitempty"`
}

// SyncOrchestrator coordinates agent synchronization with repositories
type SyncOrchestrator interface {
	// SyncAgent triggers a sync for a specific agent
	SyncAgent(ctx context.Context, req SyncRequest) (*domain.SyncResult, error)

	// SyncBinding triggers a sync for a specific binding
	SyncBinding(ctx context.Context, bindingID string, force bool) (*domain.SyncResult, error)

	// SyncRepository syncs every binding attached to a repository
	SyncRepository(ctx context.Context, owner, repo string, force bool) ([]*domain.SyncResult, error)

	// SyncStale syncs all enabled bindings that have not synced within
	// the staleness window
	SyncStale(ctx context.Context) ([]*domain.SyncResult, error)

	// GetJob retrieves a sync job by ID
	GetJob(ctx context.Context, jobID string) (*domain.SyncJob, error)

	// GetJobLogs retrieves the log entries of a sync job
	GetJobLogs(ctx context.Context, jobID string) ([]*domain.JobLog, error)

	// ListJobs retrieves recent jobs for a binding
	ListJobs(ctx context.Context, bindingID string, limit int) ([]*domain.SyncJob, error)
}

// BindingService manages agent-repository sync bindings
type BindingService interface {
	// CreateBinding binds an agent to its source repository for syncing
	CreateBinding(ctx context.Context, agentID string, config domain.BindingConfig) (*domain.SyncBinding, error)

	// GetBinding retrieves a binding by ID
	GetBinding(ctx context.Context, id string) (*domain.SyncBinding, error)

	// GetBindingByAgent retrieves the binding for an agent
	GetBindingByAgent(ctx context.Context, agentID string) (*domain.SyncBinding, error)

	// UpdateBinding updates a binding's configuration
	UpdateBinding(ctx context.Context, id string, config domain.BindingConfig) (*domain.SyncBinding, error)

	// EnableBinding enables automatic syncing for a binding
	EnableBinding(ctx context.Context, id string) error

	// DisableBinding disables automatic syncing for a binding
	DisableBinding(ctx context.Context, id string) error

	// SetupWebhook registers a webhook on the bound repository
	SetupWebhook(ctx context.Context, bindingID string, callbackURL, secret string) error

	// RemoveWebhook removes the webhook from the bound repository
	RemoveWebhook(ctx context.Context, bindingID string) error
}

// Scheduler manages periodic background sync scheduling
type Scheduler interface {
	// Start begins the scheduler loop
	Start(ctx context.Context) error

	// Stop stops the scheduler and waits for the loop to exit
	Stop()
}
