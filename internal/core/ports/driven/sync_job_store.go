package driven

import (
	"context"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

// SyncJobStore handles sync job persistence (PostgreSQL).
// Job logs are append-only.
type SyncJobStore interface {
	// Create inserts a new job
	Create(ctx context.Context, job *domain.SyncJob) error

	// Update saves the job's status, progress, error and result fields
	Update(ctx context.Context, job *domain.SyncJob) error

	// Get retrieves a job by ID
	Get(ctx context.Context, id string) (*domain.SyncJob, error)

	// ListByBinding retrieves jobs for a binding, newest first
	ListByBinding(ctx context.Context, bindingID string, limit int) ([]*domain.SyncJob, error)

	// AppendLog inserts one log entry for a job
	AppendLog(ctx context.Context, log *domain.JobLog) error

	// ListLogs retrieves a job's log entries in insertion order
	ListLogs(ctx context.Context, jobID string) ([]*domain.JobLog, error)

	// PurgeOlderThan deletes completed/failed jobs (and their logs) created
	// before the cutoff. Returns the number of jobs removed.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
