package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SyncJobStore = (*SyncJobStore)(nil)

// SyncJobStore implements driven.SyncJobStore using PostgreSQL
type SyncJobStore struct {
	db *DB
}

// NewSyncJobStore creates a new SyncJobStore
func NewSyncJobStore(db *DB) *SyncJobStore {
	return &SyncJobStore{db: db}
}

const jobColumns = `id, binding_id, agent_id, type, status, progress, result, error,
       created_at, started_at, completed_at`

// Create inserts a new sync job
func (s *SyncJobStore) Create(ctx context.Context, job *domain.SyncJob) error {
	resultJSON, err := marshalJobResult(job.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sync_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = s.db.ExecContext(ctx, query,
		job.ID,
		job.BindingID,
		job.AgentID,
		string(job.Type),
		string(job.Status),
		job.Progress,
		resultJSON,
		job.Error,
		job.CreatedAt,
		NullTime(job.StartedAt),
		NullTime(job.CompletedAt),
	)
	return err
}

// Update replaces an existing job record
func (s *SyncJobStore) Update(ctx context.Context, job *domain.SyncJob) error {
	resultJSON, err := marshalJobResult(job.Result)
	if err != nil {
		return err
	}

	query := `
		UPDATE sync_jobs SET
			status = $2, progress = $3, result = $4, error = $5,
			started_at = $6, completed_at = $7
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query,
		job.ID,
		string(job.Status),
		job.Progress,
		resultJSON,
		job.Error,
		NullTime(job.StartedAt),
		NullTime(job.CompletedAt),
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// Get retrieves a sync job by ID
func (s *SyncJobStore) Get(ctx context.Context, id string) (*domain.SyncJob, error) {
	query := `SELECT ` + jobColumns + ` FROM sync_jobs WHERE id = $1`

	row := s.db.QueryRowContext(ctx, query, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// ListByBinding retrieves recent jobs for a binding, newest first
func (s *SyncJobStore) ListByBinding(ctx context.Context, bindingID string, limit int) ([]*domain.SyncJob, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT ` + jobColumns + `
		FROM sync_jobs
		WHERE binding_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, bindingID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.SyncJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return jobs, nil
}

// AppendLog appends one ordered log entry for a job
func (s *SyncJobStore) AppendLog(ctx context.Context, log *domain.JobLog) error {
	query := `
		INSERT INTO sync_job_logs (job_id, level, message, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := s.db.ExecContext(ctx, query, log.JobID, string(log.Level), log.Message, log.CreatedAt)
	return err
}

// ListLogs retrieves a job's log entries in append order
func (s *SyncJobStore) ListLogs(ctx context.Context, jobID string) ([]*domain.JobLog, error) {
	query := `
		SELECT job_id, level, message, created_at
		FROM sync_job_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.JobLog
	for rows.Next() {
		var log domain.JobLog
		if err := rows.Scan(&log.JobID, &log.Level, &log.Message, &log.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}

// PurgeOlderThan removes terminal jobs created before the cutoff.
// Log entries follow via the foreign key cascade.
func (s *SyncJobStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM sync_jobs
		WHERE status IN ('completed', 'failed') AND created_at < $1
	`

	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rowsAffected), nil
}

func marshalJobResult(result map[string]string) ([]byte, error) {
	if result == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(result)
}

func scanJob(row rowScanner) (*domain.SyncJob, error) {
	var job domain.SyncJob
	var resultJSON []byte
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.BindingID,
		&job.AgentID,
		&job.Type,
		&job.Status,
		&job.Progress,
		&resultJSON,
		&job.Error,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(resultJSON) > 0 && string(resultJSON) != "{}" {
		if err := json.Unmarshal(resultJSON, &job.Result); err != nil {
			return nil, err
		}
	}
	job.StartedAt = TimePtr(startedAt)
	job.CompletedAt = TimePtr(completedAt)

	return &job, nil
}
