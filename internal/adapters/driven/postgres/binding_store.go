package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
	"github.com/lib/pq"
)

// Verify interface compliance
var _ driven.BindingStore = (*BindingStore)(nil)

// BindingStore implements driven.BindingStore using PostgreSQL
type BindingStore struct {
	db *DB
}

// NewBindingStore creates a new BindingStore
func NewBindingStore(db *DB) *BindingStore {
	return &BindingStore{db: db}
}

const bindingColumns = `id, agent_id, repo_owner, repo_name, enabled, branch, webhook_id,
       last_sync_at, last_commit_sha, status, last_error, config, created_at, updated_at`

// Create inserts a new binding. The one-binding-per-agent constraint surfaces
// as ErrAlreadyExists.
func (s *BindingStore) Create(ctx context.Context, binding *domain.SyncBinding) error {
	configJSON, err := json.Marshal(binding.Config)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sync_bindings (` + bindingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	var webhookID sql.NullInt64
	if binding.WebhookID != nil {
		webhookID = sql.NullInt64{Int64: *binding.WebhookID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, query,
		binding.ID,
		binding.AgentID,
		binding.RepoOwner,
		binding.RepoName,
		binding.Enabled,
		binding.Branch,
		webhookID,
		NullTime(binding.LastSyncAt),
		binding.LastCommitSHA,
		string(binding.Status),
		binding.LastError,
		configJSON,
		binding.CreatedAt,
		binding.UpdatedAt,
	)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return domain.ErrAlreadyExists
	}
	return err
}

// Update replaces an existing binding record
func (s *BindingStore) Update(ctx context.Context, binding *domain.SyncBinding) error {
	configJSON, err := json.Marshal(binding.Config)
	if err != nil {
		return err
	}

	query := `
		UPDATE sync_bindings SET
			enabled = $2, branch = $3, webhook_id = $4, last_sync_at = $5,
			last_commit_sha = $6, status = $7, last_error = $8, config = $9, updated_at = $10
		WHERE id = $1
	`

	var webhookID sql.NullInt64
	if binding.WebhookID != nil {
		webhookID = sql.NullInt64{Int64: *binding.WebhookID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query,
		binding.ID,
		binding.Enabled,
		binding.Branch,
		webhookID,
		NullTime(binding.LastSyncAt),
		binding.LastCommitSHA,
		string(binding.Status),
		binding.LastError,
		configJSON,
		binding.UpdatedAt,
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

// Get retrieves a binding by ID
func (s *BindingStore) Get(ctx context.Context, id string) (*domain.SyncBinding, error) {
	query := `SELECT ` + bindingColumns + ` FROM sync_bindings WHERE id = $1`
	return s.queryBinding(ctx, query, id)
}

// GetByAgent retrieves the binding for an agent
func (s *BindingStore) GetByAgent(ctx context.Context, agentID string) (*domain.SyncBinding, error) {
	query := `SELECT ` + bindingColumns + ` FROM sync_bindings WHERE agent_id = $1`
	return s.queryBinding(ctx, query, agentID)
}

// ListByRepo retrieves all bindings attached to a repository
func (s *BindingStore) ListByRepo(ctx context.Context, owner, repo string) ([]*domain.SyncBinding, error) {
	query := `
		SELECT ` + bindingColumns + `
		FROM sync_bindings
		WHERE repo_owner = $1 AND repo_name = $2
		ORDER BY created_at ASC
	`
	return s.queryBindings(ctx, query, owner, repo)
}

// ListEnabled retrieves all enabled bindings
func (s *BindingStore) ListEnabled(ctx context.Context) ([]*domain.SyncBinding, error) {
	query := `
		SELECT ` + bindingColumns + `
		FROM sync_bindings
		WHERE enabled = true
		ORDER BY created_at ASC
	`
	return s.queryBindings(ctx, query)
}

// ListStale retrieves enabled bindings that have never synced or last synced
// before the cutoff
func (s *BindingStore) ListStale(ctx context.Context, olderThan time.Time) ([]*domain.SyncBinding, error) {
	query := `
		SELECT ` + bindingColumns + `
		FROM sync_bindings
		WHERE enabled = true AND (last_sync_at IS NULL OR last_sync_at < $1)
		ORDER BY last_sync_at ASC NULLS FIRST
	`
	return s.queryBindings(ctx, query, olderThan)
}

func (s *BindingStore) queryBinding(ctx context.Context, query string, args ...interface{}) (*domain.SyncBinding, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	binding, err := scanBinding(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return binding, nil
}

func (s *BindingStore) queryBindings(ctx context.Context, query string, args ...interface{}) ([]*domain.SyncBinding, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bindings []*domain.SyncBinding
	for rows.Next() {
		binding, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, binding)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bindings, nil
}

func scanBinding(row rowScanner) (*domain.SyncBinding, error) {
	var binding domain.SyncBinding
	var webhookID sql.NullInt64
	var lastSyncAt sql.NullTime
	var configJSON []byte

	err := row.Scan(
		&binding.ID,
		&binding.AgentID,
		&binding.RepoOwner,
		&binding.RepoName,
		&binding.Enabled,
		&binding.Branch,
		&webhookID,
		&lastSyncAt,
		&binding.LastCommitSHA,
		&binding.Status,
		&binding.LastError,
		&configJSON,
		&binding.CreatedAt,
		&binding.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if webhookID.Valid {
		binding.WebhookID = &webhookID.Int64
	}
	binding.LastSyncAt = TimePtr(lastSyncAt)
	if err := json.Unmarshal(configJSON, &binding.Config); err != nil {
		return nil, err
	}

	return &binding, nil
}
