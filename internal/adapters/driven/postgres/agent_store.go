package postgres

import (
	"context"
	"database/sql"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
	"github.com/lib/pq"
)

// Verify interface compliance
var _ driven.AgentStore = (*AgentStore)(nil)

// AgentStore implements driven.AgentStore using PostgreSQL
type AgentStore struct {
	db *DB
}

// NewAgentStore creates a new AgentStore
func NewAgentStore(db *DB) *AgentStore {
	return &AgentStore{db: db}
}

const agentColumns = `id, slug, name, description, detailed_description, tags, version, license,
       framework, category, tools, status, repo_url, repo_owner, repo_name, source_path,
       commit_sha, original_author, last_sync_at, stars, forks, homepage, created_at, updated_at`

// Create inserts a new agent. Slug collisions surface as ErrAlreadyExists.
func (s *AgentStore) Create(ctx context.Context, agent *domain.Agent) error {
	query := `
		INSERT INTO agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`

	_, err := s.db.ExecContext(ctx, query,
		agent.ID,
		agent.Slug,
		agent.Name,
		agent.Description,
		agent.DetailedDescription,
		pq.Array(agent.Tags),
		agent.Version,
		agent.License,
		agent.Framework,
		agent.Category,
		pq.Array(agent.Tools),
		string(agent.Status),
		agent.RepoURL,
		agent.RepoOwner,
		agent.RepoName,
		agent.SourcePath,
		agent.CommitSHA,
		agent.OriginalAuthor,
		NullTime(agent.LastSyncAt),
		agent.Stars,
		agent.Forks,
		agent.Homepage,
		agent.CreatedAt,
		agent.UpdatedAt,
	)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return domain.ErrAlreadyExists
	}
	return err
}

// Update replaces an existing agent record
func (s *AgentStore) Update(ctx context.Context, agent *domain.Agent) error {
	query := `
		UPDATE agents SET
			slug = $2, name = $3, description = $4, detailed_description = $5, tags = $6,
			version = $7, license = $8, framework = $9, category = $10, tools = $11,
			status = $12, repo_url = $13, repo_owner = $14, repo_name = $15, source_path = $16,
			commit_sha = $17, original_author = $18, last_sync_at = $19, stars = $20,
			forks = $21, homepage = $22, updated_at = $23
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query,
		agent.ID,
		agent.Slug,
		agent.Name,
		agent.Description,
		agent.DetailedDescription,
		pq.Array(agent.Tags),
		agent.Version,
		agent.License,
		agent.Framework,
		agent.Category,
		pq.Array(agent.Tools),
		string(agent.Status),
		agent.RepoURL,
		agent.RepoOwner,
		agent.RepoName,
		agent.SourcePath,
		agent.CommitSHA,
		agent.OriginalAuthor,
		NullTime(agent.LastSyncAt),
		agent.Stars,
		agent.Forks,
		agent.Homepage,
		agent.UpdatedAt,
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

// Get retrieves an agent by ID
func (s *AgentStore) Get(ctx context.Context, id string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`
	return s.queryAgent(ctx, query, id)
}

// GetBySlug retrieves an agent by its globally unique slug
func (s *AgentStore) GetBySlug(ctx context.Context, slug string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE slug = $1`
	return s.queryAgent(ctx, query, slug)
}

// ListByRepo retrieves all agents imported from a repository
func (s *AgentStore) ListByRepo(ctx context.Context, owner, repo string) ([]*domain.Agent, error) {
	query := `
		SELECT ` + agentColumns + `
		FROM agents
		WHERE repo_owner = $1 AND repo_name = $2
		ORDER BY slug ASC
	`
	return s.queryAgents(ctx, query, owner, repo)
}

// List retrieves agents with pagination
func (s *AgentStore) List(ctx context.Context, limit, offset int) ([]*domain.Agent, error) {
	query := `
		SELECT ` + agentColumns + `
		FROM agents
		ORDER BY slug ASC
		LIMIT $1 OFFSET $2
	`
	if limit <= 0 {
		limit = 50
	}
	return s.queryAgents(ctx, query, limit, offset)
}

// Count returns the total number of agents
func (s *AgentStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *AgentStore) queryAgent(ctx context.Context, query string, args ...interface{}) (*domain.Agent, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	agent, err := scanAgent(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return agent, nil
}

func (s *AgentStore) queryAgents(ctx context.Context, query string, args ...interface{}) ([]*domain.Agent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []*domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return agents, nil
}

// rowScanner covers both sql.Row and sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var agent domain.Agent
	var lastSyncAt sql.NullTime

	err := row.Scan(
		&agent.ID,
		&agent.Slug,
		&agent.Name,
		&agent.Description,
		&agent.DetailedDescription,
		pq.Array(&agent.Tags),
		&agent.Version,
		&agent.License,
		&agent.Framework,
		&agent.Category,
		pq.Array(&agent.Tools),
		&agent.Status,
		&agent.RepoURL,
		&agent.RepoOwner,
		&agent.RepoName,
		&agent.SourcePath,
		&agent.CommitSHA,
		&agent.OriginalAuthor,
		&lastSyncAt,
		&agent.Stars,
		&agent.Forks,
		&agent.Homepage,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	agent.LastSyncAt = TimePtr(lastSyncAt)
	return &agent, nil
}
