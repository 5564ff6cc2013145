package driving

import (
	"context"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

// ImportRequest represents a request to import agents from a repository
type ImportRequest struct {
	RepoURL string `json:"repo_url"`

	// SelectedFiles restricts the import to these repository paths.
	// Empty means import every discovered sub-agent file.
	SelectedFiles []string `json:"selected_files,omitempty"`

	// AutoPublish publishes imported agents immediately instead of
	// leaving them in draft
	AutoPublish bool `json:"auto_publish,omitempty"`
}

// BatchImportRequest represents a request to import multiple repositories
type BatchImportRequest struct {
	RepoURLs    []string `json:"repo_urls"`
	AutoPublish bool     `json:"auto_publish,omitempty"`
}

// ImportService imports sub-agent definitions from hosted repositories
type ImportService interface {
	// ImportFromURL imports all sub-agents from a repository URL
	ImportFromURL(ctx context.Context, req ImportRequest) (*domain.ImportResult, error)

	// ImportRepository imports sub-agents from an owner/repo pair
	ImportRepository(ctx context.Context, owner, repo string, selectedFiles []string, autoPublish bool) (*domain.ImportResult, error)

	// BatchImport imports multiple repositories, isolating failures per repo
	BatchImport(ctx context.Context, req BatchImportRequest) ([]*domain.ImportResult, error)

	// ImportUserRepositories imports every repository owned by a user
	ImportUserRepositories(ctx context.Context, username string, autoPublish bool) ([]*domain.ImportResult, error)

	// SearchAndImport searches the hosting platform and imports matching
	// repositories up to limit
	SearchAndImport(ctx context.Context, query string, limit int, autoPublish bool) ([]*domain.ImportResult, error)

	// ValidateRepository checks that a repository is importable without
	// importing it
	ValidateRepository(ctx context.Context, owner, repo string) error
}
