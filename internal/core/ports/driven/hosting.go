package driven

import (
	"context"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

// Repository is a read-only snapshot of a remote repository. Never locally
// mutated; always re-fetched from the hosting service.
type Repository struct {
	ID            int64      `json:"id"`
	Owner         string     `json:"owner"`
	Name          string     `json:"name"`
	FullName      string     `json:"full_name"`
	Description   string     `json:"description"`
	Private       bool       `json:"private"`
	Archived      bool       `json:"archived"`
	Fork          bool       `json:"fork"`
	HTMLURL       string     `json:"html_url"`
	Homepage      string     `json:"homepage"`
	DefaultBranch string     `json:"default_branch"`
	Stars         int        `json:"stargazers_count"`
	Forks         int        `json:"forks_count"`
	OpenIssues    int        `json:"open_issues_count"`
	Topics        []string   `json:"topics"`
	License       string     `json:"license"`
	Language      string     `json:"language"`
	PushedAt      *time.Time `json:"pushed_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TreeEntry is one entry of a repository tree listing.
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"` // "blob" or "tree"
	Size int64  `json:"size"`
	SHA  string `json:"sha"`
}

// Blob is a content object fetched by SHA or path. Content is decoded text.
type Blob struct {
	SHA     string `json:"sha"`
	Path    string `json:"path,omitempty"`
	Size    int64  `json:"size"`
	Content string `json:"content"`
}

// Commit is a single repository commit.
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
}

// Release is a published repository release.
type Release struct {
	ID          int64     `json:"id"`
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// Branch is a repository branch head.
type Branch struct {
	Name      string `json:"name"`
	CommitSHA string `json:"commit_sha"`
}

// Webhook is a remote webhook registration.
type Webhook struct {
	ID     int64    `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Active bool     `json:"active"`
}

// WebhookConfig configures webhook creation.
type WebhookConfig struct {
	URL    string   `json:"url"`
	Secret string   `json:"secret"`
	Events []string `json:"events"`
}

// Contributor is a repository contributor with commit count.
type Contributor struct {
	Login         string `json:"login"`
	Contributions int    `json:"contributions"`
}

// ListOptions controls pagination and ordering for listing calls.
// Zero values take the documented defaults.
type ListOptions struct {
	// PerPage defaults to 30, maximum 100.
	PerPage int
	// Page defaults to 1.
	Page int
	// Sort defaults to "updated".
	Sort string
	// Direction defaults to "desc".
	Direction string
}

// HostingClient is the typed surface over the source-control hosting API.
// Every method forwards rate-limit response headers to the quota recorder,
// wraps failures with the operation and target, and never swallows errors.
// Helpers documented as nil-on-absence return (nil, nil) when the target
// does not exist; absence is an expected outcome, not a failure.
type HostingClient interface {
	GetRepository(ctx context.Context, owner, repo string) (*Repository, error)
	ListUserRepositories(ctx context.Context, user string, opts ListOptions) ([]*Repository, error)
	SearchRepositories(ctx context.Context, query string, opts ListOptions) ([]*Repository, error)

	// GetTree lists the repository tree at ref, recursively when asked.
	// Only blob entries are returned.
	GetTree(ctx context.Context, owner, repo, ref string, recursive bool) ([]*TreeEntry, error)
	// GetBlob fetches a blob by content SHA.
	GetBlob(ctx context.Context, owner, repo, sha string) (*Blob, error)

	// GetReadme returns the repository README, nil when absent.
	GetReadme(ctx context.Context, owner, repo string) (*Blob, error)
	// GetFileContent returns a file by path, nil when absent.
	GetFileContent(ctx context.Context, owner, repo, path string) (*Blob, error)

	ListCommits(ctx context.Context, owner, repo string, opts ListOptions) ([]*Commit, error)
	// GetLatestCommit returns the head commit of a branch, nil when the
	// branch has no commits.
	GetLatestCommit(ctx context.Context, owner, repo, branch string) (*Commit, error)

	ListReleases(ctx context.Context, owner, repo string, opts ListOptions) ([]*Release, error)
	// GetLatestRelease returns the latest published release, nil when the
	// repository has none.
	GetLatestRelease(ctx context.Context, owner, repo string) (*Release, error)

	ListBranches(ctx context.Context, owner, repo string, opts ListOptions) ([]*Branch, error)

	CreateWebhook(ctx context.Context, owner, repo string, cfg WebhookConfig) (*Webhook, error)
	ListWebhooks(ctx context.Context, owner, repo string) ([]*Webhook, error)
	DeleteWebhook(ctx context.Context, owner, repo string, id int64) error

	GetLanguages(ctx context.Context, owner, repo string) (map[string]int64, error)
	GetContributors(ctx context.Context, owner, repo string, opts ListOptions) ([]*Contributor, error)

	// GetRateLimit fetches the per-class limit/remaining/reset triples from
	// the dedicated rate-limit endpoint.
	GetRateLimit(ctx context.Context) (map[domain.ResourceClass]domain.QuotaSnapshot, error)
}

// QuotaRecorder receives rate-limit state observed on hosting API responses.
// Implemented by the quota manager; the hosting client calls it after every
// request that carried rate-limit headers.
type QuotaRecorder interface {
	RecordHeaders(class domain.ResourceClass, limit, remaining int, reset time.Time)
}

// TokenProvider provides access tokens for hosting API authentication.
type TokenProvider interface {
	// GetAccessToken returns a valid access token.
	GetAccessToken(ctx context.Context) (string, error)
}

// StaticTokenProvider wraps a fixed personal access token.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a token provider for a static token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

// GetAccessToken returns the stored token.
func (p *StaticTokenProvider) GetAccessToken(ctx context.Context) (string, error) {
	return p.token, nil
}
