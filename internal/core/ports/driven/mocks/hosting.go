package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
)

// MockHostingClient is a mock implementation of HostingClient for testing.
// Fixtures are keyed by "owner/repo"; blobs by "owner/repo@sha" and file
// contents by "owner/repo:path".
type MockHostingClient struct {
	mu sync.RWMutex

	Repos        map[string]*driven.Repository
	Trees        map[string][]*driven.TreeEntry
	Blobs        map[string]*driven.Blob
	Files        map[string]*driven.Blob
	Readmes      map[string]*driven.Blob
	Commits      map[string][]*driven.Commit
	Releases     map[string][]*driven.Release
	Branches     map[string][]*driven.Branch
	Webhooks     map[string][]*driven.Webhook
	Languages    map[string]map[string]int64
	Contributors map[string][]*driven.Contributor
	RateLimit    map[domain.ResourceClass]domain.QuotaSnapshot
	UserRepos    map[string][]*driven.Repository
	SearchResult []*driven.Repository

	// Err, when set, is returned by every call.
	Err error

	// BlobErrs injects per-SHA transient failures; each fetch of the SHA
	// consumes one error until the slice is empty.
	BlobErrs map[string][]error

	nextHookID int64
	calls      map[string]int
}

// NewMockHostingClient creates a new MockHostingClient
func NewMockHostingClient() *MockHostingClient {
	return &MockHostingClient{
		Repos:        make(map[string]*driven.Repository),
		Trees:        make(map[string][]*driven.TreeEntry),
		Blobs:        make(map[string]*driven.Blob),
		Files:        make(map[string]*driven.Blob),
		Readmes:      make(map[string]*driven.Blob),
		Commits:      make(map[string][]*driven.Commit),
		Releases:     make(map[string][]*driven.Release),
		Branches:     make(map[string][]*driven.Branch),
		Webhooks:     make(map[string][]*driven.Webhook),
		Languages:    make(map[string]map[string]int64),
		Contributors: make(map[string][]*driven.Contributor),
		UserRepos:    make(map[string][]*driven.Repository),
		BlobErrs:     make(map[string][]error),
		calls:        make(map[string]int),
	}
}

func repoKey(owner, repo string) string { return owner + "/" + repo }

// Calls returns how many times the named method was invoked
func (m *MockHostingClient) Calls(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

func (m *MockHostingClient) record(method string) {
	m.calls[method]++
}

func (m *MockHostingClient) GetRepository(ctx context.Context, owner, repo string) (*driven.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetRepository")
	if m.Err != nil {
		return nil, m.Err
	}
	r, ok := m.Repos[repoKey(owner, repo)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

func (m *MockHostingClient) ListUserRepositories(ctx context.Context, user string, opts driven.ListOptions) ([]*driven.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListUserRepositories")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.UserRepos[user], nil
}

func (m *MockHostingClient) SearchRepositories(ctx context.Context, query string, opts driven.ListOptions) ([]*driven.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SearchRepositories")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.SearchResult, nil
}

func (m *MockHostingClient) GetTree(ctx context.Context, owner, repo, ref string, recursive bool) ([]*driven.TreeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetTree")
	if m.Err != nil {
		return nil, m.Err
	}
	tree, ok := m.Trees[repoKey(owner, repo)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return tree, nil
}

func (m *MockHostingClient) GetBlob(ctx context.Context, owner, repo, sha string) (*driven.Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetBlob")
	if m.Err != nil {
		return nil, m.Err
	}
	if errs := m.BlobErrs[sha]; len(errs) > 0 {
		err := errs[0]
		m.BlobErrs[sha] = errs[1:]
		return nil, err
	}
	blob, ok := m.Blobs[repoKey(owner, repo)+"@"+sha]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", sha, domain.ErrNotFound)
	}
	return blob, nil
}

func (m *MockHostingClient) GetReadme(ctx context.Context, owner, repo string) (*driven.Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetReadme")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Readmes[repoKey(owner, repo)], nil
}

func (m *MockHostingClient) GetFileContent(ctx context.Context, owner, repo, path string) (*driven.Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetFileContent")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Files[repoKey(owner, repo)+":"+path], nil
}

func (m *MockHostingClient) ListCommits(ctx context.Context, owner, repo string, opts driven.ListOptions) ([]*driven.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListCommits")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Commits[repoKey(owner, repo)], nil
}

func (m *MockHostingClient) GetLatestCommit(ctx context.Context, owner, repo, branch string) (*driven.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetLatestCommit")
	if m.Err != nil {
		return nil, m.Err
	}
	commits := m.Commits[repoKey(owner, repo)]
	if len(commits) == 0 {
		return nil, nil
	}
	return commits[0], nil
}

func (m *MockHostingClient) ListReleases(ctx context.Context, owner, repo string, opts driven.ListOptions) ([]*driven.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListReleases")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Releases[repoKey(owner, repo)], nil
}

func (m *MockHostingClient) GetLatestRelease(ctx context.Context, owner, repo string) (*driven.Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetLatestRelease")
	if m.Err != nil {
		return nil, m.Err
	}
	releases := m.Releases[repoKey(owner, repo)]
	if len(releases) == 0 {
		return nil, nil
	}
	return releases[0], nil
}

func (m *MockHostingClient) ListBranches(ctx context.Context, owner, repo string, opts driven.ListOptions) ([]*driven.Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListBranches")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Branches[repoKey(owner, repo)], nil
}

func (m *MockHostingClient) CreateWebhook(ctx context.Context, owner, repo string, cfg driven.WebhookConfig) (*driven.Webhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateWebhook")
	if m.Err != nil {
		return nil, m.Err
	}
	m.nextHookID++
	hook := &driven.Webhook{ID: m.nextHookID, URL: cfg.URL, Events: cfg.Events, Active: true}
	key := repoKey(owner, repo)
	m.Webhooks[key] = append(m.Webhooks[key], hook)
	return hook, nil
}

func (m *MockHostingClient) ListWebhooks(ctx context.Context, owner, repo string) ([]*driven.Webhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("ListWebhooks")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Webhooks[repoKey(owner, repo)], nil
}

func (m *MockHostingClient) DeleteWebhook(ctx context.Context, owner, repo string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("DeleteWebhook")
	if m.Err != nil {
		return m.Err
	}
	key := repoKey(owner, repo)
	hooks := m.Webhooks[key]
	for i, hook := range hooks {
		if hook.ID == id {
			m.Webhooks[key] = append(hooks[:i], hooks[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockHostingClient) GetLanguages(ctx context.Context, owner, repo string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetLanguages")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Languages[repoKey(owner, repo)], nil
}

func (m *MockHostingClient) GetContributors(ctx context.Context, owner, repo string, opts driven.ListOptions) ([]*driven.Contributor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetContributors")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Contributors[repoKey(owner, repo)], nil
}

func (m *MockHostingClient) GetRateLimit(ctx context.Context) (map[domain.ResourceClass]domain.QuotaSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetRateLimit")
	if m.Err != nil {
		return nil, m.Err
	}
	return m.RateLimit, nil
}
