package quota

import (
	"context"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
)

// ThrottledClient wraps a HostingClient so every outbound API call is
// admitted through the throttler's priority queue. Search calls are admitted
// against the search class, everything else against core. GetRateLimit goes
// straight through: the rate-limit endpoint is not billed against any class,
// and refreshing quota state must work while a class is exhausted.
type ThrottledClient struct {
	inner     driven.HostingClient
	throttler *Throttler
	priority  int
}

// Compile-time interface compliance check
var _ driven.HostingClient = (*ThrottledClient)(nil)

// NewThrottledClient wraps inner so its calls run through the throttler at
// the given priority.
func NewThrottledClient(inner driven.HostingClient, throttler *Throttler, priority int) *ThrottledClient {
	return &ThrottledClient{inner: inner, throttler: throttler, priority: priority}
}

// WithPriority returns a view of the client submitting at a different
// priority. The underlying client and throttler are shared.
func (c *ThrottledClient) WithPriority(priority int) *ThrottledClient {
	return &ThrottledClient{inner: c.inner, throttler: c.throttler, priority: priority}
}

func admit[T any](ctx context.Context, c *ThrottledClient, class domain.ResourceClass, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := c.throttler.Submit(ctx, class, c.priority, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

func (c *ThrottledClient) GetRepository(ctx context.Context, owner, repo string) (*driven.Repository, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) (*driven.Repository, error) {
		return c.inner.GetRepository(ctx, owner, repo)
	})
}

func (c *ThrottledClient) ListUserRepositories(ctx context.Context, user string, opts driven.ListOptions) ([]*driven.Repository, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) ([]*driven.Repository, error) {
		return c.inner.ListUserRepositories(ctx, user, opts)
	})
}

func (c *ThrottledClient) SearchRepositories(ctx context.Context, query string, opts driven.ListOptions) ([]*driven.Repository, error) {
	return admit(ctx, c, domain.ResourceSearch, func(ctx context.Context) ([]*driven.Repository, error) {
		return c.inner.SearchRepositories(ctx, query, opts)
	})
}

func (c *ThrottledClient) GetTree(ctx context.Context, owner, repo, ref string, recursive bool) ([]*driven.TreeEntry, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) ([]*driven.TreeEntry, error) {
		return c.inner.GetTree(ctx, owner, repo, ref, recursive)
	})
}

func (c *ThrottledClient) GetBlob(ctx context.Context, owner, repo, sha string) (*driven.Blob, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) (*driven.Blob, error) {
		return c.inner.GetBlob(ctx, owner, repo, sha)
	})
}

func (c *ThrottledClient) GetReadme(ctx context.Context, owner, repo string) (*driven.Blob, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) (*driven.Blob, error) {
		return c.inner.GetReadme(ctx, owner, repo)
	})
}

func (c *ThrottledClient) GetFileContent(ctx context.Context, owner, repo, path string) (*driven.Blob, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) (*driven.Blob, error) {
		return c.inner.GetFileContent(ctx, owner, repo, path)
	})
}

func (c *ThrottledClient) ListCommits(ctx context.Context, owner, repo string, opts driven.ListOptions) ([]*driven.Commit, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) ([]*driven.Commit, error) {
		return c.inner.ListCommits(ctx, owner, repo, opts)
	})
}

func (c *ThrottledClient) GetLatestCommit(ctx context.Context, owner, repo, branch string) (*driven.Commit, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) (*driven.Commit, error) {
		return c.inner.GetLatestCommit(ctx, owner, repo, branch)
	})
}

func (c *ThrottledClient) ListReleases(ctx context.Context, owner, repo string, opts driven.ListOptions) ([]*driven.Release, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) ([]*driven.Release, error) {
		return c.inner.ListReleases(ctx, owner, repo, opts)
	})
}

func (c *ThrottledClient) GetLatestRelease(ctx context.Context, owner, repo string) (*driven.Release, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) (*driven.Release, error) {
		return c.inner.GetLatestRelease(ctx, owner, repo)
	})
}

func (c *ThrottledClient) ListBranches(ctx context.Context, owner, repo string, opts driven.ListOptions) ([]*driven.Branch, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) ([]*driven.Branch, error) {
		return c.inner.ListBranches(ctx, owner, repo, opts)
	})
}

func (c *ThrottledClient) CreateWebhook(ctx context.Context, owner, repo string, cfg driven.WebhookConfig) (*driven.Webhook, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) (*driven.Webhook, error) {
		return c.inner.CreateWebhook(ctx, owner, repo, cfg)
	})
}

func (c *ThrottledClient) ListWebhooks(ctx context.Context, owner, repo string) ([]*driven.Webhook, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) ([]*driven.Webhook, error) {
		return c.inner.ListWebhooks(ctx, owner, repo)
	})
}

func (c *ThrottledClient) DeleteWebhook(ctx context.Context, owner, repo string, id int64) error {
	return c.throttler.Submit(ctx, domain.ResourceCore, c.priority, func(ctx context.Context) error {
		return c.inner.DeleteWebhook(ctx, owner, repo, id)
	})
}

func (c *ThrottledClient) GetLanguages(ctx context.Context, owner, repo string) (map[string]int64, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) (map[string]int64, error) {
		return c.inner.GetLanguages(ctx, owner, repo)
	})
}

func (c *ThrottledClient) GetContributors(ctx context.Context, owner, repo string, opts driven.ListOptions) ([]*driven.Contributor, error) {
	return admit(ctx, c, domain.ResourceCore, func(ctx context.Context) ([]*driven.Contributor, error) {
		return c.inner.GetContributors(ctx, owner, repo, opts)
	})
}

func (c *ThrottledClient) GetRateLimit(ctx context.Context) (map[domain.ResourceClass]domain.QuotaSnapshot, error) {
	return c.inner.GetRateLimit(ctx)
}
