package frontmatter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
)

const blobMaxRetries = 3

// deniedFilenames are common documentation files excluded from sub-agent
// parsing, matched by filename only so nested copies are excluded too.
var deniedFilenames = map[string]bool{
	"readme":          true,
	"changelog":       true,
	"contributing":    true,
	"license":         true,
	"security":        true,
	"code_of_conduct": true,
	"support":         true,
	"authors":         true,
	"notice":          true,
	"credits":         true,
	"acknowledgments": true,
	"claude":          true,
}

// RepoParser discovers and parses all sub-agent documents in a repository.
type RepoParser struct {
	client driven.HostingClient
	logger *slog.Logger

	// sleep is swappable for tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRepoParser creates a repository parser over a hosting client.
func NewRepoParser(client driven.HostingClient, logger *slog.Logger) *RepoParser {
	return &RepoParser{
		client: client,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// ParseRepositorySubAgents fetches the recursive tree once, filters candidate
// markdown files and parses each blob. A single file's failure never aborts
// the repository; failed files are skipped. Zero results is not an error
// here; the caller decides whether that matters.
func (p *RepoParser) ParseRepositorySubAgents(ctx context.Context, owner, repo, ref string) ([]*domain.SubAgentFile, error) {
	entries, err := p.client.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, fmt.Errorf("list tree for %s/%s: %w", owner, repo, err)
	}

	var results []*domain.SubAgentFile
	for _, entry := range entries {
		if !isCandidate(entry.Path) {
			continue
		}

		blob, err := p.fetchBlobWithRetry(ctx, owner, repo, entry.SHA)
		if err != nil {
			p.logger.Warn("skipping file after retries exhausted",
				"repo", owner+"/"+repo, "path", entry.Path, "error", err)
			continue
		}

		doc := ParseMarkdownFile(entry.Path, blob.Content)
		if doc == nil {
			continue
		}
		doc.SHA = entry.SHA
		results = append(results, doc)
	}
	return results, nil
}

// isCandidate reports whether a tree path is a parseable sub-agent file:
// a .md blob whose filename is not on the documentation deny-list.
func isCandidate(path string) bool {
	lower := strings.ToLower(path)
	if !strings.HasSuffix(lower, ".md") {
		return false
	}
	base := lower
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	return !deniedFilenames[strings.TrimSuffix(base, ".md")]
}

// fetchBlobWithRetry fetches one blob with up to 3 retries. Rate-limit
// flavored failures back off exponentially from 2s; anything else backs off
// linearly from 0.5s.
func (p *RepoParser) fetchBlobWithRetry(ctx context.Context, owner, repo, sha string) (*driven.Blob, error) {
	var lastErr error
	for attempt := 0; attempt <= blobMaxRetries; attempt++ {
		if attempt > 0 {
			var wait time.Duration
			if isRateLimitError(lastErr) {
				wait = 2 * time.Second << (attempt - 1)
			} else {
				wait = time.Duration(attempt) * 500 * time.Millisecond
			}
			if err := p.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		blob, err := p.client.GetBlob(ctx, owner, repo, sha)
		if err == nil {
			return blob, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// isRateLimitError detects rate-limit flavored failures by message.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "403")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
