package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
)

// Client provides GitHub API operations behind the HostingClient port.
type Client struct {
	tokenProvider driven.TokenProvider
	httpClient    *http.Client
	baseURL       string
	perPage       int
	maxRetries    int
	userAgent     string
	quota         driven.QuotaRecorder
}

// Compile-time interface compliance check
var _ driven.HostingClient = (*Client)(nil)

// NewClient creates a new GitHub API client. The quota recorder may be nil
// when rate-limit tracking is not wanted.
func NewClient(tokenProvider driven.TokenProvider, cfg *Config, quota driven.QuotaRecorder) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	perPage := cfg.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = 30
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		tokenProvider: tokenProvider,
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		perPage:       perPage,
		maxRetries:    maxRetries,
		userAgent:     cfg.UserAgent,
		quota:         quota,
	}
}

// repository is the GitHub API wire shape for a repository.
type repository struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	Archived    bool   `json:"archived"`
	Fork        bool   `json:"fork"`
	HTMLURL     string `json:"html_url"`
	Homepage    string `json:"homepage"`
	Owner       *struct {
		Login string `json:"login"`
	} `json:"owner"`
	DefaultBranch string   `json:"default_branch"`
	Stars         int      `json:"stargazers_count"`
	Forks         int      `json:"forks_count"`
	OpenIssues    int      `json:"open_issues_count"`
	Topics        []string `json:"topics"`
	License       *struct {
		SPDXID string `json:"spdx_id"`
	} `json:"license"`
	Language  string     `json:"language"`
	PushedAt  *time.Time `json:"pushed_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (r *repository) toPort() *driven.Repository {
	out := &driven.Repository{
		ID:            r.ID,
		Name:          r.Name,
		FullName:      r.FullName,
		Description:   r.Description,
		Private:       r.Private,
		Archived:      r.Archived,
		Fork:          r.Fork,
		HTMLURL:       r.HTMLURL,
		Homepage:      r.Homepage,
		DefaultBranch: r.DefaultBranch,
		Stars:         r.Stars,
		Forks:         r.Forks,
		OpenIssues:    r.OpenIssues,
		Topics:        r.Topics,
		Language:      r.Language,
		PushedAt:      r.PushedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Owner != nil {
		out.Owner = r.Owner.Login
	}
	if out.Owner == "" {
		if parts := strings.SplitN(r.FullName, "/", 2); len(parts) == 2 {
			out.Owner = parts[0]
		}
	}
	if r.License != nil && r.License.SPDXID != "NOASSERTION" {
		out.License = r.License.SPDXID
	}
	return out
}

// commit is the GitHub API wire shape for a commit.
type commit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

func (c *commit) toPort() *driven.Commit {
	return &driven.Commit{
		SHA:     c.SHA,
		Message: c.Commit.Message,
		Author:  c.Commit.Author.Name,
		Date:    c.Commit.Author.Date,
	}
}

// fileContent is the GitHub API wire shape for /contents and /readme.
type fileContent struct {
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (f *fileContent) toBlob() (*driven.Blob, error) {
	content := f.Content
	if f.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("decode content %s: %w", f.Path, err)
		}
		content = string(decoded)
	}
	return &driven.Blob{SHA: f.SHA, Path: f.Path, Size: f.Size, Content: content}, nil
}

func (c *Client) listQuery(opts driven.ListOptions) string {
	perPage := opts.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = c.perPage
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	sort := opts.Sort
	if sort == "" {
		sort = "updated"
	}
	direction := opts.Direction
	if direction == "" {
		direction = "desc"
	}
	return fmt.Sprintf("per_page=%d&page=%d&sort=%s&direction=%s", perPage, page, sort, direction)
}

// GetRepository gets repository information.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*driven.Repository, error) {
	var raw repository
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s", owner, repo), &raw); err != nil {
		return nil, fmt.Errorf("get repository %s/%s: %w", owner, repo, err)
	}
	return raw.toPort(), nil
}

// ListUserRepositories lists public repositories owned by a user.
func (c *Client) ListUserRepositories(ctx context.Context, user string, opts driven.ListOptions) ([]*driven.Repository, error) {
	path := fmt.Sprintf("/users/%s/repos?type=owner&%s", url.PathEscape(user), c.listQuery(opts))
	var raw []*repository
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("list repositories for %s: %w", user, err)
	}
	repos := make([]*driven.Repository, 0, len(raw))
	for _, r := range raw {
		repos = append(repos, r.toPort())
	}
	return repos, nil
}

// SearchRepositories searches repositories matching a query.
func (c *Client) SearchRepositories(ctx context.Context, query string, opts driven.ListOptions) ([]*driven.Repository, error) {
	perPage := opts.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = c.perPage
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	path := fmt.Sprintf("/search/repositories?q=%s&per_page=%d&page=%d", url.QueryEscape(query), perPage, page)
	var result struct {
		Items []*repository `json:"items"`
	}
	if err := c.getJSON(ctx, path, &result); err != nil {
		return nil, fmt.Errorf("search repositories %q: %w", query, err)
	}
	repos := make([]*driven.Repository, 0, len(result.Items))
	for _, r := range result.Items {
		repos = append(repos, r.toPort())
	}
	return repos, nil
}

// GetTree gets the repository tree at ref. Only blob entries are returned.
func (c *Client) GetTree(ctx context.Context, owner, repo, ref string, recursive bool) ([]*driven.TreeEntry, error) {
	path := fmt.Sprintf("/repos/%s/%s/git/trees/%s", owner, repo, url.PathEscape(ref))
	if recursive {
		path += "?recursive=1"
	}
	var result struct {
		Tree      []*driven.TreeEntry `json:"tree"`
		Truncated bool                `json:"truncated"`
	}
	if err := c.getJSON(ctx, path, &result); err != nil {
		return nil, fmt.Errorf("get tree %s/%s@%s: %w", owner, repo, ref, err)
	}

	var files []*driven.TreeEntry
	for _, entry := range result.Tree {
		if entry.Type == "blob" {
			files = append(files, entry)
		}
	}
	return files, nil
}

// GetBlob fetches a blob by content SHA.
func (c *Client) GetBlob(ctx context.Context, owner, repo, sha string) (*driven.Blob, error) {
	var raw fileContent
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/git/blobs/%s", owner, repo, sha), &raw); err != nil {
		return nil, fmt.Errorf("get blob %s/%s@%s: %w", owner, repo, sha, err)
	}
	raw.SHA = sha
	return raw.toBlob()
}

// GetReadme returns the repository README, nil when the repository has none.
func (c *Client) GetReadme(ctx context.Context, owner, repo string) (*driven.Blob, error) {
	var raw fileContent
	err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/readme", owner, repo), &raw)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get readme %s/%s: %w", owner, repo, err)
	}
	return raw.toBlob()
}

// GetFileContent returns a file by path, nil when the file does not exist.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path string) (*driven.Blob, error) {
	var raw fileContent
	err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, path), &raw)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s/%s:%s: %w", owner, repo, path, err)
	}
	return raw.toBlob()
}

// ListCommits lists commits for a repository.
func (c *Client) ListCommits(ctx context.Context, owner, repo string, opts driven.ListOptions) ([]*driven.Commit, error) {
	perPage := opts.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = c.perPage
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	path := fmt.Sprintf("/repos/%s/%s/commits?per_page=%d&page=%d", owner, repo, perPage, page)
	var raw []*commit
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("list commits %s/%s: %w", owner, repo, err)
	}
	commits := make([]*driven.Commit, 0, len(raw))
	for _, cm := range raw {
		commits = append(commits, cm.toPort())
	}
	return commits, nil
}

// GetLatestCommit returns the head commit of a branch, nil when the branch
// has no commits. GitHub answers 409 for empty repositories.
func (c *Client) GetLatestCommit(ctx context.Context, owner, repo, branch string) (*driven.Commit, error) {
	path := fmt.Sprintf("/repos/%s/%s/commits?sha=%s&per_page=1", owner, repo, url.QueryEscape(branch))
	var raw []*commit
	err := c.getJSON(ctx, path, &raw)
	if errors.Is(err, errEmptyRepository) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest commit %s/%s@%s: %w", owner, repo, branch, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw[0].toPort(), nil
}

// ListReleases lists releases for a repository.
func (c *Client) ListReleases(ctx context.Context, owner, repo string, opts driven.ListOptions) ([]*driven.Release, error) {
	perPage := opts.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = c.perPage
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	path := fmt.Sprintf("/repos/%s/%s/releases?per_page=%d&page=%d", owner, repo, perPage, page)
	var releases []*driven.Release
	if err := c.getJSON(ctx, path, &releases); err != nil {
		return nil, fmt.Errorf("list releases %s/%s: %w", owner, repo, err)
	}
	return releases, nil
}

// GetLatestRelease returns the latest published release, nil when none exist.
func (c *Client) GetLatestRelease(ctx context.Context, owner, repo string) (*driven.Release, error) {
	var release driven.Release
	err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/releases/latest", owner, repo), &release)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest release %s/%s: %w", owner, repo, err)
	}
	return &release, nil
}

// ListBranches lists branches for a repository.
func (c *Client) ListBranches(ctx context.Context, owner, repo string, opts driven.ListOptions) ([]*driven.Branch, error) {
	perPage := opts.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = c.perPage
	}
	page := opts.Page
	if page <= 0 {
		page = 1
	}
	path := fmt.Sprintf("/repos/%s/%s/branches?per_page=%d&page=%d", owner, repo, perPage, page)
	var raw []struct {
		Name   string `json:"name"`
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("list branches %s/%s: %w", owner, repo, err)
	}
	branches := make([]*driven.Branch, 0, len(raw))
	for _, b := range raw {
		branches = append(branches, &driven.Branch{Name: b.Name, CommitSHA: b.Commit.SHA})
	}
	return branches, nil
}

// CreateWebhook registers a webhook on a repository.
func (c *Client) CreateWebhook(ctx context.Context, owner, repo string, cfg driven.WebhookConfig) (*driven.Webhook, error) {
	events := cfg.Events
	if len(events) == 0 {
		events = []string{"push"}
	}
	payload := map[string]any{
		"name":   "web",
		"active": true,
		"events": events,
		"config": map[string]string{
			"url":          cfg.URL,
			"content_type": "json",
			"secret":       cfg.Secret,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook config: %w", err)
	}

	resp, err := c.doRequest(ctx, "POST", fmt.Sprintf("/repos/%s/%s/hooks", owner, repo), body)
	if err != nil {
		return nil, fmt.Errorf("create webhook %s/%s: %w", owner, repo, err)
	}
	defer resp.Body.Close()

	var raw struct {
		ID     int64    `json:"id"`
		Events []string `json:"events"`
		Active bool     `json:"active"`
		Config struct {
			URL string `json:"url"`
		} `json:"config"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	return &driven.Webhook{ID: raw.ID, URL: raw.Config.URL, Events: raw.Events, Active: raw.Active}, nil
}

// ListWebhooks lists webhooks registered on a repository.
func (c *Client) ListWebhooks(ctx context.Context, owner, repo string) ([]*driven.Webhook, error) {
	var raw []struct {
		ID     int64    `json:"id"`
		Events []string `json:"events"`
		Active bool     `json:"active"`
		Config struct {
			URL string `json:"url"`
		} `json:"config"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/hooks", owner, repo), &raw); err != nil {
		return nil, fmt.Errorf("list webhooks %s/%s: %w", owner, repo, err)
	}
	hooks := make([]*driven.Webhook, 0, len(raw))
	for _, h := range raw {
		hooks = append(hooks, &driven.Webhook{ID: h.ID, URL: h.Config.URL, Events: h.Events, Active: h.Active})
	}
	return hooks, nil
}

// DeleteWebhook removes a webhook from a repository.
func (c *Client) DeleteWebhook(ctx context.Context, owner, repo string, id int64) error {
	resp, err := c.doRequest(ctx, "DELETE", fmt.Sprintf("/repos/%s/%s/hooks/%d", owner, repo, id), nil)
	if err != nil {
		return fmt.Errorf("delete webhook %s/%s#%d: %w", owner, repo, id, err)
	}
	resp.Body.Close()
	return nil
}

// GetLanguages returns the byte counts per language for a repository.
func (c *Client) GetLanguages(ctx context.Context, owner, repo string) (map[string]int64, error) {
	var languages map[string]int64
	if err := c.getJSON(ctx, fmt.Sprintf("/repos/%s/%s/languages", owner, repo), &languages); err != nil {
		return nil, fmt.Errorf("get languages %s/%s: %w", owner, repo, err)
	}
	return languages, nil
}

// GetContributors lists contributors for a repository.
func (c *Client) GetContributors(ctx context.Context, owner, repo string, opts driven.ListOptions) ([]*driven.Contributor, error) {
	perPage := opts.PerPage
	if perPage <= 0 || perPage > 100 {
		perPage = c.perPage
	}
	path := fmt.Sprintf("/repos/%s/%s/contributors?per_page=%d", owner, repo, perPage)
	var contributors []*driven.Contributor
	if err := c.getJSON(ctx, path, &contributors); err != nil {
		return nil, fmt.Errorf("get contributors %s/%s: %w", owner, repo, err)
	}
	return contributors, nil
}

// GetRateLimit fetches per-class limit/remaining/reset from the dedicated
// rate-limit endpoint. The call itself does not count against any quota.
func (c *Client) GetRateLimit(ctx context.Context) (map[domain.ResourceClass]domain.QuotaSnapshot, error) {
	var result struct {
		Resources map[string]struct {
			Limit     int   `json:"limit"`
			Remaining int   `json:"remaining"`
			Reset     int64 `json:"reset"`
		} `json:"resources"`
	}
	if err := c.getJSON(ctx, "/rate_limit", &result); err != nil {
		return nil, fmt.Errorf("get rate limit: %w", err)
	}

	now := time.Now()
	snapshots := make(map[domain.ResourceClass]domain.QuotaSnapshot)
	for _, class := range domain.ResourceClasses {
		res, ok := result.Resources[string(class)]
		if !ok {
			continue
		}
		snapshots[class] = domain.QuotaSnapshot{
			Class:     class,
			Limit:     res.Limit,
			Remaining: res.Remaining,
			Reset:     time.Unix(res.Reset, 0),
			UpdatedAt: now,
		}
	}
	return snapshots, nil
}

// errEmptyRepository marks GitHub's 409 answer for commit listings on
// repositories without any commits.
var errEmptyRepository = errors.New("repository is empty")

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// doRequest performs an authenticated HTTP request with retry logic.
// The body is taken as raw bytes so every retry attempt sends a fresh
// reader. Rate-limit headers on every response are forwarded to the quota
// recorder for the resource class GitHub billed the request against.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	token, err := c.tokenProvider.GetAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}

	var resp *http.Response
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reqBody io.Reader
		if len(body) > 0 {
			reqBody = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.Header.Set("Accept", "application/vnd.github.v3+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}

		c.recordQuota(path, resp)

		// Check for rate limiting
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
			if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining == "0" {
				if resetHeader := resp.Header.Get("X-RateLimit-Reset"); resetHeader != "" {
					resetTime, _ := strconv.ParseInt(resetHeader, 10, 64)
					waitDuration := time.Until(time.Unix(resetTime, 0))
					if waitDuration > 0 && waitDuration < 5*time.Minute {
						resp.Body.Close()
						select {
						case <-ctx.Done():
							return nil, ctx.Err()
						case <-time.After(waitDuration):
							continue
						}
					}
				}
			}
		}

		// Success or non-retryable error
		if resp.StatusCode < 500 {
			break
		}

		// Server error - retry with exponential backoff
		resp.Body.Close()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * time.Second):
		}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, domain.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		resp.Body.Close()
		return nil, errEmptyRepository
	case resp.StatusCode >= 400:
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("GitHub API error %d: %s", resp.StatusCode, string(respBody))
	}

	return resp, nil
}

// recordQuota forwards rate-limit headers to the quota recorder. Only the
// class the request was billed against is updated; GitHub names it in the
// X-RateLimit-Resource header, with the request path as fallback.
func (c *Client) recordQuota(path string, resp *http.Response) {
	if c.quota == nil {
		return
	}
	limitHeader := resp.Header.Get("X-RateLimit-Limit")
	remainingHeader := resp.Header.Get("X-RateLimit-Remaining")
	resetHeader := resp.Header.Get("X-RateLimit-Reset")
	if limitHeader == "" || remainingHeader == "" || resetHeader == "" {
		return
	}

	limit, err := strconv.Atoi(limitHeader)
	if err != nil {
		return
	}
	remaining, err := strconv.Atoi(remainingHeader)
	if err != nil {
		return
	}
	resetUnix, err := strconv.ParseInt(resetHeader, 10, 64)
	if err != nil {
		return
	}

	class := domain.ResourceClass(resp.Header.Get("X-RateLimit-Resource"))
	if class == "" {
		if strings.HasPrefix(path, "/search/") {
			class = domain.ResourceSearch
		} else {
			class = domain.ResourceCore
		}
	}
	c.quota.RecordHeaders(class, limit, remaining, time.Unix(resetUnix, 0))
}
