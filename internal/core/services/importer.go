package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driving"
)

const (
	// maxAgentTags caps the tag list built during import.
	maxAgentTags = 10

	// importBatchSize bounds concurrent outbound pressure in multi-repo
	// flows; batches are separated by importBatchDelay.
	importBatchSize  = 5
	importBatchDelay = 500 * time.Millisecond
)

// baseTags are attached to every imported agent.
var baseTags = []string{"subagent", "claude-code"}

// featureTags describe the import pipeline in result metadata.
var featureTags = []string{"tree-scan", "front-matter", "auto-tagging"}

// keywordTags maps name/description keywords to derived tags.
var keywordTags = []struct {
	keyword string
	tag     string
}{
	{"test", "testing"},
	{"review", "code-review"},
	{"code", "code-review"},
	{"debug", "debugging"},
	{"security", "security"},
	{"audit", "security"},
	{"data", "data"},
	{"sql", "data"},
	{"deploy", "devops"},
	{"devops", "devops"},
}

// SubAgentParser discovers and parses all sub-agent documents in a repository.
type SubAgentParser interface {
	ParseRepositorySubAgents(ctx context.Context, owner, repo, ref string) ([]*domain.SubAgentFile, error)
}

// ImportService converts remote repositories into agent records.
type ImportService struct {
	hosting    driven.HostingClient
	parser     SubAgentParser
	agentStore driven.AgentStore
	parseURL   func(rawURL string) (owner, repo string, err error)
	logger     *slog.Logger
}

// Compile-time interface compliance check
var _ driving.ImportService = (*ImportService)(nil)

// ImportServiceConfig holds dependencies for ImportService.
type ImportServiceConfig struct {
	Hosting    driven.HostingClient
	Parser     SubAgentParser
	AgentStore driven.AgentStore

	// ParseRepoURL maps a repository URL to its owner/repo pair.
	ParseRepoURL func(rawURL string) (owner, repo string, err error)

	Logger *slog.Logger
}

// NewImportService creates a new import service.
func NewImportService(cfg ImportServiceConfig) *ImportService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		hosting:    cfg.Hosting,
		parser:     cfg.Parser,
		agentStore: cfg.AgentStore,
		parseURL:   cfg.ParseRepoURL,
		logger:     logger,
	}
}

// ImportFromURL imports all sub-agents from a repository URL, recording
// wall-clock processing time and the pipeline feature list in the result
// metadata regardless of outcome.
func (s *ImportService) ImportFromURL(ctx context.Context, req driving.ImportRequest) (*domain.ImportResult, error) {
	start := time.Now()
	result := &domain.ImportResult{Metadata: domain.ImportMetadata{Features: featureTags}}
	defer func() {
		result.Metadata.ProcessingMS = time.Since(start).Milliseconds()
	}()

	owner, repo, err := s.parseURL(req.RepoURL)
	if err != nil {
		result.AddError(err.Error())
		return result, err
	}

	imported, err := s.ImportRepository(ctx, owner, repo, req.SelectedFiles, req.AutoPublish)
	if imported != nil {
		imported.Metadata.Features = featureTags
		imported.Metadata.ProcessingMS = time.Since(start).Milliseconds()
		return imported, err
	}
	if err != nil {
		result.AddError(err.Error())
	}
	return result, err
}

// ImportRepository imports sub-agents from an owner/repo pair.
// Zero parseable files is a hard stop; a single document's conversion
// failure is logged and skipped.
func (s *ImportService) ImportRepository(ctx context.Context, owner, repo string, selectedFiles []string, autoPublish bool) (*domain.ImportResult, error) {
	result := &domain.ImportResult{Metadata: domain.ImportMetadata{Features: featureTags}}

	s.logger.Info("starting import", "repo", owner+"/"+repo)

	remote, err := s.hosting.GetRepository(ctx, owner, repo)
	if err != nil {
		err = fmt.Errorf("fetch repository %s/%s: %w", owner, repo, err)
		result.AddError(err.Error())
		return result, err
	}
	result.Repository = repositoryInfo(remote)

	if err := validateImportData(remote); err != nil {
		result.AddError(err.Error())
		return result, err
	}

	// Step 1: parse all sub-agent documents
	docs, err := s.parser.ParseRepositorySubAgents(ctx, owner, repo, remote.DefaultBranch)
	if err != nil {
		err = fmt.Errorf("parse repository %s/%s: %w", owner, repo, err)
		result.AddError(err.Error())
		return result, err
	}
	result.Metadata.FilesProcessed = len(docs)

	// Step 2: zero results is a hard stop
	if len(docs) == 0 {
		err := fmt.Errorf("%w in %s/%s", domain.ErrNoSubAgentsFound, owner, repo)
		result.AddError(err.Error())
		return result, err
	}

	// Step 3: apply the caller's path allow-list
	if len(selectedFiles) > 0 {
		docs = filterSelected(docs, selectedFiles)
		if len(docs) == 0 {
			err := fmt.Errorf("%w in %s/%s", domain.ErrSelectedFilesNotFound, owner, repo)
			result.AddError(err.Error())
			return result, err
		}
	}

	// Step 4: best-effort latest commit; failure only drops the SHA
	var commitSHA string
	if commit, err := s.hosting.GetLatestCommit(ctx, owner, repo, remote.DefaultBranch); err != nil {
		result.AddWarning(fmt.Sprintf("latest commit unavailable: %v", err))
	} else if commit != nil {
		commitSHA = commit.SHA
	}

	// Step 5: convert each surviving document
	for _, doc := range docs {
		agent, err := s.saveAgent(ctx, remote, doc, commitSHA, autoPublish)
		if err != nil {
			s.logger.Warn("skipping document",
				"repo", owner+"/"+repo, "path", doc.Path, "error", err)
			result.AddWarning(fmt.Sprintf("%s: %v", doc.Path, err))
			continue
		}
		result.Agents = append(result.Agents, agent)
	}

	// Step 6: the batch fails only when nothing converted
	if len(result.Agents) == 0 {
		err := fmt.Errorf("no documents converted in %s/%s", owner, repo)
		result.AddError(err.Error())
		return result, err
	}

	result.Success = true
	s.logger.Info("import completed",
		"repo", owner+"/"+repo, "agents", len(result.Agents))
	return result, nil
}

// saveAgent builds the domain record for one parsed document and upserts it.
func (s *ImportService) saveAgent(ctx context.Context, remote *driven.Repository, doc *domain.SubAgentFile, commitSHA string, autoPublish bool) (*domain.Agent, error) {
	now := time.Now()
	status := domain.AgentStatusDraft
	if autoPublish {
		status = domain.AgentStatusPublished
	}

	agent := &domain.Agent{
		ID:                  domain.GenerateID(),
		Slug:                domain.GenerateSlug(doc.Name, remote.Owner, remote.Name),
		Name:                doc.Name,
		Description:         doc.Description,
		DetailedDescription: doc.Body,
		Version:             doc.Version,
		License:             remote.License,
		Category:            doc.Category,
		Tools:               doc.Tools,
		Status:              status,
		RepoURL:             remote.HTMLURL,
		RepoOwner:           remote.Owner,
		RepoName:            remote.Name,
		SourcePath:          doc.Path,
		CommitSHA:           commitSHA,
		OriginalAuthor:      doc.Author,
		Stars:               remote.Stars,
		Forks:               remote.Forks,
		Homepage:            remote.Homepage,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if agent.OriginalAuthor == "" {
		agent.OriginalAuthor = remote.Owner
	}
	agent.Tags = buildTags(doc, maxAgentTags)

	existing, err := s.agentStore.GetBySlug(ctx, agent.Slug)
	switch {
	case err == nil:
		// re-import updates the existing record in place
		agent.ID = existing.ID
		agent.Status = existing.Status
		agent.CreatedAt = existing.CreatedAt
		if err := s.agentStore.Update(ctx, agent); err != nil {
			return nil, fmt.Errorf("update agent %s: %w", agent.Slug, err)
		}
	case errors.Is(err, domain.ErrNotFound):
		if err := s.agentStore.Create(ctx, agent); err != nil {
			return nil, fmt.Errorf("create agent %s: %w", agent.Slug, err)
		}
	default:
		return nil, fmt.Errorf("lookup agent %s: %w", agent.Slug, err)
	}
	return agent, nil
}

// buildTags unions the fixed base set, front-matter tags/category and
// keyword-derived tags, capped at max.
func buildTags(doc *domain.SubAgentFile, max int) []string {
	agent := &domain.Agent{}
	agent.AddTags(baseTags, max)
	agent.AddTags(doc.Tags, max)
	if doc.Category != "" {
		agent.AddTags([]string{doc.Category}, max)
	}

	haystack := strings.ToLower(doc.Name + " " + doc.Description)
	for _, kt := range keywordTags {
		if strings.Contains(haystack, kt.keyword) {
			agent.AddTags([]string{kt.tag}, max)
		}
	}
	return agent.Tags
}

// BatchImport imports multiple repositories in small groups with an
// inter-batch delay. Each repository's outcome is isolated.
func (s *ImportService) BatchImport(ctx context.Context, req driving.BatchImportRequest) ([]*domain.ImportResult, error) {
	results := make([]*domain.ImportResult, 0, len(req.RepoURLs))
	for i, rawURL := range req.RepoURLs {
		if i > 0 && i%importBatchSize == 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(importBatchDelay):
			}
		}

		result, err := s.ImportFromURL(ctx, driving.ImportRequest{RepoURL: rawURL, AutoPublish: req.AutoPublish})
		if err != nil {
			s.logger.Warn("batch import item failed", "url", rawURL, "error", err)
		}
		results = append(results, result)
	}
	return results, nil
}

// ImportUserRepositories imports every repository owned by a user.
func (s *ImportService) ImportUserRepositories(ctx context.Context, username string, autoPublish bool) ([]*domain.ImportResult, error) {
	repos, err := s.hosting.ListUserRepositories(ctx, username, driven.ListOptions{PerPage: 100})
	if err != nil {
		return nil, fmt.Errorf("list repositories for %s: %w", username, err)
	}
	return s.importMany(ctx, repos, autoPublish), nil
}

// SearchAndImport searches the hosting platform and imports up to limit
// matching repositories.
func (s *ImportService) SearchAndImport(ctx context.Context, query string, limit int, autoPublish bool) ([]*domain.ImportResult, error) {
	if limit <= 0 {
		limit = importBatchSize
	}
	repos, err := s.hosting.SearchRepositories(ctx, query, driven.ListOptions{PerPage: limit})
	if err != nil {
		return nil, fmt.Errorf("search repositories %q: %w", query, err)
	}
	if len(repos) > limit {
		repos = repos[:limit]
	}
	return s.importMany(ctx, repos, autoPublish), nil
}

func (s *ImportService) importMany(ctx context.Context, repos []*driven.Repository, autoPublish bool) []*domain.ImportResult {
	results := make([]*domain.ImportResult, 0, len(repos))
	for i, repo := range repos {
		if i > 0 && i%importBatchSize == 0 {
			select {
			case <-ctx.Done():
				return results
			case <-time.After(importBatchDelay):
			}
		}

		result, err := s.ImportRepository(ctx, repo.Owner, repo.Name, nil, autoPublish)
		if err != nil {
			s.logger.Warn("import failed", "repo", repo.FullName, "error", err)
		}
		results = append(results, result)
	}
	return results
}

// ValidateRepository checks the structural preconditions for importing a
// repository without doing any parsing work.
func (s *ImportService) ValidateRepository(ctx context.Context, owner, repo string) error {
	remote, err := s.hosting.GetRepository(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("fetch repository %s/%s: %w", owner, repo, err)
	}
	return validateImportData(remote)
}

// validateImportData rejects repositories that can never import: missing
// identity, private or archived.
func validateImportData(remote *driven.Repository) error {
	if remote.Owner == "" || remote.Name == "" {
		return fmt.Errorf("%w: repository owner and name are required", domain.ErrInvalidInput)
	}
	if remote.Private {
		return fmt.Errorf("%w: %s", domain.ErrRepositoryPrivate, remote.FullName)
	}
	if remote.Archived {
		return fmt.Errorf("%w: %s", domain.ErrRepositoryArchived, remote.FullName)
	}
	return nil
}

// filterSelected keeps only documents whose path is on the allow-list.
func filterSelected(docs []*domain.SubAgentFile, selected []string) []*domain.SubAgentFile {
	allowed := make(map[string]bool, len(selected))
	for _, path := range selected {
		allowed[path] = true
	}
	var kept []*domain.SubAgentFile
	for _, doc := range docs {
		if allowed[doc.Path] {
			kept = append(kept, doc)
		}
	}
	return kept
}

// repositoryInfo snapshots a remote repository into result metadata.
func repositoryInfo(remote *driven.Repository) *domain.RepositoryInfo {
	return &domain.RepositoryInfo{
		Owner:         remote.Owner,
		Name:          remote.Name,
		FullName:      remote.FullName,
		Description:   remote.Description,
		DefaultBranch: remote.DefaultBranch,
		Stars:         remote.Stars,
		Forks:         remote.Forks,
		Topics:        remote.Topics,
		License:       remote.License,
		Homepage:      remote.Homepage,
		HTMLURL:       remote.HTMLURL,
		Private:       remote.Private,
		Archived:      remote.Archived,
	}
}
