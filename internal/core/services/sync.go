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
	// staleWindow is how long a binding may go unsynced before the
	// scheduled stale pass picks it up.
	staleWindow = time.Hour

	// syncBatchSize bounds concurrent outbound pressure in multi-binding
	// flows; batches are separated by syncBatchDelay.
	syncBatchSize  = 5
	syncBatchDelay = time.Second
)

// SyncEngine reconciles remote repository state with agent records.
// Each sync attempt runs as one SyncJob scoped to one binding.
type SyncEngine struct {
	hosting      driven.HostingClient
	agentStore   driven.AgentStore
	bindingStore driven.BindingStore
	jobStore     driven.SyncJobStore
	logger       *slog.Logger
}

// Compile-time interface compliance check
var _ driving.SyncOrchestrator = (*SyncEngine)(nil)

// SyncEngineConfig holds dependencies for SyncEngine.
type SyncEngineConfig struct {
	Hosting      driven.HostingClient
	AgentStore   driven.AgentStore
	BindingStore driven.BindingStore
	JobStore     driven.SyncJobStore
	Logger       *slog.Logger
}

// NewSyncEngine creates a new sync engine.
func NewSyncEngine(cfg SyncEngineConfig) *SyncEngine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncEngine{
		hosting:      cfg.Hosting,
		agentStore:   cfg.AgentStore,
		bindingStore: cfg.BindingStore,
		jobStore:     cfg.JobStore,
		logger:       logger,
	}
}

// syncPasses selects which update passes a job runs.
type syncPasses struct {
	metadata bool
	content  bool
	version  bool
	tags     bool
}

func passesFor(jobType domain.SyncJobType) syncPasses {
	switch jobType {
	case domain.SyncJobTypeMetadata:
		return syncPasses{metadata: true, tags: true}
	case domain.SyncJobTypeContent:
		return syncPasses{content: true, version: true}
	default:
		return syncPasses{metadata: true, content: true, version: true, tags: true}
	}
}

// SyncAgent triggers a sync for a specific agent through its binding.
func (e *SyncEngine) SyncAgent(ctx context.Context, req driving.SyncRequest) (*domain.SyncResult, error) {
	binding, err := e.bindingStore.GetByAgent(ctx, req.AgentID)
	if err != nil {
		return nil, fmt.Errorf("get binding for agent %s: %w", req.AgentID, err)
	}
	jobType := req.Type
	if jobType == "" {
		jobType = domain.SyncJobTypeFull
	}
	return e.runSync(ctx, binding, jobType, req.Force)
}

// SyncBinding triggers a full sync for a specific binding.
func (e *SyncEngine) SyncBinding(ctx context.Context, bindingID string, force bool) (*domain.SyncResult, error) {
	binding, err := e.bindingStore.Get(ctx, bindingID)
	if err != nil {
		return nil, fmt.Errorf("get binding %s: %w", bindingID, err)
	}
	return e.runSync(ctx, binding, domain.SyncJobTypeFull, force)
}

// SyncRepository syncs every enabled binding attached to a repository.
func (e *SyncEngine) SyncRepository(ctx context.Context, owner, repo string, force bool) ([]*domain.SyncResult, error) {
	return e.syncRepositoryAs(ctx, owner, repo, domain.SyncJobTypeFull, force)
}

func (e *SyncEngine) syncRepositoryAs(ctx context.Context, owner, repo string, jobType domain.SyncJobType, force bool) ([]*domain.SyncResult, error) {
	bindings, err := e.bindingStore.ListByRepo(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("list bindings for %s/%s: %w", owner, repo, err)
	}

	var results []*domain.SyncResult
	for _, binding := range bindings {
		if !binding.Enabled {
			continue
		}
		result, err := e.runSync(ctx, binding, jobType, force)
		if err != nil {
			e.logger.Error("sync failed", "binding_id", binding.ID, "error", err)
			if result == nil {
				result = &domain.SyncResult{Errors: []string{err.Error()}}
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// SyncStale syncs all enabled bindings that have not synced within the
// staleness window, in small batches with an inter-batch delay.
func (e *SyncEngine) SyncStale(ctx context.Context) ([]*domain.SyncResult, error) {
	bindings, err := e.bindingStore.ListStale(ctx, time.Now().Add(-staleWindow))
	if err != nil {
		return nil, fmt.Errorf("list stale bindings: %w", err)
	}

	var results []*domain.SyncResult
	for i, binding := range bindings {
		if i > 0 && i%syncBatchSize == 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(syncBatchDelay):
			}
		}

		result, err := e.runSync(ctx, binding, domain.SyncJobTypeFull, false)
		if err != nil {
			e.logger.Error("stale sync failed", "binding_id", binding.ID, "error", err)
			if result == nil {
				result = &domain.SyncResult{Errors: []string{err.Error()}}
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// runSync executes one sync attempt: job lifecycle, change detection and up
// to four independent update passes. A pass error fails both the job and
// the binding; neither carries failure state alone.
func (e *SyncEngine) runSync(ctx context.Context, binding *domain.SyncBinding, jobType domain.SyncJobType, force bool) (*domain.SyncResult, error) {
	start := time.Now()

	if !binding.Enabled {
		return nil, fmt.Errorf("binding %s: %w", binding.ID, domain.ErrBindingDisabled)
	}
	if binding.Status == domain.BindingStatusRunning {
		return nil, fmt.Errorf("binding %s: %w", binding.ID, domain.ErrSyncInProgress)
	}

	job := domain.NewSyncJob(binding.ID, binding.AgentID, jobType)
	if err := e.jobStore.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create sync job: %w", err)
	}
	job.MarkRunning()
	if err := e.jobStore.Update(ctx, job); err != nil {
		e.logger.Warn("mark job running failed", "job_id", job.ID, "error", err)
	}
	e.appendLog(ctx, job, domain.JobLogInfo, "starting sync")

	binding.Status = domain.BindingStatusRunning
	binding.UpdatedAt = time.Now()
	if err := e.bindingStore.Update(ctx, binding); err != nil {
		e.logger.Warn("mark binding running failed", "binding_id", binding.ID, "error", err)
	}

	result := &domain.SyncResult{JobID: job.ID}
	changes, stats, err := e.applyPasses(ctx, binding, job, passesFor(jobType), force)
	result.Changes = changes
	result.Stats = stats
	result.Stats.ProcessingSeconds = time.Since(start).Seconds()

	now := time.Now()
	if err != nil {
		e.appendLog(ctx, job, domain.JobLogError, err.Error())
		job.MarkFailed(err.Error())
		if updateErr := e.jobStore.Update(ctx, job); updateErr != nil {
			e.logger.Warn("mark job failed failed", "job_id", job.ID, "error", updateErr)
		}

		binding.Status = domain.BindingStatusError
		binding.LastError = err.Error()
		binding.UpdatedAt = now
		if updateErr := e.bindingStore.Update(ctx, binding); updateErr != nil {
			e.logger.Warn("mark binding error failed", "binding_id", binding.ID, "error", updateErr)
		}

		result.Errors = append(result.Errors, err.Error())
		return result, err
	}

	e.appendLog(ctx, job, domain.JobLogInfo, "sync completed")
	job.MarkCompleted()
	job.Result = map[string]string{
		"metadata": fmt.Sprintf("%t", changes.Metadata),
		"content":  fmt.Sprintf("%t", changes.Content),
		"version":  fmt.Sprintf("%t", changes.Version),
		"tags":     fmt.Sprintf("%t", changes.Tags),
	}
	if err := e.jobStore.Update(ctx, job); err != nil {
		e.logger.Warn("mark job completed failed", "job_id", job.ID, "error", err)
	}

	binding.Status = domain.BindingStatusSuccess
	binding.LastError = ""
	binding.LastSyncAt = &now
	binding.UpdatedAt = now
	if err := e.bindingStore.Update(ctx, binding); err != nil {
		e.logger.Warn("update binding failed", "binding_id", binding.ID, "error", err)
	}

	result.Success = true
	e.logger.Info("sync completed",
		"binding_id", binding.ID,
		"job_id", job.ID,
		"changed", changes.Any(),
		"duration_seconds", result.Stats.ProcessingSeconds,
	)
	return result, nil
}

// applyPasses fetches remote state, runs change detection and applies the
// selected update passes. It mutates binding.LastCommitSHA on success but
// leaves status bookkeeping to the caller.
func (e *SyncEngine) applyPasses(ctx context.Context, binding *domain.SyncBinding, job *domain.SyncJob, passes syncPasses, force bool) (domain.SyncChanges, domain.SyncStats, error) {
	var changes domain.SyncChanges
	var stats domain.SyncStats

	remote, err := e.hosting.GetRepository(ctx, binding.RepoOwner, binding.RepoName)
	if err != nil {
		return changes, stats, fmt.Errorf("fetch repository: %w", err)
	}

	agent, err := e.agentStore.Get(ctx, binding.AgentID)
	if err != nil {
		return changes, stats, fmt.Errorf("agent %s not found: %w", binding.AgentID, err)
	}

	branch := binding.EffectiveBranch(remote.DefaultBranch)
	latest, err := e.hosting.GetLatestCommit(ctx, binding.RepoOwner, binding.RepoName, branch)
	if err != nil {
		e.appendLog(ctx, job, domain.JobLogWarn, fmt.Sprintf("latest commit unavailable: %v", err))
	} else if latest != nil {
		stats.CommitsProcessed = 1
	}

	// Change detection: skip all passes when nothing moved upstream
	if !force && !hasChanges(binding, remote, latest) {
		e.appendLog(ctx, job, domain.JobLogInfo, "no upstream changes detected")
		return changes, stats, nil
	}

	if passes.metadata {
		changed := applyMetadata(agent, remote)
		changes.Metadata = changed
		e.logPass(ctx, job, "metadata", changed)
	}

	if passes.content && binding.Config.ReadmeAsDescription {
		changed, err := e.applyContent(ctx, binding, agent)
		if err != nil {
			return changes, stats, err
		}
		changes.Content = changed
		e.logPass(ctx, job, "content", changed)
	}

	if passes.version {
		changed, err := e.applyVersion(ctx, binding, agent)
		if err != nil {
			return changes, stats, err
		}
		changes.Version = changed
		e.logPass(ctx, job, "version", changed)
	}

	if passes.tags {
		changed := agent.AddTags(remote.Topics, 0)
		changes.Tags = changed
		e.logPass(ctx, job, "tags", changed)
	}

	if changes.Any() {
		now := time.Now()
		agent.UpdatedAt = now
		agent.LastSyncAt = &now
		if latest != nil {
			agent.CommitSHA = latest.SHA
		}
		if err := e.agentStore.Update(ctx, agent); err != nil {
			return changes, stats, fmt.Errorf("update agent: %w", err)
		}
		stats.FilesUpdated = 1
	}

	if latest != nil {
		binding.LastCommitSHA = latest.SHA
	}
	return changes, stats, nil
}

// hasChanges reports whether the repository moved since the last sync:
// a newer repository update timestamp or a different head commit.
func hasChanges(binding *domain.SyncBinding, remote *driven.Repository, latest *driven.Commit) bool {
	if binding.LastSyncAt == nil {
		return true
	}
	if remote.UpdatedAt.After(*binding.LastSyncAt) {
		return true
	}
	if latest != nil && latest.SHA != binding.LastCommitSHA {
		return true
	}
	return false
}

// applyMetadata refreshes counters and descriptive fields from the remote
// repository. Description only changes when the remote one differs and is
// non-empty.
func applyMetadata(agent *domain.Agent, remote *driven.Repository) bool {
	changed := false
	if agent.Stars != remote.Stars {
		agent.Stars = remote.Stars
		changed = true
	}
	if agent.Forks != remote.Forks {
		agent.Forks = remote.Forks
		changed = true
	}
	if remote.Description != "" && agent.Description != remote.Description {
		agent.Description = remote.Description
		changed = true
	}
	if remote.Homepage != "" && agent.Homepage != remote.Homepage {
		agent.Homepage = remote.Homepage
		changed = true
	}
	if remote.License != "" && agent.License != remote.License {
		agent.License = remote.License
		changed = true
	}
	return changed
}

// applyContent replaces the detailed description with the repository README.
func (e *SyncEngine) applyContent(ctx context.Context, binding *domain.SyncBinding, agent *domain.Agent) (bool, error) {
	readme, err := e.hosting.GetReadme(ctx, binding.RepoOwner, binding.RepoName)
	if err != nil {
		return false, fmt.Errorf("fetch readme: %w", err)
	}
	if readme == nil || readme.Content == agent.DetailedDescription {
		return false, nil
	}
	agent.DetailedDescription = readme.Content
	return true, nil
}

// applyVersion takes the latest release tag, stripped of a leading v.
func (e *SyncEngine) applyVersion(ctx context.Context, binding *domain.SyncBinding, agent *domain.Agent) (bool, error) {
	release, err := e.hosting.GetLatestRelease(ctx, binding.RepoOwner, binding.RepoName)
	if err != nil {
		return false, fmt.Errorf("fetch latest release: %w", err)
	}
	if release == nil {
		return false, nil
	}
	version := strings.TrimPrefix(release.TagName, "v")
	if version == "" || version == agent.Version {
		return false, nil
	}
	agent.Version = version
	return true, nil
}

func (e *SyncEngine) logPass(ctx context.Context, job *domain.SyncJob, pass string, changed bool) {
	e.appendLog(ctx, job, domain.JobLogInfo, fmt.Sprintf("%s pass: changed=%t", pass, changed))
}

func (e *SyncEngine) appendLog(ctx context.Context, job *domain.SyncJob, level domain.JobLogLevel, message string) {
	entry := &domain.JobLog{
		JobID:     job.ID,
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := e.jobStore.AppendLog(ctx, entry); err != nil {
		e.logger.Warn("append job log failed", "job_id", job.ID, "error", err)
	}
}

// GetJob retrieves a sync job by ID.
func (e *SyncEngine) GetJob(ctx context.Context, jobID string) (*domain.SyncJob, error) {
	return e.jobStore.Get(ctx, jobID)
}

// GetJobLogs retrieves the log entries of a sync job.
func (e *SyncEngine) GetJobLogs(ctx context.Context, jobID string) ([]*domain.JobLog, error) {
	if _, err := e.jobStore.Get(ctx, jobID); err != nil {
		return nil, err
	}
	return e.jobStore.ListLogs(ctx, jobID)
}

// ListJobs retrieves recent jobs for a binding.
func (e *SyncEngine) ListJobs(ctx context.Context, bindingID string, limit int) ([]*domain.SyncJob, error) {
	return e.jobStore.ListByBinding(ctx, bindingID, limit)
}

// RegisterDefaultHandlers subscribes the engine's reactive sync handlers on
// the bus: content-bearing events re-run a content-inclusive sync, activity
// events refresh metadata only.
func (e *SyncEngine) RegisterDefaultHandlers(bus *EventBus) {
	contentEvents := []domain.SyncEvent{
		domain.EventPush,
		domain.EventReleasePublished,
		domain.EventReleaseUpdated,
		domain.EventReleaseDeleted,
		domain.EventPRMerged,
	}
	metadataEvents := []domain.SyncEvent{
		domain.EventRepoUpdated,
		domain.EventRepoPublicized,
		domain.EventStarCreated,
		domain.EventStarDeleted,
		domain.EventFork,
		domain.EventWatchStarted,
		domain.EventWatchStopped,
	}

	for _, event := range contentEvents {
		bus.Subscribe(event, e.eventHandler(domain.SyncJobTypeFull))
	}
	for _, event := range metadataEvents {
		bus.Subscribe(event, e.eventHandler(domain.SyncJobTypeMetadata))
	}
}

func (e *SyncEngine) eventHandler(jobType domain.SyncJobType) EventHandler {
	return func(ctx context.Context, event domain.SyncEvent, delivery *domain.WebhookDelivery) error {
		owner, repo, ok := splitFullName(delivery.RepoFullName)
		if !ok {
			return fmt.Errorf("malformed repository name %q", delivery.RepoFullName)
		}
		_, err := e.syncRepositoryAs(ctx, owner, repo, jobType, false)
		if errors.Is(err, domain.ErrSyncInProgress) {
			return nil
		}
		return err
	}
}

func splitFullName(fullName string) (owner, repo string, ok bool) {
	owner, repo, found := strings.Cut(fullName, "/")
	if !found || owner == "" || repo == "" {
		return "", "", false
	}
	return owner, repo, true
}
