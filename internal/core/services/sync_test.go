package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven/mocks"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driving"
)

type syncFixture struct {
	hosting  *mocks.MockHostingClient
	agents   *mocks.MockAgentStore
	bindings *mocks.MockBindingStore
	jobs     *mocks.MockSyncJobStore
	engine   *SyncEngine
	agent    *domain.Agent
	binding  *domain.SyncBinding
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	hosting := mocks.NewMockHostingClient()
	hosting.Repos["octo/agents"] = &driven.Repository{
		Owner:         "octo",
		Name:          "agents",
		FullName:      "octo/agents",
		Description:   "Curated sub-agents",
		DefaultBranch: "main",
		Stars:         42,
		Forks:         7,
		License:       "MIT",
		Topics:        []string{"automation"},
		UpdatedAt:     time.Now(),
	}
	hosting.Commits["octo/agents"] = []*driven.Commit{{SHA: "abc123"}}
	hosting.Releases["octo/agents"] = []*driven.Release{{TagName: "v2.0.0"}}
	hosting.Readmes["octo/agents"] = &driven.Blob{Content: "# Agents\n\nLong form docs."}

	agents := mocks.NewMockAgentStore()
	agent := &domain.Agent{
		ID:        domain.GenerateID(),
		Slug:      "code-reviewer-octo-agents",
		Name:      "code-reviewer",
		Status:    domain.AgentStatusPublished,
		RepoOwner: "octo",
		RepoName:  "agents",
		Stars:     10,
		Version:   "1.0.0",
	}
	if err := agents.Create(context.Background(), agent); err != nil {
		t.Fatalf("seed agent: %v", err)
	}

	bindings := mocks.NewMockBindingStore()
	binding := domain.NewSyncBinding(agent.ID, "octo", "agents")
	if err := bindings.Create(context.Background(), binding); err != nil {
		t.Fatalf("seed binding: %v", err)
	}

	jobs := mocks.NewMockSyncJobStore()
	engine := NewSyncEngine(SyncEngineConfig{
		Hosting:      hosting,
		AgentStore:   agents,
		BindingStore: bindings,
		JobStore:     jobs,
	})

	return &syncFixture{
		hosting:  hosting,
		agents:   agents,
		bindings: bindings,
		jobs:     jobs,
		engine:   engine,
		agent:    agent,
		binding:  binding,
	}
}

func TestSyncBinding_FirstSyncAppliesPasses(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	result, err := f.engine.SyncBinding(ctx, f.binding.ID, false)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if !result.Success {
		t.Error("expected successful result")
	}
	if !result.Changes.Metadata {
		t.Error("expected metadata pass to change stars/forks")
	}
	if !result.Changes.Version {
		t.Error("expected version pass to apply release tag")
	}
	if !result.Changes.Tags {
		t.Error("expected tags pass to add repository topics")
	}
	if result.Changes.Content {
		t.Error("content pass must stay off unless ReadmeAsDescription is set")
	}

	agent, _ := f.agents.Get(ctx, f.agent.ID)
	if agent.Stars != 42 {
		t.Errorf("expected stars 42, got %d", agent.Stars)
	}
	if agent.Version != "2.0.0" {
		t.Errorf("expected version 2.0.0 (v prefix stripped), got %s", agent.Version)
	}
	if agent.CommitSHA != "abc123" {
		t.Errorf("expected commit sha recorded, got %q", agent.CommitSHA)
	}
	if agent.LastSyncAt == nil {
		t.Error("expected agent last sync timestamp")
	}

	binding, _ := f.bindings.Get(ctx, f.binding.ID)
	if binding.Status != domain.BindingStatusSuccess {
		t.Errorf("expected binding status success, got %s", binding.Status)
	}
	if binding.LastSyncAt == nil {
		t.Error("expected binding last sync timestamp")
	}
	if binding.LastCommitSHA != "abc123" {
		t.Errorf("expected binding head sha abc123, got %q", binding.LastCommitSHA)
	}

	job, err := f.jobs.Get(ctx, result.JobID)
	if err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
	if job.Status != domain.SyncJobStatusCompleted {
		t.Errorf("expected completed job, got %s", job.Status)
	}
	if job.Result["version"] != "true" {
		t.Errorf("expected version change recorded in job result, got %v", job.Result)
	}
}

func TestSyncBinding_NoUpstreamChangesSkipsPasses(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	now := time.Now()
	f.binding.LastSyncAt = &now
	f.binding.LastCommitSHA = "abc123"
	f.hosting.Repos["octo/agents"].UpdatedAt = now.Add(-time.Hour)

	result, err := f.engine.SyncBinding(ctx, f.binding.ID, false)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	if !result.Success {
		t.Error("a no-change sync is still a success")
	}
	if result.Changes.Any() {
		t.Errorf("expected no changes, got %+v", result.Changes)
	}

	agent, _ := f.agents.Get(ctx, f.agent.ID)
	if agent.Stars != 10 {
		t.Errorf("agent must stay untouched, got stars %d", agent.Stars)
	}
}

func TestSyncBinding_ForceRunsAllPasses(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	now := time.Now()
	f.binding.LastSyncAt = &now
	f.binding.LastCommitSHA = "abc123"
	f.hosting.Repos["octo/agents"].UpdatedAt = now.Add(-time.Hour)

	result, err := f.engine.SyncBinding(ctx, f.binding.ID, true)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if !result.Changes.Metadata {
		t.Error("force must run passes despite no detected changes")
	}
}

func TestSyncBinding_ContentPassReplacesDescription(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.binding.Config.ReadmeAsDescription = true

	result, err := f.engine.SyncBinding(ctx, f.binding.ID, false)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if !result.Changes.Content {
		t.Error("expected content change")
	}

	agent, _ := f.agents.Get(ctx, f.agent.ID)
	if agent.DetailedDescription != "# Agents\n\nLong form docs." {
		t.Errorf("expected README as detailed description, got %q", agent.DetailedDescription)
	}
}

func TestSyncBinding_Disabled(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.binding.Enabled = false

	_, err := f.engine.SyncBinding(ctx, f.binding.ID, false)
	if !errors.Is(err, domain.ErrBindingDisabled) {
		t.Errorf("expected ErrBindingDisabled, got %v", err)
	}
}

func TestSyncBinding_AlreadyRunning(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	f.binding.Status = domain.BindingStatusRunning

	_, err := f.engine.SyncBinding(ctx, f.binding.ID, false)
	if !errors.Is(err, domain.ErrSyncInProgress) {
		t.Errorf("expected ErrSyncInProgress, got %v", err)
	}
}

func TestSyncBinding_FailureMarksJobAndBinding(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	// Orphaned binding: the agent record is gone
	orphan := domain.NewSyncBinding("missing-agent", "octo", "agents")
	if err := f.bindings.Create(ctx, orphan); err != nil {
		t.Fatalf("seed binding: %v", err)
	}

	result, err := f.engine.SyncBinding(ctx, orphan.ID, false)
	if err == nil {
		t.Fatal("expected sync error")
	}
	if result == nil || result.Success {
		t.Fatal("expected failed result")
	}

	job, jobErr := f.jobs.Get(ctx, result.JobID)
	if jobErr != nil {
		t.Fatalf("job not persisted: %v", jobErr)
	}
	if job.Status != domain.SyncJobStatusFailed {
		t.Errorf("expected failed job, got %s", job.Status)
	}
	if job.Error == "" {
		t.Error("expected job error message")
	}

	binding, _ := f.bindings.Get(ctx, orphan.ID)
	if binding.Status != domain.BindingStatusError {
		t.Errorf("expected binding status error, got %s", binding.Status)
	}
	if binding.LastError == "" {
		t.Error("expected binding last error")
	}
}

func TestSyncAgent_MetadataTypeSkipsVersionPass(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	result, err := f.engine.SyncAgent(ctx, driving.SyncRequest{
		AgentID: f.agent.ID,
		Type:    domain.SyncJobTypeMetadata,
	})
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if !result.Changes.Metadata {
		t.Error("expected metadata change")
	}
	if result.Changes.Version {
		t.Error("metadata job must not run the version pass")
	}

	agent, _ := f.agents.Get(ctx, f.agent.ID)
	if agent.Version != "1.0.0" {
		t.Errorf("version must stay untouched, got %s", agent.Version)
	}
}

func TestSyncRepository_SkipsDisabledBindings(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	other := &domain.Agent{
		ID: domain.GenerateID(), Slug: "debugger-octo-agents", Name: "debugger",
		RepoOwner: "octo", RepoName: "agents",
	}
	if err := f.agents.Create(ctx, other); err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	disabled := domain.NewSyncBinding(other.ID, "octo", "agents")
	disabled.Enabled = false
	if err := f.bindings.Create(ctx, disabled); err != nil {
		t.Fatalf("seed binding: %v", err)
	}

	results, err := f.engine.SyncRepository(ctx, "octo", "agents", false)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result (disabled binding skipped), got %d", len(results))
	}
	if !results[0].Success {
		t.Error("expected successful result")
	}
}

func TestSyncStale_OnlyStaleBindings(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	// Fresh binding: synced moments ago
	fresh := &domain.Agent{
		ID: domain.GenerateID(), Slug: "fresh-octo-agents", Name: "fresh",
		RepoOwner: "octo", RepoName: "agents",
	}
	if err := f.agents.Create(ctx, fresh); err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	freshBinding := domain.NewSyncBinding(fresh.ID, "octo", "agents")
	now := time.Now()
	freshBinding.LastSyncAt = &now
	if err := f.bindings.Create(ctx, freshBinding); err != nil {
		t.Fatalf("seed binding: %v", err)
	}

	// The fixture binding has never synced, so it is stale
	results, err := f.engine.SyncStale(ctx)
	if err != nil {
		t.Fatalf("stale sync failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 stale binding synced, got %d", len(results))
	}
}

func TestGetJobLogs(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	result, err := f.engine.SyncBinding(ctx, f.binding.ID, false)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	logs, err := f.engine.GetJobLogs(ctx, result.JobID)
	if err != nil {
		t.Fatalf("get logs failed: %v", err)
	}
	if len(logs) < 2 {
		t.Fatalf("expected at least start and completion entries, got %d", len(logs))
	}
	if logs[0].Message != "starting sync" {
		t.Errorf("expected first entry 'starting sync', got %q", logs[0].Message)
	}
	if logs[len(logs)-1].Message != "sync completed" {
		t.Errorf("expected last entry 'sync completed', got %q", logs[len(logs)-1].Message)
	}
}

func TestGetJobLogs_UnknownJob(t *testing.T) {
	f := newSyncFixture(t)

	_, err := f.engine.GetJobLogs(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRegisterDefaultHandlers_PushTriggersSync(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	bus := NewEventBus(nil)
	f.engine.RegisterDefaultHandlers(bus)

	bus.Publish(ctx, domain.EventPush, &domain.WebhookDelivery{
		EventType:    "push",
		RepoFullName: "octo/agents",
	})

	jobs, err := f.jobs.ListByBinding(ctx, f.binding.ID, 0)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job from push event, got %d", len(jobs))
	}
	if jobs[0].Type != domain.SyncJobTypeFull {
		t.Errorf("push must trigger a full sync, got %s", jobs[0].Type)
	}
}

func TestRegisterDefaultHandlers_StarTriggersMetadataSync(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	bus := NewEventBus(nil)
	f.engine.RegisterDefaultHandlers(bus)

	bus.Publish(ctx, domain.EventStarCreated, &domain.WebhookDelivery{
		EventType:    "star",
		Action:       "created",
		RepoFullName: "octo/agents",
	})

	jobs, err := f.jobs.ListByBinding(ctx, f.binding.ID, 0)
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job from star event, got %d", len(jobs))
	}
	if jobs[0].Type != domain.SyncJobTypeMetadata {
		t.Errorf("star must trigger a metadata sync, got %s", jobs[0].Type)
	}
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		in    string
		owner string
		repo  string
		ok    bool
	}{
		{"octo/agents", "octo", "agents", true},
		{"octo", "", "", false},
		{"/agents", "", "", false},
		{"octo/", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		owner, repo, ok := splitFullName(tt.in)
		if owner != tt.owner || repo != tt.repo || ok != tt.ok {
			t.Errorf("splitFullName(%q) = (%q, %q, %t), want (%q, %q, %t)",
				tt.in, owner, repo, ok, tt.owner, tt.repo, tt.ok)
		}
	}
}
