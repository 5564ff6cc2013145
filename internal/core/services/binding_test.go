package services

import (
	"context"
	"errors"
	"testing"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven/mocks"
)

type bindingFixture struct {
	hosting  *mocks.MockHostingClient
	agents   *mocks.MockAgentStore
	bindings *mocks.MockBindingStore
	svc      *BindingService
	agent    *domain.Agent
}

func newBindingFixture(t *testing.T) *bindingFixture {
	t.Helper()

	hosting := mocks.NewMockHostingClient()
	agents := mocks.NewMockAgentStore()
	bindings := mocks.NewMockBindingStore()

	agent := &domain.Agent{
		ID:        domain.GenerateID(),
		Slug:      "code-reviewer-octo-agents",
		Name:      "code-reviewer",
		RepoOwner: "octo",
		RepoName:  "agents",
	}
	if err := agents.Create(context.Background(), agent); err != nil {
		t.Fatalf("seed agent: %v", err)
	}

	return &bindingFixture{
		hosting:  hosting,
		agents:   agents,
		bindings: bindings,
		svc:      NewBindingService(hosting, agents, bindings, nil),
		agent:    agent,
	}
}

func TestCreateBinding(t *testing.T) {
	f := newBindingFixture(t)
	ctx := context.Background()

	binding, err := f.svc.CreateBinding(ctx, f.agent.ID, domain.BindingConfig{ReadmeAsDescription: true})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if binding.AgentID != f.agent.ID {
		t.Errorf("expected agent id %s, got %s", f.agent.ID, binding.AgentID)
	}
	if binding.RepoOwner != "octo" || binding.RepoName != "agents" {
		t.Errorf("expected repo from agent provenance, got %s/%s", binding.RepoOwner, binding.RepoName)
	}
	if !binding.Enabled {
		t.Error("new bindings start enabled")
	}
	if binding.Status != domain.BindingStatusIdle {
		t.Errorf("expected idle status, got %s", binding.Status)
	}
	if !binding.Config.ReadmeAsDescription {
		t.Error("expected config carried through")
	}
}

func TestCreateBinding_OnePerAgent(t *testing.T) {
	f := newBindingFixture(t)
	ctx := context.Background()

	if _, err := f.svc.CreateBinding(ctx, f.agent.ID, domain.BindingConfig{}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := f.svc.CreateBinding(ctx, f.agent.ID, domain.BindingConfig{})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateBinding_AgentWithoutRepo(t *testing.T) {
	f := newBindingFixture(t)
	ctx := context.Background()

	manual := &domain.Agent{ID: domain.GenerateID(), Slug: "manual", Name: "manual"}
	if err := f.agents.Create(ctx, manual); err != nil {
		t.Fatalf("seed agent: %v", err)
	}

	_, err := f.svc.CreateBinding(ctx, manual.ID, domain.BindingConfig{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCreateBinding_UnknownAgent(t *testing.T) {
	f := newBindingFixture(t)

	_, err := f.svc.CreateBinding(context.Background(), "nope", domain.BindingConfig{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestEnableDisableBinding(t *testing.T) {
	f := newBindingFixture(t)
	ctx := context.Background()

	binding, err := f.svc.CreateBinding(ctx, f.agent.ID, domain.BindingConfig{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := f.svc.DisableBinding(ctx, binding.ID); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	got, _ := f.svc.GetBinding(ctx, binding.ID)
	if got.Enabled {
		t.Error("expected binding disabled")
	}

	if err := f.svc.EnableBinding(ctx, binding.ID); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	got, _ = f.svc.GetBinding(ctx, binding.ID)
	if !got.Enabled {
		t.Error("expected binding enabled")
	}
}

func TestUpdateBinding(t *testing.T) {
	f := newBindingFixture(t)
	ctx := context.Background()

	binding, err := f.svc.CreateBinding(ctx, f.agent.ID, domain.BindingConfig{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := f.svc.UpdateBinding(ctx, binding.ID, domain.BindingConfig{
		ReadmeAsDescription: true,
		Branch:              "develop",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.Config.ReadmeAsDescription || updated.Config.Branch != "develop" {
		t.Errorf("expected config applied, got %+v", updated.Config)
	}
}

func TestGetBindingByAgent(t *testing.T) {
	f := newBindingFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateBinding(ctx, f.agent.ID, domain.BindingConfig{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := f.svc.GetBindingByAgent(ctx, f.agent.ID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("expected binding %s, got %s", created.ID, got.ID)
	}
}

func TestSetupWebhook(t *testing.T) {
	f := newBindingFixture(t)
	ctx := context.Background()

	binding, err := f.svc.CreateBinding(ctx, f.agent.ID, domain.BindingConfig{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := f.svc.SetupWebhook(ctx, binding.ID, "https://hub.example.com/webhooks/github", "secret"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	got, _ := f.svc.GetBinding(ctx, binding.ID)
	if got.WebhookID == nil {
		t.Fatal("expected webhook id persisted")
	}

	hooks, _ := f.hosting.ListWebhooks(ctx, "octo", "agents")
	if len(hooks) != 1 {
		t.Fatalf("expected 1 remote webhook, got %d", len(hooks))
	}
	if len(hooks[0].Events) == 0 {
		t.Error("expected subscribed events on webhook")
	}
}

func TestSetupWebhook_Idempotent(t *testing.T) {
	f := newBindingFixture(t)
	ctx := context.Background()

	binding, err := f.svc.CreateBinding(ctx, f.agent.ID, domain.BindingConfig{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := f.svc.SetupWebhook(ctx, binding.ID, "https://hub.example.com/hook", "secret"); err != nil {
		t.Fatalf("first setup failed: %v", err)
	}
	if err := f.svc.SetupWebhook(ctx, binding.ID, "https://hub.example.com/hook", "secret"); err != nil {
		t.Fatalf("second setup failed: %v", err)
	}

	if f.hosting.Calls("CreateWebhook") != 1 {
		t.Errorf("expected 1 remote webhook creation, got %d", f.hosting.Calls("CreateWebhook"))
	}
}

func TestRemoveWebhook(t *testing.T) {
	f := newBindingFixture(t)
	ctx := context.Background()

	binding, err := f.svc.CreateBinding(ctx, f.agent.ID, domain.BindingConfig{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := f.svc.SetupWebhook(ctx, binding.ID, "https://hub.example.com/hook", "secret"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if err := f.svc.RemoveWebhook(ctx, binding.ID); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	got, _ := f.svc.GetBinding(ctx, binding.ID)
	if got.WebhookID != nil {
		t.Error("expected webhook id cleared")
	}
	hooks, _ := f.hosting.ListWebhooks(ctx, "octo", "agents")
	if len(hooks) != 0 {
		t.Errorf("expected remote webhook deleted, got %d", len(hooks))
	}
}

func TestRemoveWebhook_NoWebhook(t *testing.T) {
	f := newBindingFixture(t)
	ctx := context.Background()

	binding, err := f.svc.CreateBinding(ctx, f.agent.ID, domain.BindingConfig{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := f.svc.RemoveWebhook(ctx, binding.ID); err != nil {
		t.Errorf("removing an absent webhook must be a no-op, got %v", err)
	}
}

func TestRemoveWebhook_RemoteDeletionFailureTolerated(t *testing.T) {
	f := newBindingFixture(t)
	ctx := context.Background()

	binding, err := f.svc.CreateBinding(ctx, f.agent.ID, domain.BindingConfig{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	hookID := int64(99)
	binding.WebhookID = &hookID
	if err := f.bindings.Update(ctx, binding); err != nil {
		t.Fatalf("seed webhook id: %v", err)
	}

	// The remote hook does not exist; deletion fails but the local id clears
	if err := f.svc.RemoveWebhook(ctx, binding.ID); err != nil {
		t.Fatalf("remove must tolerate remote failure, got %v", err)
	}

	got, _ := f.svc.GetBinding(ctx, binding.ID)
	if got.WebhookID != nil {
		t.Error("expected webhook id cleared despite remote failure")
	}
}
