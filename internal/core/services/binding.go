package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driving"
)

// webhookEvents are the remote events a binding's webhook subscribes to.
var webhookEvents = []string{"push", "release", "repository", "star", "fork", "watch"}

// BindingService manages agent-repository sync bindings and their remote
// webhooks.
type BindingService struct {
	hosting      driven.HostingClient
	agentStore   driven.AgentStore
	bindingStore driven.BindingStore
	logger       *slog.Logger
}

// Compile-time interface compliance check
var _ driving.BindingService = (*BindingService)(nil)

// NewBindingService creates a new binding service.
func NewBindingService(hosting driven.HostingClient, agentStore driven.AgentStore, bindingStore driven.BindingStore, logger *slog.Logger) *BindingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BindingService{
		hosting:      hosting,
		agentStore:   agentStore,
		bindingStore: bindingStore,
		logger:       logger,
	}
}

// CreateBinding binds an agent to its source repository. At most one binding
// exists per agent; creating a second fails with domain.ErrAlreadyExists.
func (s *BindingService) CreateBinding(ctx context.Context, agentID string, config domain.BindingConfig) (*domain.SyncBinding, error) {
	agent, err := s.agentStore.Get(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", agentID, err)
	}
	if agent.RepoOwner == "" || agent.RepoName == "" {
		return nil, fmt.Errorf("agent %s: %w: no source repository recorded", agentID, domain.ErrInvalidInput)
	}

	binding := domain.NewSyncBinding(agentID, agent.RepoOwner, agent.RepoName)
	binding.Config = config
	if err := s.bindingStore.Create(ctx, binding); err != nil {
		return nil, fmt.Errorf("create binding for agent %s: %w", agentID, err)
	}

	s.logger.Info("binding created",
		"binding_id", binding.ID, "agent_id", agentID,
		"repo", agent.RepoOwner+"/"+agent.RepoName)
	return binding, nil
}

// GetBinding retrieves a binding by ID.
func (s *BindingService) GetBinding(ctx context.Context, id string) (*domain.SyncBinding, error) {
	return s.bindingStore.Get(ctx, id)
}

// GetBindingByAgent retrieves the binding for an agent.
func (s *BindingService) GetBindingByAgent(ctx context.Context, agentID string) (*domain.SyncBinding, error) {
	return s.bindingStore.GetByAgent(ctx, agentID)
}

// UpdateBinding updates a binding's configuration.
func (s *BindingService) UpdateBinding(ctx context.Context, id string, config domain.BindingConfig) (*domain.SyncBinding, error) {
	binding, err := s.bindingStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	binding.Config = config
	binding.UpdatedAt = time.Now()
	if err := s.bindingStore.Update(ctx, binding); err != nil {
		return nil, fmt.Errorf("update binding %s: %w", id, err)
	}
	return binding, nil
}

// EnableBinding enables automatic syncing for a binding.
func (s *BindingService) EnableBinding(ctx context.Context, id string) error {
	return s.setEnabled(ctx, id, true)
}

// DisableBinding disables automatic syncing. The binding is soft-disabled,
// never deleted.
func (s *BindingService) DisableBinding(ctx context.Context, id string) error {
	return s.setEnabled(ctx, id, false)
}

func (s *BindingService) setEnabled(ctx context.Context, id string, enabled bool) error {
	binding, err := s.bindingStore.Get(ctx, id)
	if err != nil {
		return err
	}
	binding.Enabled = enabled
	binding.UpdatedAt = time.Now()
	if err := s.bindingStore.Update(ctx, binding); err != nil {
		return fmt.Errorf("update binding %s: %w", id, err)
	}
	return nil
}

// SetupWebhook registers a webhook on the bound repository and persists its
// identifier on the binding.
func (s *BindingService) SetupWebhook(ctx context.Context, bindingID string, callbackURL, secret string) error {
	binding, err := s.bindingStore.Get(ctx, bindingID)
	if err != nil {
		return err
	}
	if binding.WebhookID != nil {
		return nil
	}

	hook, err := s.hosting.CreateWebhook(ctx, binding.RepoOwner, binding.RepoName, driven.WebhookConfig{
		URL:    callbackURL,
		Secret: secret,
		Events: webhookEvents,
	})
	if err != nil {
		return fmt.Errorf("create webhook for %s/%s: %w", binding.RepoOwner, binding.RepoName, err)
	}

	binding.WebhookID = &hook.ID
	binding.UpdatedAt = time.Now()
	if err := s.bindingStore.Update(ctx, binding); err != nil {
		return fmt.Errorf("persist webhook id on binding %s: %w", bindingID, err)
	}

	s.logger.Info("webhook registered",
		"binding_id", bindingID, "webhook_id", hook.ID)
	return nil
}

// RemoveWebhook deletes the remote webhook and clears its identifier.
// Remote deletion errors are tolerated: the hook may already be gone, and
// the local identifier is cleared either way.
func (s *BindingService) RemoveWebhook(ctx context.Context, bindingID string) error {
	binding, err := s.bindingStore.Get(ctx, bindingID)
	if err != nil {
		return err
	}
	if binding.WebhookID == nil {
		return nil
	}

	if err := s.hosting.DeleteWebhook(ctx, binding.RepoOwner, binding.RepoName, *binding.WebhookID); err != nil {
		s.logger.Warn("remote webhook deletion failed, clearing local id anyway",
			"binding_id", bindingID, "webhook_id", *binding.WebhookID, "error", err)
	}

	binding.WebhookID = nil
	binding.UpdatedAt = time.Now()
	if err := s.bindingStore.Update(ctx, binding); err != nil {
		return fmt.Errorf("clear webhook id on binding %s: %w", bindingID, err)
	}
	return nil
}
