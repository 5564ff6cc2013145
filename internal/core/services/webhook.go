package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driving"
)

// dedupWindow is how long repeat deliveries for the same repository+event
// are dropped.
const dedupWindow = 60 * time.Second

// WebhookService verifies, deduplicates and dispatches inbound repository
// webhooks onto the sync event bus.
type WebhookService struct {
	secret []byte
	gate   driven.DeliveryGate
	bus    *EventBus
	logger *slog.Logger
}

// Compile-time interface compliance check
var _ driving.WebhookService = (*WebhookService)(nil)

// NewWebhookService creates a webhook service. The secret is shared with the
// hosting service at webhook registration time.
func NewWebhookService(secret string, gate driven.DeliveryGate, bus *EventBus, logger *slog.Logger) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{
		secret: []byte(secret),
		gate:   gate,
		bus:    bus,
		logger: logger,
	}
}

// VerifySignature validates the sha256=<hex> HMAC signature computed over
// the raw body. Comparison is constant-time.
func (s *WebhookService) VerifySignature(payload []byte, signature string) error {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return domain.ErrSignatureInvalid
	}
	return nil
}

// webhookEnvelope is the minimal JSON shape shared by all delivery payloads.
type webhookEnvelope struct {
	Action     string `json:"action"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	PullRequest *struct {
		Merged bool `json:"merged"`
	} `json:"pull_request"`
}

// ParseEvent extracts the delivery envelope from a webhook payload.
// A closed pull request that was merged is reported with action "merged".
func (s *WebhookService) ParseEvent(eventType string, payload []byte) (*domain.WebhookDelivery, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}
	if envelope.Repository.FullName == "" {
		return nil, fmt.Errorf("parse webhook payload: %w: missing repository.full_name", domain.ErrInvalidInput)
	}

	action := envelope.Action
	if eventType == "pull_request" && action == "closed" &&
		envelope.PullRequest != nil && envelope.PullRequest.Merged {
		action = "merged"
	}

	return &domain.WebhookDelivery{
		EventType:    eventType,
		Action:       action,
		RepoFullName: envelope.Repository.FullName,
	}, nil
}

// HandleDelivery verifies, deduplicates and dispatches one delivery.
// Unmapped (event, action) pairs and duplicates are dropped silently.
func (s *WebhookService) HandleDelivery(ctx context.Context, eventType, signature string, payload []byte) error {
	if err := s.VerifySignature(payload, signature); err != nil {
		return err
	}

	delivery, err := s.ParseEvent(eventType, payload)
	if err != nil {
		return err
	}

	process, err := s.gate.ShouldProcess(ctx, delivery.RepoFullName, eventType, dedupWindow)
	if err != nil {
		return fmt.Errorf("webhook dedup check: %w", err)
	}
	if !process {
		s.logger.Debug("duplicate webhook delivery dropped",
			"repo", delivery.RepoFullName, "event", eventType)
		return nil
	}

	event, ok := domain.MapWebhookEvent(delivery.EventType, delivery.Action)
	if !ok {
		s.logger.Debug("unmapped webhook event ignored",
			"event", eventType, "action", delivery.Action)
		return nil
	}

	s.logger.Info("webhook delivery accepted",
		"repo", delivery.RepoFullName, "event", event)
	s.bus.Publish(ctx, event, delivery)
	return nil
}
