package driving

import (
	"context"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

// WebhookService processes inbound repository webhooks
type WebhookService interface {
	// VerifySignature validates the HMAC signature of a webhook payload.
	// Returns domain.ErrSignatureInvalid on mismatch.
	VerifySignature(payload []byte, signature string) error

	// ParseEvent extracts the delivery envelope from a webhook payload
	ParseEvent(eventType string, payload []byte) (*domain.WebhookDelivery, error)

	// HandleDelivery verifies, deduplicates and dispatches one webhook
	// delivery. Duplicate deliveries within the dedup window are dropped
	// silently.
	HandleDelivery(ctx context.Context, eventType, signature string, payload []byte) error
}
