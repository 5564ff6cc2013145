package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

// EventHandler reacts to one sync event. Handler failures and panics are
// isolated per handler; one handler never prevents the others from running.
type EventHandler func(ctx context.Context, event domain.SyncEvent, delivery *domain.WebhookDelivery) error

// EventBus dispatches sync events to registered handlers in registration
// order.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[domain.SyncEvent][]EventHandler
	logger   *slog.Logger
}

// NewEventBus creates an empty event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers: make(map[domain.SyncEvent][]EventHandler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event. Handlers run in the order they
// were registered.
func (b *EventBus) Subscribe(event domain.SyncEvent, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Publish runs every handler registered for the event. Events with no
// handlers are ignored silently.
func (b *EventBus) Publish(ctx context.Context, event domain.SyncEvent, delivery *domain.WebhookDelivery) {
	b.mu.RLock()
	handlers := make([]EventHandler, len(b.handlers[event]))
	copy(handlers, b.handlers[event])
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.run(ctx, event, delivery, handler)
	}
}

func (b *EventBus) run(ctx context.Context, event domain.SyncEvent, delivery *domain.WebhookDelivery, handler EventHandler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "event", event, "panic", r)
		}
	}()
	if err := handler(ctx, event, delivery); err != nil {
		b.logger.Error("event handler failed", "event", event, "error", err)
	}
}
