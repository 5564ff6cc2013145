package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven/mocks"
)

const testSecret = "webhook-secret"

func signPayload(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newWebhookFixture() (*WebhookService, *mocks.MockDeliveryGate, *EventBus) {
	gate := mocks.NewMockDeliveryGate()
	bus := NewEventBus(nil)
	svc := NewWebhookService(testSecret, gate, bus, nil)
	return svc, gate, bus
}

func TestVerifySignature(t *testing.T) {
	svc, _, _ := newWebhookFixture()
	payload := []byte(`{"action":"created"}`)

	if err := svc.VerifySignature(payload, signPayload(testSecret, payload)); err != nil {
		t.Errorf("expected valid signature, got %v", err)
	}
}

func TestVerifySignature_SingleByteMutation(t *testing.T) {
	svc, _, _ := newWebhookFixture()
	payload := []byte(`{"action":"created"}`)

	sig := []byte(signPayload(testSecret, payload))
	sig[len(sig)-1] ^= 1

	if err := svc.VerifySignature(payload, string(sig)); !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Errorf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	svc, _, _ := newWebhookFixture()
	payload := []byte(`{}`)

	err := svc.VerifySignature(payload, signPayload("other-secret", payload))
	if !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Errorf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestParseEvent(t *testing.T) {
	svc, _, _ := newWebhookFixture()

	delivery, err := svc.ParseEvent("star", []byte(`{"action":"created","repository":{"full_name":"octo/agents"}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if delivery.EventType != "star" || delivery.Action != "created" {
		t.Errorf("unexpected delivery %+v", delivery)
	}
	if delivery.RepoFullName != "octo/agents" {
		t.Errorf("expected octo/agents, got %s", delivery.RepoFullName)
	}
}

func TestParseEvent_MergedPullRequest(t *testing.T) {
	svc, _, _ := newWebhookFixture()

	delivery, err := svc.ParseEvent("pull_request",
		[]byte(`{"action":"closed","repository":{"full_name":"octo/agents"},"pull_request":{"merged":true}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if delivery.Action != "merged" {
		t.Errorf("merged PR close must report action merged, got %q", delivery.Action)
	}
}

func TestParseEvent_ClosedUnmergedPullRequest(t *testing.T) {
	svc, _, _ := newWebhookFixture()

	delivery, err := svc.ParseEvent("pull_request",
		[]byte(`{"action":"closed","repository":{"full_name":"octo/agents"},"pull_request":{"merged":false}}`))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if delivery.Action != "closed" {
		t.Errorf("unmerged PR close must keep action closed, got %q", delivery.Action)
	}
}

func TestParseEvent_MissingRepository(t *testing.T) {
	svc, _, _ := newWebhookFixture()

	_, err := svc.ParseEvent("push", []byte(`{"action":""}`))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestParseEvent_MalformedJSON(t *testing.T) {
	svc, _, _ := newWebhookFixture()

	_, err := svc.ParseEvent("push", []byte(`{not json`))
	if err == nil {
		t.Error("expected parse error")
	}
}

func TestHandleDelivery_Dispatches(t *testing.T) {
	svc, _, bus := newWebhookFixture()

	var got *domain.WebhookDelivery
	bus.Subscribe(domain.EventPush, func(ctx context.Context, event domain.SyncEvent, delivery *domain.WebhookDelivery) error {
		got = delivery
		return nil
	})

	payload := []byte(`{"repository":{"full_name":"octo/agents"}}`)
	err := svc.HandleDelivery(context.Background(), "push", signPayload(testSecret, payload), payload)
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected handler invocation")
	}
	if got.RepoFullName != "octo/agents" {
		t.Errorf("expected octo/agents, got %s", got.RepoFullName)
	}
}

func TestHandleDelivery_BadSignatureRejected(t *testing.T) {
	svc, _, bus := newWebhookFixture()

	called := false
	bus.Subscribe(domain.EventPush, func(ctx context.Context, event domain.SyncEvent, delivery *domain.WebhookDelivery) error {
		called = true
		return nil
	})

	payload := []byte(`{"repository":{"full_name":"octo/agents"}}`)
	err := svc.HandleDelivery(context.Background(), "push", "sha256=bogus", payload)
	if !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
	if called {
		t.Error("rejected delivery must not reach handlers")
	}
}

func TestHandleDelivery_DuplicateDropped(t *testing.T) {
	svc, _, bus := newWebhookFixture()

	calls := 0
	bus.Subscribe(domain.EventPush, func(ctx context.Context, event domain.SyncEvent, delivery *domain.WebhookDelivery) error {
		calls++
		return nil
	})

	payload := []byte(`{"repository":{"full_name":"octo/agents"}}`)
	sig := signPayload(testSecret, payload)
	ctx := context.Background()

	if err := svc.HandleDelivery(ctx, "push", sig, payload); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := svc.HandleDelivery(ctx, "push", sig, payload); err != nil {
		t.Fatalf("duplicate delivery must not error: %v", err)
	}

	if calls != 1 {
		t.Errorf("expected 1 dispatch within the dedup window, got %d", calls)
	}
}

func TestHandleDelivery_DedupWindowExpires(t *testing.T) {
	svc, gate, bus := newWebhookFixture()

	calls := 0
	bus.Subscribe(domain.EventPush, func(ctx context.Context, event domain.SyncEvent, delivery *domain.WebhookDelivery) error {
		calls++
		return nil
	})

	now := time.Now()
	gate.SetClock(func() time.Time { return now })

	payload := []byte(`{"repository":{"full_name":"octo/agents"}}`)
	sig := signPayload(testSecret, payload)
	ctx := context.Background()

	if err := svc.HandleDelivery(ctx, "push", sig, payload); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}

	gate.SetClock(func() time.Time { return now.Add(dedupWindow + time.Second) })
	if err := svc.HandleDelivery(ctx, "push", sig, payload); err != nil {
		t.Fatalf("post-window delivery failed: %v", err)
	}

	if calls != 2 {
		t.Errorf("expected 2 dispatches across expired window, got %d", calls)
	}
}

func TestHandleDelivery_DistinctEventsNotDeduplicated(t *testing.T) {
	svc, _, bus := newWebhookFixture()

	calls := 0
	handler := func(ctx context.Context, event domain.SyncEvent, delivery *domain.WebhookDelivery) error {
		calls++
		return nil
	}
	bus.Subscribe(domain.EventPush, handler)
	bus.Subscribe(domain.EventFork, handler)

	payload := []byte(`{"repository":{"full_name":"octo/agents"}}`)
	sig := signPayload(testSecret, payload)
	ctx := context.Background()

	if err := svc.HandleDelivery(ctx, "push", sig, payload); err != nil {
		t.Fatalf("push delivery failed: %v", err)
	}
	if err := svc.HandleDelivery(ctx, "fork", sig, payload); err != nil {
		t.Fatalf("fork delivery failed: %v", err)
	}

	if calls != 2 {
		t.Errorf("expected both event types dispatched, got %d", calls)
	}
}

func TestHandleDelivery_UnmappedEventIgnored(t *testing.T) {
	svc, _, _ := newWebhookFixture()

	payload := []byte(`{"action":"labeled","repository":{"full_name":"octo/agents"}}`)
	err := svc.HandleDelivery(context.Background(), "issues", signPayload(testSecret, payload), payload)
	if err != nil {
		t.Errorf("unmapped events must be dropped silently, got %v", err)
	}
}

func TestHandleDelivery_GateError(t *testing.T) {
	svc, gate, _ := newWebhookFixture()
	gate.Err = errors.New("redis down")

	payload := []byte(`{"repository":{"full_name":"octo/agents"}}`)
	err := svc.HandleDelivery(context.Background(), "push", signPayload(testSecret, payload), payload)
	if err == nil {
		t.Error("expected gate error surfaced")
	}
}
