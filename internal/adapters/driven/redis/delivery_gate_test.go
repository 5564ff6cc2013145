package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

func setupGateRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})

	return client, mr, func() {
		client.Close()
		mr.Close()
	}
}

func TestDeliveryGate_FirstDeliveryAllowed(t *testing.T) {
	client, _, cleanup := setupGateRedis(t)
	defer cleanup()

	gate := NewDeliveryGate(client)
	ctx := context.Background()

	ok, err := gate.ShouldProcess(ctx, "octo/agents", "push", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected first delivery to be allowed")
	}
}

func TestDeliveryGate_DuplicateDropped(t *testing.T) {
	client, _, cleanup := setupGateRedis(t)
	defer cleanup()

	gate := NewDeliveryGate(client)
	ctx := context.Background()

	ok, err := gate.ShouldProcess(ctx, "octo/agents", "push", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected first delivery to be allowed")
	}

	ok, err = gate.ShouldProcess(ctx, "octo/agents", "push", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected duplicate delivery to be dropped")
	}
}

func TestDeliveryGate_DistinctKeysIndependent(t *testing.T) {
	client, _, cleanup := setupGateRedis(t)
	defer cleanup()

	gate := NewDeliveryGate(client)
	ctx := context.Background()

	ok, err := gate.ShouldProcess(ctx, "octo/agents", "push", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected push delivery to be allowed")
	}

	// Different event type for the same repo
	ok, err = gate.ShouldProcess(ctx, "octo/agents", "star", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected star delivery to be allowed")
	}

	// Same event type for a different repo
	ok, err = gate.ShouldProcess(ctx, "octo/tools", "push", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected delivery for other repo to be allowed")
	}
}

func TestDeliveryGate_WindowExpires(t *testing.T) {
	client, mr, cleanup := setupGateRedis(t)
	defer cleanup()

	gate := NewDeliveryGate(client)
	ctx := context.Background()

	ok, err := gate.ShouldProcess(ctx, "octo/agents", "push", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected first delivery to be allowed")
	}

	// Advance miniredis past the dedup window so the key expires
	mr.FastForward(time.Minute + time.Second)

	ok, err = gate.ShouldProcess(ctx, "octo/agents", "push", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected delivery after window expiry to be allowed")
	}
}
