package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

func newTestThrottler(m *Manager) *Throttler {
	t := NewThrottler(m, discardLogger())
	t.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	return t
}

func TestThrottlerRunsByPriority(t *testing.T) {
	m := NewManager(nil, discardLogger())
	th := newTestThrottler(m)

	var mu sync.Mutex
	var order []string

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// enqueue before starting the drain so ordering is deterministic
	var wg sync.WaitGroup
	submit := func(name string, priority int) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			th.Submit(ctx, domain.ResourceCore, priority, func(ctx context.Context) error {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return nil
			})
		}()
	}
	submit("low", 1)
	time.Sleep(10 * time.Millisecond)
	submit("high", 10)
	time.Sleep(10 * time.Millisecond)
	submit("mid-a", 5)
	time.Sleep(10 * time.Millisecond)
	submit("mid-b", 5)
	time.Sleep(10 * time.Millisecond)

	go th.Start(ctx)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	want := []string{"high", "mid-a", "mid-b", "low"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestThrottlerHoldsItemWhileExhausted(t *testing.T) {
	m := NewManager(nil, discardLogger())
	// core exhausted with reset just behind us after the first check
	m.RecordHeaders(domain.ResourceCore, 5000, 0, time.Now().Add(50*time.Millisecond))

	th := newTestThrottler(m)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go th.Start(ctx)

	ran := false
	err := th.Submit(ctx, domain.ResourceCore, 1, func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("item never ran after reset passed")
	}
}

func TestThrottlerCancellationFailsQueuedItems(t *testing.T) {
	m := NewManager(nil, discardLogger())
	m.RecordHeaders(domain.ResourceCore, 5000, 0, time.Now().Add(time.Hour))

	th := NewThrottler(m, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- th.Submit(ctx, domain.ResourceCore, 1, func(ctx context.Context) error {
			return nil
		})
	}()

	go th.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("expected a cancellation error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("submit did not return after cancellation")
	}
}
