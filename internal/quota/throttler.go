package quota

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

const (
	// maxExhaustedSleep caps how long the drain loop sleeps while a class
	// is exhausted.
	maxExhaustedSleep = 60 * time.Second

	// interRequestDelay separates consecutive executions to avoid bursting.
	interRequestDelay = 100 * time.Millisecond
)

// ThrottledFunc is one unit of work admitted through the throttler.
type ThrottledFunc func(ctx context.Context) error

type queueItem struct {
	class    domain.ResourceClass
	priority int
	seq      int64
	fn       ThrottledFunc
	done     chan error
}

// itemHeap orders by priority descending, then insertion order ascending.
type itemHeap []*queueItem

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)         { *h = append(*h, x.(*queueItem)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Throttler serializes hosting API calls through a single priority queue.
// It is the sole admission point for throttled outbound requests.
type Throttler struct {
	manager *Manager
	logger  *slog.Logger

	mu      sync.Mutex
	queue   itemHeap
	nextSeq int64
	wake    chan struct{}

	// sleep is swappable for tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewThrottler creates a throttler admitting requests against the manager's
// quota state. Start must be called before Submit is useful.
func NewThrottler(manager *Manager, logger *slog.Logger) *Throttler {
	return &Throttler{
		manager: manager,
		logger:  logger,
		wake:    make(chan struct{}, 1),
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		},
	}
}

// Submit enqueues work at the given priority and blocks until it has run or
// the context is cancelled. Higher priority runs first.
func (t *Throttler) Submit(ctx context.Context, class domain.ResourceClass, priority int, fn ThrottledFunc) error {
	item := &queueItem{
		class:    class,
		priority: priority,
		fn:       fn,
		done:     make(chan error, 1),
	}

	t.mu.Lock()
	item.seq = t.nextSeq
	t.nextSeq++
	heap.Push(&t.queue, item)
	t.mu.Unlock()

	select {
	case t.wake <- struct{}{}:
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-item.done:
		return err
	}
}

// Start runs the drain loop until the context is cancelled. Items are never
// dropped: an item hitting an exhausted class goes back to the front of its
// priority band and the loop sleeps before retrying.
func (t *Throttler) Start(ctx context.Context) {
	for {
		item := t.pop()
		if item == nil {
			select {
			case <-ctx.Done():
				t.drainCancelled(ctx)
				return
			case <-t.wake:
				continue
			}
		}

		if !t.manager.CanMakeRequest(item.class) {
			t.pushFront(item)
			wait := t.manager.GetWaitTime(item.class)
			if wait <= 0 || wait > maxExhaustedSleep {
				wait = maxExhaustedSleep
			}
			t.logger.Info("quota exhausted, throttler sleeping",
				"class", item.class, "wait", wait)
			if err := t.sleep(ctx, wait); err != nil {
				t.drainCancelled(ctx)
				return
			}
			continue
		}

		item.done <- item.fn(ctx)

		if err := t.sleep(ctx, interRequestDelay); err != nil {
			t.drainCancelled(ctx)
			return
		}
	}
}

func (t *Throttler) pop() *queueItem {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.queue.Len() == 0 {
		return nil
	}
	return heap.Pop(&t.queue).(*queueItem)
}

// pushFront re-inserts an item ahead of everything at its priority.
func (t *Throttler) pushFront(item *queueItem) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.queue) > 0 {
		min := t.queue[0].seq
		for _, queued := range t.queue {
			if queued.seq < min {
				min = queued.seq
			}
		}
		if item.seq >= min {
			item.seq = min - 1
		}
	}
	heap.Push(&t.queue, item)
}

// drainCancelled fails every queued item with the context error.
func (t *Throttler) drainCancelled(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, item := range t.queue {
		item.done <- ctx.Err()
	}
	t.queue = nil
}
