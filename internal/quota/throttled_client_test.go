package quota

import (
	"context"
	"testing"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven/mocks"
)

func TestThrottledClientAdmitsCallsThroughQueue(t *testing.T) {
	m := NewManager(nil, discardLogger())
	th := newTestThrottler(m)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go th.Start(ctx)

	inner := mocks.NewMockHostingClient()
	inner.Repos["acme/tools"] = &driven.Repository{Owner: "acme", Name: "tools"}

	client := NewThrottledClient(inner, th, 1)
	repo, err := client.GetRepository(ctx, "acme", "tools")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.Owner != "acme" || repo.Name != "tools" {
		t.Errorf("repo = %+v", repo)
	}
	if inner.Calls("GetRepository") != 1 {
		t.Errorf("GetRepository calls = %d", inner.Calls("GetRepository"))
	}
}

func TestThrottledClientHoldsCallWhileExhausted(t *testing.T) {
	m := NewManager(nil, discardLogger())
	m.RecordHeaders(domain.ResourceCore, 5000, 0, time.Now().Add(50*time.Millisecond))

	th := newTestThrottler(m)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go th.Start(ctx)

	inner := mocks.NewMockHostingClient()
	inner.Repos["acme/tools"] = &driven.Repository{Owner: "acme", Name: "tools"}

	client := NewThrottledClient(inner, th, 1)
	if _, err := client.GetRepository(ctx, "acme", "tools"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.Calls("GetRepository") != 1 {
		t.Errorf("GetRepository calls = %d", inner.Calls("GetRepository"))
	}
}

func TestThrottledClientSearchUsesSearchClass(t *testing.T) {
	m := NewManager(nil, discardLogger())
	// core exhausted for an hour; search untouched
	m.RecordHeaders(domain.ResourceCore, 5000, 0, time.Now().Add(time.Hour))

	th := newTestThrottler(m)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go th.Start(ctx)

	inner := mocks.NewMockHostingClient()
	inner.SearchResult = []*driven.Repository{{Owner: "acme", Name: "tools"}}

	client := NewThrottledClient(inner, th, 1)
	repos, err := client.SearchRepositories(ctx, "topic:agents", driven.ListOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repos) != 1 {
		t.Errorf("repos = %v", repos)
	}
}

func TestThrottledClientRateLimitBypassesQueue(t *testing.T) {
	m := NewManager(nil, discardLogger())
	th := NewThrottler(m, discardLogger())
	// drain loop intentionally not started; the rate-limit endpoint must
	// still answer so exhausted quota state can be refreshed
	inner := mocks.NewMockHostingClient()
	inner.RateLimit = map[domain.ResourceClass]domain.QuotaSnapshot{
		domain.ResourceCore: {Class: domain.ResourceCore, Limit: 5000, Remaining: 42},
	}

	client := NewThrottledClient(inner, th, 1)
	snapshots, err := client.GetRateLimit(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshots[domain.ResourceCore].Remaining != 42 {
		t.Errorf("snapshots = %v", snapshots)
	}
}
