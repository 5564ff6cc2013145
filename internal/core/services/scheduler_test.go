package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven/mocks"
)

// mockSchedulerStore implements driven.SchedulerStore for testing
type mockSchedulerStore struct {
	mu             sync.Mutex
	scheduledTasks map[string]*domain.ScheduledTask
	getDueFn       func() ([]*domain.ScheduledTask, error)
	updateLastFn   func(id string, lastError string) error
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{
		scheduledTasks: make(map[string]*domain.ScheduledTask),
	}
}

func (m *mockSchedulerStore) GetScheduledTask(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.scheduledTasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

func (m *mockSchedulerStore) ListScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.ScheduledTask
	for _, task := range m.scheduledTasks {
		result = append(result, task)
	}
	return result, nil
}

func (m *mockSchedulerStore) SaveScheduledTask(ctx context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scheduledTasks[task.ID] = task
	return nil
}

func (m *mockSchedulerStore) DeleteScheduledTask(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.scheduledTasks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.scheduledTasks, id)
	return nil
}

func (m *mockSchedulerStore) GetDueScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	if m.getDueFn != nil {
		return m.getDueFn()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.ScheduledTask
	for _, task := range m.scheduledTasks {
		if task.Enabled && task.IsDue() {
			result = append(result, task)
		}
	}
	return result, nil
}

func (m *mockSchedulerStore) UpdateLastRun(ctx context.Context, id string, lastError string) error {
	if m.updateLastFn != nil {
		return m.updateLastFn(id, lastError)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.scheduledTasks[id]
	if !ok {
		return domain.ErrNotFound
	}
	task.UpdateNextRun()
	task.LastError = lastError
	return nil
}

// mockTaskQueue for scheduler tests
type mockSchedulerTaskQueue struct {
	mu        sync.Mutex
	tasks     []*domain.Task
	enqueueFn func(*domain.Task) error
}

func newMockSchedulerTaskQueue() *mockSchedulerTaskQueue {
	return &mockSchedulerTaskQueue{
		tasks: make([]*domain.Task, 0),
	}
}

func (m *mockSchedulerTaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	if m.enqueueFn != nil {
		return m.enqueueFn(task)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *mockSchedulerTaskQueue) EnqueueBatch(ctx context.Context, tasks []*domain.Task) error {
	for _, t := range tasks {
		if err := m.Enqueue(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockSchedulerTaskQueue) Dequeue(ctx context.Context) (*domain.Task, error) {
	return nil, nil
}

func (m *mockSchedulerTaskQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	return nil, nil
}

func (m *mockSchedulerTaskQueue) Ack(ctx context.Context, taskID string) error {
	return nil
}

func (m *mockSchedulerTaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	return nil
}

func (m *mockSchedulerTaskQueue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return nil, domain.ErrNotFound
}

func (m *mockSchedulerTaskQueue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	return m.tasks, nil
}

func (m *mockSchedulerTaskQueue) CancelTask(ctx context.Context, taskID string) error {
	return nil
}

func (m *mockSchedulerTaskQueue) PurgeTasks(ctx context.Context, olderThan int) (int, error) {
	return 0, nil
}

func (m *mockSchedulerTaskQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	return &driven.QueueStats{}, nil
}

func (m *mockSchedulerTaskQueue) Ping(ctx context.Context) error {
	return nil
}

func (m *mockSchedulerTaskQueue) Close() error {
	return nil
}

func (m *mockSchedulerTaskQueue) getEnqueuedTasks() []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Task, len(m.tasks))
	copy(result, m.tasks)
	return result
}

func TestNewScheduler(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()

	s := NewScheduler(SchedulerConfig{
		Store:        store,
		TaskQueue:    queue,
		PollInterval: time.Minute,
	})

	if s == nil {
		t.Fatal("expected non-nil scheduler")
	}
	if s.interval != time.Minute {
		t.Errorf("expected interval 1m, got %v", s.interval)
	}
}

func TestNewScheduler_Defaults(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()

	s := NewScheduler(SchedulerConfig{
		Store:        store,
		TaskQueue:    queue,
		PollInterval: 0, // Should default to 30s
	})

	if s.interval != 30*time.Second {
		t.Errorf("expected default interval 30s, got %v", s.interval)
	}
	if s.logger == nil {
		t.Error("expected default logger")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()

	s := NewScheduler(SchedulerConfig{
		Store:        store,
		TaskQueue:    queue,
		PollInterval: 100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := s.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start scheduler: %v", err)
	}

	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		t.Error("expected scheduler to be running")
	}

	// Start again should be no-op
	err = s.Start(ctx)
	if err != nil {
		t.Errorf("second start should not error: %v", err)
	}

	s.Stop()

	s.mu.RLock()
	running = s.running
	s.mu.RUnlock()
	if running {
		t.Error("expected scheduler to be stopped")
	}

	// Stop again should be no-op
	s.Stop() // Should not panic
}

func TestScheduler_CreateScheduledTask(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()

	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: queue,
	})

	ctx := context.Background()

	scheduled := domain.NewScheduledTask(
		"test-schedule",
		"Test Sync",
		domain.TaskTypeSyncStale,
		time.Hour,
	)

	err := s.CreateScheduledTask(ctx, scheduled)
	if err != nil {
		t.Fatalf("failed to create scheduled task: %v", err)
	}

	retrieved, err := s.GetScheduledTask(ctx, "test-schedule")
	if err != nil {
		t.Fatalf("failed to get scheduled task: %v", err)
	}
	if retrieved.ID != "test-schedule" {
		t.Errorf("expected ID test-schedule, got %s", retrieved.ID)
	}
}

func TestScheduler_ListScheduledTasks(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()

	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: queue,
	})

	ctx := context.Background()

	s.CreateScheduledTask(ctx, domain.NewScheduledTask("s1", "Sync 1", domain.TaskTypeSyncStale, time.Hour))
	s.CreateScheduledTask(ctx, domain.NewScheduledTask("s2", "Sync 2", domain.TaskTypeSyncStale, time.Hour))

	tasks, err := s.ListScheduledTasks(ctx)
	if err != nil {
		t.Fatalf("failed to list scheduled tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(tasks))
	}
}

func TestScheduler_UpdateScheduledTask(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()

	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: queue,
	})

	ctx := context.Background()

	scheduled := domain.NewScheduledTask("s1", "Original", domain.TaskTypeSyncStale, time.Hour)
	s.CreateScheduledTask(ctx, scheduled)

	scheduled.Name = "Updated"
	scheduled.Interval = 2 * time.Hour

	err := s.UpdateScheduledTask(ctx, scheduled)
	if err != nil {
		t.Fatalf("failed to update: %v", err)
	}

	retrieved, _ := s.GetScheduledTask(ctx, "s1")
	if retrieved.Name != "Updated" {
		t.Errorf("expected name 'Updated', got %s", retrieved.Name)
	}
	if retrieved.Interval != 2*time.Hour {
		t.Errorf("expected interval 2h, got %v", retrieved.Interval)
	}
}

func TestScheduler_DeleteScheduledTask(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()

	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: queue,
	})

	ctx := context.Background()

	scheduled := domain.NewScheduledTask("s1", "Test", domain.TaskTypeSyncStale, time.Hour)
	s.CreateScheduledTask(ctx, scheduled)

	err := s.DeleteScheduledTask(ctx, "s1")
	if err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	_, err = s.GetScheduledTask(ctx, "s1")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestScheduler_EnableDisable(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()

	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: queue,
	})

	ctx := context.Background()

	scheduled := domain.NewScheduledTask("s1", "Test", domain.TaskTypeSyncStale, time.Hour)
	scheduled.Enabled = true
	s.CreateScheduledTask(ctx, scheduled)

	err := s.DisableScheduledTask(ctx, "s1")
	if err != nil {
		t.Fatalf("failed to disable: %v", err)
	}

	retrieved, _ := s.GetScheduledTask(ctx, "s1")
	if retrieved.Enabled {
		t.Error("expected disabled")
	}

	err = s.EnableScheduledTask(ctx, "s1")
	if err != nil {
		t.Fatalf("failed to enable: %v", err)
	}

	retrieved, _ = s.GetScheduledTask(ctx, "s1")
	if !retrieved.Enabled {
		t.Error("expected enabled")
	}
}

func TestScheduler_TriggerNow(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()

	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: queue,
	})

	ctx := context.Background()

	scheduled := domain.NewScheduledTask("s1", "Test", domain.TaskTypeSyncStale, time.Hour)
	s.CreateScheduledTask(ctx, scheduled)

	task, err := s.TriggerNow(ctx, "s1")
	if err != nil {
		t.Fatalf("failed to trigger: %v", err)
	}

	if task == nil {
		t.Fatal("expected task to be created")
	}
	if task.Type != domain.TaskTypeSyncStale {
		t.Errorf("expected task type %s, got %s", domain.TaskTypeSyncStale, task.Type)
	}

	enqueued := queue.getEnqueuedTasks()
	if len(enqueued) != 1 {
		t.Errorf("expected 1 enqueued task, got %d", len(enqueued))
	}
}

func TestScheduler_TriggerNow_NotFound(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()

	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: queue,
	})

	ctx := context.Background()

	_, err := s.TriggerNow(ctx, "nonexistent")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestScheduler_CheckAndEnqueue(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()

	s := NewScheduler(SchedulerConfig{
		Store:        store,
		TaskQueue:    queue,
		PollInterval: time.Hour, // Won't actually run in test
	})

	ctx := context.Background()

	// Due and enabled
	scheduled := domain.NewScheduledTask("s1", "Test", domain.TaskTypeSyncStale, time.Hour)
	scheduled.Enabled = true
	scheduled.NextRun = time.Now().Add(-time.Minute)
	s.CreateScheduledTask(ctx, scheduled)

	// Not yet due
	scheduled2 := domain.NewScheduledTask("s2", "Test2", domain.TaskTypeSyncStale, time.Hour)
	scheduled2.Enabled = true
	scheduled2.NextRun = time.Now().Add(time.Hour)
	s.CreateScheduledTask(ctx, scheduled2)

	// Due but disabled
	scheduled3 := domain.NewScheduledTask("s3", "Test3", domain.TaskTypeSyncStale, time.Hour)
	scheduled3.Enabled = false
	scheduled3.NextRun = time.Now().Add(-time.Minute)
	s.CreateScheduledTask(ctx, scheduled3)

	s.checkAndEnqueue(ctx)

	enqueued := queue.getEnqueuedTasks()
	if len(enqueued) != 1 {
		t.Errorf("expected 1 enqueued task, got %d", len(enqueued))
	}
}

func TestScheduler_CheckAndEnqueue_EnqueueError(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()

	var lastErrorRecorded string
	store.updateLastFn = func(id string, lastError string) error {
		lastErrorRecorded = lastError
		return nil
	}

	queue.enqueueFn = func(task *domain.Task) error {
		return errors.New("queue unavailable")
	}

	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: queue,
	})

	ctx := context.Background()

	scheduled := domain.NewScheduledTask("s1", "Test", domain.TaskTypeSyncStale, time.Hour)
	scheduled.Enabled = true
	scheduled.NextRun = time.Now().Add(-time.Minute)
	s.CreateScheduledTask(ctx, scheduled)

	// Should handle error gracefully
	s.checkAndEnqueue(ctx)

	if lastErrorRecorded != "queue unavailable" {
		t.Errorf("expected last error 'queue unavailable', got %q", lastErrorRecorded)
	}
}

func TestScheduler_CheckAndEnqueue_LockHeldElsewhere(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()
	lock := mocks.NewMockDistributedLock()
	lock.SetLockHeld("scheduler", time.Minute)

	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: queue,
		Lock:      lock,
	})

	ctx := context.Background()

	scheduled := domain.NewScheduledTask("s1", "Test", domain.TaskTypeSyncStale, time.Hour)
	scheduled.Enabled = true
	scheduled.NextRun = time.Now().Add(-time.Minute)
	s.CreateScheduledTask(ctx, scheduled)

	s.checkAndEnqueue(ctx)

	if len(queue.getEnqueuedTasks()) != 0 {
		t.Error("expected no tasks enqueued while lock held by another instance")
	}
}

func TestScheduler_PurgeOldJobs(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()
	jobStore := mocks.NewMockSyncJobStore()

	s := NewScheduler(SchedulerConfig{
		Store:     store,
		TaskQueue: queue,
		JobStore:  jobStore,
	})

	ctx := context.Background()

	old := domain.NewSyncJob("binding-1", "agent-1", domain.SyncJobTypeFull)
	old.MarkRunning()
	old.MarkCompleted()
	old.CreatedAt = time.Now().Add(-60 * 24 * time.Hour)
	if err := jobStore.Create(ctx, old); err != nil {
		t.Fatalf("failed to seed job: %v", err)
	}

	recent := domain.NewSyncJob("binding-2", "agent-2", domain.SyncJobTypeFull)
	recent.MarkRunning()
	recent.MarkCompleted()
	if err := jobStore.Create(ctx, recent); err != nil {
		t.Fatalf("failed to seed job: %v", err)
	}

	s.checkAndEnqueue(ctx)

	if _, err := jobStore.Get(ctx, old.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected old job purged, got %v", err)
	}
	if _, err := jobStore.Get(ctx, recent.ID); err != nil {
		t.Errorf("expected recent job kept, got %v", err)
	}

	// A second cycle inside the same day must not purge again
	s.mu.RLock()
	first := s.lastPurge
	s.mu.RUnlock()

	s.checkAndEnqueue(ctx)

	s.mu.RLock()
	second := s.lastPurge
	s.mu.RUnlock()
	if !first.Equal(second) {
		t.Error("expected purge to run at most once per day")
	}
}

func TestScheduler_ContextCancellation(t *testing.T) {
	store := newMockSchedulerStore()
	queue := newMockSchedulerTaskQueue()

	s := NewScheduler(SchedulerConfig{
		Store:        store,
		TaskQueue:    queue,
		PollInterval: 100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())

	err := s.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	// Give scheduler time to detect cancellation
	time.Sleep(200 * time.Millisecond)

	s.Stop()

	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if running {
		t.Error("expected scheduler to be stopped after context cancellation")
	}
}

// Test that mocks implement the interfaces
func TestMockSchedulerStoreInterface(t *testing.T) {
	var _ driven.SchedulerStore = (*mockSchedulerStore)(nil)
}

func TestMockSchedulerTaskQueueInterface(t *testing.T) {
	var _ driven.TaskQueue = (*mockSchedulerTaskQueue)(nil)
}
