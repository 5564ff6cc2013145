package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driving"
	"github.com/agenthub-labs/agenthub-core/internal/core/services"
)

// Importer covers the import operations the worker dispatches to.
type Importer interface {
	ImportFromURL(ctx context.Context, req driving.ImportRequest) (*domain.ImportResult, error)
}

// Syncer covers the sync operations the worker dispatches to.
type Syncer interface {
	SyncBinding(ctx context.Context, bindingID string, force bool) (*domain.SyncResult, error)
	SyncStale(ctx context.Context) ([]*domain.SyncResult, error)
}

// Worker processes tasks from the task queue.
// It dispatches import and sync tasks to the core services.
type Worker struct {
	taskQueue driven.TaskQueue
	importer  Importer
	syncer    Syncer
	scheduler *services.Scheduler
	logger    *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue      driven.TaskQueue
	Importer       Importer
	Syncer         Syncer
	Scheduler      *services.Scheduler
	Logger         *slog.Logger
	Concurrency    int // Number of concurrent task processors
	DequeueTimeout int // Seconds to wait for a task before checking again
}

// NewWorker creates a new task worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		importer:       cfg.Importer,
		syncer:         cfg.Syncer,
		scheduler:      cfg.Scheduler,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	// Start the scheduler if provided
	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			w.logger.Error("failed to start scheduler", "error", err)
		}
	}

	// Start worker goroutines
	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	// Wait for all workers to finish
	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	// Stop the scheduler
	if w.scheduler != nil {
		w.scheduler.Stop()
	}

	// Wait for workers to finish
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		// Dequeue a task with timeout
		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue task", "error", err)
			time.Sleep(time.Second) // Back off on error
			continue
		}

		if task == nil {
			// No task available, continue
			continue
		}

		// Process the task
		w.processTask(ctx, task, logger)
	}
}

// processTask processes a single task.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type)
	logger.Info("processing task")

	startTime := time.Now()
	var err error

	switch task.Type {
	case domain.TaskTypeImportRepository:
		err = w.handleImportRepository(ctx, task)
	case domain.TaskTypeSyncBinding:
		err = w.handleSyncBinding(ctx, task)
	case domain.TaskTypeSyncStale:
		err = w.handleSyncStale(ctx, task)
	default:
		err = fmt.Errorf("unknown task type: %s", task.Type)
	}

	duration := time.Since(startTime)

	if err != nil {
		logger.Error("task failed",
			"duration", duration,
			"error", err,
		)

		// Nack the task so it can be retried
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", duration)

	// Ack the task
	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

// handleImportRepository handles an import_repository task.
func (w *Worker) handleImportRepository(ctx context.Context, task *domain.Task) error {
	repoURL := task.RepoURL()
	if repoURL == "" {
		return fmt.Errorf("repo_url not found in task payload")
	}

	result, err := w.importer.ImportFromURL(ctx, driving.ImportRequest{RepoURL: repoURL})
	if err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("import failed: %s", strings.Join(result.Errors, "; "))
	}

	return nil
}

// handleSyncBinding handles a sync_binding task.
func (w *Worker) handleSyncBinding(ctx context.Context, task *domain.Task) error {
	bindingID := task.BindingID()
	if bindingID == "" {
		return fmt.Errorf("binding_id not found in task payload")
	}

	result, err := w.syncer.SyncBinding(ctx, bindingID, false)
	if err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("sync failed: %s", strings.Join(result.Errors, "; "))
	}

	return nil
}

// handleSyncStale handles a sync_stale task.
func (w *Worker) handleSyncStale(ctx context.Context, task *domain.Task) error {
	results, err := w.syncer.SyncStale(ctx)
	if err != nil {
		return err
	}

	// Check if any sync failed
	var failures []string
	for _, result := range results {
		if !result.Success {
			failures = append(failures, strings.Join(result.Errors, "; "))
		}
	}

	if len(failures) > 0 {
		w.logger.Warn("some syncs failed",
			"total", len(results),
			"failed", len(failures),
		)
		// The task is still successful if some bindings synced.
		// Individual failures are logged and recorded on their jobs.
	}

	return nil
}

// Health returns health status of the worker.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	// Check queue health
	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
