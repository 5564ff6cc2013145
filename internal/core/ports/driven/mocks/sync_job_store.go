package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

// MockSyncJobStore is a mock implementation of SyncJobStore for testing
type MockSyncJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.SyncJob
	logs map[string][]*domain.JobLog
}

// NewMockSyncJobStore creates a new MockSyncJobStore
func NewMockSyncJobStore() *MockSyncJobStore {
	return &MockSyncJobStore{
		jobs: make(map[string]*domain.SyncJob),
		logs: make(map[string][]*domain.JobLog),
	}
}

func (m *MockSyncJobStore) Create(ctx context.Context, job *domain.SyncJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *MockSyncJobStore) Update(ctx context.Context, job *domain.SyncJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return domain.ErrNotFound
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *MockSyncJobStore) Get(ctx context.Context, id string) (*domain.SyncJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (m *MockSyncJobStore) ListByBinding(ctx context.Context, bindingID string, limit int) ([]*domain.SyncJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.SyncJob
	for _, job := range m.jobs {
		if job.BindingID == bindingID {
			result = append(result, job)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockSyncJobStore) AppendLog(ctx context.Context, log *domain.JobLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[log.JobID] = append(m.logs[log.JobID], log)
	return nil
}

func (m *MockSyncJobStore) ListLogs(ctx context.Context, jobID string) ([]*domain.JobLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.logs[jobID], nil
}

func (m *MockSyncJobStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	purged := 0
	for id, job := range m.jobs {
		if job.Status != domain.SyncJobStatusCompleted && job.Status != domain.SyncJobStatusFailed {
			continue
		}
		if job.CreatedAt.Before(cutoff) {
			delete(m.jobs, id)
			delete(m.logs, id)
			purged++
		}
	}
	return purged, nil
}
