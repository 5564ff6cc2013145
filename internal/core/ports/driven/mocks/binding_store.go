package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

// MockBindingStore is a mock implementation of BindingStore for testing
type MockBindingStore struct {
	mu       sync.RWMutex
	bindings map[string]*domain.SyncBinding
	byAgent  map[string]*domain.SyncBinding
}

// NewMockBindingStore creates a new MockBindingStore
func NewMockBindingStore() *MockBindingStore {
	return &MockBindingStore{
		bindings: make(map[string]*domain.SyncBinding),
		byAgent:  make(map[string]*domain.SyncBinding),
	}
}

func (m *MockBindingStore) Create(ctx context.Context, binding *domain.SyncBinding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byAgent[binding.AgentID]; ok {
		return domain.ErrAlreadyExists
	}
	m.bindings[binding.ID] = binding
	m.byAgent[binding.AgentID] = binding
	return nil
}

func (m *MockBindingStore) Get(ctx context.Context, id string) (*domain.SyncBinding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	binding, ok := m.bindings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return binding, nil
}

func (m *MockBindingStore) GetByAgent(ctx context.Context, agentID string) (*domain.SyncBinding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	binding, ok := m.byAgent[agentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return binding, nil
}

func (m *MockBindingStore) ListByRepo(ctx context.Context, owner, repo string) ([]*domain.SyncBinding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.SyncBinding
	for _, binding := range m.bindings {
		if binding.RepoOwner == owner && binding.RepoName == repo {
			result = append(result, binding)
		}
	}
	return result, nil
}

func (m *MockBindingStore) Update(ctx context.Context, binding *domain.SyncBinding) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bindings[binding.ID]; !ok {
		return domain.ErrNotFound
	}
	m.bindings[binding.ID] = binding
	m.byAgent[binding.AgentID] = binding
	return nil
}

func (m *MockBindingStore) ListEnabled(ctx context.Context) ([]*domain.SyncBinding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.SyncBinding
	for _, binding := range m.bindings {
		if binding.Enabled {
			result = append(result, binding)
		}
	}
	return result, nil
}

func (m *MockBindingStore) ListStale(ctx context.Context, olderThan time.Time) ([]*domain.SyncBinding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.SyncBinding
	for _, binding := range m.bindings {
		if !binding.Enabled {
			continue
		}
		if binding.LastSyncAt == nil || binding.LastSyncAt.Before(olderThan) {
			result = append(result, binding)
		}
	}
	return result, nil
}
