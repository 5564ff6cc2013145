package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
)

// MockAgentStore is a mock implementation of AgentStore for testing
type MockAgentStore struct {
	mu     sync.RWMutex
	agents map[string]*domain.Agent
	bySlug map[string]*domain.Agent
}

// NewMockAgentStore creates a new MockAgentStore
func NewMockAgentStore() *MockAgentStore {
	return &MockAgentStore{
		agents: make(map[string]*domain.Agent),
		bySlug: make(map[string]*domain.Agent),
	}
}

func (m *MockAgentStore) Create(ctx context.Context, agent *domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bySlug[agent.Slug]; ok {
		return domain.ErrAlreadyExists
	}
	m.agents[agent.ID] = agent
	m.bySlug[agent.Slug] = agent
	return nil
}

func (m *MockAgentStore) Get(ctx context.Context, id string) (*domain.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agent, ok := m.agents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return agent, nil
}

func (m *MockAgentStore) GetBySlug(ctx context.Context, slug string) (*domain.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agent, ok := m.bySlug[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return agent, nil
}

func (m *MockAgentStore) Update(ctx context.Context, agent *domain.Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.agents[agent.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if existing.Slug != agent.Slug {
		delete(m.bySlug, existing.Slug)
	}
	m.agents[agent.ID] = agent
	m.bySlug[agent.Slug] = agent
	return nil
}

func (m *MockAgentStore) ListByRepo(ctx context.Context, owner, repo string) ([]*domain.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Agent
	for _, agent := range m.agents {
		if agent.RepoOwner == owner && agent.RepoName == repo {
			result = append(result, agent)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Slug < result[j].Slug })
	return result, nil
}

func (m *MockAgentStore) List(ctx context.Context, limit, offset int) ([]*domain.Agent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*domain.Agent
	for _, agent := range m.agents {
		all = append(all, agent)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Slug < all[j].Slug })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *MockAgentStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.agents), nil
}
