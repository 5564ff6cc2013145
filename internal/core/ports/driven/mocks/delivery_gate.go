package mocks

import (
	"context"
	"sync"
	"time"
)

// MockDeliveryGate is a mock implementation of DeliveryGate for testing
type MockDeliveryGate struct {
	mu   sync.Mutex
	seen map[string]time.Time

	// Err, when set, is returned by every call
	Err error

	now func() time.Time
}

// NewMockDeliveryGate creates a new MockDeliveryGate
func NewMockDeliveryGate() *MockDeliveryGate {
	return &MockDeliveryGate{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// SetClock overrides the gate's clock for testing window expiry
func (m *MockDeliveryGate) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MockDeliveryGate) ShouldProcess(ctx context.Context, repoFullName, eventType string, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	key := repoFullName + "|" + eventType
	now := m.now()
	if last, ok := m.seen[key]; ok && now.Sub(last) < window {
		return false, nil
	}
	m.seen[key] = now
	return true, nil
}
