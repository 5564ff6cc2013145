// Package quota tracks hosting API rate limits per resource class and
// schedules outbound requests to avoid exhaustion.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agenthub-labs/agenthub-core/internal/core/domain"
	"github.com/agenthub-labs/agenthub-core/internal/core/ports/driven"
)

const (
	warningFraction  = 0.10
	criticalFraction = 0.05
)

// AlertHandler reacts to a quota threshold crossing. Handler panics are
// recovered and logged, never propagated.
type AlertHandler func(alert domain.QuotaAlert)

// Manager caches per-class quota state refreshed from response headers and
// from the dedicated rate-limit endpoint. It is the in-process source of
// truth for admission decisions.
type Manager struct {
	mu        sync.RWMutex
	snapshots map[domain.ResourceClass]domain.QuotaSnapshot
	handlers  []AlertHandler

	store  driven.QuotaStore
	logger *slog.Logger
}

// Compile-time interface compliance check
var _ driven.QuotaRecorder = (*Manager)(nil)

// NewManager creates a quota manager. The store may be nil when snapshot
// persistence is not wanted.
func NewManager(store driven.QuotaStore, logger *slog.Logger) *Manager {
	return &Manager{
		snapshots: make(map[domain.ResourceClass]domain.QuotaSnapshot),
		store:     store,
		logger:    logger,
	}
}

// OnAlert registers a handler invoked synchronously on threshold crossings.
func (m *Manager) OnAlert(handler AlertHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler)
}

// RecordHeaders updates the named class from response headers. Only the
// billed class changes; other classes keep their own state.
func (m *Manager) RecordHeaders(class domain.ResourceClass, limit, remaining int, reset time.Time) {
	m.record(domain.QuotaSnapshot{
		Class:     class,
		Limit:     limit,
		Remaining: remaining,
		Reset:     reset,
		UpdatedAt: time.Now(),
	})
}

// RefreshAll replaces the cache from the rate-limit endpoint's per-class
// answer and persists the snapshots when a store is configured.
func (m *Manager) RefreshAll(ctx context.Context, client driven.HostingClient) error {
	snapshots, err := client.GetRateLimit(ctx)
	if err != nil {
		return fmt.Errorf("refresh quota: %w", err)
	}
	for _, snapshot := range snapshots {
		m.record(snapshot)
		if m.store != nil {
			if err := m.store.SaveSnapshot(ctx, &snapshot); err != nil {
				m.logger.Warn("persist quota snapshot failed", "class", snapshot.Class, "error", err)
			}
		}
	}
	return nil
}

func (m *Manager) record(snapshot domain.QuotaSnapshot) {
	m.mu.Lock()
	previous, hadPrevious := m.snapshots[snapshot.Class]
	m.snapshots[snapshot.Class] = snapshot
	handlers := make([]AlertHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	alert, ok := classify(previous, hadPrevious, snapshot)
	if !ok {
		return
	}
	for _, handler := range handlers {
		m.invoke(handler, alert)
	}
}

func (m *Manager) invoke(handler AlertHandler, alert domain.QuotaAlert) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("quota alert handler panicked", "class", alert.Class, "panic", r)
		}
	}()
	handler(alert)
}

// classify decides whether an update crossed an alert threshold. Exhausted
// fires exactly once per transition to zero remaining; warning/critical fire
// when the update crosses into the band from above.
func classify(previous domain.QuotaSnapshot, hadPrevious bool, current domain.QuotaSnapshot) (domain.QuotaAlert, bool) {
	alert := domain.QuotaAlert{
		Class:     current.Class,
		Limit:     current.Limit,
		Remaining: current.Remaining,
		Reset:     current.Reset,
	}

	if current.Exhausted() {
		if hadPrevious && previous.Exhausted() {
			return alert, false
		}
		alert.Level = domain.QuotaAlertExhausted
		return alert, true
	}

	fraction := current.Fraction()
	prevFraction := 1.0
	if hadPrevious {
		prevFraction = previous.Fraction()
	}
	switch {
	case fraction <= criticalFraction && prevFraction > criticalFraction:
		alert.Level = domain.QuotaAlertCritical
		return alert, true
	case fraction <= warningFraction && prevFraction > warningFraction:
		alert.Level = domain.QuotaAlertWarning
		return alert, true
	}
	return alert, false
}

// Snapshot returns the cached state for a class.
func (m *Manager) Snapshot(class domain.ResourceClass) (domain.QuotaSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot, ok := m.snapshots[class]
	return snapshot, ok
}

// Snapshots returns the cached state for every known class.
func (m *Manager) Snapshots() []domain.QuotaSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]domain.QuotaSnapshot, 0, len(m.snapshots))
	for _, class := range domain.ResourceClasses {
		if snapshot, ok := m.snapshots[class]; ok {
			result = append(result, snapshot)
		}
	}
	return result
}

// CanMakeRequest reports whether a request against the class can go out now.
// Unknown classes are allowed; the first response will populate the cache.
func (m *Manager) CanMakeRequest(class domain.ResourceClass) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot, ok := m.snapshots[class]
	if !ok {
		return true
	}
	if !snapshot.Exhausted() {
		return true
	}
	return time.Now().After(snapshot.Reset)
}

// GetWaitTime returns how long a caller should wait before a request against
// the class is admissible. Zero when a request can go out now.
func (m *Manager) GetWaitTime(class domain.ResourceClass) time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot, ok := m.snapshots[class]
	if !ok || !snapshot.Exhausted() {
		return 0
	}
	wait := time.Until(snapshot.Reset)
	if wait < 0 {
		return 0
	}
	return wait
}

// PlanBulkRequests spreads n requests evenly across the remaining
// time-to-reset window. When remaining quota cannot cover the batch it
// returns the wait time until reset and no schedule.
func (m *Manager) PlanBulkRequests(class domain.ResourceClass, n int) (interval time.Duration, wait time.Duration, err error) {
	if n <= 0 {
		return 0, 0, fmt.Errorf("plan bulk requests: n must be positive")
	}

	m.mu.RLock()
	snapshot, ok := m.snapshots[class]
	m.mu.RUnlock()
	if !ok {
		return 0, 0, nil
	}

	if snapshot.Remaining < n {
		wait := time.Until(snapshot.Reset)
		if wait < 0 {
			wait = 0
		}
		return 0, wait, fmt.Errorf("plan bulk requests: %w: need %d, have %d in class %s",
			domain.ErrQuotaExhausted, n, snapshot.Remaining, class)
	}

	window := time.Until(snapshot.Reset)
	if window <= 0 {
		return 0, 0, nil
	}
	return window / time.Duration(n), 0, nil
}

// GetOptimalRequestTime returns when the i-th request of an n-request batch
// should be issued to spread the batch across the reset window.
func (m *Manager) GetOptimalRequestTime(class domain.ResourceClass, i, n int) time.Time {
	now := time.Now()
	interval, _, err := m.PlanBulkRequests(class, n)
	if err != nil || interval <= 0 {
		return now
	}
	return now.Add(time.Duration(i) * interval)
}
