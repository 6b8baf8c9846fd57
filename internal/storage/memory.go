package db

import (
	"context"
	"slices"
	"sync"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	"github.com/lueurxax/sentiment-dashboard/internal/process/aggregate"
)

type memoryProfile struct {
	stats   domain.RunningStats
	history []domain.SentimentResult
}

// MemoryStore keeps profiles in process memory. It is used when no database
// is configured; everything is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*memoryProfile
}

// NewMemoryStore creates an empty in-memory profile store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*memoryProfile)}
}

// LoadProfile returns the stored counters for userID, or zero stats.
func (m *MemoryStore) LoadProfile(_ context.Context, userID string) (domain.RunningStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if p, ok := m.profiles[userID]; ok {
		return p.stats, nil
	}

	return domain.RunningStats{}, nil
}

// ListResults returns a page of userID's history, newest first.
func (m *MemoryStore) ListResults(_ context.Context, userID string, limit, offset int) ([]domain.SentimentResult, error) {
	limit, offset = clampPage(limit, offset)

	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok || offset >= len(p.history) {
		return []domain.SentimentResult{}, nil
	}

	end := min(offset+limit, len(p.history))

	return slices.Clone(p.history[offset:end]), nil
}

// SaveRun prepends the run's results to userID's history and adds the run to
// the counters.
func (m *MemoryStore) SaveRun(_ context.Context, userID string, run domain.Run) (domain.RunningStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		p = &memoryProfile{}
		m.profiles[userID] = p
	}

	p.stats = aggregate.Fold(p.stats, run)
	p.history = append(slices.Clone(run.Results), p.history...)

	return p.stats, nil
}
