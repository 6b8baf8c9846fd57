package mocks

import (
	"context"
	"slices"
	"sync"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	"github.com/lueurxax/sentiment-dashboard/internal/process/aggregate"
)

// ProfileStore is a thread-safe in-memory implementation of ports.ProfileStore.
type ProfileStore struct {
	mu       sync.RWMutex
	stats    map[string]domain.RunningStats
	history  map[string][]domain.SentimentResult
	saveRuns int
	loads    int

	// LoadProfileFn allows overriding LoadProfile behavior.
	LoadProfileFn func(ctx context.Context, userID string) (domain.RunningStats, error)

	// ListResultsFn allows overriding ListResults behavior.
	ListResultsFn func(ctx context.Context, userID string, limit, offset int) ([]domain.SentimentResult, error)

	// SaveRunFn allows overriding SaveRun behavior. The run is not stored when it returns an error.
	SaveRunFn func(ctx context.Context, userID string, run domain.Run) error
}

// NewProfileStore creates a new mock profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		stats:   make(map[string]domain.RunningStats),
		history: make(map[string][]domain.SentimentResult),
	}
}

// Seed sets the stored profile for userID directly.
func (s *ProfileStore) Seed(userID string, stats domain.RunningStats, history []domain.SentimentResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats[userID] = stats
	s.history[userID] = slices.Clone(history)
}

// LoadProfile returns the stored counters.
func (s *ProfileStore) LoadProfile(ctx context.Context, userID string) (domain.RunningStats, error) {
	s.mu.Lock()
	s.loads++
	s.mu.Unlock()

	if s.LoadProfileFn != nil {
		return s.LoadProfileFn(ctx, userID)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.stats[userID], nil
}

// ListResults returns a page of the stored history.
func (s *ProfileStore) ListResults(ctx context.Context, userID string, limit, offset int) ([]domain.SentimentResult, error) {
	if s.ListResultsFn != nil {
		return s.ListResultsFn(ctx, userID, limit, offset)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[userID]
	if offset >= len(h) {
		return []domain.SentimentResult{}, nil
	}

	end := len(h)
	if limit > 0 {
		end = min(offset+limit, len(h))
	}

	return slices.Clone(h[offset:end]), nil
}

// SaveRun stores the run unless SaveRunFn fails it.
func (s *ProfileStore) SaveRun(ctx context.Context, userID string, run domain.Run) (domain.RunningStats, error) {
	s.mu.Lock()
	s.saveRuns++
	s.mu.Unlock()

	if s.SaveRunFn != nil {
		if err := s.SaveRunFn(ctx, userID, run); err != nil {
			return domain.RunningStats{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := aggregate.Fold(s.stats[userID], run)
	s.stats[userID] = stats
	s.history[userID] = append(slices.Clone(run.Results), s.history[userID]...)

	return stats, nil
}

// Stats returns the stored counters for userID.
func (s *ProfileStore) Stats(userID string) domain.RunningStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.stats[userID]
}

// SaveRunCalls reports how many times SaveRun was called.
func (s *ProfileStore) SaveRunCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.saveRuns
}

// LoadProfileCalls reports how many times LoadProfile was called.
func (s *ProfileStore) LoadProfileCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loads
}
