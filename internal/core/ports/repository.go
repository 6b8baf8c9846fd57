// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing business logic to remain independent of infrastructure concerns.
package ports

import (
	"context"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
)

// ProfileReader loads what a returning user sees when a session starts.
type ProfileReader interface {
	// LoadProfile returns the stored counters. A user with no profile yet gets zero stats.
	LoadProfile(ctx context.Context, userID string) (domain.RunningStats, error)
	// ListResults returns stored results newest first, in history order.
	ListResults(ctx context.Context, userID string, limit, offset int) ([]domain.SentimentResult, error)
}

// ProfileWriter records a completed run.
type ProfileWriter interface {
	// SaveRun stores the run's results and adds the run to the stored
	// counters atomically, returning the counters after the write. Concurrent
	// writers for the same user never overwrite each other's runs.
	SaveRun(ctx context.Context, userID string, run domain.Run) (domain.RunningStats, error)
}

// ProfileStore combines profile read and write operations.
type ProfileStore interface {
	ProfileReader
	ProfileWriter
}
