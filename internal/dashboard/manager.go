package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/sentiment-dashboard/internal/core/ports"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/config"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/observability"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/worker"
)

const (
	keyPrefixUser      = "user:"
	keyPrefixAnonymous = "anon:"
)

// Identity names the owner of a session. Anonymous identities have no
// UserID and their sessions are never persisted.
type Identity struct {
	Key    string
	UserID string
}

// UserIdentity returns the identity of an authenticated user.
func UserIdentity(userID string) Identity {
	return Identity{Key: keyPrefixUser + userID, UserID: userID}
}

// AnonymousIdentity returns the identity of an anonymous browser session.
func AnonymousIdentity(sessionID string) Identity {
	return Identity{Key: keyPrefixAnonymous + sessionID}
}

// Anonymous reports whether the identity has no user behind it.
func (i Identity) Anonymous() bool {
	return i.UserID == ""
}

// Manager maps identities to sessions.
type Manager struct {
	runner Runner
	store  ports.ProfileStore
	cfg    config.SessionConfig
	logger *zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager. store may be nil, in which case
// every session lives in memory only.
func NewManager(runner Runner, store ports.ProfileStore, cfg config.SessionConfig, logger *zerolog.Logger) *Manager {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	return &Manager{
		runner:   runner,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Session returns the session for id, creating it on first access. The
// first access of an authenticated identity loads its stored profile.
func (m *Manager) Session(ctx context.Context, id Identity) (*Session, error) {
	m.mu.Lock()

	s, ok := m.sessions[id.Key]
	if !ok {
		var store ports.ProfileStore
		if !id.Anonymous() {
			store = m.store
		}

		s = newSession(id.Key, id.UserID, store, m.runner, m.cfg, m.logger)
		m.sessions[id.Key] = s

		observability.ActiveSessions.Set(float64(len(m.sessions)))
	}

	m.mu.Unlock()

	s.touch()

	if err := s.load(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

// Evict drops sessions idle for longer than ttl. Sessions with a run in
// flight or a live event subscriber are kept. It returns the number of
// sessions removed.
func (m *Manager) Evict(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}

	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0

	for key, s := range m.sessions {
		if s.busy() || s.idleSince().After(cutoff) {
			continue
		}

		delete(m.sessions, key)
		removed++
	}

	observability.ActiveSessions.Set(float64(len(m.sessions)))

	return removed
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) error {
	if m.cfg.IdleTTL <= 0 || interval <= 0 {
		return nil
	}

	return worker.TickerLoop(ctx, worker.TickerConfig{
		Name:     "session-janitor",
		Interval: interval,
		Logger:   m.logger,
		OnTick: func(context.Context) {
			if n := m.Evict(m.cfg.IdleTTL); n > 0 {
				m.logger.Info().Int("evicted", n).Int("active", m.Len()).Msg("evicted idle sessions")
			}
		},
	})
}
