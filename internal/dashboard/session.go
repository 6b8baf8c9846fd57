// Package dashboard holds the per-user analysis state behind the dashboard:
// result history, running statistics and in-flight progress. A Session is
// the only writer of that state; readers get Snapshot copies.
package dashboard

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/sentiment-dashboard/internal/core/domain"
	apperrors "github.com/lueurxax/sentiment-dashboard/internal/core/errors"
	"github.com/lueurxax/sentiment-dashboard/internal/core/ports"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/config"
	"github.com/lueurxax/sentiment-dashboard/internal/process/aggregate"
	"github.com/lueurxax/sentiment-dashboard/internal/process/batch"
)

const defaultSubscriberBuffer = 8

// Runner executes one submission. *batch.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, texts []string, progress batch.ProgressFunc) (batch.Report, error)
}

// Snapshot is an immutable copy of a session's state.
type Snapshot struct {
	History   []domain.SentimentResult `json:"history"`
	Stats     domain.RunningStats      `json:"stats"`
	Badges    []domain.Badge           `json:"badges"`
	Summary   []aggregate.LabelSummary `json:"summary"`
	Progress  domain.Progress          `json:"progress"`
	Analyzing bool                     `json:"analyzing"`
}

// Outcome is what a successful Analyze call produced.
type Outcome struct {
	Results  []domain.SentimentResult
	Failures []batch.Failure
	Stats    domain.RunningStats
	Badges   []domain.Badge
}

// Session is the analysis state of one identity.
type Session struct {
	id     string
	userID string
	store  ports.ProfileStore
	runner Runner
	cfg    config.SessionConfig
	logger *zerolog.Logger

	loadMu sync.Mutex
	loaded bool

	mu        sync.Mutex
	history   []domain.SentimentResult
	stats     domain.RunningStats
	progress  domain.Progress
	analyzing bool
	lastSeen  time.Time
	subs      map[int]chan Snapshot
	nextSub   int
}

func newSession(id, userID string, store ports.ProfileStore, runner Runner, cfg config.SessionConfig, logger *zerolog.Logger) *Session {
	return &Session{
		id:       id,
		userID:   userID,
		store:    store,
		runner:   runner,
		cfg:      cfg,
		logger:   logger,
		loaded:   store == nil,
		lastSeen: time.Now(),
		subs:     make(map[int]chan Snapshot),
	}
}

// ID returns the session key.
func (s *Session) ID() string {
	return s.id
}

// Persistent reports whether runs of this session are written to a store.
func (s *Session) Persistent() bool {
	return s.store != nil
}

// load reads the stored profile once. A failed load is retried on the next access.
func (s *Session) load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if s.loaded {
		return nil
	}

	stats, err := s.store.LoadProfile(ctx, s.userID)
	if err != nil {
		return asPersistence("load profile", err)
	}

	history, err := s.store.ListResults(ctx, s.userID, s.cfg.HistoryLimit, 0)
	if err != nil {
		return asPersistence("load history", err)
	}

	s.mu.Lock()
	s.stats = stats
	s.history = history
	s.mu.Unlock()

	s.loaded = true

	s.logger.Debug().Str("user_id", s.userID).Int("results", len(history)).Msg("loaded profile")

	return nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		History:   slices.Clone(s.history),
		Stats:     s.stats,
		Badges:    aggregate.Badges(s.stats),
		Summary:   aggregate.Summarize(s.history),
		Progress:  s.progress,
		Analyzing: s.analyzing,
	}
}

// Stats returns the running statistics.
func (s *Session) Stats() domain.RunningStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}

// Progress returns the progress of the submission in flight, or zero.
func (s *Session) Progress() (domain.Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.progress, s.analyzing
}

// History returns a copy of the in-memory history, newest first.
func (s *Session) History() []domain.SentimentResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.history)
}

// Results returns a page of history. Pages past the in-memory cap are read
// from the store when the session has one.
func (s *Session) Results(ctx context.Context, limit, offset int) ([]domain.SentimentResult, error) {
	if offset < 0 {
		offset = 0
	}

	s.mu.Lock()
	n := len(s.history)
	truncated := s.cfg.HistoryLimit > 0 && n >= s.cfg.HistoryLimit
	inMemory := limit > 0 && offset+limit <= n

	if s.store == nil || !truncated || inMemory {
		page := pageOf(s.history, limit, offset)
		s.mu.Unlock()

		return page, nil
	}
	s.mu.Unlock()

	results, err := s.store.ListResults(ctx, s.userID, limit, offset)
	if err != nil {
		return nil, asPersistence("list results", err)
	}

	return results, nil
}

func pageOf(history []domain.SentimentResult, limit, offset int) []domain.SentimentResult {
	if offset >= len(history) {
		return []domain.SentimentResult{}
	}

	end := len(history)
	if limit > 0 {
		end = min(offset+limit, len(history))
	}

	return slices.Clone(history[offset:end])
}

// Subscribe returns a channel receiving a snapshot after every state change.
// Slow subscribers miss snapshots rather than blocking the session.
// The returned func unsubscribes and closes the channel.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++

	ch := make(chan Snapshot, defaultSubscriberBuffer)
	s.subs[id] = ch

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			delete(s.subs, id)
			close(ch)

			// the idle clock starts when the last watcher leaves
			s.lastSeen = time.Now()
		})
	}
}

// publishLocked fans the current state out to subscribers. s.mu must be held.
func (s *Session) publishLocked() {
	if len(s.subs) == 0 {
		return
	}

	snap := s.snapshotLocked()

	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// Analyze runs texts through the orchestrator and folds the results into
// the session. Nothing changes unless the run succeeds and, under strict
// persistence, is stored.
func (s *Session) Analyze(ctx context.Context, texts []string) (Outcome, error) {
	if len(texts) == 0 {
		return Outcome{}, apperrors.ErrInvalidInput
	}

	s.mu.Lock()
	if s.analyzing {
		s.mu.Unlock()
		return Outcome{}, apperrors.ErrAnalysisInProgress
	}

	s.analyzing = true
	s.progress = domain.Progress{Total: len(texts)}
	s.lastSeen = time.Now()
	s.publishLocked()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.analyzing = false
		s.progress = domain.Progress{}
		s.lastSeen = time.Now()
		s.publishLocked()
		s.mu.Unlock()
	}()

	report, err := s.runner.Run(ctx, texts, func(p domain.Progress) {
		s.mu.Lock()
		s.progress = p
		s.publishLocked()
		s.mu.Unlock()
	})
	if err != nil {
		return Outcome{}, err
	}

	run := domain.Run{Submitted: len(texts), Results: report.Results}

	s.mu.Lock()
	history, stats := aggregate.MergeRun(s.history, s.stats, run)
	s.mu.Unlock()

	history = aggregate.Cap(history, s.cfg.HistoryLimit)

	if s.store != nil {
		// a finished run is stored even if the caller has gone away
		stored, err := s.store.SaveRun(context.WithoutCancel(ctx), s.userID, run)

		switch {
		case err == nil:
			// the store's counters include runs saved by other replicas
			stats = stored
		case s.cfg.PersistenceStrict:
			return Outcome{}, asPersistence("save run", err)
		default:
			s.logger.Error().Err(asPersistence("save run", err)).Str("user_id", s.userID).Msg("failed to persist run, keeping it in memory")
		}
	}

	s.mu.Lock()
	s.history = history
	s.stats = stats
	s.mu.Unlock()

	return Outcome{
		Results:  report.Results,
		Failures: report.Failures,
		Stats:    stats,
		Badges:   aggregate.Badges(stats),
	}, nil
}

// busy reports whether the session must not be evicted: a run is in flight
// or someone is watching its event stream.
func (s *Session) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.analyzing || len(s.subs) > 0
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSeen
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

// asPersistence tags store errors that are not already persistence errors.
func asPersistence(op string, err error) error {
	if apperrors.Is(err, apperrors.ErrPersistence) {
		return err
	}

	return apperrors.Persistence(op, err)
}
