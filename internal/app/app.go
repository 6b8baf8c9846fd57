// Package app wires the dashboard's dependencies together.
//
// The App type builds the classifier, orchestrator, session manager and
// HTTP server from configuration. A database is optional: without one,
// authenticated profiles live in process memory and usage reporting is off.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/sentiment-dashboard/internal/api"
	"github.com/lueurxax/sentiment-dashboard/internal/core/llm"
	"github.com/lueurxax/sentiment-dashboard/internal/core/ports"
	"github.com/lueurxax/sentiment-dashboard/internal/dashboard"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/config"
	"github.com/lueurxax/sentiment-dashboard/internal/platform/observability"
	"github.com/lueurxax/sentiment-dashboard/internal/process/batch"
	db "github.com/lueurxax/sentiment-dashboard/internal/storage"
)

const (
	janitorInterval = 5 * time.Minute
	logFieldPort    = "port"
)

// App holds the application dependencies.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates a new App. database may be nil.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// NewClassifier builds the gateway adapter, or the mock when no key is set.
func (a *App) NewClassifier() llm.Classifier {
	var usage llm.UsageStore
	if a.database != nil {
		usage = a.database
	}

	return llm.New(a.cfg.LLMCfg(), usage, a.logger)
}

// NewOrchestrator builds the batch orchestrator over classifier.
func (a *App) NewOrchestrator(classifier llm.Classifier) *batch.Orchestrator {
	return batch.New(a.cfg.BatchCfg(), classifier, a.logger)
}

func (a *App) profileStore() ports.ProfileStore {
	if a.database != nil {
		return a.database
	}

	a.logger.Warn().Msg("POSTGRES_DSN not set, profiles are kept in memory")

	return db.NewMemoryStore()
}

func (a *App) tokenService() *api.AuthTokenService {
	if a.cfg.AuthSigningSecret == "" {
		a.logger.Warn().Msg("AUTH_SIGNING_SECRET not set, only anonymous sessions are available")
		return nil
	}

	return api.NewAuthTokenService(a.cfg.AuthSigningSecret, a.cfg.AuthTokenTTL)
}

// RunServer serves the dashboard API until ctx is cancelled.
func (a *App) RunServer(ctx context.Context) error {
	a.logger.Info().Msg("Starting dashboard server")

	orchestrator := a.NewOrchestrator(a.NewClassifier())
	sessions := dashboard.NewManager(orchestrator, a.profileStore(), a.cfg.SessionCfg(), a.logger)

	go func() {
		if err := sessions.RunJanitor(ctx, janitorInterval); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().Err(err).Msg("session janitor stopped")
		}
	}()

	var (
		usage  api.UsageReader
		pinger observability.Pinger
	)

	if a.database != nil {
		usage = a.database
		pinger = a.database
	}

	handler := api.NewHandler(a.cfg, sessions, a.tokenService(), usage, a.logger)
	srv := observability.NewServerWithAPI(pinger, a.cfg.HTTPPort, handler, a.logger)

	a.logger.Info().
		Int(logFieldPort, a.cfg.HTTPPort).
		Int("chunk_size", orchestrator.ChunkSize()).
		Bool("persistent", a.database != nil).
		Msg("Dashboard API enabled")

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server start: %w", err)
	}

	return nil
}
