// Package app wires configuration, stores and REST clients shared by the
// command-line binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vanhoc/mocktest/internal/archive"
	"github.com/vanhoc/mocktest/internal/auth"
	"github.com/vanhoc/mocktest/internal/config"
	"github.com/vanhoc/mocktest/internal/database"
	"github.com/vanhoc/mocktest/internal/draft"
	"github.com/vanhoc/mocktest/internal/httpclient"
	"github.com/vanhoc/mocktest/internal/repository"
	"github.com/vanhoc/mocktest/internal/service"
	"github.com/vanhoc/mocktest/internal/worker"
)

// App holds the long-lived dependencies of a binary.
type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Tokens   *auth.Provider
	Auth     *auth.Client
	Attempts *repository.AttemptRepository
	Drafts   draft.Store
	Archive  *archive.Store
	Recorder *worker.ArchiveWorker

	rdb          *redis.Client
	pool         *pgxpool.Pool
	workerCancel context.CancelFunc
}

// New connects the configured stores and builds the REST clients. The
// archive is optional; a configured but unreachable archive is logged and
// skipped.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	if cfg.TokenStore == config.StoreRedis || cfg.DraftStore == config.StoreRedis {
		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.rdb = rdb
	}

	var tokens auth.TokenStore
	switch cfg.TokenStore {
	case config.StoreRedis:
		tokens = auth.NewRedisStore(a.rdb, cfg.Profile)
	case config.StoreMemory:
		tokens = auth.NewMemoryStore("")
	case config.StoreFile:
		tokens = auth.NewFileStore(cfg.TokenFile)
	default:
		a.Close()
		return nil, fmt.Errorf("unknown TOKEN_STORE %q", cfg.TokenStore)
	}
	a.Tokens = auth.NewProvider(tokens)

	switch cfg.DraftStore {
	case config.StoreRedis:
		a.Drafts = draft.NewRedisStore(a.rdb)
	default:
		a.Drafts = draft.NewMemoryStore()
	}

	authHTTP := httpclient.New(cfg.AuthAPIURL, cfg.RequestTimeout, a.Tokens, log)
	testHTTP := httpclient.New(cfg.TestAPIURL, cfg.RequestTimeout, a.Tokens, log)
	a.Auth = auth.NewClient(authHTTP, tokens, log)
	a.Attempts = repository.NewAttemptRepository(testHTTP)

	if cfg.ArchiveDatabaseURL != "" {
		pool, err := database.NewArchivePool(ctx, cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("Result archive disabled")
		} else {
			a.pool = pool
			a.Archive = archive.NewStore(pool)
		}
	}

	return a, nil
}

// StartArchive runs the archive worker until Close. It is a no-op without
// an archive database.
func (a *App) StartArchive() {
	if a.Archive == nil || a.Recorder != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.workerCancel = cancel
	a.Recorder = worker.NewArchiveWorker(a.Archive, a.Log)
	go a.Recorder.Start(ctx)
}

// NewSession builds an attempt session over the app's stores.
func (a *App) NewSession(nav service.Navigator, onChange func(service.View)) *service.Session {
	cfg := service.SessionConfig{
		Repo:            a.Attempts,
		Auth:            a.Tokens,
		Queue:           worker.NewAnswerQueue(a.Log),
		Drafts:          a.Drafts,
		Nav:             nav,
		OnChange:        onChange,
		Log:             a.Log,
		TickInterval:    a.Config.TickInterval,
		MutationTimeout: a.Config.RequestTimeout,
	}
	if a.Recorder != nil {
		cfg.Recorder = a.Recorder
	}
	return service.NewSession(cfg)
}

// NewReviewService builds the result view loader.
func (a *App) NewReviewService() *service.ReviewService {
	return service.NewReviewService(a.Attempts, a.Log)
}

// Close flushes the archive worker and releases connections.
func (a *App) Close() {
	if a.workerCancel != nil {
		a.workerCancel()
		select {
		case <-a.Recorder.Done():
		case <-time.After(5 * time.Second):
			a.Log.Warn().Msg("Timed out flushing the result archive")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}
