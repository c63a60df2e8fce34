package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/allanhy/tallysight-sub000/external/espn"
	"github.com/allanhy/tallysight-sub000/external/identity"
	"github.com/allanhy/tallysight-sub000/internal/config"
	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	"github.com/allanhy/tallysight-sub000/internal/domain/syncrun"
	"github.com/allanhy/tallysight-sub000/internal/infrastructure/lock"
	"github.com/allanhy/tallysight-sub000/internal/infrastructure/repository/memory"
	"github.com/allanhy/tallysight-sub000/internal/infrastructure/repository/postgres"
	"github.com/allanhy/tallysight-sub000/internal/interfaces/httpapi"
	"github.com/allanhy/tallysight-sub000/internal/interfaces/scheduler"
	"github.com/allanhy/tallysight-sub000/internal/observability"
	"github.com/allanhy/tallysight-sub000/internal/platform/logging"
	"github.com/allanhy/tallysight-sub000/internal/usecase"
)

// Engine is the synchronization core shared by the API server and the sync command.
type Engine struct {
	Sync       *usecase.GameSyncService
	Scoreboard *usecase.ScoreboardService
	Metrics    *observability.Metrics
	ESPN       *espn.Client

	closers []func(context.Context) error
}

func NewEngine(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.Default()
	}
	engine := &Engine{Metrics: observability.NewMetrics()}

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var (
		gameRepo game.Repository
		runRepo  syncrun.Repository
	)
	if db != nil {
		engine.closers = append(engine.closers, func(context.Context) error { return db.Close() })
		gameRepo = postgres.NewGameRepository(db)
		runRepo = postgres.NewSyncRunRepository(db)
	} else {
		logger.Warn("DB_URL empty, using in-memory game repository")
		gameRepo = memory.NewGameRepository(memory.SeedGames())
		runRepo = memory.NewSyncRunRepository()
	}

	var locker usecase.RunLocker = lock.NewLocalLocker()
	if cfg.RedisURL != "" {
		client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			_ = engine.Close(ctx)
			return nil, err
		}
		engine.closers = append(engine.closers, func(context.Context) error { return client.Close() })
		locker = lock.NewRedisLocker(client, "")
	}

	engine.ESPN = espn.NewClient(espn.ClientConfig{
		BaseURL:        cfg.ESPNBaseURL,
		Timeout:        cfg.ESPNTimeout,
		Logger:         logger,
		CircuitBreaker: cfg.ESPNCircuit,
	})
	engine.Metrics.TrackBreaker("espn", engine.ESPN.Breaker())

	engine.Sync = usecase.NewGameSyncService(
		engine.ESPN,
		gameRepo,
		usecase.DefaultAliasTable(),
		usecase.GameSyncConfig{
			DefaultSport:   cfg.SyncDefaultSport,
			Sports:         cfg.SyncSports,
			CandidateLimit: cfg.SyncCandidateLimit,
			MaxConcurrency: cfg.SyncMaxConcurrency,
			VerifyWrites:   cfg.SyncVerifyWrites,
			LockTTL:        cfg.SyncLockTTL,
		},
		logger.Named("sync"),
		usecase.WithSyncRunRepository(runRepo),
		usecase.WithSyncMetrics(engine.Metrics),
		usecase.WithRunLocker(locker),
	)
	engine.Scoreboard = usecase.NewScoreboardService(engine.ESPN, cfg.ScoreboardCacheTTL, cfg.SyncDefaultSport)

	return engine, nil
}

// Close releases connections in reverse order of acquisition.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

type App struct {
	Server    *http.Server
	Scheduler *scheduler.Scheduler
	Engine    *Engine
	logger    *logging.Logger
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	engine, err := NewEngine(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var verifier httpapi.TokenVerifier
	if cfg.IdentityBaseURL != "" {
		identityClient := identity.NewClient(identity.ClientConfig{
			BaseURL:        cfg.IdentityBaseURL,
			IntrospectPath: cfg.IdentityIntrospectPath,
			AdminKey:       cfg.IdentityAdminKey,
			Timeout:        cfg.IdentityTimeout,
			CacheTTL:       cfg.IdentityCacheTTL,
			Logger:         logger,
			CircuitBreaker: cfg.IdentityCircuit,
		})
		engine.Metrics.TrackBreaker("identity", identityClient.Breaker())
		verifier = identityClient
	} else {
		logger.Warn("IDENTITY_BASE_URL empty, admin routes will answer 503")
	}

	routerCfg := httpapi.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		CronSecret:         cfg.CronSecret,
		SwaggerEnabled:     cfg.SwaggerEnabled,
		Observer:           engine.Metrics,
	}
	if cfg.MetricsEnabled {
		routerCfg.MetricsHandler = engine.Metrics.Handler()
	}

	handler := httpapi.NewHandler(engine.Sync, engine.Scoreboard, logger)
	router := httpapi.NewRouter(handler, verifier, routerCfg, logger)

	app := &App{
		Server: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		Engine: engine,
		logger: logger,
	}
	if cfg.SyncCronEnabled {
		app.Scheduler = scheduler.New(engine.Sync, cfg.SyncCron, cfg.SyncRunTimeout, logger)
	}
	return app, nil
}

// StartBackground starts the sync scheduler when one is configured.
func (a *App) StartBackground(ctx context.Context) error {
	if a.Scheduler == nil {
		return nil
	}
	return a.Scheduler.Start(ctx)
}

// Shutdown stops the scheduler, drains the HTTP server and closes the engine.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
		}
	}
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := a.Engine.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close engine: %w", err))
	}
	return errors.Join(errs...)
}
