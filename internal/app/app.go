package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/coinpulse/config"
	"github.com/guttosm/coinpulse/internal/api"
	"github.com/guttosm/coinpulse/internal/cache"
	"github.com/guttosm/coinpulse/internal/logger"
	"github.com/guttosm/coinpulse/internal/middleware"
	"github.com/guttosm/coinpulse/internal/service"
	"github.com/guttosm/coinpulse/internal/storage"
	"github.com/guttosm/coinpulse/internal/stream"
	"github.com/guttosm/coinpulse/internal/upstream"
)

// core holds the dependencies shared by every run mode.
type core struct {
	db      *sql.DB
	store   cache.Store
	fetcher upstream.Client
	repo    storage.TickersRepository
	svc     service.TickerService
}

func (c *core) close() {
	_ = c.store.Close()
	_ = c.db.Close()
}

// buildCore connects PostgreSQL (migrating when configured) and the cache,
// and wires the read service.
func buildCore(ctx context.Context, cfg config.Config) (*core, error) {
	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	if cfg.Postgres.AutoMigrate {
		if err := migrator(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	store := openCache(ctx, cfg)
	fetcher := upstream.NewClient(cfg.Upstream.URL, cfg.Upstream.Timeout)
	repo := storage.NewTickersRepository(db)

	opts := service.DefaultOptions()
	opts.CacheTTL = cfg.Cache.TTL
	opts.RefreshLockTTL = cfg.Cache.RefreshLockTTL
	svc := service.NewTickerService(repo, store, fetcher, opts)

	return &core{db: db, store: store, fetcher: fetcher, repo: repo, svc: svc}, nil
}

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Connects to PostgreSQL using InitPostgres() and applies migrations.
//   - Connects to Redis, falling back to an in-process cache.
//   - Initializes the repository, upstream client and ticker service.
//   - Starts the broadcast scheduler feeding the live channel hub.
//   - Configures the Gin router with all API routes.
//   - Registers health and readiness probes.
//   - Provides a cleanup function that stops the scheduler, disconnects
//     subscribers and closes the cache and DB, in that order.
//
// Parameters:
//   - ctx (context.Context): parent context of the broadcast loop.
//   - cfg (config.Config): loaded configuration (normally config.AppConfig).
//
// Returns:
//   - *gin.Engine: the configured Gin HTTP router.
//   - func(): cleanup function to be executed on shutdown.
//   - error: any initialization error that occurred.
func InitializeApp(ctx context.Context, cfg config.Config) (*gin.Engine, func(), error) {
	c, err := buildCore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.ConfigureRateLimit(cfg.Server.RateLimitMax, cfg.Server.RateLimitWindow)

	// Live channel: snapshot source feeds both the scheduler and late joiners
	snapshot := stream.NewSnapshotSource(c.store, c.fetcher, cfg.Cache.SnapshotTTL)
	hub := stream.NewHub(snapshot, stream.DefaultHubOptions())
	scheduler := stream.NewScheduler(snapshot, hub, cfg.Broadcast.Interval)
	scheduler.Start(ctx)

	// Setup Gin router with routes
	router := api.NewRouter(api.NewHandler(c.svc), api.NewStreamHandler(hub))

	// Register health and readiness probes
	api.NewHealthHandler(c.repo, c.store).Register(router)

	cleanup := func() {
		scheduler.Stop()
		hub.Close()
		c.close()
	}

	return router, cleanup, nil
}

// InitializeRefresher wires only what a one-shot upstream refresh needs.
func InitializeRefresher(ctx context.Context, cfg config.Config) (service.TickerService, func(), error) {
	c, err := buildCore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return c.svc, c.close, nil
}

// cacheOpener is an indirection used by openCache; overridden in tests.
var cacheOpener = func(ctx context.Context, cfg config.Config) (cache.Store, error) {
	s, err := cache.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// openCache returns the Redis store, or an in-process store when Redis is
// not configured or unreachable.
func openCache(ctx context.Context, cfg config.Config) cache.Store {
	log := logger.Component(logger.ComponentCache)
	if cfg.Redis.Addr == "" {
		log.Info().Msg("REDIS_ADDR empty, using in-process cache")
		return cache.NewMemoryStore()
	}
	store, err := cacheOpener(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, using in-process cache")
		return cache.NewMemoryStore()
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")
	return store
}
