// Package app builds the process-wide dependency graph shared by cmd/api and
// cmd/ingest: logger, cache, store, provider clients, syncer and runner.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/albapepper/hoopsync/internal/cache"
	"github.com/albapepper/hoopsync/internal/config"
	"github.com/albapepper/hoopsync/internal/db"
	"github.com/albapepper/hoopsync/internal/provider/bdl"
	"github.com/albapepper/hoopsync/internal/provider/nbadir"
	"github.com/albapepper/hoopsync/internal/runner"
	"github.com/albapepper/hoopsync/internal/seed"
	"github.com/albapepper/hoopsync/internal/storage"
)

// NewLogger builds the process logger. Development gets the console writer,
// everything else JSON on stdout. Every line is also written, uncoloured, to
// hub so the admin API can serve it.
func NewLogger(cfg *config.Config, stdout io.Writer, hub io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out io.Writer = stdout
	if cfg.IsDevelopment() {
		out = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.TimeOnly}
	}
	if hub != nil {
		out = zerolog.MultiLevelWriter(out, zerolog.ConsoleWriter{Out: hub, NoColor: true, TimeFormat: time.TimeOnly})
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// App is the wired process.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Logs   *runner.LogHub
	Cache  cache.Cache
	Pool   *db.Pool
	Store  seed.Store
	Syncer *seed.Syncer
	Runner *runner.Runner

	closers []func()
}

// Build wires every dependency from cfg. The pool is opened whenever
// DATABASE_URL is set, even for the supabase store, so health checks and
// the listener have a connection. Pending migrations are applied first
// because the pool prepares statements against the synced tables.
func Build(ctx context.Context, cfg *config.Config, logs *runner.LogHub, logger zerolog.Logger) (*App, error) {
	if cfg.BDLAPIKey == "" {
		return nil, errors.New("BALLDONTLIE_API_KEY is required")
	}

	a := &App{Config: cfg, Logger: logger, Logs: logs}

	a.Cache = a.buildCache(ctx)

	if cfg.DatabaseURL != "" {
		if err := db.Migrate(cfg.MigrationURL()); err != nil {
			a.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info().Msg("Migrations applied")

		pool, err := db.New(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.Pool = pool
		a.closers = append(a.closers, pool.Close)
		logger.Info().
			Int("min_conns", cfg.DBPoolMinConns).
			Int("max_conns", cfg.DBPoolMaxConns).
			Msg("Database connected")
	}

	switch cfg.StoreBackend {
	case config.StoreSupabase:
		store, err := seed.NewRESTStore(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create supabase store: %w", err)
		}
		a.Store = store
	default:
		if a.Pool == nil {
			a.Close()
			return nil, errors.New("DATABASE_URL is required for the postgres store")
		}
		a.Store = seed.NewPostgresStore(a.Pool.Pool)
	}
	logger.Info().Str("store", cfg.StoreBackend).Msg("Store ready")

	roster := bdl.NewClient(cfg.BDLBaseURL, cfg.BDLAPIKey, cfg.BDLRPM, logger)
	directory := nbadir.NewClient(cfg.DirectoryURL, cfg.HeadshotBaseURL, logger,
		nbadir.WithSeasonFunc(cfg.Season),
		nbadir.WithCache(a.Cache),
	)

	var objects storage.ObjectStore
	bucket, err := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket, logger)
	switch {
	case errors.Is(err, storage.ErrNotConfigured):
		logger.Info().Msg("Object storage not configured")
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("create object storage: %w", err)
	default:
		objects = bucket
	}

	a.Syncer = seed.NewSyncer(roster, a.Store, directory, objects, seed.Config{
		PageSize:         cfg.SyncPageSize,
		TeamScanPageSize: cfg.SyncTeamScanPageSize,
		PageDelay:        cfg.SyncPageDelay,
		Season:           cfg.SyncSeason,
	}, logger)
	a.Runner = runner.New(ctx, a.Syncer, a.Cache, logger)

	return a, nil
}

// buildCache prefers Redis when configured and falls back to memory.
func (a *App) buildCache(ctx context.Context) cache.Cache {
	if a.Config.RedisURL != "" && a.Config.CacheEnabled {
		rc, err := cache.NewRedis(ctx, a.Config.RedisURL, a.Logger)
		if err == nil {
			a.closers = append(a.closers, func() { rc.Close() })
			a.Logger.Info().Msg("Cache initialized (redis)")
			return rc
		}
		a.Logger.Warn().Err(err).Msg("Redis unavailable, using in-memory cache")
	}
	mc := cache.NewMemory(a.Config.CacheEnabled)
	a.closers = append(a.closers, mc.Close)
	a.Logger.Info().Bool("enabled", a.Config.CacheEnabled).Msg("Cache initialized (memory)")
	return mc
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
