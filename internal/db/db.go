// Package db provides a pgxpool-based connection pool with prepared statement
// registration, health checking and embedded schema migrations.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/hoopsync/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// statements are prepared on every connection. The relations they reference
// must exist, so migrations run before the pool is opened.
var statements = map[string]string{
	"health_check": "SELECT 1",

	// Sync: stored headshot state for one page of players
	"player_images": "SELECT id, has_profile_picture, profile_picture_url, nba_cdn_id FROM " +
		config.PlayersTable + " WHERE id = ANY($1)",

	// Admin API: table counts
	"table_counts": "SELECT (SELECT count(*) FROM " + config.TeamsTable + "), " +
		"(SELECT count(*) FROM " + config.PlayersTable + "), " +
		"(SELECT count(*) FROM " + config.PlayerStatsTable + "), " +
		"(SELECT count(*) FROM " + config.PlayersTable + " WHERE has_profile_picture)",
}

func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	for name, sql := range statements {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return prepareError(name, err)
		}
	}
	return nil
}

// undefinedTable is the Postgres SQLSTATE for a missing relation.
const undefinedTable = "42P01"

func prepareError(name string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("prepare %q: %w (schema missing, run `hoopsync-ingest migrate up`)", name, err)
	}
	return fmt.Errorf("prepare %q: %w", name, err)
}

// TableCounts is a row-count snapshot of the synced tables.
type TableCounts struct {
	Teams          int64 `json:"teams"`
	Players        int64 `json:"players"`
	PlayerStats    int64 `json:"player_stats"`
	PlayersWithPic int64 `json:"players_with_picture"`
}

// Counts returns the current row counts.
func (p *Pool) Counts(ctx context.Context) (TableCounts, error) {
	var c TableCounts
	err := p.QueryRow(ctx, "table_counts").Scan(&c.Teams, &c.Players, &c.PlayerStats, &c.PlayersWithPic)
	if err != nil {
		return TableCounts{}, fmt.Errorf("table counts: %w", err)
	}
	return c, nil
}
