package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "hoopsync:"

// Redis is a Cache backed by a Redis server. Keys are namespaced under
// "hoopsync:" so the instance can be shared.
type Redis struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedis parses a redis:// URL, connects and pings the server.
func NewRedis(ctx context.Context, url string, logger zerolog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return newRedisFromClient(client, logger), nil
}

func newRedisFromClient(client *redis.Client, logger zerolog.Logger) *Redis {
	return &Redis{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// Get retrieves a cached value. Errors other than a miss are logged.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("Redis get failed")
		}
		return nil, false
	}
	return data, true
}

// Set stores a value. ttl <= 0 stores it without expiry.
func (c *Redis) Set(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Redis set failed")
	}
}

// Ping reports whether the server is reachable.
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Stats pings the server and reports connection pool counters.
func (c *Redis) Stats(ctx context.Context) map[string]interface{} {
	pool := c.client.PoolStats()
	stats := map[string]interface{}{
		"backend":     "redis",
		"connected":   true,
		"hits":        pool.Hits,
		"misses":      pool.Misses,
		"total_conns": pool.TotalConns,
		"idle_conns":  pool.IdleConns,
	}
	if err := c.Ping(ctx); err != nil {
		stats["connected"] = false
		stats["error"] = err.Error()
	}
	return stats
}

// Close releases the connection pool.
func (c *Redis) Close() error {
	return c.client.Close()
}
