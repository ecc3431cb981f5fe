// Package listener provides a Postgres LISTEN/NOTIFY consumer that lets
// operators drive the player sync from SQL. It holds a dedicated pgx
// connection (not from the pool) listening on the `player_sync` channel,
// which request_player_sync('start' | 'stop') notifies.
package listener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/albapepper/hoopsync/internal/runner"
	"github.com/albapepper/hoopsync/internal/seed"
)

const (
	Channel          = "player_sync"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Control is the runner surface a notification can drive.
type Control interface {
	Start(ctx context.Context, opts seed.Options) error
	Stop()
}

// Start opens a dedicated connection and listens on the player_sync
// channel. It reconnects automatically on connection loss. Blocks until ctx
// is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, control Control, logger zerolog.Logger) {
	logger = logger.With().Str("component", "listener").Str("channel", Channel).Logger()
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, control, logger)
		if ctx.Err() != nil {
			logger.Info().Msg("Sync listener stopped (context cancelled)")
			return
		}

		logger.Error().Err(err).Dur("backoff", backoff).Msg("Sync listener disconnected, reconnecting...")

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, control Control, logger zerolog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("LISTEN %s: %w", Channel, err)
	}
	logger.Info().Msg("Sync listener connected")

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		Dispatch(ctx, notification.Payload, control, logger)
	}
}

// Dispatch applies one notification payload to the runner. Unknown payloads
// and a start while a sync is running are logged and ignored.
func Dispatch(ctx context.Context, payload string, control Control, logger zerolog.Logger) {
	action := strings.ToLower(strings.TrimSpace(payload))
	switch action {
	case "start":
		err := control.Start(ctx, seed.Options{})
		switch {
		case errors.Is(err, runner.ErrAlreadyRunning):
			logger.Info().Msg("Sync already running, start request ignored")
		case err != nil:
			logger.Error().Err(err).Msg("Sync start from notification failed")
		default:
			logger.Info().Msg("Sync started from notification")
		}
	case "stop":
		control.Stop()
		logger.Info().Msg("Sync stop requested from notification")
	default:
		logger.Warn().Str("payload", payload).Msg("Ignoring unknown sync notification")
	}
}
