// Command api is the hoopsync admin server. It owns the process-wide sync
// runner and exposes it over HTTP, a cron schedule and Postgres NOTIFY.
//
// Usage:
//
//	hoopsync-api
//	API_PORT=8080 ENABLE_SCHEDULER=true hoopsync-api
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/albapepper/hoopsync/internal/api"
	"github.com/albapepper/hoopsync/internal/api/handler"
	"github.com/albapepper/hoopsync/internal/app"
	"github.com/albapepper/hoopsync/internal/config"
	"github.com/albapepper/hoopsync/internal/listener"
	"github.com/albapepper/hoopsync/internal/runner"
	"github.com/albapepper/hoopsync/internal/scheduler"
	"github.com/albapepper/hoopsync/internal/seed"
)

func main() {
	cfg := config.MustLoad()

	logs := runner.NewLogHub(1000)
	logger := app.NewLogger(cfg, os.Stdout, logs)

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.Build(ctx, cfg, logs, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	// Runs outlive the signal context so shutdown can stop them cooperatively.
	runCtx, cancelRuns := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRuns()

	if cfg.EnableScheduler {
		sched, err := scheduler.New(cfg.SyncCron, a.Runner, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid SYNC_CRON")
		}
		sched.Start(runCtx)
		defer sched.Stop()
	}

	if cfg.EnableListener {
		if cfg.DatabaseURL == "" {
			logger.Warn().Msg("ENABLE_LISTENER set without DATABASE_URL, listener disabled")
		} else {
			go listener.Start(ctx, cfg.DatabaseURL, &runControl{runner: a.Runner, ctx: runCtx}, logger)
		}
	}

	deps := handler.Deps{
		Cache:   a.Cache,
		Runner:  a.Runner,
		Logs:    logs,
		Context: runCtx,
		Logger:  logger,
	}
	if a.Pool != nil {
		deps.DB = a.Pool
	}
	router := api.NewRouter(deps, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := api.NewServer(addr, router, logs.Close)

	// Start server in background
	go func() {
		logger.Info().
			Str("addr", addr).
			Str("environment", cfg.AppEnv).
			Bool("scheduler", cfg.EnableScheduler).
			Bool("listener", cfg.EnableListener).
			Msg("Starting hoopsync admin API")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info().Msg("Shutting down...")

	// Ask an active sync to stop first so it reaches its next checkpoint
	// while the HTTP server drains.
	a.Runner.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Shutdown error")
	}

	done := make(chan struct{})
	go func() {
		a.Runner.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("Sync did not stop in time, cancelling")
		cancelRuns()
		<-done
	}
	logger.Info().Msg("Server stopped")
}

// runControl binds listener-triggered runs to the server's run context
// instead of the listener connection's.
type runControl struct {
	runner *runner.Runner
	ctx    context.Context
}

func (c *runControl) Start(_ context.Context, opts seed.Options) error {
	return c.runner.Start(c.ctx, opts)
}

func (c *runControl) Stop() { c.runner.Stop() }
