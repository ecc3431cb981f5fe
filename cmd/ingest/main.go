// Command ingest is the hoopsync player sync CLI.
//
// Usage:
//
//	hoopsync-ingest sync
//	hoopsync-ingest sync --cursor 4250 --season 2024 --page-size 50
//	hoopsync-ingest migrate up
//	hoopsync-ingest migrate version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/albapepper/hoopsync/internal/app"
	"github.com/albapepper/hoopsync/internal/config"
	"github.com/albapepper/hoopsync/internal/db"
	"github.com/albapepper/hoopsync/internal/runner"
	"github.com/albapepper/hoopsync/internal/seed"
)

func main() {
	root := &cobra.Command{
		Use:           "hoopsync-ingest",
		Short:         "NBA player sync CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(syncCmd())
	root.AddCommand(migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// sync command
// --------------------------------------------------------------------------

func syncCmd() *cobra.Command {
	var opts seed.Options
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync teams, players, season averages and headshots",
		Long: "Runs one sync to completion. The first interrupt stops the run at its " +
			"next checkpoint and prints the cursor to resume from; a second interrupt " +
			"cancels in-flight requests. Pending schema migrations are applied first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.PageSize < 0 || opts.PageSize > 100 {
				return fmt.Errorf("--page-size must be between 1 and 100")
			}

			logger := app.NewLogger(cfg, os.Stdout, nil)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a, err := app.Build(ctx, cfg, nil, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			stopOnSignal(a.Runner, cancel, logger)

			summary, err := a.Runner.Run(ctx, opts)
			if summary != nil {
				logSummary(logger, summary)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "Resume from an upstream cursor (skips the team pre-pass)")
	cmd.Flags().IntVar(&opts.Season, "season", 0, "Season year for season averages (default: SYNC_SEASON or the current season)")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "Players per page (default: SYNC_PAGE_SIZE)")
	return cmd
}

// stopOnSignal requests a cooperative stop on the first SIGINT/SIGTERM and
// cancels ctx on the second.
func stopOnSignal(r *runner.Runner, cancel context.CancelFunc, logger zerolog.Logger) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn().Msg("Interrupt received, stopping after the current player (interrupt again to abort)")
		r.Stop()
		<-sigs
		logger.Warn().Msg("Second interrupt, cancelling")
		cancel()
	}()
}

func logSummary(logger zerolog.Logger, s *seed.Summary) {
	event := logger.Info()
	if s.Aborted {
		event = logger.Warn()
	}
	event.
		Str("run_id", s.RunID).
		Int("season", s.Season).
		Dur("duration", s.Duration().Round(time.Second)).
		Str("summary", s.String()).
		Msg("Sync finished")

	if s.Aborted && s.Cursor != "" {
		logger.Warn().Str("cursor", s.Cursor).Msgf("Resume with: hoopsync-ingest sync --cursor %s", s.Cursor)
	}
	for _, e := range s.Errors {
		logger.Error().Str("run_id", s.RunID).Msg(e)
	}
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the embedded schema migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *db.Migrator) error { return m.Up() })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *db.Migrator) error { return m.Down() })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *db.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
				return nil
			})
		},
	})
	return cmd
}

func withMigrator(fn func(m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	m, err := db.NewMigrator(cfg.MigrationURL())
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}
