// Package scheduler starts player syncs on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/albapepper/hoopsync/internal/runner"
	"github.com/albapepper/hoopsync/internal/seed"
)

// Starter launches a background sync.
type Starter interface {
	Start(ctx context.Context, opts seed.Options) error
}

// Scheduler triggers a sync through the runner on every cron tick. A tick
// that lands while a sync is running is skipped.
type Scheduler struct {
	cron     *cron.Cron
	starter  Starter
	schedule string
	entry    cron.EntryID
	logger   zerolog.Logger
	ctx      context.Context
}

// New validates the standard five-field cron expression and registers the
// sync job. The job does not fire until Start.
func New(schedule string, starter Starter, logger zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(),
		starter:  starter,
		schedule: schedule,
		logger:   logger.With().Str("component", "scheduler").Str("schedule", schedule).Logger(),
		ctx:      context.Background(),
	}
	id, err := s.cron.AddFunc(schedule, s.trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule sync %q: %w", schedule, err)
	}
	s.entry = id
	return s, nil
}

// Start begins firing the job. ctx bounds the syncs it starts.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info().Time("next_run", s.Next()).Msg("Scheduled sync enabled")
}

// Stop halts the schedule and waits for an in-flight trigger to return. It
// does not stop a sync the trigger started.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// Next returns the next time the job fires, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) trigger() {
	err := s.starter.Start(s.ctx, seed.Options{})
	switch {
	case errors.Is(err, runner.ErrAlreadyRunning):
		s.logger.Info().Msg("Sync already running, scheduled run skipped")
	case err != nil:
		s.logger.Error().Err(err).Msg("Scheduled sync failed to start")
	default:
		s.logger.Info().Msg("Scheduled sync started")
	}
}
