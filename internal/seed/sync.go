package seed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/albapepper/hoopsync/internal/config"
	"github.com/albapepper/hoopsync/internal/metrics"
	"github.com/albapepper/hoopsync/internal/provider"
	"github.com/albapepper/hoopsync/internal/provider/bdl"
	"github.com/albapepper/hoopsync/internal/storage"
)

var (
	// ErrSyncAborted is raised at a cancellation checkpoint after Stop.
	// Start converts it into a summary with Aborted set.
	ErrSyncAborted = errors.New("sync aborted")

	// ErrSyncInProgress is returned by Start while another run is active.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// Defaults.
const (
	DefaultPageSize         = 25
	DefaultTeamScanPageSize = 100
	DefaultPageDelay        = 100 * time.Millisecond
)

// RosterSource is the upstream roster/stats API.
type RosterSource interface {
	ListPlayers(ctx context.Context, cursor string, perPage int) (*bdl.PlayerPage, error)
	GetSeasonAverages(ctx context.Context, playerID, season int) ([]provider.PlayerSeasonStats, error)
}

// Directory resolves headshot ids and downloads headshots.
type Directory interface {
	FindPlayerID(ctx context.Context, firstName, lastName string) (int, bool, error)
	FetchHeadshot(ctx context.Context, cdnID int) ([]byte, error)
}

// Config tunes a Syncer.
type Config struct {
	PageSize         int
	TeamScanPageSize int
	PageDelay        time.Duration
	// Season is used when Options.Season is zero; zero means the current season.
	Season int
}

// Options are the per-run parameters.
type Options struct {
	// Cursor resumes paging from an upstream cursor and skips the team pre-pass.
	Cursor   string
	Season   int
	PageSize int
	// Abort, when closed, ends the run at its next checkpoint like Stop. It
	// lets a caller request a stop before Start has begun.
	Abort <-chan struct{}
}

// Syncer runs the player sync. One instance is shared by every caller in the
// process; it owns the cancellation flag, so at most one run observes Stop.
type Syncer struct {
	roster    RosterSource
	store     Store
	directory Directory
	objects   storage.ObjectStore
	cfg       Config
	logger    zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu      sync.Mutex
	running bool
	stop    atomic.Bool
	abort   <-chan struct{}
}

// NewSyncer wires a Syncer. directory and objects may be nil, which disables
// headshot work.
func NewSyncer(roster RosterSource, store Store, directory Directory, objects storage.ObjectStore, cfg Config, logger zerolog.Logger) *Syncer {
	if cfg.PageSize < 1 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.TeamScanPageSize < 1 {
		cfg.TeamScanPageSize = DefaultTeamScanPageSize
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = DefaultPageDelay
	}

	s := &Syncer{
		roster:    roster,
		store:     store,
		directory: directory,
		objects:   objects,
		cfg:       cfg,
		logger:    logger.With().Str("component", "sync").Logger(),
		sleep:     sleepContext,
		now:       time.Now,
	}
	if !s.imagesEnabled() {
		s.logger.Warn().Msg("Object storage or directory not configured, headshot sync disabled")
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Running reports whether a run is active.
func (s *Syncer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop asks the active run to end at its next checkpoint. In-flight calls
// are allowed to finish. It is a no-op when nothing is running.
func (s *Syncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.stop.Store(true)
	s.logger.Info().Msg("Stop requested, finishing current step")
}

// Start runs one sync to completion. A run ended by Stop is not an error:
// the returned summary has Aborted set. The summary is returned even when a
// run-fatal error ends the run.
func (s *Syncer) Start(ctx context.Context, opts Options) (*Summary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	s.running = true
	s.stop.Store(false)
	s.abort = opts.Abort
	s.mu.Unlock()

	metrics.SetSyncing(true)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		metrics.SetSyncing(false)
	}()

	if opts.Season == 0 {
		opts.Season = s.cfg.Season
	}
	if opts.Season == 0 {
		opts.Season = config.CurrentSeason(s.now())
	}
	if opts.PageSize < 1 {
		opts.PageSize = s.cfg.PageSize
	}

	summary := newSummary(opts.Season, s.now())
	summary.Cursor = opts.Cursor
	logger := s.logger.With().Str("run_id", summary.RunID).Logger()
	logger.Info().Int("season", opts.Season).Str("cursor", opts.Cursor).Int("page_size", opts.PageSize).Msg("Sync started")

	err := s.run(ctx, opts, summary, logger)
	summary.FinishedAt = s.now()
	duration := summary.Duration().Seconds()

	switch {
	case errors.Is(err, ErrSyncAborted):
		summary.Aborted = true
		metrics.RecordSync("aborted", duration)
		logger.Info().Str("resume_cursor", summary.Cursor).Str("summary", summary.String()).Msg("Sync aborted")
		return summary, nil
	case err != nil:
		summary.AddError(err.Error())
		metrics.RecordSync("error", duration)
		logger.Error().Err(err).Str("summary", summary.String()).Msg("Sync failed")
		return summary, err
	}

	metrics.RecordSync("success", duration)
	logger.Info().Str("summary", summary.String()).Msg("Sync complete")
	return summary, nil
}

// checkpoint returns ErrSyncAborted once Stop has been called or the run's
// Abort channel is closed. A nil Abort never fires.
func (s *Syncer) checkpoint() error {
	if s.stop.Load() {
		return ErrSyncAborted
	}
	select {
	case <-s.abort:
		return ErrSyncAborted
	default:
		return nil
	}
}

func (s *Syncer) run(ctx context.Context, opts Options, summary *Summary, logger zerolog.Logger) error {
	if opts.Cursor == "" {
		if err := s.syncTeams(ctx, summary, logger); err != nil {
			return err
		}
	}

	cursor := opts.Cursor
	for {
		summary.Cursor = cursor
		if err := s.checkpoint(); err != nil {
			return err
		}

		page, err := s.roster.ListPlayers(ctx, cursor, opts.PageSize)
		if err != nil {
			return fmt.Errorf("fetch players page (cursor %q): %w", cursor, err)
		}
		summary.Pages++
		logger.Info().Int("page", summary.Pages).Int("players", len(page.Players)).Str("cursor", cursor).Msg("Processing player page")

		if err := s.syncPage(ctx, page.Players, opts.Season, summary, logger); err != nil {
			return err
		}

		if page.NextCursor == "" {
			summary.Cursor = ""
			return nil
		}
		if err := s.sleep(ctx, s.cfg.PageDelay); err != nil {
			return err
		}
		cursor = page.NextCursor
	}
}

// syncTeams pages the full player collection once to collect the distinct
// teams, then upserts them before any player is written. Team upsert failures
// are recorded and the run continues.
func (s *Syncer) syncTeams(ctx context.Context, summary *Summary, logger zerolog.Logger) error {
	logger.Info().Msg("Collecting teams...")

	teams := make(map[int]provider.Team)
	var order []int
	cursor := ""
	for {
		if err := s.checkpoint(); err != nil {
			return err
		}
		page, err := s.roster.ListPlayers(ctx, cursor, s.cfg.TeamScanPageSize)
		if err != nil {
			return fmt.Errorf("team pre-pass (cursor %q): %w", cursor, err)
		}
		for _, p := range page.Players {
			if p.Team == nil || p.Team.ID == 0 {
				continue
			}
			if _, seen := teams[p.Team.ID]; !seen {
				teams[p.Team.ID] = *p.Team
				order = append(order, p.Team.ID)
			}
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	for _, id := range order {
		team := teams[id]
		if err := s.store.UpsertTeam(ctx, team); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			summary.AddErrorf("upsert team %d: %v", id, err)
			logger.Error().Err(err).Int("team_id", id).Msg("Team upsert failed")
			continue
		}
		summary.TeamsUpserted++
		logger.Info().Int("team_id", id).Str("team", team.City+" "+team.Name).Msg("Team synced")
	}
	logger.Info().Int("count", summary.TeamsUpserted).Msg("Teams done")
	return nil
}

// syncPage processes players strictly in upstream order.
func (s *Syncer) syncPage(ctx context.Context, players []provider.Player, season int, summary *Summary, logger zerolog.Logger) error {
	images, imagesKnown := s.loadImages(ctx, players, logger)

	for _, p := range players {
		if err := s.checkpoint(); err != nil {
			return err
		}

		outcome := s.syncPlayer(ctx, p, images[p.ID], imagesKnown, season, summary, logger)
		if err := ctx.Err(); err != nil {
			return err
		}
		summary.Record(outcome)
		metrics.RecordPlayer(string(outcome.Status))
	}
	return nil
}

// loadImages fetches the stored image state for a page. When it cannot be
// read, image work is skipped for the page so a stored picture is never
// re-fetched by mistake.
func (s *Syncer) loadImages(ctx context.Context, players []provider.Player, logger zerolog.Logger) (map[int]provider.ImageState, bool) {
	if !s.imagesEnabled() {
		return nil, false
	}
	ids := make([]int, 0, len(players))
	for _, p := range players {
		if p.ID != 0 {
			ids = append(ids, p.ID)
		}
	}
	images, err := s.store.PlayerImages(ctx, ids)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not load stored image state, skipping headshots for this page")
		return nil, false
	}
	return images, true
}

func (s *Syncer) syncPlayer(ctx context.Context, p provider.Player, stored provider.ImageState, imagesKnown bool, season int, summary *Summary, logger zerolog.Logger) PlayerOutcome {
	outcome := PlayerOutcome{PlayerID: p.ID, Name: p.FullName()}
	if p.ID == 0 {
		outcome.Status = OutcomeSkipped
		outcome.Reason = "missing upstream id"
		logger.Warn().Str("name", outcome.Name).Msg("Skipping player without id")
		return outcome
	}

	fail := func(reason string, err error) PlayerOutcome {
		outcome.Status = OutcomeFailed
		outcome.Reason = fmt.Sprintf("%s: %v", reason, err)
		logger.Error().Err(err).Int("player_id", p.ID).Str("name", outcome.Name).Msg("Player " + reason + " failed")
		return outcome
	}

	p.ImageState = stored
	if imagesKnown && s.resolveImage(ctx, &p, logger) {
		summary.ImagesUploaded++
	}

	if err := s.store.UpsertPlayer(ctx, p); err != nil {
		return fail("upsert", err)
	}
	summary.PlayersUpserted++

	averages, err := s.roster.GetSeasonAverages(ctx, p.ID, season)
	if err != nil {
		return fail("season averages fetch", err)
	}
	for _, st := range averages {
		if err := s.store.UpsertPlayerStats(ctx, st); err != nil {
			return fail("stats upsert", err)
		}
		summary.PlayerStatsUpserted++
	}

	outcome.Status = OutcomeSynced
	if len(averages) == 0 {
		outcome.Reason = "no season averages"
	}
	logger.Info().Int("player_id", p.ID).Str("name", outcome.Name).Int("stats", len(averages)).Msg("Player synced")
	return outcome
}
