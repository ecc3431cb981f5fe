// Package runner owns the single sync instance of the process: it guards
// against concurrent runs, keeps the last-sync markers, and exposes them to
// the CLI, the admin API, the scheduler and the database listener.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/albapepper/hoopsync/internal/cache"
	"github.com/albapepper/hoopsync/internal/seed"
)

// ErrAlreadyRunning is returned when a run is requested while one is active.
var ErrAlreadyRunning = errors.New("a sync is already running")

const statusKey = "runner:status"

// Syncer is the sync pipeline the runner drives.
type Syncer interface {
	Start(ctx context.Context, opts seed.Options) (*seed.Summary, error)
	Stop()
}

// Status is the caller-owned view of the sync.
type Status struct {
	IsSyncing     bool          `json:"is_syncing"`
	LastSyncTime  *time.Time    `json:"last_sync_time"`
	LastSyncError string        `json:"last_sync_error,omitempty"`
	LastSummary   *seed.Summary `json:"last_summary,omitempty"`
}

// markers is the persisted part of Status. The running flag is never stored:
// a restart mid-run clears it.
type markers struct {
	LastSyncTime  *time.Time    `json:"last_sync_time"`
	LastSyncError string        `json:"last_sync_error,omitempty"`
	LastSummary   *seed.Summary `json:"last_summary,omitempty"`
}

// Runner serializes sync runs.
type Runner struct {
	syncer Syncer
	cache  cache.Cache
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	syncing bool
	abort   chan struct{}
	markers markers
	wg      sync.WaitGroup
}

// New creates a runner and restores the last markers from c, if any.
// c may be nil.
func New(ctx context.Context, syncer Syncer, c cache.Cache, logger zerolog.Logger) *Runner {
	r := &Runner{
		syncer: syncer,
		cache:  c,
		logger: logger.With().Str("component", "runner").Logger(),
		now:    time.Now,
	}
	if c != nil {
		if data, ok := c.Get(ctx, statusKey); ok {
			if err := json.Unmarshal(data, &r.markers); err != nil {
				r.logger.Warn().Err(err).Msg("Ignoring unreadable sync status")
			}
		}
	}
	return r
}

// Start launches a run in the background. ctx bounds the run's I/O, so it
// should outlive the request that triggered it.
func (r *Runner) Start(ctx context.Context, opts seed.Options) error {
	abort, ok := r.acquire()
	if !ok {
		return ErrAlreadyRunning
	}
	opts.Abort = abort
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(ctx, opts)
	}()
	return nil
}

// Run performs a run synchronously.
func (r *Runner) Run(ctx context.Context, opts seed.Options) (*seed.Summary, error) {
	abort, ok := r.acquire()
	if !ok {
		return nil, ErrAlreadyRunning
	}
	opts.Abort = abort
	return r.execute(ctx, opts)
}

// Stop requests cooperative cancellation of the active run. No-op when idle.
// A Stop that lands between Start and the syncer picking the run up still
// ends that run, through the run's abort channel.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.abort != nil {
		close(r.abort)
		r.abort = nil
	}
	r.mu.Unlock()
	r.syncer.Stop()
}

// Wait blocks until background runs started with Start have returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// IsSyncing reports whether a run is active.
func (r *Runner) IsSyncing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.syncing
}

// Status returns a snapshot of the sync status.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		IsSyncing:     r.syncing,
		LastSyncTime:  r.markers.LastSyncTime,
		LastSyncError: r.markers.LastSyncError,
		LastSummary:   r.markers.LastSummary,
	}
}

func (r *Runner) acquire() (chan struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.syncing {
		return nil, false
	}
	r.syncing = true
	r.abort = make(chan struct{})
	return r.abort, true
}

func (r *Runner) execute(ctx context.Context, opts seed.Options) (*seed.Summary, error) {
	summary, err := r.syncer.Start(ctx, opts)

	r.mu.Lock()
	r.syncing = false
	r.abort = nil
	if summary != nil {
		r.markers.LastSummary = summary
	}
	if err != nil {
		r.markers.LastSyncError = err.Error()
		r.logger.Error().Err(err).Msg("Sync run failed")
	} else {
		now := r.now()
		r.markers.LastSyncTime = &now
		r.markers.LastSyncError = ""
	}
	snapshot := r.markers
	r.mu.Unlock()

	r.persist(ctx, snapshot)
	return summary, err
}

func (r *Runner) persist(ctx context.Context, m markers) {
	if r.cache == nil {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Could not encode sync status")
		return
	}
	r.cache.Set(context.WithoutCancel(ctx), statusKey, data, cache.TTLStatus)
}
