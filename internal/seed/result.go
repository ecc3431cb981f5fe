// Package seed drives the player data sync: teams, players, headshots and
// season averages, written through a Store.
package seed

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutcomeStatus classifies what happened to one upstream player.
type OutcomeStatus string

const (
	OutcomeSynced  OutcomeStatus = "synced"
	OutcomeSkipped OutcomeStatus = "skipped"
	OutcomeFailed  OutcomeStatus = "failed"
)

// PlayerOutcome is the per-player result of a run.
type PlayerOutcome struct {
	PlayerID int           `json:"player_id"`
	Name     string        `json:"name"`
	Status   OutcomeStatus `json:"status"`
	Reason   string        `json:"reason,omitempty"`
}

// Summary tracks counts, errors and per-player outcomes of a sync run.
type Summary struct {
	RunID      string    `json:"run_id"`
	Season     int       `json:"season"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Pages               int `json:"pages"`
	TeamsUpserted       int `json:"teams_upserted"`
	PlayersUpserted     int `json:"players_upserted"`
	PlayerStatsUpserted int `json:"player_stats_upserted"`
	ImagesUploaded      int `json:"images_uploaded"`

	// Aborted is true when the run ended at a cancellation checkpoint.
	Aborted bool `json:"aborted"`
	// Cursor is the page cursor to resume from; "" once paging completed.
	Cursor string `json:"cursor,omitempty"`

	Errors   []string        `json:"errors,omitempty"`
	Outcomes []PlayerOutcome `json:"outcomes,omitempty"`
}

func newSummary(season int, startedAt time.Time) *Summary {
	return &Summary{
		RunID:     uuid.NewString(),
		Season:    season,
		StartedAt: startedAt,
	}
}

// AddError records an error message.
func (r *Summary) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddErrorf records a formatted error message.
func (r *Summary) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Record appends a player outcome. Failures are also added to Errors.
func (r *Summary) Record(o PlayerOutcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.Status == OutcomeFailed {
		r.AddErrorf("player %d (%s): %s", o.PlayerID, o.Name, o.Reason)
	}
}

// Count returns how many players ended with status.
func (r *Summary) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Outcome returns the outcome for a player id.
func (r *Summary) Outcome(playerID int) (PlayerOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.PlayerID == playerID {
			return o, true
		}
	}
	return PlayerOutcome{}, false
}

// Duration is the wall time of the run.
func (r *Summary) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// String returns a human-readable summary of the run.
func (r *Summary) String() string {
	return fmt.Sprintf(
		"pages=%d teams=%d players=%d player_stats=%d images=%d synced=%d skipped=%d failed=%d aborted=%t errors=%d",
		r.Pages, r.TeamsUpserted, r.PlayersUpserted, r.PlayerStatsUpserted, r.ImagesUploaded,
		r.Count(OutcomeSynced), r.Count(OutcomeSkipped), r.Count(OutcomeFailed),
		r.Aborted, len(r.Errors),
	)
}
