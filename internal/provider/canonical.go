// Package provider defines canonical data types that the upstream clients
// normalize into. These structs are the contract between provider clients and
// the sync pipeline: providers output these, the seed package writes them.
package provider

import "errors"

// ErrUpstream marks a failed call to a third-party API.
var ErrUpstream = errors.New("upstream request failed")

// Team is the canonical team row written to the teams table.
type Team struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}

// Player is the canonical player row written to the players table.
// The image fields are owned by the sync pipeline, not by the roster API.
type Player struct {
	ID           int    `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Position     string `json:"position"`
	TeamID       *int   `json:"team_id"`
	Height       string `json:"height"`
	Weight       string `json:"weight"`
	JerseyNumber string `json:"jersey_number"`
	College      string `json:"college"`
	Country      string `json:"country"`
	DraftYear    *int   `json:"draft_year"`
	DraftRound   *int   `json:"draft_round"`
	DraftNumber  *int   `json:"draft_number"`

	// Team is the embedded team record as returned by the roster API.
	Team *Team `json:"-"`

	ImageState
}

// FullName returns "First Last".
func (p Player) FullName() string {
	return p.FirstName + " " + p.LastName
}

// ImageState is the headshot bookkeeping persisted on the player row.
type ImageState struct {
	HasProfilePicture bool    `json:"has_profile_picture"`
	ProfilePictureURL *string `json:"profile_picture_url"`
	NBACDNID          *int    `json:"nba_cdn_id"`
}

// PlayerSeasonStats is one row of season averages, keyed by (player_id, season).
type PlayerSeasonStats struct {
	PlayerID    int      `json:"player_id"`
	Season      int      `json:"season"`
	GamesPlayed int      `json:"games_played"`
	Minutes     float64  `json:"minutes"`
	FGM         float64  `json:"fgm"`
	FGA         float64  `json:"fga"`
	FG3M        float64  `json:"fg3m"`
	FG3A        float64  `json:"fg3a"`
	FTM         float64  `json:"ftm"`
	FTA         float64  `json:"fta"`
	OReb        float64  `json:"oreb"`
	DReb        float64  `json:"dreb"`
	Reb         float64  `json:"reb"`
	Ast         float64  `json:"ast"`
	Stl         float64  `json:"stl"`
	Blk         float64  `json:"blk"`
	Turnover    float64  `json:"turnover"`
	PF          float64  `json:"pf"`
	Pts         float64  `json:"pts"`
	FGPct       *float64 `json:"fg_pct"`
	FG3Pct      *float64 `json:"fg3_pct"`
	FTPct       *float64 `json:"ft_pct"`
}
