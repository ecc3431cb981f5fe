package bdl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/albapepper/hoopsync/internal/provider"
)

// PlayerPage is one cursor page of players.
type PlayerPage struct {
	Players []provider.Player
	// NextCursor is the opaque token for the following page, "" on the last page.
	NextCursor string
}

// --------------------------------------------------------------------------
// Players (cursor-paginated)
// --------------------------------------------------------------------------

type bdlTeamRaw struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	FullName     string `json:"full_name"`
	Abbreviation string `json:"abbreviation"`
	City         string `json:"city"`
	Conference   string `json:"conference"`
	Division     string `json:"division"`
}

type bdlPlayerRaw struct {
	ID           int             `json:"id"`
	FirstName    string          `json:"first_name"`
	LastName     string          `json:"last_name"`
	Position     string          `json:"position"`
	Height       string          `json:"height"`
	Weight       string          `json:"weight"`
	JerseyNumber json.RawMessage `json:"jersey_number"`
	College      string          `json:"college"`
	Country      string          `json:"country"`
	DraftYear    *int            `json:"draft_year"`
	DraftRound   *int            `json:"draft_round"`
	DraftNumber  *int            `json:"draft_number"`
	Team         *bdlTeamRaw     `json:"team"`
}

// ListPlayers fetches a single page of players. cursor is the token returned
// by the previous page, or "" for the first page.
func (c *Client) ListPlayers(ctx context.Context, cursor string, perPage int) (*PlayerPage, error) {
	params := url.Values{"per_page": {strconv.Itoa(perPage)}}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	resp, err := c.get(ctx, "/players", params)
	if err != nil {
		return nil, fmt.Errorf("fetch NBA players: %w", err)
	}

	var raw []bdlPlayerRaw
	if err := json.Unmarshal(resp.Data, &raw); err != nil {
		return nil, fmt.Errorf("decode NBA players: %w", err)
	}

	page := &PlayerPage{
		Players:    make([]provider.Player, len(raw)),
		NextCursor: resp.nextCursor(),
	}
	for i, p := range raw {
		page.Players[i] = normalizePlayer(p)
	}
	return page, nil
}

func normalizePlayer(raw bdlPlayerRaw) provider.Player {
	p := provider.Player{
		ID:           raw.ID,
		FirstName:    strings.TrimSpace(raw.FirstName),
		LastName:     strings.TrimSpace(raw.LastName),
		Position:     raw.Position,
		Height:       raw.Height,
		Weight:       raw.Weight,
		JerseyNumber: jerseyString(raw.JerseyNumber),
		College:      raw.College,
		Country:      raw.Country,
		DraftYear:    raw.DraftYear,
		DraftRound:   raw.DraftRound,
		DraftNumber:  raw.DraftNumber,
	}
	if raw.Team != nil && raw.Team.ID != 0 {
		teamID := raw.Team.ID
		p.TeamID = &teamID
		p.Team = &provider.Team{
			ID:   raw.Team.ID,
			Name: raw.Team.Name,
			City: raw.Team.City,
		}
	}
	return p
}

// jerseyString accepts both "23" and 23 as the jersey number.
func jerseyString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// --------------------------------------------------------------------------
// Season averages
// --------------------------------------------------------------------------

type bdlSeasonAveragesRaw struct {
	PlayerID    int      `json:"player_id"`
	Season      int      `json:"season"`
	GamesPlayed int      `json:"games_played"`
	Min         string   `json:"min"`
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

// GetSeasonAverages fetches a player's averages for one season. An empty
// slice means the player has not appeared in that season.
func (c *Client) GetSeasonAverages(ctx context.Context, playerID, season int) ([]provider.PlayerSeasonStats, error) {
	params := url.Values{
		"season":    {strconv.Itoa(season)},
		"player_id": {strconv.Itoa(playerID)},
	}

	resp, err := c.get(ctx, "/season_averages", params)
	if err != nil {
		return nil, fmt.Errorf("fetch season averages for player %d: %w", playerID, err)
	}

	var raw []bdlSeasonAveragesRaw
	if err := json.Unmarshal(resp.Data, &raw); err != nil {
		return nil, fmt.Errorf("decode season averages: %w", err)
	}

	out := make([]provider.PlayerSeasonStats, 0, len(raw))
	for _, r := range raw {
		out = append(out, normalizeSeasonAverages(r, playerID, season))
	}
	return out, nil
}

func normalizeSeasonAverages(raw bdlSeasonAveragesRaw, playerID, season int) provider.PlayerSeasonStats {
	if raw.PlayerID == 0 {
		raw.PlayerID = playerID
	}
	if raw.Season == 0 {
		raw.Season = season
	}
	minutes, _ := provider.ParseMinutes(raw.Min)

	return provider.PlayerSeasonStats{
		PlayerID:    raw.PlayerID,
		Season:      raw.Season,
		GamesPlayed: raw.GamesPlayed,
		Minutes:     minutes,
		FGM:         raw.FGM,
		FGA:         raw.FGA,
		FG3M:        raw.FG3M,
		FG3A:        raw.FG3A,
		FTM:         raw.FTM,
		FTA:         raw.FTA,
		OReb:        raw.OReb,
		DReb:        raw.DReb,
		Reb:         raw.Reb,
		Ast:         raw.Ast,
		Stl:         raw.Stl,
		Blk:         raw.Blk,
		Turnover:    raw.Turnover,
		PF:          raw.PF,
		Pts:         raw.Pts,
		FGPct:       raw.FGPct,
		FG3Pct:      raw.FG3Pct,
		FTPct:       raw.FTPct,
	}
}
