package seed

import (
	"context"
	"fmt"
	"strconv"

	"github.com/supabase-community/supabase-go"

	"github.com/albapepper/hoopsync/internal/config"
	"github.com/albapepper/hoopsync/internal/provider"
)

// RESTStore writes through the Supabase PostgREST API. It is used when the
// database is only reachable through the project's REST endpoint.
type RESTStore struct {
	client *supabase.Client
}

// NewRESTStore creates a store for a Supabase project using its service key.
func NewRESTStore(projectURL, serviceKey string) (*RESTStore, error) {
	client, err := supabase.NewClient(projectURL, serviceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &RESTStore{client: client}, nil
}

func (s *RESTStore) upsert(ctx context.Context, table, onConflict string, row interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := s.client.From(table).Upsert(row, onConflict, "minimal", "").Execute(); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

// UpsertTeam writes a canonical team keyed by id.
func (s *RESTStore) UpsertTeam(ctx context.Context, team provider.Team) error {
	return s.upsert(ctx, config.TeamsTable, "id", map[string]interface{}{
		"id":   team.ID,
		"name": team.Name,
		"city": provider.NilEmpty(team.City),
	})
}

// UpsertPlayer writes a canonical player keyed by id. Unresolved image
// fields are left out of the payload so stored values survive the merge.
func (s *RESTStore) UpsertPlayer(ctx context.Context, p provider.Player) error {
	row := map[string]interface{}{
		"id":            p.ID,
		"first_name":    p.FirstName,
		"last_name":     p.LastName,
		"position":      provider.NilEmpty(p.Position),
		"team_id":       p.TeamID,
		"height":        provider.NilEmpty(p.Height),
		"weight":        provider.NilEmpty(p.Weight),
		"jersey_number": provider.NilEmpty(p.JerseyNumber),
		"college":       provider.NilEmpty(p.College),
		"country":       provider.NilEmpty(p.Country),
		"draft_year":    p.DraftYear,
		"draft_round":   p.DraftRound,
		"draft_number":  p.DraftNumber,
	}
	if p.HasProfilePicture {
		row["has_profile_picture"] = true
	}
	if p.ProfilePictureURL != nil {
		row["profile_picture_url"] = *p.ProfilePictureURL
	}
	if p.NBACDNID != nil {
		row["nba_cdn_id"] = *p.NBACDNID
	}
	return s.upsert(ctx, config.PlayersTable, "id", row)
}

// UpsertPlayerStats writes one season-averages row keyed by (player_id, season).
func (s *RESTStore) UpsertPlayerStats(ctx context.Context, st provider.PlayerSeasonStats) error {
	return s.upsert(ctx, config.PlayerStatsTable, "player_id,season", st)
}

type imageRow struct {
	ID int `json:"id"`
	provider.ImageState
}

// PlayerImages loads the stored headshot state for a page of players.
func (s *RESTStore) PlayerImages(ctx context.Context, ids []int) (map[int]provider.ImageState, error) {
	out := make(map[int]provider.ImageState, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := make([]string, len(ids))
	for i, id := range ids {
		values[i] = strconv.Itoa(id)
	}

	var rows []imageRow
	_, err := s.client.From(config.PlayersTable).
		Select("id,has_profile_picture,profile_picture_url,nba_cdn_id", "", false).
		In("id", values).
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("query player images: %w", err)
	}

	for _, r := range rows {
		out[r.ID] = r.ImageState
	}
	return out, nil
}
