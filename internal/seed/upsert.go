package seed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/hoopsync/internal/config"
	"github.com/albapepper/hoopsync/internal/provider"
)

// PostgresStore writes directly to Postgres through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// UpsertTeam writes a canonical team to the teams table.
func (s *PostgresStore) UpsertTeam(ctx context.Context, team provider.Team) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.TeamsTable+` (id, name, city)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			city = EXCLUDED.city,
			updated_at = NOW()`,
		team.ID, team.Name, provider.NilEmpty(team.City),
	)
	return err
}

// UpsertPlayer writes a canonical player to the players table. Image fields
// only move forward: a stored picture or cdn id is never cleared.
func (s *PostgresStore) UpsertPlayer(ctx context.Context, player provider.Player) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.PlayersTable+` (
			id, first_name, last_name, position, team_id,
			height, weight, jersey_number, college, country,
			draft_year, draft_round, draft_number,
			has_profile_picture, profile_picture_url, nba_cdn_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			position = EXCLUDED.position,
			team_id = EXCLUDED.team_id,
			height = EXCLUDED.height,
			weight = EXCLUDED.weight,
			jersey_number = EXCLUDED.jersey_number,
			college = EXCLUDED.college,
			country = EXCLUDED.country,
			draft_year = EXCLUDED.draft_year,
			draft_round = EXCLUDED.draft_round,
			draft_number = EXCLUDED.draft_number,
			has_profile_picture = EXCLUDED.has_profile_picture OR `+config.PlayersTable+`.has_profile_picture,
			profile_picture_url = COALESCE(EXCLUDED.profile_picture_url, `+config.PlayersTable+`.profile_picture_url),
			nba_cdn_id = COALESCE(EXCLUDED.nba_cdn_id, `+config.PlayersTable+`.nba_cdn_id),
			updated_at = NOW()`,
		player.ID, player.FirstName, player.LastName, provider.NilEmpty(player.Position), player.TeamID,
		provider.NilEmpty(player.Height), provider.NilEmpty(player.Weight), provider.NilEmpty(player.JerseyNumber),
		provider.NilEmpty(player.College), provider.NilEmpty(player.Country),
		player.DraftYear, player.DraftRound, player.DraftNumber,
		player.HasProfilePicture, player.ProfilePictureURL, player.NBACDNID,
	)
	return err
}

// UpsertPlayerStats writes one season-averages row keyed by (player_id, season).
func (s *PostgresStore) UpsertPlayerStats(ctx context.Context, st provider.PlayerSeasonStats) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.PlayerStatsTable+` (
			player_id, season, games_played, minutes,
			fgm, fga, fg3m, fg3a, ftm, fta,
			oreb, dreb, reb, ast, stl, blk, turnover, pf, pts,
			fg_pct, fg3_pct, ft_pct
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		ON CONFLICT (player_id, season) DO UPDATE SET
			games_played = EXCLUDED.games_played,
			minutes = EXCLUDED.minutes,
			fgm = EXCLUDED.fgm,
			fga = EXCLUDED.fga,
			fg3m = EXCLUDED.fg3m,
			fg3a = EXCLUDED.fg3a,
			ftm = EXCLUDED.ftm,
			fta = EXCLUDED.fta,
			oreb = EXCLUDED.oreb,
			dreb = EXCLUDED.dreb,
			reb = EXCLUDED.reb,
			ast = EXCLUDED.ast,
			stl = EXCLUDED.stl,
			blk = EXCLUDED.blk,
			turnover = EXCLUDED.turnover,
			pf = EXCLUDED.pf,
			pts = EXCLUDED.pts,
			fg_pct = EXCLUDED.fg_pct,
			fg3_pct = EXCLUDED.fg3_pct,
			ft_pct = EXCLUDED.ft_pct,
			updated_at = NOW()`,
		st.PlayerID, st.Season, st.GamesPlayed, st.Minutes,
		st.FGM, st.FGA, st.FG3M, st.FG3A, st.FTM, st.FTA,
		st.OReb, st.DReb, st.Reb, st.Ast, st.Stl, st.Blk, st.Turnover, st.PF, st.Pts,
		st.FGPct, st.FG3Pct, st.FTPct,
	)
	return err
}

// PlayerImages loads the stored headshot state for a page of players using
// the player_images prepared statement.
func (s *PostgresStore) PlayerImages(ctx context.Context, ids []int) (map[int]provider.ImageState, error) {
	out := make(map[int]provider.ImageState, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, "player_images", ids)
	if err != nil {
		return nil, fmt.Errorf("query player images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var state provider.ImageState
		if err := rows.Scan(&id, &state.HasProfilePicture, &state.ProfilePictureURL, &state.NBACDNID); err != nil {
			return nil, fmt.Errorf("scan player images: %w", err)
		}
		out[id] = state
	}
	return out, rows.Err()
}
