package seed

import (
	"context"

	"github.com/albapepper/hoopsync/internal/provider"
)

// Store persists the synced entities. Every write is an idempotent upsert
// keyed by the upstream id, so repeated runs converge.
type Store interface {
	UpsertTeam(ctx context.Context, team provider.Team) error
	UpsertPlayer(ctx context.Context, player provider.Player) error
	UpsertPlayerStats(ctx context.Context, stats provider.PlayerSeasonStats) error

	// PlayerImages returns the stored headshot state for the given ids.
	// Ids with no stored row are absent from the map.
	PlayerImages(ctx context.Context, ids []int) (map[int]provider.ImageState, error)
}
