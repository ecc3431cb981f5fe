package seed

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/albapepper/hoopsync/internal/metrics"
	"github.com/albapepper/hoopsync/internal/provider"
	"github.com/albapepper/hoopsync/internal/storage"
)

const headshotContentType = "image/png"

// HeadshotPath is the object storage key for a directory id.
func HeadshotPath(cdnID int) string {
	return "players/" + strconv.Itoa(cdnID) + ".png"
}

// resolveImage fills in the player's image fields in place. It never returns
// an error: every failure is logged and the player keeps whatever was
// resolved so far (possibly just a newly found cdn id). Returns true when a
// headshot was uploaded.
func (s *Syncer) resolveImage(ctx context.Context, p *provider.Player, logger zerolog.Logger) bool {
	if p.HasProfilePicture || !s.imagesEnabled() {
		return false
	}

	if p.NBACDNID == nil {
		id, ok, err := s.directory.FindPlayerID(ctx, p.FirstName, p.LastName)
		if err != nil {
			logger.Warn().Err(err).Int("player_id", p.ID).Msg("Directory lookup failed")
			return false
		}
		if !ok {
			logger.Info().Int("player_id", p.ID).Str("name", p.FullName()).Msg("No directory match, skipping headshot")
			return false
		}
		p.NBACDNID = &id
	}
	cdnID := *p.NBACDNID

	data, err := s.directory.FetchHeadshot(ctx, cdnID)
	if err != nil {
		logger.Warn().Err(err).Int("player_id", p.ID).Int("nba_cdn_id", cdnID).Msg("Headshot fetch failed")
		return false
	}

	path := HeadshotPath(cdnID)
	opts := storage.UploadOptions{ContentType: headshotContentType, Upsert: true}
	if err := s.objects.Upload(ctx, path, data, opts); err != nil {
		logger.Warn().Err(err).Int("player_id", p.ID).Str("path", path).Msg("Headshot upload failed")
		return false
	}

	url := s.objects.PublicURL(path)
	p.ProfilePictureURL = &url
	p.HasProfilePicture = true
	metrics.RecordImageUpload()
	logger.Info().Int("player_id", p.ID).Str("path", path).Msg("Headshot uploaded")
	return true
}

func (s *Syncer) imagesEnabled() bool {
	return s.directory != nil && s.objects != nil
}
