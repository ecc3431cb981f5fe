package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/hoopsync/internal/provider"
)

func TestHeadshotPath(t *testing.T) {
	assert.Equal(t, "players/1628369.png", HeadshotPath(1628369))
}

func TestImages_LookupFetchAndUpload(t *testing.T) {
	h := newHarness()
	h.dir.ids["Jaylen Brown"] = 1627759
	h.dir.headshots[1627759] = []byte("PNG")

	summary, err := h.syncer.Start(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ImagesUploaded)
	assert.Equal(t, []byte("PNG"), h.objects.uploads["players/1627759.png"])
	opts := h.objects.opts["players/1627759.png"]
	assert.Equal(t, "image/png", opts.ContentType)
	assert.True(t, opts.Upsert)

	p := h.store.player(102)
	assert.True(t, p.HasProfilePicture)
	require.NotNil(t, p.ProfilePictureURL)
	assert.Equal(t, "https://cdn.example.com/players/1627759.png", *p.ProfilePictureURL)
	require.NotNil(t, p.NBACDNID)
	assert.Equal(t, 1627759, *p.NBACDNID)

	// Image work happens before the player row is written.
	assert.Less(t, h.log.index("upload:players/1627759.png"), h.log.index("player:102"))
}

func TestImages_DirectoryMissLeavesImageFieldsEmpty(t *testing.T) {
	h := newHarness()

	_, err := h.syncer.Start(context.Background(), Options{})
	require.NoError(t, err)

	tatum := h.store.player(101)
	assert.False(t, tatum.HasProfilePicture)
	assert.Nil(t, tatum.NBACDNID)
	assert.Nil(t, tatum.ProfilePictureURL)
	assert.Empty(t, h.objects.uploads, "no upload attempted")
	assert.Zero(t, h.dir.fetches)
	assert.NotEqual(t, -1, h.log.index("lookup:Jayson Tatum"))
}

func TestImages_SkipWhenPictureAlreadyStored(t *testing.T) {
	h := newHarness()
	url := "https://cdn.example.com/players/1628369.png"
	cdnID := 1628369
	stored := player(101, "Jayson", "Tatum")
	stored.ImageState = provider.ImageState{HasProfilePicture: true, ProfilePictureURL: &url, NBACDNID: &cdnID}
	h.store.players[101] = stored
	h.dir.ids["Jayson Tatum"] = cdnID
	h.dir.headshots[cdnID] = []byte("PNG")

	_, err := h.syncer.Start(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, -1, h.log.index("lookup:Jayson Tatum"), "no directory call")
	assert.Equal(t, -1, h.log.index("headshot:1628369"), "no image fetch")
	assert.Equal(t, -1, h.log.index("upload:players/1628369.png"), "no upload")

	p := h.store.player(101)
	assert.True(t, p.HasProfilePicture)
	assert.Equal(t, url, *p.ProfilePictureURL)
}

func TestImages_KnownCDNIDSkipsLookup(t *testing.T) {
	h := newHarness()
	cdnID := 1628369
	stored := player(101, "Jayson", "Tatum")
	stored.NBACDNID = &cdnID
	h.store.players[101] = stored
	h.dir.headshots[cdnID] = []byte("PNG")

	_, err := h.syncer.Start(context.Background(), Options{})
	require.NoError(t, err)

	assert.Equal(t, -1, h.log.index("lookup:Jayson Tatum"))
	assert.NotEqual(t, -1, h.log.index("headshot:1628369"))
	assert.True(t, h.store.player(101).HasProfilePicture)
}

func TestImages_FetchFailureKeepsDiscoveredID(t *testing.T) {
	h := newHarness()
	h.dir.ids["Jayson Tatum"] = 1628369

	summary, err := h.syncer.Start(context.Background(), Options{})
	require.NoError(t, err)

	p := h.store.player(101)
	assert.False(t, p.HasProfilePicture)
	require.NotNil(t, p.NBACDNID, "the discovered id is cached on the row")
	assert.Equal(t, 1628369, *p.NBACDNID)
	assert.Empty(t, h.objects.uploads)

	o, _ := summary.Outcome(101)
	assert.Equal(t, OutcomeSynced, o.Status, "image failures never fail the player")
}

func TestImages_UploadFailureIsSwallowed(t *testing.T) {
	h := newHarness()
	h.dir.ids["Jayson Tatum"] = 1628369
	h.dir.headshots[1628369] = []byte("PNG")
	h.objects.uploadErr = errors.New("bucket not found")

	summary, err := h.syncer.Start(context.Background(), Options{})
	require.NoError(t, err)

	p := h.store.player(101)
	assert.False(t, p.HasProfilePicture)
	assert.Nil(t, p.ProfilePictureURL)
	require.NotNil(t, p.NBACDNID)
	assert.Zero(t, summary.ImagesUploaded)
	assert.Equal(t, 4, summary.Count(OutcomeSynced))
}

func TestImages_LookupErrorIsSwallowed(t *testing.T) {
	h := newHarness()
	h.dir.lookupErr = errors.New("directory timeout")

	summary, err := h.syncer.Start(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Count(OutcomeSynced))
	assert.Zero(t, h.dir.fetches)
}

func TestImages_UnreadableImageStateSkipsHeadshots(t *testing.T) {
	h := newHarness()
	h.store.imagesErr = errors.New("timeout")
	h.dir.ids["Jayson Tatum"] = 1628369

	summary, err := h.syncer.Start(context.Background(), Options{})
	require.NoError(t, err)

	assert.Zero(t, h.dir.lookups)
	assert.Equal(t, 4, summary.PlayersUpserted)
}

func TestImages_DisabledWithoutObjectStore(t *testing.T) {
	h := newHarness()
	h.dir.ids["Jayson Tatum"] = 1628369
	s := NewSyncer(h.roster, h.store, h.dir, nil, Config{Season: 2024}, h.syncer.logger)
	s.sleep = h.syncer.sleep

	_, err := s.Start(context.Background(), Options{})
	require.NoError(t, err)

	assert.Zero(t, h.dir.lookups)
	assert.Zero(t, h.store.imageLoads)
	assert.Equal(t, 4, h.store.playerUpserts)
}
