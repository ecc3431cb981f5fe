package seed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/albapepper/hoopsync/internal/provider"
	"github.com/albapepper/hoopsync/internal/provider/bdl"
	"github.com/albapepper/hoopsync/internal/storage"
)

// eventLog records calls across fakes so tests can assert ordering.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *eventLog) index(event string) int {
	for i, e := range l.all() {
		if e == event {
			return i
		}
	}
	return -1
}

// --------------------------------------------------------------------------
// Roster
// --------------------------------------------------------------------------

type listCall struct {
	Cursor  string
	PerPage int
}

type fakeRoster struct {
	log   *eventLog
	pages map[string]*bdl.PlayerPage
	stats map[int][]provider.PlayerSeasonStats

	listErr  map[string]error
	statsErr map[int]error

	mu        sync.Mutex
	listCalls []listCall
}

func (f *fakeRoster) ListPlayers(_ context.Context, cursor string, perPage int) (*bdl.PlayerPage, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, listCall{Cursor: cursor, PerPage: perPage})
	f.mu.Unlock()
	f.log.add("list:%s:%d", cursor, perPage)

	if err := f.listErr[cursor]; err != nil {
		return nil, err
	}
	page, ok := f.pages[cursor]
	if !ok {
		return nil, fmt.Errorf("unexpected cursor %q", cursor)
	}
	return page, nil
}

func (f *fakeRoster) GetSeasonAverages(_ context.Context, playerID, season int) ([]provider.PlayerSeasonStats, error) {
	f.log.add("averages:%d", playerID)
	if err := f.statsErr[playerID]; err != nil {
		return nil, err
	}
	return f.stats[playerID], nil
}

func (f *fakeRoster) calls() []listCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]listCall(nil), f.listCalls...)
}

// --------------------------------------------------------------------------
// Store
// --------------------------------------------------------------------------

type memStore struct {
	log *eventLog

	mu      sync.Mutex
	teams   map[int]provider.Team
	players map[int]provider.Player
	stats   map[[2]int]provider.PlayerSeasonStats

	teamUpserts   int
	playerUpserts int
	statsUpserts  int

	teamErr    map[int]error
	playerErr  map[int]error
	imagesErr  error
	onTeam     func(provider.Team)
	onPlayer   func(provider.Player)
	imageLoads int
}

func newMemStore(log *eventLog) *memStore {
	return &memStore{
		log:     log,
		teams:   map[int]provider.Team{},
		players: map[int]provider.Player{},
		stats:   map[[2]int]provider.PlayerSeasonStats{},
	}
}

func (s *memStore) UpsertTeam(_ context.Context, team provider.Team) error {
	if s.onTeam != nil {
		s.onTeam(team)
	}
	s.log.add("team:%d", team.ID)
	if err := s.teamErr[team.ID]; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teamUpserts++
	s.teams[team.ID] = team
	return nil
}

func (s *memStore) UpsertPlayer(_ context.Context, p provider.Player) error {
	s.log.add("player:%d", p.ID)
	if err := s.playerErr[p.ID]; err != nil {
		return err
	}
	s.mu.Lock()
	s.playerUpserts++
	// Image fields only move forward, like the SQL upsert.
	if prev, ok := s.players[p.ID]; ok {
		p.HasProfilePicture = p.HasProfilePicture || prev.HasProfilePicture
		if p.ProfilePictureURL == nil {
			p.ProfilePictureURL = prev.ProfilePictureURL
		}
		if p.NBACDNID == nil {
			p.NBACDNID = prev.NBACDNID
		}
	}
	s.players[p.ID] = p
	s.mu.Unlock()

	if s.onPlayer != nil {
		s.onPlayer(p)
	}
	return nil
}

func (s *memStore) UpsertPlayerStats(_ context.Context, st provider.PlayerSeasonStats) error {
	s.log.add("stats:%d", st.PlayerID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsUpserts++
	s.stats[[2]int{st.PlayerID, st.Season}] = st
	return nil
}

func (s *memStore) PlayerImages(_ context.Context, ids []int) (map[int]provider.ImageState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageLoads++
	if s.imagesErr != nil {
		return nil, s.imagesErr
	}
	out := map[int]provider.ImageState{}
	for _, id := range ids {
		if p, ok := s.players[id]; ok {
			out[id] = p.ImageState
		}
	}
	return out, nil
}

func (s *memStore) player(id int) provider.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players[id]
}

// --------------------------------------------------------------------------
// Directory and object storage
// --------------------------------------------------------------------------

type fakeDirectory struct {
	log       *eventLog
	ids       map[string]int
	headshots map[int][]byte
	lookupErr error

	lookups int
	fetches int
}

func (d *fakeDirectory) FindPlayerID(_ context.Context, first, last string) (int, bool, error) {
	d.lookups++
	d.log.add("lookup:%s %s", first, last)
	if d.lookupErr != nil {
		return 0, false, d.lookupErr
	}
	id, ok := d.ids[first+" "+last]
	return id, ok, nil
}

func (d *fakeDirectory) FetchHeadshot(_ context.Context, id int) ([]byte, error) {
	d.fetches++
	d.log.add("headshot:%d", id)
	data, ok := d.headshots[id]
	if !ok {
		return nil, fmt.Errorf("headshot %d: status 404: %w", id, errHeadshotMissing)
	}
	return data, nil
}

var errHeadshotMissing = errors.New("headshot unavailable")

type fakeObjects struct {
	log       *eventLog
	uploads   map[string][]byte
	opts      map[string]storage.UploadOptions
	uploadErr error
}

func newFakeObjects(log *eventLog) *fakeObjects {
	return &fakeObjects{
		log:     log,
		uploads: map[string][]byte{},
		opts:    map[string]storage.UploadOptions{},
	}
}

func (o *fakeObjects) Upload(_ context.Context, path string, data []byte, opts storage.UploadOptions) error {
	o.log.add("upload:%s", path)
	if o.uploadErr != nil {
		return o.uploadErr
	}
	o.uploads[path] = data
	o.opts[path] = opts
	return nil
}

func (o *fakeObjects) PublicURL(path string) string {
	return "https://cdn.example.com/" + path
}

// --------------------------------------------------------------------------
// Fixtures
// --------------------------------------------------------------------------

var celtics = &provider.Team{ID: 1, City: "Boston", Name: "Celtics"}

func player(id int, first, last string) provider.Player {
	teamID := celtics.ID
	return provider.Player{ID: id, FirstName: first, LastName: last, TeamID: &teamID, Team: celtics}
}

func averages(playerID int) []provider.PlayerSeasonStats {
	return []provider.PlayerSeasonStats{{PlayerID: playerID, Season: 2024, GamesPlayed: 10, Pts: 20}}
}

// twoPageRoster is two pages of two players; page 1 carries cursor "10".
// Player 4 has no season averages.
func twoPageRoster(log *eventLog) *fakeRoster {
	return &fakeRoster{
		log: log,
		pages: map[string]*bdl.PlayerPage{
			"": {
				Players:    []provider.Player{player(101, "Jayson", "Tatum"), player(102, "Jaylen", "Brown")},
				NextCursor: "10",
			},
			"10": {
				Players: []provider.Player{player(103, "Derrick", "White"), player(104, "Jrue", "Holiday")},
			},
		},
		stats: map[int][]provider.PlayerSeasonStats{
			101: averages(101),
			102: averages(102),
			103: averages(103),
		},
	}
}

type harness struct {
	log     *eventLog
	roster  *fakeRoster
	store   *memStore
	dir     *fakeDirectory
	objects *fakeObjects
	sleeps  []time.Duration
	syncer  *Syncer
}

// newHarness wires a Syncer against fakes with headshots enabled.
func newHarness() *harness {
	log := &eventLog{}
	h := &harness{
		log:    log,
		roster: twoPageRoster(log),
		store:  newMemStore(log),
		dir: &fakeDirectory{
			log:       log,
			ids:       map[string]int{},
			headshots: map[int][]byte{},
		},
		objects: newFakeObjects(log),
	}
	h.syncer = NewSyncer(h.roster, h.store, h.dir, h.objects, Config{Season: 2024}, zerolog.Nop())
	h.syncer.sleep = func(_ context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		log.add("sleep:%s", d)
		return nil
	}
	return h
}
