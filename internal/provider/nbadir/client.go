// Package nbadir looks up league directory identifiers for players and
// downloads their headshots from the league CDN.
//
// The directory endpoint returns the whole roster in one response, so the
// client fetches it once per season, indexes it by lower-cased name, and
// serves every lookup from that index. The index is reloaded after 24h and
// shared through the cache.
package nbadir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/albapepper/hoopsync/internal/cache"
	"github.com/albapepper/hoopsync/internal/metrics"
)

const (
	// DefaultDirectoryURL is the league player index endpoint.
	DefaultDirectoryURL = "https://stats.nba.com/stats/playerindex"

	// DefaultHeadshotBaseURL is the CDN folder holding 1040x760 PNG headshots.
	DefaultHeadshotBaseURL = "https://cdn.nba.com/headshots/nba/latest/1040x760"

	directoryProvider = "nba_directory"
	cdnProvider       = "nba_cdn"

	// failureBackoff stops a broken directory from being hit once per player.
	failureBackoff = 5 * time.Minute
)

// ErrHeadshotUnavailable is returned when the CDN has no image for an id.
var ErrHeadshotUnavailable = errors.New("headshot unavailable")

// Client talks to the league directory and the headshot CDN. It has no retry
// policy: a failed directory listing means every lookup misses.
type Client struct {
	httpClient      *http.Client
	directoryURL    string
	headshotBaseURL string
	seasonFor       func(now time.Time) int
	cache           cache.Cache
	logger          zerolog.Logger

	mu          sync.Mutex
	index       map[string]int
	indexSeason string
	loadedAt    time.Time
	failedAt    time.Time
	nowFunc     func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSeason pins the season the directory is queried for (e.g. 2024 for
// the 2024-25 season). Without a season the directory's own default applies.
func WithSeason(season int) Option {
	return func(c *Client) { c.seasonFor = func(time.Time) int { return season } }
}

// WithSeasonFunc resolves the season on every roster load, so a long-running
// process follows the season rollover.
func WithSeasonFunc(fn func(now time.Time) int) Option {
	return func(c *Client) { c.seasonFor = fn }
}

// WithCache shares the roster index through c.
func WithCache(c cache.Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

// NewClient creates a directory/CDN client.
func NewClient(directoryURL, headshotBaseURL string, logger zerolog.Logger, opts ...Option) *Client {
	if directoryURL == "" {
		directoryURL = DefaultDirectoryURL
	}
	if headshotBaseURL == "" {
		headshotBaseURL = DefaultHeadshotBaseURL
	}
	c := &Client{
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		directoryURL:    directoryURL,
		headshotBaseURL: strings.TrimRight(headshotBaseURL, "/"),
		logger:          logger.With().Str("component", "nbadir").Logger(),
		nowFunc:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SeasonLabel formats a starting year the way the directory expects: 2024 -> "2024-25".
func SeasonLabel(season int) string {
	if season <= 0 {
		return ""
	}
	return fmt.Sprintf("%d-%02d", season, (season+1)%100)
}

// --------------------------------------------------------------------------
// Directory lookup
// --------------------------------------------------------------------------

// FindPlayerID returns the directory id for an exact, case-insensitive
// first+last name match. ok is false when there is no match or when the
// directory could not be read. err is reserved for context cancellation.
func (c *Client) FindPlayerID(ctx context.Context, firstName, lastName string) (id int, ok bool, err error) {
	index, err := c.roster(ctx)
	if err != nil {
		return 0, false, err
	}
	id, ok = index[nameKey(firstName, lastName)]
	return id, ok, nil
}

func nameKey(first, last string) string {
	return strings.ToLower(strings.TrimSpace(first)) + "|" + strings.ToLower(strings.TrimSpace(last))
}

func (c *Client) seasonLabel(now time.Time) string {
	if c.seasonFor == nil {
		return ""
	}
	return SeasonLabel(c.seasonFor(now))
}

func cacheKey(season string) string {
	return "nbadir:roster:" + season
}

// roster returns the name index for the current season. The index is
// reloaded once it is older than cache.TTLDirectory or the season changed.
// Failures yield an empty index and are not retried until failureBackoff has
// passed.
func (c *Client) roster(ctx context.Context) (map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	season := c.seasonLabel(now)
	if c.index != nil && c.indexSeason == season && now.Sub(c.loadedAt) < cache.TTLDirectory {
		return c.index, nil
	}
	if !c.failedAt.IsZero() && now.Sub(c.failedAt) < failureBackoff {
		if c.index != nil && c.indexSeason == season {
			return c.index, nil
		}
		return map[string]int{}, nil
	}

	if c.cache != nil && (c.index == nil || c.indexSeason != season) {
		if data, hit := c.cache.Get(ctx, cacheKey(season)); hit {
			var index map[string]int
			if err := json.Unmarshal(data, &index); err == nil {
				c.store(index, season, now)
				return index, nil
			}
		}
	}

	index, err := c.fetchRoster(ctx, season)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.failedAt = now
		if c.index != nil && c.indexSeason == season {
			c.logger.Warn().Err(err).Str("season", season).Msg("Directory refresh failed, keeping previous roster")
			return c.index, nil
		}
		c.logger.Warn().Err(err).Str("season", season).Msg("Directory roster unavailable, lookups will miss")
		return map[string]int{}, nil
	}

	c.store(index, season, now)
	if c.cache != nil {
		if data, err := json.Marshal(index); err == nil {
			c.cache.Set(ctx, cacheKey(season), data, cache.TTLDirectory)
		}
	}
	c.logger.Info().Int("players", len(index)).Str("season", season).Msg("Directory roster loaded")
	return index, nil
}

func (c *Client) store(index map[string]int, season string, now time.Time) {
	c.index = index
	c.indexSeason = season
	c.loadedAt = now
	c.failedAt = time.Time{}
}

// playerIndexResponse is the stats.nba.com resultSets envelope.
type playerIndexResponse struct {
	ResultSets []struct {
		Name    string              `json:"name"`
		Headers []string            `json:"headers"`
		RowSet  [][]json.RawMessage `json:"rowSet"`
	} `json:"resultSets"`
}

func (c *Client) fetchRoster(ctx context.Context, season string) (map[string]int, error) {
	params := url.Values{
		"LeagueID":   {"00"},
		"Historical": {"1"},
	}
	if season != "" {
		params.Set("Season", season)
	}
	u := c.directoryURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	setBrowserHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(directoryProvider, "/playerindex", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()
	metrics.RecordAPICall(directoryProvider, "/playerindex", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read directory body: %w", err)
	}
	return parsePlayerIndex(body)
}

// parsePlayerIndex builds the name index from the first result set. The first
// row for a given name wins.
func parsePlayerIndex(body []byte) (map[string]int, error) {
	var payload playerIndexResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode directory: %w", err)
	}
	if len(payload.ResultSets) == 0 {
		return nil, errors.New("directory response has no result sets")
	}
	rs := payload.ResultSets[0]

	idCol, firstCol, lastCol := -1, -1, -1
	for i, h := range rs.Headers {
		switch h {
		case "PERSON_ID":
			idCol = i
		case "PLAYER_FIRST_NAME":
			firstCol = i
		case "PLAYER_LAST_NAME":
			lastCol = i
		}
	}
	if idCol < 0 || firstCol < 0 || lastCol < 0 {
		return nil, fmt.Errorf("directory headers missing name/id columns: %v", rs.Headers)
	}

	index := make(map[string]int, len(rs.RowSet))
	for _, row := range rs.RowSet {
		if len(row) <= idCol || len(row) <= firstCol || len(row) <= lastCol {
			continue
		}
		var id int
		var first, last string
		if json.Unmarshal(row[idCol], &id) != nil || id == 0 {
			continue
		}
		if json.Unmarshal(row[firstCol], &first) != nil || json.Unmarshal(row[lastCol], &last) != nil {
			continue
		}
		key := nameKey(first, last)
		if _, exists := index[key]; !exists {
			index[key] = id
		}
	}
	return index, nil
}

// setBrowserHeaders mimics a browser; the directory rejects bare clients.
func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Referer", "https://www.nba.com/")
	req.Header.Set("Origin", "https://www.nba.com")
	req.Header.Set("x-nba-stats-origin", "stats")
	req.Header.Set("x-nba-stats-token", "true")
}

// --------------------------------------------------------------------------
// Headshots
// --------------------------------------------------------------------------

// HeadshotURL is the deterministic CDN URL for a directory id.
func (c *Client) HeadshotURL(id int) string {
	return c.headshotBaseURL + "/" + strconv.Itoa(id) + ".png"
}

// FetchHeadshot downloads the PNG headshot for a directory id. Any non-200
// response yields ErrHeadshotUnavailable.
func (c *Client) FetchHeadshot(ctx context.Context, id int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.HeadshotURL(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(cdnProvider, "/headshots", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("headshot request %d: %w", id, err)
	}
	defer resp.Body.Close()
	metrics.RecordAPICall(cdnProvider, "/headshots", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("headshot %d: status %d: %w", id, resp.StatusCode, ErrHeadshotUnavailable)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read headshot %d: %w", id, err)
	}
	return data, nil
}
