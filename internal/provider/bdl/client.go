// Package bdl provides the HTTP client for the BallDontLie NBA roster and
// statistics API.
//
// BDL uses cursor-based pagination and Authorization header auth.
// Rate limiting is handled via a token bucket limiter; a 429 response is
// retried exactly once after a fixed backoff.
package bdl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/albapepper/hoopsync/internal/metrics"
	"github.com/albapepper/hoopsync/internal/provider"
)

const (
	providerName = "balldontlie"

	// DefaultBaseURL is the production API root.
	DefaultBaseURL = "https://api.balldontlie.io/v1"

	defaultRetryDelay = 1 * time.Second
)

// StatusError is returned when BDL answers with a non-200 status.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("BDL %s returned %d: %s", e.Path, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return provider.ErrUpstream }

// Client is the HTTP client for all BDL endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	retryDelay time.Duration
	logger     zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryDelay overrides the backoff applied before retrying a 429.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// NewClient creates a BDL HTTP client with rate limiting.
func NewClient(baseURL, apiKey string, requestsPerMinute int, logger zerolog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if requestsPerMinute < 1 {
		requestsPerMinute = 60
	}
	rps := float64(requestsPerMinute) / 60.0
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		retryDelay: defaultRetryDelay,
		logger:     logger.With().Str("component", "bdl").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// paginatedResponse is the common BDL response wrapper.
type paginatedResponse struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		NextCursor *int `json:"next_cursor"`
	} `json:"meta"`
}

// nextCursor returns the opaque cursor token, or "" on the last page.
func (r *paginatedResponse) nextCursor() string {
	if r.Meta.NextCursor == nil {
		return ""
	}
	return strconv.Itoa(*r.Meta.NextCursor)
}

// get performs a rate-limited GET request to a BDL endpoint. A 429 is retried
// once after retryDelay; any other non-200 status is returned as *StatusError.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*paginatedResponse, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	body, status, err := c.do(ctx, path, u)
	if err != nil {
		return nil, err
	}

	if status == http.StatusTooManyRequests {
		c.logger.Warn().Str("path", path).Dur("backoff", c.retryDelay).Msg("Rate limited by BDL, retrying once")
		metrics.RecordRetry(providerName)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryDelay):
		}

		body, status, err = c.do(ctx, path, u)
		if err != nil {
			return nil, err
		}
	}

	if status != http.StatusOK {
		return nil, &StatusError{Path: path, StatusCode: status, Body: truncate(body, 200)}
	}

	var result paginatedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}

// do runs a single attempt and returns the body and status code.
func (c *Client) do(ctx context.Context, path, u string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(providerName, path, "error", time.Since(start).Seconds())
		return nil, 0, fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordAPICall(providerName, path, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}

	c.logger.Debug().Str("path", path).Int("status", resp.StatusCode).Msg("BDL request")
	return body, resp.StatusCode, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
