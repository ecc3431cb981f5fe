// Package handler provides HTTP handlers for the admin API: health checks,
// sync control and the live sync log.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/albapepper/hoopsync/internal/api/respond"
	"github.com/albapepper/hoopsync/internal/db"
	"github.com/albapepper/hoopsync/internal/runner"
	"github.com/albapepper/hoopsync/internal/seed"
)

// Database is the part of the connection pool the health checks use.
type Database interface {
	HealthCheck(ctx context.Context) error
	Counts(ctx context.Context) (db.TableCounts, error)
}

// CacheStats describes the cache backend.
type CacheStats interface {
	Stats(ctx context.Context) map[string]interface{}
}

// SyncRunner starts, stops and reports on sync runs.
type SyncRunner interface {
	Start(ctx context.Context, opts seed.Options) error
	Stop()
	Status() runner.Status
}

// LogSource serves recent and live sync log lines.
type LogSource interface {
	Recent(n int) []string
	Subscribe() (<-chan string, func())
}

// Deps are the handler dependencies. DB may be nil when the store is not
// Postgres.
type Deps struct {
	DB     Database
	Cache  CacheStats
	Runner SyncRunner
	Logs   LogSource
	// Context bounds sync runs started over HTTP. It should be the server's
	// lifetime context, not a request context.
	Context context.Context
	Logger  zerolog.Logger
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	db      Database
	cache   CacheStats
	runner  SyncRunner
	logs    LogSource
	baseCtx context.Context
	logger  zerolog.Logger
	now     func() time.Time
}

// New creates a Handler with shared dependencies.
func New(deps Deps) *Handler {
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &Handler{
		db:      deps.DB,
		cache:   deps.Cache,
		runner:  deps.Runner,
		logs:    deps.Logs,
		baseCtx: ctx,
		logger:  deps.Logger.With().Str("component", "api").Logger(),
		now:     time.Now,
	}
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"syncing":   h.runner.Status().IsSyncing,
		"timestamp": h.timestamp(),
	})
}

// HealthCheckDB verifies database connectivity and reports row counts.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "No Postgres connection is configured")
		return
	}
	if err := h.db.HealthCheck(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("Database health check failed")
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": h.timestamp(),
		})
		return
	}

	body := map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": h.timestamp(),
	}
	if counts, err := h.db.Counts(r.Context()); err == nil {
		body["counts"] = counts
	} else {
		h.logger.Warn().Err(err).Msg("Table counts unavailable")
	}
	respond.WriteJSONObject(w, http.StatusOK, body)
}

// HealthCheckCache returns cache statistics. A Redis backend is pinged.
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "No cache is configured")
		return
	}
	stats := h.cache.Stats(r.Context())
	status, code := "healthy", http.StatusOK
	if connected, ok := stats["connected"].(bool); ok && !connected {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	respond.WriteJSONObject(w, code, map[string]interface{}{
		"status":    status,
		"cache":     stats,
		"timestamp": h.timestamp(),
	})
}

// SyncStatus reports whether a sync is running and how the last one ended.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, h.runner.Status())
}

// startRequest is the optional JSON body of POST /sync/start.
type startRequest struct {
	Cursor   string `json:"cursor"`
	Season   int    `json:"season"`
	PageSize int    `json:"page_size"`
}

// StartSync launches a background sync. Responds 202 when started and 409
// when a sync is already running.
func (h *Handler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON", err.Error())
		return
	}
	if req.PageSize < 0 || req.PageSize > 100 {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_PAGE_SIZE", "page_size must be between 1 and 100")
		return
	}

	opts := seed.Options{Cursor: req.Cursor, Season: req.Season, PageSize: req.PageSize}
	if err := h.runner.Start(h.baseCtx, opts); err != nil {
		if errors.Is(err, runner.ErrAlreadyRunning) {
			respond.WriteError(w, http.StatusConflict, "SYNC_RUNNING", "A sync is already running")
			return
		}
		h.logger.Error().Err(err).Msg("Sync start failed")
		respond.WriteError(w, http.StatusInternalServerError, "SYNC_START_FAILED", "Sync could not be started")
		return
	}

	h.logger.Info().Str("cursor", req.Cursor).Int("season", req.Season).Msg("Sync started over HTTP")
	respond.WriteJSONObject(w, http.StatusAccepted, map[string]interface{}{
		"status":    "started",
		"timestamp": h.timestamp(),
	})
}

// StopSync requests a cooperative stop. The run halts at its next checkpoint.
func (h *Handler) StopSync(w http.ResponseWriter, r *http.Request) {
	syncing := h.runner.Status().IsSyncing
	h.runner.Stop()
	status := "stopping"
	if !syncing {
		status = "idle"
	}
	respond.WriteJSONObject(w, http.StatusAccepted, map[string]interface{}{
		"status":    status,
		"timestamp": h.timestamp(),
	})
}

// SyncLogs returns the most recent log lines. ?limit= caps the count.
func (h *Handler) SyncLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}
	lines := h.logs.Recent(limit)
	if lines == nil {
		lines = []string{}
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"lines": lines,
		"count": len(lines),
	})
}

// StreamSyncLogs streams new log lines as Server-Sent Events until the
// client disconnects.
func (h *Handler) StreamSyncLogs(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respond.WriteError(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", "Streaming is not supported")
		return
	}

	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	lines, unsubscribe := h.logs.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case line, open := <-lines:
			if !open {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", line)
			flusher.Flush()
		}
	}
}
