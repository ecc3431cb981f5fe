// Package cache provides a small key/value cache with TTLs, backed either by
// process memory or by Redis.
package cache

import (
	"context"
	"sync"
	"time"
)

// TTL constants.
const (
	TTLDirectory = 24 * time.Hour   // League directory roster, changes a few times a season
	TTLStatus    = time.Duration(0) // Sync status markers never expire
)

// Cache is the storage contract shared by the memory and Redis backends.
// A miss and a backend failure both report ok=false; callers treat the cache
// as an optimisation only.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration)
	// Stats describes the backend for the health endpoint.
	Stats(ctx context.Context) map[string]interface{}
}

type entry struct {
	data      []byte
	expiresAt time.Time // zero = no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is a thread-safe in-memory TTL cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	enabled bool
	done    chan struct{}
	once    sync.Once
}

// NewMemory creates a new cache. Pass enabled=false to create a no-op cache.
func NewMemory(enabled bool) *Memory {
	c := &Memory{
		entries: make(map[string]entry),
		enabled: enabled,
		done:    make(chan struct{}),
	}
	if enabled {
		go c.evictLoop()
	}
	return c
}

// Get retrieves a cached value.
func (c *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, exists := c.entries[key]
	if !exists || e.expired(time.Now()) {
		return nil, false
	}
	return e.data, true
}

// Set stores a value. ttl <= 0 keeps it until the process exits.
func (c *Memory) Set(_ context.Context, key string, data []byte, ttl time.Duration) {
	if !c.enabled {
		return
	}
	e := entry{data: data}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}

// Stats returns cache statistics.
func (c *Memory) Stats(_ context.Context) map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	active := 0
	now := time.Now()
	for _, e := range c.entries {
		if !e.expired(now) {
			active++
		}
	}
	return map[string]interface{}{
		"backend":      "memory",
		"enabled":      c.enabled,
		"total_keys":   len(c.entries),
		"active_keys":  active,
		"expired_keys": len(c.entries) - active,
	}
}

// Close stops the eviction goroutine.
func (c *Memory) Close() {
	c.once.Do(func() { close(c.done) })
}

// evictLoop periodically removes expired entries.
func (c *Memory) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evict()
		}
	}
}

func (c *Memory) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
		}
	}
}
