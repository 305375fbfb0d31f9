// Package cache implements the two-tier fresh/stale TTL cache the trend
// engine uses to avoid re-querying the upstream provider. It is backed by
// Redis so the cache is shared across process instances; reads and writes
// never propagate an error to the caller, matching the "cache must never
// throw" contract the engine relies on.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// fingerprintVersion lets the key format change without colliding with
// entries written by a previous schema.
const fingerprintVersion = "v4"

// Fingerprint identifies one logical query for caching purposes.
type Fingerprint struct {
	Keyword      string
	Country      string
	WindowDays   int
	BaselineDays int
}

// String renders the canonical fresh-key form of the fingerprint.
func (f Fingerprint) String() string {
	return fmt.Sprintf("trend:%s:%s:%s:%d:%d",
		fingerprintVersion,
		strings.ToLower(f.Keyword),
		f.Country,
		f.WindowDays,
		f.BaselineDays,
	)
}

func (f Fingerprint) staleKey() string {
	return f.String() + ":stale"
}

// StaleEntry is the envelope stored under the stale key: the payload plus
// the wall-clock time it was written, so callers can report an age.
type StaleEntry struct {
	Data     json.RawMessage `json:"data"`
	CachedAt time.Time       `json:"cached_at"`
}

// Cache wraps a Redis client with the fresh/stale access pattern.
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// New constructs a Cache over an existing Redis client.
func New(rdb *redis.Client, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{rdb: rdb, logger: logger}
}

// GetFresh returns the payload stored under fp's fresh key, or ok=false on a
// miss or any Redis error (logged, not surfaced).
func (c *Cache) GetFresh(ctx context.Context, fp Fingerprint) (payload json.RawMessage, ok bool) {
	raw, err := c.rdb.Get(ctx, fp.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache fresh read failed", "fingerprint", fp.String(), "error", err)
		}
		return nil, false
	}
	return raw, true
}

// GetStale returns the stale entry for fp, or ok=false on a miss or error.
func (c *Cache) GetStale(ctx context.Context, fp Fingerprint) (entry StaleEntry, ok bool) {
	raw, err := c.rdb.Get(ctx, fp.staleKey()).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache stale read failed", "fingerprint", fp.String(), "error", err)
		}
		return StaleEntry{}, false
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("cache stale entry corrupt", "fingerprint", fp.String(), "error", err)
		return StaleEntry{}, false
	}
	return entry, true
}

// Set writes both the fresh entry (TTL freshTTL) and the stale entry (TTL
// staleTTL, wrapped with the current time) for fp. Write failures are logged
// and otherwise ignored.
func (c *Cache) Set(ctx context.Context, fp Fingerprint, payload json.RawMessage, freshTTL, staleTTL time.Duration) {
	if err := c.rdb.Set(ctx, fp.String(), []byte(payload), freshTTL).Err(); err != nil {
		c.logger.Warn("cache fresh write failed", "fingerprint", fp.String(), "error", err)
	}

	stale := StaleEntry{Data: payload, CachedAt: time.Now().UTC()}
	encoded, err := json.Marshal(stale)
	if err != nil {
		c.logger.Warn("cache stale encode failed", "fingerprint", fp.String(), "error", err)
		return
	}
	if err := c.rdb.Set(ctx, fp.staleKey(), encoded, staleTTL).Err(); err != nil {
		c.logger.Warn("cache stale write failed", "fingerprint", fp.String(), "error", err)
	}
}

// TTL returns the remaining seconds of the fresh entry, or -1 if absent or
// on error.
func (c *Cache) TTL(ctx context.Context, fp Fingerprint) int {
	d, err := c.rdb.TTL(ctx, fp.String()).Result()
	if err != nil || d < 0 {
		return -1
	}
	return int(d.Seconds())
}

// Delete removes the fresh entry only; the stale entry is left untouched so
// it can still serve as a fallback.
func (c *Cache) Delete(ctx context.Context, fp Fingerprint) {
	if err := c.rdb.Del(ctx, fp.String()).Err(); err != nil {
		c.logger.Warn("cache delete failed", "fingerprint", fp.String(), "error", err)
	}
}
