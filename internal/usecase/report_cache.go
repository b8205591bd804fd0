package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// reportCache stores encoded reports keyed by their full parameter set.
// A nil cache or non-positive TTL disables it.
type reportCache struct {
	cache domain.CacheRepository
	ttl   time.Duration
}

func (c reportCache) enabled() bool {
	return c.cache != nil && c.ttl > 0
}

// load decodes a cached report into dst and reports whether it was found
func (c reportCache) load(ctx context.Context, key string, dst any) bool {
	if !c.enabled() {
		return false
	}

	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			slog.WarnContext(ctx, "report cache read failed", "key", key, "error", err)
		}
		return false
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		slog.WarnContext(ctx, "report cache entry undecodable", "key", key, "error", err)
		return false
	}
	return true
}

// generation snapshots the cache generation before a report is computed.
// ok is false when the report must not be stored.
func (c reportCache) generation(ctx context.Context) (gen uint64, ok bool) {
	if !c.enabled() {
		return 0, false
	}

	gen, err := c.cache.Generation(ctx)
	if err != nil {
		slog.WarnContext(ctx, "report cache generation read failed", "error", err)
		return 0, false
	}
	return gen, true
}

// store caches v unless the cache was cleared since gen was taken.
// Failures are logged, never returned.
func (c reportCache) store(ctx context.Context, key string, gen uint64, ok bool, v any) {
	if !ok || !c.enabled() {
		return
	}

	raw, err := json.Marshal(v)
	if err != nil {
		slog.WarnContext(ctx, "report cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.cache.SetIfGeneration(ctx, gen, key, raw, c.ttl); err != nil {
		slog.WarnContext(ctx, "report cache write failed", "key", key, "error", err)
	}
}

// invalidate drops every cached report
func (c reportCache) invalidate(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Clear(ctx); err != nil {
		slog.WarnContext(ctx, "report cache clear failed", "error", err)
	}
}
