package taskhistory

import (
	"context"
	"sync"
	"time"
)

// CachedProvider wraps a Provider with a single-version in-memory cache
// honoring Config.TTLMs, per spec.md §4.B. Only one snapshot is ever held;
// a cache hit returns it with CacheHit set, a miss re-fetches from the
// wrapped provider and replaces it.
type CachedProvider struct {
	mu       sync.Mutex
	cfg      Config
	inner    Provider
	cached   Snapshot
	hasEntry bool
	limit    int
}

// NewCachedProvider wraps inner with a TTL cache.
func NewCachedProvider(cfg Config, inner Provider) *CachedProvider {
	return &CachedProvider{cfg: cfg, inner: inner}
}

// GetRecent returns the cached snapshot (with CacheHit=true) if it is still
// within TTL and was fetched for the same limit; otherwise it refetches.
func (c *CachedProvider) GetRecent(ctx context.Context, limit int) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := nowFn()
	if c.hasEntry && c.limit == limit && now.Sub(c.cached.FetchedAt) <= time.Duration(c.cfg.TTLMs)*time.Millisecond {
		hit := c.cached
		hit.CacheHit = true
		return hit
	}

	fresh := c.inner.GetRecent(ctx, limit)
	fresh.CacheHit = false
	c.cached = fresh
	c.hasEntry = true
	c.limit = limit
	return fresh
}

// Invalidate drops the cached entry, forcing the next GetRecent to refetch.
func (c *CachedProvider) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasEntry = false
}
