package rates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gigurra/subscription-tracker/internal/cache"
	"github.com/gigurra/subscription-tracker/internal/money"
)

// Snapshot is a rate table and the time it was fetched.
type Snapshot struct {
	Table     money.Table `json:"table"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// Cache stores the latest snapshot per base currency.
type Cache interface {
	Lookup(ctx context.Context, base string) (Snapshot, bool, error)
	Save(ctx context.Context, base string, snap Snapshot) error
}

// MemoryCache keeps snapshots in process memory. Snapshots older than retention
// are dropped; freshness is decided by the CachingFetcher, not here.
type MemoryCache struct {
	lru *cache.LRUCache[Snapshot]
}

// NewMemoryCache creates a memory cache for up to size base currencies.
func NewMemoryCache(size int, retention time.Duration, opts ...cache.Option) *MemoryCache {
	return &MemoryCache{lru: cache.NewLRUCache[Snapshot](size, retention, opts...)}
}

func (m *MemoryCache) Lookup(_ context.Context, base string) (Snapshot, bool, error) {
	snap, ok := m.lru.Get(money.NormalizeCode(base))
	return snap, ok, nil
}

func (m *MemoryCache) Save(_ context.Context, base string, snap Snapshot) error {
	m.lru.Set(money.NormalizeCode(base), snap)
	return nil
}

// CachingFetcher serves rate tables from a Cache while they are younger than the
// TTL and refetches them otherwise. Concurrent refetches of the same base share
// one request. When a refetch fails and a stale snapshot exists, the stale
// snapshot is served and the failure is logged.
type CachingFetcher struct {
	fetcher Fetcher
	cache   Cache
	ttl     time.Duration
	log     *slog.Logger
	now     func() time.Time
	group   singleflight.Group
}

// NewCachingFetcher wraps fetcher with cache. A nil logger discards logs.
func NewCachingFetcher(fetcher Fetcher, c Cache, ttl time.Duration, log *slog.Logger) *CachingFetcher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &CachingFetcher{fetcher: fetcher, cache: c, ttl: ttl, log: log, now: time.Now}
}

// WithClock replaces time.Now, for tests.
func (f *CachingFetcher) WithClock(now func() time.Time) *CachingFetcher {
	f.now = now
	return f
}

func (f *CachingFetcher) fresh(s Snapshot) bool {
	return f.now().Sub(s.FetchedAt) < f.ttl
}

// Fetch returns the rate table for base.
func (f *CachingFetcher) Fetch(ctx context.Context, base string) (money.Table, error) {
	snap, err := f.Snapshot(ctx, base)
	if err != nil {
		return money.Table{}, err
	}
	return snap.Table, nil
}

// Snapshot returns the cached or freshly fetched snapshot for base.
func (f *CachingFetcher) Snapshot(ctx context.Context, base string) (Snapshot, error) {
	base = money.NormalizeCode(base)

	cached, found, err := f.cache.Lookup(ctx, base)
	if err != nil {
		f.log.Warn("rate cache lookup failed", slog.String("base", base), slog.Any("error", err))
		found = false
	}
	if found && f.fresh(cached) {
		return cached, nil
	}

	v, err, _ := f.group.Do(base, func() (any, error) {
		table, err := f.fetcher.Fetch(ctx, base)
		if err != nil {
			return nil, err
		}
		snap := Snapshot{Table: table, FetchedAt: f.now()}
		if err := f.cache.Save(ctx, base, snap); err != nil {
			f.log.Warn("saving rates to cache failed", slog.String("base", base), slog.Any("error", err))
		}
		return snap, nil
	})
	if err != nil {
		if found {
			f.log.Warn("serving stale rates",
				slog.String("base", base),
				slog.Time("fetched_at", cached.FetchedAt),
				slog.Any("error", err))
			return cached, nil
		}
		return Snapshot{}, fmt.Errorf("rates for %s: %w", base, err)
	}
	return v.(Snapshot), nil
}
