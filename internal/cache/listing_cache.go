// Package cache implements the read-through cache for the lot listing.
// The whole listing lives under one Redis key with a TTL; every mutation
// in the allocation engine evicts it after its transaction commits. The
// cache is an optimization, never a correctness dependency: when Redis
// is down (nil client) all operations degrade to no-ops and reads fall
// through to the database.
package cache

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-lot-reservation/internal/config"
	"github.com/iliyamo/parking-lot-reservation/internal/model"
)

// LotListingCache caches the full lot listing served by GET /lots.
type LotListingCache struct {
	rdb *redis.Client
	cfg config.ListingCacheConfig
}

// NewLotListingCache builds a cache over the given Redis client. A nil
// client or a disabled config yields a cache that always misses.
func NewLotListingCache(rdb *redis.Client, cfg config.ListingCacheConfig) *LotListingCache {
	if !cfg.Enabled {
		rdb = nil
	}
	return &LotListingCache{rdb: rdb, cfg: cfg}
}

// Get returns the cached listing and true on a hit. Any Redis or decode
// problem counts as a miss; a corrupt entry is dropped so the next Put
// repairs it.
func (c *LotListingCache) Get(ctx context.Context) ([]model.Lot, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.cfg.Key).Bytes()
	if err != nil {
		return nil, false
	}
	var lots []model.Lot
	if err := json.Unmarshal(raw, &lots); err != nil {
		log.Printf("cache: dropping corrupt listing entry: %v", err)
		_ = c.rdb.Del(ctx, c.cfg.Key).Err()
		return nil, false
	}
	return lots, true
}

// Put stores the listing under the configured TTL. Failures are logged
// and swallowed; the caller already has the fresh data to serve.
func (c *LotListingCache) Put(ctx context.Context, lots []model.Lot) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(lots)
	if err != nil {
		log.Printf("cache: marshal listing failed: %v", err)
		return
	}
	if err := c.rdb.SetEx(ctx, c.cfg.Key, raw, c.cfg.TTL).Err(); err != nil {
		log.Printf("cache: store listing failed: %v", err)
	}
}

// Invalidate unconditionally evicts the listing entry. It is idempotent
// (deleting an absent key is a no-op) and must only be called after the
// mutating transaction has committed, so a racing reader can never
// re-cache pre-commit state that outlives the eviction. The error is
// returned for logging; mutations succeed regardless, with the TTL as
// the fallback staleness bound.
func (c *LotListingCache) Invalidate(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, c.cfg.Key).Err()
}
