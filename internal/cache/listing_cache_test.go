package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-lot-reservation/internal/config"
	"github.com/iliyamo/parking-lot-reservation/internal/model"
)

func newTestCache(t *testing.T, ttl time.Duration) (*LotListingCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cfg := config.ListingCacheConfig{Enabled: true, Key: "lots:listing", TTL: ttl}
	return NewLotListingCache(rdb, cfg), mr
}

func sampleLots() []model.Lot {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return []model.Lot{
		{ID: 1, Name: "Central", Address: "1 Main St", PinCode: "560001", PriceCentsPerHour: 1000, NumberOfSpots: 20, CreatedAt: now, UpdatedAt: now},
		{ID: 2, Name: "Airport", Address: "2 Runway Rd", PinCode: "560017", PriceCentsPerHour: 2500, NumberOfSpots: 50, CreatedAt: now, UpdatedAt: now},
	}
}

func TestListingCacheReadThrough(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	if _, ok := c.Get(ctx); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Put(ctx, sampleLots())

	got, ok := c.Get(ctx)
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if len(got) != 2 || got[0].Name != "Central" || got[1].PriceCentsPerHour != 2500 {
		t.Fatalf("cached listing mismatch: %+v", got)
	}
}

func TestListingCacheTTLExpiry(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	c.Put(ctx, sampleLots())
	mr.FastForward(time.Hour + time.Second)

	if _, ok := c.Get(ctx); ok {
		t.Fatal("expected miss after TTL expiry")
	}
}

func TestListingCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	c.Put(ctx, sampleLots())
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok := c.Get(ctx); ok {
		t.Fatal("expected miss after invalidation")
	}
	// Evicting an absent key is a no-op.
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("second invalidate: %v", err)
	}
}

func TestListingCacheUpdateThenRead(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	c.Put(ctx, sampleLots())
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	fresh := sampleLots()
	fresh[0].PriceCentsPerHour = 1200
	c.Put(ctx, fresh)

	got, ok := c.Get(ctx)
	if !ok {
		t.Fatal("expected hit after re-populate")
	}
	if got[0].PriceCentsPerHour != 1200 {
		t.Fatalf("stale price served: %d", got[0].PriceCentsPerHour)
	}
}

func TestListingCacheDropsCorruptEntry(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	if err := mr.Set("lots:listing", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok := c.Get(ctx); ok {
		t.Fatal("expected miss on corrupt entry")
	}
	if mr.Exists("lots:listing") {
		t.Fatal("corrupt entry should have been deleted")
	}
}

func TestListingCacheDisabled(t *testing.T) {
	ctx := context.Background()
	c := NewLotListingCache(nil, config.ListingCacheConfig{Enabled: false, Key: "lots:listing", TTL: time.Hour})

	c.Put(ctx, sampleLots())
	if _, ok := c.Get(ctx); ok {
		t.Fatal("disabled cache must always miss")
	}
	if err := c.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate on disabled cache: %v", err)
	}
}
