package config

import (
	"time"
)

// ListingCacheConfig defines settings for the lot-listing cache. When
// Enabled is false or no Redis client could be constructed, reads go
// straight to the database and invalidation becomes a no-op. The TTL is
// the upper staleness bound the cache guarantees when an invalidation is
// lost (e.g. Redis briefly unavailable after a commit).
type ListingCacheConfig struct {
	Enabled bool
	Key     string
	TTL     time.Duration
}

// LoadListingCacheConfig reads environment variables to build a
// ListingCacheConfig. Defaults are one shared entry for the whole
// listing, expiring after an hour.
func LoadListingCacheConfig() ListingCacheConfig {
	return ListingCacheConfig{
		Enabled: envBool("LISTING_CACHE_ENABLED", true),
		Key:     envStr("LISTING_CACHE_KEY", "lots:listing"),
		TTL:     envDur("LISTING_CACHE_TTL", time.Hour),
	}
}
