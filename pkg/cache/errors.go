package cache

import "errors"

// Sentinel errors for caching operations.
var (
	// ErrCacheMiss is returned by helpers that require a hit when an item
	// is not found in cache (e.g. cache-only fetch modes).
	ErrCacheMiss = errors.New("cache miss")

	// ErrUnavailable is returned when a cache backend cannot be reached.
	ErrUnavailable = errors.New("cache backend unavailable")
)
