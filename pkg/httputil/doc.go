// Package httputil provides HTTP utilities for the data acquisition clients.
//
// # Overview
//
// This package provides infrastructure used by the census, boundary, and
// partisan data clients:
//
//   - [Fetcher]: cached HTTP GETs through a [cache.Cache] backend
//   - [Retry]: automatic retry with exponential backoff and jitter
//
// # Caching
//
// [Fetcher] stores raw response bodies in the configured cache backend,
// keyed by namespace and URL. This makes repeated runs against the same
// state cheap and keeps load off the census endpoints. With
// [Fetcher.CacheOnly] set, a cache miss becomes a NOT_FOUND error instead
// of a network request, which backs offline runs against a prepopulated
// cache.
//
// # Retry
//
// [Retry] wraps requests with automatic retry for transient failures:
//
//   - Network errors
//   - 5xx server errors
//   - 429 rate limit responses
//
// It uses exponential backoff with jitter to avoid thundering herd:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return fetchPage()
//	})
//
// # Configuration
//
// Default settings are suitable for most use cases:
//
//   - Max retries: 3
//   - Base backoff: 1 second
//   - Request timeout: 5 minutes (boundary archives are large)
//
// Cached payloads can be cleared via `wardline cache clear` or by deleting
// the cache directory.
package httputil
