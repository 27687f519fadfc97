// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about partitioning progress, pipeline stages, data
// fetches, and cache operations.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPartitionHooks(&myPartitionHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Partition().OnPartitionStart(ctx, unitCount, seats)
//	// ... run the split search ...
//	observability.Partition().OnPartitionComplete(ctx, districts, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Partition Hooks
// =============================================================================

// PartitionHooks receives events from the recursive partitioning engine.
type PartitionHooks interface {
	// OnPartitionStart fires once per partition call.
	OnPartitionStart(ctx context.Context, unitCount, seats int)

	// OnSplitChosen fires when a split commits, with the winning angle
	// (degrees) and its cost.
	OnSplitChosen(ctx context.Context, depth int, angle, cost float64)

	// OnDistrictDone fires as terminal districts accumulate.
	OnDistrictDone(ctx context.Context, done, total int)

	// OnFallback fires when a region is returned undivided (zero
	// population or no valid candidate).
	OnFallback(ctx context.Context, unitCount int, reason string)

	// OnPartitionComplete fires when the partition call returns.
	OnPartitionComplete(ctx context.Context, districts int, duration time.Duration, err error)
}

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the staged data pipeline.
type PipelineHooks interface {
	OnStageStart(ctx context.Context, stage string)
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)
}

// =============================================================================
// Fetch Hooks
// =============================================================================

// FetchHooks receives events from the data acquisition clients. source
// names the client (census, tiger, or partisan:<provider key>).
type FetchHooks interface {
	// OnFetchStart fires when an acquisition begins.
	OnFetchStart(ctx context.Context, source, detail string)

	// OnFetchDone fires when it completes. fromCache reports whether the
	// payload was served from the local cache.
	OnFetchDone(ctx context.Context, source string, size int, fromCache bool, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPartitionHooks is a no-op implementation of PartitionHooks.
type NoopPartitionHooks struct{}

func (NoopPartitionHooks) OnPartitionStart(context.Context, int, int)                       {}
func (NoopPartitionHooks) OnSplitChosen(context.Context, int, float64, float64)             {}
func (NoopPartitionHooks) OnDistrictDone(context.Context, int, int)                         {}
func (NoopPartitionHooks) OnFallback(context.Context, int, string)                          {}
func (NoopPartitionHooks) OnPartitionComplete(context.Context, int, time.Duration, error)   {}

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(context.Context, string)                        {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, time.Duration, error) {}

// NoopFetchHooks is a no-op implementation of FetchHooks.
type NoopFetchHooks struct{}

func (NoopFetchHooks) OnFetchStart(context.Context, string, string)           {}
func (NoopFetchHooks) OnFetchDone(context.Context, string, int, bool, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	partitionHooks PartitionHooks = NoopPartitionHooks{}
	pipelineHooks  PipelineHooks  = NoopPipelineHooks{}
	fetchHooks     FetchHooks     = NoopFetchHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	hooksMu        sync.RWMutex
)

// SetPartitionHooks registers custom partition hooks.
// This should be called once at application startup before any partition runs.
func SetPartitionHooks(h PartitionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		partitionHooks = h
	}
}

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetFetchHooks registers custom fetch hooks.
// This should be called once at application startup before any data is fetched.
func SetFetchHooks(h FetchHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		fetchHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Partition returns the registered partition hooks.
func Partition() PartitionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return partitionHooks
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Fetch returns the registered fetch hooks.
func Fetch() FetchHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return fetchHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	partitionHooks = NoopPartitionHooks{}
	pipelineHooks = NoopPipelineHooks{}
	fetchHooks = NoopFetchHooks{}
	cacheHooks = NoopCacheHooks{}
}
