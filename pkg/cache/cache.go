// Package cache provides pluggable byte caching for acquired data and
// computed artifacts.
//
// Three backends implement the [Cache] interface:
//   - [FileCache]: entries stored as files under a directory (CLI default)
//   - [RedisCache]: entries stored in Redis (shared/hosted usage)
//   - [NullCache]: no-op, caching disabled
//
// Keys are built by a [Keyer], which namespaces the different cached
// artifacts (census payloads, boundary archives, partisan scores, assembled
// unit tables, finished plans) so backends can be swapped without key
// collisions.
package cache

import (
	"context"
	"time"
)

// TTLs for the different cached artifact classes. Census and boundary
// payloads change only with new vintages; scores and assembled tables
// follow the payloads they derive from.
const (
	TTLCensus = 30 * 24 * time.Hour
	TTLShapes = 90 * 24 * time.Hour
	TTLScores = 30 * 24 * time.Hour
	TTLTable  = 30 * 24 * time.Hour
	TTLPlan   = 7 * 24 * time.Hour
)

// Cache is the byte-oriented caching interface shared by all backends.
//
// Get returns (data, true, nil) on a hit and (nil, false, nil) on a miss.
// Backend failures are reported through the error; a miss is not an error.
// A ttl of 0 passed to Set means the entry never expires.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// PlanKeyOpts captures every knob that changes partitioning output, so two
// runs with different configuration never share a cached plan.
type PlanKeyOpts struct {
	Seats         int
	Mode          string
	Engine        string
	VRA           bool
	PopWeight     float64
	CompactWeight float64
	COIWeight     float64
	Contiguity    string
	COIHash       string
}

// Keyer generates cache keys for the artifact classes Wardline caches.
// Implementations must be deterministic: identical inputs yield identical
// keys across processes.
type Keyer interface {
	// HTTPKey keys a raw HTTP response body by namespace and request URL.
	HTTPKey(namespace, key string) string

	// CensusKey keys a population table fetch.
	CensusKey(state, resolution string, year int) string

	// ShapesKey keys a decoded boundary set for a state and vintage.
	ShapesKey(state, resolution, vintage string) string

	// ScoresKey keys a partisan score set from one provider.
	ScoresKey(provider, state string, year int) string

	// TableKey keys an assembled unit table.
	TableKey(state, resolution, provider string, year int) string

	// PlanKey keys a finished plan by table content hash and configuration.
	PlanKey(tableHash string, opts PlanKeyOpts) string
}

// DefaultKeyer is the standard Keyer implementation. Keys are
// "prefix:sha256(parts)" so arbitrary inputs stay filesystem- and
// Redis-safe.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// HTTPKey generates a key for HTTP response caching.
func (k *DefaultKeyer) HTTPKey(namespace, key string) string {
	return hashKey("http:"+namespace, key)
}

// CensusKey generates a key for census table caching.
func (k *DefaultKeyer) CensusKey(state, resolution string, year int) string {
	return hashKey("census", state, resolution, year)
}

// ShapesKey generates a key for boundary caching.
func (k *DefaultKeyer) ShapesKey(state, resolution, vintage string) string {
	return hashKey("shapes", state, resolution, vintage)
}

// ScoresKey generates a key for partisan score caching.
func (k *DefaultKeyer) ScoresKey(provider, state string, year int) string {
	return hashKey("scores", provider, state, year)
}

// TableKey generates a key for assembled unit tables.
func (k *DefaultKeyer) TableKey(state, resolution, provider string, year int) string {
	return hashKey("table", state, resolution, provider, year)
}

// PlanKey generates a key for finished plans.
func (k *DefaultKeyer) PlanKey(tableHash string, opts PlanKeyOpts) string {
	return hashKey("plan", tableHash, opts)
}

// Ensure DefaultKeyer implements Keyer.
var _ Keyer = (*DefaultKeyer)(nil)
