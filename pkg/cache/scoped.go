package cache

// ScopedKeyer wraps a Keyer with a prefix so distinct data vintages or
// profiles get separate cache namespaces. The pipeline scopes keys by
// boundary vintage, which keeps a TIGER 2024 run from reusing entries
// cached for an earlier vintage.
//
// Example usage:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "v2024:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// CensusKey generates a prefixed key for census table caching.
func (k *ScopedKeyer) CensusKey(state, resolution string, year int) string {
	return k.prefix + k.inner.CensusKey(state, resolution, year)
}

// ShapesKey generates a prefixed key for boundary caching.
func (k *ScopedKeyer) ShapesKey(state, resolution, vintage string) string {
	return k.prefix + k.inner.ShapesKey(state, resolution, vintage)
}

// ScoresKey generates a prefixed key for partisan score caching.
func (k *ScopedKeyer) ScoresKey(provider, state string, year int) string {
	return k.prefix + k.inner.ScoresKey(provider, state, year)
}

// TableKey generates a prefixed key for assembled unit tables.
func (k *ScopedKeyer) TableKey(state, resolution, provider string, year int) string {
	return k.prefix + k.inner.TableKey(state, resolution, provider, year)
}

// PlanKey generates a prefixed key for finished plans.
func (k *ScopedKeyer) PlanKey(tableHash string, opts PlanKeyOpts) string {
	return k.prefix + k.inner.PlanKey(tableHash, opts)
}

// Ensure ScopedKeyer implements Keyer.
var _ Keyer = (*ScopedKeyer)(nil)
