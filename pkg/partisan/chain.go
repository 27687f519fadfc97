package partisan

import (
	"context"
	"sort"
	"strings"

	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/httputil"
	"github.com/wardline/wardline/pkg/observability"
)

// Chain tries ranked score sources in order and keeps the first result.
// Order is decided per request: finer granularity first, then smaller
// distance to the requested election year, then base priority.
type Chain struct {
	providers []Provider
}

// NewChain builds a chain over the given providers. Registration order
// only matters for breaking exact ordering ties.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// DefaultChain wires the standard sources: county presidential returns
// with a neutral terminal fallback.
func DefaultChain(f *httputil.Fetcher) *Chain {
	return NewChain(NewMEDSL(f), Uniform{})
}

// Order returns the providers ranked for the requested year.
func (c *Chain) Order(year int) []Provider {
	ordered := make([]Provider, len(c.providers))
	copy(ordered, c.providers)
	sort.SliceStable(ordered, func(i, j int) bool {
		mi, mj := ordered[i].Meta(), ordered[j].Meta()
		ri, rj := granularityRank(mi.Granularity), granularityRank(mj.Granularity)
		if ri != rj {
			return ri < rj
		}
		di, dj := yearDistance(mi, year), yearDistance(mj, year)
		if di != dj {
			return di < dj
		}
		return mi.Priority < mj.Priority
	})
	return ordered
}

// Keys lists the registered provider keys in registration order.
func (c *Chain) Keys() []string {
	keys := make([]string, len(c.providers))
	for i, p := range c.providers {
		keys[i] = p.Meta().Key
	}
	return keys
}

// ForKey selects exactly one provider by key, for manual override.
func (c *Chain) ForKey(key string) (Provider, error) {
	for _, p := range c.providers {
		if p.Meta().Key == key {
			return p, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
		"unknown partisan provider %q (available: %s)", key, strings.Join(c.Keys(), ", "))
}

// Fetch walks the ranked chain and returns the first source that
// produces scores, along with that source's metadata. When every source
// fails the chain degrades to an empty neutral score set, so a fetch
// never aborts a run over missing partisan data.
func (c *Chain) Fetch(ctx context.Context, state string, year int) (Scores, Metadata, error) {
	hooks := observability.Fetch()
	for _, p := range c.Order(year) {
		meta := p.Meta()
		source := "partisan:" + meta.Key
		hooks.OnFetchStart(ctx, source, state)
		scores, err := p.TryFetch(ctx, state, year)
		hooks.OnFetchDone(ctx, source, len(scores), false, err)
		if err != nil || scores == nil {
			continue
		}
		return scores, meta, nil
	}
	return Scores{}, Metadata{Key: "neutral", Label: "neutral fallback",
		Granularity: GranularityCounty, Note: "every configured source failed"}, nil
}

// FetchFrom runs a single provider, bypassing the ranked order. Unlike
// [Chain.Fetch] it reports the provider's error instead of degrading,
// since an explicit selection failing is worth surfacing.
func (c *Chain) FetchFrom(ctx context.Context, key, state string, year int) (Scores, Metadata, error) {
	p, err := c.ForKey(key)
	if err != nil {
		return nil, Metadata{}, err
	}
	meta := p.Meta()
	source := "partisan:" + meta.Key
	hooks := observability.Fetch()
	hooks.OnFetchStart(ctx, source, state)
	scores, err := p.TryFetch(ctx, state, year)
	hooks.OnFetchDone(ctx, source, len(scores), false, err)
	if err != nil {
		return nil, meta, err
	}
	return scores, meta, nil
}
