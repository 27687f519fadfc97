package partisan

import "context"

// Uniform is the terminal chain member: it always succeeds with an
// empty score set, which resolves every unit to the neutral score.
type Uniform struct{}

// Meta describes the source for chain ordering. The priority keeps it
// behind every real source.
func (Uniform) Meta() Metadata {
	return Metadata{
		Key:         "uniform",
		Label:       "Uniform neutral scores",
		Granularity: GranularityCounty,
		Priority:    1000,
		Note:        "assigns every unit the neutral score",
	}
}

// TryFetch never fails.
func (Uniform) TryFetch(ctx context.Context, state string, year int) (Scores, error) {
	return Scores{}, nil
}
