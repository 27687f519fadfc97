package partisan

import (
	"context"

	"github.com/wardline/wardline/pkg/block"
)

// Granularity levels, finest first. A precinct-grade source outranks a
// county-grade one in the automatic chain.
const (
	GranularityPrecinct = "precinct"
	GranularityCounty   = "county"
)

// Metadata describes a score source for chain ordering and display.
type Metadata struct {
	// Key identifies the provider for manual selection.
	Key string

	// Label is the human-readable source name.
	Label string

	// Granularity is the geographic grain of the scores.
	Granularity string

	// Years lists the election years the source covers. Empty means the
	// source is year-agnostic.
	Years []int

	// Priority breaks ties between sources of equal granularity and
	// year distance; lower tries first.
	Priority int

	// Note carries a short provenance or confidence remark.
	Note string
}

// Provider is one source of partisan scores. TryFetch either returns a
// usable score set or an error; the chain treats any error as a signal
// to fall through to the next source.
type Provider interface {
	Meta() Metadata
	TryFetch(ctx context.Context, state string, year int) (Scores, error)
}

// Scores maps GEOID prefixes to partisan scores in [0, 1]. A county
// source keys by the 5-digit state+county prefix; a file source may key
// by full unit ids.
type Scores map[string]float64

// Lookup resolves a unit's score by longest-prefix match, neutral when
// nothing matches.
func (s Scores) Lookup(geoid string) float64 {
	for l := len(geoid); l > 0; l-- {
		if v, ok := s[geoid[:l]]; ok {
			return v
		}
	}
	return block.NeutralPartisan
}

// granularityRank orders granularities for the chain; lower is finer.
func granularityRank(g string) int {
	switch g {
	case GranularityPrecinct:
		return 1
	case GranularityCounty:
		return 2
	default:
		return 3
	}
}

// yearDistance is how far the requested year sits from the source's
// nearest covered year. Zero when either side does not constrain.
func yearDistance(m Metadata, year int) int {
	if year == 0 || len(m.Years) == 0 {
		return 0
	}
	best := -1
	for _, y := range m.Years {
		d := y - year
		if d < 0 {
			d = -d
		}
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}
