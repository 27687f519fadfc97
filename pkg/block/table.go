package block

import (
	"sort"

	"github.com/paulmach/orb"

	apperrors "github.com/wardline/wardline/pkg/errors"
)

// Table is an ordered collection of units with GEOID lookup. Order is
// stable (sorted by GEOID) so downstream runs are deterministic
// regardless of how the sources enumerated their records.
type Table struct {
	units []*Unit
	byID  map[string]*Unit
}

// NewTable builds a table from units, sorting by GEOID. Duplicate GEOIDs
// are an UPSTREAM_DATA error because every join downstream assumes the
// id is a key.
func NewTable(units []*Unit) (*Table, error) {
	byID := make(map[string]*Unit, len(units))
	for _, u := range units {
		if _, dup := byID[u.GEOID]; dup {
			return nil, apperrors.New(apperrors.ErrCodeUpstreamData, "duplicate GEOID %s", u.GEOID)
		}
		byID[u.GEOID] = u
	}
	sorted := make([]*Unit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].GEOID < sorted[j].GEOID })
	return &Table{units: sorted, byID: byID}, nil
}

// Units returns the units in GEOID order. Callers must not mutate the
// returned slice.
func (t *Table) Units() []*Unit {
	return t.units
}

// Len returns the number of units.
func (t *Table) Len() int {
	return len(t.units)
}

// Lookup returns the unit with the given GEOID.
func (t *Table) Lookup(geoid string) (*Unit, bool) {
	u, ok := t.byID[geoid]
	return u, ok
}

// TotalPop sums population across all units.
func (t *Table) TotalPop() int64 {
	var total int64
	for _, u := range t.units {
		total += u.Pop
	}
	return total
}

// TotalBaseline sums the non-minority baseline across all units.
func (t *Table) TotalBaseline() int64 {
	var total int64
	for _, u := range t.units {
		total += u.Baseline
	}
	return total
}

// MarkCOI flags the units whose GEOIDs appear in ids and returns how
// many matched. Unknown ids are ignored; the caller decides whether a
// low match count is worth surfacing.
func (t *Table) MarkCOI(ids []string) int {
	matched := 0
	for _, id := range ids {
		if u, ok := t.byID[id]; ok {
			u.COI = true
			matched++
		}
	}
	return matched
}

// COIIDs returns the GEOIDs currently flagged as community-of-interest
// members, in table order.
func (t *Table) COIIDs() []string {
	var ids []string
	for _, u := range t.units {
		if u.COI {
			ids = append(ids, u.GEOID)
		}
	}
	return ids
}

// Row carries the population attributes of one unit as produced by a
// demographic source, before geometry is attached.
type Row struct {
	GEOID     string
	Pop       int64
	Baseline  int64
	Subtotals map[string]int64
}

// Assemble joins demographic rows with geometries by GEOID and builds a
// table. Rows without a shape and shapes without a row are dropped; the
// returned slice lists the dropped GEOIDs so the caller can log them.
// scores maps a GEOID to a partisan share and may be nil, in which case
// every unit gets NeutralPartisan.
func Assemble(rows []Row, shapes map[string]orb.MultiPolygon, scores func(geoid string) float64) (*Table, []string, error) {
	if len(rows) == 0 {
		return nil, nil, apperrors.New(apperrors.ErrCodeUpstreamData, "no demographic rows to assemble")
	}

	var dropped []string
	units := make([]*Unit, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		seen[row.GEOID] = true
		geom, ok := shapes[row.GEOID]
		if !ok {
			dropped = append(dropped, row.GEOID)
			continue
		}
		score := NeutralPartisan
		if scores != nil {
			score = scores(row.GEOID)
		}
		u, err := NewUnit(row.GEOID, row.Pop, row.Baseline, score, geom)
		if err != nil {
			return nil, nil, err
		}
		u.Subtotals = row.Subtotals
		units = append(units, u)
	}
	for geoid := range shapes {
		if !seen[geoid] {
			dropped = append(dropped, geoid)
		}
	}
	sort.Strings(dropped)

	if len(units) == 0 {
		return nil, nil, apperrors.New(apperrors.ErrCodeUpstreamData,
			"no units survived the join (%d rows, %d shapes)", len(rows), len(shapes))
	}

	table, err := NewTable(units)
	if err != nil {
		return nil, nil, err
	}
	return table, dropped, nil
}
