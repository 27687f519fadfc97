// Package block models the smallest indivisible areal units a districting
// plan is built from: census blocks or tracts carrying population,
// demographic, and partisan attributes plus a polygon geometry.
//
// Units are immutable once constructed. The partitioning engine only ever
// groups them; per-unit derived values (centroid, area) are computed once
// at construction time and shared by reference across recursion levels.
package block

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	apperrors "github.com/wardline/wardline/pkg/errors"
)

// Unit is one geographic unit. Coordinates are planar (projected meters
// for real data, abstract units for synthetic grids); all geometric math
// downstream assumes a projected coordinate system.
type Unit struct {
	GEOID     string
	Pop       int64
	Baseline  int64            // non-minority population subtotal
	Subtotals map[string]int64 // further subtotals, kept for reporting
	Partisan  float64          // two-party share in [0,1]; 0.5 = unknown/even
	COI       bool             // community-of-interest membership
	Geometry  orb.MultiPolygon

	centroid orb.Point
	area     float64
}

// NeutralPartisan is the partisan score assigned when no data source
// covers a unit.
const NeutralPartisan = 0.5

// NewUnit validates the attributes and constructs a Unit. The geometry
// must be a non-empty orb.Polygon or orb.MultiPolygon; the core never
// repairs or imputes geometry, so malformed inputs fail fast with an
// UPSTREAM_DATA error.
func NewUnit(geoid string, pop, baseline int64, partisan float64, geom orb.Geometry) (*Unit, error) {
	if err := apperrors.ValidateGEOID(geoid); err != nil {
		return nil, err
	}
	if pop < 0 {
		return nil, apperrors.New(apperrors.ErrCodeUpstreamData,
			"unit %s has negative population %d", geoid, pop)
	}
	if baseline < 0 || baseline > pop {
		return nil, apperrors.New(apperrors.ErrCodeUpstreamData,
			"unit %s has baseline %d outside [0, %d]", geoid, baseline, pop)
	}
	if math.IsNaN(partisan) || partisan < 0 || partisan > 1 {
		return nil, apperrors.New(apperrors.ErrCodeUpstreamData,
			"unit %s has partisan score %g outside [0, 1]", geoid, partisan)
	}

	mp, err := asMultiPolygon(geoid, geom)
	if err != nil {
		return nil, err
	}

	centroid, area := planar.CentroidArea(mp)

	return &Unit{
		GEOID:    geoid,
		Pop:      pop,
		Baseline: baseline,
		Partisan: partisan,
		Geometry: mp,
		centroid: centroid,
		area:     math.Abs(area),
	}, nil
}

// Centroid returns the unit's area-weighted centroid.
func (u *Unit) Centroid() orb.Point {
	return u.centroid
}

// Area returns the unit's polygon area.
func (u *Unit) Area() float64 {
	return u.area
}

// MinorityShare returns 1 - baseline/pop, the fraction of the unit's
// population outside the non-minority baseline. Zero-population units
// report 0.
func (u *Unit) MinorityShare() float64 {
	if u.Pop == 0 {
		return 0
	}
	return 1 - float64(u.Baseline)/float64(u.Pop)
}

func asMultiPolygon(geoid string, geom orb.Geometry) (orb.MultiPolygon, error) {
	switch g := geom.(type) {
	case orb.Polygon:
		if len(g) == 0 || len(g[0]) == 0 {
			return nil, apperrors.New(apperrors.ErrCodeUpstreamData, "unit %s has empty geometry", geoid)
		}
		return orb.MultiPolygon{g}, nil
	case orb.MultiPolygon:
		if len(g) == 0 || len(g[0]) == 0 || len(g[0][0]) == 0 {
			return nil, apperrors.New(apperrors.ErrCodeUpstreamData, "unit %s has empty geometry", geoid)
		}
		return g, nil
	case nil:
		return nil, apperrors.New(apperrors.ErrCodeUpstreamData, "unit %s is missing geometry", geoid)
	default:
		return nil, apperrors.New(apperrors.ErrCodeUpstreamData,
			"unit %s has unsupported geometry type %T", geoid, geom)
	}
}
