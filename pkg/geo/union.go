package geo

import (
	"math"

	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/wardline/wardline/pkg/block"
	apperrors "github.com/wardline/wardline/pkg/errors"
)

// UnionEngine dissolves a region by computing the true polygon union of
// its units via Martinez-Rueda clipping, then measuring the merged
// shape. It makes no assumptions about how the units fit together.
type UnionEngine struct{}

// Name returns the registry name of the engine.
func (UnionEngine) Name() string { return EngineUnion }

// Centroid returns the mean of the per-unit centroids.
func (UnionEngine) Centroid(units []*block.Unit) orb.Point { return meanCentroid(units) }

// Dissolve unions the unit geometries and returns the area and
// perimeter of the result. A clipping failure falls back to mesh
// measurement so a degenerate ring cannot abort a whole run.
func (UnionEngine) Dissolve(units []*block.Unit) (float64, float64) {
	if len(units) == 0 {
		return 0, 0
	}
	mp, err := Union(units)
	if err != nil {
		return MeshEngine{}.Dissolve(units)
	}
	return math.Abs(planar.Area(mp)), planar.Length(mp)
}

// Union merges the unit geometries into one multipolygon via
// Martinez-Rueda clipping. Exports use it to emit dissolved district
// shapes independently of which measurement engine ran the search.
func Union(units []*block.Unit) (orb.MultiPolygon, error) {
	if len(units) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "union of no units")
	}
	if len(units) == 1 {
		return units[0].Geometry, nil
	}

	geoms := make([]polygol.Geom, len(units))
	for i, u := range units {
		geoms[i] = toGeom(u.Geometry)
	}
	merged, err := polygol.Union(geoms[0], geoms[1:]...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "polygon union failed")
	}
	return fromGeom(merged), nil
}

func toGeom(mp orb.MultiPolygon) polygol.Geom {
	g := make(polygol.Geom, len(mp))
	for i, poly := range mp {
		rings := make([][][]float64, len(poly))
		for j, ring := range poly {
			pts := make([][]float64, len(ring))
			for k, p := range ring {
				pts[k] = []float64{p[0], p[1]}
			}
			rings[j] = pts
		}
		g[i] = rings
	}
	return g
}

func fromGeom(g polygol.Geom) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, len(g))
	for _, poly := range g {
		rings := make(orb.Polygon, 0, len(poly))
		for _, ring := range poly {
			r := make(orb.Ring, 0, len(ring))
			for _, pt := range ring {
				if len(pt) < 2 {
					continue
				}
				r = append(r, orb.Point{pt[0], pt[1]})
			}
			if len(r) > 0 {
				rings = append(rings, r)
			}
		}
		if len(rings) > 0 {
			mp = append(mp, rings)
		}
	}
	return mp
}
