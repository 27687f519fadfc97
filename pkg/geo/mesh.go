package geo

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/wardline/wardline/pkg/block"
)

// meshScale quantizes coordinates to a millionth of a unit when keying
// boundary segments, so vertices that agree to data precision hash to
// the same segment.
const meshScale = 1e6

// MeshEngine dissolves a region without building the union polygon.
// Area is the sum of unit areas; perimeter keeps only boundary segments
// that appear an odd number of times across the region, since a segment
// shared by two units is interior and cancels. Exact when the units
// form a non-overlapping mesh whose neighbors share identical boundary
// vertices, which census geographies and synthetic grids do.
type MeshEngine struct{}

// Name returns the registry name of the engine.
func (MeshEngine) Name() string { return EngineMesh }

// Centroid returns the mean of the per-unit centroids.
func (MeshEngine) Centroid(units []*block.Unit) orb.Point { return meanCentroid(units) }

// Dissolve returns the summed area and the edge-cancelled perimeter.
func (MeshEngine) Dissolve(units []*block.Unit) (float64, float64) {
	if len(units) == 0 {
		return 0, 0
	}

	type edge struct {
		count  int
		length float64
	}

	var area float64
	edges := make(map[segKey]edge)
	for _, u := range units {
		area += u.Area()
		for _, poly := range u.Geometry {
			for _, ring := range poly {
				forEachSegment(ring, func(a, b orb.Point) {
					key, ok := canonicalSeg(a, b)
					if !ok {
						return
					}
					e := edges[key]
					if e.count == 0 {
						e.length = math.Hypot(b[0]-a[0], b[1]-a[1])
					}
					e.count++
					edges[key] = e
				})
			}
		}
	}

	var perimeter float64
	for _, e := range edges {
		if e.count%2 == 1 {
			perimeter += e.length
		}
	}
	return area, perimeter
}

// forEachSegment walks the ring's segments, closing it if the source
// data left the last vertex off.
func forEachSegment(ring orb.Ring, fn func(a, b orb.Point)) {
	n := len(ring)
	if n < 2 {
		return
	}
	for k := 0; k+1 < n; k++ {
		fn(ring[k], ring[k+1])
	}
	if ring[0] != ring[n-1] {
		fn(ring[n-1], ring[0])
	}
}

type segKey struct {
	ax, ay, bx, by int64
}

// canonicalSeg quantizes and orients a segment so both directions of
// the same edge produce one key. Zero-length segments are dropped.
func canonicalSeg(a, b orb.Point) (segKey, bool) {
	ax := int64(math.Round(a[0] * meshScale))
	ay := int64(math.Round(a[1] * meshScale))
	bx := int64(math.Round(b[0] * meshScale))
	by := int64(math.Round(b[1] * meshScale))
	if ax == bx && ay == by {
		return segKey{}, false
	}
	if ax > bx || (ax == bx && ay > by) {
		ax, ay, bx, by = bx, by, ax, ay
	}
	return segKey{ax, ay, bx, by}, true
}
