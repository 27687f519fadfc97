package geo

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/wardline/wardline/pkg/block"
	apperrors "github.com/wardline/wardline/pkg/errors"
)

// indexPad widens bounding boxes by a micro-unit so rectangles that
// merely share an edge still intersect in the R-tree.
const indexPad = 1e-6

type treeItem struct {
	rect rtreego.Rect
	idx  int
}

func (t *treeItem) Bounds() rtreego.Rect { return t.rect }

// Index is a spatial adjacency index over a fixed set of units. The
// R-tree narrows candidates by bounding box; Neighbors confirms real
// contact geometrically.
type Index struct {
	units []*block.Unit
	tree  *rtreego.Rtree
}

// NewIndex builds the index. Unit order is preserved; Neighbors speaks
// in positions within the given slice.
func NewIndex(units []*block.Unit) (*Index, error) {
	tree := rtreego.NewTree(2, 25, 50)
	for i, u := range units {
		rect, err := boundRect(u.Geometry.Bound())
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInternal, err, "failed to index unit %s", u.GEOID)
		}
		tree.Insert(&treeItem{rect: rect, idx: i})
	}
	return &Index{units: units, tree: tree}, nil
}

// Neighbors returns the positions of all units touching unit i, in
// ascending order.
func (ix *Index) Neighbors(i int) []int {
	u := ix.units[i]
	rect, err := boundRect(u.Geometry.Bound())
	if err != nil {
		return nil
	}

	var out []int
	for _, hit := range ix.tree.SearchIntersect(rect) {
		item := hit.(*treeItem)
		if item.idx == i {
			continue
		}
		if Touches(u.Geometry, ix.units[item.idx].Geometry) {
			out = append(out, item.idx)
		}
	}
	sort.Ints(out)
	return out
}

// AdjacencyList returns the full neighbor list per unit.
func (ix *Index) AdjacencyList() [][]int {
	adj := make([][]int, len(ix.units))
	for i := range ix.units {
		adj[i] = ix.Neighbors(i)
	}
	return adj
}

// IsContiguous reports whether the units form a single connected
// component under queen adjacency (a shared corner counts as contact).
// Empty and single-unit inputs are contiguous.
func IsContiguous(units []*block.Unit) (bool, error) {
	if len(units) <= 1 {
		return true, nil
	}
	ix, err := NewIndex(units)
	if err != nil {
		return false, err
	}

	seen := make([]bool, len(units))
	seen[0] = true
	visited := 1
	queue := []int{0}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range ix.Neighbors(cur) {
			if !seen[nb] {
				seen[nb] = true
				visited++
				queue = append(queue, nb)
			}
		}
	}
	return visited == len(units), nil
}

func boundRect(b orb.Bound) (rtreego.Rect, error) {
	return rtreego.NewRect(
		rtreego.Point{b.Min[0] - indexPad, b.Min[1] - indexPad},
		[]float64{b.Max[0] - b.Min[0] + 2*indexPad, b.Max[1] - b.Min[1] + 2*indexPad},
	)
}

// Touches reports whether two multipolygons are in contact: a shared
// vertex, crossing or overlapping boundary segments, or one contained
// in the other.
func Touches(a, b orb.MultiPolygon) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	if sharesVertex(a, b) {
		return true
	}
	if boundariesIntersect(a, b) {
		return true
	}
	if pa, ok := firstVertex(a); ok && planar.MultiPolygonContains(b, pa) {
		return true
	}
	if pb, ok := firstVertex(b); ok && planar.MultiPolygonContains(a, pb) {
		return true
	}
	return false
}

type vertKey struct {
	x, y int64
}

func quantize(p orb.Point) vertKey {
	return vertKey{int64(math.Round(p[0] * meshScale)), int64(math.Round(p[1] * meshScale))}
}

// sharesVertex is the mesh fast path: neighboring census units carry
// identical boundary vertices, so a hash probe settles most pairs
// without any segment math.
func sharesVertex(a, b orb.MultiPolygon) bool {
	verts := make(map[vertKey]bool)
	for _, poly := range a {
		for _, ring := range poly {
			for _, p := range ring {
				verts[quantize(p)] = true
			}
		}
	}
	for _, poly := range b {
		for _, ring := range poly {
			for _, p := range ring {
				if verts[quantize(p)] {
					return true
				}
			}
		}
	}
	return false
}

func boundariesIntersect(a, b orb.MultiPolygon) bool {
	bBound := b.Bound()
	for _, poly := range a {
		for _, ring := range poly {
			hit := false
			forEachSegment(ring, func(p1, p2 orb.Point) {
				if hit {
					return
				}
				if !segmentBoundIntersects(p1, p2, bBound) {
					return
				}
				for _, bPoly := range b {
					for _, bRing := range bPoly {
						forEachSegment(bRing, func(q1, q2 orb.Point) {
							if !hit && segmentsIntersect(p1, p2, q1, q2) {
								hit = true
							}
						})
						if hit {
							return
						}
					}
				}
			})
			if hit {
				return true
			}
		}
	}
	return false
}

func segmentBoundIntersects(p1, p2 orb.Point, b orb.Bound) bool {
	minX, maxX := math.Min(p1[0], p2[0]), math.Max(p1[0], p2[0])
	minY, maxY := math.Min(p1[1], p2[1]), math.Max(p1[1], p2[1])
	return maxX >= b.Min[0] && minX <= b.Max[0] && maxY >= b.Min[1] && minY <= b.Max[1]
}

// segmentsIntersect is the standard orientation test, with collinear
// touches counted as intersections.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := crossSign(q1, q2, p1)
	d2 := crossSign(q1, q2, p2)
	d3 := crossSign(p1, p2, q1)
	d4 := crossSign(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	if d1 == 0 && onSegment(q1, q2, p1) {
		return true
	}
	if d2 == 0 && onSegment(q1, q2, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, q2) {
		return true
	}
	return false
}

func crossSign(a, b, c orb.Point) int {
	v := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// onSegment assumes c is collinear with ab and checks it lies within
// the segment's extent.
func onSegment(a, b, c orb.Point) bool {
	return math.Min(a[0], b[0]) <= c[0] && c[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= c[1] && c[1] <= math.Max(a[1], b[1])
}

func firstVertex(mp orb.MultiPolygon) (orb.Point, bool) {
	for _, poly := range mp {
		for _, ring := range poly {
			if len(ring) > 0 {
				return ring[0], true
			}
		}
	}
	return orb.Point{}, false
}
