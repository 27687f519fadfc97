// Package geo provides the planar geometry operations the partitioner
// and reporting layers depend on: region centroids, dissolved area and
// perimeter, Polsby-Popper compactness, and spatial adjacency.
//
// All inputs are assumed to be in a projected coordinate system (meters
// for census data, abstract units for synthetic grids). Nothing in this
// package reprojects; loaders do that once at assembly time.
package geo

import (
	"github.com/paulmach/orb"

	"github.com/wardline/wardline/pkg/block"
	apperrors "github.com/wardline/wardline/pkg/errors"
)

// Engine names accepted by ForName.
const (
	// EngineMesh dissolves by edge cancellation over a non-overlapping
	// polygon mesh. Fast, exact for census geographies.
	EngineMesh = "mesh"
	// EngineUnion dissolves by computing the true polygon union.
	// Slower, but makes no mesh assumptions.
	EngineUnion = "union"
)

// Engine is the numeric backend for per-region geometry. Both
// implementations produce the same quantities; the partitioning
// algorithm never changes with the backend, only how area and
// perimeter of a dissolved region are obtained.
type Engine interface {
	Name() string

	// Centroid returns the approximate centroid of a group of units:
	// the mean of the per-unit centroids.
	Centroid(units []*block.Unit) orb.Point

	// Dissolve merges the units into one shape and returns its total
	// area and outer perimeter. Empty input yields (0, 0).
	Dissolve(units []*block.Unit) (area, perimeter float64)
}

// ForName returns the engine registered under name. The mesh engine is
// the default; an unknown name is an INVALID_CONFIGURATION error.
func ForName(name string) (Engine, error) {
	switch name {
	case "", EngineMesh:
		return MeshEngine{}, nil
	case EngineUnion:
		return UnionEngine{}, nil
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
			"unknown geometry engine %q (valid: %s, %s)", name, EngineMesh, EngineUnion)
	}
}

// meanCentroid averages the precomputed unit centroids. Shared by both
// engines so backend choice cannot move the split axis.
func meanCentroid(units []*block.Unit) orb.Point {
	if len(units) == 0 {
		return orb.Point{}
	}
	var sx, sy float64
	for _, u := range units {
		c := u.Centroid()
		sx += c[0]
		sy += c[1]
	}
	n := float64(len(units))
	return orb.Point{sx / n, sy / n}
}
