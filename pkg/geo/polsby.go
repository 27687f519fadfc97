package geo

import (
	"math"

	"github.com/wardline/wardline/pkg/block"
)

// PolsbyPopper returns 4*pi*area/perimeter^2, the classic compactness
// index: 1.0 for a circle, approaching 0 for contorted shapes.
// Degenerate inputs score 0 rather than dividing by zero.
func PolsbyPopper(area, perimeter float64) float64 {
	if area <= 0 || perimeter <= 0 {
		return 0
	}
	return 4 * math.Pi * area / (perimeter * perimeter)
}

// Compactness dissolves the units with the engine and scores the
// result. An empty region scores 0.
func Compactness(e Engine, units []*block.Unit) float64 {
	if len(units) == 0 {
		return 0
	}
	area, perimeter := e.Dissolve(units)
	return PolsbyPopper(area, perimeter)
}
