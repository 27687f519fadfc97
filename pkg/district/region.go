// Package district implements the recursive bisection partitioner: it
// divides a region of census units into the requested number of
// districts by repeatedly splitting along the best of several candidate
// angles through the region centroid.
//
// The search is a cost minimization. Each candidate split is scored on
// population balance, compactness, minority-share preservation,
// partisan lean, and community-of-interest integrity; the weights (and
// the operating mode that sets them) decide which maps win.
package district

import (
	"github.com/wardline/wardline/pkg/block"
	apperrors "github.com/wardline/wardline/pkg/errors"
)

// Region is a group of units plus the number of districts it must still
// yield. Regions are read-only views; units are shared by reference
// down the recursion and never copied or mutated.
type Region struct {
	units []*block.Unit
	seats int
	pop   int64
}

// NewRegion validates the seat count and wraps the units. The unit
// slice must not be mutated afterwards.
func NewRegion(units []*block.Unit, seats int) (*Region, error) {
	if err := apperrors.ValidateSeats(seats); err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidConfig, "region has no units")
	}
	return &Region{units: units, seats: seats, pop: sumPop(units)}, nil
}

// Units returns the region's units.
func (r *Region) Units() []*block.Unit { return r.units }

// Seats returns how many districts the region must yield.
func (r *Region) Seats() int { return r.seats }

// Pop returns the region's total population, computed once at
// construction.
func (r *Region) Pop() int64 { return r.pop }

// MinorityShare returns the fraction of the region's population outside
// the non-minority baseline, 0 for an empty or zero-population region.
func (r *Region) MinorityShare() float64 {
	return minorityShare(r.units)
}

// District is a finished leaf of the partition: one seat's units. When
// a degenerate region could not be split, a single District may stand
// in for several requested seats; callers detect this as a district
// count below the requested seat count.
type District struct {
	Units []*block.Unit
	Pop   int64
}

func sumPop(units []*block.Unit) int64 {
	var total int64
	for _, u := range units {
		total += u.Pop
	}
	return total
}

func minorityShare(units []*block.Unit) float64 {
	var pop, baseline int64
	for _, u := range units {
		pop += u.Pop
		baseline += u.Baseline
	}
	if pop == 0 {
		return 0
	}
	return 1 - float64(baseline)/float64(pop)
}
