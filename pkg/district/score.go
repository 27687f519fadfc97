package district

import (
	"math"

	"github.com/wardline/wardline/pkg/block"
	"github.com/wardline/wardline/pkg/geo"
)

// vraThreshold is the parent minority share above which a split must
// keep the concentration intact in at least one child.
const vraThreshold = 0.30

// scoreSplit prices one candidate bisection. All terms are costs in
// roughly [0, 1]; lower is better. The weighted terms sum with the
// unweighted minority-dilution penalty, which activates only when the
// VRA toggle is on.
func scoreSplit(cfg *Config, parent *Region, part1, part2 []*block.Unit, targetPop1 float64) float64 {
	cost := cfg.PopWeight * popBalanceCost(part1, targetPop1)
	cost += cfg.CompactWeight * compactnessCost(cfg.Engine, part1, part2)
	if cfg.VRA {
		cost += vraCost(parent, part1, part2)
	}
	if cfg.PartisanWeight > 0 {
		cost += cfg.PartisanWeight * partisanCost(part1, part2)
	}
	if len(cfg.COI) > 0 {
		cost += cfg.COIWeight * coiCost(cfg.COI, part1, part2)
	}
	return cost
}

// popBalanceCost is the relative deviation of part1's population from
// its target share. A zero target makes the term vacuous.
func popBalanceCost(part1 []*block.Unit, targetPop1 float64) float64 {
	if targetPop1 <= 0 {
		return 0
	}
	return math.Abs(float64(sumPop(part1))-targetPop1) / targetPop1
}

// compactnessCost averages the two sides' Polsby-Popper scores and
// inverts them into a cost.
func compactnessCost(engine geo.Engine, part1, part2 []*block.Unit) float64 {
	c1 := geo.Compactness(engine, part1)
	c2 := geo.Compactness(engine, part2)
	return 1 - (c1+c2)/2
}

// vraCost penalizes splits that dilute an existing minority
// concentration: when the parent's minority share exceeds the threshold
// and both children fall below it, the cost is the gap between the
// parent share and the children's mean share. Concentrating the
// minority population in at least one child costs nothing.
func vraCost(parent *Region, part1, part2 []*block.Unit) float64 {
	parentShare := parent.MinorityShare()
	if parentShare <= vraThreshold {
		return 0
	}
	s1 := minorityShare(part1)
	s2 := minorityShare(part2)
	if s1 < parentShare && s2 < parentShare {
		return parentShare - (s1+s2)/2
	}
	return 0
}

// partisanCost rewards pushing each side's majority away from an even
// split: it is lowest when both sides lean hard one way. share is the
// fraction of units (not population) scoring above 0.5.
func partisanCost(part1, part2 []*block.Unit) float64 {
	s1 := majorityUnitShare(part1)
	s2 := majorityUnitShare(part2)
	return 1 - math.Abs(s1-0.5) - math.Abs(s2-0.5)
}

func majorityUnitShare(units []*block.Unit) float64 {
	if len(units) == 0 {
		return 0
	}
	n := 0
	for _, u := range units {
		if u.Partisan > 0.5 {
			n++
		}
	}
	return float64(n) / float64(len(units))
}

// coiCost is 1 when designated community units land on both sides of
// the split, 0 when they stay together (or are absent entirely).
func coiCost(coi map[string]bool, part1, part2 []*block.Unit) float64 {
	if containsCOI(coi, part1) && containsCOI(coi, part2) {
		return 1
	}
	return 0
}

func containsCOI(coi map[string]bool, units []*block.Unit) bool {
	for _, u := range units {
		if coi[u.GEOID] {
			return true
		}
	}
	return false
}
