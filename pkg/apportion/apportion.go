// Package apportion implements Huntington-Hill seat apportionment.
//
// The method of equal proportions assigns every state one seat, then hands
// out the remaining seats one at a time to the state with the highest
// priority value pop/sqrt(n(n+1)), where n is the state's current seat
// count. This is the method used for the U.S. House since 1941.
package apportion

import (
	"math"
	"sort"

	apperrors "github.com/wardline/wardline/pkg/errors"
)

// Calculate distributes houseSize seats among the given state populations.
//
// Every state receives at least one seat; the result always sums to exactly
// houseSize. Ties on priority value break toward the first state in sorted
// key order, so results are deterministic for identical inputs.
//
// Returns an INVALID_CONFIGURATION error when houseSize is smaller than the
// number of states, when populations is empty, or when any population is
// non-positive.
func Calculate(populations map[string]int64, houseSize int) (map[string]int, error) {
	if err := apperrors.ValidateHouseSize(houseSize, len(populations)); err != nil {
		return nil, err
	}

	states := make([]string, 0, len(populations))
	for state, pop := range populations {
		if pop <= 0 {
			return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
				"state %q has non-positive population %d", state, pop)
		}
		states = append(states, state)
	}
	sort.Strings(states)

	seats := make(map[string]int, len(states))
	for _, state := range states {
		seats[state] = 1
	}

	for remaining := houseSize - len(states); remaining > 0; remaining-- {
		best := ""
		bestPriority := math.Inf(-1)
		for _, state := range states {
			p := Priority(populations[state], seats[state])
			if p > bestPriority {
				best = state
				bestPriority = p
			}
		}
		seats[best]++
	}

	return seats, nil
}

// Priority returns the Huntington-Hill priority value for a state with the
// given population that currently holds n seats: pop / sqrt(n(n+1)).
// The state with the highest priority value receives the next seat.
func Priority(pop int64, n int) float64 {
	return float64(pop) / math.Sqrt(float64(n)*float64(n+1))
}
