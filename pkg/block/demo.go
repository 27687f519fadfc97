package block

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// DemoGrid builds a size x size grid of synthetic unit squares for smoke
// runs and tests. Cell (i, j) covers [i,i+1] x [j,j+1] with GEOID
// "000" + ii + jj. Population grows by 25 per cell from a base of 1000,
// minority share alternates 0.55/0.35 so the grid is majority-minority
// overall, and the left half leans one party while the right half leans
// the other.
func DemoGrid(size int) (*Table, error) {
	units := make([]*Unit, 0, size*size)
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			geoid := fmt.Sprintf("000%02d%02d", i, j)
			pop := int64(1000 + (i*size+j)*25)

			share := 0.35
			if (i+j)%3 == 0 {
				share = 0.55
			}
			minority := int64(math.Round(float64(pop) * share))

			partisan := 0.7
			if float64(i) < float64(size)/2 {
				partisan = 0.3
			}

			x, y := float64(i), float64(j)
			geom := orb.Polygon{{
				{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y},
			}}

			u, err := NewUnit(geoid, pop, pop-minority, partisan, geom)
			if err != nil {
				return nil, err
			}
			units = append(units, u)
		}
	}
	return NewTable(units)
}

// DemoCOI returns the GEOIDs of the grid's first three cells, a small
// contiguous community used to exercise preservation in smoke runs.
func DemoCOI(size int) []string {
	n := 3
	if size*size < n {
		n = size * size
	}
	ids := make([]string, 0, n)
	for i := 0; i < size && len(ids) < n; i++ {
		for j := 0; j < size && len(ids) < n; j++ {
			ids = append(ids, fmt.Sprintf("000%02d%02d", i, j))
		}
	}
	return ids
}
