package district

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/paulmach/orb"

	"github.com/wardline/wardline/pkg/block"
	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/geo"
	"github.com/wardline/wardline/pkg/observability"
)

// A splittable region is bisected along one of numAngles candidate
// lines through its centroid. A line and its reverse produce the same
// bisection, so the sweep covers only a half turn.
const (
	numAngles = 10
	angleStep = 180.0 / numAngles
)

// Partition divides the region into its target number of districts by
// recursive bisection. The result is deterministic for a given input
// and configuration: candidate angles tie-break toward the smallest
// angle and subtree order is fixed, regardless of how many workers run.
//
// When a region cannot be split (zero population, or every candidate
// leaves one side empty or is discarded by the strict contiguity
// policy), it is returned undivided. The caller detects this as a
// district count below the requested seat count.
func Partition(ctx context.Context, region *Region, cfg *Config) ([]*District, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	hooks := observability.Partition()
	hooks.OnPartitionStart(ctx, len(region.Units()), region.Seats())
	start := time.Now()

	p := &partitioner{
		cfg:   cfg,
		hooks: hooks,
		sem:   semaphore.NewWeighted(int64(cfg.Workers)),
		progress: &progress{
			total: region.Seats(),
			fn:    cfg.Progress,
			hooks: hooks,
		},
	}

	districts, err := p.bisect(ctx, region.Units(), region.Seats(), 0)
	hooks.OnPartitionComplete(ctx, len(districts), time.Since(start), err)
	return districts, err
}

// partitioner carries the per-call state of one Partition invocation.
// Nothing here outlives the call, so concurrent Partition calls never
// interfere.
type partitioner struct {
	cfg      *Config
	hooks    observability.PartitionHooks
	sem      *semaphore.Weighted
	progress *progress
}

// progress counts completed leaves and reports percentages. The mutex
// both protects the counter and serializes callback invocations so
// delivered percentages never go backwards.
type progress struct {
	mu    sync.Mutex
	done  int
	total int
	fn    func(pct int)
	hooks observability.PartitionHooks
}

// advance records n newly settled seats. A fallback settles all the
// seats its region was asked for at once, so a run that degrades still
// ends at 100.
func (p *progress) advance(ctx context.Context, n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done += n
	if p.fn != nil {
		p.fn(p.done * 100 / p.total)
	}
	p.hooks.OnDistrictDone(ctx, p.done, p.total)
}

func (p *partitioner) bisect(ctx context.Context, units []*block.Unit, seats, depth int) ([]*District, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeCanceled, err, "partition canceled")
	}

	if seats <= 1 {
		p.progress.advance(ctx, 1)
		return []*District{{Units: units, Pop: sumPop(units)}}, nil
	}

	if sumPop(units) == 0 {
		p.hooks.OnFallback(ctx, len(units), "zero population")
		p.progress.advance(ctx, seats)
		return []*District{{Units: units, Pop: 0}}, nil
	}

	s1 := seats / 2
	s2 := seats - s1

	best := p.findBestSplit(ctx, units, s1, s2, depth)
	if best == nil {
		p.hooks.OnFallback(ctx, len(units), "no valid split")
		p.progress.advance(ctx, seats)
		return []*District{{Units: units, Pop: sumPop(units)}}, nil
	}

	var (
		d1, d2     []*District
		err1, err2 error
	)
	if p.sem.TryAcquire(1) {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer p.sem.Release(1)
			d1, err1 = p.bisect(ctx, best.part1, s1, depth+1)
		}()
		d2, err2 = p.bisect(ctx, best.part2, s2, depth+1)
		wg.Wait()
	} else {
		d1, err1 = p.bisect(ctx, best.part1, s1, depth+1)
		d2, err2 = p.bisect(ctx, best.part2, s2, depth+1)
	}
	if err1 != nil {
		return nil, err1
	}
	if err2 != nil {
		return nil, err2
	}
	return append(d1, d2...), nil
}

// candidate is one proposed bisection. Only the best-scoring candidate
// of a split survives.
type candidate struct {
	angle float64
	part1 []*block.Unit
	part2 []*block.Unit
	score float64
}

// findBestSplit scores every candidate angle and returns the cheapest
// valid split, or nil when none exists. Candidates are independent, so
// they fan out across whatever worker capacity is free; the reduction
// always walks angles in ascending order, which makes ties land on the
// smallest angle.
func (p *partitioner) findBestSplit(ctx context.Context, units []*block.Unit, s1, s2, depth int) *candidate {
	parent := &Region{units: units, seats: s1 + s2, pop: sumPop(units)}
	targetPop1 := float64(parent.pop) * float64(s1) / float64(s1+s2)
	centroid := p.cfg.Engine.Centroid(units)

	candidates := make([]*candidate, numAngles)
	eval := func(slot int, angle float64) {
		cand := splitAtAngle(units, centroid, angle)
		if cand == nil {
			return
		}
		if p.cfg.Contiguity == ContiguityStrict && !bothSidesContiguous(cand) {
			return
		}
		cand.score = scoreSplit(p.cfg, parent, cand.part1, cand.part2, targetPop1)
		candidates[slot] = cand
	}

	var wg sync.WaitGroup
	for i := 0; i < numAngles; i++ {
		angle := float64(i) * angleStep
		if p.sem.TryAcquire(1) {
			wg.Add(1)
			go func(slot int, angle float64) {
				defer wg.Done()
				defer p.sem.Release(1)
				eval(slot, angle)
			}(i, angle)
		} else {
			eval(i, angle)
		}
	}
	wg.Wait()

	var best *candidate
	for _, cand := range candidates {
		if cand == nil {
			continue
		}
		if best == nil || cand.score < best.score {
			best = cand
		}
	}
	if best != nil {
		p.hooks.OnSplitChosen(ctx, depth, best.angle, best.score)
	}
	return best
}

// splitAtAngle classifies every unit to one side of the line through
// the centroid at the given angle, by the sign of the cross product of
// the unit's centroid offset against the line direction. Returns nil
// when a side comes up empty.
func splitAtAngle(units []*block.Unit, centroid orb.Point, angleDeg float64) *candidate {
	sin, cos := math.Sincos(angleDeg * math.Pi / 180)

	var part1, part2 []*block.Unit
	for _, u := range units {
		c := u.Centroid()
		if (c[0]-centroid[0])*sin-(c[1]-centroid[1])*cos > 0 {
			part1 = append(part1, u)
		} else {
			part2 = append(part2, u)
		}
	}
	if len(part1) == 0 || len(part2) == 0 {
		return nil
	}
	return &candidate{angle: angleDeg, part1: part1, part2: part2}
}

func bothSidesContiguous(c *candidate) bool {
	ok, err := geo.IsContiguous(c.part1)
	if err != nil || !ok {
		return false
	}
	ok, err = geo.IsContiguous(c.part2)
	return err == nil && ok
}

// CheckContiguity returns the indices of districts that do not form a
// single connected component. Callers running the warn policy log
// these; plan validation reports them.
func CheckContiguity(districts []*District) ([]int, error) {
	var broken []int
	for i, d := range districts {
		ok, err := geo.IsContiguous(d.Units)
		if err != nil {
			return nil, err
		}
		if !ok {
			broken = append(broken, i)
		}
	}
	return broken, nil
}
