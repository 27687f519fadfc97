package district

import (
	"context"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/paulmach/orb"

	"github.com/wardline/wardline/pkg/block"
	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/geo"
)

func testUnit(t *testing.T, geoid string, x, y float64, pop, baseline int64, partisan float64) *block.Unit {
	t.Helper()
	geom := orb.Polygon{{
		{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y},
	}}
	u, err := block.NewUnit(geoid, pop, baseline, partisan, geom)
	if err != nil {
		t.Fatalf("NewUnit(%s) error = %v", geoid, err)
	}
	return u
}

func demoRegion(t *testing.T, size, seats int) *Region {
	t.Helper()
	table, err := block.DemoGrid(size)
	if err != nil {
		t.Fatalf("DemoGrid() error = %v", err)
	}
	region, err := NewRegion(table.Units(), seats)
	if err != nil {
		t.Fatalf("NewRegion() error = %v", err)
	}
	return region
}

func districtIDs(d *District) []string {
	ids := make([]string, len(d.Units))
	for i, u := range d.Units {
		ids[i] = u.GEOID
	}
	sort.Strings(ids)
	return ids
}

// groupings flattens districts into an order-independent canonical form.
func groupings(districts []*District) []string {
	out := make([]string, len(districts))
	for i, d := range districts {
		out[i] = strings.Join(districtIDs(d), ",")
	}
	sort.Strings(out)
	return out
}

func TestConfigValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		wantCode apperrors.Code
	}{
		{"defaults pass", func(c *Config) {}, ""},
		{"bad mode", func(c *Config) { c.Mode = "chaotic" }, apperrors.ErrCodeInvalidConfig},
		{"bad contiguity", func(c *Config) { c.Contiguity = "sometimes" }, apperrors.ErrCodeInvalidConfig},
		{"weight above one", func(c *Config) { c.PopWeight = 1.5 }, apperrors.ErrCodeInvalidConfig},
		{"weight NaN", func(c *Config) { c.CompactWeight = math.NaN() }, apperrors.ErrCodeInvalidConfig},
		{"negative weight", func(c *Config) { c.COIWeight = -0.1 }, apperrors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.ValidateAndSetDefaults()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("ValidateAndSetDefaults() error = %v", err)
				}
				return
			}
			if apperrors.GetCode(err) != tt.wantCode {
				t.Errorf("ValidateAndSetDefaults() error = %v, want code %q", err, tt.wantCode)
			}
		})
	}
}

func TestConfigModeSetsPartisanWeight(t *testing.T) {
	fair := DefaultConfig()
	fair.PartisanWeight = 0.7
	if err := fair.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if fair.PartisanWeight != 0 {
		t.Errorf("fair PartisanWeight = %v, want 0", fair.PartisanWeight)
	}

	gerry := DefaultConfig()
	gerry.Mode = ModeGerrymander
	gerry.PartisanWeight = 0.2
	if err := gerry.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if gerry.PartisanWeight != 1.0 {
		t.Errorf("gerrymander PartisanWeight = %v, want 1.0", gerry.PartisanWeight)
	}

	if fair.Engine == nil || fair.Engine.Name() != geo.EngineMesh {
		t.Error("default engine should be mesh")
	}
	if fair.Workers < 1 {
		t.Errorf("Workers = %d, want >= 1", fair.Workers)
	}
}

func TestNewRegion(t *testing.T) {
	u := testUnit(t, "01", 0, 0, 100, 40, 0.5)

	if _, err := NewRegion(nil, 2); apperrors.GetCode(err) != apperrors.ErrCodeInvalidConfig {
		t.Errorf("NewRegion(nil units) error = %v, want INVALID_CONFIGURATION", err)
	}
	if _, err := NewRegion([]*block.Unit{u}, 0); apperrors.GetCode(err) != apperrors.ErrCodeInvalidConfig {
		t.Errorf("NewRegion(0 seats) error = %v, want INVALID_CONFIGURATION", err)
	}

	r, err := NewRegion([]*block.Unit{u}, 1)
	if err != nil {
		t.Fatalf("NewRegion() error = %v", err)
	}
	if r.Pop() != 100 {
		t.Errorf("Pop() = %d, want 100", r.Pop())
	}
	if got := r.MinorityShare(); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("MinorityShare() = %v, want 0.6", got)
	}
}

func TestScoreTerms(t *testing.T) {
	high := testUnit(t, "01", 0, 0, 300, 120, 0.7) // minority share 0.6
	low := testUnit(t, "02", 1, 0, 100, 90, 0.3)   // minority share 0.1

	t.Run("pop balance", func(t *testing.T) {
		if got := popBalanceCost([]*block.Unit{high}, 400); math.Abs(got-0.25) > 1e-9 {
			t.Errorf("popBalanceCost() = %v, want 0.25", got)
		}
		if got := popBalanceCost([]*block.Unit{high}, 0); got != 0 {
			t.Errorf("popBalanceCost(zero target) = %v, want 0", got)
		}
	})

	t.Run("compactness", func(t *testing.T) {
		engine, _ := geo.ForName(geo.EngineMesh)
		got := compactnessCost(engine, []*block.Unit{high}, []*block.Unit{low})
		want := 1 - math.Pi/4 // both parts are unit squares
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("compactnessCost() = %v, want %v", got, want)
		}
	})

	t.Run("minority dilution", func(t *testing.T) {
		parent, err := NewRegion([]*block.Unit{high, low}, 2)
		if err != nil {
			t.Fatalf("NewRegion() error = %v", err)
		}
		// parent share 0.475; keeping the concentration in one child is free
		if got := vraCost(parent, []*block.Unit{high}, []*block.Unit{low}); got != 0 {
			t.Errorf("vraCost(concentrated) = %v, want 0", got)
		}
		// both children below the parent share pay the gap to their mean
		got := vraCost(parent, []*block.Unit{low}, []*block.Unit{low})
		if math.Abs(got-0.375) > 1e-9 {
			t.Errorf("vraCost(diluted) = %v, want 0.375", got)
		}
	})

	t.Run("partisan", func(t *testing.T) {
		// one side all above 0.5, the other all below: fully polarized
		if got := partisanCost([]*block.Unit{high}, []*block.Unit{low}); math.Abs(got) > 1e-9 {
			t.Errorf("partisanCost(polarized) = %v, want 0", got)
		}
		// both sides evenly mixed: worst case
		mixed := []*block.Unit{high, low}
		if got := partisanCost(mixed, mixed); math.Abs(got-1) > 1e-9 {
			t.Errorf("partisanCost(mixed) = %v, want 1", got)
		}
	})

	t.Run("community split", func(t *testing.T) {
		coi := map[string]bool{"01": true, "02": true}
		if got := coiCost(coi, []*block.Unit{high}, []*block.Unit{low}); got != 1 {
			t.Errorf("coiCost(split) = %v, want 1", got)
		}
		if got := coiCost(coi, []*block.Unit{high, low}, nil); got != 0 {
			t.Errorf("coiCost(together) = %v, want 0", got)
		}
		if got := coiCost(map[string]bool{"99": true}, []*block.Unit{high}, []*block.Unit{low}); got != 0 {
			t.Errorf("coiCost(absent) = %v, want 0", got)
		}
	})
}

func TestScoreSplitIdempotent(t *testing.T) {
	region := demoRegion(t, 4, 4)
	units := region.Units()
	part1, part2 := units[:8], units[8:]

	cfg := DefaultConfig()
	cfg.VRA = true
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}

	first := scoreSplit(cfg, region, part1, part2, 9500)
	for i := 0; i < 5; i++ {
		if got := scoreSplit(cfg, region, part1, part2, 9500); got != first {
			t.Fatalf("scoreSplit() = %v on repeat, want %v", got, first)
		}
	}
}

func TestPartitionDemoGrid(t *testing.T) {
	region := demoRegion(t, 4, 4)
	cfg := DefaultConfig()
	cfg.Workers = 4

	districts, err := Partition(context.Background(), region, cfg)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if len(districts) != 4 {
		t.Fatalf("Partition() produced %d districts, want 4", len(districts))
	}

	// Every unit lands in exactly one district and population conserves.
	seen := make(map[string]int)
	var total int64
	for _, d := range districts {
		var pop int64
		for _, u := range d.Units {
			seen[u.GEOID]++
			pop += u.Pop
		}
		if pop != d.Pop {
			t.Errorf("district Pop = %d, units sum to %d", d.Pop, pop)
		}
		total += d.Pop
	}
	if total != region.Pop() {
		t.Errorf("districts total pop = %d, want %d", total, region.Pop())
	}
	if len(seen) != 16 {
		t.Errorf("districts cover %d units, want 16", len(seen))
	}
	for geoid, n := range seen {
		if n != 1 {
			t.Errorf("unit %s assigned %d times", geoid, n)
		}
	}

	// Population stays near the ideal quarter share on this grid.
	ideal := float64(region.Pop()) / 4
	for i, d := range districts {
		dev := math.Abs(float64(d.Pop)-ideal) / ideal
		if dev > 0.15 {
			t.Errorf("district %d deviation = %.3f, want <= 0.15", i, dev)
		}
	}

	// The balanced search settles on the four quadrants, first split
	// horizontal, second splits vertical, part1 always first.
	want := [][]string{
		{"0000200", "0000201", "0000300", "0000301"},
		{"0000000", "0000001", "0000100", "0000101"},
		{"0000202", "0000203", "0000302", "0000303"},
		{"0000002", "0000003", "0000102", "0000103"},
	}
	for i, d := range districts {
		if got := districtIDs(d); !reflect.DeepEqual(got, want[i]) {
			t.Errorf("district %d = %v, want %v", i, got, want[i])
		}
	}
}

func TestPartitionDeterministic(t *testing.T) {
	cfg1 := DefaultConfig()
	cfg1.Workers = 8
	first, err := Partition(context.Background(), demoRegion(t, 4, 4), cfg1)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}

	cfg2 := DefaultConfig()
	cfg2.Workers = 1
	second, err := Partition(context.Background(), demoRegion(t, 4, 4), cfg2)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("district counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !reflect.DeepEqual(districtIDs(first[i]), districtIDs(second[i])) {
			t.Errorf("district %d differs between runs: %v vs %v",
				i, districtIDs(first[i]), districtIDs(second[i]))
		}
	}
}

func TestPartitionModesDiverge(t *testing.T) {
	// 2x2 grid, equal populations, partisan lean by column. Population
	// and compactness tie across the horizontal and vertical splits, so
	// fair mode takes the smallest angle (horizontal) while gerrymander
	// mode is pulled to the vertical split that polarizes both sides.
	build := func(t *testing.T) *Region {
		units := []*block.Unit{
			testUnit(t, "0000", 0, 0, 1000, 400, 0.3),
			testUnit(t, "0001", 0, 1, 1000, 400, 0.3),
			testUnit(t, "0100", 1, 0, 1000, 400, 0.7),
			testUnit(t, "0101", 1, 1, 1000, 400, 0.7),
		}
		region, err := NewRegion(units, 2)
		if err != nil {
			t.Fatalf("NewRegion() error = %v", err)
		}
		return region
	}

	fair, err := Partition(context.Background(), build(t), DefaultConfig())
	if err != nil {
		t.Fatalf("Partition(fair) error = %v", err)
	}

	gerryCfg := DefaultConfig()
	gerryCfg.Mode = ModeGerrymander
	gerry, err := Partition(context.Background(), build(t), gerryCfg)
	if err != nil {
		t.Fatalf("Partition(gerrymander) error = %v", err)
	}

	if reflect.DeepEqual(groupings(fair), groupings(gerry)) {
		t.Errorf("fair and gerrymander groupings match: %v", groupings(fair))
	}

	wantFair := []string{"0000,0100", "0001,0101"}
	if got := groupings(fair); !reflect.DeepEqual(got, wantFair) {
		t.Errorf("fair groupings = %v, want %v", got, wantFair)
	}
	wantGerry := []string{"0000,0001", "0100,0101"}
	if got := groupings(gerry); !reflect.DeepEqual(got, wantGerry) {
		t.Errorf("gerrymander groupings = %v, want %v", got, wantGerry)
	}
}

func TestPartitionPreservesCOI(t *testing.T) {
	table, err := block.DemoGrid(4)
	if err != nil {
		t.Fatalf("DemoGrid() error = %v", err)
	}
	coiIDs := block.DemoCOI(4)
	table.MarkCOI(coiIDs)

	region, err := NewRegion(table.Units(), 4)
	if err != nil {
		t.Fatalf("NewRegion() error = %v", err)
	}

	cfg := DefaultConfig()
	cfg.VRA = true
	cfg.COI = make(map[string]bool, len(coiIDs))
	for _, id := range coiIDs {
		cfg.COI[id] = true
	}

	districts, err := Partition(context.Background(), region, cfg)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if len(districts) != 4 {
		t.Fatalf("Partition() produced %d districts, want 4", len(districts))
	}

	assignment := make(map[string]int)
	for i, d := range districts {
		for _, u := range d.Units {
			assignment[u.GEOID] = i
		}
	}
	home := assignment[coiIDs[0]]
	for _, id := range coiIDs[1:] {
		if assignment[id] != home {
			t.Errorf("COI unit %s in district %d, want %d with the rest of the community",
				id, assignment[id], home)
		}
	}
}

func TestPartitionProgress(t *testing.T) {
	var mu sync.Mutex
	var pcts []int

	cfg := DefaultConfig()
	cfg.Workers = 4
	cfg.Progress = func(pct int) {
		mu.Lock()
		pcts = append(pcts, pct)
		mu.Unlock()
	}

	if _, err := Partition(context.Background(), demoRegion(t, 4, 4), cfg); err != nil {
		t.Fatalf("Partition() error = %v", err)
	}

	if len(pcts) != 4 {
		t.Fatalf("progress emitted %d times, want 4: %v", len(pcts), pcts)
	}
	for i := 1; i < len(pcts); i++ {
		if pcts[i] < pcts[i-1] {
			t.Errorf("progress not monotonic: %v", pcts)
		}
	}
	if pcts[len(pcts)-1] != 100 {
		t.Errorf("final progress = %d, want 100", pcts[len(pcts)-1])
	}
	if want := []int{25, 50, 75, 100}; !reflect.DeepEqual(pcts, want) {
		t.Errorf("progress = %v, want %v", pcts, want)
	}
}

func TestPartitionFallbacks(t *testing.T) {
	t.Run("zero population region", func(t *testing.T) {
		units := []*block.Unit{
			testUnit(t, "01", 0, 0, 0, 0, 0.5),
			testUnit(t, "02", 1, 0, 0, 0, 0.5),
		}
		region, err := NewRegion(units, 3)
		if err != nil {
			t.Fatalf("NewRegion() error = %v", err)
		}

		var last int
		cfg := DefaultConfig()
		cfg.Progress = func(pct int) { last = pct }

		districts, err := Partition(context.Background(), region, cfg)
		if err != nil {
			t.Fatalf("Partition() error = %v", err)
		}
		if len(districts) != 1 {
			t.Errorf("Partition() produced %d districts, want 1 undivided group", len(districts))
		}
		if last != 100 {
			t.Errorf("final progress = %d, want 100 after fallback", last)
		}
	})

	t.Run("single unit cannot split", func(t *testing.T) {
		region, err := NewRegion([]*block.Unit{testUnit(t, "01", 0, 0, 500, 100, 0.5)}, 2)
		if err != nil {
			t.Fatalf("NewRegion() error = %v", err)
		}

		districts, err := Partition(context.Background(), region, DefaultConfig())
		if err != nil {
			t.Fatalf("Partition() error = %v", err)
		}
		if len(districts) != 1 {
			t.Errorf("Partition() produced %d districts, want 1", len(districts))
		}
		if districts[0].Pop != 500 {
			t.Errorf("fallback district Pop = %d, want 500", districts[0].Pop)
		}
	})
}

func TestPartitionCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Partition(ctx, demoRegion(t, 4, 4), DefaultConfig())
	if apperrors.GetCode(err) != apperrors.ErrCodeCanceled {
		t.Errorf("Partition() error = %v, want CANCELED", err)
	}
}

func TestPartitionStrictContiguity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Contiguity = ContiguityStrict

	districts, err := Partition(context.Background(), demoRegion(t, 4, 4), cfg)
	if err != nil {
		t.Fatalf("Partition() error = %v", err)
	}
	if len(districts) != 4 {
		t.Fatalf("Partition() produced %d districts, want 4", len(districts))
	}

	broken, err := CheckContiguity(districts)
	if err != nil {
		t.Fatalf("CheckContiguity() error = %v", err)
	}
	if len(broken) != 0 {
		t.Errorf("CheckContiguity() = %v, want none broken", broken)
	}
}

func TestCheckContiguity(t *testing.T) {
	connected := &District{Units: []*block.Unit{
		testUnit(t, "01", 0, 0, 100, 40, 0.5),
		testUnit(t, "02", 1, 0, 100, 40, 0.5),
	}}
	broken := &District{Units: []*block.Unit{
		testUnit(t, "03", 0, 5, 100, 40, 0.5),
		testUnit(t, "04", 7, 5, 100, 40, 0.5),
	}}

	got, err := CheckContiguity([]*District{connected, broken})
	if err != nil {
		t.Fatalf("CheckContiguity() error = %v", err)
	}
	if !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("CheckContiguity() = %v, want [1]", got)
	}
}
