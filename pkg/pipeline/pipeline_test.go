package pipeline

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/wardline/wardline/pkg/cache"
	"github.com/wardline/wardline/pkg/district"
	apperrors "github.com/wardline/wardline/pkg/errors"
)

func testRunner(t *testing.T) *Runner {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return NewRunner(c, nil, log.New(io.Discard))
}

func demoOptions() Options {
	opts := DefaultOptions()
	opts.Demo = true
	return opts
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Options)
		wantCode apperrors.Code
	}{
		{"demo defaults", func(o *Options) {}, ""},
		{"explicit state", func(o *Options) { o.Demo = false; o.State = "06" }, ""},
		{"no state no demo", func(o *Options) { o.Demo = false }, apperrors.ErrCodeInvalidConfig},
		{"unknown state", func(o *Options) { o.Demo = false; o.State = "99" }, apperrors.ErrCodeInvalidState},
		{"bad resolution", func(o *Options) { o.Resolution = "county" }, apperrors.ErrCodeInvalidResolution},
		{"bad mode", func(o *Options) { o.Mode = "chaotic" }, apperrors.ErrCodeInvalidConfig},
		{"bad engine", func(o *Options) { o.Engine = "gpu" }, apperrors.ErrCodeInvalidConfig},
		{"bad contiguity", func(o *Options) { o.Contiguity = "maybe" }, apperrors.ErrCodeInvalidConfig},
		{"negative seats", func(o *Options) { o.Seats = -2 }, apperrors.ErrCodeInvalidConfig},
		{"bad election year", func(o *Options) { o.ElectionYear = 2021 }, apperrors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := demoOptions()
			tt.mutate(&opts)
			err := opts.ValidateAndSetDefaults()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("ValidateAndSetDefaults() error = %v, want nil", err)
				}
				return
			}
			if !apperrors.Is(err, tt.wantCode) {
				t.Errorf("ValidateAndSetDefaults() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestOptionsDemoDefaults(t *testing.T) {
	opts := demoOptions()
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error = %v", err)
	}
	if opts.DemoSize != DefaultDemoSize {
		t.Errorf("DemoSize = %d, want %d", opts.DemoSize, DefaultDemoSize)
	}
	if opts.Seats != DefaultDemoSeats {
		t.Errorf("Seats = %d, want %d", opts.Seats, DefaultDemoSeats)
	}

	// Idempotent: a second call changes nothing and keeps succeeding.
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("second ValidateAndSetDefaults() error = %v", err)
	}
}

func TestRunDemo(t *testing.T) {
	r := testRunner(t)
	result, err := r.Run(context.Background(), demoOptions())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.RunID == "" {
		t.Error("Run() should assign a run id")
	}
	if result.Seats != DefaultDemoSeats || result.SeatsSource != SeatsRequested {
		t.Errorf("seats = %d (%s), want %d (%s)",
			result.Seats, result.SeatsSource, DefaultDemoSeats, SeatsRequested)
	}
	if len(result.Districts) != DefaultDemoSeats {
		t.Fatalf("len(Districts) = %d, want %d", len(result.Districts), DefaultDemoSeats)
	}
	if result.Plan == nil || result.Plan.SeatsProduced != DefaultDemoSeats {
		t.Fatalf("Plan = %+v, want %d districts", result.Plan, DefaultDemoSeats)
	}
	if len(result.Metrics) != DefaultDemoSeats {
		t.Errorf("len(Metrics) = %d, want %d", len(result.Metrics), DefaultDemoSeats)
	}
	if result.Stats.Units != DefaultDemoSize*DefaultDemoSize {
		t.Errorf("Stats.Units = %d, want %d", result.Stats.Units, DefaultDemoSize*DefaultDemoSize)
	}

	// Population is conserved across the partition.
	var got int64
	for _, d := range result.Districts {
		got += d.Pop
	}
	if want := result.Table.TotalPop(); got != want {
		t.Errorf("district population sum = %d, want %d", got, want)
	}
	if result.Plan.TotalPop() != result.Table.TotalPop() {
		t.Errorf("Plan.TotalPop() = %d, want %d", result.Plan.TotalPop(), result.Table.TotalPop())
	}
}

func TestRunDemoPlanCache(t *testing.T) {
	r := testRunner(t)
	opts := demoOptions()

	first, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if first.CacheInfo.PlanHit {
		t.Fatal("first run should not hit the plan cache")
	}

	second, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if !second.CacheInfo.PlanHit {
		t.Fatal("second run should hit the plan cache")
	}
	if second.Plan.ID != first.Plan.ID {
		t.Errorf("cached plan id = %s, want %s", second.Plan.ID, first.Plan.ID)
	}
	if got, want := planGroupings(second), planGroupings(first); !equalStrings(got, want) {
		t.Errorf("cached districts = %v, want %v", got, want)
	}
}

func TestRunDifferentSeatsSkipPlanCache(t *testing.T) {
	r := testRunner(t)

	opts := demoOptions()
	if _, err := r.Run(context.Background(), opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	opts = demoOptions()
	opts.Seats = 2
	result, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.CacheInfo.PlanHit {
		t.Error("run with different seats should not reuse the cached plan")
	}
	if len(result.Districts) != 2 {
		t.Errorf("len(Districts) = %d, want 2", len(result.Districts))
	}
}

func TestRunProgressMonotonic(t *testing.T) {
	r := testRunner(t)
	opts := demoOptions()

	var mu sync.Mutex
	var pcts []int
	opts.Progress = func(stage string, pct int) {
		if stage != StagePartition {
			t.Errorf("progress stage = %q, want %q", stage, StagePartition)
		}
		mu.Lock()
		pcts = append(pcts, pct)
		mu.Unlock()
	}

	if _, err := r.Run(context.Background(), opts); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(pcts) == 0 {
		t.Fatal("no progress was reported")
	}
	for i := 1; i < len(pcts); i++ {
		if pcts[i] < pcts[i-1] {
			t.Fatalf("progress went backwards: %v", pcts)
		}
	}
	if last := pcts[len(pcts)-1]; last != 100 {
		t.Errorf("final progress = %d, want 100", last)
	}
}

func TestRunContiguityWarn(t *testing.T) {
	r := testRunner(t)
	opts := demoOptions()
	opts.Contiguity = district.ContiguityWarn

	result, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Broken) != 0 {
		t.Errorf("demo grid produced non-contiguous districts: %v", result.Broken)
	}
}

func TestRunCanceled(t *testing.T) {
	r := testRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, demoOptions())
	if !apperrors.Is(err, apperrors.ErrCodeCanceled) {
		t.Errorf("Run() error = %v, want code %s", err, apperrors.ErrCodeCanceled)
	}
}

func TestResolveSeats(t *testing.T) {
	r := testRunner(t)
	result, err := r.Run(context.Background(), demoOptions())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	table := result.Table

	tests := []struct {
		name       string
		opts       Options
		wantSeats  int
		wantSource string
	}{
		{"explicit request", Options{Seats: 7}, 7, SeatsRequested},
		{"apportioned state", Options{State: "06"}, 52, SeatsApportioned},
		{"estimate fallback", Options{}, 1, SeatsEstimated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seats, source := resolveSeats(tt.opts, table)
			if seats != tt.wantSeats || source != tt.wantSource {
				t.Errorf("resolveSeats() = %d (%s), want %d (%s)",
					seats, source, tt.wantSeats, tt.wantSource)
			}
		})
	}
}

func TestProviderKey(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"auto chain", Options{}, "auto"},
		{"pinned provider", Options{Provider: "medsl"}, "medsl"},
		{"local file", Options{PartisanFile: "scores.csv"}, "file"},
		{"pin beats file", Options{Provider: "uniform", PartisanFile: "scores.csv"}, "uniform"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := providerKey(tt.opts); got != tt.want {
				t.Errorf("providerKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCOIHash(t *testing.T) {
	if coiHash(nil) != "" {
		t.Error("coiHash(nil) should be empty")
	}
	// Order-insensitive.
	a := coiHash([]string{"0001", "0002"})
	b := coiHash([]string{"0002", "0001"})
	if a == "" || a != b {
		t.Errorf("coiHash should ignore order: %q vs %q", a, b)
	}
	if coiHash([]string{"0001"}) == a {
		t.Error("different id sets should hash differently")
	}
}

func planGroupings(result *Result) []string {
	out := make([]string, len(result.Plan.Districts))
	for i, e := range result.Plan.Districts {
		out[i] = strings.Join(e.Units, ",")
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
