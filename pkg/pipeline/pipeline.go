// Package pipeline runs the staged plan workflow shared by the CLI
// commands.
//
// A run moves through four stages:
//
//  1. Fetch: census rows, boundary shapes, and partisan scores
//  2. Assemble: join everything into a validated unit table
//  3. Partition: run the recursive bisection engine
//  4. Summarize: build the plan artifact and per-district metrics
//
// Assembled tables and finished plans are cached between runs; the
// acquisition clients cache their raw payloads underneath. Demo mode
// skips the fetch stage entirely and assembles a synthetic grid.
//
// Usage:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.State = "06"
//	result, err := runner.Run(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Plan.ID)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wardline/wardline/pkg/block"
	"github.com/wardline/wardline/pkg/district"
	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/geo"
	"github.com/wardline/wardline/pkg/partisan"
	"github.com/wardline/wardline/pkg/plan"
	"github.com/wardline/wardline/pkg/tiger"
)

// =============================================================================
// Defaults - Single Source of Truth for the CLI Commands
// =============================================================================

const (
	// DefaultResolution balances fidelity against volume; block
	// resolution is opt-in.
	DefaultResolution = tiger.ResolutionTract

	// DefaultDemoSize is the demo grid edge length.
	DefaultDemoSize = 4

	// DefaultDemoSeats is the district count for demo runs when none is
	// requested; four quadrants suit the default grid.
	DefaultDemoSeats = 4

	// PersonsPerSeat estimates a seat count from raw population when a
	// state is missing from the apportionment table, roughly one seat
	// per 760k people after the 2020 census.
	PersonsPerSeat = 760_000
)

// Stage names used in hooks, errors, and progress callbacks.
const (
	StageFetch     = "fetch"
	StageAssemble  = "assemble"
	StagePartition = "partition"
	StageSummarize = "summarize"
)

// Seat count provenance reported in Result.
const (
	SeatsRequested   = "requested"
	SeatsApportioned = "apportioned"
	SeatsEstimated   = "estimated"
)

// ValidResolutions is the set of supported unit resolutions.
var ValidResolutions = map[string]bool{
	tiger.ResolutionTract: true,
	tiger.ResolutionBlock: true,
}

// =============================================================================
// Options - Run Configuration
// =============================================================================

// Options configures one pipeline run. The struct serializes for run
// records; runtime-only fields are excluded.
type Options struct {
	// Data options
	State        string   `json:"state,omitempty"`
	Demo         bool     `json:"demo,omitempty"`
	DemoSize     int      `json:"demo_size,omitempty"`
	Resolution   string   `json:"resolution,omitempty"`
	Provider     string   `json:"provider,omitempty"`
	PartisanFile string   `json:"partisan_file,omitempty"`
	ElectionYear int      `json:"election_year,omitempty"`
	COI          []string `json:"coi,omitempty"`
	CacheOnly    bool     `json:"cache_only,omitempty"`

	// Partition options. Weights pass through to the scorer as given;
	// zero is a meaningful value, so start from DefaultOptions.
	Seats         int     `json:"seats,omitempty"`
	Mode          string  `json:"mode,omitempty"`
	PopWeight     float64 `json:"pop_weight"`
	CompactWeight float64 `json:"compactness_weight"`
	COIWeight     float64 `json:"coi_weight"`
	VRA           bool    `json:"vra,omitempty"`
	Engine        string  `json:"engine,omitempty"`
	Contiguity    string  `json:"contiguity,omitempty"`
	Workers       int     `json:"workers,omitempty"`

	// Runtime options (not serialized)
	APIKey   string                      `json:"-"`
	Logger   *log.Logger                 `json:"-"`
	Progress func(stage string, pct int) `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// DefaultOptions returns a fair-mode run with balanced weights on the
// default resolution.
func DefaultOptions() Options {
	return Options{
		Resolution:    DefaultResolution,
		Mode:          district.ModeFair,
		PopWeight:     district.DefaultPopWeight,
		CompactWeight: district.DefaultCompactWeight,
		COIWeight:     district.DefaultCOIWeight,
		Engine:        geo.EngineMesh,
		Contiguity:    district.ContiguityOff,
		ElectionYear:  partisan.DefaultYear,
	}
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same
// effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if !o.Demo {
		if o.State == "" {
			return apperrors.New(apperrors.ErrCodeInvalidConfig,
				"either a state FIPS code or demo mode is required")
		}
		if err := apperrors.ValidateStateFIPS(o.State); err != nil {
			return err
		}
	}
	if o.Demo && o.DemoSize == 0 {
		o.DemoSize = DefaultDemoSize
	}
	if o.Demo && o.Seats == 0 {
		o.Seats = DefaultDemoSeats
	}

	if o.Resolution == "" {
		o.Resolution = DefaultResolution
	}
	if !ValidResolutions[o.Resolution] {
		return apperrors.New(apperrors.ErrCodeInvalidResolution,
			"invalid resolution %q (must be one of: %s, %s)",
			o.Resolution, tiger.ResolutionTract, tiger.ResolutionBlock)
	}

	if o.Mode == "" {
		o.Mode = district.ModeFair
	}
	if !district.ValidModes[o.Mode] {
		return apperrors.New(apperrors.ErrCodeInvalidConfig,
			"invalid mode %q (must be one of: %s, %s)",
			o.Mode, district.ModeFair, district.ModeGerrymander)
	}

	if o.Engine == "" {
		o.Engine = geo.EngineMesh
	}
	if _, err := geo.ForName(o.Engine); err != nil {
		return err
	}

	if o.Contiguity == "" {
		o.Contiguity = district.ContiguityOff
	}
	if !district.ValidContiguity[o.Contiguity] {
		return apperrors.New(apperrors.ErrCodeInvalidConfig,
			"invalid contiguity policy %q (must be one of: %s, %s, %s)",
			o.Contiguity, district.ContiguityOff, district.ContiguityWarn, district.ContiguityStrict)
	}

	if o.Seats < 0 {
		return apperrors.New(apperrors.ErrCodeInvalidConfig, "seats must not be negative, got %d", o.Seats)
	}
	if o.ElectionYear == 0 {
		o.ElectionYear = partisan.DefaultYear
	}
	if err := apperrors.ValidateElectionYear(o.ElectionYear); err != nil {
		return err
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}

// districtConfig builds the partitioner configuration for this run.
func (o *Options) districtConfig(engine geo.Engine) *district.Config {
	coi := make(map[string]bool, len(o.COI))
	for _, id := range o.COI {
		coi[id] = true
	}

	cfg := &district.Config{
		Mode:          o.Mode,
		PopWeight:     o.PopWeight,
		CompactWeight: o.CompactWeight,
		COIWeight:     o.COIWeight,
		VRA:           o.VRA,
		COI:           coi,
		Engine:        engine,
		Contiguity:    o.Contiguity,
		Workers:       o.Workers,
	}
	if o.Progress != nil {
		progress := o.Progress
		cfg.Progress = func(pct int) { progress(StagePartition, pct) }
	}
	return cfg
}

// =============================================================================
// Result - Run Outputs
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID uniquely identifies this run.
	RunID string

	// Plan is the finished plan artifact.
	Plan *plan.Plan

	// Table is the assembled unit table the plan was computed on.
	Table *block.Table

	// Districts holds the live district groupings, ordered as in Plan.
	Districts []*district.District

	// Metrics carries per-district summary metrics.
	Metrics []plan.Metrics

	// Partisan describes the provider that served the partisan scores.
	Partisan partisan.Metadata

	// Seats is the resolved district count; SeatsSource says where it
	// came from (requested, apportioned, estimated).
	Seats       int
	SeatsSource string

	// Dropped counts units discarded during the join for lacking a
	// demographic row or a shape.
	Dropped int

	// Broken lists indexes of non-contiguous districts under the warn
	// policy.
	Broken []int

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Units         int
	Districts     int
	FetchTime     time.Duration
	AssembleTime  time.Duration
	PartitionTime time.Duration
	SummarizeTime time.Duration
	TotalTime     time.Duration
}

// CacheInfo tracks cache hits for the cached pipeline stages.
type CacheInfo struct {
	TableHit bool // Whether the assembled table came from cache
	PlanHit  bool // Whether the finished plan came from cache
}
