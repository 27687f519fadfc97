package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/wardline/wardline/pkg/apportion"
	"github.com/wardline/wardline/pkg/block"
	"github.com/wardline/wardline/pkg/cache"
	"github.com/wardline/wardline/pkg/census"
	"github.com/wardline/wardline/pkg/district"
	"github.com/wardline/wardline/pkg/geo"
	"github.com/wardline/wardline/pkg/httputil"
	"github.com/wardline/wardline/pkg/observability"
	"github.com/wardline/wardline/pkg/partisan"
	"github.com/wardline/wardline/pkg/plan"
	"github.com/wardline/wardline/pkg/tiger"
)

// boundaryVintage scopes cached tables and shapes; a new TIGER release
// must not reuse entries decoded from the previous one.
const boundaryVintage = "2024"

// Runner executes the staged plan workflow with caching. The Runner is
// stateless apart from the cache and logger; multiple goroutines can
// share one Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// uses the default, and a nil logger falls back to log.Default.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Run executes fetch, assemble, partition, and summarize for one plan.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	start := time.Now()

	result := &Result{RunID: uuid.NewString()}

	table, tableData, err := r.assembleStage(ctx, opts, result)
	if err != nil {
		return nil, err
	}
	result.Table = table
	result.Stats.Units = table.Len()

	if matched := table.MarkCOI(opts.COI); matched < len(opts.COI) {
		opts.Logger.Warn("some community units are not in the table",
			"given", len(opts.COI), "matched", matched)
	}

	engine, err := geo.ForName(opts.Engine)
	if err != nil {
		return nil, err
	}

	result.Seats, result.SeatsSource = resolveSeats(opts, table)
	opts.Logger.Info("resolved seat count",
		"seats", result.Seats, "source", result.SeatsSource)

	if err := r.partitionStage(ctx, opts, engine, table, tableData, result); err != nil {
		return nil, err
	}

	if err := r.summarizeStage(ctx, opts, engine, result); err != nil {
		return nil, err
	}

	result.Stats.TotalTime = time.Since(start)
	return result, nil
}

// Table runs only the fetch and assemble stages and returns the unit
// table. Callers that validate or render an existing plan use this to
// rebuild the table the plan was computed against.
func (r *Runner) Table(ctx context.Context, opts Options) (*block.Table, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	table, _, err := r.assembleStage(ctx, opts, &Result{})
	if err != nil {
		return nil, err
	}
	table.MarkCOI(opts.COI)
	return table, nil
}

// assembleStage produces the unit table, via the cache when possible.
// The returned bytes are the table's serialized form, reused for plan
// cache keys. Cached tables carry no community flags; MarkCOI runs
// per-call so different COI lists can share one cached table.
func (r *Runner) assembleStage(ctx context.Context, opts Options, result *Result) (*block.Table, []byte, error) {
	hooks := observability.Pipeline()

	if opts.Demo {
		hooks.OnStageStart(ctx, StageAssemble)
		start := time.Now()
		table, err := block.DemoGrid(opts.DemoSize)
		result.Stats.AssembleTime = time.Since(start)
		hooks.OnStageComplete(ctx, StageAssemble, result.Stats.AssembleTime, err)
		if err != nil {
			return nil, nil, fmt.Errorf("assemble: %w", err)
		}
		data, err := table.MarshalGeoJSON()
		if err != nil {
			return nil, nil, fmt.Errorf("assemble: %w", err)
		}
		result.Partisan = partisan.Metadata{Key: "demo", Label: "synthetic demo grid"}
		opts.Logger.Info("assembled demo grid", "units", table.Len())
		return table, data, nil
	}

	keyer := cache.NewScopedKeyer(r.Keyer, boundaryVintage+":")
	tableKey := keyer.TableKey(opts.State, opts.Resolution, providerKey(opts), opts.ElectionYear)
	if data, hit, err := r.Cache.Get(ctx, tableKey); err == nil && hit {
		table, err := block.UnmarshalGeoJSON(data)
		if err == nil {
			result.CacheInfo.TableHit = true
			result.Partisan = partisan.Metadata{
				Key:  providerKey(opts),
				Note: "assembled table served from cache",
			}
			opts.Logger.Info("assembled table from cache", "units", table.Len())
			return table, data, nil
		}
		opts.Logger.Warn("cached table is unreadable, refetching", "err", err)
	}

	hooks.OnStageStart(ctx, StageFetch)
	fetchStart := time.Now()
	src, err := r.fetchSources(ctx, opts)
	result.Stats.FetchTime = time.Since(fetchStart)
	hooks.OnStageComplete(ctx, StageFetch, result.Stats.FetchTime, err)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch: %w", err)
	}
	result.Partisan = src.meta
	opts.Logger.Info("fetched sources",
		"rows", len(src.rows),
		"shapes", len(src.shapes),
		"partisan", src.meta.Key,
		"duration", result.Stats.FetchTime)

	hooks.OnStageStart(ctx, StageAssemble)
	assembleStart := time.Now()
	table, dropped, err := block.Assemble(src.rows, src.shapes, src.scores.Lookup)
	result.Stats.AssembleTime = time.Since(assembleStart)
	hooks.OnStageComplete(ctx, StageAssemble, result.Stats.AssembleTime, err)
	if err != nil {
		return nil, nil, fmt.Errorf("assemble: %w", err)
	}
	result.Dropped = len(dropped)
	if len(dropped) > 0 {
		opts.Logger.Warn("dropped units missing a row or a shape", "count", len(dropped))
	}

	data, err := table.MarshalGeoJSON()
	if err != nil {
		return nil, nil, fmt.Errorf("assemble: %w", err)
	}
	_ = r.Cache.Set(ctx, tableKey, data, cache.TTLTable)
	opts.Logger.Info("assembled table",
		"units", table.Len(), "duration", result.Stats.AssembleTime)
	return table, data, nil
}

// sources is the raw material for one table: demographic rows, unit
// geometries, and partisan scores with their provenance.
type sources struct {
	rows   []block.Row
	shapes map[string]orb.MultiPolygon
	scores partisan.Scores
	meta   partisan.Metadata
}

// fetchSources pulls the three inputs concurrently. Census and boundary
// failures abort the fetch; the partisan chain degrades on its own and
// only fails here when a provider was pinned explicitly.
func (r *Runner) fetchSources(ctx context.Context, opts Options) (*sources, error) {
	src := &sources{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		client := census.NewClient(r.fetcher("census", cache.TTLCensus, opts.CacheOnly), opts.APIKey)
		var err error
		if opts.Resolution == tiger.ResolutionBlock {
			src.rows, err = client.Blocks(ctx, opts.State, func(done, total int) {
				opts.Logger.Debug("fetched county blocks", "done", done, "total", total)
			})
		} else {
			src.rows, err = client.Tracts(ctx, opts.State)
		}
		return err
	})

	g.Go(func() error {
		client := tiger.NewClient(r.fetcher("tiger", cache.TTLShapes, opts.CacheOnly))
		var err error
		src.shapes, err = client.Shapes(ctx, opts.State, opts.Resolution)
		return err
	})

	g.Go(func() error {
		chain := r.partisanChain(opts)
		var err error
		if opts.Provider != "" {
			src.scores, src.meta, err = chain.FetchFrom(ctx, opts.Provider, opts.State, opts.ElectionYear)
			return err
		}
		src.scores, src.meta, err = chain.Fetch(ctx, opts.State, opts.ElectionYear)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return src, nil
}

// partisanChain wires the standard providers, inserting the local file
// source when one is configured.
func (r *Runner) partisanChain(opts Options) *partisan.Chain {
	fetcher := r.fetcher("partisan", cache.TTLScores, opts.CacheOnly)
	if opts.PartisanFile != "" {
		return partisan.NewChain(
			partisan.NewFileProvider(opts.PartisanFile),
			partisan.NewMEDSL(fetcher),
			partisan.Uniform{},
		)
	}
	return partisan.DefaultChain(fetcher)
}

func (r *Runner) fetcher(namespace string, ttl time.Duration, cacheOnly bool) *httputil.Fetcher {
	f := httputil.NewFetcher(r.Cache, r.Keyer, namespace)
	f.TTL = ttl
	f.CacheOnly = cacheOnly
	return f
}

// partitionStage runs the bisection engine, or restores an identical
// earlier run from the plan cache. The cache key covers the table
// content and every knob that changes partitioning output.
func (r *Runner) partitionStage(ctx context.Context, opts Options, engine geo.Engine, table *block.Table, tableData []byte, result *Result) error {
	hooks := observability.Pipeline()
	planKey := r.Keyer.PlanKey(cache.Hash(tableData), cache.PlanKeyOpts{
		Seats:         result.Seats,
		Mode:          opts.Mode,
		Engine:        opts.Engine,
		VRA:           opts.VRA,
		PopWeight:     opts.PopWeight,
		CompactWeight: opts.CompactWeight,
		COIWeight:     opts.COIWeight,
		Contiguity:    opts.Contiguity,
		COIHash:       coiHash(opts.COI),
	})

	if data, hit, err := r.Cache.Get(ctx, planKey); err == nil && hit {
		cached, err := plan.ReadJSON(bytes.NewReader(data))
		if err == nil {
			districts, err := cached.Resolve(table)
			if err == nil {
				result.Plan = cached
				result.Districts = districts
				result.Stats.Districts = len(districts)
				result.CacheInfo.PlanHit = true
				if opts.Progress != nil {
					opts.Progress(StagePartition, 100)
				}
				opts.Logger.Info("partition served from cache", "districts", len(districts))
				return r.checkContiguity(opts, result)
			}
		}
		opts.Logger.Warn("cached plan is unusable, recomputing", "err", err)
	}

	region, err := district.NewRegion(table.Units(), result.Seats)
	if err != nil {
		return fmt.Errorf("partition: %w", err)
	}

	hooks.OnStageStart(ctx, StagePartition)
	start := time.Now()
	districts, err := district.Partition(ctx, region, opts.districtConfig(engine))
	result.Stats.PartitionTime = time.Since(start)
	hooks.OnStageComplete(ctx, StagePartition, result.Stats.PartitionTime, err)
	if err != nil {
		return fmt.Errorf("partition: %w", err)
	}
	if len(districts) != result.Seats {
		opts.Logger.Warn("partition fell short of the requested seats",
			"requested", result.Seats, "produced", len(districts))
	}

	result.Districts = districts
	result.Stats.Districts = len(districts)
	result.Plan = plan.New(opts.State, opts.Mode, opts.Engine, result.Seats, districts)
	opts.Logger.Info("partitioned",
		"districts", len(districts), "duration", result.Stats.PartitionTime)

	var buf bytes.Buffer
	if err := plan.WriteJSON(result.Plan, &buf); err == nil {
		_ = r.Cache.Set(ctx, planKey, buf.Bytes(), cache.TTLPlan)
	}
	return r.checkContiguity(opts, result)
}

// checkContiguity fills Result.Broken under the warn policy. Strict
// enforcement already happened inside the split search.
func (r *Runner) checkContiguity(opts Options, result *Result) error {
	if opts.Contiguity != district.ContiguityWarn {
		return nil
	}
	broken, err := district.CheckContiguity(result.Districts)
	if err != nil {
		return fmt.Errorf("contiguity check: %w", err)
	}
	result.Broken = broken
	for _, i := range broken {
		opts.Logger.Warn("district is not contiguous",
			"district", i+1, "units", len(result.Districts[i].Units))
	}
	return nil
}

func (r *Runner) summarizeStage(ctx context.Context, opts Options, engine geo.Engine, result *Result) error {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, StageSummarize)
	start := time.Now()
	result.Metrics = plan.Summarize(engine, result.Districts, result.Seats)
	result.Stats.SummarizeTime = time.Since(start)
	hooks.OnStageComplete(ctx, StageSummarize, result.Stats.SummarizeTime, nil)
	return nil
}

// resolveSeats picks the district count: an explicit request wins, then
// the bundled apportionment table, then a population estimate for
// states (or synthetic regions) the table does not cover.
func resolveSeats(opts Options, table *block.Table) (int, string) {
	if opts.Seats > 0 {
		return opts.Seats, SeatsRequested
	}
	if seats, ok := apportion.Seats2020(opts.State); ok {
		return seats, SeatsApportioned
	}
	seats := int(float64(table.TotalPop())/PersonsPerSeat + 0.5)
	if seats < 1 {
		seats = 1
	}
	return seats, SeatsEstimated
}

// providerKey names the partisan source for cache keys: the pinned
// provider, the local file, or "auto" for the ranked chain.
func providerKey(opts Options) string {
	if opts.Provider != "" {
		return opts.Provider
	}
	if opts.PartisanFile != "" {
		return "file"
	}
	return "auto"
}

// coiHash condenses the community list into a stable key component.
func coiHash(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)
	return cache.Hash([]byte(strings.Join(sorted, ",")))
}

// Close releases the runner's cache backend.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
