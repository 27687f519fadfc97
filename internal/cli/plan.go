package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wardline/wardline/pkg/apportion"
	"github.com/wardline/wardline/pkg/block"
	"github.com/wardline/wardline/pkg/district"
	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/geo"
	"github.com/wardline/wardline/pkg/observability"
	"github.com/wardline/wardline/pkg/partisan"
	"github.com/wardline/wardline/pkg/pipeline"
	"github.com/wardline/wardline/pkg/plan"
	"github.com/wardline/wardline/pkg/render"
)

// planFlags holds all flags for the plan command.
type planFlags struct {
	state    string
	demo     bool
	demoSize int

	districts     int
	mode          string
	popWeight     float64
	compactWeight float64
	coiWeight     float64
	vra           bool
	coi           string
	contiguity    string

	resolution   string
	engine       string
	provider     string
	partisanFile string
	electionYear int
	workers      int

	cacheOnly bool
	noCache   bool
	noUI      bool

	out     string
	csv     string
	geojson string
	mapOut  string
	color   string
}

// planCommand creates the plan command, the main driver: fetch data,
// partition, summarize, export.
func (c *CLI) planCommand() *cobra.Command {
	flags := &planFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute a districting plan for a state",
		Long: `Compute a districting plan for a state.

Fetches census population data and TIGER boundaries, assembles them into
a unit table, partitions the units into districts by recursive bisection,
and writes the plan as JSON along with a per-district metrics summary.

The district count comes from --districts when given, from the bundled
2020 apportionment otherwise, or from a population estimate for regions
the apportionment table does not cover. States can be named by FIPS code
or postal abbreviation.

Examples:
  wardline plan --state TX                       # Texas at tract resolution
  wardline plan --state 48 --districts 38
  wardline plan --demo --demo-size 6             # synthetic grid, no network
  wardline plan --state NC --mode gerrymander --vra
  wardline plan --state AZ --map az.svg --color partisan`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPlan(cmd.Context(), cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.state, "state", "", "state FIPS code or postal abbreviation")
	cmd.Flags().BoolVar(&flags.demo, "demo", false, "partition a synthetic demo grid instead of a state")
	cmd.Flags().IntVar(&flags.demoSize, "demo-size", pipeline.DefaultDemoSize, "demo grid side length")

	cmd.Flags().IntVar(&flags.districts, "districts", 0, "district count (0 = apportionment)")
	cmd.Flags().StringVar(&flags.mode, "mode", district.ModeFair, "optimization mode (fair or gerrymander)")
	cmd.Flags().Float64Var(&flags.popWeight, "pop-weight", district.DefaultPopWeight, "population balance weight")
	cmd.Flags().Float64Var(&flags.compactWeight, "compactness-weight", district.DefaultCompactWeight, "compactness weight")
	cmd.Flags().Float64Var(&flags.coiWeight, "coi-weight", district.DefaultCOIWeight, "community-of-interest weight")
	cmd.Flags().BoolVar(&flags.vra, "vra", false, "penalize splits that dilute minority-majority concentrations")
	cmd.Flags().StringVar(&flags.coi, "coi", "", "community GEOID list file, or \"demo\" with --demo")
	cmd.Flags().StringVar(&flags.contiguity, "contiguity", district.ContiguityWarn, "contiguity policy (off, warn, or strict)")

	cmd.Flags().StringVar(&flags.resolution, "resolution", pipeline.DefaultResolution, "census unit resolution (tract or block)")
	cmd.Flags().StringVar(&flags.engine, "engine", geo.EngineMesh, "geometry engine (mesh or union)")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "pin a partisan data provider (default: ranked chain)")
	cmd.Flags().StringVar(&flags.partisanFile, "partisan-file", "", "local partisan scores file (GEOID,share CSV)")
	cmd.Flags().IntVar(&flags.electionYear, "election-year", partisan.DefaultYear, "presidential election year for partisan data")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "parallel split workers (0 = all CPUs)")

	cmd.Flags().BoolVar(&flags.cacheOnly, "cache-only", false, "serve all data from the cache, no network")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "bypass the cache entirely")
	cmd.Flags().BoolVar(&flags.noUI, "no-ui", false, "plain log output instead of the progress display")

	cmd.Flags().StringVarP(&flags.out, "out", "o", "plan.json", "output path for the plan JSON")
	cmd.Flags().StringVar(&flags.csv, "csv", "", "also export the unit assignment as CSV")
	cmd.Flags().StringVar(&flags.geojson, "geojson", "", "also export district shapes as GeoJSON")
	cmd.Flags().StringVar(&flags.mapOut, "map", "", "also render the plan as an SVG map")
	cmd.Flags().StringVar(&flags.color, "color", render.ColorByDistrict, "map fill mode (district or partisan)")

	return cmd
}

func (c *CLI) runPlan(ctx context.Context, cmd *cobra.Command, flags *planFlags) error {
	opts, err := c.planOptions(cmd, flags)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	var result *pipeline.Result
	if c.useUI(flags.noUI) {
		result, err = c.runPlanWithUI(ctx, runner, opts)
	} else {
		prog := newProgress(c.Logger)
		result, err = runner.Run(ctx, opts)
		if err == nil {
			prog.done(fmt.Sprintf("Partitioned %d units into %d districts",
				len(result.Table.Units()), len(result.Districts)))
		}
	}
	if err != nil {
		return err
	}

	c.printPlanSummary(result)
	return c.exportPlan(result, flags)
}

// planOptions translates flags and persisted settings into pipeline
// options. Flags win over settings; settings win over built-in
// defaults.
func (c *CLI) planOptions(cmd *cobra.Command, flags *planFlags) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()

	if flags.demo {
		opts.Demo = true
		opts.DemoSize = flags.demoSize
	} else {
		fips, err := resolveState(flags.state)
		if err != nil {
			return opts, err
		}
		opts.State = fips
	}

	opts.Seats = flags.districts
	opts.Mode = flags.mode
	opts.PopWeight = flags.popWeight
	opts.CompactWeight = flags.compactWeight
	opts.COIWeight = flags.coiWeight
	opts.VRA = flags.vra
	opts.Contiguity = flags.contiguity
	opts.Provider = flags.provider
	opts.PartisanFile = flags.partisanFile
	opts.ElectionYear = flags.electionYear
	opts.Workers = flags.workers
	opts.CacheOnly = flags.cacheOnly
	opts.APIKey = c.Settings.CensusAPIKey

	opts.Resolution = flags.resolution
	if !cmd.Flags().Changed("resolution") && c.Settings.Resolution != "" {
		opts.Resolution = c.Settings.Resolution
	}
	opts.Engine = flags.engine
	if !cmd.Flags().Changed("engine") && c.Settings.Engine != "" {
		opts.Engine = c.Settings.Engine
	}

	coi, err := loadCOI(flags)
	if err != nil {
		return opts, err
	}
	opts.COI = coi

	return opts, nil
}

// loadCOI resolves the community flag: "demo" selects the bundled demo
// communities, anything else is read as a GEOID list file.
func loadCOI(flags *planFlags) ([]string, error) {
	switch flags.coi {
	case "":
		return nil, nil
	case "demo":
		if !flags.demo {
			return nil, apperrors.New(apperrors.ErrCodeInvalidConfig,
				"--coi demo only works with --demo")
		}
		return block.DemoCOI(flags.demoSize), nil
	default:
		return block.ReadCOI(flags.coi)
	}
}

// resolveState accepts a two-digit FIPS code or a postal abbreviation
// and returns the FIPS code.
func resolveState(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", apperrors.New(apperrors.ErrCodeInvalidState,
			"a state is required: pass --state with a FIPS code or postal abbreviation, or use --demo")
	}
	if _, err := strconv.Atoi(s); err == nil {
		if len(s) == 1 {
			s = "0" + s
		}
		if err := apperrors.ValidateStateFIPS(s); err != nil {
			return "", err
		}
		return s, nil
	}
	abbr := strings.ToUpper(s)
	for fips, st := range apportion.States {
		if st.Abbr == abbr {
			return fips, nil
		}
	}
	return "", apperrors.New(apperrors.ErrCodeInvalidState, "unknown state %q", s)
}

// useUI reports whether the live progress display should run: stdout
// must be a terminal and neither --no-ui nor --quiet given.
func (c *CLI) useUI(noUI bool) bool {
	return !noUI && !c.Quiet && isatty.IsTerminal(os.Stdout.Fd())
}

// runPlanWithUI executes the pipeline behind the live stage display.
// The pipeline runs in a goroutine and reports through the
// observability hooks; aborting the display cancels the run.
func (c *CLI) runPlanWithUI(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) (*pipeline.Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(NewRunModel(planTitle(opts)))
	observability.SetPipelineHooks(uiHooks{prog: prog})
	defer observability.Reset()

	// The runner's log lines would tear the display, so route them away
	// while it is up.
	opts.Logger = log.New(io.Discard)
	opts.Progress = func(stage string, pct int) {
		prog.Send(stagePercentMsg{Stage: stage, Percent: pct})
	}

	type outcome struct {
		result *pipeline.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := runner.Run(runCtx, opts)
		done <- outcome{result, err}
		prog.Send(runFinishedMsg{})
	}()

	final, err := prog.Run()
	if err != nil {
		cancel()
		<-done
		return nil, err
	}
	if m, ok := final.(RunModel); ok && m.Aborted {
		cancel()
		<-done
		return nil, context.Canceled
	}

	out := <-done
	return out.result, out.err
}

// planTitle names the run for the progress display.
func planTitle(opts pipeline.Options) string {
	if opts.Demo {
		return fmt.Sprintf("Computing plan · demo grid %dx%d", opts.DemoSize, opts.DemoSize)
	}
	if st, ok := apportion.StateByFIPS(opts.State); ok {
		return "Computing plan · " + st.Name
	}
	return "Computing plan · state " + opts.State
}

// =============================================================================
// Summary Output
// =============================================================================

// printPlanSummary prints the metrics table, warnings, and run stats.
func (c *CLI) printPlanSummary(result *pipeline.Result) {
	printNewline()
	printSuccess("Plan %s", StyleHighlight.Render(result.Plan.ID))
	printDetail("mode %s · engine %s · partisan %s",
		result.Plan.Mode, result.Plan.Engine, partisanLabel(result.Partisan))
	printNewline()

	fmt.Println(metricsTable(result.Metrics))
	printNewline()

	if result.SeatsSource == pipeline.SeatsEstimated {
		printDetail("district count estimated from population")
	}
	if len(result.Districts) != result.Seats {
		printWarning("produced %d of %d requested districts", len(result.Districts), result.Seats)
	}
	for _, i := range result.Broken {
		printWarning("district %d is not contiguous", i+1)
	}
	if result.Dropped > 0 {
		printDetail("%d units dropped (missing a population row or a shape)", result.Dropped)
	}

	printStats(result.Stats.Units, len(result.Districts), result.CacheInfo.PlanHit)
}

// partisanLabel names the partisan source for display.
func partisanLabel(meta partisan.Metadata) string {
	if meta.Label != "" {
		return meta.Label
	}
	if meta.Key != "" {
		return meta.Key
	}
	return "none"
}

// metricsTable renders per-district metrics as a bordered table.
func metricsTable(metrics []plan.Metrics) string {
	rows := make([][]string, len(metrics))
	for i, m := range metrics {
		rows[i] = []string{
			strconv.Itoa(m.District),
			formatPop(m.Pop),
			fmt.Sprintf("%+.2f%%", m.DeviationPct),
			fmt.Sprintf("%.3f", m.PolsbyPopper),
			fmt.Sprintf("%.1f%%", m.PartisanShare*100),
			fmt.Sprintf("%.1f%%", m.MinorityShare*100),
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleTableBorder).
		Headers("District", "Population", "Deviation", "Polsby-Popper", "Dem share", "Minority").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleTableHeader
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		Render()
}

// formatPop renders a population count with thousands separators.
func formatPop(pop int64) string {
	s := strconv.FormatInt(pop, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// =============================================================================
// Exports
// =============================================================================

// exportPlan writes the requested artifacts. The plan JSON is always
// written; CSV, GeoJSON, and the SVG map are opt-in.
func (c *CLI) exportPlan(result *pipeline.Result, flags *planFlags) error {
	if err := plan.ExportJSON(result.Plan, flags.out); err != nil {
		return err
	}
	printFile(flags.out)

	if flags.csv != "" {
		if err := plan.ExportCSV(result.Plan, flags.csv); err != nil {
			return err
		}
		printFile(flags.csv)
	}

	if flags.geojson != "" {
		engine, err := geo.ForName(result.Plan.Engine)
		if err != nil {
			return err
		}
		if err := plan.ExportGeoJSON(result.Plan, result.Table, engine, flags.geojson); err != nil {
			return err
		}
		printFile(flags.geojson)
	}

	if flags.mapOut != "" {
		svg, err := render.MapSVG(result.Districts,
			render.WithColorMode(flags.color),
			render.WithTitle(mapTitle(result.Plan)))
		if err != nil {
			return err
		}
		if err := os.WriteFile(flags.mapOut, svg, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", flags.mapOut, err)
		}
		printFile(flags.mapOut)
	}

	printNewline()
	printNextStep("Validate the plan", validateHint(result.Plan, flags))
	return nil
}

// mapTitle names the SVG map heading.
func mapTitle(p *plan.Plan) string {
	if st, ok := apportion.StateByFIPS(p.State); ok {
		return fmt.Sprintf("%s · %d districts", st.Name, p.SeatsProduced)
	}
	return fmt.Sprintf("%d districts", p.SeatsProduced)
}

// validateHint suggests the matching validate invocation.
func validateHint(p *plan.Plan, flags *planFlags) string {
	if flags.demo {
		return fmt.Sprintf("%s validate %s --demo --demo-size %d", appName, flags.out, flags.demoSize)
	}
	return fmt.Sprintf("%s validate %s --state %s", appName, flags.out, p.State)
}
