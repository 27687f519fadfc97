package cli

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wardline/wardline/pkg/district"
	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/geo"
	"github.com/wardline/wardline/pkg/pipeline"
	"github.com/wardline/wardline/pkg/plan"
)

// defaultMaxDeviation is the population deviation bound, in percent,
// that validation enforces unless overridden.
const defaultMaxDeviation = 10.0

// validateFlags holds all flags for the validate command.
type validateFlags struct {
	state        string
	demo         bool
	demoSize     int
	resolution   string
	engine       string
	maxDeviation float64
	strict       bool
	cacheOnly    bool
	noCache      bool
}

// validateCommand creates the validate command: recheck a stored plan
// against freshly assembled data.
func (c *CLI) validateCommand() *cobra.Command {
	flags := &validateFlags{}

	cmd := &cobra.Command{
		Use:   "validate <plan.json>",
		Short: "Recheck a stored plan against fresh data",
		Long: `Recheck a stored plan against fresh data.

Reassembles the unit table the plan was computed against, resolves the
plan's unit assignments, and recomputes population deviation,
compactness, and contiguity per district. Districts that break the
deviation bound or are not contiguous are reported; with --strict they
also fail the command.

Examples:
  wardline validate plan.json
  wardline validate plan.json --state TX --max-deviation 5
  wardline validate plan.json --demo --demo-size 6 --strict`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.state, "state", "", "state FIPS code or postal abbreviation (default: from the plan)")
	cmd.Flags().BoolVar(&flags.demo, "demo", false, "validate against the synthetic demo grid")
	cmd.Flags().IntVar(&flags.demoSize, "demo-size", pipeline.DefaultDemoSize, "demo grid side length")
	cmd.Flags().StringVar(&flags.resolution, "resolution", pipeline.DefaultResolution, "census unit resolution (tract or block)")
	cmd.Flags().StringVar(&flags.engine, "engine", geo.EngineMesh, "geometry engine (default: from the plan)")
	cmd.Flags().Float64Var(&flags.maxDeviation, "max-deviation", defaultMaxDeviation, "allowed population deviation in percent")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "exit nonzero when any check fails")
	cmd.Flags().BoolVar(&flags.cacheOnly, "cache-only", false, "serve all data from the cache, no network")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "bypass the cache entirely")

	return cmd
}

func (c *CLI) runValidate(ctx context.Context, cmd *cobra.Command, path string, flags *validateFlags) error {
	p, err := plan.ImportJSON(path)
	if err != nil {
		return err
	}
	printInfo("Plan %s · %d districts", StyleHighlight.Render(p.ID), len(p.Districts))

	opts, engineName, err := c.validateOptions(cmd, p, flags)
	if err != nil {
		return err
	}
	engine, err := geo.ForName(engineName)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(flags.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	var sp *Spinner
	if !c.Quiet {
		sp = newSpinnerWithContext(ctx, "Assembling unit table...")
		sp.Start()
	}
	table, err := runner.Table(ctx, opts)
	if sp != nil {
		sp.Stop()
	}
	if err != nil {
		return err
	}

	districts, err := p.Resolve(table)
	if err != nil {
		return err
	}
	metrics := plan.Summarize(engine, districts, p.SeatsRequested)
	broken, err := district.CheckContiguity(districts)
	if err != nil {
		return err
	}

	printNewline()
	fmt.Println(metricsTable(metrics))
	printNewline()

	issues := checkPlan(p, metrics, broken, flags.maxDeviation)
	for _, issue := range issues {
		if issue.District > 0 {
			printWarning("district %d: %s", issue.District, issue.Problem)
		} else {
			printWarning("%s", issue.Problem)
		}
	}

	if len(issues) == 0 {
		printSuccess("Plan passes all checks (deviation within ±%.1f%%, all districts contiguous)", flags.maxDeviation)
		return nil
	}
	if flags.strict {
		return apperrors.New(apperrors.ErrCodeInvalidPlan,
			"plan failed %d validation checks", len(issues))
	}
	printDetail("%d checks failed (informational; use --strict to fail the command)", len(issues))
	return nil
}

// validateOptions builds assembly options for the plan being checked.
// The plan's own state and engine are the defaults; flags override.
func (c *CLI) validateOptions(cmd *cobra.Command, p *plan.Plan, flags *validateFlags) (pipeline.Options, string, error) {
	opts := pipeline.DefaultOptions()

	if flags.demo {
		opts.Demo = true
		opts.DemoSize = flags.demoSize
	} else {
		s := flags.state
		if s == "" {
			s = p.State
		}
		fips, err := resolveState(s)
		if err != nil {
			return opts, "", err
		}
		opts.State = fips
	}

	opts.Resolution = flags.resolution
	if !cmd.Flags().Changed("resolution") && c.Settings.Resolution != "" {
		opts.Resolution = c.Settings.Resolution
	}
	opts.CacheOnly = flags.cacheOnly
	opts.APIKey = c.Settings.CensusAPIKey

	engineName := flags.engine
	if !cmd.Flags().Changed("engine") && p.Engine != "" {
		engineName = p.Engine
	}
	opts.Engine = engineName

	return opts, engineName, nil
}

// planIssue is one failed validation check. District 0 marks a
// plan-level problem.
type planIssue struct {
	District int
	Problem  string
}

// checkPlan flags districts that break the deviation bound or are not
// contiguous, plus plan-level seat shortfalls.
func checkPlan(p *plan.Plan, metrics []plan.Metrics, broken []int, maxDeviation float64) []planIssue {
	var issues []planIssue

	if len(p.Districts) < p.SeatsRequested {
		issues = append(issues, planIssue{0, fmt.Sprintf(
			"plan has %d of %d apportioned districts", len(p.Districts), p.SeatsRequested)})
	}

	for _, m := range metrics {
		if math.Abs(m.DeviationPct) > maxDeviation {
			issues = append(issues, planIssue{m.District, fmt.Sprintf(
				"population deviation %+.2f%% exceeds ±%.1f%%", m.DeviationPct, maxDeviation)})
		}
	}
	for _, i := range broken {
		issues = append(issues, planIssue{i + 1, "not contiguous"})
	}

	sort.Slice(issues, func(i, j int) bool { return issues[i].District < issues[j].District })
	return issues
}
