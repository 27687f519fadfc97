package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardline/wardline/pkg/apportion"
	"github.com/wardline/wardline/pkg/observability"
	"github.com/wardline/wardline/pkg/partisan"
	"github.com/wardline/wardline/pkg/pipeline"
)

// fetchCommand creates the fetch command: warm the cache so later plan
// runs can work offline.
func (c *CLI) fetchCommand() *cobra.Command {
	var (
		state        string
		resolution   string
		provider     string
		electionYear int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Prefetch census, boundary, and partisan data",
		Long: `Prefetch census, boundary, and partisan data into the cache.

Downloads everything a plan run needs and stores it in the local cache,
so later runs can work offline with --cache-only.

Examples:
  wardline fetch --state TX
  wardline fetch --state 48 --resolution block`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFetch(cmd.Context(), cmd, state, resolution, provider, electionYear)
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "state FIPS code or postal abbreviation")
	cmd.Flags().StringVar(&resolution, "resolution", pipeline.DefaultResolution, "census unit resolution (tract or block)")
	cmd.Flags().StringVar(&provider, "provider", "", "pin a partisan data provider (default: ranked chain)")
	cmd.Flags().IntVar(&electionYear, "election-year", partisan.DefaultYear, "presidential election year for partisan data")

	return cmd
}

func (c *CLI) runFetch(ctx context.Context, cmd *cobra.Command, state, resolution, provider string, electionYear int) error {
	if c.Settings.CacheBackend == "none" {
		printWarning("cache backend is \"none\"; fetched data has nowhere to go")
	}

	fips, err := resolveState(state)
	if err != nil {
		return err
	}

	opts := pipeline.DefaultOptions()
	opts.State = fips
	opts.Resolution = resolution
	if !cmd.Flags().Changed("resolution") && c.Settings.Resolution != "" {
		opts.Resolution = c.Settings.Resolution
	}
	opts.Provider = provider
	opts.ElectionYear = electionYear
	opts.APIKey = c.Settings.CensusAPIKey

	runner, err := c.newRunner(false)
	if err != nil {
		return err
	}
	defer runner.Close()

	var sp *Spinner
	if !c.Quiet {
		sp = newSpinnerWithContext(ctx, "Fetching...")
		sp.Start()
		observability.SetFetchHooks(spinnerFetchHooks{sp: sp})
		defer observability.Reset()
	}
	table, err := runner.Table(ctx, opts)
	if sp != nil {
		sp.Stop()
	}
	if err != nil {
		return err
	}

	name := fips
	if st, ok := apportion.StateByFIPS(fips); ok {
		name = st.Name
	}
	printSuccess("Cached %d %s units for %s", table.Len(), opts.Resolution, name)
	printDetail("cache: %s", c.backendLabel())
	printNewline()
	printNextStep("Plan offline", fmt.Sprintf("%s plan --state %s --cache-only", appName, fips))
	return nil
}

// spinnerFetchHooks live-updates the spinner with the source currently
// downloading. Sources fetch concurrently, so the text tracks the most
// recent start.
type spinnerFetchHooks struct {
	sp *Spinner
}

func (h spinnerFetchHooks) OnFetchStart(_ context.Context, source, _ string) {
	h.sp.SetMessage(fmt.Sprintf("Fetching %s data...", source))
}

func (h spinnerFetchHooks) OnFetchDone(context.Context, string, int, bool, error) {}
