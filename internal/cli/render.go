package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wardline/wardline/pkg/district"
	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/pipeline"
	"github.com/wardline/wardline/pkg/plan"
	"github.com/wardline/wardline/pkg/render"
)

// renderFlags holds all flags for the render command.
type renderFlags struct {
	state      string
	demo       bool
	demoSize   int
	resolution string
	mapOut     string
	graphOut   string
	color      string
	size       int
	cacheOnly  bool
	noCache    bool
}

// renderCommand creates the render command: draw a stored plan as a
// choropleth map or district adjacency graph.
func (c *CLI) renderCommand() *cobra.Command {
	flags := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render <plan.json>",
		Short: "Re-render a stored plan as a map or adjacency graph",
		Long: `Re-render a stored plan as a map or adjacency graph.

Reassembles the unit table the plan was computed against, resolves the
plan's unit assignments, and draws the districts. The map is an SVG
choropleth; the graph is the district adjacency structure, written as
DOT, SVG, or PNG depending on the output extension.

Examples:
  wardline render plan.json --map tx.svg
  wardline render plan.json --map tx.svg --color partisan
  wardline render plan.json --graph adjacency.png
  wardline render plan.json --graph adjacency.dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.state, "state", "", "state FIPS code or postal abbreviation (default: from the plan)")
	cmd.Flags().BoolVar(&flags.demo, "demo", false, "render against the synthetic demo grid")
	cmd.Flags().IntVar(&flags.demoSize, "demo-size", pipeline.DefaultDemoSize, "demo grid side length")
	cmd.Flags().StringVar(&flags.resolution, "resolution", pipeline.DefaultResolution, "census unit resolution (tract or block)")
	cmd.Flags().StringVar(&flags.mapOut, "map", "", "output path for the SVG map")
	cmd.Flags().StringVar(&flags.graphOut, "graph", "", "output path for the adjacency graph (.dot, .svg, or .png)")
	cmd.Flags().StringVar(&flags.color, "color", render.ColorByDistrict, "map fill mode (district or partisan)")
	cmd.Flags().IntVar(&flags.size, "size", 1000, "map width in pixels")
	cmd.Flags().BoolVar(&flags.cacheOnly, "cache-only", false, "serve all data from the cache, no network")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "bypass the cache entirely")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, cmd *cobra.Command, path string, flags *renderFlags) error {
	if flags.mapOut == "" && flags.graphOut == "" {
		return apperrors.New(apperrors.ErrCodeInvalidConfig,
			"nothing to render: pass --map and/or --graph")
	}
	if flags.graphOut != "" {
		// Catch a bad extension before any data is fetched.
		if _, err := graphFormat(flags.graphOut); err != nil {
			return err
		}
	}

	p, err := plan.ImportJSON(path)
	if err != nil {
		return err
	}

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
			return err
		}
		opts.State = fips
	}
	opts.Resolution = flags.resolution
	if !cmd.Flags().Changed("resolution") && c.Settings.Resolution != "" {
		opts.Resolution = c.Settings.Resolution
	}
	if p.Engine != "" {
		opts.Engine = p.Engine
	}
	opts.CacheOnly = flags.cacheOnly
	opts.APIKey = c.Settings.CensusAPIKey

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

	if flags.mapOut != "" {
		svg, err := render.MapSVG(districts,
			render.WithSize(flags.size),
			render.WithColorMode(flags.color),
			render.WithTitle(mapTitle(p)))
		if err != nil {
			return err
		}
		if err := os.WriteFile(flags.mapOut, svg, 0o644); err != nil {
			return apperrors.Wrap(apperrors.ErrCodeInternal, err, "write %s", flags.mapOut)
		}
		printSuccess("Rendered map")
		printFile(flags.mapOut)
	}

	if flags.graphOut != "" {
		if err := renderGraph(ctx, districts, flags.graphOut); err != nil {
			return err
		}
		printSuccess("Rendered adjacency graph")
		printFile(flags.graphOut)
	}
	return nil
}

// renderGraph writes the district adjacency graph in the format the
// output extension names.
func renderGraph(ctx context.Context, districts []*district.District, path string) error {
	dot, err := render.AdjacencyDOT(districts)
	if err != nil {
		return err
	}

	format, err := graphFormat(path)
	if err != nil {
		return err
	}

	var data []byte
	switch format {
	case "dot":
		data = []byte(dot)
	case "svg":
		data, err = render.GraphSVG(ctx, dot)
	case "png":
		data, err = render.GraphPNG(ctx, dot)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}

// graphFormat maps an output path to a render format by extension.
func graphFormat(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".dot":
		return "dot", nil
	case ".svg":
		return "svg", nil
	case ".png":
		return "png", nil
	default:
		return "", apperrors.New(apperrors.ErrCodeUnsupported,
			"unsupported graph output %q (want .dot, .svg, or .png)", ext)
	}
}
