// Package pkg provides the core libraries for Wardline district planning.
//
// # Overview
//
// Wardline turns raw census data into congressional district plans: it
// apportions House seats, partitions a state's census units into districts,
// scores the result, and draws it. The pkg directory is organized into five
// main areas:
//
//  1. [district] - Domain logic (apportionment, partitioning, scoring, metrics)
//  2. [block] - Data acquisition and assembly (census units, shapefiles, election data)
//  3. [cache] - Infrastructure (caching, configuration, HTTP, errors)
//  4. [pipeline] - Orchestration (fetch → assemble → partition → summarize)
//  5. [render] - Visualization (choropleth maps, adjacency diagrams)
//
// # Architecture
//
// The typical data flow through Wardline:
//
//	Census Bureau API / TIGER shapefiles
//	         ↓
//	    [census] + [tiger] + [partisan] packages (fetch population, geometry, votes)
//	         ↓
//	    [block] package (unit table assembly)
//	         ↓
//	    [district] package (recursive bisection partitioner)
//	         ↓
//	    [plan] package (metrics + JSON/CSV/GeoJSON export)
//	         ↓
//	    [render] package (SVG maps, Graphviz adjacency diagrams)
//
// # Quick Start
//
// Partition a synthetic state into four districts:
//
//	import (
//	    "context"
//	    "github.com/wardline/wardline/pkg/block"
//	    "github.com/wardline/wardline/pkg/district"
//	    "github.com/wardline/wardline/pkg/plan"
//	)
//
//	// 1. Build a unit table (here: the demo grid)
//	table, _ := block.DemoGrid(12)
//
//	// 2. Partition it
//	region, _ := district.NewRegion(table.Units(), 4)
//	cfg := district.DefaultConfig()
//	districts, _ := district.Partition(context.Background(), region, cfg)
//
//	// 3. Summarize and export
//	p := plan.New("demo", cfg.Mode, "mesh", 4, districts)
//	metrics := plan.Summarize(cfg.Engine, districts, 4)
//
// # Main Packages
//
// ## Domain Logic
//
// [apportion] - Huntington-Hill apportionment of the 435 House seats, plus
// the state FIPS/postal-code reference table.
//
// [district] - The recursive bisection partitioner. Splits a region along
// the best of several candidate angles through its centroid, scoring each
// candidate on population balance, compactness, minority-share preservation,
// partisan lean, and community-of-interest integrity.
//
// [geo] - Geometry backends behind a common [geo.Engine] interface: mesh
// (fast, grid-based) and union (exact polygon dissolve). Also the R-tree
// adjacency index and Polsby-Popper compactness.
//
// [plan] - The serialized plan model: unit assignments, per-district
// metrics, JSON import/export, CSV and GeoJSON output.
//
// ## Data Acquisition
//
// [block] - Census units (blocks or tracts) and the unit table the
// partitioner consumes. Includes the demo grid for offline runs and
// community-of-interest file parsing.
//
// [census] - Census Bureau API client for PL 94-171 population counts.
//
// [tiger] - TIGER/Line shapefile download and parsing for unit geometry.
//
// [partisan] - Election-result providers (statewide uniform, county-level,
// file-based) that attach partisan lean to units.
//
// ## Infrastructure
//
// [cache] - Content-addressed caching behind a common interface: file
// backend for offline work, Redis for shared environments, a null backend
// for --no-cache runs.
//
// [config] - Persisted settings (TOML) with WARDLINE_* environment
// overrides and .env loading.
//
// [httputil] - HTTP fetching with retries, backoff, and cache integration.
//
// [errors] - Structured application errors with stable codes and
// user-facing messages.
//
// [observability] - Hook registries that surface pipeline, fetch,
// partition, and cache events to interested callers (the CLI's progress UI).
//
// ## Orchestration
//
// [pipeline] - The staged runner (fetch → assemble → partition →
// summarize) used by every CLI entry point. Handles caching of
// intermediate products and cache-key derivation from the run options.
//
// ## Visualization
//
// [render] - Choropleth SVG maps (categorical or partisan-diverging fills)
// and Graphviz district-adjacency diagrams (DOT, SVG, PNG).
//
// # Common Workflows
//
// Apportion the House from state populations:
//
//	seats, _ := apportion.Calculate(apportion.Populations2020, apportion.HouseSize)
//	fmt.Printf("California: %d seats\n", seats["06"])
//
// Run the full pipeline for a state:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), cache.NewDefaultKeyer(), logger)
//	opts := pipeline.DefaultOptions()
//	opts.State = "48"
//	opts.APIKey = key
//	result, _ := runner.Run(ctx, opts)
//
// Render a plan to SVG:
//
//	districts, _ := result.Plan.Resolve(table)
//	svg, _ := render.MapSVG(districts, render.WithColorMode(render.ColorByPartisan))
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...              # All tests
//	go test ./pkg/district/...     # Specific package
//	go test -run Example           # Examples only
//
// [apportion]: https://pkg.go.dev/github.com/wardline/wardline/pkg/apportion
// [district]: https://pkg.go.dev/github.com/wardline/wardline/pkg/district
// [geo]: https://pkg.go.dev/github.com/wardline/wardline/pkg/geo
// [geo.Engine]: https://pkg.go.dev/github.com/wardline/wardline/pkg/geo#Engine
// [plan]: https://pkg.go.dev/github.com/wardline/wardline/pkg/plan
// [block]: https://pkg.go.dev/github.com/wardline/wardline/pkg/block
// [census]: https://pkg.go.dev/github.com/wardline/wardline/pkg/census
// [tiger]: https://pkg.go.dev/github.com/wardline/wardline/pkg/tiger
// [partisan]: https://pkg.go.dev/github.com/wardline/wardline/pkg/partisan
// [cache]: https://pkg.go.dev/github.com/wardline/wardline/pkg/cache
// [config]: https://pkg.go.dev/github.com/wardline/wardline/pkg/config
// [httputil]: https://pkg.go.dev/github.com/wardline/wardline/pkg/httputil
// [errors]: https://pkg.go.dev/github.com/wardline/wardline/pkg/errors
// [observability]: https://pkg.go.dev/github.com/wardline/wardline/pkg/observability
// [pipeline]: https://pkg.go.dev/github.com/wardline/wardline/pkg/pipeline
// [render]: https://pkg.go.dev/github.com/wardline/wardline/pkg/render
package pkg
