// Package cli implements the wardline command-line interface.
//
// This package provides commands for computing districting plans,
// apportioning house seats, validating and re-rendering stored plans,
// prefetching census data, and managing the local cache. The CLI is
// built using cobra and supports verbose logging via the
// charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - plan: Fetch data and partition a state into districts
//   - apportion: Compute Huntington-Hill seat apportionment
//   - validate: Recheck a stored plan against fresh data
//   - fetch: Prefetch census, boundary, and partisan data
//   - render: Re-render a stored plan as a map or adjacency graph
//   - cache: Manage the local data cache
//   - config: Manage persisted settings
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging and
// --quiet (-q) to suppress everything below errors.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/wardline/wardline/pkg/buildinfo"
	"github.com/wardline/wardline/pkg/cache"
	"github.com/wardline/wardline/pkg/config"
	"github.com/wardline/wardline/pkg/pipeline"
)

// appName is the application name used for directories and display.
const appName = "wardline"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogError = log.ErrorLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger   *log.Logger
	Settings config.Config

	// Quiet suppresses the progress UI and decorative output.
	Quiet bool
}

// New creates a new CLI instance with a default logger and default
// settings. The persisted settings file is read when the root command
// runs, so flag defaults can be registered before it exists.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:   newLogger(w, level),
		Settings: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands
// registered. Persisted settings are loaded before any command runs;
// a broken settings file degrades to defaults with a warning rather
// than blocking every invocation.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Wardline partitions states into districts",
		Long:          `Wardline is a redistricting engine: it fetches census population and boundary data, partitions a state into contiguous districts by recursive bisection, and scores the result for population balance, compactness, and minority representation.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load()
			if err != nil {
				c.Logger.Warn("settings file is unreadable, using defaults", "err", err)
			}
			c.Settings = settings
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.planCommand())
	root.AddCommand(c.apportionCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	backend, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(backend, nil, c.Logger), nil
}

// newCache builds the cache backend the settings ask for. An
// unavailable backend degrades to no caching instead of failing the
// command.
func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Settings.CacheBackend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		backend, err := cache.NewRedisCache(c.Settings.RedisAddr, "", 0)
		if err != nil {
			c.Logger.Warn("redis cache unavailable, continuing without caching",
				"addr", c.Settings.RedisAddr, "err", err)
			return cache.NewNullCache(), nil
		}
		return backend, nil
	default:
		backend, err := cache.NewFileCache(c.cacheDir())
		if err != nil {
			c.Logger.Warn("file cache unavailable, continuing without caching", "err", err)
			return cache.NewNullCache(), nil
		}
		return backend, nil
	}
}

// cacheDir returns the configured cache directory, falling back to the
// user cache directory when the settings leave it blank.
func (c *CLI) cacheDir() string {
	if c.Settings.CacheDir != "" {
		return c.Settings.CacheDir
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".cache"
	}
	return filepath.Join(dir, appName)
}
