package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wardline/wardline/pkg/config"
	apperrors "github.com/wardline/wardline/pkg/errors"
	"github.com/wardline/wardline/pkg/geo"
)

// configCommand creates the config management command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage persisted settings",
		Long: `Manage persisted settings.

Settings live in a TOML file under the user config directory and can be
overridden per run through WARDLINE_* environment variables (plus
CENSUS_API_KEY) or a .env file in the working directory.`,
	}

	cmd.AddCommand(c.configShowCommand())
	cmd.AddCommand(c.configSetCommand())
	cmd.AddCommand(c.configPathCommand())

	return cmd
}

// configShowCommand creates the "config show" subcommand.
func (c *CLI) configShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			printKeyValue("census-api-key", redactSecret(c.Settings.CensusAPIKey))
			printKeyValue("cache-dir", c.Settings.CacheDir)
			printKeyValue("cache-backend", c.Settings.CacheBackend)
			printKeyValue("redis-addr", c.Settings.RedisAddr)
			printKeyValue("resolution", c.Settings.Resolution)
			printKeyValue("engine", c.Settings.Engine)

			if path, err := config.Path(); err == nil {
				printNewline()
				printDetail("file: %s (environment overrides apply)", path)
			}
			return nil
		},
	}
}

// configSetCommand creates the "config set" subcommand.
func (c *CLI) configSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist one setting",
		Long: `Persist one setting.

Keys: census-api-key, cache-dir, cache-backend, redis-addr, resolution,
engine.

Examples:
  wardline config set census-api-key 0123abcd
  wardline config set resolution block
  wardline config set cache-backend redis`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applySetting(&c.Settings, args[0], args[1]); err != nil {
				return err
			}
			if err := c.Settings.Save(); err != nil {
				return err
			}
			printSuccess("Set %s", args[0])
			return nil
		},
	}
}

// configPathCommand creates the "config path" subcommand.
func (c *CLI) configPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the settings file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
}

// applySetting validates and writes one setting into cfg.
func applySetting(cfg *config.Config, key, value string) error {
	switch key {
	case "census-api-key":
		cfg.CensusAPIKey = value
	case "cache-dir":
		cfg.CacheDir = value
	case "cache-backend":
		switch value {
		case "file", "redis", "none":
			cfg.CacheBackend = value
		default:
			return apperrors.New(apperrors.ErrCodeInvalidConfig,
				"cache-backend must be file, redis, or none, got %q", value)
		}
	case "redis-addr":
		cfg.RedisAddr = value
	case "resolution":
		if err := apperrors.ValidateResolution(value); err != nil {
			return err
		}
		cfg.Resolution = value
	case "engine":
		if _, err := geo.ForName(value); err != nil {
			return err
		}
		cfg.Engine = value
	default:
		return apperrors.New(apperrors.ErrCodeInvalidConfig,
			"unknown setting %q (want census-api-key, cache-dir, cache-backend, redis-addr, resolution, or engine)", key)
	}
	return nil
}

// redactSecret hides the middle of a credential for display.
func redactSecret(s string) string {
	switch {
	case s == "":
		return "(not set)"
	case len(s) <= 8:
		return "********"
	default:
		return s[:4] + "…" + s[len(s)-4:]
	}
}
