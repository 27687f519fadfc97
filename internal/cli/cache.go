package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local data cache",
	}

	cmd.AddCommand(c.cacheInfoCommand())
	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheInfoCommand creates the "cache info" subcommand.
func (c *CLI) cacheInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the cache backend and its contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			printKeyValue("backend", c.backendLabel())

			if c.Settings.CacheBackend != "" && c.Settings.CacheBackend != "file" {
				return nil
			}

			dir := c.cacheDir()
			entries, size, err := measureCacheDir(dir)
			if err != nil {
				printDetail("cache directory does not exist yet")
				return nil
			}
			printKeyValue("entries", fmt.Sprintf("%d", entries))
			printKeyValue("size", formatBytes(size))
			return nil
		},
	}
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached data",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch c.Settings.CacheBackend {
			case "none":
				printInfo("Cache backend is \"none\"; nothing to clear")
				return nil
			case "redis":
				printInfo("Redis entries expire on their own TTLs; clear them with redis-cli if needed")
				printDetail("address: %s", c.Settings.RedisAddr)
				return nil
			}

			dir := c.cacheDir()
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			count := 0
			err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return nil // Skip errors, continue walking
				}
				if path == dir || info.IsDir() {
					return nil
				}
				if err := os.Remove(path); err == nil {
					count++
				}
				return nil
			})
			if err != nil {
				return err
			}

			// Clean up empty subdirectories
			_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil || path == dir {
					return nil
				}
				if info.IsDir() {
					os.Remove(path)
				}
				return nil
			})

			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(c.cacheDir())
			return nil
		},
	}
}

// backendLabel describes the active cache backend for display.
func (c *CLI) backendLabel() string {
	switch c.Settings.CacheBackend {
	case "none":
		return "none"
	case "redis":
		return "redis " + c.Settings.RedisAddr
	default:
		return "file " + c.cacheDir()
	}
}

// measureCacheDir counts the files under dir and sums their sizes.
func measureCacheDir(dir string) (entries int, size int64, err error) {
	if _, err := os.Stat(dir); err != nil {
		return 0, 0, err
	}
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			entries++
			size += info.Size()
		}
		return nil
	})
	return entries, size, err
}

// formatBytes renders a byte count with a binary unit suffix.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
