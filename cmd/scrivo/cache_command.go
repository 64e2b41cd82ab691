package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scrivo/internal/logging"
	"scrivo/internal/resultcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the result cache",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCacheInvalidateCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"stats"},
		Short:   "Show cached transcription results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, warn, err := resultCache(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || cache == nil {
				return err
			}

			entries := cache.List()
			if jsonOut {
				if entries == nil {
					entries = []resultcache.Info{}
				}
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache directory: %s\n", cache.Dir())
			fmt.Fprintf(out, "Entries: %d\n", len(entries))
			printCacheEntries(out, entries)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func printCacheEntries(out io.Writer, entries []resultcache.Info) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Cached results: none")
		return
	}
	const stampLayout = "2006-01-02 15:04"
	fmt.Fprintln(out, "Cached results:")
	for _, entry := range entries {
		label := strings.TrimSpace(entry.Source)
		if label != "" {
			label = filepath.Base(label)
		}
		if label == "" {
			label = entry.Fingerprint
		}
		cached := "unknown"
		if !entry.CachedAt.IsZero() {
			cached = entry.CachedAt.Local().Format(stampLayout)
		}
		fmt.Fprintf(out, "  - %s: %d utterances (cached %s, fingerprint %s)\n",
			label,
			entry.Utterances,
			cached,
			formatFingerprint(entry.Fingerprint),
		)
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, warn, err := resultCache(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || cache == nil {
				return err
			}
			count := cache.Count()
			if !cache.Clear() {
				return fmt.Errorf("clear result cache under %s", cache.Dir())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached results\n", count)
			return nil
		},
	}
}

func newCacheInvalidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <file>",
		Short: "Drop the cached result for one source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, warn, err := resultCache(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || cache == nil {
				return err
			}
			path, err := filepath.Abs(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve %s: %w", args[0], err)
			}
			if cache.Invalidate(path) {
				fmt.Fprintf(cmd.OutOrStdout(), "Invalidated cached result for %s\n", filepath.Base(path))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "No cached result for %s\n", filepath.Base(path))
			}
			return nil
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop cached results whose source files are gone",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, warn, err := resultCache(ctx)
			if warn != "" {
				fmt.Fprintln(cmd.OutOrStdout(), warn)
			}
			if err != nil || cache == nil {
				return err
			}
			removed := cache.Prune()
			if removed == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cache entries pruned")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d orphaned results (%d remain)\n", removed, cache.Count())
			return nil
		},
	}
}

// resultCache opens the configured result cache. A non-empty warning with a
// nil cache means the cache is disabled rather than broken.
func resultCache(ctx *commandContext) (*resultcache.Cache, string, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	if !cfg.Results.CacheEnabled {
		return nil, "Result cache is disabled (set cache_enabled = true in config.toml)", nil
	}
	if strings.TrimSpace(cfg.Paths.CacheDir) == "" {
		return nil, "Cache directory is not configured", nil
	}
	logger, err := logging.New(logging.Options{Level: "info", Format: "console"})
	if err != nil {
		return nil, "", fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String("component", "cli-cache"))
	cache, err := resultcache.New(cfg.Paths.CacheDir, logger)
	if err != nil {
		return nil, "", err
	}
	return cache, "", nil
}
