package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scrivo/internal/logging"
	"scrivo/internal/workdir"
)

func newWorkdirCommand(ctx *commandContext) *cobra.Command {
	workdirCmd := &cobra.Command{
		Use:   "workdir",
		Short: "Inspect and clean the scratch work directory",
	}

	workdirCmd.AddCommand(newWorkdirListCommand(ctx))
	workdirCmd.AddCommand(newWorkdirCleanCommand(ctx))

	return workdirCmd
}

func newWorkdirListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scratch files and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			entries, err := workdir.List(cfg.Paths.WorkDir)
			if err != nil {
				return fmt.Errorf("list work directory: %w", err)
			}

			if jsonOut {
				if entries == nil {
					entries = []workdir.Entry{}
				}
				var totalSize int64
				for _, entry := range entries {
					totalSize += entry.Size
				}
				return writeJSON(cmd, map[string]any{
					"workDir":        cfg.Paths.WorkDir,
					"entries":        entries,
					"totalSizeBytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Work directory: %s\n", cfg.Paths.WorkDir)
			if len(entries) == 0 {
				fmt.Fprintln(out, "No scratch entries found")
				return nil
			}

			var totalSize int64
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				totalSize += entry.Size
				kind := "file"
				if entry.IsDir {
					kind = "dir"
				}
				rows = append(rows, []string{
					entry.Name,
					kind,
					formatByteSize(entry.Size),
					entry.ModTime.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable(
				out,
				[]string{"Name", "Type", "Size", "Modified"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "Total: %s in %d entries\n", formatByteSize(totalSize), len(entries))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newWorkdirCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration
	var all bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale scratch entries",
		Long: `Remove leftover scratch files and directories from the work directory.
Entries younger than --max-age are kept so in-flight runs are never
disturbed; --all removes everything regardless of age. The queue database
is always preserved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			age := maxAge
			if all {
				age = 0
			}

			logger, err := logging.New(logging.Options{Level: "warn", Format: "console"})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			dbPath := cfg.QueueDatabasePath()
			result := workdir.SweepStale(cmd.Context(), cfg.Paths.WorkDir, workdir.Options{
				MaxAge:  age,
				Exclude: []string{dbPath, dbPath + "-wal", dbPath + "-shm", dbPath + "-journal"},
			}, logger)

			if jsonOut {
				removed := result.Removed
				if removed == nil {
					removed = []string{}
				}
				errs := make([]map[string]string, 0, len(result.Errors))
				for _, sweepErr := range result.Errors {
					errs = append(errs, map[string]string{
						"path":  sweepErr.Path,
						"error": sweepErr.Error.Error(),
					})
				}
				return writeJSON(cmd, map[string]any{
					"removed": removed,
					"errors":  errs,
				})
			}

			out := cmd.OutOrStdout()
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintln(out, "No stale entries found")
				return nil
			}
			for _, path := range result.Removed {
				fmt.Fprintf(out, "Removed %s\n", path)
			}
			for _, sweepErr := range result.Errors {
				fmt.Fprintf(out, "Failed %s: %v\n", sweepErr.Path, sweepErr.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d entries could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 24*time.Hour, "Minimum age before an entry counts as stale")
	cmd.Flags().BoolVar(&all, "all", false, "Remove every entry regardless of age")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

// formatByteSize renders a byte count with a binary unit suffix.
func formatByteSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	value := float64(size)
	exp := 0
	for value >= unit && exp < 4 {
		value /= unit
		exp++
	}
	suffix := []string{"KiB", "MiB", "GiB", "TiB"}[exp-1]
	formatted := strings.TrimSuffix(fmt.Sprintf("%.1f", value), ".0")
	return fmt.Sprintf("%s %s", formatted, suffix)
}
