package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"scrivo/internal/ipc"
	"scrivo/internal/queue"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check queue database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := fetchDatabaseHealth(ctx, cmd)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, health)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database path: %s\n", health.DBPath)
			fmt.Fprintf(out, "Database exists: %s\n", yesNo(health.DatabaseExists))
			fmt.Fprintf(out, "Readable: %s\n", yesNo(health.DatabaseReadable))
			fmt.Fprintf(out, "Schema version: %s\n", health.SchemaVersion)
			fmt.Fprintf(out, "queue_items table present: %s\n", yesNo(health.TableExists))
			if len(health.ColumnsPresent) > 0 {
				cols := append([]string(nil), health.ColumnsPresent...)
				sort.Strings(cols)
				fmt.Fprintf(out, "Columns: %s\n", strings.Join(cols, ", "))
			}
			if len(health.MissingColumns) > 0 {
				missing := append([]string(nil), health.MissingColumns...)
				sort.Strings(missing)
				fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
			} else {
				fmt.Fprintln(out, "Missing columns: none")
			}
			fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
			fmt.Fprintf(out, "Total items: %d\n", health.TotalItems)
			if health.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", health.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}

func fetchDatabaseHealth(ctx *commandContext, cmd *cobra.Command) (ipc.DatabaseHealthResponse, error) {
	if client, err := ipc.Dial(ctx.socketPath()); err == nil {
		defer client.Close()
		return client.DatabaseHealth()
	}

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return ipc.DatabaseHealthResponse{}, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return ipc.DatabaseHealthResponse{}, fmt.Errorf("open queue database: %w", err)
	}
	defer store.Close()
	health, err := store.CheckHealth(cmd.Context())
	if err != nil {
		return ipc.DatabaseHealthResponse{}, err
	}
	return ipc.DatabaseHealthResponse{
		DBPath:           health.DBPath,
		DatabaseExists:   health.DatabaseExists,
		DatabaseReadable: health.DatabaseReadable,
		SchemaVersion:    health.SchemaVersion,
		TableExists:      health.TableExists,
		ColumnsPresent:   health.ColumnsPresent,
		MissingColumns:   health.MissingColumns,
		IntegrityCheck:   health.IntegrityCheck,
		TotalItems:       health.TotalItems,
		Error:            health.Error,
	}, nil
}
