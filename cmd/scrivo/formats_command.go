package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scrivo/internal/formatters"
)

func newFormatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "formats",
		Short: "List available output formats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			registry := formatters.DefaultRegistry(cfg.Results.PrettyJSON)
			available := registry.Names()

			configured := make(map[string]bool, len(cfg.Results.Formats))
			for _, name := range cfg.Results.Formats {
				configured[strings.ToLower(strings.TrimSpace(name))] = true
			}

			if jsonOut {
				type jsonFormat struct {
					Name      string `json:"name"`
					Extension string `json:"extension"`
					Enabled   bool   `json:"enabled"`
				}
				list := make([]jsonFormat, 0, len(available))
				for _, name := range available {
					formatter, _ := registry.Get(name)
					list = append(list, jsonFormat{
						Name:      name,
						Extension: formatter.Extension(),
						Enabled:   configured[name],
					})
				}
				return writeJSON(cmd, list)
			}

			rows := make([][]string, 0, len(available))
			for _, name := range available {
				formatter, _ := registry.Get(name)
				rows = append(rows, []string{
					name,
					"." + formatter.Extension(),
					yesNo(configured[name]),
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				out,
				[]string{"Format", "Extension", "Enabled"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable JSON")
	return cmd
}
