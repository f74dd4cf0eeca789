package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/AnCIity/importlyrical/pkg/observability"
	"github.com/AnCIity/importlyrical/pkg/ondemand"
)

type scanRow struct {
	File string `json:"file"`
	ondemand.Record
}

// NewScanCommand creates the import listing command.
func NewScanCommand(flags *GlobalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan <files...>",
		Short: "List configured library imports found in modules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer a.close()

			plugin, err := ondemand.New(a.plugin, a.pluginOptions()...)
			if err != nil {
				return err
			}

			var rows []scanRow

			for _, path := range args {
				data, readErr := os.ReadFile(path)
				if readErr != nil {
					return fmt.Errorf("read %s: %w", path, readErr)
				}

				dict, scanErr := plugin.Scan(cmd.Context(), string(data), filepath.Clean(path))
				if scanErr != nil {
					return scanErr
				}

				for _, rec := range dict.All() {
					rows = append(rows, scanRow{File: path, Record: rec})
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(rows)
			}

			tbl := table.NewWriter()
			tbl.SetOutputMirror(cmd.OutOrStdout())
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"File", "Library", "Component", "Local"})

			for _, row := range rows {
				tbl.AppendRow(table.Row{row.File, row.Library, row.Name, row.Local})
			}

			tbl.AppendFooter(table.Row{"", "", "Total", len(rows)})
			tbl.Render()

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return cmd
}
