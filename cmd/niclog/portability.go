package niclog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/saadjs/niclog/internal/service"
)

var (
	exportFormat string
	exportOut    string
	importIn     string
	importMode   string
	importDryRun bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export entries and settings as json, or entries as csv",
	Long:  "Export writes to --out, or to stdout when --out is empty or -.",
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(strings.TrimSpace(exportFormat))
		if format != "json" && format != "csv" {
			return fmt.Errorf("unsupported --format %q (use json or csv)", exportFormat)
		}
		return withDB(func(sqldb *sql.DB) error {
			data, err := service.ExportDataSnapshot(sqldb, time.Now())
			if err != nil {
				return err
			}

			toStdout := exportOut == "" || exportOut == "-"
			var w io.Writer = cmd.OutOrStdout()
			if !toStdout {
				f, err := os.Create(exportOut)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer f.Close()
				w = f
			}

			if format == "csv" {
				err = service.WriteEntriesCSV(w, data.Entries)
			} else {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				err = enc.Encode(data)
			}
			if err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			if !toStdout {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(data.Entries), exportOut)
			}
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a JSON export (also accepts the mobile app's backup shape)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(importIn) == "" {
			return fmt.Errorf("--in is required")
		}
		raw, err := os.ReadFile(importIn)
		if err != nil {
			return fmt.Errorf("read import file: %w", err)
		}
		var payload service.ExportData
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("parse import json: %w", err)
		}
		return withDB(func(sqldb *sql.DB) error {
			report, err := service.ImportDataSnapshotWithOptions(sqldb, &payload, service.ImportOptions{
				Mode:   service.ImportMode(strings.ToLower(strings.TrimSpace(importMode))),
				DryRun: importDryRun,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Import report: inserted=%d updated=%d skipped=%d conflicts=%d settings=%t\n",
				report.Inserted, report.Updated, report.Skipped, report.Conflicts, report.SettingsApplied)
			for _, w := range report.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			if importDryRun {
				fmt.Fprintf(out, "Dry-run import validated %s\n", importIn)
				return nil
			}
			fmt.Fprintf(out, "Imported data from %s\n", importIn)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format: json or csv")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file path (default: stdout)")
	importCmd.Flags().StringVar(&importIn, "in", "", "Input file path")
	importCmd.Flags().StringVar(&importMode, "mode", "fail", "Import mode: fail|skip|merge|replace")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate and report without writing data")
}
