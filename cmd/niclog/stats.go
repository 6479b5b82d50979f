package niclog

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saadjs/niclog/internal/stats"
	"github.com/saadjs/niclog/internal/tracker"
)

var (
	statsRange string
	statsJSON  bool
)

type statsReport struct {
	Range    string             `json:"range"`
	Currency string             `json:"currency"`
	Summary  stats.RangeSummary `json:"summary"`
	Days     []stats.DailyTotal `json:"days"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show daily totals and averages over a trailing window",
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := stats.ParseRange(statsRange)
		if err != nil {
			return err
		}
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			refreshRatesIfNeeded(cmd.Context(), t)
			days := t.DailyTotals(r)
			report := statsReport{
				Range:    r.String(),
				Currency: t.Settings().BaseCurrency,
				Summary:  stats.SummarizeDailyTotals(days),
				Days:     days,
			}
			if statsJSON {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Range: %s\n", report.Range)
			fmt.Fprintf(out, "Total: %s | %s\n", formatMg(report.Summary.TotalMg), formatCost(report.Summary.TotalCost, report.Currency))
			fmt.Fprintf(out, "Average/day: %s | %s\n", formatMg(report.Summary.AvgMg), formatCost(report.Summary.AvgCost, report.Currency))
			fmt.Fprintln(out, "DATE\tMG\tCOST")
			for _, d := range days {
				fmt.Fprintf(out, "%s\t%g\t%s\n", d.Date, d.TotalMg, d.TotalCost.StringFixed(2))
			}
			return nil
		})
	},
}

var statsDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "Show the entries and totals for one day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := stats.ParseDateKey(args[0])
		if err != nil {
			return err
		}
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			key := stats.DateKey(day)
			entries := t.EntriesForDay(key)
			total := stats.TotalsForDay(entries, day, t.Converter())
			currency := t.Settings().BaseCurrency
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Date: %s\n", key)
			fmt.Fprintf(out, "Nicotine: %s\n", formatMg(total.TotalMg))
			fmt.Fprintf(out, "Spent: %s\n", formatCost(total.TotalCost, currency))
			for _, e := range entries {
				fmt.Fprintf(out, "  %s  %s  %-9s %s\n", e.ID, e.Timestamp.Local().Format("15:04"), e.ProductType, formatMg(e.TotalMg))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.AddCommand(statsDayCmd)
	statsCmd.Flags().StringVar(&statsRange, "range", "7", "Trailing days (7, 30, 90, 180, 365) or all")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print JSON")
}
