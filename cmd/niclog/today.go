package niclog

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saadjs/niclog/internal/tracker"
)

var todayJSON bool

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's nicotine and spending against your limit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			refreshRatesIfNeeded(cmd.Context(), t)
			today := t.Today()
			if todayJSON {
				return writeJSON(cmd, today)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Date: %s\n", today.Date)
			fmt.Fprintf(out, "Nicotine: %s\n", formatMg(today.TotalMg))
			fmt.Fprintf(out, "Spent: %s\n", formatCost(today.TotalCost, today.Currency))
			printLimitLine(cmd, today)
			fmt.Fprintf(out, "Entries: %d\n", len(today.Entries))
			for _, e := range today.Entries {
				fmt.Fprintf(out, "  %s  %-9s %s x%g = %s\n", e.Timestamp.Local().Format("15:04"), e.ProductType, formatMg(e.NicotinePerUnitMg), e.Amount, formatMg(e.TotalMg))
			}
			return nil
		})
	},
}

func printLimitLine(cmd *cobra.Command, today tracker.Today) {
	if !today.HasLimit {
		fmt.Fprintln(cmd.OutOrStdout(), "Limit: not set")
		return
	}
	status := "within limit"
	if today.LimitExceeded {
		status = "limit exceeded"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Limit: %s of %s (%.0f%%, %s)\n", formatMg(today.TotalMg), formatMg(*today.LimitMg), today.LimitPercent, status)
}

func init() {
	rootCmd.AddCommand(todayCmd)
	todayCmd.Flags().BoolVar(&todayJSON, "json", false, "Print JSON")
}
