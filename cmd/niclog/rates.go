package niclog

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/saadjs/niclog/internal/currency"
	"github.com/saadjs/niclog/internal/model"
	"github.com/saadjs/niclog/internal/tracker"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Inspect and refresh cached currency rates",
}

var ratesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cached rate snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			printRates(cmd, t.Settings())
			return nil
		})
	},
}

var ratesRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch current rates for the base currency",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			ok, err := t.RefreshRates(cmd.Context())
			if err != nil {
				return fmt.Errorf("refresh rates: %w", err)
			}
			if !ok {
				return fmt.Errorf("rate source returned no rates")
			}
			printRates(cmd, t.Settings())
			return nil
		})
	},
}

var ratesConvertCmd = &cobra.Command{
	Use:   "convert <amount> <from> [<to>]",
	Short: "Convert an amount using the cached rates",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseMoney("amount", args[0])
		if err != nil {
			return err
		}
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			s := t.Settings()
			to := s.BaseCurrency
			if len(args) == 3 {
				to = strings.ToUpper(strings.TrimSpace(args[2]))
			}
			if _, err := t.RefreshRatesIfStale(cmd.Context()); err != nil {
				logger.Warn("using cached currency rates", "error", err)
			}
			s = t.Settings()
			from := strings.ToUpper(strings.TrimSpace(args[1]))
			got := currency.Convert(amount, from, to, s.CurrencyRates)
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", formatCost(amount, from), formatCost(got, to))
			return nil
		})
	},
}

func printRates(cmd *cobra.Command, s model.Settings) {
	out := cmd.OutOrStdout()
	snap := s.CurrencyRates
	if snap == nil {
		fmt.Fprintf(out, "No cached rates for %s\n", s.BaseCurrency)
		return
	}
	state := "fresh"
	if currency.IsStale(snap, s.BaseCurrency, timeNow()) {
		state = "stale"
	}
	fmt.Fprintf(out, "Base: %s (updated %s, %s)\n", snap.Base, humanize.Time(snap.LastUpdated), state)
	codes := make([]string, 0, len(snap.Rates))
	for code := range snap.Rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if !currency.IsSupported(code) {
			continue
		}
		fmt.Fprintf(out, "%s\t%s\n", code, humanize.FormatFloat("#,###.####", snap.Rates[code]))
	}
}

func init() {
	rootCmd.AddCommand(ratesCmd)
	ratesCmd.AddCommand(ratesShowCmd, ratesRefreshCmd, ratesConvertCmd)
}
