package niclog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/saadjs/niclog/internal/model"
	"github.com/saadjs/niclog/internal/stats"
	"github.com/saadjs/niclog/internal/tracker"
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Manage nicotine entries",
}

var (
	entryProduct  string
	entryNicotine string
	entryAmount   string
	entryPrice    string
	entryCurrency string
	entryDate     string
	entryTime     string
)

var entryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Log nicotine use",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := buildEntryInput()
		if err != nil {
			return err
		}
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			e, err := t.AddEntry(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added entry %s (%s, %s)\n", e.ID, formatMg(e.TotalMg), formatCost(e.TotalCost, e.Currency))
			today := t.Today()
			printLimitLine(cmd, today)
			return nil
		})
	},
}

func buildEntryInput() (stats.EntryInput, error) {
	product, ok := model.ParseProductType(entryProduct)
	if !ok {
		return stats.EntryInput{}, &stats.ValidationError{Field: "product", Message: stats.MsgAddInvalid}
	}
	nicotine, err := parseNumber("--nicotine", entryNicotine)
	if err != nil {
		return stats.EntryInput{}, &stats.ValidationError{Field: "nicotine", Message: stats.MsgAddInvalid}
	}
	amount, err := parseNumber("--amount", entryAmount)
	if err != nil {
		return stats.EntryInput{}, &stats.ValidationError{Field: "amount", Message: stats.MsgAddInvalid}
	}
	price, err := parseMoney("--price", entryPrice)
	if err != nil {
		return stats.EntryInput{}, &stats.ValidationError{Field: "price", Message: stats.MsgAddInvalid}
	}
	ts, err := parseDateTimeOrNow(entryDate, entryTime)
	if err != nil {
		return stats.EntryInput{}, err
	}
	return stats.EntryInput{
		ProductType:       product,
		NicotinePerUnitMg: nicotine,
		Amount:            amount,
		PricePerUnit:      price,
		Currency:          entryCurrency,
		Timestamp:         ts,
	}, nil
}

var (
	listRange string
	listDate  string
	listJSON  bool
)

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			var entries []model.Entry
			if strings.TrimSpace(listDate) != "" {
				if _, err := stats.ParseDateKey(listDate); err != nil {
					return err
				}
				entries = t.EntriesForDay(strings.TrimSpace(listDate))
			} else {
				r, err := stats.ParseRange(listRange)
				if err != nil {
					return err
				}
				entries = t.EntriesInRange(r)
			}
			if listJSON {
				return writeJSON(cmd, entries)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tDATE\tPRODUCT\tMG/UNIT\tAMOUNT\tTOTAL MG\tCOST")
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%g\t%g\t%g\t%s\n",
					e.ID, e.Timestamp.Local().Format("2006-01-02 15:04"), e.ProductType,
					e.NicotinePerUnitMg, e.Amount, e.TotalMg, formatCost(e.TotalCost, e.Currency))
			}
			return nil
		})
	},
}

var entryShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			e, ok := t.Entry(args[0])
			if !ok {
				return fmt.Errorf("entry %s not found", args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID: %s\n", e.ID)
			fmt.Fprintf(out, "Logged: %s (%s)\n", e.Timestamp.Local().Format("2006-01-02 15:04"), humanize.Time(e.Timestamp))
			fmt.Fprintf(out, "Product: %s\n", e.ProductType)
			fmt.Fprintf(out, "Nicotine per unit: %s\n", formatMg(e.NicotinePerUnitMg))
			fmt.Fprintf(out, "Amount: %g\n", e.Amount)
			fmt.Fprintf(out, "Total nicotine: %s\n", formatMg(e.TotalMg))
			fmt.Fprintf(out, "Price per unit: %s\n", formatCost(e.PricePerUnit, e.Currency))
			fmt.Fprintf(out, "Total cost: %s\n", formatCost(e.TotalCost, e.Currency))
			return nil
		})
	},
}

var entryUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit an entry; totals are recalculated",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := buildEntryPatch(cmd)
		if err != nil {
			return err
		}
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			e, err := t.UpdateEntry(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated entry %s (%s, %s)\n", e.ID, formatMg(e.TotalMg), formatCost(e.TotalCost, e.Currency))
			return nil
		})
	},
}

func buildEntryPatch(cmd *cobra.Command) (tracker.EntryPatch, error) {
	var patch tracker.EntryPatch
	invalid := func(field string) error {
		return &stats.ValidationError{Field: field, Message: stats.MsgUpdateInvalid}
	}
	flags := cmd.Flags()
	if flags.Changed("product") {
		p, ok := model.ParseProductType(entryProduct)
		if !ok {
			return patch, invalid("product")
		}
		patch.ProductType = &p
	}
	if flags.Changed("nicotine") {
		v, err := parseNumber("--nicotine", entryNicotine)
		if err != nil {
			return patch, invalid("nicotine")
		}
		patch.NicotinePerUnitMg = &v
	}
	if flags.Changed("amount") {
		v, err := parseNumber("--amount", entryAmount)
		if err != nil {
			return patch, invalid("amount")
		}
		patch.Amount = &v
	}
	if flags.Changed("price") {
		v, err := parseMoney("--price", entryPrice)
		if err != nil {
			return patch, invalid("price")
		}
		patch.PricePerUnit = &v
	}
	if flags.Changed("currency") {
		c := entryCurrency
		patch.Currency = &c
	}
	if flags.Changed("date") {
		d := strings.TrimSpace(entryDate)
		if _, err := stats.ParseDateKey(d); err != nil {
			return patch, err
		}
		patch.Date = &d
	}
	if flags.Changed("time") {
		c := strings.TrimSpace(entryTime)
		patch.Clock = &c
	}
	return patch, nil
}

var entryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			if err := t.DeleteEntry(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %s\n", args[0])
			return nil
		})
	},
}

var clearYes bool

var entryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return fmt.Errorf("refusing to delete all entries without --yes")
		}
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			n := len(t.Entries())
			if err := t.ClearEntries(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries\n", n)
			return nil
		})
	},
}

func writeJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

func addEntryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&entryProduct, "product", "", "Product type: "+productList())
	cmd.Flags().StringVar(&entryNicotine, "nicotine", "", "Nicotine per unit in mg")
	cmd.Flags().StringVar(&entryAmount, "amount", "1", "Number of units")
	cmd.Flags().StringVar(&entryPrice, "price", "", "Price per unit")
	cmd.Flags().StringVar(&entryCurrency, "currency", "", "Currency of the price (default: base currency)")
	cmd.Flags().StringVar(&entryDate, "date", "", "Date in YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&entryTime, "time", "", "Time in HH:MM")
}

func productList() string {
	names := make([]string, 0, len(model.ProductTypes))
	for _, p := range model.ProductTypes {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

func init() {
	rootCmd.AddCommand(entryCmd)
	entryCmd.AddCommand(entryAddCmd, entryListCmd, entryShowCmd, entryUpdateCmd, entryDeleteCmd, entryClearCmd)

	addEntryFlags(entryAddCmd)
	addEntryFlags(entryUpdateCmd)
	_ = entryAddCmd.MarkFlagRequired("product")
	_ = entryAddCmd.MarkFlagRequired("nicotine")

	entryListCmd.Flags().StringVar(&listRange, "range", "7", "Trailing days (7, 30, 90, 180, 365) or all")
	entryListCmd.Flags().StringVar(&listDate, "date", "", "Only entries on this date (YYYY-MM-DD)")
	entryListCmd.Flags().BoolVar(&listJSON, "json", false, "Print JSON")

	entryClearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm deleting all entries")
}
