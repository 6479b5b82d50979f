package niclog

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saadjs/niclog/internal/model"
	"github.com/saadjs/niclog/internal/tracker"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "View and change limit, currency and reminder settings",
}

var settingsShowJSON bool

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			s := t.Settings()
			if settingsShowJSON {
				return writeJSON(cmd, s)
			}
			printSettings(cmd, s)
			return nil
		})
	},
}

var settingsLimitCmd = &cobra.Command{
	Use:   "limit <mg|none>",
	Short: "Set the daily nicotine limit in mg",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var limit *float64
		if raw := strings.ToLower(strings.TrimSpace(args[0])); raw != "none" && raw != "off" {
			v, err := parseNumber("limit", raw)
			if err != nil {
				return err
			}
			limit = &v
		}
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			s := t.SetDailyLimit(cmd.Context(), limit)
			if s.DailyLimitMg == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Daily limit cleared")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daily limit set to %s\n", formatMg(*s.DailyLimitMg))
			return nil
		})
	},
}

var settingsCurrencyCmd = &cobra.Command{
	Use:   "currency <CODE>",
	Short: "Set the currency totals are reported in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			s, err := t.SetBaseCurrency(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Base currency set to %s\n", s.BaseCurrency)
			return nil
		})
	},
}

var (
	remindersEnable  bool
	remindersDisable bool
	remindersTimes   string
	remindersCount   int
	remindersHour    int
)

var settingsRemindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Configure daily reminder notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if remindersEnable && remindersDisable {
			return fmt.Errorf("--enable and --disable are mutually exclusive")
		}
		return withTracker(cmd.Context(), func(t *tracker.Tracker, _ *sql.DB) error {
			ctx := cmd.Context()
			var status *tracker.ReminderStatus
			apply := func(s tracker.ReminderStatus) { status = &s }

			if flags.Changed("times") {
				apply(t.SetReminderTimes(ctx, splitTimes(remindersTimes)))
			}
			if flags.Changed("count") {
				apply(t.SetReminderCount(ctx, remindersCount))
			}
			if flags.Changed("hour") {
				apply(t.SetReminderHour(ctx, remindersHour))
			}
			if remindersEnable {
				apply(t.SetDailyReminder(ctx, true))
			}
			if remindersDisable {
				apply(t.SetDailyReminder(ctx, false))
			}
			if status == nil {
				apply(t.SyncReminders(ctx))
			}

			s := t.Settings()
			fmt.Fprintf(cmd.OutOrStdout(), "Reminders: %s at %s\n", onOff(s.DailyReminderEnabled), strings.Join(s.ReminderTimes, ", "))
			fmt.Fprintln(cmd.OutOrStdout(), status.Message)
			if status.Err != nil {
				logger.Debug("reminder scheduling unavailable", "error", status.Err)
			}
			return nil
		})
	},
}

func splitTimes(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func printSettings(cmd *cobra.Command, s model.Settings) {
	out := cmd.OutOrStdout()
	if s.DailyLimitMg != nil {
		fmt.Fprintf(out, "Daily limit: %s\n", formatMg(*s.DailyLimitMg))
	} else {
		fmt.Fprintln(out, "Daily limit: not set")
	}
	fmt.Fprintf(out, "Base currency: %s\n", s.BaseCurrency)
	fmt.Fprintf(out, "Reminders: %s\n", onOff(s.DailyReminderEnabled))
	fmt.Fprintf(out, "Reminder times: %s\n", strings.Join(s.ReminderTimes, ", "))
	if s.CurrencyRates != nil {
		fmt.Fprintf(out, "Cached rates: %s base, %d currencies\n", s.CurrencyRates.Base, len(s.CurrencyRates.Rates))
	}
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsLimitCmd, settingsCurrencyCmd, settingsRemindersCmd)

	settingsShowCmd.Flags().BoolVar(&settingsShowJSON, "json", false, "Print JSON")

	settingsRemindersCmd.Flags().BoolVar(&remindersEnable, "enable", false, "Turn daily reminders on")
	settingsRemindersCmd.Flags().BoolVar(&remindersDisable, "disable", false, "Turn daily reminders off")
	settingsRemindersCmd.Flags().StringVar(&remindersTimes, "times", "", "Comma-separated HH:MM times (up to 5)")
	settingsRemindersCmd.Flags().IntVar(&remindersCount, "count", 1, "Number of reminders per day (1-5)")
	settingsRemindersCmd.Flags().IntVar(&remindersHour, "hour", 20, "Hour of the first reminder (0-23)")
}
