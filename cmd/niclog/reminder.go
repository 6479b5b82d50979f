package niclog

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/saadjs/niclog/internal/reminder"
)

var reminderCmd = &cobra.Command{
	Use:   "reminder",
	Short: "Deliver and inspect daily reminders",
}

var reminderRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run in the foreground and deliver reminders at the configured times",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withRuntime(ctx, func(rt *runtime) error {
			status := rt.tracker.SyncReminders(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", status.Message, strings.Join(status.Times, ", "))
			logger.Info("reminder daemon started", "backend", runtimeConfig().Notifications.Backend, "scheduled", status.Scheduled)

			done := make(chan error, 1)
			go func() { done <- rt.scheduler.Run(ctx) }()

			poll := time.NewTicker(runtimeConfig().Notifications.SettingsPoll)
			defer poll.Stop()
			for {
				select {
				case <-ctx.Done():
					<-done
					logger.Info("reminder daemon stopped")
					return nil
				case <-poll.C:
					changed, err := rt.tracker.ReloadSettings(ctx)
					if err != nil || !changed {
						continue
					}
					status := rt.tracker.SyncReminders(ctx)
					logger.Info("reminder settings changed", "message", status.Message, "times", status.Times)
				}
			}
		})
	},
}

var reminderStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show reminder settings, notifier availability and the next reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(rt *runtime) error {
			out := cmd.OutOrStdout()
			s := rt.tracker.Settings()
			fmt.Fprintf(out, "Reminders: %s\n", onOff(s.DailyReminderEnabled))
			fmt.Fprintf(out, "Times: %s\n", strings.Join(s.ReminderTimes, ", "))
			fmt.Fprintf(out, "Backend: %s\n", runtimeConfig().Notifications.Backend)
			if err := rt.notifier.Available(cmd.Context()); err != nil {
				fmt.Fprintf(out, "Notifications: unavailable (%v)\n", err)
			} else {
				fmt.Fprintln(out, "Notifications: available")
			}
			if !s.DailyReminderEnabled {
				return nil
			}
			status := rt.tracker.SyncReminders(cmd.Context())
			fmt.Fprintf(out, "Status: %s\n", status.Message)
			for _, next := range rt.scheduler.Next(time.Now()) {
				fmt.Fprintf(out, "Next: %s (%s)\n", next.At.Format("2006-01-02 15:04"), humanize.Time(next.At))
			}
			return nil
		})
	},
}

var reminderTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a reminder notification now",
	RunE: func(cmd *cobra.Command, args []string) error {
		notifier, closeNotifier := newNotifier(runtimeConfig())
		defer closeNotifier()
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		if err := notifier.Notify(ctx, reminder.DefaultNotification()); err != nil {
			return fmt.Errorf("send test reminder: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Sent test reminder")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reminderCmd)
	reminderCmd.AddCommand(reminderRunCmd, reminderStatusCmd, reminderTestCmd)
}
