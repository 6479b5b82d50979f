package niclog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/saadjs/niclog/internal/publisher"
	"github.com/saadjs/niclog/internal/service"
	"github.com/saadjs/niclog/internal/stats"
	"github.com/saadjs/niclog/internal/tracker"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish today's totals and the 7-day summary to MQTT",
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, err := publisher.New(runtimeConfig().MQTT)
		if err != nil {
			return err
		}
		defer pub.Close()

		return withTracker(cmd.Context(), func(t *tracker.Tracker, sqldb *sql.DB) error {
			refreshRatesIfNeeded(cmd.Context(), t)
			state := buildDailyState(t, time.Now())
			if err := pub.PublishJSON(publisher.StateTopic, state, true); err != nil {
				return err
			}
			if err := service.SetConfig(sqldb, service.ConfigLastPublished, state.PublishedAt.Format(time.RFC3339)); err != nil {
				logger.Warn("failed to record publish time", "error", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s to %s\n", state.Date, pub.Topic(publisher.StateTopic))
			return nil
		})
	},
}

func buildDailyState(t *tracker.Tracker, now time.Time) publisher.DailyState {
	today := t.Today()
	week := t.Summary(stats.LastDays(7))
	state := publisher.DailyState{
		Date:      today.Date,
		TotalMg:   today.TotalMg,
		TotalCost: today.TotalCost,
		Currency:  today.Currency,
		LimitMg:   today.LimitMg,
		Exceeded:  today.LimitExceeded,
		Week: publisher.WeekSummary{
			TotalMg:   week.TotalMg,
			AvgMg:     week.AvgMg,
			TotalCost: week.TotalCost,
			AvgCost:   week.AvgCost,
		},
		PublishedAt: now.UTC(),
	}
	if today.HasLimit {
		pct := today.LimitPercent
		state.LimitPercent = &pct
	}
	return state
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
