package niclog

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/saadjs/niclog/internal/app"
	"github.com/saadjs/niclog/internal/config"
	"github.com/saadjs/niclog/internal/db"
	"github.com/saadjs/niclog/internal/events"
	"github.com/saadjs/niclog/internal/provider/exchangerate"
	"github.com/saadjs/niclog/internal/publisher"
	"github.com/saadjs/niclog/internal/reminder"
	"github.com/saadjs/niclog/internal/service"
	"github.com/saadjs/niclog/internal/stats"
	"github.com/saadjs/niclog/internal/tracker"
)

var timeNow = time.Now

func runtimeConfig() *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

func resolveDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	if c := runtimeConfig(); c.DBPath != "" {
		return c.DBPath, nil
	}
	return app.DefaultDBPath()
}

func withDB(run func(*sql.DB) error) error {
	path, err := resolveDBPath()
	if err != nil {
		return err
	}
	if err := app.EnsureDBDir(path); err != nil {
		return err
	}
	if err := db.ApplyMigrations(path); err != nil {
		return err
	}
	sqldb, err := db.Open(path)
	if err != nil {
		return err
	}
	defer sqldb.Close()
	return run(sqldb)
}

// withTracker opens the database and hands run a bootstrapped tracker wired
// to the configured rate source, notifier and event sink.
func withTracker(ctx context.Context, run func(*tracker.Tracker, *sql.DB) error) error {
	return withRuntime(ctx, func(rt *runtime) error {
		return run(rt.tracker, rt.db)
	})
}

type runtime struct {
	db        *sql.DB
	tracker   *tracker.Tracker
	notifier  reminder.Notifier
	scheduler *reminder.Scheduler
}

func withRuntime(ctx context.Context, run func(*runtime) error) error {
	return withDB(func(sqldb *sql.DB) error {
		path, err := resolveDBPath()
		if err != nil {
			return err
		}
		c := runtimeConfig()
		notifier, closeNotifier := newNotifier(c)
		defer closeNotifier()
		scheduler := reminder.NewScheduler(notifier,
			reminder.WithLogger(logger.WithComponent("reminder")),
			reminder.WithTickInterval(c.Notifications.TickInterval),
		)

		opts := []tracker.Option{
			tracker.WithLogger(logger.WithComponent("tracker")),
			tracker.WithRateFetcher(newRateClient(c)),
			tracker.WithScheduler(scheduler),
		}
		if sink := newEventSink(c); sink != nil {
			defer sink.Close()
			opts = append(opts, tracker.WithEventSink(sink))
		}

		t := tracker.New(service.NewEntryStore(sqldb, path), service.NewSettingsStore(sqldb), opts...)
		if err := t.Bootstrap(ctx); err != nil {
			return err
		}
		return run(&runtime{db: sqldb, tracker: t, notifier: notifier, scheduler: scheduler})
	})
}

func newRateClient(c *config.Config) *exchangerate.Client {
	return &exchangerate.Client{
		BaseURL:    c.Rates.BaseURL,
		HTTPClient: &http.Client{Timeout: c.Rates.Timeout},
	}
}

// newNotifier picks the delivery backend from config. The returned func
// releases any connection it opened.
func newNotifier(c *config.Config) (reminder.Notifier, func()) {
	switch c.Notifications.Backend {
	case config.BackendDesktop:
		return reminder.NewDesktopNotifier(), func() {}
	case config.BackendMQTT:
		pub, err := publisher.New(c.MQTT)
		if err != nil {
			logger.Warn("MQTT notifier unavailable", "error", err)
			return reminder.NewMQTTNotifier(nil), func() {}
		}
		return reminder.NewMQTTNotifier(pub), pub.Close
	default:
		return reminder.Unsupported{}, func() {}
	}
}

func newEventSink(c *config.Config) *events.AMQPPublisher {
	if c.AMQP.URL == "" {
		return nil
	}
	sink, err := events.NewAMQPPublisher(c.AMQP.URL, c.AMQP.Exchange, c.AMQP.Queue)
	if err != nil {
		logger.Warn("entry events disabled", "error", err)
		return nil
	}
	return sink
}

// parseNumber accepts a comma as the decimal separator.
func parseNumber(name, value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(value), ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, value)
	}
	return v, nil
}

func parseMoney(name, value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(value, ",", "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", name, value)
	}
	return d, nil
}

// parseDateTimeOrNow resolves --date/--time. A date without a time is
// logged at noon so it stays on that day in any nearby timezone.
func parseDateTimeOrNow(date, timeStr string) (time.Time, error) {
	date = strings.TrimSpace(date)
	timeStr = strings.TrimSpace(timeStr)
	if date == "" && timeStr == "" {
		return time.Time{}, nil
	}
	if date == "" {
		date = stats.DateKey(timeNow())
	}
	if timeStr == "" {
		return stats.NoonOf(date)
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+timeStr, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date/--time (expected YYYY-MM-DD and HH:MM)")
	}
	return t, nil
}

func formatMg(v float64) string {
	return humanize.FormatFloat("#,###.#", v) + " mg"
}

func formatCost(d decimal.Decimal, code string) string {
	return strings.TrimSpace(d.StringFixed(2) + " " + code)
}

// refreshRatesIfNeeded fetches rates only when some entry was priced in a
// currency other than the base one.
func refreshRatesIfNeeded(ctx context.Context, t *tracker.Tracker) {
	base := t.Settings().BaseCurrency
	for _, e := range t.Entries() {
		if e.Currency != "" && e.Currency != base {
			if _, err := t.RefreshRatesIfStale(ctx); err != nil {
				logger.Debug("using cached currency rates", "error", err)
			}
			return
		}
	}
}
