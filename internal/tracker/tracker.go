// Package tracker owns the in-memory entries and settings. Every mutation
// goes through a named operation that writes to the store before the
// change becomes visible to readers.
package tracker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/saadjs/niclog/internal/events"
	"github.com/saadjs/niclog/internal/log"
	"github.com/saadjs/niclog/internal/model"
	"github.com/saadjs/niclog/internal/settings"
)

type EntryStore interface {
	Initialize(ctx context.Context) error
	LoadAll(ctx context.Context) ([]model.Entry, error)
	Insert(ctx context.Context, e model.Entry) error
	Update(ctx context.Context, e model.Entry) error
	DeleteByID(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
}

type SettingsStore interface {
	Load(ctx context.Context) (*settings.Partial, error)
	Save(ctx context.Context, s model.Settings) error
}

// Scheduler returns nil ids with an error when notifications are not
// permitted or not supported.
type Scheduler interface {
	ScheduleDailyReminders(ctx context.Context, times []string) ([]string, error)
	CancelAll(ctx context.Context) error
}

type RateFetcher interface {
	FetchLatest(ctx context.Context, base string) (*model.RateSnapshot, error)
}

type EventSink interface {
	Publish(ctx context.Context, e events.Event) error
}

type Tracker struct {
	entryStore    EntryStore
	settingsStore SettingsStore
	scheduler     Scheduler
	rates         RateFetcher
	sink          EventSink
	logger        *log.Logger
	now           func() time.Time

	mu       sync.RWMutex
	entries  []model.Entry
	settings model.Settings
	loading  bool

	refresh singleflight.Group
}

type Option func(*Tracker)

func WithScheduler(s Scheduler) Option {
	return func(t *Tracker) { t.scheduler = s }
}

func WithRateFetcher(f RateFetcher) Option {
	return func(t *Tracker) { t.rates = f }
}

func WithEventSink(s EventSink) Option {
	return func(t *Tracker) { t.sink = s }
}

func WithLogger(l *log.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

func New(entries EntryStore, settingsStore SettingsStore, opts ...Option) *Tracker {
	t := &Tracker{
		entryStore:    entries,
		settingsStore: settingsStore,
		logger:        log.Discard(),
		now:           time.Now,
		settings:      settings.Defaults(),
		loading:       true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Bootstrap prepares the entry store and loads entries and settings.
// Only an Initialize failure is returned; load failures fall back to an
// empty entry list or default settings.
func (t *Tracker) Bootstrap(ctx context.Context) error {
	if err := t.entryStore.Initialize(ctx); err != nil {
		t.logger.ErrorContext(ctx, "failed to initialize entry store", "error", err)
		return err
	}

	var (
		loaded  []model.Entry
		partial *settings.Partial
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries, err := t.entryStore.LoadAll(gctx)
		if err != nil {
			t.logger.WarnContext(gctx, "failed to load entries, starting empty", "error", err)
			return nil
		}
		loaded = entries
		return nil
	})
	g.Go(func() error {
		if t.settingsStore == nil {
			return nil
		}
		p, err := t.settingsStore.Load(gctx)
		if err != nil {
			t.logger.WarnContext(gctx, "failed to load settings, using defaults", "error", err)
			return nil
		}
		partial = p
		return nil
	})
	_ = g.Wait()

	t.mu.Lock()
	t.entries = append([]model.Entry(nil), loaded...)
	sortEntries(t.entries)
	t.settings = settings.Merge(partial)
	t.loading = false
	t.mu.Unlock()

	t.logger.DebugContext(ctx, "tracker ready", "entries", len(loaded))
	return nil
}

// Loading reports whether Bootstrap has not completed yet.
func (t *Tracker) Loading() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loading
}

func (t *Tracker) emit(ctx context.Context, kind events.Kind, entryID string, entry *model.Entry) {
	if t.sink == nil {
		return
	}
	if err := t.sink.Publish(ctx, events.New(kind, entryID, entry, t.now())); err != nil {
		t.logger.WarnContext(ctx, "failed to publish entry event", "kind", kind, "error", err)
	}
}
