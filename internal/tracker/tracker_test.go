package tracker

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saadjs/niclog/internal/events"
	"github.com/saadjs/niclog/internal/model"
	"github.com/saadjs/niclog/internal/reminder"
	"github.com/saadjs/niclog/internal/service"
	"github.com/saadjs/niclog/internal/settings"
	"github.com/saadjs/niclog/internal/stats"
)

type fakeEntryStore struct {
	mu       sync.Mutex
	initErr  error
	loadErr  error
	writeErr error
	rows     map[string]model.Entry
}

func newFakeEntryStore(entries ...model.Entry) *fakeEntryStore {
	s := &fakeEntryStore{rows: map[string]model.Entry{}}
	for _, e := range entries {
		s.rows[e.ID] = e
	}
	return s
}

func (s *fakeEntryStore) Initialize(context.Context) error { return s.initErr }

func (s *fakeEntryStore) LoadAll(context.Context) ([]model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]model.Entry, 0, len(s.rows))
	for _, e := range s.rows {
		out = append(out, e)
	}
	return out, nil
}

func (s *fakeEntryStore) Insert(_ context.Context, e model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.rows[e.ID] = e
	return nil
}

func (s *fakeEntryStore) Update(_ context.Context, e model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if _, ok := s.rows[e.ID]; !ok {
		return service.ErrEntryNotFound
	}
	s.rows[e.ID] = e
	return nil
}

func (s *fakeEntryStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if _, ok := s.rows[id]; !ok {
		return service.ErrEntryNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *fakeEntryStore) ClearAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.rows = map[string]model.Entry{}
	return nil
}

type fakeSettingsStore struct {
	mu      sync.Mutex
	partial *settings.Partial
	loadErr error
	saveErr error
	saves   []model.Settings
}

func (s *fakeSettingsStore) Load(context.Context) (*settings.Partial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partial, s.loadErr
}

func (s *fakeSettingsStore) Save(_ context.Context, v model.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, v)
	if s.saveErr == nil {
		s.partial = settings.PartialOf(v)
	}
	return s.saveErr
}

func (s *fakeSettingsStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}

type fakeScheduler struct {
	err       error
	scheduled [][]string
	cancels   int
}

func (s *fakeScheduler) ScheduleDailyReminders(_ context.Context, times []string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.scheduled = append(s.scheduled, append([]string(nil), times...))
	ids := make([]string, len(times))
	for i := range times {
		ids[i] = "job-" + times[i]
	}
	return ids, nil
}

func (s *fakeScheduler) CancelAll(context.Context) error {
	s.cancels++
	return nil
}

type recordingSink struct {
	kinds []events.Kind
}

func (r *recordingSink) Publish(_ context.Context, e events.Event) error {
	r.kinds = append(r.kinds, e.Kind)
	return nil
}

var fixedNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)

func clock() time.Time { return fixedNow }

func entryAt(id string, ts time.Time, product model.ProductType, mg, amount float64, price string) model.Entry {
	return stats.RecalcEntryTotals(model.Entry{
		ID:                id,
		Timestamp:         ts,
		ProductType:       product,
		NicotinePerUnitMg: mg,
		Amount:            amount,
		PricePerUnit:      decimal.RequireFromString(price),
		Currency:          "EUR",
	})
}

func bootstrapped(t *testing.T, entries *fakeEntryStore, st *fakeSettingsStore, opts ...Option) *Tracker {
	t.Helper()
	opts = append([]Option{WithClock(clock)}, opts...)
	tr := New(entries, st, opts...)
	if err := tr.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return tr
}

func TestBootstrapLoadsAndSorts(t *testing.T) {
	t.Parallel()
	late := entryAt("b", fixedNow.Add(-time.Hour), model.ProductVape, 20, 1, "5")
	early := entryAt("a", fixedNow.Add(-5*time.Hour), model.ProductSnus, 8, 1, "0.5")
	hour := 7
	st := &fakeSettingsStore{partial: &settings.Partial{ReminderHour: &hour}}

	tr := New(newFakeEntryStore(late, early), st, WithClock(clock))
	if !tr.Loading() {
		t.Fatalf("expected loading before bootstrap")
	}
	if err := tr.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if tr.Loading() {
		t.Fatalf("expected ready after bootstrap")
	}
	got := tr.Entries()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("expected ascending entries, got %+v", got)
	}
	if !reflect.DeepEqual(tr.Settings().ReminderTimes, []string{"07:00"}) {
		t.Fatalf("expected legacy hour to be merged, got %v", tr.Settings().ReminderTimes)
	}
}

func TestBootstrapDegradesLoadFailures(t *testing.T) {
	t.Parallel()
	entries := newFakeEntryStore(entryAt("a", fixedNow, model.ProductSnus, 8, 1, "1"))
	entries.loadErr = errors.New("disk on fire")
	st := &fakeSettingsStore{loadErr: errors.New("bad json")}

	tr := bootstrapped(t, entries, st)
	if len(tr.Entries()) != 0 {
		t.Fatalf("expected empty entries after load failure")
	}
	if !reflect.DeepEqual(tr.Settings(), settings.Defaults()) {
		t.Fatalf("expected default settings, got %+v", tr.Settings())
	}

	failing := newFakeEntryStore()
	failing.initErr = errors.New("cannot open")
	if err := New(failing, st).Bootstrap(context.Background()); err == nil {
		t.Fatalf("expected initialize error to be returned")
	}
}

func TestAddEntryWritesThenReflects(t *testing.T) {
	t.Parallel()
	store := newFakeEntryStore()
	sink := &recordingSink{}
	tr := bootstrapped(t, store, &fakeSettingsStore{}, WithEventSink(sink))
	ctx := context.Background()

	_, err := tr.AddEntry(ctx, stats.EntryInput{ProductType: model.ProductVape, NicotinePerUnitMg: 0, Amount: 2})
	var verr *stats.ValidationError
	if !errors.As(err, &verr) || verr.Message != stats.MsgAddInvalid {
		t.Fatalf("expected validation error, got %v", err)
	}

	e, err := tr.AddEntry(ctx, stats.EntryInput{
		ProductType:       model.ProductVape,
		NicotinePerUnitMg: 20,
		Amount:            2,
		PricePerUnit:      decimal.RequireFromString("5"),
	})
	if err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if e.TotalMg != 40 || e.TotalCost.StringFixed(2) != "10.00" || e.Currency != "EUR" || !e.Timestamp.Equal(fixedNow) {
		t.Fatalf("unexpected entry %+v", e)
	}
	if _, ok := store.rows[e.ID]; !ok {
		t.Fatalf("expected entry to be persisted")
	}

	store.writeErr = errors.New("read-only")
	if _, err := tr.AddEntry(ctx, stats.EntryInput{ProductType: model.ProductSnus, NicotinePerUnitMg: 8, Amount: 1}); err == nil {
		t.Fatalf("expected store error")
	}
	if len(tr.Entries()) != 1 {
		t.Fatalf("failed write must not change memory, have %d entries", len(tr.Entries()))
	}
	if !reflect.DeepEqual(sink.kinds, []events.Kind{events.EntryAdded}) {
		t.Fatalf("unexpected events %v", sink.kinds)
	}
}

func TestUpdateEntryRecomputesTotals(t *testing.T) {
	t.Parallel()
	orig := entryAt("e1", fixedNow.Add(-time.Hour), model.ProductPouch, 10, 1, "2")
	store := newFakeEntryStore(orig)
	tr := bootstrapped(t, store, &fakeSettingsStore{})
	ctx := context.Background()

	amount := 3.0
	got, err := tr.UpdateEntry(ctx, "e1", EntryPatch{Amount: &amount})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.TotalMg != 30 || got.TotalCost.StringFixed(2) != "6.00" {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got.ID != orig.ID || !got.Timestamp.Equal(orig.Timestamp) || got.ProductType != orig.ProductType {
		t.Fatalf("identity fields changed: %+v", got)
	}
	if mem, _ := tr.Entry("e1"); mem.TotalMg != 30 {
		t.Fatalf("memory not updated: %+v", mem)
	}

	bad := -1.0
	if _, err := tr.UpdateEntry(ctx, "e1", EntryPatch{Amount: &bad}); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := tr.UpdateEntry(ctx, "nope", EntryPatch{}); !errors.Is(err, service.ErrEntryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	store.writeErr = errors.New("locked")
	more := 5.0
	if _, err := tr.UpdateEntry(ctx, "e1", EntryPatch{Amount: &more}); err == nil {
		t.Fatalf("expected store error")
	}
	if mem, _ := tr.Entry("e1"); mem.Amount != 3 {
		t.Fatalf("failed update must not change memory: %+v", mem)
	}
}

func TestUpdateEntryMovesWithinItsOwnDay(t *testing.T) {
	t.Parallel()
	backdated := time.Date(2026, 2, 20, 12, 0, 0, 0, time.Local)
	store := newFakeEntryStore(entryAt("e1", backdated, model.ProductSnus, 8, 1, "1"))
	tr := bootstrapped(t, store, &fakeSettingsStore{})
	ctx := context.Background()

	clockOnly := "08:30"
	got, err := tr.UpdateEntry(ctx, "e1", EntryPatch{Clock: &clockOnly})
	if err != nil {
		t.Fatalf("update clock: %v", err)
	}
	if want := time.Date(2026, 2, 20, 8, 30, 0, 0, time.Local); !got.Timestamp.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got.Timestamp)
	}

	dateOnly := "2026-02-18"
	got, err = tr.UpdateEntry(ctx, "e1", EntryPatch{Date: &dateOnly})
	if err != nil {
		t.Fatalf("update date: %v", err)
	}
	if want := time.Date(2026, 2, 18, 8, 30, 0, 0, time.Local); !got.Timestamp.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got.Timestamp)
	}

	bad := "8h30"
	if _, err := tr.UpdateEntry(ctx, "e1", EntryPatch{Clock: &bad}); !errors.Is(err, stats.ErrInvalidClock) {
		t.Fatalf("expected invalid clock, got %v", err)
	}
	if mem, _ := tr.Entry("e1"); !mem.Timestamp.Equal(got.Timestamp) {
		t.Fatalf("rejected update must not change memory: %+v", mem)
	}
}

func TestDeleteAndClear(t *testing.T) {
	t.Parallel()
	store := newFakeEntryStore(
		entryAt("a", fixedNow, model.ProductSnus, 8, 1, "1"),
		entryAt("b", fixedNow, model.ProductSnus, 8, 1, "1"),
	)
	sink := &recordingSink{}
	tr := bootstrapped(t, store, &fakeSettingsStore{}, WithEventSink(sink))
	ctx := context.Background()

	if err := tr.DeleteEntry(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := tr.DeleteEntry(ctx, "a"); !errors.Is(err, service.ErrEntryNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if len(tr.Entries()) != 1 {
		t.Fatalf("expected one entry left")
	}
	if err := tr.ClearEntries(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(tr.Entries()) != 0 || len(store.rows) != 0 {
		t.Fatalf("expected everything cleared")
	}
	want := []events.Kind{events.EntryDeleted, events.EntriesCleared}
	if !reflect.DeepEqual(sink.kinds, want) {
		t.Fatalf("expected %v, got %v", want, sink.kinds)
	}
}

func TestSettingsSaveSkippedWhileLoading(t *testing.T) {
	t.Parallel()
	st := &fakeSettingsStore{}
	tr := New(newFakeEntryStore(), st, WithClock(clock))
	limit := 20.0
	tr.SetDailyLimit(context.Background(), &limit)
	if st.saveCount() != 0 {
		t.Fatalf("expected no save while loading")
	}
	if err := tr.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	tr.SetDailyLimit(context.Background(), &limit)
	if st.saveCount() != 1 {
		t.Fatalf("expected one save after bootstrap, got %d", st.saveCount())
	}
	zero := 0.0
	if s := tr.SetDailyLimit(context.Background(), &zero); s.DailyLimitMg != nil {
		t.Fatalf("expected non-positive limit to clear, got %v", *s.DailyLimitMg)
	}
}

func TestSettingsSaveErrorsAreSwallowed(t *testing.T) {
	t.Parallel()
	st := &fakeSettingsStore{saveErr: errors.New("full disk")}
	tr := bootstrapped(t, newFakeEntryStore(), st)

	s, err := tr.SetBaseCurrency(context.Background(), " usd ")
	if err != nil {
		t.Fatalf("set currency: %v", err)
	}
	if s.BaseCurrency != "USD" || tr.Settings().BaseCurrency != "USD" {
		t.Fatalf("expected memory update despite save failure")
	}
	if _, err := tr.SetBaseCurrency(context.Background(), "XYZ"); err == nil {
		t.Fatalf("expected unsupported currency error")
	}
}

func TestReminderSync(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{}
	tr := bootstrapped(t, newFakeEntryStore(), &fakeSettingsStore{}, WithScheduler(sched))
	ctx := context.Background()

	status := tr.SetDailyReminder(ctx, true)
	if !status.Scheduled || status.Message != MsgRemindersSaved || !reflect.DeepEqual(status.Times, []string{"20:00"}) {
		t.Fatalf("unexpected status %+v", status)
	}

	status = tr.SetReminderCount(ctx, 3)
	if len(status.IDs) != 3 || !reflect.DeepEqual(tr.Settings().ReminderTimes, []string{"20:00", "20:00", "20:00"}) {
		t.Fatalf("unexpected resize %+v / %v", status, tr.Settings().ReminderTimes)
	}

	status = tr.SetReminderTimes(ctx, []string{"7:5", "30:00"})
	if !reflect.DeepEqual(status.Times, []string{"07:05", "23:00"}) {
		t.Fatalf("expected sanitized times, got %v", status.Times)
	}

	status = tr.SetReminderHour(ctx, 9)
	if !reflect.DeepEqual(status.Times, []string{"09:00", "23:00"}) || tr.Settings().ReminderHour != 9 {
		t.Fatalf("unexpected hour update %+v", status)
	}

	status = tr.SetDailyReminder(ctx, false)
	if status.Message != MsgRemindersDisabled || sched.cancels != 1 {
		t.Fatalf("expected cancel, got %+v cancels=%d", status, sched.cancels)
	}
}

func TestReminderPermissionDenied(t *testing.T) {
	t.Parallel()
	sched := &fakeScheduler{err: reminder.ErrPermissionDenied}
	tr := bootstrapped(t, newFakeEntryStore(), &fakeSettingsStore{}, WithScheduler(sched))

	status := tr.SetDailyReminder(context.Background(), true)
	if status.Scheduled || status.Message != MsgPermissionNeeded || !errors.Is(status.Err, reminder.ErrPermissionDenied) {
		t.Fatalf("unexpected status %+v", status)
	}
	if !tr.Settings().DailyReminderEnabled {
		t.Fatalf("preference is kept even without permission")
	}

	noScheduler := bootstrapped(t, newFakeEntryStore(), &fakeSettingsStore{})
	if s := noScheduler.SetDailyReminder(context.Background(), true); s.Message != MsgPermissionNeeded {
		t.Fatalf("expected permission message without scheduler, got %+v", s)
	}
}

func TestReloadSettingsReportsReminderChanges(t *testing.T) {
	t.Parallel()
	st := &fakeSettingsStore{}
	tr := bootstrapped(t, newFakeEntryStore(), st)
	ctx := context.Background()

	changed, err := tr.ReloadSettings(ctx)
	if err != nil || changed {
		t.Fatalf("expected no change, got %v %v", changed, err)
	}

	other := settings.WithReminderTimes(settings.Defaults(), []string{"06:30"})
	other.DailyReminderEnabled = true
	st.partial = settings.PartialOf(other)
	changed, err = tr.ReloadSettings(ctx)
	if err != nil || !changed {
		t.Fatalf("expected reminder change, got %v %v", changed, err)
	}
	if tr.Settings().ReminderTimes[0] != "06:30" {
		t.Fatalf("expected reloaded times")
	}
}

type countingFetcher struct {
	calls atomic.Int32
	snap  *model.RateSnapshot
	err   error
	gate  chan struct{}
}

func (f *countingFetcher) FetchLatest(_ context.Context, base string) (*model.RateSnapshot, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	return f.snap, f.err
}

func TestRefreshRatesIfStale(t *testing.T) {
	t.Parallel()
	fetcher := &countingFetcher{snap: &model.RateSnapshot{Base: "EUR", Rates: map[string]float64{"USD": 1.25}, LastUpdated: fixedNow}}
	tr := bootstrapped(t, newFakeEntryStore(), &fakeSettingsStore{}, WithRateFetcher(fetcher))
	ctx := context.Background()

	refreshed, err := tr.RefreshRatesIfStale(ctx)
	if err != nil || !refreshed {
		t.Fatalf("expected refresh, got %v %v", refreshed, err)
	}
	if got := tr.Converter().Convert(decimal.NewFromInt(10), "USD"); got.StringFixed(2) != "8.00" {
		t.Fatalf("expected converted cost 8.00, got %s", got)
	}

	refreshed, _ = tr.RefreshRatesIfStale(ctx)
	if refreshed || fetcher.calls.Load() != 1 {
		t.Fatalf("fresh snapshot must not refetch, calls=%d", fetcher.calls.Load())
	}

	if _, err := tr.SetBaseCurrency(ctx, "SEK"); err != nil {
		t.Fatalf("set currency: %v", err)
	}
	fetcher.err = errors.New("offline")
	if _, err := tr.RefreshRatesIfStale(ctx); err == nil {
		t.Fatalf("expected fetch error")
	}
	if snap := tr.Settings().CurrencyRates; snap == nil || snap.Base != "EUR" {
		t.Fatalf("failed fetch must keep the previous snapshot, got %+v", snap)
	}
}

func TestRefreshRatesSharesConcurrentFetch(t *testing.T) {
	t.Parallel()
	fetcher := &countingFetcher{
		snap: &model.RateSnapshot{Base: "EUR", Rates: map[string]float64{"USD": 1.1}, LastUpdated: fixedNow},
		gate: make(chan struct{}),
	}
	tr := bootstrapped(t, newFakeEntryStore(), &fakeSettingsStore{}, WithRateFetcher(fetcher))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tr.RefreshRates(context.Background())
		}()
	}
	for fetcher.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(fetcher.gate)
	wg.Wait()
	if n := fetcher.calls.Load(); n < 1 || n > 4 {
		t.Fatalf("unexpected fetch count %d", n)
	}
}

func TestViews(t *testing.T) {
	t.Parallel()
	store := newFakeEntryStore(
		entryAt("v", fixedNow.Add(-2*time.Hour), model.ProductVape, 20, 2, "5"),
		entryAt("s", fixedNow.Add(-time.Hour), model.ProductSnus, 8, 1, "3"),
		entryAt("old", fixedNow.AddDate(0, 0, -3), model.ProductCigarette, 1, 10, "0.5"),
	)
	limit := 40.0
	limitSettings := settings.Defaults()
	limitSettings.DailyLimitMg = &limit
	tr := bootstrapped(t, store, &fakeSettingsStore{partial: settings.PartialOf(limitSettings)})

	today := tr.Today()
	if today.TotalMg != 48 || today.TotalCost.StringFixed(2) != "13.00" || len(today.Entries) != 2 {
		t.Fatalf("unexpected today %+v", today)
	}
	if !today.HasLimit || !today.LimitExceeded || today.LimitPercent != 120 {
		t.Fatalf("unexpected limit progress %+v", today)
	}

	week := tr.DailyTotals(stats.LastDays(7))
	if len(week) != 7 || week[6].Date != stats.DateKey(fixedNow) {
		t.Fatalf("unexpected week %+v", week)
	}
	sum := tr.Summary(stats.LastDays(7))
	if sum.TotalMg != 58 {
		t.Fatalf("expected 58 mg over the week, got %v", sum.TotalMg)
	}
	if got := tr.EntriesInRange(stats.LastDays(1)); len(got) != 2 {
		t.Fatalf("expected 2 entries today, got %d", len(got))
	}
	if got := tr.EntriesForDay(stats.DateKey(fixedNow.AddDate(0, 0, -3))); len(got) != 1 || got[0].ID != "old" {
		t.Fatalf("unexpected day entries %+v", got)
	}
}
