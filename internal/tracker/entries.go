package tracker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/saadjs/niclog/internal/events"
	"github.com/saadjs/niclog/internal/model"
	"github.com/saadjs/niclog/internal/service"
	"github.com/saadjs/niclog/internal/stats"
)

// EntryPatch holds the fields to change on an existing entry. Nil fields
// keep their current value. Totals are always recomputed. Date and Clock
// move the entry within local time relative to its current timestamp and
// are applied after Timestamp.
type EntryPatch struct {
	Timestamp         *time.Time
	Date              *string
	Clock             *string
	ProductType       *model.ProductType
	NicotinePerUnitMg *float64
	Amount            *float64
	PricePerUnit      *decimal.Decimal
	Currency          *string
}

func (p EntryPatch) apply(e model.Entry) (model.Entry, error) {
	if p.Timestamp != nil {
		e.Timestamp = *p.Timestamp
	}
	if p.Date != nil || p.Clock != nil {
		var date, clock string
		if p.Date != nil {
			date = *p.Date
		}
		if p.Clock != nil {
			clock = *p.Clock
		}
		ts, err := stats.MoveTo(e.Timestamp, date, clock)
		if err != nil {
			return e, fmt.Errorf("move entry: %w", err)
		}
		e.Timestamp = ts
	}
	if p.ProductType != nil {
		e.ProductType = *p.ProductType
	}
	if p.NicotinePerUnitMg != nil {
		e.NicotinePerUnitMg = *p.NicotinePerUnitMg
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.PricePerUnit != nil {
		e.PricePerUnit = *p.PricePerUnit
	}
	if p.Currency != nil {
		e.Currency = *p.Currency
	}
	return e, nil
}

// AddEntry validates in, persists the new entry and then appends it to
// memory. An empty currency defaults to the base currency.
func (t *Tracker) AddEntry(ctx context.Context, in stats.EntryInput) (model.Entry, error) {
	if err := stats.ValidateEntryInput(in); err != nil {
		return model.Entry{}, err
	}
	if in.Currency == "" {
		in.Currency = t.Settings().BaseCurrency
	}
	entry := stats.BuildEntry(in, t.now())

	if err := t.entryStore.Insert(ctx, entry); err != nil {
		t.logger.ErrorContext(ctx, "failed to add entry", "error", err)
		return model.Entry{}, fmt.Errorf("add entry: %w", err)
	}

	t.mu.Lock()
	t.entries = append(t.entries, entry)
	sortEntries(t.entries)
	t.mu.Unlock()

	t.logger.DebugContext(ctx, "entry added", "id", entry.ID, "total_mg", entry.TotalMg)
	t.emit(ctx, events.EntryAdded, entry.ID, &entry)
	return entry, nil
}

func (t *Tracker) UpdateEntry(ctx context.Context, id string, patch EntryPatch) (model.Entry, error) {
	current, ok := t.Entry(id)
	if !ok {
		return model.Entry{}, fmt.Errorf("update entry %s: %w", id, service.ErrEntryNotFound)
	}
	updated, err := patch.apply(current)
	if err != nil {
		return model.Entry{}, err
	}
	updated.Currency = normalizeCode(updated.Currency)
	if err := stats.ValidateEntryEdit(stats.EntryInputOf(updated)); err != nil {
		return model.Entry{}, err
	}
	updated = stats.RecalcEntryTotals(updated)

	if err := t.entryStore.Update(ctx, updated); err != nil {
		t.logger.ErrorContext(ctx, "failed to update entry", "id", id, "error", err)
		return model.Entry{}, fmt.Errorf("update entry: %w", err)
	}

	t.mu.Lock()
	for i := range t.entries {
		if t.entries[i].ID == id {
			t.entries[i] = updated
			break
		}
	}
	sortEntries(t.entries)
	t.mu.Unlock()

	t.emit(ctx, events.EntryUpdated, updated.ID, &updated)
	return updated, nil
}

func (t *Tracker) DeleteEntry(ctx context.Context, id string) error {
	if err := t.entryStore.DeleteByID(ctx, id); err != nil {
		t.logger.ErrorContext(ctx, "failed to delete entry", "id", id, "error", err)
		return fmt.Errorf("delete entry: %w", err)
	}

	t.mu.Lock()
	for i := range t.entries {
		if t.entries[i].ID == id {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			break
		}
	}
	t.mu.Unlock()

	t.emit(ctx, events.EntryDeleted, id, nil)
	return nil
}

func (t *Tracker) ClearEntries(ctx context.Context) error {
	if err := t.entryStore.ClearAll(ctx); err != nil {
		t.logger.ErrorContext(ctx, "failed to clear entries", "error", err)
		return fmt.Errorf("clear entries: %w", err)
	}

	t.mu.Lock()
	t.entries = nil
	t.mu.Unlock()

	t.emit(ctx, events.EntriesCleared, "", nil)
	return nil
}

func sortEntries(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}
