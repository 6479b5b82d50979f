package tracker

import (
	"github.com/shopspring/decimal"

	"github.com/saadjs/niclog/internal/currency"
	"github.com/saadjs/niclog/internal/model"
	"github.com/saadjs/niclog/internal/stats"
)

// Today summarises the current local day against the limit.
type Today struct {
	Date          string
	TotalMg       float64
	TotalCost     decimal.Decimal
	Currency      string
	LimitMg       *float64
	LimitPercent  float64
	HasLimit      bool
	LimitExceeded bool
	Entries       []model.Entry
}

func (t *Tracker) Entries() []model.Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]model.Entry(nil), t.entries...)
}

func (t *Tracker) Settings() model.Settings {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.settings.Clone()
}

func (t *Tracker) Entry(id string) (model.Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, e := range t.entries {
		if e.ID == id {
			return e, true
		}
	}
	return model.Entry{}, false
}

// Converter reports costs in the base currency using the cached snapshot.
func (t *Tracker) Converter() currency.Target {
	s := t.Settings()
	return currency.Target{Base: s.BaseCurrency, Rates: s.CurrencyRates}
}

func (t *Tracker) Today() Today {
	now := t.now()
	s := t.Settings()
	entries := t.Entries()
	total := stats.TotalsForDay(entries, now, t.Converter())
	pct, ok := stats.LimitProgress(total.TotalMg, s.DailyLimitMg)
	return Today{
		Date:          total.Date,
		TotalMg:       total.TotalMg,
		TotalCost:     total.TotalCost,
		Currency:      s.BaseCurrency,
		LimitMg:       s.DailyLimitMg,
		LimitPercent:  pct,
		HasLimit:      ok,
		LimitExceeded: stats.LimitExceeded(total.TotalMg, s.DailyLimitMg),
		Entries:       stats.EntriesForDay(entries, total.Date),
	}
}

func (t *Tracker) DailyTotals(r stats.Range) []stats.DailyTotal {
	return stats.BuildDailyTotals(t.Entries(), r, t.now(), t.Converter())
}

func (t *Tracker) Summary(r stats.Range) stats.RangeSummary {
	return stats.SummarizeDailyTotals(t.DailyTotals(r))
}

func (t *Tracker) EntriesInRange(r stats.Range) []model.Entry {
	return stats.FilterEntriesByRange(t.Entries(), r, t.now())
}

func (t *Tracker) EntriesForDay(key string) []model.Entry {
	return stats.EntriesForDay(t.Entries(), key)
}
