package tracker

import (
	"context"

	"github.com/saadjs/niclog/internal/currency"
	"github.com/saadjs/niclog/internal/model"
)

// RefreshRatesIfStale fetches a new snapshot when the cached one is missing,
// for another base, or older than currency.TTL. Concurrent callers share
// one fetch. A failed fetch keeps the previous snapshot.
func (t *Tracker) RefreshRatesIfStale(ctx context.Context) (bool, error) {
	s := t.Settings()
	if !currency.IsStale(s.CurrencyRates, s.BaseCurrency, t.now()) {
		return false, nil
	}
	return t.RefreshRates(ctx)
}

// RefreshRates fetches a snapshot for the base currency regardless of age.
func (t *Tracker) RefreshRates(ctx context.Context) (bool, error) {
	if t.rates == nil {
		return false, nil
	}
	base := t.Settings().BaseCurrency
	v, err, _ := t.refresh.Do(base, func() (any, error) {
		return t.rates.FetchLatest(ctx, base)
	})
	if err != nil {
		t.logger.WarnContext(ctx, "failed to refresh currency rates", "base", base, "error", err)
		return false, err
	}
	snap, _ := v.(*model.RateSnapshot)
	if snap == nil || len(snap.Rates) == 0 {
		return false, nil
	}
	t.SetCurrencyRates(ctx, snap)
	t.logger.DebugContext(ctx, "currency rates refreshed", "base", base, "rates", len(snap.Rates))
	return true, nil
}
