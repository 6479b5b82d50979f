package currency_test

import (
	"testing"
	"time"

	"github.com/saadjs/niclog/internal/currency"
	"github.com/saadjs/niclog/internal/model"
	"github.com/shopspring/decimal"
)

func TestConvert(t *testing.T) {
	t.Parallel()

	eurBase := &model.RateSnapshot{Base: "EUR", Rates: map[string]float64{"USD": 2, "SEK": 10}}
	usdBase := &model.RateSnapshot{Base: "USD", Rates: map[string]float64{"EUR": 0.5, "SEK": 5}}

	cases := []struct {
		name   string
		amount string
		from   string
		to     string
		snap   *model.RateSnapshot
		want   string
	}{
		{"same currency", "10", "EUR", "EUR", eurBase, "10"},
		{"no snapshot", "10", "USD", "EUR", nil, "10"},
		{"no source currency", "10", "", "EUR", eurBase, "10"},
		{"snapshot base is target", "10", "USD", "EUR", eurBase, "5"},
		{"missing rate", "10", "GBP", "EUR", eurBase, "10"},
		{"cross rate", "10", "SEK", "EUR", usdBase, "1"},
		{"cross from snapshot base", "10", "USD", "SEK", usdBase, "50"},
	}
	for _, tc := range cases {
		got := currency.Convert(decimal.RequireFromString(tc.amount), tc.from, tc.to, tc.snap)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestTargetImplementsConverter(t *testing.T) {
	t.Parallel()

	target := currency.Target{Base: "EUR", Rates: &model.RateSnapshot{Base: "EUR", Rates: map[string]float64{"USD": 4}}}
	if got := target.Convert(decimal.NewFromInt(8), "USD"); !got.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected 2, got %s", got)
	}
}

func TestIsStale(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fresh := &model.RateSnapshot{Base: "EUR", Rates: map[string]float64{"USD": 1.1}, LastUpdated: now.Add(-time.Hour)}

	if currency.IsStale(fresh, "EUR", now) {
		t.Fatalf("expected fresh snapshot")
	}
	if !currency.IsStale(nil, "EUR", now) {
		t.Fatalf("nil snapshot must be stale")
	}
	if !currency.IsStale(fresh, "USD", now) {
		t.Fatalf("base mismatch must be stale")
	}
	old := *fresh
	old.LastUpdated = now.Add(-25 * time.Hour)
	if !currency.IsStale(&old, "EUR", now) {
		t.Fatalf("snapshot older than TTL must be stale")
	}
	undated := *fresh
	undated.LastUpdated = time.Time{}
	if !currency.IsStale(&undated, "EUR", now) {
		t.Fatalf("undated snapshot must be stale")
	}
}
