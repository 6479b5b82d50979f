// Package currency converts entry costs into the reporting currency using
// a cached rate snapshot.
package currency

import (
	"strings"
	"time"

	"github.com/saadjs/niclog/internal/model"
	"github.com/shopspring/decimal"
)

// TTL is how long a rate snapshot is trusted before a refresh is attempted.
const TTL = 24 * time.Hour

var Supported = []string{"EUR", "USD", "GBP", "SEK", "NOK", "DKK", "CHF", "PLN", "CZK", "CAD", "AUD"}

func IsSupported(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range Supported {
		if c == code {
			return true
		}
	}
	return false
}

func IsStale(snap *model.RateSnapshot, base string, now time.Time) bool {
	if snap == nil {
		return true
	}
	if !strings.EqualFold(snap.Base, base) {
		return true
	}
	if snap.LastUpdated.IsZero() {
		return true
	}
	return now.Sub(snap.LastUpdated) > TTL
}

// Convert expresses amount (in from) in to. Missing information always
// degrades to returning amount unchanged.
func Convert(amount decimal.Decimal, from, to string, snap *model.RateSnapshot) decimal.Decimal {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == "" || from == to {
		return amount
	}
	if snap == nil || len(snap.Rates) == 0 {
		return amount
	}
	base := strings.ToUpper(snap.Base)

	if base == to {
		rate, ok := rateOf(snap, base, from)
		if !ok {
			return amount
		}
		return amount.Div(rate)
	}

	fromRate, okFrom := rateOf(snap, base, from)
	toRate, okTo := rateOf(snap, base, to)
	if !okFrom || !okTo {
		return amount
	}
	return amount.Div(fromRate).Mul(toRate)
}

func rateOf(snap *model.RateSnapshot, base, code string) (decimal.Decimal, bool) {
	if code == base {
		return decimal.NewFromInt(1), true
	}
	v, ok := snap.Rates[code]
	if !ok || v <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(v), true
}

// Target reports costs in Base using Rates.
type Target struct {
	Base  string
	Rates *model.RateSnapshot
}

func (t Target) Convert(amount decimal.Decimal, from string) decimal.Decimal {
	return Convert(amount, from, t.Base, t.Rates)
}
