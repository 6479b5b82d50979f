package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ProductType string

const (
	ProductSnus      ProductType = "snus"
	ProductPouch     ProductType = "pouch"
	ProductVape      ProductType = "vape"
	ProductCigarette ProductType = "cigarette"
	ProductOther     ProductType = "other"
)

var ProductTypes = []ProductType{ProductSnus, ProductPouch, ProductVape, ProductCigarette, ProductOther}

func (p ProductType) Valid() bool {
	for _, known := range ProductTypes {
		if p == known {
			return true
		}
	}
	return false
}

func ParseProductType(value string) (ProductType, bool) {
	p := ProductType(strings.TrimSpace(strings.ToLower(value)))
	return p, p.Valid()
}

type Entry struct {
	ID                string          `json:"id"`
	Timestamp         time.Time       `json:"timestamp"`
	ProductType       ProductType     `json:"productType"`
	NicotinePerUnitMg float64         `json:"nicotinePerUnitMg"`
	Amount            float64         `json:"amount"`
	TotalMg           float64         `json:"totalMg"`
	PricePerUnit      decimal.Decimal `json:"pricePerUnit"`
	TotalCost         decimal.Decimal `json:"totalCost"`
	Currency          string          `json:"currency,omitempty"`
}

type RateSnapshot struct {
	Base        string             `json:"base"`
	Rates       map[string]float64 `json:"rates"`
	LastUpdated time.Time          `json:"lastUpdated"`
}

func (s *RateSnapshot) Clone() *RateSnapshot {
	if s == nil {
		return nil
	}
	out := &RateSnapshot{Base: s.Base, LastUpdated: s.LastUpdated, Rates: make(map[string]float64, len(s.Rates))}
	for k, v := range s.Rates {
		out.Rates[k] = v
	}
	return out
}

type Settings struct {
	Version              int           `json:"version"`
	DailyLimitMg         *float64      `json:"dailyLimitMg"`
	BaseCurrency         string        `json:"baseCurrency"`
	DailyReminderEnabled bool          `json:"dailyReminderEnabled"`
	ReminderHour         int           `json:"reminderHour"`
	ReminderHours        []int         `json:"reminderHours"`
	ReminderTimes        []string      `json:"reminderTimes"`
	CurrencyRates        *RateSnapshot `json:"currencyRates,omitempty"`
}

// Clone returns a deep copy so callers never share slices with the owner.
func (s Settings) Clone() Settings {
	out := s
	if s.DailyLimitMg != nil {
		v := *s.DailyLimitMg
		out.DailyLimitMg = &v
	}
	out.ReminderHours = append([]int(nil), s.ReminderHours...)
	out.ReminderTimes = append([]string(nil), s.ReminderTimes...)
	out.CurrencyRates = s.CurrencyRates.Clone()
	return out
}
