// Package settings owns the persisted settings schema: defaults, loading of
// older records and keeping the legacy reminder fields in step with the
// reminder time list.
package settings

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/saadjs/niclog/internal/model"
)

const (
	CurrentVersion      = 2
	DefaultCurrency     = "EUR"
	DefaultReminderHour = 20
	DefaultReminderTime = "20:00"
	MaxReminderTimes    = 5
)

func Defaults() model.Settings {
	return model.Settings{
		Version:       CurrentVersion,
		BaseCurrency:  DefaultCurrency,
		ReminderHour:  DefaultReminderHour,
		ReminderHours: []int{DefaultReminderHour},
		ReminderTimes: []string{DefaultReminderTime},
	}
}

// Partial is a stored settings record in which any field may be missing.
type Partial struct {
	Version              *int                `json:"version,omitempty"`
	DailyLimitMg         *float64            `json:"dailyLimitMg,omitempty"`
	BaseCurrency         *string             `json:"baseCurrency,omitempty"`
	DailyReminderEnabled *bool               `json:"dailyReminderEnabled,omitempty"`
	ReminderHour         *int                `json:"reminderHour,omitempty"`
	ReminderHours        []int               `json:"reminderHours,omitempty"`
	ReminderTimes        []string            `json:"reminderTimes,omitempty"`
	CurrencyRates        *model.RateSnapshot `json:"currencyRates,omitempty"`
}

func ParsePartial(raw []byte) (*Partial, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	var p Partial
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &p, nil
}

func PartialOf(s model.Settings) *Partial {
	s = s.Clone()
	return &Partial{
		Version:              &s.Version,
		DailyLimitMg:         s.DailyLimitMg,
		BaseCurrency:         &s.BaseCurrency,
		DailyReminderEnabled: &s.DailyReminderEnabled,
		ReminderHour:         &s.ReminderHour,
		ReminderHours:        s.ReminderHours,
		ReminderTimes:        s.ReminderTimes,
		CurrencyRates:        s.CurrencyRates,
	}
}

// Merge overlays a stored record on the defaults. Missing reminder lists
// are derived from the older single-hour fields before normalising.
func Merge(p *Partial) model.Settings {
	out := Defaults()
	if p == nil {
		return out
	}
	if p.DailyLimitMg != nil && *p.DailyLimitMg > 0 {
		v := *p.DailyLimitMg
		out.DailyLimitMg = &v
	}
	if p.BaseCurrency != nil && strings.TrimSpace(*p.BaseCurrency) != "" {
		out.BaseCurrency = NormalizeCurrency(*p.BaseCurrency)
	}
	if p.DailyReminderEnabled != nil {
		out.DailyReminderEnabled = *p.DailyReminderEnabled
	}
	if p.CurrencyRates != nil {
		out.CurrencyRates = p.CurrencyRates.Clone()
	}

	switch {
	case p.ReminderTimes != nil:
		out.ReminderTimes = append([]string(nil), p.ReminderTimes...)
	case p.ReminderHours != nil:
		out.ReminderTimes = hoursToTimes(p.ReminderHours)
	case p.ReminderHour != nil:
		out.ReminderTimes = hoursToTimes([]int{*p.ReminderHour})
	}
	return Normalize(out)
}

// Normalize sanitises the reminder times and regenerates the legacy hour
// fields from them.
func Normalize(s model.Settings) model.Settings {
	s.Version = CurrentVersion
	if strings.TrimSpace(s.BaseCurrency) == "" {
		s.BaseCurrency = DefaultCurrency
	}
	s.BaseCurrency = NormalizeCurrency(s.BaseCurrency)
	if s.DailyLimitMg != nil && *s.DailyLimitMg <= 0 {
		s.DailyLimitMg = nil
	}
	times := SanitizeReminderTimes(s.ReminderTimes, []string{DefaultReminderTime})
	if len(times) > MaxReminderTimes {
		times = times[:MaxReminderTimes]
	}
	s.ReminderTimes = times
	s.ReminderHours = make([]int, len(times))
	for i, t := range times {
		s.ReminderHours[i], _ = splitTime(t)
	}
	s.ReminderHour = s.ReminderHours[0]
	return s
}

func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func hoursToTimes(hours []int) []string {
	out := make([]string, 0, len(hours))
	for _, h := range hours {
		out = append(out, fmt.Sprintf("%02d:00", h))
	}
	return out
}
