package stats

import (
	"sort"
	"time"

	"github.com/saadjs/niclog/internal/model"
	"github.com/shopspring/decimal"
)

// CostConverter maps an entry cost recorded in one currency into the
// currency totals are reported in.
type CostConverter interface {
	Convert(amount decimal.Decimal, from string) decimal.Decimal
}

type DailyTotal struct {
	Date      string          `json:"date"`
	TotalMg   float64         `json:"total_mg"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

type RangeSummary struct {
	TotalMg   float64         `json:"total_mg"`
	AvgMg     float64         `json:"avg_mg"`
	TotalCost decimal.Decimal `json:"total_cost"`
	AvgCost   decimal.Decimal `json:"avg_cost"`
}

func entryCost(e model.Entry, conv CostConverter) decimal.Decimal {
	if conv == nil {
		return e.TotalCost
	}
	return conv.Convert(e.TotalCost, e.Currency)
}

func BuildDailyTotals(entries []model.Entry, r Range, now time.Time, conv CostConverter) []DailyTotal {
	filtered := FilterEntriesByRange(entries, r, now)
	byDay := make(map[string]*DailyTotal)
	for _, e := range filtered {
		key := DateKey(e.Timestamp)
		day, ok := byDay[key]
		if !ok {
			day = &DailyTotal{Date: key, TotalCost: decimal.Zero}
			byDay[key] = day
		}
		day.TotalMg += e.TotalMg
		day.TotalCost = day.TotalCost.Add(entryCost(e, conv))
	}

	if r.IsAll() {
		out := make([]DailyTotal, 0, len(byDay))
		for _, day := range byDay {
			out = append(out, *day)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
		return out
	}

	start, _, ok := r.Bounds(now)
	if !ok {
		return []DailyTotal{}
	}
	out := make([]DailyTotal, 0, r.Days())
	for i := 0; i < r.Days(); i++ {
		key := DateKey(start.AddDate(0, 0, i))
		if day, ok := byDay[key]; ok {
			out = append(out, *day)
			continue
		}
		out = append(out, DailyTotal{Date: key, TotalCost: decimal.Zero})
	}
	return out
}

func SummarizeDailyTotals(days []DailyTotal) RangeSummary {
	summary := RangeSummary{TotalCost: decimal.Zero, AvgCost: decimal.Zero}
	if len(days) == 0 {
		return summary
	}
	for _, d := range days {
		summary.TotalMg += d.TotalMg
		summary.TotalCost = summary.TotalCost.Add(d.TotalCost)
	}
	n := len(days)
	summary.AvgMg = summary.TotalMg / float64(n)
	summary.AvgCost = summary.TotalCost.Div(decimal.NewFromInt(int64(n)))
	return summary
}

func TotalsForDay(entries []model.Entry, day time.Time, conv CostConverter) DailyTotal {
	key := DateKey(day)
	out := DailyTotal{Date: key, TotalCost: decimal.Zero}
	for _, e := range entries {
		if DateKey(e.Timestamp) != key {
			continue
		}
		out.TotalMg += e.TotalMg
		out.TotalCost = out.TotalCost.Add(entryCost(e, conv))
	}
	return out
}

const maxLimitPercent = 200

// LimitProgress reports consumption as a percentage of the daily limit,
// capped at 200. ok is false when no positive limit is configured.
func LimitProgress(totalMg float64, limit *float64) (percent float64, ok bool) {
	if limit == nil || *limit <= 0 {
		return 0, false
	}
	percent = totalMg / *limit * 100
	if percent > maxLimitPercent {
		percent = maxLimitPercent
	}
	return percent, true
}

func LimitExceeded(totalMg float64, limit *float64) bool {
	return limit != nil && *limit > 0 && totalMg > *limit
}
