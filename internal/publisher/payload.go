package publisher

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyState is the retained snapshot published on prefix/state.
type DailyState struct {
	Date         string          `json:"date"`
	TotalMg      float64         `json:"total_mg"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	Currency     string          `json:"currency"`
	LimitMg      *float64        `json:"limit_mg,omitempty"`
	LimitPercent *float64        `json:"limit_percent,omitempty"`
	Exceeded     bool            `json:"limit_exceeded"`
	Week         WeekSummary     `json:"last_7_days"`
	PublishedAt  time.Time       `json:"published_at"`
}

type WeekSummary struct {
	TotalMg   float64         `json:"total_mg"`
	AvgMg     float64         `json:"avg_mg"`
	TotalCost decimal.Decimal `json:"total_cost"`
	AvgCost   decimal.Decimal `json:"avg_cost"`
}

const StateTopic = "state"
