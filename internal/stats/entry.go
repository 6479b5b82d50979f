// Package stats turns raw nicotine entries into daily totals and range
// summaries. Every function takes the current instant explicitly.
package stats

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/saadjs/niclog/internal/model"
	"github.com/shopspring/decimal"
)

type EntryInput struct {
	ProductType       model.ProductType
	NicotinePerUnitMg float64
	Amount            float64
	PricePerUnit      decimal.Decimal
	Currency          string
	Timestamp         time.Time
}

func BuildEntry(in EntryInput, now time.Time) model.Entry {
	ts := in.Timestamp
	if ts.IsZero() {
		ts = now
	}
	return RecalcEntryTotals(model.Entry{
		ID:                NewID(now),
		Timestamp:         ts,
		ProductType:       in.ProductType,
		NicotinePerUnitMg: in.NicotinePerUnitMg,
		Amount:            in.Amount,
		PricePerUnit:      in.PricePerUnit,
		Currency:          strings.ToUpper(strings.TrimSpace(in.Currency)),
	})
}

func RecalcEntryTotals(e model.Entry) model.Entry {
	e.TotalMg = e.NicotinePerUnitMg * e.Amount
	e.TotalCost = e.PricePerUnit.Mul(decimal.NewFromFloat(e.Amount))
	return e
}

// NewID returns a random UUID, or a time-prefixed random id when the
// system random source is unavailable.
func NewID(now time.Time) string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	return fallbackID(now)
}

func fallbackID(now time.Time) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	var b strings.Builder
	b.WriteString("nic-")
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 36))
	b.WriteByte('-')
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			b.WriteByte(alphabet[(now.Nanosecond()+i*7)%len(alphabet)])
			continue
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String()
}
