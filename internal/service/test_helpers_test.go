package service_test

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/saadjs/niclog/internal/db"
	"github.com/saadjs/niclog/internal/model"
	"github.com/saadjs/niclog/internal/stats"
	"github.com/shopspring/decimal"
)

func newTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "niclog.db")
	if err := db.ApplyMigrations(path); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	sqldb, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = sqldb.Close() })
	return sqldb, path
}

func newEntry(ts time.Time, product model.ProductType, nicotine, amount float64, price string) model.Entry {
	return stats.BuildEntry(stats.EntryInput{
		ProductType:       product,
		NicotinePerUnitMg: nicotine,
		Amount:            amount,
		PricePerUnit:      decimal.RequireFromString(price),
		Currency:          "EUR",
		Timestamp:         ts,
	}, ts)
}
