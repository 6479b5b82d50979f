package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/saadjs/niclog/internal/model"
	"github.com/shopspring/decimal"
)

var ErrEntryNotFound = errors.New("entry not found")

const timestampLayout = time.RFC3339Nano

// EntryStore persists nicotine entries in SQLite.
type EntryStore struct {
	db   *sql.DB
	path string
}

func NewEntryStore(db *sql.DB, path string) *EntryStore {
	return &EntryStore{db: db, path: path}
}

// Initialize verifies the schema is reachable. Migrations run before the
// store is handed out, so this only checks the table.
func (s *EntryStore) Initialize(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = 'nicotine_entries'`).Scan(&n); err != nil {
		return fmt.Errorf("check entries table: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("entries table missing in %s; run `niclog init`", s.path)
	}
	return nil
}

func (s *EntryStore) LoadAll(ctx context.Context) ([]model.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, timestamp, product_type, nicotine_per_unit_mg, amount, total_mg, price_per_unit, total_cost, currency
FROM nicotine_entries
ORDER BY timestamp ASC`)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	defer rows.Close()

	entries := make([]model.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	// Stored text order breaks down across UTC offsets; sort by instant.
	sortEntries(entries)
	return entries, nil
}

func (s *EntryStore) ByID(ctx context.Context, id string) (model.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, timestamp, product_type, nicotine_per_unit_mg, amount, total_mg, price_per_unit, total_cost, currency
FROM nicotine_entries
WHERE id = ?`, strings.TrimSpace(id))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Entry{}, fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return e, err
}

func (s *EntryStore) Insert(ctx context.Context, e model.Entry) error {
	return insertEntry(ctx, s.db, e)
}

func (s *EntryStore) Update(ctx context.Context, e model.Entry) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE nicotine_entries
SET timestamp = ?, product_type = ?, nicotine_per_unit_mg = ?, amount = ?, total_mg = ?, price_per_unit = ?, total_cost = ?, currency = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, e.Timestamp.Format(timestampLayout), string(e.ProductType), e.NicotinePerUnitMg, e.Amount, e.TotalMg, e.PricePerUnit.String(), e.TotalCost.String(), e.Currency, e.ID)
	if err != nil {
		return fmt.Errorf("update entry %s: %w", e.ID, err)
	}
	return expectAffected(res, e.ID)
}

func (s *EntryStore) DeleteByID(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM nicotine_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	return expectAffected(res, id)
}

func (s *EntryStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM nicotine_entries`); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEntry(ctx context.Context, db execer, e model.Entry) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO nicotine_entries(id, timestamp, product_type, nicotine_per_unit_mg, amount, total_mg, price_per_unit, total_cost, currency)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
`, e.ID, e.Timestamp.Format(timestampLayout), string(e.ProductType), e.NicotinePerUnitMg, e.Amount, e.TotalMg, e.PricePerUnit.String(), e.TotalCost.String(), e.Currency)
	if err != nil {
		return fmt.Errorf("insert entry %s: %w", e.ID, err)
	}
	return nil
}

func expectAffected(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected for entry %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (model.Entry, error) {
	var e model.Entry
	var tsRaw, product, priceRaw, costRaw string
	if err := row.Scan(&e.ID, &tsRaw, &product, &e.NicotinePerUnitMg, &e.Amount, &e.TotalMg, &priceRaw, &costRaw, &e.Currency); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scan entry: %w", err)
	}
	ts, err := time.Parse(timestampLayout, tsRaw)
	if err != nil {
		return e, fmt.Errorf("parse timestamp for entry %s: %w", e.ID, err)
	}
	e.Timestamp = ts
	e.ProductType = model.ProductType(product)
	if e.PricePerUnit, err = decimal.NewFromString(priceRaw); err != nil {
		return e, fmt.Errorf("parse price for entry %s: %w", e.ID, err)
	}
	if e.TotalCost, err = decimal.NewFromString(costRaw); err != nil {
		return e, fmt.Errorf("parse total cost for entry %s: %w", e.ID, err)
	}
	return e, nil
}
