package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/saadjs/niclog/internal/model"
	"github.com/saadjs/niclog/internal/settings"
	"github.com/saadjs/niclog/internal/stats"
)

const exportVersion = 1

// ExportData mirrors the field names the mobile app uses for entries and
// settings so exports can move between the two.
type ExportData struct {
	Version    int             `json:"version"`
	ExportedAt time.Time       `json:"exported_at"`
	Settings   json.RawMessage `json:"settings,omitempty"`
	Entries    []model.Entry   `json:"entries"`
}

type ImportMode string

const (
	ImportModeFail    ImportMode = "fail"
	ImportModeSkip    ImportMode = "skip"
	ImportModeMerge   ImportMode = "merge"
	ImportModeReplace ImportMode = "replace"
)

type ImportOptions struct {
	Mode   ImportMode
	DryRun bool
	Now    time.Time
}

type ImportReport struct {
	Inserted        int      `json:"inserted"`
	Updated         int      `json:"updated"`
	Skipped         int      `json:"skipped"`
	Conflicts       int      `json:"conflicts"`
	SettingsApplied bool     `json:"settings_applied"`
	Warnings        []string `json:"warnings,omitempty"`
}

func ExportDataSnapshot(db *sql.DB, now time.Time) (*ExportData, error) {
	ctx := context.Background()
	entries, err := NewEntryStore(db, "").LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("export entries: %w", err)
	}
	partial, err := NewSettingsStore(db).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("export settings: %w", err)
	}
	raw, err := json.Marshal(settings.Merge(partial))
	if err != nil {
		return nil, fmt.Errorf("encode export settings: %w", err)
	}
	return &ExportData{
		Version:    exportVersion,
		ExportedAt: now.UTC(),
		Settings:   raw,
		Entries:    entries,
	}, nil
}

func normalizeImportMode(mode ImportMode) ImportMode {
	switch ImportMode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case ImportModeSkip:
		return ImportModeSkip
	case ImportModeMerge:
		return ImportModeMerge
	case ImportModeReplace:
		return ImportModeReplace
	default:
		return ImportModeFail
	}
}

// ImportDataSnapshotWithOptions loads entries and settings in one
// transaction. Totals are always recomputed from the imported factors.
func ImportDataSnapshotWithOptions(db *sql.DB, data *ExportData, opts ImportOptions) (ImportReport, error) {
	report := ImportReport{}
	if data == nil {
		return report, fmt.Errorf("import payload is required")
	}
	mode := normalizeImportMode(opts.Mode)
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	ctx := context.Background()

	tx, err := db.Begin()
	if err != nil {
		return report, fmt.Errorf("begin import tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if mode == ImportModeReplace && !opts.DryRun {
		if _, err := tx.Exec(`DELETE FROM nicotine_entries`); err != nil {
			return report, fmt.Errorf("clear entries for replace: %w", err)
		}
	}

	for i, in := range data.Entries {
		if strings.TrimSpace(in.ID) == "" {
			in.ID = stats.NewID(now)
		}
		if in.Timestamp.IsZero() {
			report.Skipped++
			report.Warnings = append(report.Warnings, fmt.Sprintf("entry %d: missing timestamp", i))
			continue
		}
		if err := stats.ValidateEntryInput(stats.EntryInputOf(in)); err != nil {
			report.Skipped++
			report.Warnings = append(report.Warnings, fmt.Sprintf("entry %s: %v", in.ID, err))
			continue
		}
		e := stats.RecalcEntryTotals(in)
		e.Currency = settings.NormalizeCurrency(e.Currency)

		exists := false
		if mode != ImportModeReplace {
			var one int
			err := tx.QueryRow(`SELECT 1 FROM nicotine_entries WHERE id = ?`, e.ID).Scan(&one)
			switch {
			case err == nil:
				exists = true
			case !errors.Is(err, sql.ErrNoRows):
				return report, fmt.Errorf("check entry %s: %w", e.ID, err)
			}
		}

		if exists {
			switch mode {
			case ImportModeFail:
				report.Conflicts++
				return report, fmt.Errorf("import conflict for entry %s", e.ID)
			case ImportModeSkip:
				report.Skipped++
				continue
			case ImportModeMerge:
				if opts.DryRun {
					report.Updated++
					continue
				}
				if _, err := tx.Exec(`
UPDATE nicotine_entries
SET timestamp = ?, product_type = ?, nicotine_per_unit_mg = ?, amount = ?, total_mg = ?, price_per_unit = ?, total_cost = ?, currency = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, e.Timestamp.Format(timestampLayout), string(e.ProductType), e.NicotinePerUnitMg, e.Amount, e.TotalMg, e.PricePerUnit.String(), e.TotalCost.String(), e.Currency, e.ID); err != nil {
					return report, fmt.Errorf("update entry %s: %w", e.ID, err)
				}
				report.Updated++
				continue
			}
		}

		if opts.DryRun {
			report.Inserted++
			continue
		}
		if err := insertEntry(ctx, tx, e); err != nil {
			return report, err
		}
		report.Inserted++
	}

	if len(data.Settings) > 0 && string(data.Settings) != "null" {
		partial, err := settings.ParsePartial(data.Settings)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("settings ignored: %v", err))
		} else if !opts.DryRun {
			raw, err := json.Marshal(settings.Merge(partial))
			if err != nil {
				return report, fmt.Errorf("encode imported settings: %w", err)
			}
			if _, err := tx.Exec(`
INSERT INTO app_config(key, value, updated_at)
VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, ConfigSettings, string(raw)); err != nil {
				return report, fmt.Errorf("import settings: %w", err)
			}
			report.SettingsApplied = true
		} else {
			report.SettingsApplied = true
		}
	}

	if opts.DryRun {
		return report, nil
	}
	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("commit import: %w", err)
	}
	return report, nil
}

var csvHeader = []string{"id", "timestamp", "date", "product_type", "nicotine_per_unit_mg", "amount", "total_mg", "price_per_unit", "total_cost", "currency"}

// WriteEntriesCSV writes one row per entry. Timestamps keep their stored
// offset; date is the local day the entry counts towards.
func WriteEntriesCSV(w io.Writer, entries []model.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.ID,
			e.Timestamp.Format(time.RFC3339),
			stats.DateKey(e.Timestamp),
			string(e.ProductType),
			strconv.FormatFloat(e.NicotinePerUnitMg, 'f', -1, 64),
			strconv.FormatFloat(e.Amount, 'f', -1, 64),
			strconv.FormatFloat(e.TotalMg, 'f', -1, 64),
			e.PricePerUnit.StringFixed(2),
			e.TotalCost.StringFixed(2),
			e.Currency,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
