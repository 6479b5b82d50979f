package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/saadjs/niclog/internal/model"
	"github.com/saadjs/niclog/internal/settings"
	"github.com/saadjs/niclog/internal/stats"
)

type BackupInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
}

type DoctorReport struct {
	Entries           int  `json:"entries"`
	StaleTotals       int  `json:"stale_totals"`
	UnknownProducts   int  `json:"unknown_products"`
	InvalidFactors    int  `json:"invalid_factors"`
	InvalidSettings   bool `json:"invalid_settings"`
	FixedTotals       int  `json:"fixed_totals,omitempty"`
	FixedProducts     int  `json:"fixed_products,omitempty"`
	SettingsRewritten bool `json:"settings_rewritten,omitempty"`
}

func (r DoctorReport) Healthy() bool {
	return r.StaleTotals == 0 && r.UnknownProducts == 0 && r.InvalidFactors == 0 && !r.InvalidSettings
}

// CreateBackup writes a consistent snapshot with VACUUM INTO, which also
// captures pages still sitting in the WAL.
func CreateBackup(db *sql.DB, outPath string) (BackupInfo, error) {
	if strings.TrimSpace(outPath) == "" {
		return BackupInfo{}, fmt.Errorf("backup output path is required")
	}
	if _, err := os.Stat(outPath); err == nil {
		return BackupInfo{}, fmt.Errorf("backup %s already exists", outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return BackupInfo{}, fmt.Errorf("create backup directory: %w", err)
	}
	if _, err := db.Exec(`VACUUM INTO ?`, outPath); err != nil {
		return BackupInfo{}, fmt.Errorf("write backup: %w", err)
	}
	checksum, err := fileSHA256(outPath)
	if err != nil {
		return BackupInfo{}, err
	}
	if err := os.WriteFile(outPath+".sha256", []byte(checksum+"\n"), 0o644); err != nil {
		return BackupInfo{}, fmt.Errorf("write checksum file: %w", err)
	}
	st, err := os.Stat(outPath)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("stat backup: %w", err)
	}
	return BackupInfo{Path: outPath, Checksum: checksum, CreatedAt: st.ModTime(), SizeBytes: st.Size()}, nil
}

func RestoreBackup(backupPath, dbPath string, force bool) error {
	if strings.TrimSpace(backupPath) == "" || strings.TrimSpace(dbPath) == "" {
		return fmt.Errorf("backup path and db path are required")
	}
	if !force {
		if _, err := os.Stat(dbPath); err == nil {
			return fmt.Errorf("target db already exists; use --force to overwrite")
		}
	}
	if expected, err := os.ReadFile(backupPath + ".sha256"); err == nil {
		actual, err := fileSHA256(backupPath)
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(expected)) != actual {
			return fmt.Errorf("backup checksum mismatch")
		}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	// Leftover WAL files belong to the database being replaced.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s file: %w", suffix, err)
		}
	}
	return copyFile(backupPath, dbPath)
}

func ListBackups(dir string) ([]BackupInfo, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []BackupInfo{}, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	out := make([]BackupInfo, 0)
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".db") {
			continue
		}
		full := filepath.Join(dir, f.Name())
		st, err := os.Stat(full)
		if err != nil {
			continue
		}
		checksum := ""
		if b, err := os.ReadFile(full + ".sha256"); err == nil {
			checksum = strings.TrimSpace(string(b))
		}
		out = append(out, BackupInfo{Path: full, Checksum: checksum, CreatedAt: st.ModTime(), SizeBytes: st.Size()})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// RunDoctor checks that stored totals still match their factors and that
// the settings record decodes. With fix, totals are recomputed, unknown
// product types become "other" and a broken settings record is replaced by
// the merged defaults.
func RunDoctor(db *sql.DB, fix bool) (DoctorReport, error) {
	ctx := context.Background()
	report := DoctorReport{}
	store := NewEntryStore(db, "")
	entries, err := store.LoadAll(ctx)
	if err != nil {
		return report, fmt.Errorf("doctor load entries: %w", err)
	}
	report.Entries = len(entries)

	repairs := make([]model.Entry, 0)
	for _, e := range entries {
		repaired := e
		changed := false
		if !e.ProductType.Valid() {
			report.UnknownProducts++
			repaired.ProductType = model.ProductOther
			changed = true
		}
		if e.NicotinePerUnitMg <= 0 || e.Amount <= 0 || e.PricePerUnit.IsNegative() {
			report.InvalidFactors++
		}
		recalculated := stats.RecalcEntryTotals(repaired)
		if totalsMismatch(e, recalculated) {
			report.StaleTotals++
			changed = true
		}
		if changed {
			repairs = append(repairs, recalculated)
		}
	}

	raw, ok, err := GetConfig(db, ConfigSettings)
	if err != nil {
		return report, fmt.Errorf("doctor settings check: %w", err)
	}
	var partial *settings.Partial
	if ok {
		if !json.Valid([]byte(raw)) {
			report.InvalidSettings = true
		} else if partial, err = settings.ParsePartial([]byte(raw)); err != nil {
			report.InvalidSettings = true
		}
	}

	if !fix {
		return report, nil
	}

	if len(repairs) > 0 {
		tx, err := db.Begin()
		if err != nil {
			return report, fmt.Errorf("doctor fix begin tx: %w", err)
		}
		for _, e := range repairs {
			if _, err := tx.Exec(`
UPDATE nicotine_entries
SET product_type = ?, total_mg = ?, total_cost = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`, string(e.ProductType), e.TotalMg, e.TotalCost.String(), e.ID); err != nil {
				_ = tx.Rollback()
				return report, fmt.Errorf("doctor fix entry %s: %w", e.ID, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return report, fmt.Errorf("doctor fix commit: %w", err)
		}
		report.FixedTotals = report.StaleTotals
		report.FixedProducts = report.UnknownProducts
	}
	if report.InvalidSettings {
		if err := NewSettingsStore(db).Save(ctx, settings.Merge(partial)); err != nil {
			return report, fmt.Errorf("doctor rewrite settings: %w", err)
		}
		report.SettingsRewritten = true
	}
	return report, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy file: %w", err)
	}
	if err := out.Sync(); err != nil {
		return fmt.Errorf("sync destination file: %w", err)
	}
	return nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for checksum: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
