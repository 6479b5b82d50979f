package niclog

import (
	"testing"
	"time"
)

func TestParseDateTimeUsesClockForMissingDate(t *testing.T) {
	saved := timeNow
	timeNow = func() time.Time { return time.Date(2026, 5, 2, 18, 0, 0, 0, time.Local) }
	t.Cleanup(func() { timeNow = saved })

	got, err := parseDateTimeOrNow("", "08:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if want := time.Date(2026, 5, 2, 8, 30, 0, 0, time.Local); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}

	got, err = parseDateTimeOrNow("2026-02-20", "")
	if err != nil {
		t.Fatalf("parse date only: %v", err)
	}
	if want := time.Date(2026, 2, 20, 12, 0, 0, 0, time.Local); !got.Equal(want) {
		t.Fatalf("expected noon %s, got %s", want, got)
	}

	if got, err := parseDateTimeOrNow("", ""); err != nil || !got.IsZero() {
		t.Fatalf("expected zero time for no flags, got %s (%v)", got, err)
	}
	if _, err := parseDateTimeOrNow("2026-02-20", "8h"); err == nil {
		t.Fatalf("expected error for malformed time")
	}
}
