package events

import (
	"testing"
	"time"

	"github.com/saadjs/niclog/internal/model"
)

func TestEventJSONRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	entry := &model.Entry{ID: "e1", ProductType: model.ProductSnus, NicotinePerUnitMg: 8, Amount: 1, TotalMg: 8, Timestamp: now}
	e := New(EntryAdded, entry.ID, entry, now)
	if e.ID == "" {
		t.Fatalf("expected event id")
	}

	raw, err := e.ToJSON()
	if err != nil {
		t.Fatalf("to json: %v", err)
	}
	got, err := FromJSON(raw)
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if got.Kind != EntryAdded || got.EntryID != "e1" || got.Entry == nil || got.Entry.TotalMg != 8 || !got.OccurredAt.Equal(now) {
		t.Fatalf("unexpected decoded event %+v", got)
	}
	if _, err := FromJSON([]byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}
