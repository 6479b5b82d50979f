package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/saadjs/niclog/internal/model"
)

type Kind string

const (
	EntryAdded     Kind = "entry.added"
	EntryUpdated   Kind = "entry.updated"
	EntryDeleted   Kind = "entry.deleted"
	EntriesCleared Kind = "entries.cleared"
)

// Event describes one successful change to the entry store.
type Event struct {
	ID         string       `json:"id"`
	Kind       Kind         `json:"kind"`
	EntryID    string       `json:"entry_id,omitempty"`
	Entry      *model.Entry `json:"entry,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

func New(kind Kind, entryID string, entry *model.Entry, now time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		EntryID:    entryID,
		Entry:      entry,
		OccurredAt: now.UTC(),
	}
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func FromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
