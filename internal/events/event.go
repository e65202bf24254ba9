package events

import (
	"context"
	"encoding/json"
	"time"
)

// Type names a progress event.
type Type string

const (
	TypeItemCompleted  Type = "item.completed"
	TypeBatchCompleted Type = "batch.completed"
)

const Version = 1

// Event is the payload sent to downstream progress consumers.
type Event struct {
	Type      Type   `json:"type"`
	BatchID   string `json:"batchId"`
	RequestID string `json:"requestId,omitempty"`
	JDHash    string `json:"jdHash,omitempty"`

	// Item fields.
	Index     int    `json:"index"`
	FileName  string `json:"filename,omitempty"`
	Status    string `json:"status,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`

	// Batch fields.
	Total     int   `json:"total,omitempty"`
	Succeeded int   `json:"succeeded,omitempty"`
	Failed    int   `json:"failed,omitempty"`
	ElapsedMs int64 `json:"elapsedMs,omitempty"`

	EmittedAt string `json:"emittedAt"`
	Version   int    `json:"version"`
}

// Stamp fills EmittedAt and Version when unset.
func (e Event) Stamp(now time.Time) Event {
	if e.EmittedAt == "" {
		e.EmittedAt = now.UTC().Format(time.RFC3339)
	}
	if e.Version == 0 {
		e.Version = Version
	}
	return e
}

// Encode returns the JSON representation of an event.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a JSON payload into an Event.
func Decode(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}

// Publisher sends progress events to a backend.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(ctx context.Context, e Event) error { return nil }

var _ Publisher = Nop{}
