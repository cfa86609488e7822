package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kakeibo/internal/core"
)

// MessageVersion is bumped when the envelope changes incompatibly.
const MessageVersion = 1

// EventMessage is the wire envelope of a ledger change event.
// It carries only the user and month; consumers reload state from the store.
type EventMessage struct {
	ID        string         `json:"id"`
	Version   int            `json:"version"`
	Type      core.EventType `json:"type"`
	UserID    string         `json:"user_id"`
	Month     core.Month     `json:"month"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEventMessage wraps e in an envelope with a fresh message ID.
func NewEventMessage(e core.Event) *EventMessage {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &EventMessage{
		ID:        uuid.NewString(),
		Version:   MessageVersion,
		Type:      e.Type,
		UserID:    e.UserID,
		Month:     e.Month,
		Timestamp: ts,
	}
}

// Event returns the domain event carried by m.
func (m *EventMessage) Event() core.Event {
	return core.Event{Type: m.Type, UserID: m.UserID, Month: m.Month, Timestamp: m.Timestamp}
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON decodes and sanity-checks a message body.
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, fmt.Errorf("event %s: missing user_id", msg.ID)
	}
	if _, err := core.ParseMonth(string(msg.Month)); err != nil {
		return nil, fmt.Errorf("event %s: %w", msg.ID, err)
	}
	return &msg, nil
}
