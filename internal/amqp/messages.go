package amqp

import (
	"encoding/json"
	"time"
)

// RosterChangedMessage announces one roster mutation. It carries only
// the mutation kind and the affected document id; consumers refetch
// the roster from the store, so a lost message costs freshness, never
// correctness.
type RosterChangedMessage struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRosterChangedMessage(kind, id string) *RosterChangedMessage {
	return &RosterChangedMessage{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RosterChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RosterChangedMessageFromJSON creates a message from JSON bytes
func RosterChangedMessageFromJSON(data []byte) (*RosterChangedMessage, error) {
	var msg RosterChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
