package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
		{15, 30 * time.Second}, // capped at 30s
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "connection error",
			err:      errors.New("connection refused"),
			expected: true,
		},
		{
			name:     "closed connection error",
			err:      errors.New("connection closed"),
			expected: true,
		},
		{
			name:     "EOF error",
			err:      errors.New("unexpected EOF"),
			expected: true,
		},
		{
			name:     "broken pipe error",
			err:      errors.New("broken pipe"),
			expected: true,
		},
		{
			name:     "closed network connection error",
			err:      errors.New("use of closed network connection"),
			expected: true,
		},
		{
			name:     "other error",
			err:      errors.New("some other error"),
			expected: false,
		},
		{
			name:     "validation error",
			err:      errors.New("invalid input"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isConnectionError(tt.err)
			if result != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestNewRosterChangedMessage(t *testing.T) {
	msg := NewRosterChangedMessage("payments_saved", "m-42")

	if msg.Kind != "payments_saved" {
		t.Errorf("Kind = %v, want payments_saved", msg.Kind)
	}
	if msg.ID != "m-42" {
		t.Errorf("ID = %v, want m-42", msg.ID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestRosterChangedMessage_JSON(t *testing.T) {
	timestamp := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	msg := &RosterChangedMessage{
		Kind:      "member_deleted",
		ID:        "m-7",
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsed, err := RosterChangedMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("RosterChangedMessageFromJSON() error = %v", err)
	}

	if parsed.Kind != msg.Kind {
		t.Errorf("Parsed Kind = %v, want %v", parsed.Kind, msg.Kind)
	}
	if parsed.ID != msg.ID {
		t.Errorf("Parsed ID = %v, want %v", parsed.ID, msg.ID)
	}
	if !parsed.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsed.Timestamp, msg.Timestamp)
	}
}

func TestRosterChangedMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"kind": 42}`)

	_, err := RosterChangedMessageFromJSON(invalidJSON)
	if err == nil {
		t.Error("RosterChangedMessageFromJSON() should fail with invalid JSON")
	}
}
