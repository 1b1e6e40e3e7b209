package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

const (
	EventSource  = "mocktest-service"
	EventVersion = "1.0"
)

// Event types double as topic names.
const (
	TypeProgressSaved = "progress.saved"
	TypeTestSubmitted = "test.submitted"
)

// Event is the envelope of every published message.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Source    string          `json:"source"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps data in an envelope.
func NewEvent(eventType string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}
	return &Event{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      raw,
	}, nil
}

// Decode unmarshals the event data into dest.
func (e *Event) Decode(dest interface{}) error {
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", e.Type, err)
	}
	return nil
}

// ProgressSavedEvent is published after a progress entry is committed.
type ProgressSavedEvent struct {
	UserID       string  `json:"userId"`
	TestType     string  `json:"testType"`
	TestID       string  `json:"testId"`
	Score        float64 `json:"score"`
	TotalMarks   float64 `json:"totalMarks"`
	TotalTests   int     `json:"totalTests"`
	AverageScore float64 `json:"averageScore"`
}

// TestSubmittedEvent is published when a session is graded.
type TestSubmittedEvent struct {
	SessionID     string  `json:"sessionId"`
	UserID        string  `json:"userId"`
	TestType      string  `json:"testType"`
	TestID        string  `json:"testId"`
	Trigger       string  `json:"trigger"`
	TotalMarks    float64 `json:"totalMarks"`
	TotalMaxMarks int     `json:"totalMaxMarks"`
	Accuracy      float64 `json:"accuracy"`
}
