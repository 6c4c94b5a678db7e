package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope every message published by the service carries.
// SubjectID identifies the account the event is about and doubles as the
// partition key, so events for one account stay ordered.
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	SubjectID     string          `json:"subject_id"`
	Producer      string          `json:"producer"`
	SchemaVersion int             `json:"schema_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEvent creates an event with a generated ID and the current timestamp.
func NewEvent(eventType, subjectID, producer string, payload any) (*Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		SubjectID:     subjectID,
		Producer:      producer,
		SchemaVersion: 1,
		OccurredAt:    time.Now().UTC(),
		Payload:       body,
	}, nil
}

// WithCorrelationID sets the correlation ID on the event.
func (e *Event) WithCorrelationID(id string) *Event {
	e.CorrelationID = id
	return e
}

// Marshal serializes the event to JSON bytes.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalEvent deserializes an event from JSON bytes.
func UnmarshalEvent(data []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// UnmarshalPayload deserializes the event payload into the given target.
func (e *Event) UnmarshalPayload(target any) error {
	return json.Unmarshal(e.Payload, target)
}
