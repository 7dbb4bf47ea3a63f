package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a lifecycle domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	Kind          string                 `json:"kind"`
	RecordID      string                 `json:"record_id"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// Common payload keys
const (
	KeyFrom    = "from"
	KeyTo      = "to"
	KeyActorID = "actor_id"
	KeyRole    = "role"
	KeyPath    = "path"
	KeyReason  = "reason"
)

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, kind, recordID string, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, kind, recordID, payload, generateID())
}

// NewEventWithCorrelation creates an event linked to a correlation chain,
// e.g. voucher.created and the receipt update it caused
func NewEventWithCorrelation(eventType Type, kind, recordID string, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:            generateID(),
		Type:          eventType,
		Kind:          kind,
		RecordID:      recordID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	return &Event{
		ID:            e.ID,
		Type:          e.Type,
		Kind:          e.Kind,
		RecordID:      e.RecordID,
		Payload:       newPayload,
		Timestamp:     e.Timestamp,
		CorrelationID: e.CorrelationID,
	}
}

// GetPayloadString retrieves a string value from the payload.
// Values with an underlying string type (states, roles) are converted.
func (e *Event) GetPayloadString(key string) string {
	val, ok := e.Payload[key]
	if !ok {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case interface{ String() string }:
		return v.String()
	}
	return ""
}

// GetPayloadFloat retrieves a float64 value from the payload
func (e *Event) GetPayloadFloat(key string) float64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		case int:
			return float64(v)
		}
	}
	return 0.0
}

func generateID() string {
	return uuid.NewString()
}
