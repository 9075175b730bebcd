package model

import (
	"encoding/json"
	"errors"
	"strings"
)

// EventKind identifies a known webhook event type. Processors are
// registered per kind; a delivery carrying an unregistered kind is
// rejected at the boundary as a validation failure.
type EventKind string

// Event kinds emitted by the partner platforms currently connected.
const (
	EventKindMatchCreated    EventKind = "buddy.match.created"
	EventKindMatchEnded      EventKind = "buddy.match.ended"
	EventKindSignupCreated   EventKind = "volunteer.signup.created"
	EventKindSignupCancelled EventKind = "volunteer.signup.cancelled"
	EventKindHoursLogged     EventKind = "volunteer.hours.logged"
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	return string(k)
}

// EventEnvelope is the JSON body of an inbound webhook delivery.
type EventEnvelope struct {
	Type EventKind       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Validate checks structural requirements of the envelope. Whether the
// type is a registered kind is checked separately against the processor
// registry.
func (e *EventEnvelope) Validate() error {
	if strings.TrimSpace(string(e.Type)) == "" {
		return errors.New("event type is required")
	}
	return nil
}

// ParseEventEnvelope decodes and validates a raw delivery body.
func ParseEventEnvelope(body []byte) (*EventEnvelope, error) {
	var env EventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.New("body is not a valid event envelope")
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}
