package model

import (
	"encoding/json"
	"time"
)

// DLQEntry is one dead-lettered delivery. Entries are append-only and
// immutable; removal is an explicit operator action outside this subsystem.
type DLQEntry struct {
	ID                  string          `json:"id"                     db:"id"`
	DeliveryID          string          `json:"delivery_id"            db:"delivery_id"`
	EventType           string          `json:"event_type"             db:"event_type"`
	RawPayload          json.RawMessage `json:"raw_payload"            db:"raw_payload"`
	ErrorCategory       string          `json:"error_category"         db:"error_category"`
	ErrorMessage        string          `json:"error_message"          db:"error_message"`
	RetryCountAtFailure int             `json:"retry_count_at_failure" db:"retry_count_at_failure"`
	EnqueuedAt          time.Time       `json:"enqueued_at"            db:"enqueued_at"`
}

// EnqueueDLQRequest carries the inputs for appending a DLQ entry.
type EnqueueDLQRequest struct {
	DeliveryID          string
	EventType           string
	RawPayload          json.RawMessage
	ErrorCategory       string
	ErrorMessage        string
	RetryCountAtFailure int
}

// DLQStats summarises queue depth for operational dashboards.
type DLQStats struct {
	Count       int            `json:"count"`
	ByEventType map[string]int `json:"by_event_type"`
	OldestEntry *time.Time     `json:"oldest_entry,omitempty"`
}
