//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DeliveryStatus represents the lifecycle state of a webhook delivery.
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusProcessing DeliveryStatus = "processing"
	DeliveryStatusCompleted  DeliveryStatus = "completed"
	DeliveryStatusFailed     DeliveryStatus = "failed"
)

// Valid returns true if the delivery status is valid.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusProcessing, DeliveryStatusCompleted, DeliveryStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once a delivery can no longer change state on its own.
// A failed delivery is terminal only after the retry budget is exhausted.
func (s DeliveryStatus) IsTerminal() bool {
	return s == DeliveryStatusCompleted
}

// String returns the string representation of the delivery status.
func (s DeliveryStatus) String() string {
	return string(s)
}

// DeliveryRecord is the durable record of one delivery ID's attempt history.
// At most one record exists per delivery ID; the transition
// pending→processing→{completed|failed} is monotonic, and failed may
// re-enter processing only while RetryCount is below the retry budget.
type DeliveryRecord struct {
	ID          string         `json:"id"                   db:"id"`
	DeliveryID  string         `json:"delivery_id"          db:"delivery_id"`
	EventType   string         `json:"event_type"           db:"event_type"`
	PayloadHash string         `json:"payload_hash"         db:"payload_hash"`
	Status      DeliveryStatus `json:"status"               db:"status"`
	RetryCount  int            `json:"retry_count"          db:"retry_count"`
	LastError   *string        `json:"last_error,omitempty" db:"last_error"`
	CreatedAt   time.Time      `json:"created_at"           db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"           db:"updated_at"`
}

// CanRetry reports whether another processing attempt is allowed.
func (d *DeliveryRecord) CanRetry(maxRetries int) bool {
	return d.Status == DeliveryStatusFailed && d.RetryCount < maxRetries
}

// RetriesExhausted reports whether the delivery has burned its whole retry budget.
func (d *DeliveryRecord) RetriesExhausted(maxRetries int) bool {
	return d.Status == DeliveryStatusFailed && d.RetryCount >= maxRetries
}

// HashPayload computes the canonical digest stored in PayloadHash.
// A delivery ID reused with a different digest is a conflict, not a redelivery.
func HashPayload(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// IdempotencyDecision is the outcome of the atomic lookup-or-create step for
// an inbound delivery.
type IdempotencyDecision struct {
	// AlreadyProcessed is true when a completed record exists for the delivery ID.
	AlreadyProcessed bool
	// ShouldProcess is true when this caller won the attempt and must run the processor.
	ShouldProcess bool
	// Delivery is the current record, present in every non-error outcome.
	Delivery *DeliveryRecord
}

// CheckDeliveryRequest carries the inputs of an idempotency check.
type CheckDeliveryRequest struct {
	DeliveryID  string
	EventType   string
	PayloadHash string
	MaxRetries  int
}
