package config

import (
	"strings"
	"time"
)

// FailurePolicy selects behavior when the Redis claim store is unreachable.
type FailurePolicy string

const (
	// FailOpen continues processing against Postgres alone when Redis is down.
	FailOpen FailurePolicy = "open"
	// FailClosed rejects deliveries with a retryable error when Redis is down.
	FailClosed FailurePolicy = "closed"
)

// WebhookConfig contains webhook ingestion configuration shared by all
// inbound partner connectors.
type WebhookConfig struct {
	// SigningSecret is the shared HMAC secret partners sign deliveries with.
	SigningSecret string `env:"SIGNING_SECRET"`

	// ReplayWindow is the maximum age of a signed request timestamp before rejection.
	ReplayWindow time.Duration `env:"REPLAY_WINDOW" envDefault:"5m"`

	// MaxRetries is the number of failed attempts allowed per delivery
	// before it is routed to the dead letter queue.
	MaxRetries int `env:"MAX_RETRIES" envDefault:"3"`

	// ProcessingTimeout bounds the wall-clock duration of a single processing attempt.
	ProcessingTimeout time.Duration `env:"PROCESSING_TIMEOUT" envDefault:"30s"`

	// ClaimTTL is the lifetime of the Redis claim lock taken while a delivery
	// is in flight. Must exceed ProcessingTimeout so a crashed instance's
	// claim expires rather than wedging the delivery forever.
	ClaimTTL time.Duration `env:"CLAIM_TTL" envDefault:"60s"`

	// ClaimFailurePolicy selects fail-open or fail-closed behavior when the
	// Redis claim store is unavailable.
	ClaimFailurePolicy FailurePolicy `env:"CLAIM_FAILURE_POLICY" envDefault:"open"`

	// MaxBodyBytes caps the accepted request body size.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

// Sanitize applies guardrails to webhook configuration values.
func (w *WebhookConfig) Sanitize() {
	if w.ReplayWindow <= 0 {
		w.ReplayWindow = 5 * time.Minute
	}
	if w.MaxRetries < 0 {
		w.MaxRetries = 0
	}
	if w.ProcessingTimeout <= 0 {
		w.ProcessingTimeout = 30 * time.Second
	}
	if w.ClaimTTL <= w.ProcessingTimeout {
		w.ClaimTTL = w.ProcessingTimeout + 30*time.Second
	}
	if w.MaxBodyBytes <= 0 {
		w.MaxBodyBytes = 1 << 20
	}

	switch FailurePolicy(strings.ToLower(string(w.ClaimFailurePolicy))) {
	case FailClosed:
		w.ClaimFailurePolicy = FailClosed
	default:
		w.ClaimFailurePolicy = FailOpen
	}
}
