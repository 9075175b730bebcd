// Package resilience provides the named circuit breakers, bulkhead pools,
// and rate limiters that guard webhook processing. All state lives in an
// explicit Registry constructed at process start; nothing here is a
// package-level singleton.
package resilience

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	apperrors "github.com/buddyhq/webhook-ingest/internal/errors"
)

// BreakerSettings tunes a circuit breaker instance.
type BreakerSettings struct {
	// FailureThreshold is the number of consecutive failures that trips
	// a closed breaker open.
	FailureThreshold int
	// Cooldown is how long an open breaker waits before moving to half-open.
	Cooldown time.Duration
	// HalfOpenMaxCalls is the number of trial calls permitted while half-open.
	HalfOpenMaxCalls int
}

// Breaker wraps a gobreaker instance for one named downstream dependency.
// Reset replaces the underlying breaker, so access goes through a mutex.
type Breaker struct {
	name     string
	settings BreakerSettings
	logger   *slog.Logger

	mu sync.Mutex
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a closed breaker for the named dependency.
func NewBreaker(name string, settings BreakerSettings, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Breaker{
		name:     name,
		settings: settings,
		logger:   logger,
	}
	b.cb = b.newCircuitBreaker()
	return b
}

func (b *Breaker) newCircuitBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        b.name,
		MaxRequests: uint32(b.settings.HalfOpenMaxCalls),
		Interval:    0,
		Timeout:     b.settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(b.settings.FailureThreshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			b.logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
}

// Execute runs fn under the breaker. When the breaker is open (or the
// half-open trial allowance is used up) fn is not called and a
// circuit-open error is returned.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	cb := b.cb
	b.mu.Unlock()

	_, err := cb.Execute(func() (any, error) {
		return nil, fn()
	})
	if err == nil {
		return nil
	}
	if code := apperrors.Categorize(err); code == apperrors.ErrCodeCircuitOpen {
		return apperrors.Wrapf(err, apperrors.ErrCodeCircuitOpen, "dependency %q unavailable", b.name)
	}
	return err
}

// State returns the current breaker state as closed|open|half_open.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return stateString(b.cb.State())
}

// Reset forces the breaker closed with zero counters. Safe to call
// concurrently with in-flight traffic; calls already running under the
// old breaker finish against it.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cb = b.newCircuitBreaker()
	b.logger.Info("circuit breaker reset", slog.String("breaker", b.name))
}

// BreakerSnapshot is a point-in-time view of one breaker for /stats.
type BreakerSnapshot struct {
	Name                 string `json:"name"`
	State                string `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalSuccesses       uint32 `json:"total_successes"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
}

// Snapshot captures the breaker's current state and counters.
func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	cb := b.cb
	b.mu.Unlock()

	counts := cb.Counts()
	return BreakerSnapshot{
		Name:                 b.name,
		State:                stateString(cb.State()),
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
	}
}

func stateString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half_open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
