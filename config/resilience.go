package config

import "time"

// BreakerConfig contains circuit breaker tuning shared by all named breakers.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips a
	// closed breaker open.
	FailureThreshold int `env:"FAILURE_THRESHOLD" envDefault:"5"`

	// Cooldown is how long an open breaker waits before allowing trial calls.
	Cooldown time.Duration `env:"COOLDOWN" envDefault:"30s"`

	// HalfOpenMaxCalls is the number of trial calls permitted while half-open.
	HalfOpenMaxCalls int `env:"HALF_OPEN_MAX_CALLS" envDefault:"2"`
}

// BulkheadConfig contains concurrency isolation tuning shared by all named pools.
type BulkheadConfig struct {
	// MaxConcurrency bounds simultaneous in-flight operations per pool.
	MaxConcurrency int `env:"MAX_CONCURRENCY" envDefault:"10"`

	// MaxQueue bounds how many callers may wait for a slot before rejection.
	MaxQueue int `env:"MAX_QUEUE" envDefault:"20"`
}

// RateLimitConfig contains token bucket tuning shared by all named limiters.
type RateLimitConfig struct {
	// Capacity is the bucket size (maximum burst).
	Capacity int `env:"CAPACITY" envDefault:"100"`

	// RefillPerSecond is the continuous token refill rate.
	RefillPerSecond float64 `env:"REFILL_PER_SECOND" envDefault:"50"`
}

// ResilienceConfig groups circuit breaker, bulkhead, and rate limiter tuning.
type ResilienceConfig struct {
	Breaker   BreakerConfig   `envPrefix:"BREAKER_"`
	Bulkhead  BulkheadConfig  `envPrefix:"BULKHEAD_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

// Sanitize applies guardrails to resilience configuration values.
func (r *ResilienceConfig) Sanitize() {
	if r.Breaker.FailureThreshold <= 0 {
		r.Breaker.FailureThreshold = 5
	}
	if r.Breaker.Cooldown <= 0 {
		r.Breaker.Cooldown = 30 * time.Second
	}
	if r.Breaker.HalfOpenMaxCalls <= 0 {
		r.Breaker.HalfOpenMaxCalls = 2
	}
	if r.Bulkhead.MaxConcurrency <= 0 {
		r.Bulkhead.MaxConcurrency = 10
	}
	if r.Bulkhead.MaxQueue < 0 {
		r.Bulkhead.MaxQueue = 0
	}
	if r.RateLimit.Capacity <= 0 {
		r.RateLimit.Capacity = 100
	}
	if r.RateLimit.RefillPerSecond <= 0 {
		r.RateLimit.RefillPerSecond = 50
	}
}
