package resilience

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitSettings tunes the token buckets handed out per limiter name.
type RateLimitSettings struct {
	// Capacity is the bucket size (maximum burst).
	Capacity int
	// RefillPerSecond is the continuous token refill rate.
	RefillPerSecond float64
}

// LimiterSet manages token-bucket rate limiters keyed by name. Limiters
// are created lazily on first use and live for the process lifetime;
// Reset restores a bucket to full capacity.
type LimiterSet struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	settings RateLimitSettings
}

// NewLimiterSet creates an empty limiter registry. Non-positive
// settings are clamped to safe defaults so a zero refill rate cannot
// produce an unbounded RetryAfter hint.
func NewLimiterSet(settings RateLimitSettings) *LimiterSet {
	if settings.Capacity <= 0 {
		settings.Capacity = 100
	}
	if settings.RefillPerSecond <= 0 {
		settings.RefillPerSecond = 50
	}
	return &LimiterSet{
		limiters: make(map[string]*rate.Limiter),
		settings: settings,
	}
}

// Allow attempts to deduct one token from the named bucket. It never
// blocks; a false return means the caller should respond 429 with a
// RetryAfter hint.
func (l *LimiterSet) Allow(name string) bool {
	return l.limiter(name).Allow()
}

// RetryAfter returns a conservative wait before the named bucket will
// have a token again.
func (l *LimiterSet) RetryAfter(name string) time.Duration {
	tokens := l.limiter(name).Tokens()
	if tokens >= 1 {
		return 0
	}
	missing := 1 - tokens
	seconds := missing / l.settings.RefillPerSecond
	return time.Duration(math.Ceil(seconds)) * time.Second
}

// Reset restores the named bucket to full capacity. Returns false when
// no bucket with that name has been used yet. An admission racing the
// reset may still debit the retired bucket; for an operator action that
// single-token window is acceptable.
func (l *LimiterSet) Reset(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.limiters[name]; !ok {
		return false
	}
	l.limiters[name] = l.newLimiter()
	return true
}

// ResetAll restores every known bucket to full capacity.
func (l *LimiterSet) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for name := range l.limiters {
		l.limiters[name] = l.newLimiter()
	}
}

// RateLimiterSnapshot is a point-in-time view of one bucket for /stats.
type RateLimiterSnapshot struct {
	Name            string  `json:"name"`
	Capacity        int     `json:"capacity"`
	RefillPerSecond float64 `json:"refill_per_second"`
	Tokens          float64 `json:"tokens"`
}

// Snapshot captures every known bucket's current fill level.
func (l *LimiterSet) Snapshot() []RateLimiterSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snaps := make([]RateLimiterSnapshot, 0, len(l.limiters))
	for name, limiter := range l.limiters {
		snaps = append(snaps, RateLimiterSnapshot{
			Name:            name,
			Capacity:        l.settings.Capacity,
			RefillPerSecond: l.settings.RefillPerSecond,
			Tokens:          limiter.Tokens(),
		})
	}
	return snaps
}

func (l *LimiterSet) limiter(name string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[name]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok = l.limiters[name]; ok {
		return limiter
	}
	limiter = l.newLimiter()
	l.limiters[name] = limiter
	return limiter
}

func (l *LimiterSet) newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(l.settings.RefillPerSecond), l.settings.Capacity)
}
