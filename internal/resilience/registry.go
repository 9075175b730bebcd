package resilience

import (
	"log/slog"
	"sort"
	"sync"
)

// Settings groups the per-kind defaults applied to lazily created
// breakers, bulkheads, and limiters.
type Settings struct {
	Breaker   BreakerSettings
	Bulkhead  BulkheadSettings
	RateLimit RateLimitSettings
}

// Registry owns every named breaker, bulkhead pool, and rate limiter in
// the process. It is constructed once at startup and passed by handle to
// the dispatcher and the HTTP layer; instances are created on first use
// and live for the process lifetime.
type Registry struct {
	settings Settings
	logger   *slog.Logger

	mu        sync.RWMutex
	breakers  map[string]*Breaker
	bulkheads map[string]*Bulkhead
	limiters  *LimiterSet
}

// NewRegistry creates an empty registry with the given defaults.
func NewRegistry(settings Settings, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		settings:  settings,
		logger:    logger,
		breakers:  make(map[string]*Breaker),
		bulkheads: make(map[string]*Bulkhead),
		limiters:  NewLimiterSet(settings.RateLimit),
	}
}

// Breaker returns the named circuit breaker, creating it closed on first use.
func (r *Registry) Breaker(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.breakers[name]; ok {
		return b
	}
	b = NewBreaker(name, r.settings.Breaker, r.logger)
	r.breakers[name] = b
	return b
}

// Bulkhead returns the named pool, creating it empty on first use.
func (r *Registry) Bulkhead(name string) *Bulkhead {
	r.mu.RLock()
	b, ok := r.bulkheads[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok = r.bulkheads[name]; ok {
		return b
	}
	b = NewBulkhead(name, r.settings.Bulkhead)
	r.bulkheads[name] = b
	return b
}

// Limiters exposes the rate limiter registry.
func (r *Registry) Limiters() *LimiterSet {
	return r.limiters
}

// AnyBreakerOpen reports whether any breaker is currently open. Used by
// the health endpoint to report degraded service.
func (r *Registry) AnyBreakerOpen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.breakers {
		if b.State() == "open" {
			return true
		}
	}
	return false
}

// ResetBreaker forces the named breaker closed; name "all" resets every
// instance. Returns false when no matching breaker exists.
func (r *Registry) ResetBreaker(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "all" {
		for _, b := range r.breakers {
			b.Reset()
		}
		return true
	}

	b, ok := r.breakers[name]
	if !ok {
		return false
	}
	b.Reset()
	return true
}

// ResetLimiter restores the named bucket to full capacity; name "all"
// resets every bucket. Returns false when no matching limiter exists.
func (r *Registry) ResetLimiter(name string) bool {
	if name == "all" {
		r.limiters.ResetAll()
		return true
	}
	return r.limiters.Reset(name)
}

// Snapshot is a point-in-time view of all resilience state for /stats.
type Snapshot struct {
	Breakers     []BreakerSnapshot     `json:"circuit_breakers"`
	Bulkheads    []BulkheadSnapshot    `json:"bulkheads"`
	RateLimiters []RateLimiterSnapshot `json:"rate_limiters"`
}

// Snapshot captures every known instance, sorted by name for stable output.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Breakers:     make([]BreakerSnapshot, 0, len(r.breakers)),
		Bulkheads:    make([]BulkheadSnapshot, 0, len(r.bulkheads)),
		RateLimiters: r.limiters.Snapshot(),
	}
	for _, b := range r.breakers {
		snap.Breakers = append(snap.Breakers, b.Snapshot())
	}
	for _, b := range r.bulkheads {
		snap.Bulkheads = append(snap.Bulkheads, b.Snapshot())
	}

	sort.Slice(snap.Breakers, func(i, j int) bool { return snap.Breakers[i].Name < snap.Breakers[j].Name })
	sort.Slice(snap.Bulkheads, func(i, j int) bool { return snap.Bulkheads[i].Name < snap.Bulkheads[j].Name })
	sort.Slice(snap.RateLimiters, func(i, j int) bool { return snap.RateLimiters[i].Name < snap.RateLimiters[j].Name })

	return snap
}
