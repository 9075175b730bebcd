package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	return NewRegistry(Settings{
		Breaker:   BreakerSettings{FailureThreshold: 2, Cooldown: time.Hour, HalfOpenMaxCalls: 1},
		Bulkhead:  BulkheadSettings{MaxConcurrency: 4, MaxQueue: 2},
		RateLimit: RateLimitSettings{Capacity: 3, RefillPerSecond: 0.001},
	}, nil)
}

func TestRegistryReturnsSameInstancePerName(t *testing.T) {
	r := testRegistry()

	assert.Same(t, r.Breaker("payments"), r.Breaker("payments"))
	assert.NotSame(t, r.Breaker("payments"), r.Breaker("email"))
	assert.Same(t, r.Bulkhead("db"), r.Bulkhead("db"))
}

func TestRegistryAnyBreakerOpen(t *testing.T) {
	r := testRegistry()

	require.False(t, r.AnyBreakerOpen())

	b := r.Breaker("payments")
	failNTimes(b, 2)
	assert.True(t, r.AnyBreakerOpen())

	b.Reset()
	assert.False(t, r.AnyBreakerOpen())
}

func TestRegistryResetBreaker(t *testing.T) {
	r := testRegistry()

	failNTimes(r.Breaker("payments"), 2)
	failNTimes(r.Breaker("email"), 2)

	require.False(t, r.ResetBreaker("unknown"))

	require.True(t, r.ResetBreaker("payments"))
	assert.Equal(t, "closed", r.Breaker("payments").State())
	assert.Equal(t, "open", r.Breaker("email").State())

	require.True(t, r.ResetBreaker("all"))
	assert.False(t, r.AnyBreakerOpen())
}

func TestRegistryResetLimiter(t *testing.T) {
	r := testRegistry()

	for i := 0; i < 3; i++ {
		require.True(t, r.Limiters().Allow("events"))
	}
	require.False(t, r.Limiters().Allow("events"))

	require.True(t, r.ResetLimiter("events"))
	assert.True(t, r.Limiters().Allow("events"))

	assert.False(t, r.ResetLimiter("unknown"))
	assert.True(t, r.ResetLimiter("all"))
}

func TestRegistrySnapshotSorted(t *testing.T) {
	r := testRegistry()

	r.Breaker("payments")
	r.Breaker("email")
	r.Bulkhead("webhook-processing")
	r.Bulkhead("database")
	r.Limiters().Allow("events")

	snap := r.Snapshot()
	require.Len(t, snap.Breakers, 2)
	assert.Equal(t, "email", snap.Breakers[0].Name)
	assert.Equal(t, "payments", snap.Breakers[1].Name)

	require.Len(t, snap.Bulkheads, 2)
	assert.Equal(t, "database", snap.Bulkheads[0].Name)

	require.Len(t, snap.RateLimiters, 1)
}
