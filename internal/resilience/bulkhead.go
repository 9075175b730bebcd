package resilience

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	apperrors "github.com/buddyhq/webhook-ingest/internal/errors"
)

// BulkheadSettings tunes a bulkhead pool.
type BulkheadSettings struct {
	// MaxConcurrency bounds simultaneous in-flight operations.
	MaxConcurrency int
	// MaxQueue bounds how many callers may wait for a slot; zero means
	// excess work is rejected immediately.
	MaxQueue int
}

// Bulkhead bounds concurrent work for one named resource class so an
// overloaded dependency cannot starve unrelated traffic sharing the
// process. Excess callers queue up to MaxQueue deep, then are rejected.
type Bulkhead struct {
	name     string
	settings BulkheadSettings
	sem      *semaphore.Weighted

	inFlight atomic.Int64

	mu      sync.Mutex
	waiting int
}

// NewBulkhead creates an empty pool for the named resource class.
func NewBulkhead(name string, settings BulkheadSettings) *Bulkhead {
	return &Bulkhead{
		name:     name,
		settings: settings,
		sem:      semaphore.NewWeighted(int64(settings.MaxConcurrency)),
	}
}

// Execute admits fn immediately when a slot is free, queues when the wait
// line has room, and rejects otherwise. The slot is released on every
// exit path, including panics in fn and context cancellation while
// queued.
func (b *Bulkhead) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !b.sem.TryAcquire(1) {
		if !b.enqueue() {
			return apperrors.BulkheadRejected("bulkhead " + b.name + " at capacity")
		}
		err := b.sem.Acquire(ctx, 1)
		b.dequeue()
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeCanceled, "bulkhead wait canceled")
		}
	}

	b.inFlight.Add(1)
	defer func() {
		b.inFlight.Add(-1)
		b.sem.Release(1)
	}()

	return fn(ctx)
}

func (b *Bulkhead) enqueue() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.waiting >= b.settings.MaxQueue {
		return false
	}
	b.waiting++
	return true
}

func (b *Bulkhead) dequeue() {
	b.mu.Lock()
	b.waiting--
	b.mu.Unlock()
}

// BulkheadSnapshot is a point-in-time view of one pool for /stats.
type BulkheadSnapshot struct {
	Name           string `json:"name"`
	MaxConcurrency int    `json:"max_concurrency"`
	MaxQueue       int    `json:"max_queue"`
	InFlight       int64  `json:"in_flight"`
	Waiting        int    `json:"waiting"`
}

// Snapshot captures the pool's current occupancy.
func (b *Bulkhead) Snapshot() BulkheadSnapshot {
	b.mu.Lock()
	waiting := b.waiting
	b.mu.Unlock()

	return BulkheadSnapshot{
		Name:           b.name,
		MaxConcurrency: b.settings.MaxConcurrency,
		MaxQueue:       b.settings.MaxQueue,
		InFlight:       b.inFlight.Load(),
		Waiting:        waiting,
	}
}
