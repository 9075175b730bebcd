package core

import (
	"context"
	"time"

	"github.com/buddyhq/webhook-ingest/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// DeliveryRepository defines the interface for idempotency tracking of
// webhook deliveries.
type DeliveryRepository interface {
	// CheckIdempotency performs the atomic lookup-or-create step for a
	// delivery. Across concurrent redeliveries of the same delivery ID,
	// exactly one caller per attempt generation observes ShouldProcess.
	CheckIdempotency(ctx context.Context, req model.CheckDeliveryRequest) (*model.IdempotencyDecision, error)
	// MarkProcessed records a successful attempt.
	MarkProcessed(ctx context.Context, deliveryID string) error
	// MarkFailed records a failed attempt and increments the retry count.
	// It returns the updated record so callers can re-check retry exhaustion.
	MarkFailed(ctx context.Context, deliveryID, errMsg string) (*model.DeliveryRecord, error)
	// GetByDeliveryID fetches the current record for observability tooling.
	GetByDeliveryID(ctx context.Context, deliveryID string) (*model.DeliveryRecord, error)
}

// DLQRepository defines the interface for the dead letter queue.
type DLQRepository interface {
	Enqueue(ctx context.Context, req model.EnqueueDLQRequest) (*model.DLQEntry, error)
	Stats(ctx context.Context) (*model.DLQStats, error)
	List(ctx context.Context, limit, offset int) ([]model.DLQEntry, error)
}

// ClaimStore is the fast-path dedup lock in front of the durable
// idempotency store. Claims are best-effort: a lost claim store degrades
// to Postgres-only dedup under the configured failure policy.
type ClaimStore interface {
	// TryClaim atomically takes the in-flight claim for a delivery ID.
	// Returns false when another instance already holds it.
	TryClaim(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error)
	// ReleaseClaim drops the claim after the attempt concludes.
	ReleaseClaim(ctx context.Context, deliveryID string) error
}

// MetricsSink receives fire-and-forget pipeline metrics. Emission
// failures are logged and never affect the request path.
type MetricsSink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}
