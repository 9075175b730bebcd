package data

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buddyhq/webhook-ingest/internal/domain/model"
	apperrors "github.com/buddyhq/webhook-ingest/internal/errors"
	"github.com/buddyhq/webhook-ingest/internal/testutil"
)

func newCheckRequest(deliveryID string) model.CheckDeliveryRequest {
	return model.CheckDeliveryRequest{
		DeliveryID:  deliveryID,
		EventType:   "buddy.match.created",
		PayloadHash: model.HashPayload([]byte(`{"type":"buddy.match.created","data":{}}`)),
		MaxRetries:  3,
	}
}

func uniqueDeliveryID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func TestDeliveryRepo_CheckIdempotency_FirstSighting(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewDeliveryRepo(db)
		req := newCheckRequest(uniqueDeliveryID("first"))

		decision, err := repo.CheckIdempotency(ctx, req)
		require.NoError(t, err)
		assert.True(t, decision.ShouldProcess)
		assert.False(t, decision.AlreadyProcessed)
		require.NotNil(t, decision.Delivery)
		assert.Equal(t, model.DeliveryStatusProcessing, decision.Delivery.Status)
		assert.Equal(t, 0, decision.Delivery.RetryCount)
		assert.NotEmpty(t, decision.Delivery.ID)
	})
}

func TestDeliveryRepo_CheckIdempotency_CompletedIsAlreadyProcessed(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewDeliveryRepo(db)
		req := newCheckRequest(uniqueDeliveryID("done"))

		first, err := repo.CheckIdempotency(ctx, req)
		require.NoError(t, err)
		require.True(t, first.ShouldProcess)
		require.NoError(t, repo.MarkProcessed(ctx, req.DeliveryID))

		second, err := repo.CheckIdempotency(ctx, req)
		require.NoError(t, err)
		assert.True(t, second.AlreadyProcessed)
		assert.False(t, second.ShouldProcess)
		assert.Equal(t, model.DeliveryStatusCompleted, second.Delivery.Status)
	})
}

func TestDeliveryRepo_CheckIdempotency_PayloadMismatchIsConflict(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewDeliveryRepo(db)
		req := newCheckRequest(uniqueDeliveryID("mismatch"))

		_, err := repo.CheckIdempotency(ctx, req)
		require.NoError(t, err)

		altered := req
		altered.PayloadHash = model.HashPayload([]byte(`{"type":"buddy.match.created","data":{"x":1}}`))
		_, err = repo.CheckIdempotency(ctx, altered)
		require.Error(t, err)
		assert.True(t, apperrors.IsConflict(err))
	})
}

func TestDeliveryRepo_CheckIdempotency_InFlightIsNeither(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewDeliveryRepo(db)
		req := newCheckRequest(uniqueDeliveryID("inflight"))

		first, err := repo.CheckIdempotency(ctx, req)
		require.NoError(t, err)
		require.True(t, first.ShouldProcess)

		// The winner has not finished yet; a duplicate must not run.
		second, err := repo.CheckIdempotency(ctx, req)
		require.NoError(t, err)
		assert.False(t, second.ShouldProcess)
		assert.False(t, second.AlreadyProcessed)
		assert.Equal(t, model.DeliveryStatusProcessing, second.Delivery.Status)
	})
}

func TestDeliveryRepo_CheckIdempotency_FailedRetriesUntilExhausted(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewDeliveryRepo(db)
		req := newCheckRequest(uniqueDeliveryID("retry"))
		req.MaxRetries = 2

		first, err := repo.CheckIdempotency(ctx, req)
		require.NoError(t, err)
		require.True(t, first.ShouldProcess)

		// Fail the first two attempts; each redelivery should win a retry.
		for attempt := 1; attempt <= req.MaxRetries; attempt++ {
			failed, failErr := repo.MarkFailed(ctx, req.DeliveryID, "downstream unavailable")
			require.NoError(t, failErr)
			assert.Equal(t, attempt, failed.RetryCount)
			require.NotNil(t, failed.LastError)
			assert.Equal(t, "downstream unavailable", *failed.LastError)

			decision, checkErr := repo.CheckIdempotency(ctx, req)
			require.NoError(t, checkErr)
			if attempt < req.MaxRetries {
				assert.True(t, decision.ShouldProcess, "attempt %d should be retryable", attempt)
				assert.Equal(t, model.DeliveryStatusProcessing, decision.Delivery.Status)
			} else {
				assert.False(t, decision.ShouldProcess, "budget exhausted after attempt %d", attempt)
				assert.False(t, decision.AlreadyProcessed)
				assert.Equal(t, model.DeliveryStatusFailed, decision.Delivery.Status)
				assert.True(t, decision.Delivery.RetriesExhausted(req.MaxRetries))
			}
		}
	})
}

func TestDeliveryRepo_CheckIdempotency_ConcurrentDuplicatesSingleWinner(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewDeliveryRepo(db)
		req := newCheckRequest(uniqueDeliveryID("race"))

		const callers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				decision, err := repo.CheckIdempotency(ctx, req)
				if err != nil {
					return
				}
				if decision.ShouldProcess {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, winners, "exactly one concurrent caller may process")
	})
}

func TestDeliveryRepo_MarkProcessed_RequiresProcessingState(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewDeliveryRepo(db)

		err := repo.MarkProcessed(ctx, uniqueDeliveryID("ghost"))
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestDeliveryRepo_GetByDeliveryID(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewDeliveryRepo(db)
		req := newCheckRequest(uniqueDeliveryID("get"))

		_, err := repo.CheckIdempotency(ctx, req)
		require.NoError(t, err)

		got, err := repo.GetByDeliveryID(ctx, req.DeliveryID)
		require.NoError(t, err)
		assert.Equal(t, req.DeliveryID, got.DeliveryID)
		assert.Equal(t, req.EventType, got.EventType)
		assert.Equal(t, req.PayloadHash, got.PayloadHash)

		_, err = repo.GetByDeliveryID(ctx, uniqueDeliveryID("missing"))
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestDeliveryRepo_FixedTimeProvider(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		fixed := testutil.TestTime()
		repo := NewDeliveryRepoWithTimeProvider(db, NewFixedTimeProvider(fixed))
		req := newCheckRequest(uniqueDeliveryID("clock"))

		decision, err := repo.CheckIdempotency(ctx, req)
		require.NoError(t, err)
		assert.True(t, decision.Delivery.CreatedAt.Equal(fixed))
	})
}

// A delivery must never be observable in pending: the conditional insert
// and the processing claim commit as one transaction, so a crash between
// them cannot strand a record no later redelivery could reclaim.
func TestDeliveryRepo_CheckIdempotency_NeverCommitsPending(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewDeliveryRepo(db)
		req := newCheckRequest(uniqueDeliveryID("atomic"))

		decision, err := repo.CheckIdempotency(ctx, req)
		require.NoError(t, err)
		require.True(t, decision.ShouldProcess)

		var status string
		err = db.QueryRowContext(ctx,
			`SELECT status FROM deliveries WHERE delivery_id = $1`, req.DeliveryID).Scan(&status)
		require.NoError(t, err)
		assert.Equal(t, string(model.DeliveryStatusProcessing), status,
			"committed state must be processing, not pending")
	})
}

func TestDeliveryRepo_CheckIdempotency_ConflictLeavesNoRow(t *testing.T) {
	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewDeliveryRepo(db)
		deliveryID := uniqueDeliveryID("rollback")

		first := newCheckRequest(deliveryID)
		_, err := repo.CheckIdempotency(ctx, first)
		require.NoError(t, err)

		tampered := first
		tampered.PayloadHash = model.HashPayload([]byte(`{"type":"buddy.match.created","data":{"x":1}}`))
		_, err = repo.CheckIdempotency(ctx, tampered)
		require.Error(t, err)
		require.True(t, apperrors.IsConflict(err))

		// The rejected attempt's transaction must leave the original
		// record untouched.
		record, err := repo.GetByDeliveryID(ctx, deliveryID)
		require.NoError(t, err)
		assert.Equal(t, first.PayloadHash, record.PayloadHash)
		assert.Equal(t, model.DeliveryStatusProcessing, record.Status)
	})
}
