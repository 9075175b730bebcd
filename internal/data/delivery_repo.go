// Package data provides database access layer and repository implementations
// for the webhook ingestion pipeline.
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/buddyhq/webhook-ingest/internal/data/pgxutil"
	"github.com/buddyhq/webhook-ingest/internal/domain/model"
	apperrors "github.com/buddyhq/webhook-ingest/internal/errors"
)

const deliveryColumns = `id, delivery_id, event_type, payload_hash, status, retry_count, last_error, created_at, updated_at`

// DeliveryRepo provides database operations for webhook delivery records.
// The lookup-and-create step is a single conditional insert so that
// across concurrent redeliveries of one delivery ID exactly one caller
// wins the attempt.
type DeliveryRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewDeliveryRepo creates a new DeliveryRepo with a real time provider.
func NewDeliveryRepo(db *sql.DB) *DeliveryRepo {
	return &DeliveryRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewDeliveryRepoWithTimeProvider creates a new DeliveryRepo with a custom time provider (useful for tests).
func NewDeliveryRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *DeliveryRepo {
	return &DeliveryRepo{DB: db, timeProvider: tp}
}

// CheckIdempotency performs the atomic lookup-or-create step for an
// inbound delivery. Outcomes:
//   - first sighting: record created, this caller should process
//   - completed record: already processed
//   - failed record with retry budget left: one caller wins the retry
//   - failed record with budget exhausted: route to DLQ, do not process
//   - pending/processing record: another attempt is in flight, wait
//   - stored payload hash differs: conflict error, never merged
func (r *DeliveryRepo) CheckIdempotency(
	ctx context.Context,
	req model.CheckDeliveryRequest,
) (*model.IdempotencyDecision, error) {
	if req.DeliveryID == "" {
		return nil, apperrors.ValidationField("delivery_id", "delivery ID is required")
	}

	// The insert and the claim commit together: a crash between them must
	// not strand a delivery in pending, a state nothing can reclaim.
	var decision *model.IdempotencyDecision
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{Fn: func(tx pgx.Tx) error {
		var execErr error
		decision, execErr = r.checkInTx(ctx, tx, req)
		return execErr
	}})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return decision, nil
}

// pgxQuerier is the query surface shared by *pgx.Conn and pgx.Tx.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *DeliveryRepo) checkInTx(
	ctx context.Context,
	q pgxQuerier,
	req model.CheckDeliveryRequest,
) (*model.IdempotencyDecision, error) {
	now := r.timeProvider.Now().UTC()

	// Conditional insert: exactly one concurrent caller gets the new row back.
	rows, err := q.Query(ctx, `
		INSERT INTO deliveries (`+deliveryColumns+`)
		VALUES ($1, $2, $3, $4, 'pending', 0, NULL, $5, $5)
		ON CONFLICT (delivery_id) DO NOTHING
		RETURNING `+deliveryColumns,
		uuid.NewString(), req.DeliveryID, req.EventType, req.PayloadHash, now)
	if err != nil {
		return nil, fmt.Errorf("insert delivery: %w", err)
	}
	created, err := scanOneDelivery(rows)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if created != nil {
		return r.claimAttempt(ctx, q, created, claimFromPending)
	}

	// The record already existed; decide from its current state.
	existing, err := r.get(ctx, q, req.DeliveryID)
	if err != nil {
		return nil, err
	}

	if existing.PayloadHash != req.PayloadHash {
		return nil, apperrors.Conflictf(
			"delivery %s re-sent with a different payload", req.DeliveryID)
	}

	switch existing.Status {
	case model.DeliveryStatusCompleted:
		return &model.IdempotencyDecision{AlreadyProcessed: true, Delivery: existing}, nil

	case model.DeliveryStatusFailed:
		if existing.RetryCount >= req.MaxRetries {
			return &model.IdempotencyDecision{Delivery: existing}, nil
		}
		return r.claimAttempt(ctx, q, existing, claimFromFailed(req.MaxRetries))

	default:
		// pending or processing: another attempt is in flight.
		return &model.IdempotencyDecision{Delivery: existing}, nil
	}
}

type claimCondition struct {
	clause string
	args   []any
}

var claimFromPending = claimCondition{clause: `status = 'pending'`}

func claimFromFailed(maxRetries int) claimCondition {
	return claimCondition{clause: `status = 'failed' AND retry_count < $3`, args: []any{maxRetries}}
}

// claimAttempt moves a record into processing with a compare-and-set so
// that two callers racing for the same attempt generation cannot both win.
func (r *DeliveryRepo) claimAttempt(
	ctx context.Context,
	q pgxQuerier,
	current *model.DeliveryRecord,
	cond claimCondition,
) (*model.IdempotencyDecision, error) {
	now := r.timeProvider.Now().UTC()
	args := append([]any{current.DeliveryID, now}, cond.args...)

	rows, err := q.Query(ctx, `
		UPDATE deliveries
		SET status = 'processing', updated_at = $2
		WHERE delivery_id = $1 AND `+cond.clause+`
		RETURNING `+deliveryColumns, args...)
	if err != nil {
		return nil, fmt.Errorf("claim delivery attempt: %w", err)
	}
	claimed, err := scanOneDelivery(rows)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the claim race; report the record as in flight.
			refreshed, refErr := r.get(ctx, q, current.DeliveryID)
			if refErr != nil {
				return nil, refErr
			}
			if refreshed.Status == model.DeliveryStatusCompleted {
				return &model.IdempotencyDecision{AlreadyProcessed: true, Delivery: refreshed}, nil
			}
			return &model.IdempotencyDecision{Delivery: refreshed}, nil
		}
		return nil, err
	}

	return &model.IdempotencyDecision{ShouldProcess: true, Delivery: claimed}, nil
}

// MarkProcessed records a successful attempt.
func (r *DeliveryRepo) MarkProcessed(ctx context.Context, deliveryID string) error {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE deliveries
		SET status = 'completed', updated_at = $2
		WHERE delivery_id = $1 AND status = 'processing'`,
		deliveryID, now)
	if err != nil {
		return apperrors.MapDBError(fmt.Errorf("mark delivery processed: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark delivery processed: %w", err)
	}
	if affected == 0 {
		return apperrors.NotFoundf("no processing delivery %s to complete", deliveryID)
	}
	return nil
}

// MarkFailed records a failed attempt, increments the retry count, and
// returns the updated record so the caller can re-check retry exhaustion.
func (r *DeliveryRepo) MarkFailed(
	ctx context.Context,
	deliveryID, errMsg string,
) (*model.DeliveryRecord, error) {
	now := r.timeProvider.Now().UTC()

	var updated *model.DeliveryRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `
			UPDATE deliveries
			SET status = 'failed', retry_count = retry_count + 1, last_error = $2, updated_at = $3
			WHERE delivery_id = $1 AND status = 'processing'
			RETURNING `+deliveryColumns,
			deliveryID, errMsg, now)
		if qErr != nil {
			return fmt.Errorf("mark delivery failed: %w", qErr)
		}
		var scanErr error
		updated, scanErr = scanOneDelivery(rows)
		return scanErr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("no processing delivery %s to fail", deliveryID)
		}
		return nil, apperrors.MapDBError(err)
	}
	return updated, nil
}

// GetByDeliveryID fetches the current record for a delivery ID.
func (r *DeliveryRepo) GetByDeliveryID(
	ctx context.Context,
	deliveryID string,
) (*model.DeliveryRecord, error) {
	var record *model.DeliveryRecord
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var getErr error
		record, getErr = r.get(ctx, conn, deliveryID)
		return getErr
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return record, nil
}

func (r *DeliveryRepo) get(
	ctx context.Context,
	q pgxQuerier,
	deliveryID string,
) (*model.DeliveryRecord, error) {
	rows, err := q.Query(ctx, `
		SELECT `+deliveryColumns+`
		FROM deliveries
		WHERE delivery_id = $1`,
		deliveryID)
	if err != nil {
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return scanOneDelivery(rows)
}

func scanOneDelivery(rows pgx.Rows) (*model.DeliveryRecord, error) {
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	var d model.DeliveryRecord
	if err := rows.Scan(
		&d.ID,
		&d.DeliveryID,
		&d.EventType,
		&d.PayloadHash,
		&d.Status,
		&d.RetryCount,
		&d.LastError,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan delivery: %w", err)
	}
	rows.Close()
	return &d, rows.Err()
}
