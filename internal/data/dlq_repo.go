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

const dlqColumns = `id, delivery_id, event_type, raw_payload, error_category, error_message, retry_count_at_failure, enqueued_at`

// DLQRepo persists dead-lettered deliveries for later inspection and
// manual replay. Entries are append-only.
type DLQRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewDLQRepo creates a new DLQRepo with a real time provider.
func NewDLQRepo(db *sql.DB) *DLQRepo {
	return &DLQRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewDLQRepoWithTimeProvider creates a new DLQRepo with a custom time provider (useful for tests).
func NewDLQRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *DLQRepo {
	return &DLQRepo{DB: db, timeProvider: tp}
}

// Enqueue appends a dead-lettered delivery. Re-enqueueing the same
// delivery ID is an idempotent no-op so that racing failure paths do
// not double-record an entry.
func (r *DLQRepo) Enqueue(ctx context.Context, req model.EnqueueDLQRequest) (*model.DLQEntry, error) {
	if req.DeliveryID == "" {
		return nil, apperrors.ValidationField("delivery_id", "delivery ID is required")
	}
	if req.ErrorCategory == "" {
		return nil, apperrors.ValidationField("error_category", "error category is required")
	}

	now := r.timeProvider.Now().UTC()

	var entry *model.DLQEntry
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `
			INSERT INTO dlq_entries (`+dlqColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (delivery_id) DO NOTHING
			RETURNING `+dlqColumns,
			uuid.NewString(), req.DeliveryID, req.EventType, []byte(req.RawPayload),
			req.ErrorCategory, req.ErrorMessage, req.RetryCountAtFailure, now)
		if qErr != nil {
			return fmt.Errorf("enqueue dlq entry: %w", qErr)
		}
		var scanErr error
		entry, scanErr = scanOneDLQEntry(rows)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			// Already dead-lettered; return the existing entry.
			entry, scanErr = r.getWithConn(ctx, conn, req.DeliveryID)
		}
		return scanErr
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return entry, nil
}

// Stats reports the DLQ size, a per-event-type breakdown, and the
// enqueue time of the oldest entry.
func (r *DLQRepo) Stats(ctx context.Context) (*model.DLQStats, error) {
	stats := &model.DLQStats{ByEventType: map[string]int{}}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `
			SELECT event_type, COUNT(*), MIN(enqueued_at)
			FROM dlq_entries
			GROUP BY event_type`)
		if qErr != nil {
			return fmt.Errorf("dlq stats: %w", qErr)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				eventType string
				count     int
				oldest    sql.NullTime
			)
			if scanErr := rows.Scan(&eventType, &count, &oldest); scanErr != nil {
				return fmt.Errorf("scan dlq stats: %w", scanErr)
			}
			stats.Count += count
			stats.ByEventType[eventType] = count
			if oldest.Valid && (stats.OldestEntry == nil || oldest.Time.Before(*stats.OldestEntry)) {
				t := oldest.Time
				stats.OldestEntry = &t
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return stats, nil
}

// List returns DLQ entries ordered oldest first.
func (r *DLQRepo) List(ctx context.Context, limit, offset int) ([]model.DLQEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var entries []model.DLQEntry
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `
			SELECT `+dlqColumns+`
			FROM dlq_entries
			ORDER BY enqueued_at ASC
			LIMIT $1 OFFSET $2`,
			limit, offset)
		if qErr != nil {
			return fmt.Errorf("list dlq entries: %w", qErr)
		}
		defer rows.Close()

		for rows.Next() {
			entry, scanErr := scanDLQEntry(rows)
			if scanErr != nil {
				return scanErr
			}
			entries = append(entries, *entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return entries, nil
}

func (r *DLQRepo) getWithConn(ctx context.Context, conn *pgx.Conn, deliveryID string) (*model.DLQEntry, error) {
	rows, err := conn.Query(ctx, `
		SELECT `+dlqColumns+`
		FROM dlq_entries
		WHERE delivery_id = $1`,
		deliveryID)
	if err != nil {
		return nil, fmt.Errorf("get dlq entry: %w", err)
	}
	return scanOneDLQEntry(rows)
}

func scanOneDLQEntry(rows pgx.Rows) (*model.DLQEntry, error) {
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	entry, err := scanDLQEntry(rows)
	if err != nil {
		return nil, err
	}
	rows.Close()
	return entry, rows.Err()
}

func scanDLQEntry(rows pgx.Rows) (*model.DLQEntry, error) {
	var (
		e       model.DLQEntry
		payload []byte
	)
	if err := rows.Scan(
		&e.ID,
		&e.DeliveryID,
		&e.EventType,
		&payload,
		&e.ErrorCategory,
		&e.ErrorMessage,
		&e.RetryCountAtFailure,
		&e.EnqueuedAt,
	); err != nil {
		return nil, fmt.Errorf("scan dlq entry: %w", err)
	}
	e.RawPayload = payload
	return &e, nil
}
