package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/buddyhq/webhook-ingest/internal/core"
	"github.com/buddyhq/webhook-ingest/internal/domain/model"
)

// DLQNotifier receives a copy of every newly dead-lettered delivery.
// Notification is fire-and-forget; failures never affect the pipeline.
type DLQNotifier interface {
	Notify(ctx context.Context, entry *model.DLQEntry) error
}

// DLQServiceOptions groups dependencies for DLQService.
type DLQServiceOptions struct {
	Repo     core.DLQRepository // Required: dead letter store
	Notifier DLQNotifier        // Optional: escalation sink
	Logger   *slog.Logger       // Optional: structured logger
}

// DLQService provides business logic for the dead letter queue:
// enqueueing parked deliveries, escalating them to operators, and
// serving stats for observability endpoints and the admin CLI.
type DLQService struct {
	repo     core.DLQRepository
	notifier DLQNotifier
	logger   *slog.Logger
}

// NewDLQService constructs a new DLQService.
func NewDLQService(opts DLQServiceOptions) *DLQService {
	if opts.Repo == nil {
		panic("DLQRepository is required")
	}
	return &DLQService{
		repo:     opts.Repo,
		notifier: opts.Notifier,
		logger:   opts.Logger,
	}
}

// Enqueue parks a delivery in the dead letter queue and notifies the
// escalation sink when one is configured. Enqueueing an already parked
// delivery is a no-op and does not re-notify.
func (s *DLQService) Enqueue(ctx context.Context, req model.EnqueueDLQRequest) (*model.DLQEntry, error) {
	entry, err := s.repo.Enqueue(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("enqueue dlq entry: %w", err)
	}

	if s.logger != nil {
		s.logger.WarnContext(ctx, "delivery dead-lettered",
			"delivery_id", entry.DeliveryID,
			"event_type", entry.EventType,
			"error_category", entry.ErrorCategory,
			"retry_count", entry.RetryCountAtFailure)
	}

	if s.notifier != nil {
		go s.notify(entry)
	}
	return entry, nil
}

// notify runs detached from the request so a slow escalation endpoint
// cannot hold up the ingest path.
func (s *DLQService) notify(entry *model.DLQEntry) {
	if err := s.notifier.Notify(context.Background(), entry); err != nil && s.logger != nil {
		s.logger.Warn("dlq escalation notify failed",
			"delivery_id", entry.DeliveryID,
			"error", err)
	}
}

// Stats returns the queue size, per-event-type counts, and oldest entry.
func (s *DLQService) Stats(ctx context.Context) (*model.DLQStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("dlq stats: %w", err)
	}
	return stats, nil
}

// List returns parked deliveries, oldest first.
func (s *DLQService) List(ctx context.Context, limit, offset int) ([]model.DLQEntry, error) {
	entries, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list dlq entries: %w", err)
	}
	return entries, nil
}
