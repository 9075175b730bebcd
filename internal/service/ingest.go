package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/buddyhq/webhook-ingest/config"
	"github.com/buddyhq/webhook-ingest/internal/core"
	"github.com/buddyhq/webhook-ingest/internal/domain/model"
	apperrors "github.com/buddyhq/webhook-ingest/internal/errors"
	"github.com/buddyhq/webhook-ingest/internal/resilience"
	"github.com/buddyhq/webhook-ingest/internal/signature"
)

// Resilience instance names used by the ingest pipeline.
const (
	// LimiterIngest is the token bucket guarding POST /events.
	LimiterIngest = "ingest"
	// BulkheadProcessing caps concurrent processor executions.
	BulkheadProcessing = "webhook-processing"
)

// IngestStatus describes the pipeline outcome reported to the caller.
type IngestStatus string

const (
	// IngestStatusProcessed means the processor ran now and succeeded.
	IngestStatusProcessed IngestStatus = "processed"
	// IngestStatusAlreadyProcessed means an earlier delivery already completed.
	IngestStatusAlreadyProcessed IngestStatus = "already_processed"
	// IngestStatusDeadLettered means the delivery is parked in the DLQ.
	IngestStatusDeadLettered IngestStatus = "dead_lettered"
	// IngestStatusInFlight means another attempt holds the delivery right now.
	IngestStatusInFlight IngestStatus = "in_flight"
)

// IngestRequest is one inbound webhook delivery.
type IngestRequest struct {
	DeliveryID string
	Signature  string
	Body       []byte
}

// IngestResult is the outcome of a delivery that was not rejected outright.
type IngestResult struct {
	Status           IngestStatus          `json:"status"`
	AlreadyProcessed bool                  `json:"already_processed"`
	Delivery         *model.DeliveryRecord `json:"delivery,omitempty"`
}

// IngestRepos groups the persistence dependencies of the pipeline.
type IngestRepos struct {
	Deliveries core.DeliveryRepository // Required: durable idempotency store
	DLQ        *DLQService             // Required: dead letter routing
	Claims     core.ClaimStore         // Optional: cross-instance in-flight fencing
}

// IngestPipeline groups the verification and resilience dependencies.
type IngestPipeline struct {
	Verifier   *signature.Verifier
	Resilience *resilience.Registry
	Processors *ProcessorRegistry
}

// IngestServiceOptions groups dependencies for IngestService.
type IngestServiceOptions struct {
	Repos    IngestRepos
	Pipeline IngestPipeline
	Config   config.WebhookConfig
	Logger   *slog.Logger     // Optional: structured logger
	Metrics  core.MetricsSink // Optional: fire-and-forget counters
}

// IngestService drives a delivery through the pipeline: signature and
// replay verification, rate limiting, envelope validation, idempotency
// resolution, then a bulkhead-admitted, breaker-guarded, timeout-bounded
// processor call, and finally outcome recording with DLQ routing.
//
// Failures before the idempotency store is touched reject the request
// without writing anything, so redelivery stays safe. Once an attempt is
// claimed, exactly one of MarkProcessed or MarkFailed runs on every exit
// path.
type IngestService struct {
	deliveries core.DeliveryRepository
	dlq        *DLQService
	claims     core.ClaimStore
	verifier   *signature.Verifier
	res        *resilience.Registry
	procs      *ProcessorRegistry
	cfg        config.WebhookConfig
	logger     *slog.Logger
	metrics    core.MetricsSink
}

// NewIngestService constructs a new IngestService.
func NewIngestService(opts IngestServiceOptions) *IngestService {
	if opts.Repos.Deliveries == nil {
		panic("DeliveryRepository is required")
	}
	if opts.Repos.DLQ == nil {
		panic("DLQService is required")
	}
	if opts.Pipeline.Verifier == nil {
		panic("signature Verifier is required")
	}
	if opts.Pipeline.Resilience == nil {
		panic("resilience Registry is required")
	}
	if opts.Pipeline.Processors == nil {
		panic("ProcessorRegistry is required")
	}

	return &IngestService{
		deliveries: opts.Repos.Deliveries,
		dlq:        opts.Repos.DLQ,
		claims:     opts.Repos.Claims,
		verifier:   opts.Pipeline.Verifier,
		res:        opts.Pipeline.Resilience,
		procs:      opts.Pipeline.Processors,
		cfg:        opts.Config,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

// Ingest runs the pipeline for one delivery.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	s.count("ingest.received", nil)

	if req.DeliveryID == "" {
		return nil, apperrors.ValidationField("X-Delivery-Id", "delivery ID header is required")
	}

	if err := s.verifier.Verify(req.Signature, req.Body); err != nil {
		s.count("ingest.unauthorized", nil)
		return nil, err
	}

	if !s.res.Limiters().Allow(LimiterIngest) {
		s.count("ingest.rate_limited", nil)
		return nil, apperrors.RateLimited("ingest rate limit exceeded")
	}

	envelope, err := model.ParseEventEnvelope(req.Body)
	if err != nil {
		s.count("ingest.invalid", nil)
		return nil, apperrors.Validation(err.Error())
	}
	proc, ok := s.procs.Lookup(envelope.Type)
	if !ok {
		s.count("ingest.invalid", nil)
		return nil, apperrors.ValidationField("type",
			fmt.Sprintf("unknown event type %q", envelope.Type))
	}

	release, claimResult, err := s.claim(ctx, req.DeliveryID)
	if err != nil {
		return nil, err
	}
	if claimResult != nil {
		return claimResult, nil
	}
	defer release()

	decision, err := s.deliveries.CheckIdempotency(ctx, model.CheckDeliveryRequest{
		DeliveryID:  req.DeliveryID,
		EventType:   envelope.Type.String(),
		PayloadHash: model.HashPayload(req.Body),
		MaxRetries:  s.cfg.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	if !decision.ShouldProcess {
		return s.shortCircuit(ctx, req, decision)
	}

	return s.processAndRecord(ctx, req, envelope, proc)
}

// RetryAfter returns the suggested client backoff when the ingest
// limiter rejected a request.
func (s *IngestService) RetryAfter() time.Duration {
	return s.res.Limiters().RetryAfter(LimiterIngest)
}

// claim takes the cross-instance in-flight claim when a claim store is
// configured. It returns a release func for the winner, or a short-
// circuit result when another instance holds the claim. Claim store
// outages degrade per the configured failure policy: fail-open proceeds
// on database-only dedup, fail-closed rejects with a retryable error.
func (s *IngestService) claim(ctx context.Context, deliveryID string) (func(), *IngestResult, error) {
	noop := func() {}
	if s.claims == nil {
		return noop, nil, nil
	}

	won, err := s.claims.TryClaim(ctx, deliveryID, s.cfg.ClaimTTL)
	if err != nil {
		if s.cfg.ClaimFailurePolicy == config.FailClosed {
			return noop, nil, apperrors.Wrap(err, apperrors.ErrCodeTransient,
				"delivery claim store unavailable")
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "claim store unavailable, proceeding on database dedup",
				"delivery_id", deliveryID, "error", err)
		}
		return noop, nil, nil
	}
	if won {
		release := func() {
			if relErr := s.claims.ReleaseClaim(ctx, deliveryID); relErr != nil && s.logger != nil {
				s.logger.WarnContext(ctx, "failed to release delivery claim",
					"delivery_id", deliveryID, "error", relErr)
			}
		}
		return release, nil, nil
	}

	// Another instance holds the claim. Answer from the durable store
	// when it already knows the outcome, otherwise report in flight.
	record, getErr := s.deliveries.GetByDeliveryID(ctx, deliveryID)
	if getErr == nil && record.Status == model.DeliveryStatusCompleted {
		return noop, &IngestResult{
			Status:           IngestStatusAlreadyProcessed,
			AlreadyProcessed: true,
			Delivery:         record,
		}, nil
	}
	return noop, &IngestResult{Status: IngestStatusInFlight, Delivery: record}, nil
}

// shortCircuit answers a delivery whose idempotency decision forbids a
// new processing attempt.
func (s *IngestService) shortCircuit(
	ctx context.Context,
	req IngestRequest,
	decision *model.IdempotencyDecision,
) (*IngestResult, error) {
	if decision.AlreadyProcessed {
		s.count("ingest.already_processed", nil)
		return &IngestResult{
			Status:           IngestStatusAlreadyProcessed,
			AlreadyProcessed: true,
			Delivery:         decision.Delivery,
		}, nil
	}

	record := decision.Delivery
	if record != nil && record.Status == model.DeliveryStatusFailed &&
		record.RetriesExhausted(s.cfg.MaxRetries) {
		// The enqueue is idempotent; this also repairs a missed DLQ
		// write if the exhausting attempt crashed before enqueueing.
		if err := s.deadLetter(ctx, req, record, apperrors.ErrCodeTransient); err != nil {
			return nil, err
		}
		return &IngestResult{Status: IngestStatusDeadLettered, Delivery: record}, nil
	}

	return &IngestResult{Status: IngestStatusInFlight, Delivery: record}, nil
}

// processAndRecord runs the guarded processor call and records exactly
// one outcome for the claimed attempt.
func (s *IngestService) processAndRecord(
	ctx context.Context,
	req IngestRequest,
	envelope *model.EventEnvelope,
	proc Processor,
) (*IngestResult, error) {
	started := time.Now()
	procErr := s.execute(ctx, req.DeliveryID, envelope, proc)
	s.timing("ingest.processing_duration", time.Since(started),
		map[string]string{"event_type": envelope.Type.String()})

	if procErr == nil {
		if err := s.deliveries.MarkProcessed(ctx, req.DeliveryID); err != nil {
			return nil, fmt.Errorf("mark processed: %w", err)
		}
		s.count("ingest.processed", map[string]string{"event_type": envelope.Type.String()})
		return &IngestResult{Status: IngestStatusProcessed}, nil
	}

	return s.recordFailure(ctx, req, proc, procErr)
}

// execute wraps the processor in bulkhead admission, the dependency's
// circuit breaker, and the processing timeout. The timeout sits inside
// the breaker so a timed-out call counts as a breaker failure.
func (s *IngestService) execute(
	ctx context.Context,
	deliveryID string,
	envelope *model.EventEnvelope,
	proc Processor,
) error {
	return s.res.Bulkhead(BulkheadProcessing).Execute(ctx, func(ctx context.Context) error {
		return s.res.Breaker(proc.Dependency).Execute(func() error {
			return resilience.WithTimeout(ctx, proc.Dependency, s.cfg.ProcessingTimeout,
				func(ctx context.Context) error {
					return proc.Fn(ctx, envelope, deliveryID)
				})
		})
	})
}

// recordFailure marks the attempt failed and routes to the DLQ when the
// error is permanent or the retry budget is exhausted.
func (s *IngestService) recordFailure(
	ctx context.Context,
	req IngestRequest,
	proc Processor,
	procErr error,
) (*IngestResult, error) {
	code := apperrors.Categorize(procErr)
	s.count("ingest.failed", map[string]string{
		"event_type":     proc.Kind.String(),
		"error_category": string(code),
	})
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "delivery processing failed",
			"delivery_id", req.DeliveryID,
			"event_type", proc.Kind.String(),
			"error_category", string(code),
			"error", procErr)
	}

	updated, err := s.deliveries.MarkFailed(ctx, req.DeliveryID, procErr.Error())
	if err != nil {
		return nil, fmt.Errorf("mark failed: %w", err)
	}

	if apperrors.RoutesToDLQImmediately(code) || updated.RetriesExhausted(s.cfg.MaxRetries) {
		if dlqErr := s.deadLetter(ctx, req, updated, code); dlqErr != nil {
			return nil, dlqErr
		}
		return &IngestResult{Status: IngestStatusDeadLettered, Delivery: updated}, nil
	}

	// Retry budget remains; the caller gets a retryable error and the
	// record stays failed until the partner redelivers.
	return nil, procErr
}

func (s *IngestService) deadLetter(
	ctx context.Context,
	req IngestRequest,
	record *model.DeliveryRecord,
	code apperrors.ErrorCode,
) error {
	errMsg := ""
	if record.LastError != nil {
		errMsg = *record.LastError
	}
	_, err := s.dlq.Enqueue(ctx, model.EnqueueDLQRequest{
		DeliveryID:          req.DeliveryID,
		EventType:           record.EventType,
		RawPayload:          json.RawMessage(req.Body),
		ErrorCategory:       string(code),
		ErrorMessage:        errMsg,
		RetryCountAtFailure: record.RetryCount,
	})
	if err != nil {
		return err
	}
	s.count("ingest.dead_lettered", map[string]string{"event_type": record.EventType})
	return nil
}

func (s *IngestService) count(name string, tags map[string]string) {
	if s.metrics != nil {
		s.metrics.Count(name, 1, tags)
	}
}

func (s *IngestService) timing(name string, d time.Duration, tags map[string]string) {
	if s.metrics != nil {
		s.metrics.Timing(name, d, tags)
	}
}
