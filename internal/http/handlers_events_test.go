package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/buddyhq/webhook-ingest/config"
	"github.com/buddyhq/webhook-ingest/internal/domain/model"
	apperrors "github.com/buddyhq/webhook-ingest/internal/errors"
	"github.com/buddyhq/webhook-ingest/internal/mocks"
	"github.com/buddyhq/webhook-ingest/internal/resilience"
	"github.com/buddyhq/webhook-ingest/internal/service"
	"github.com/buddyhq/webhook-ingest/internal/signature"
)

const testSecret = "router-test-secret"

var eventBody = []byte(`{"type":"buddy.match.created","data":{"match_id":"m-1"}}`)

type routerFixture struct {
	handler    http.Handler
	deliveries *mocks.MockDeliveryRepository
	dlqRepo    *mocks.MockDLQRepository
	verifier   *signature.Verifier
	registry   *resilience.Registry
	procErr    *error
}

func newRouterFixture(t *testing.T, ctrl *gomock.Controller) *routerFixture {
	t.Helper()

	deliveries := mocks.NewMockDeliveryRepository(ctrl)
	dlqRepo := mocks.NewMockDLQRepository(ctrl)
	dlqSvc := service.NewDLQService(service.DLQServiceOptions{Repo: dlqRepo})

	var procErr error
	procs := service.NewProcessorRegistry()
	procs.Register(model.EventKindMatchCreated, "buddy-api",
		func(ctx context.Context, envelope *model.EventEnvelope, deliveryID string) error {
			return procErr
		})

	verifier := signature.NewVerifier(testSecret, 5*time.Minute)
	registry := resilience.NewRegistry(resilience.Settings{
		Breaker:   resilience.BreakerSettings{FailureThreshold: 5, Cooldown: time.Minute, HalfOpenMaxCalls: 2},
		Bulkhead:  resilience.BulkheadSettings{MaxConcurrency: 4, MaxQueue: 4},
		RateLimit: resilience.RateLimitSettings{Capacity: 100, RefillPerSecond: 100},
	}, nil)

	ingest := service.NewIngestService(service.IngestServiceOptions{
		Repos: service.IngestRepos{Deliveries: deliveries, DLQ: dlqSvc},
		Pipeline: service.IngestPipeline{
			Verifier:   verifier,
			Resilience: registry,
			Processors: procs,
		},
		Config: config.WebhookConfig{
			SigningSecret:     testSecret,
			ReplayWindow:      5 * time.Minute,
			MaxRetries:        3,
			ProcessingTimeout: time.Second,
			ClaimTTL:          time.Minute,
			MaxBodyBytes:      1 << 20,
		},
	})

	handler := NewRouter(RouterServices{
		Ingest:       ingest,
		DLQ:          dlqSvc,
		Resilience:   registry,
		MaxBodyBytes: 1 << 20,
	})

	return &routerFixture{
		handler:    handler,
		deliveries: deliveries,
		dlqRepo:    dlqRepo,
		verifier:   verifier,
		registry:   registry,
		procErr:    &procErr,
	}
}

func (f *routerFixture) postEvent(deliveryID string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	if deliveryID != "" {
		req.Header.Set(DeliveryIDHeader, deliveryID)
	}
	req.Header.Set(signature.Header, f.verifier.Sign(body, time.Now()))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func processingRecord(deliveryID string) *model.DeliveryRecord {
	return &model.DeliveryRecord{
		DeliveryID:  deliveryID,
		EventType:   "buddy.match.created",
		PayloadHash: model.HashPayload(eventBody),
		Status:      model.DeliveryStatusProcessing,
	}
}

func TestIngestEndpoint_ProcessedReturns200(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	f.deliveries.EXPECT().
		CheckIdempotency(gomock.Any(), gomock.Any()).
		Return(&model.IdempotencyDecision{ShouldProcess: true, Delivery: processingRecord("evt-1")}, nil)
	f.deliveries.EXPECT().MarkProcessed(gomock.Any(), "evt-1").Return(nil)

	rec := f.postEvent("evt-1", eventBody)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "processed", body["status"])
}

func TestIngestEndpoint_AlreadyProcessedReturns202(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	completed := processingRecord("evt-dup")
	completed.Status = model.DeliveryStatusCompleted

	f.deliveries.EXPECT().
		CheckIdempotency(gomock.Any(), gomock.Any()).
		Return(&model.IdempotencyDecision{AlreadyProcessed: true, Delivery: completed}, nil)

	rec := f.postEvent("evt-dup", eventBody)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "already_processed", body["status"])
	assert.Equal(t, true, body["already_processed"])
}

func TestIngestEndpoint_DeadLetteredReturns202(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	parked := processingRecord("evt-parked")
	parked.Status = model.DeliveryStatusFailed
	parked.RetryCount = 3

	f.deliveries.EXPECT().
		CheckIdempotency(gomock.Any(), gomock.Any()).
		Return(&model.IdempotencyDecision{Delivery: parked}, nil)
	f.dlqRepo.EXPECT().
		Enqueue(gomock.Any(), gomock.Any()).
		Return(&model.DLQEntry{DeliveryID: "evt-parked"}, nil)

	rec := f.postEvent("evt-parked", eventBody)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "dead_lettered", body["status"])
	assert.Equal(t, false, body["already_processed"])
}

func TestIngestEndpoint_MissingDeliveryIDReturns400(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	rec := f.postEvent("", eventBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "validation", body["error"])
}

func TestIngestEndpoint_BadSignatureReturns401(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(eventBody))
	req.Header.Set(DeliveryIDHeader, "evt-sig")
	req.Header.Set(signature.Header, "t=12345,v1=deadbeef")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "unauthorized", body["error"])
}

func TestIngestEndpoint_UnknownTypeReturns400(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	rec := f.postEvent("evt-mystery", []byte(`{"type":"mystery.event","data":{}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestEndpoint_ConflictReturns409(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	f.deliveries.EXPECT().
		CheckIdempotency(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.Conflict("delivery re-sent with a different payload"))

	rec := f.postEvent("evt-conflict", eventBody)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestIngestEndpoint_RetryableFailureReturns503(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)
	*f.procErr = apperrors.Transient("downstream 502")

	failed := processingRecord("evt-fail")
	failed.Status = model.DeliveryStatusFailed
	failed.RetryCount = 1

	f.deliveries.EXPECT().
		CheckIdempotency(gomock.Any(), gomock.Any()).
		Return(&model.IdempotencyDecision{ShouldProcess: true, Delivery: processingRecord("evt-fail")}, nil)
	f.deliveries.EXPECT().
		MarkFailed(gomock.Any(), "evt-fail", gomock.Any()).
		Return(failed, nil)

	rec := f.postEvent("evt-fail", eventBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "transient", body["error"])
}

func TestIngestEndpoint_RateLimitedReturns429WithRetryAfter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	// Drain the ingest bucket directly so the next request is rejected.
	limiters := f.registry.Limiters()
	for limiters.Allow(service.LimiterIngest) {
	}

	rec := f.postEvent("evt-limited", eventBody)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestIngestEndpoint_OversizedBodyReturns413(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	big := bytes.Repeat([]byte("a"), (1<<20)+1)
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(big))
	req.Header.Set(DeliveryIDHeader, "evt-big")
	req.Header.Set(signature.Header, f.verifier.Sign(big, time.Now()))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
