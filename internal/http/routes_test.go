package httpx

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/buddyhq/webhook-ingest/internal/domain/model"
	"github.com/buddyhq/webhook-ingest/internal/service"
)

func TestHealthEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	for _, path := range []string{"/health", "/healthz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestHealthEndpoint_DegradedWhenBreakerOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	// Trip a breaker past its threshold.
	b := f.registry.Breaker("buddy-api")
	for i := 0; i < 5; i++ {
		_ = b.Execute(func() error { return errors.New("boom") })
	}
	require.Equal(t, "open", b.State())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "degraded", body["status"])
}

func TestStatsEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	f.dlqRepo.EXPECT().Stats(gomock.Any()).Return(&model.DLQStats{
		Count:       2,
		ByEventType: map[string]int{"buddy.match.created": 2},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	dlq, ok := body["dlq"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), dlq["count"])
	_, ok = body["resilience"]
	assert.True(t, ok)
}

func TestDLQListEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	f.dlqRepo.EXPECT().
		List(gomock.Any(), 10, 5).
		Return([]model.DLQEntry{{DeliveryID: "evt-1", EnqueuedAt: time.Now()}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/dlq?limit=10&offset=5", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	entries, ok := body["entries"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
}

func TestAdminResetBreaker(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	b := f.registry.Breaker("buddy-api")
	for i := 0; i < 5; i++ {
		_ = b.Execute(func() error { return errors.New("boom") })
	}
	require.Equal(t, "open", b.State())

	req := httptest.NewRequest(http.MethodPost, "/admin/circuit-breaker/reset",
		strings.NewReader(`{"name":"buddy-api"}`))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "closed", b.State())
}

func TestAdminResetBreaker_UnknownName(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	req := httptest.NewRequest(http.MethodPost, "/admin/circuit-breaker/reset",
		strings.NewReader(`{"name":"nope"}`))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminResetBreaker_MissingName(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	req := httptest.NewRequest(http.MethodPost, "/admin/circuit-breaker/reset",
		strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminResetLimiter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	limiters := f.registry.Limiters()
	for limiters.Allow(service.LimiterIngest) {
	}
	require.False(t, limiters.Allow(service.LimiterIngest))

	req := httptest.NewRequest(http.MethodPost, "/admin/rate-limiter/reset",
		strings.NewReader(`{"name":"`+service.LimiterIngest+`"}`))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, limiters.Allow(service.LimiterIngest))
}
