package httpx

import (
	"net/http"
	"strconv"

	"github.com/buddyhq/webhook-ingest/internal/domain/model"
	"github.com/buddyhq/webhook-ingest/internal/resilience"
	"github.com/buddyhq/webhook-ingest/internal/service"
)

// StatsHandlers serves pipeline observability endpoints.
type StatsHandlers struct {
	DLQ        *service.DLQService
	Resilience *resilience.Registry
}

// StatsResponse is the GET /stats body.
type StatsResponse struct {
	DLQ        *model.DLQStats     `json:"dlq"`
	Resilience resilience.Snapshot `json:"resilience"`
}

// Stats handles GET /stats: DLQ totals plus the state of every breaker,
// bulkhead, and rate limiter.
func (h *StatsHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	dlqStats, err := h.DLQ.Stats(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, StatsResponse{
		DLQ:        dlqStats,
		Resilience: h.Resilience.Snapshot(),
	})
}

// DLQList handles GET /dlq: parked deliveries, oldest first.
func (h *StatsHandlers) DLQList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	entries, err := h.DLQ.List(r.Context(), limit, offset)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	if entries == nil {
		entries = []model.DLQEntry{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v := intQuery(r, "limit"); v > 0 && v <= 500 {
		limit = v
	}
	if v := intQuery(r, "offset"); v > 0 {
		offset = v
	}
	return limit, offset
}

func intQuery(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}
