package httpx

import (
	"net/http"

	"github.com/buddyhq/webhook-ingest/internal/resilience"
)

// HealthHandlers serves liveness/readiness probes. The service reports
// degraded (503) while any circuit breaker is open, so load balancers
// shift traffic until the downstream recovers.
type HealthHandlers struct {
	Resilience *resilience.Registry
}

// Health handles GET/HEAD /health and /healthz.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.Resilience != nil && h.Resilience.AnyBreakerOpen() {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
