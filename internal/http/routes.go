// Package httpx wires the HTTP surface of the webhook ingestion
// service: the intake endpoint, observability endpoints, and operator
// admin endpoints.
package httpx

import (
	"log/slog"
	"net/http"

	"github.com/buddyhq/webhook-ingest/internal/resilience"
	"github.com/buddyhq/webhook-ingest/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Ingest     *service.IngestService
	DLQ        *service.DLQService
	Resilience *resilience.Registry

	MaxBodyBytes int64
	Logger       *slog.Logger // Optional
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	events := NewEventHandlers(EventHandlersOptions{
		Ingest:       services.Ingest,
		MaxBodyBytes: services.MaxBodyBytes,
		Logger:       services.Logger,
	})
	stats := &StatsHandlers{DLQ: services.DLQ, Resilience: services.Resilience}
	health := &HealthHandlers{Resilience: services.Resilience}
	admin := &AdminHandlers{Resilience: services.Resilience}

	mux.HandleFunc("POST /events", events.Ingest)

	mux.HandleFunc("GET /stats", stats.Stats)
	mux.HandleFunc("GET /dlq", stats.DLQList)

	mux.HandleFunc("GET /health", health.Health)
	mux.HandleFunc("HEAD /health", health.Health)
	mux.HandleFunc("GET /healthz", health.Health)
	mux.HandleFunc("HEAD /healthz", health.Health)

	mux.HandleFunc("POST /admin/circuit-breaker/reset", admin.ResetBreaker)
	mux.HandleFunc("POST /admin/rate-limiter/reset", admin.ResetLimiter)

	return mux
}
