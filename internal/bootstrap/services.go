package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/buddyhq/webhook-ingest/config"
	"github.com/buddyhq/webhook-ingest/internal/core"
	"github.com/buddyhq/webhook-ingest/internal/data"
	"github.com/buddyhq/webhook-ingest/internal/observability/statsd"
	"github.com/buddyhq/webhook-ingest/internal/resilience"
	"github.com/buddyhq/webhook-ingest/internal/service"
	"github.com/buddyhq/webhook-ingest/internal/signature"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Ingest     *service.IngestService
	DLQ        *service.DLQService
	Resilience *resilience.Registry

	// MetricsSink is closed during shutdown. Nil when metrics are disabled.
	MetricsSink statsd.Sink
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires repositories, the resilience registry, and the
// ingestion pipeline.
func NewServices(ctx context.Context, deps *ServiceDeps) ServiceContainer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	registry := resilience.NewRegistry(resilienceSettings(cfg.Resilience), logger)
	metricsSink := buildMetricsSink(ctx, logger, cfg.Observability.Metrics)

	dlq := service.NewDLQService(service.DLQServiceOptions{
		Repo:     data.NewDLQRepo(deps.DB),
		Notifier: buildDLQNotifier(logger, cfg.Observability.DLQSink),
		Logger:   logger,
	})

	var claims core.ClaimStore
	if deps.RedisClient != nil {
		claims = data.NewRedisClaimRepo(deps.RedisClient)
	}

	ingest := service.NewIngestService(service.IngestServiceOptions{
		Repos: service.IngestRepos{
			Deliveries: data.NewDeliveryRepo(deps.DB),
			DLQ:        dlq,
			Claims:     claims,
		},
		Pipeline: service.IngestPipeline{
			Verifier:   signature.NewVerifier(cfg.Webhook.SigningSecret, cfg.Webhook.ReplayWindow),
			Resilience: registry,
			Processors: buildProcessors(logger),
		},
		Config:  cfg.Webhook,
		Logger:  logger,
		Metrics: metricsSink,
	})

	return ServiceContainer{
		Ingest:      ingest,
		DLQ:         dlq,
		Resilience:  registry,
		MetricsSink: metricsSink,
	}
}

func resilienceSettings(cfg config.ResilienceConfig) resilience.Settings {
	return resilience.Settings{
		Breaker: resilience.BreakerSettings{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Cooldown:         cfg.Breaker.Cooldown,
			HalfOpenMaxCalls: cfg.Breaker.HalfOpenMaxCalls,
		},
		Bulkhead: resilience.BulkheadSettings{
			MaxConcurrency: cfg.Bulkhead.MaxConcurrency,
			MaxQueue:       cfg.Bulkhead.MaxQueue,
		},
		RateLimit: resilience.RateLimitSettings{
			Capacity:        cfg.RateLimit.Capacity,
			RefillPerSecond: cfg.RateLimit.RefillPerSecond,
		},
	}
}

// buildMetricsSink returns nil when metrics are disabled or the sink
// cannot be constructed. Metrics are best effort, never a startup failure.
//
//nolint:ireturn // statsd.Sink keeps the nop and UDP clients interchangeable.
func buildMetricsSink(ctx context.Context, logger *slog.Logger, cfg config.ObservabilityMetricsConfig) statsd.Sink {
	if !cfg.IsEnabled() {
		return nil
	}

	sink, err := statsd.New(ctx, statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  "webhook_ingest",
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}

	logger.Info("statsd metrics enabled", "addr", cfg.StatsdAddress)
	return sink
}

// buildDLQNotifier returns nil when escalation is disabled or the sink
// configuration is invalid.
//
//nolint:ireturn // service.DLQNotifier is the seam the DLQ service consumes.
func buildDLQNotifier(logger *slog.Logger, cfg config.DLQSinkConfig) service.DLQNotifier {
	if !cfg.Enabled {
		return nil
	}

	sink, err := service.NewHTTPDLQSink(service.HTTPDLQSinkOptions{Config: cfg})
	if err != nil {
		logger.Error("failed to initialise dlq sink, escalation disabled", "error", err)
		return nil
	}

	logger.Info("dlq escalation sink enabled", "url", cfg.URL)
	return sink
}
