package config

import (
	"strings"
	"time"
)

const defaultObservabilityName = "webhook-ingest"

// ObservabilityConfig groups configuration that controls metrics and DLQ escalation.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig
	DLQSink DLQSinkConfig `envPrefix:"OBSERVABILITY_DLQ_SINK_"`
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.DLQSink.Sanitize()
}

// ObservabilityMetricsConfig controls emission of metrics to external sinks such as StatsD.
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// DLQSinkConfig controls the best-effort HTTP notification sent when a
// delivery is parked in the dead letter queue.
type DLQSinkConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"false"`
	URL     string `env:"URL"`
	// Transform is an optional JMESPath expression applied to the DLQ entry
	// before it is posted to the sink.
	Transform string        `env:"TRANSFORM"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

// Sanitize normalises DLQ sink configuration values.
func (c *DLQSinkConfig) Sanitize() {
	c.URL = strings.TrimSpace(c.URL)
	c.Transform = strings.TrimSpace(c.Transform)
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.URL == "" {
		c.Enabled = false
	}
}
