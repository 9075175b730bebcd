// Package statsd emits service metrics over the StatsD UDP line protocol.
package statsd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"time"
)

// Sink is the metric emission surface used by the rest of the service.
// Implementations must be safe for concurrent use.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, d time.Duration, tags map[string]string)
	Close() error
}

// Config controls how the client connects and namespaces metrics.
type Config struct {
	// Enabled short-circuits to a no-op sink when false.
	Enabled bool
	// Address is the host:port of the StatsD collector.
	Address string
	// Prefix is prepended to every metric name, e.g. "webhook_ingest.".
	Prefix string
	// Logger receives send failures. Metrics are best effort so errors
	// are logged, never returned to callers.
	Logger *slog.Logger
}

// New returns a Sink for cfg. When disabled it returns a no-op sink so
// callers never have to nil-check.
func New(ctx context.Context, cfg Config) (Sink, error) {
	if !cfg.Enabled {
		return NopSink{}, nil
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("statsd: address is required when enabled")
	}

	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "udp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("statsd: dial %s: %w", cfg.Address, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		conn:   conn,
		prefix: sanitizePrefix(cfg.Prefix),
		logger: logger.With("component", "statsd"),
	}, nil
}

// Client sends metrics over a UDP connection. Writes are fire and
// forget; a lost datagram never affects request handling.
type Client struct {
	conn   net.Conn
	prefix string
	logger *slog.Logger
}

func (c *Client) Count(name string, value int64, tags map[string]string) {
	c.write(name, fmt.Sprintf("%d|c", value), tags)
}

func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	c.write(name, fmt.Sprintf("%g|g", value), tags)
}

func (c *Client) Timing(name string, d time.Duration, tags map[string]string) {
	c.write(name, fmt.Sprintf("%d|ms", d.Milliseconds()), tags)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) write(name, payload string, tags map[string]string) {
	var b strings.Builder
	b.WriteString(c.prefix)
	b.WriteString(normalizeMetricName(name))
	b.WriteByte(':')
	b.WriteString(payload)
	if suffix := formatTags(tags); suffix != "" {
		b.WriteString("|#")
		b.WriteString(suffix)
	}

	if _, err := c.conn.Write([]byte(b.String())); err != nil {
		c.logger.Warn("metric send failed", "metric", name, "error", err)
	}
}

// NopSink discards all metrics. Used when StatsD is disabled and in
// tests that do not assert on emission.
type NopSink struct{}

func (NopSink) Count(string, int64, map[string]string)          {}
func (NopSink) Gauge(string, float64, map[string]string)        {}
func (NopSink) Timing(string, time.Duration, map[string]string) {}
func (NopSink) Close() error                                    { return nil }

// normalizeMetricName replaces characters the line protocol reserves
// with underscores.
func normalizeMetricName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '|', '@', '#', '\n':
			return '_'
		default:
			return r
		}
	}, name)
}

func sanitizePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}
	return prefix
}

// formatTags renders tags in DogStatsD form, sorted for stable output.
func formatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(tags))
	for k, v := range tags {
		pairs = append(pairs, k+":"+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
