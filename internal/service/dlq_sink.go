package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/buddyhq/webhook-ingest/config"
	"github.com/buddyhq/webhook-ingest/internal/domain/model"
)

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (j jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (j jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// HTTPDLQSinkOptions groups dependencies for HTTPDLQSink.
type HTTPDLQSinkOptions struct {
	Config    config.DLQSinkConfig
	Client    *http.Client      // Optional: defaults to a client with the configured timeout
	Evaluator JMESPathEvaluator // Optional: defaults to the go-jmespath implementation
}

// HTTPDLQSink escalates dead-lettered deliveries by POSTing a JSON
// summary to an operator endpoint. An optional JMESPath transform
// reshapes the summary to whatever the receiving system expects
// (chat webhook, pager payload, ticket API).
type HTTPDLQSink struct {
	cfg    config.DLQSinkConfig
	client *http.Client
	jems   JMESPathEvaluator
}

// NewHTTPDLQSink constructs a new HTTPDLQSink. It returns an error when
// the configured URL or transform expression is invalid.
func NewHTTPDLQSink(opts HTTPDLQSinkOptions) (*HTTPDLQSink, error) {
	u, err := url.Parse(opts.Config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid dlq sink URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid dlq sink URL scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return nil, fmt.Errorf("dlq sink URL is missing a host")
	}

	jems := opts.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}
	if err := jems.Validate(opts.Config.Transform); err != nil {
		return nil, fmt.Errorf("invalid dlq sink transform: %w", err)
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Config.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPDLQSink{cfg: opts.Config, client: client, jems: jems}, nil
}

// Notify delivers a summary of the DLQ entry to the configured endpoint.
func (s *HTTPDLQSink) Notify(ctx context.Context, entry *model.DLQEntry) error {
	body, err := s.buildBody(entry)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build dlq sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post dlq sink: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("dlq sink responded %d", resp.StatusCode)
	}
	return nil
}

func (s *HTTPDLQSink) buildBody(entry *model.DLQEntry) ([]byte, error) {
	summary := map[string]any{
		"delivery_id":            entry.DeliveryID,
		"event_type":             entry.EventType,
		"error_category":         entry.ErrorCategory,
		"error_message":          entry.ErrorMessage,
		"retry_count_at_failure": entry.RetryCountAtFailure,
		"enqueued_at":            entry.EnqueuedAt.UTC().Format(time.RFC3339),
	}

	if strings.TrimSpace(s.cfg.Transform) == "" {
		body, err := json.Marshal(summary)
		if err != nil {
			return nil, fmt.Errorf("marshal dlq sink body: %w", err)
		}
		return body, nil
	}

	transformed, err := s.jems.Evaluate(s.cfg.Transform, summary)
	if err != nil {
		return nil, fmt.Errorf("evaluate dlq sink transform: %w", err)
	}
	body, err := json.Marshal(transformed)
	if err != nil {
		return nil, fmt.Errorf("marshal transformed dlq sink body: %w", err)
	}
	return body, nil
}
