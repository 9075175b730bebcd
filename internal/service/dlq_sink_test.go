package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buddyhq/webhook-ingest/config"
	"github.com/buddyhq/webhook-ingest/internal/domain/model"
)

func testDLQEntry() *model.DLQEntry {
	return &model.DLQEntry{
		ID:                  "dlq-1",
		DeliveryID:          "evt-1",
		EventType:           "buddy.match.created",
		RawPayload:          json.RawMessage(`{"type":"buddy.match.created"}`),
		ErrorCategory:       "transient",
		ErrorMessage:        "downstream unavailable",
		RetryCountAtFailure: 3,
		EnqueuedAt:          time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHTTPDLQSink_Notify(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink, err := NewHTTPDLQSink(HTTPDLQSinkOptions{
		Config: config.DLQSinkConfig{Enabled: true, URL: srv.URL, Timeout: time.Second},
	})
	require.NoError(t, err)

	require.NoError(t, sink.Notify(context.Background(), testDLQEntry()))
	assert.Equal(t, "evt-1", received["delivery_id"])
	assert.Equal(t, "buddy.match.created", received["event_type"])
	assert.Equal(t, float64(3), received["retry_count_at_failure"])
}

func TestHTTPDLQSink_NotifyWithTransform(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sink, err := NewHTTPDLQSink(HTTPDLQSinkOptions{
		Config: config.DLQSinkConfig{
			Enabled:   true,
			URL:       srv.URL,
			Transform: `{text: join(' ', ['dead-lettered', delivery_id, error_category])}`,
			Timeout:   time.Second,
		},
	})
	require.NoError(t, err)

	require.NoError(t, sink.Notify(context.Background(), testDLQEntry()))
	assert.Equal(t, "dead-lettered evt-1 transient", received["text"])
}

func TestHTTPDLQSink_NotifyNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sink, err := NewHTTPDLQSink(HTTPDLQSinkOptions{
		Config: config.DLQSinkConfig{Enabled: true, URL: srv.URL, Timeout: time.Second},
	})
	require.NoError(t, err)

	err = sink.Notify(context.Background(), testDLQEntry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewHTTPDLQSink_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DLQSinkConfig
	}{
		{"empty url", config.DLQSinkConfig{}},
		{"bad scheme", config.DLQSinkConfig{URL: "ftp://ops.example.com/hook"}},
		{"missing host", config.DLQSinkConfig{URL: "https://"}},
		{"bad transform", config.DLQSinkConfig{URL: "https://ops.example.com/hook", Transform: "].invalid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHTTPDLQSink(HTTPDLQSinkOptions{Config: tt.cfg})
			require.Error(t, err)
		})
	}
}
