package httpx

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	apperrors "github.com/buddyhq/webhook-ingest/internal/errors"
	"github.com/buddyhq/webhook-ingest/internal/service"
	"github.com/buddyhq/webhook-ingest/internal/signature"
)

// DeliveryIDHeader carries the partner-assigned idempotency key.
const DeliveryIDHeader = "X-Delivery-Id"

// EventHandlersOptions groups dependencies for EventHandlers.
type EventHandlersOptions struct {
	Ingest       *service.IngestService
	MaxBodyBytes int64
	Logger       *slog.Logger // Optional
}

// EventHandlers serves the webhook intake endpoint.
type EventHandlers struct {
	ingest       *service.IngestService
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewEventHandlers creates handlers for POST /events.
func NewEventHandlers(opts EventHandlersOptions) *EventHandlers {
	if opts.Ingest == nil {
		panic("IngestService is required")
	}
	maxBytes := opts.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return &EventHandlers{ingest: opts.Ingest, maxBodyBytes: maxBytes, logger: opts.Logger}
}

// Ingest handles POST /events. A 200 means the event was processed on
// this request; a 202 means the pipeline accepted the delivery but did
// not process it now (already processed, in flight elsewhere, or parked
// in the DLQ); the body's status field says which.
func (h *EventHandlers) Ingest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			WriteError(w, ErrorParams{
				Code:    http.StatusRequestEntityTooLarge,
				ErrCode: "body_too_large",
				Err:     err,
			})
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "unreadable_body", Err: err})
		return
	}

	result, err := h.ingest.Ingest(r.Context(), service.IngestRequest{
		DeliveryID: r.Header.Get(DeliveryIDHeader),
		Signature:  r.Header.Get(signature.Header),
		Body:       body,
	})
	if err != nil {
		if apperrors.IsRateLimited(err) {
			seconds := int(math.Ceil(h.ingest.RetryAfter().Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
		WriteAppError(w, err)
		return
	}

	status := http.StatusAccepted
	if result.Status == service.IngestStatusProcessed {
		status = http.StatusOK
	}
	WriteJSON(w, status, result)
}
