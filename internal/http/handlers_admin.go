package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/buddyhq/webhook-ingest/internal/resilience"
)

// AdminHandlers serves operator endpoints for the resilience layer.
type AdminHandlers struct {
	Resilience *resilience.Registry
}

type resetRequest struct {
	Name string `json:"name"`
}

// ResetBreaker handles POST /admin/circuit-breaker/reset. Name "all"
// closes every breaker.
func (h *AdminHandlers) ResetBreaker(w http.ResponseWriter, r *http.Request) {
	h.reset(w, r, h.Resilience.ResetBreaker)
}

// ResetLimiter handles POST /admin/rate-limiter/reset. Name "all"
// refills every bucket.
func (h *AdminHandlers) ResetLimiter(w http.ResponseWriter, r *http.Request) {
	h.reset(w, r, h.Resilience.ResetLimiter)
}

func (h *AdminHandlers) reset(w http.ResponseWriter, r *http.Request, fn func(string) bool) {
	var req resetRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("name is required (instance name or \"all\")"),
		})
		return
	}

	if !fn(name) {
		WriteError(w, ErrorParams{
			Code:    http.StatusNotFound,
			ErrCode: "not_found",
			Err:     errors.New("no instance named " + name),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"reset": name})
}
