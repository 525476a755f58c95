package billingapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/membership/pkg/billing"
	"github.com/dmitrymomot/membership/pkg/logger"
)

// Response is the JSON envelope of every endpoint.
type Response struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Data: data})
}

// writeError maps billing error kinds to status codes. Internal failures are
// logged and answered without details.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "billing request failed",
			slog.String("path", r.URL.Path),
			logger.Error(err),
		)
		message = http.StatusText(status)
	}
	writeJSON(w, status, Response{Error: &ErrorDetail{Code: code, Message: message}})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, billing.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, billing.ErrInvalidInput):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, billing.ErrNoActivePeriod):
		return http.StatusBadRequest, "no_active_subscription"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
