package billingapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/dmitrymomot/membership/pkg/billing"
	"github.com/dmitrymomot/membership/pkg/logger"
)

type webhookAck struct {
	Received bool `json:"received"`
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, Response{Error: &ErrorDetail{
				Code:    "payload_too_large",
				Message: err.Error(),
			}})
			return
		}
		writeJSON(w, http.StatusBadRequest, Response{Error: &ErrorDetail{Code: "bad_request", Message: err.Error()}})
		return
	}

	err = h.svc.HandleWebhook(ctx, payload, r.Header.Get(StripeSignatureHeader))
	switch {
	case err == nil:
		h.writeData(w, webhookAck{Received: true})

	case errors.Is(err, billing.ErrWebhookVerificationFailed):
		h.log.WarnContext(ctx, "rejected webhook with invalid signature", logger.Error(err))
		writeJSON(w, http.StatusBadRequest, Response{Error: &ErrorDetail{
			Code:    "invalid_signature",
			Message: "webhook signature verification failed",
		}})

	case errors.Is(err, billing.ErrWebhookNotConfigured), billing.IsRetriable(err):
		h.log.ErrorContext(ctx, "webhook processing failed, awaiting redelivery", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, Response{Error: &ErrorDetail{
			Code:    "internal_error",
			Message: http.StatusText(http.StatusInternalServerError),
		}})

	default:
		// Redelivery cannot fix this event.
		h.log.WarnContext(ctx, "webhook event dropped", logger.Error(err))
		h.writeData(w, webhookAck{Received: true})
	}
}
