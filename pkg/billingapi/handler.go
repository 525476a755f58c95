package billingapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/membership/pkg/billing"
	"github.com/dmitrymomot/membership/pkg/logger"
)

// DefaultMaxWebhookBody is the largest webhook payload accepted.
const DefaultMaxWebhookBody int64 = 64 << 10

// StripeSignatureHeader carries the webhook signature.
const StripeSignatureHeader = "Stripe-Signature"

// Handler serves the billing HTTP API.
type Handler struct {
	svc     billing.Service
	log     *slog.Logger
	maxBody int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithMaxWebhookBody limits the accepted webhook payload size.
func WithMaxWebhookBody(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// NewHandler creates the HTTP adapter for svc.
// Panics if svc is nil.
func NewHandler(svc billing.Service, opts ...Option) *Handler {
	if svc == nil {
		panic("billingapi: billing service is required")
	}
	h := &Handler{
		svc:     svc,
		log:     logger.Discard(),
		maxBody: DefaultMaxWebhookBody,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With(logger.Component("billingapi"))
	return h
}

// Handle returns the router with every billing endpoint mounted.
func (h *Handler) Handle() http.Handler {
	r := chi.NewRouter()

	r.Post("/webhooks/stripe", h.webhook)

	r.Route("/members/{userID}", func(r chi.Router) {
		r.Get("/status", h.memberStatus)
		r.Get("/subscription", h.memberSubscription)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/members", h.membersSummary)
		r.Get("/members/active", h.activeMembers)
		r.Get("/turnover", h.turnover)
		r.Get("/growth", h.growth)
	})

	return r
}
