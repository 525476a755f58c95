package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// StripeConfig holds credentials for the Stripe provider.
type StripeConfig struct {
	APIKey        string `env:"STRIPE_API_KEY"`                 // APIKey is only needed when Stripe is the product catalog.
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"` // WebhookSecret is the endpoint signing secret.
}

// StripeVerifier checks the Stripe-Signature header of incoming webhooks.
type StripeVerifier struct {
	secret string
}

// NewStripeVerifier creates an EventVerifier for the endpoint signing secret.
func NewStripeVerifier(webhookSecret string) (*StripeVerifier, error) {
	if webhookSecret == "" {
		return nil, ErrMissingWebhookKey
	}
	return &StripeVerifier{secret: webhookSecret}, nil
}

// Verify validates the signature and timestamp tolerance and returns the event envelope.
// Events pinned to another API version are accepted; the normalizer only reads
// fields shared by all versions it supports.
func (v *StripeVerifier) Verify(payload []byte, signature string) (ProviderEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return ProviderEvent{}, errors.Join(ErrWebhookVerificationFailed, err)
	}
	if event.Data == nil {
		return ProviderEvent{}, fmt.Errorf("%w: event %s has no data", ErrInvalidPayload, event.ID)
	}
	return ProviderEvent{
		ID:         event.ID,
		Type:       string(event.Type),
		APIVersion: event.APIVersion,
		Object:     event.Data.Raw,
	}, nil
}

// stripeProductGetter is the subset of the Stripe products client we use.
type stripeProductGetter interface {
	Get(id string, params *stripe.ProductParams) (*stripe.Product, error)
}

// StripeCatalog resolves product metadata through the Stripe API.
type StripeCatalog struct {
	products stripeProductGetter
}

// NewStripeCatalog creates a ProductCatalog backed by a dedicated Stripe client.
func NewStripeCatalog(apiKey string) (*StripeCatalog, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	sc := client.New(apiKey, nil)
	return &StripeCatalog{products: sc.Products}, nil
}

func (c *StripeCatalog) ProductMeta(ctx context.Context, productID string) (ProductMeta, error) {
	params := &stripe.ProductParams{}
	params.Context = ctx

	p, err := c.products.Get(productID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return ProductMeta{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		return ProductMeta{}, errors.Join(ErrProviderError, err)
	}
	if p == nil {
		return ProductMeta{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}

	meta := ProductMeta{
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
	}
	if len(p.Images) > 0 {
		meta.Image = p.Images[0]
	}
	return meta, nil
}
