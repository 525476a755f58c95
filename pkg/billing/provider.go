package billing

import (
	"context"
	"encoding/json"
)

// ProviderEvent is a verified webhook envelope: the event id and type plus the
// raw `data.object` payload.
type ProviderEvent struct {
	ID         string
	Type       string
	APIVersion string
	Object     json.RawMessage
}

// EventVerifier authenticates a webhook payload and unwraps its envelope.
// Implementations must reject payloads whose signature does not match.
type EventVerifier interface {
	Verify(payload []byte, signature string) (ProviderEvent, error)
}

// UserResolver maps a provider customer reference to the internal user id.
// Returns ErrCustomerNotFound if the customer is not mapped.
type UserResolver interface {
	ResolveUserID(ctx context.Context, customerRef string) (string, error)
}

// UserResolverFunc adapts a function to UserResolver.
type UserResolverFunc func(ctx context.Context, customerRef string) (string, error)

func (f UserResolverFunc) ResolveUserID(ctx context.Context, customerRef string) (string, error) {
	return f(ctx, customerRef)
}

// ProductMeta is the catalog data attached to a plan snapshot.
type ProductMeta struct {
	Name        string
	Description string
	Image       string
	Active      bool
}

// ProductCatalog looks up product metadata at the payment provider.
// Returns ErrProductNotFound for unknown products.
type ProductCatalog interface {
	ProductMeta(ctx context.Context, productID string) (ProductMeta, error)
}
