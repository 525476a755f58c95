package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Normalizer turns verified provider events into SubscriptionEvents.
type Normalizer struct {
	users    UserResolver
	products ProductCatalog
}

// NewNormalizer creates a Normalizer using the given lookup collaborators.
func NewNormalizer(users UserResolver, products ProductCatalog) *Normalizer {
	if users == nil {
		panic("billing: UserResolver is required")
	}
	if products == nil {
		panic("billing: ProductCatalog is required")
	}
	return &Normalizer{users: users, products: products}
}

// Provider payloads. Amounts are integer minor units, timestamps unix seconds.
type (
	wirePrice struct {
		ID         string `json:"id"`
		Product    string `json:"product"`
		UnitAmount *int64 `json:"unit_amount"`
		Currency   string `json:"currency"`
	}

	wireInvoice struct {
		Customer      string `json:"customer"`
		Charge        string `json:"charge"`
		BillingReason string `json:"billing_reason"`
		Subscription  string `json:"subscription"`
		AmountPaid    int64  `json:"amount_paid"`
		Currency      string `json:"currency"`
		Lines         struct {
			Data []struct {
				Price  *wirePrice `json:"price"`
				Period struct {
					Start int64 `json:"start"`
					End   int64 `json:"end"`
				} `json:"period"`
			} `json:"data"`
		} `json:"lines"`
	}

	wireSubscription struct {
		ID       string `json:"id"`
		Customer string `json:"customer"`
		Items    struct {
			Data []struct {
				Price *wirePrice `json:"price"`
			} `json:"data"`
		} `json:"items"`
	}
)

// Normalize converts a provider event. Event types other than paid invoices and
// subscription updates return ErrUnsupportedEvent. Every other failure is joined
// with ErrEventProcessing while keeping its own kind.
func (n *Normalizer) Normalize(ctx context.Context, ev ProviderEvent) (SubscriptionEvent, error) {
	var (
		out SubscriptionEvent
		err error
	)
	switch ev.Type {
	case ProviderInvoicePaymentSucceeded:
		out, err = n.paymentSucceeded(ctx, ev.Object)
	case ProviderSubscriptionUpdated:
		out, err = n.subscriptionUpdated(ctx, ev.Object)
	default:
		return SubscriptionEvent{}, fmt.Errorf("%w: %s", ErrUnsupportedEvent, ev.Type)
	}
	if err != nil {
		return SubscriptionEvent{}, errors.Join(ErrEventProcessing, err)
	}

	out.EventID = ev.ID
	if err := out.Validate(); err != nil {
		return SubscriptionEvent{}, errors.Join(ErrEventProcessing, err)
	}
	return out, nil
}

func (n *Normalizer) paymentSucceeded(ctx context.Context, raw json.RawMessage) (SubscriptionEvent, error) {
	var inv wireInvoice
	if err := json.Unmarshal(raw, &inv); err != nil {
		return SubscriptionEvent{}, errors.Join(ErrInvalidPayload, err)
	}
	if len(inv.Lines.Data) == 0 || inv.Lines.Data[0].Price == nil {
		return SubscriptionEvent{}, fmt.Errorf("%w: invoice has no priced line", ErrInvalidPayload)
	}
	line := inv.Lines.Data[0]

	userID, err := n.resolveUser(ctx, inv.Customer)
	if err != nil {
		return SubscriptionEvent{}, err
	}
	meta, err := n.productMeta(ctx, line.Price.Product)
	if err != nil {
		return SubscriptionEvent{}, err
	}

	return SubscriptionEvent{
		Kind:           EventPaymentSucceeded,
		UserID:         userID,
		CustomerID:     inv.Customer,
		SubscriptionID: inv.Subscription,
		ChargeID:       inv.Charge,
		BillingReason:  inv.BillingReason,
		PlanInfo: PlanInfo{
			ProductID:   line.Price.Product,
			Name:        meta.Name,
			Description: meta.Description,
			PriceID:     line.Price.ID,
			Amount:      minorToMajor(inv.AmountPaid),
			Currency:    inv.Currency,
		},
		StartDate: time.Unix(line.Period.Start, 0).UTC(),
		EndDate:   time.Unix(line.Period.End, 0).UTC(),
	}, nil
}

func (n *Normalizer) subscriptionUpdated(ctx context.Context, raw json.RawMessage) (SubscriptionEvent, error) {
	var sub wireSubscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return SubscriptionEvent{}, errors.Join(ErrInvalidPayload, err)
	}
	if len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return SubscriptionEvent{}, fmt.Errorf("%w: subscription has no priced item", ErrInvalidPayload)
	}
	price := sub.Items.Data[0].Price
	if price.UnitAmount == nil {
		return SubscriptionEvent{}, fmt.Errorf("%w: price %s has no unit amount", ErrInvalidPayload, price.ID)
	}

	userID, err := n.resolveUser(ctx, sub.Customer)
	if err != nil {
		return SubscriptionEvent{}, err
	}
	meta, err := n.productMeta(ctx, price.Product)
	if err != nil {
		return SubscriptionEvent{}, err
	}

	return SubscriptionEvent{
		Kind:           EventSubscriptionUpdated,
		UserID:         userID,
		CustomerID:     sub.Customer,
		SubscriptionID: sub.ID,
		PlanInfo: PlanInfo{
			ProductID:   price.Product,
			Name:        meta.Name,
			Description: meta.Description,
			PriceID:     price.ID,
			Amount:      minorToMajor(*price.UnitAmount),
			Currency:    price.Currency,
		},
	}, nil
}

func (n *Normalizer) resolveUser(ctx context.Context, customer string) (string, error) {
	if customer == "" {
		return "", fmt.Errorf("%w: event has no customer", ErrInvalidPayload)
	}
	userID, err := n.users.ResolveUserID(ctx, customer)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", err
		}
		return "", errors.Join(ErrProviderError, err)
	}
	if userID == "" {
		return "", ErrCustomerNotFound
	}
	return userID, nil
}

func (n *Normalizer) productMeta(ctx context.Context, productID string) (ProductMeta, error) {
	if productID == "" {
		return ProductMeta{}, fmt.Errorf("%w: price has no product", ErrInvalidPayload)
	}
	meta, err := n.products.ProductMeta(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ProductMeta{}, err
		}
		return ProductMeta{}, errors.Join(ErrProviderError, err)
	}
	return meta, nil
}

func minorToMajor(amount int64) float64 {
	return float64(amount) / 100
}
