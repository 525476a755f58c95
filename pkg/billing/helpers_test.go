package billing_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/membership/pkg/billing"
)

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveUserID(ctx context.Context, customerRef string) (string, error) {
	args := m.Called(ctx, customerRef)
	return args.String(0), args.Error(1)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) ProductMeta(ctx context.Context, productID string) (billing.ProductMeta, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(billing.ProductMeta), args.Error(1)
}

func newPeriod(subID, reason string, start, end time.Time, paid float64) billing.Period {
	return billing.Period{
		SubscriptionID: subID,
		PlanInfo: billing.PlanInfo{
			ProductID: "prod_basic",
			Name:      "Basic",
			PriceID:   "price_basic",
			Amount:    paid,
			Currency:  "usd",
		},
		BillingReason: reason,
		StartDate:     start,
		EndDate:       end,
		Status:        billing.PeriodStatusActive,
		PaidAmount:    paid,
	}
}

const (
	// 2024-06-01T00:00:00Z .. 2024-07-01T00:00:00Z
	invoicePayload = `{
		"customer": "cus_1",
		"charge": "ch_1",
		"billing_reason": "subscription_create",
		"subscription": "sub_1",
		"amount_paid": 1999,
		"currency": "usd",
		"lines": {"data": [{
			"price": {"id": "price_basic", "product": "prod_basic"},
			"period": {"start": 1717200000, "end": 1719792000}
		}]}
	}`

	subscriptionPayload = `{
		"id": "sub_1",
		"customer": "cus_1",
		"items": {"data": [{
			"price": {"id": "price_pro", "product": "prod_pro", "unit_amount": 4900, "currency": "usd"}
		}]}
	}`
)

func paymentEvent(id string) billing.ProviderEvent {
	return billing.ProviderEvent{ID: id, Type: billing.ProviderInvoicePaymentSucceeded, Object: []byte(invoicePayload)}
}

func updateEvent(id string) billing.ProviderEvent {
	return billing.ProviderEvent{ID: id, Type: billing.ProviderSubscriptionUpdated, Object: []byte(subscriptionPayload)}
}
