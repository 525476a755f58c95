package billing_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/membership/pkg/billing"
	"github.com/dmitrymomot/membership/pkg/logger"
)

const testWebhookSecret = "whsec_test"

func signStripePayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func newWebhookService(t *testing.T, now time.Time, users *mockResolver, products *mockCatalog) (billing.Service, *billing.MemoryStore) {
	t.Helper()

	verifier, err := billing.NewStripeVerifier(testWebhookSecret)
	require.NoError(t, err)

	store := billing.NewMemoryStore()
	svc := billing.NewService(store,
		billing.WithEventVerifier(verifier),
		billing.WithNormalizer(billing.NewNormalizer(users, products)),
		billing.WithDeduplicator(billing.NewMemoryDeduplicator(time.Hour)),
		billing.WithClock(fixedClock(now)),
	)
	return svc, store
}

func defaultCollaborators() (*mockResolver, *mockCatalog) {
	users := &mockResolver{}
	products := &mockCatalog{}
	users.On("ResolveUserID", mock.Anything, "cus_1").Return("user_1", nil)
	products.On("ProductMeta", mock.Anything, "prod_basic").Return(billing.ProductMeta{Name: "Basic"}, nil)
	products.On("ProductMeta", mock.Anything, "prod_pro").Return(billing.ProductMeta{Name: "Pro"}, nil)
	return users, products
}

func TestNewService_PanicsWithoutStore(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { billing.NewService(nil) })
}

func TestService_ApplyEvent(t *testing.T) {
	t.Parallel()

	june10 := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)

	t.Run("payment then plan change", func(t *testing.T) {
		t.Parallel()
		users, products := defaultCollaborators()
		svc, store := newWebhookService(t, june10, users, products)
		ctx := context.Background()

		require.NoError(t, svc.ApplyEvent(ctx, paymentEvent("evt_1")))

		status, err := svc.ResolveStatus(ctx, "user_1")
		require.NoError(t, err)
		assert.Equal(t, []billing.MembershipStatus{billing.MembershipNew, billing.MembershipActive}, status.Status)
		assert.Equal(t, billing.PaymentSuccess, status.PaymentStatus)

		require.NoError(t, svc.ApplyEvent(ctx, updateEvent("evt_2")))

		info, err := svc.ResolveCurrentInfo(ctx, "user_1")
		require.NoError(t, err)
		assert.True(t, info.Active)
		assert.Equal(t, "Pro", info.PlanName)
		assert.Equal(t, "prod_pro", info.ProductID)
		assert.Equal(t, 19.99, info.Amount)

		rec, err := store.Find(ctx, "user_1")
		require.NoError(t, err)
		require.Len(t, rec.Periods, 1)
		assert.Equal(t, 49.0, rec.Periods[0].PlanInfo.Amount)
	})

	t.Run("redelivered event is applied once", func(t *testing.T) {
		t.Parallel()
		users, products := defaultCollaborators()
		svc, store := newWebhookService(t, june10, users, products)
		ctx := context.Background()

		require.NoError(t, svc.ApplyEvent(ctx, paymentEvent("evt_1")))
		require.NoError(t, svc.ApplyEvent(ctx, paymentEvent("evt_1")))

		rec, err := store.Find(ctx, "user_1")
		require.NoError(t, err)
		assert.Len(t, rec.Periods, 1)
	})

	t.Run("failed event can be redelivered", func(t *testing.T) {
		t.Parallel()
		users := &mockResolver{}
		products := &mockCatalog{}
		users.On("ResolveUserID", mock.Anything, "cus_1").Return("", errors.New("timeout")).Once()
		users.On("ResolveUserID", mock.Anything, "cus_1").Return("user_1", nil)
		products.On("ProductMeta", mock.Anything, "prod_basic").Return(billing.ProductMeta{Name: "Basic"}, nil)
		svc, store := newWebhookService(t, june10, users, products)
		ctx := context.Background()

		err := svc.ApplyEvent(ctx, paymentEvent("evt_1"))
		require.Error(t, err)
		assert.True(t, billing.IsRetriable(err))

		require.NoError(t, svc.ApplyEvent(ctx, paymentEvent("evt_1")))

		rec, err := store.Find(ctx, "user_1")
		require.NoError(t, err)
		assert.Len(t, rec.Periods, 1)
		users.AssertNumberOfCalls(t, "ResolveUserID", 2)
	})

	t.Run("unsupported event is acknowledged", func(t *testing.T) {
		t.Parallel()
		users, products := defaultCollaborators()
		svc, store := newWebhookService(t, june10, users, products)
		ctx := context.Background()

		require.NoError(t, svc.ApplyEvent(ctx, billing.ProviderEvent{ID: "evt_9", Type: "customer.created"}))

		_, err := store.Find(ctx, "user_1")
		assert.ErrorIs(t, err, billing.ErrRecordNotFound)
	})

	t.Run("plan change before any payment", func(t *testing.T) {
		t.Parallel()
		users, products := defaultCollaborators()
		svc, _ := newWebhookService(t, june10, users, products)

		err := svc.ApplyEvent(context.Background(), updateEvent("evt_2"))
		assert.ErrorIs(t, err, billing.ErrRecordNotFound)
		assert.False(t, billing.IsRetriable(err))
	})

	t.Run("requires normalizer", func(t *testing.T) {
		t.Parallel()
		svc := billing.NewService(billing.NewMemoryStore())
		err := svc.ApplyEvent(context.Background(), paymentEvent("evt_1"))
		assert.ErrorIs(t, err, billing.ErrWebhookNotConfigured)
	})
}

func TestService_HandleWebhook(t *testing.T) {
	t.Parallel()

	june10 := time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)
	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "invoice.payment_succeeded",
		"data": {"object": ` + invoicePayload + `}
	}`)

	t.Run("applies signed event", func(t *testing.T) {
		t.Parallel()
		users, products := defaultCollaborators()
		svc, store := newWebhookService(t, june10, users, products)
		ctx := context.Background()

		sig := signStripePayload(payload, testWebhookSecret, time.Now())
		require.NoError(t, svc.HandleWebhook(ctx, payload, sig))

		rec, err := store.Find(ctx, "user_1")
		require.NoError(t, err)
		require.Len(t, rec.Periods, 1)
		assert.Equal(t, "sub_1", rec.Periods[0].SubscriptionID)
		assert.Equal(t, "cus_1", rec.CustomerID)
	})

	t.Run("rejects wrong signature", func(t *testing.T) {
		t.Parallel()
		users, products := defaultCollaborators()
		svc, store := newWebhookService(t, june10, users, products)
		ctx := context.Background()

		sig := signStripePayload(payload, "whsec_other", time.Now())
		err := svc.HandleWebhook(ctx, payload, sig)
		assert.ErrorIs(t, err, billing.ErrWebhookVerificationFailed)

		_, err = store.Find(ctx, "user_1")
		assert.ErrorIs(t, err, billing.ErrRecordNotFound)
	})

	t.Run("rejects stale signature", func(t *testing.T) {
		t.Parallel()
		users, products := defaultCollaborators()
		svc, _ := newWebhookService(t, june10, users, products)

		sig := signStripePayload(payload, testWebhookSecret, time.Now().Add(-time.Hour))
		err := svc.HandleWebhook(context.Background(), payload, sig)
		assert.ErrorIs(t, err, billing.ErrWebhookVerificationFailed)
	})

	t.Run("dropped payment is logged at error level", func(t *testing.T) {
		t.Parallel()
		users, products := defaultCollaborators()
		verifier, err := billing.NewStripeVerifier(testWebhookSecret)
		require.NoError(t, err)

		var buf bytes.Buffer
		svc := billing.NewService(billing.NewMemoryStore(),
			billing.WithEventVerifier(verifier),
			billing.WithNormalizer(billing.NewNormalizer(users, products)),
			billing.WithClock(fixedClock(june10)),
			billing.WithLogger(logger.New(logger.WithOutput(&buf))),
		)

		// Newer API versions moved the price off invoice lines.
		newer := []byte(`{
			"id": "evt_new",
			"object": "event",
			"api_version": "2025-03-31.basil",
			"type": "invoice.payment_succeeded",
			"data": {"object": {"customer": "cus_1", "lines": {"data": [{"pricing": {"price_details": {"product": "prod_basic"}}}]}}}
		}`)
		err = svc.HandleWebhook(context.Background(), newer, signStripePayload(newer, testWebhookSecret, time.Now()))
		require.ErrorIs(t, err, billing.ErrInvalidPayload)
		assert.False(t, billing.IsRetriable(err))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "ERROR", entry["level"])
		assert.Equal(t, "payment event dropped, revenue not recorded", entry["msg"])
		assert.Equal(t, "2025-03-31.basil", entry["api_version"])
		assert.Equal(t, "evt_new", entry["event_id"])
	})

	t.Run("retriable payment failure is not logged as dropped", func(t *testing.T) {
		t.Parallel()
		users := &mockResolver{}
		users.On("ResolveUserID", mock.Anything, "cus_1").Return("", errors.New("timeout"))
		var buf bytes.Buffer
		svc := billing.NewService(billing.NewMemoryStore(),
			billing.WithNormalizer(billing.NewNormalizer(users, &mockCatalog{})),
			billing.WithLogger(logger.New(logger.WithOutput(&buf))),
		)

		err := svc.ApplyEvent(context.Background(), paymentEvent("evt_1"))
		require.Error(t, err)
		assert.True(t, billing.IsRetriable(err))
		assert.NotContains(t, buf.String(), "payment event dropped")
	})

	t.Run("requires verifier", func(t *testing.T) {
		t.Parallel()
		svc := billing.NewService(billing.NewMemoryStore())
		err := svc.HandleWebhook(context.Background(), payload, "")
		assert.ErrorIs(t, err, billing.ErrWebhookNotConfigured)
	})
}

func TestService_Status(t *testing.T) {
	t.Parallel()

	svc := billing.NewService(billing.NewMemoryStore(), billing.WithClock(fixedClock(testNow)))

	t.Run("unknown user has no labels", func(t *testing.T) {
		t.Parallel()
		status, err := svc.ResolveStatus(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Empty(t, status.Status)
		assert.Equal(t, billing.PaymentFailed, status.PaymentStatus)

		info, err := svc.ResolveCurrentInfo(context.Background(), "nobody")
		require.NoError(t, err)
		assert.False(t, info.Active)
	})

	t.Run("empty user id", func(t *testing.T) {
		t.Parallel()
		_, err := svc.ResolveStatus(context.Background(), "")
		assert.ErrorIs(t, err, billing.ErrMissingUserID)
	})
}

func TestService_Members(t *testing.T) {
	t.Parallel()

	day := 24 * time.Hour
	ctx := context.Background()
	svc := billing.NewService(billing.NewMemoryStore(), billing.WithClock(fixedClock(testNow)))

	create := billing.BillingReasonSubscriptionCreate
	seed := []struct {
		user   string
		period billing.Period
	}{
		{"new", newPeriod("sub_1", create, testNow.Add(-5*day), testNow.Add(25*day), 10)},
		{"renewed", newPeriod("sub_2", create, testNow.Add(-50*day), testNow.Add(-20*day), 10)},
		{"renewed", newPeriod("sub_2", "subscription_cycle", testNow.Add(-10*day), testNow.Add(20*day), 10)},
		{"lost", newPeriod("sub_3", create, testNow.Add(-90*day), testNow.Add(-60*day), 10)},
		{"veteran", newPeriod("sub_4", create, testNow.Add(-60*day), testNow.Add(5*day), 10)},
	}
	for _, s := range seed {
		require.NoError(t, svc.AddSubscription(ctx, s.user, "cus_"+s.user, s.period))
	}

	active, err := svc.ActiveMembers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"new", "renewed", "veteran"}, active)

	n, err := svc.ActiveMembersCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = svc.NewMembersCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.LostMembersCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	summary, err := svc.MembersSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, billing.MembersSummary{Active: 3, New: 1, Lost: 1, At: testNow}, summary)
}

func TestService_Reports(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := billing.NewService(billing.NewMemoryStore(), billing.WithClock(fixedClock(testNow)))
	for i, p := range turnoverFixture() {
		require.NoError(t, svc.AddSubscription(ctx, fmt.Sprintf("user_%d", i), "cus", p))
	}

	t.Run("turnover", func(t *testing.T) {
		t.Parallel()
		got, err := svc.TurnoverByPeriod(ctx, 2024, billing.PeriodQuarterly)
		require.NoError(t, err)
		assert.Equal(t, []billing.Turnover{
			{Period: "Q1", TotalTurnover: 150},
			{Period: "Q2", TotalTurnover: 170},
			{Period: "Q3", TotalTurnover: 0},
			{Period: "Q4", TotalTurnover: 0},
		}, got)
	})

	t.Run("growth", func(t *testing.T) {
		t.Parallel()
		got, err := svc.GrowthRate(ctx, 2024, billing.PeriodQuarterly, 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "Q2", got[0].Period)
		assert.Equal(t, rate(13), got[0].GrowthRate)
		assert.Equal(t, rate(13), got[0].RelativeGrowthRate)
		assert.Equal(t, rate(-100), got[1].GrowthRate)
		assert.Nil(t, got[2].GrowthRate)
	})

	t.Run("invalid period", func(t *testing.T) {
		t.Parallel()
		_, err := svc.TurnoverByPeriod(ctx, 2024, billing.PeriodKind("daily"))
		assert.ErrorIs(t, err, billing.ErrInvalidPeriod)
		_, err = svc.GrowthRate(ctx, 2024, billing.PeriodKind("daily"), 0)
		assert.ErrorIs(t, err, billing.ErrInvalidPeriod)
	})
}
