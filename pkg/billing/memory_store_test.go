package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/membership/pkg/billing"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	t.Run("create and find", func(t *testing.T) {
		t.Parallel()
		store := billing.NewMemoryStore()
		ctx := context.Background()

		rec := &billing.Record{UserID: "user_1", CustomerID: "cus_1"}
		require.NoError(t, store.Create(ctx, rec))
		assert.Equal(t, int64(1), rec.Version)
		assert.False(t, rec.CreatedAt.IsZero())

		err := store.Create(ctx, &billing.Record{UserID: "user_1"})
		assert.ErrorIs(t, err, billing.ErrRecordExists)

		found, err := store.Find(ctx, "user_1")
		require.NoError(t, err)
		assert.Equal(t, "cus_1", found.CustomerID)

		_, err = store.Find(ctx, "user_2")
		assert.ErrorIs(t, err, billing.ErrRecordNotFound)
	})

	t.Run("save checks version", func(t *testing.T) {
		t.Parallel()
		store := billing.NewMemoryStore()
		ctx := context.Background()
		require.NoError(t, store.Create(ctx, &billing.Record{UserID: "user_1"}))

		a, err := store.Find(ctx, "user_1")
		require.NoError(t, err)
		b, err := store.Find(ctx, "user_1")
		require.NoError(t, err)

		a.CustomerID = "cus_a"
		require.NoError(t, store.Save(ctx, a))
		assert.Equal(t, int64(2), a.Version)

		b.CustomerID = "cus_b"
		assert.ErrorIs(t, store.Save(ctx, b), billing.ErrVersionConflict)

		got, err := store.Find(ctx, "user_1")
		require.NoError(t, err)
		assert.Equal(t, "cus_a", got.CustomerID)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		t.Parallel()
		store := billing.NewMemoryStore()
		ctx := context.Background()
		p := newPeriod("sub_1", billing.BillingReasonSubscriptionCreate, testNow, testNow.AddDate(0, 1, 0), 10)
		require.NoError(t, store.Create(ctx, &billing.Record{UserID: "user_1", Periods: []billing.Period{p}}))

		got, err := store.Find(ctx, "user_1")
		require.NoError(t, err)
		got.Periods[0].PaidAmount = 999
		got.Periods = append(got.Periods, p)

		again, err := store.Find(ctx, "user_1")
		require.NoError(t, err)
		require.Len(t, again.Periods, 1)
		assert.Equal(t, 10.0, again.Periods[0].PaidAmount)
	})

	t.Run("filters periods", func(t *testing.T) {
		t.Parallel()
		store := billing.NewMemoryStore()
		ctx := context.Background()
		day := 24 * time.Hour

		require.NoError(t, store.Create(ctx, &billing.Record{UserID: "a", Periods: []billing.Period{
			newPeriod("s1", billing.BillingReasonSubscriptionCreate, testNow.Add(-day), testNow.Add(day), 10),
		}}))
		require.NoError(t, store.Create(ctx, &billing.Record{UserID: "b", Periods: []billing.Period{
			newPeriod("s2", "subscription_cycle", testNow.Add(-40*day), testNow.Add(-10*day), 20),
			newPeriod("s2", "subscription_cycle", testNow.Add(-10*day), testNow.Add(20*day), 30),
		}}))

		users, err := store.DistinctUsers(ctx, billing.PeriodFilter{Status: billing.PeriodStatusActive, EndFrom: testNow})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, users)

		users, err = store.DistinctUsers(ctx, billing.PeriodFilter{BillingReason: billing.BillingReasonSubscriptionCreate})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, users)

		users, err = store.DistinctUsers(ctx, billing.PeriodFilter{EndBefore: testNow, ExcludeUsers: []string{"b"}})
		require.NoError(t, err)
		assert.Empty(t, users)

		periods, err := store.Periods(ctx, billing.PeriodFilter{StartFrom: testNow.Add(-10 * day), StartBefore: testNow})
		require.NoError(t, err)
		require.Len(t, periods, 2)
		assert.Equal(t, 10.0, periods[0].PaidAmount)
		assert.Equal(t, 30.0, periods[1].PaidAmount)
	})
}

func TestPeriodFilter_Match(t *testing.T) {
	t.Parallel()

	p := newPeriod("s1", billing.BillingReasonSubscriptionCreate, testNow, testNow.AddDate(0, 1, 0), 10)

	assert.True(t, billing.PeriodFilter{}.Match("u", p))
	assert.True(t, billing.PeriodFilter{StartFrom: testNow}.Match("u", p))
	assert.False(t, billing.PeriodFilter{StartBefore: testNow}.Match("u", p))
	assert.True(t, billing.PeriodFilter{EndFrom: p.EndDate}.Match("u", p))
	assert.False(t, billing.PeriodFilter{EndBefore: p.EndDate}.Match("u", p))
	assert.False(t, billing.PeriodFilter{Status: "canceled"}.Match("u", p))
	assert.False(t, billing.PeriodFilter{ExcludeUsers: []string{"u"}}.Match("u", p))
}
