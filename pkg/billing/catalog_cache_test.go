package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/membership/pkg/billing"
)

func TestCachedCatalog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	pro := billing.ProductMeta{Name: "Pro", Active: true}

	t.Run("serves repeated lookups from cache", func(t *testing.T) {
		t.Parallel()
		next := &mockCatalog{}
		next.On("ProductMeta", ctx, "prod_pro").Return(pro, nil).Once()
		c := billing.NewCachedCatalog(next, 8, time.Hour)

		for range 3 {
			meta, err := c.ProductMeta(ctx, "prod_pro")
			require.NoError(t, err)
			assert.Equal(t, pro, meta)
		}
		next.AssertNumberOfCalls(t, "ProductMeta", 1)
	})

	t.Run("does not cache failures", func(t *testing.T) {
		t.Parallel()
		next := &mockCatalog{}
		next.On("ProductMeta", ctx, "prod_pro").Return(billing.ProductMeta{}, billing.ErrProviderError).Once()
		next.On("ProductMeta", ctx, "prod_pro").Return(pro, nil).Once()
		c := billing.NewCachedCatalog(next, 8, time.Hour)

		_, err := c.ProductMeta(ctx, "prod_pro")
		require.ErrorIs(t, err, billing.ErrProviderError)

		meta, err := c.ProductMeta(ctx, "prod_pro")
		require.NoError(t, err)
		assert.Equal(t, pro, meta)
		next.AssertExpectations(t)
	})

	t.Run("forget forces a fresh lookup", func(t *testing.T) {
		t.Parallel()
		renamed := billing.ProductMeta{Name: "Pro Plus", Active: true}
		next := &mockCatalog{}
		next.On("ProductMeta", ctx, "prod_pro").Return(pro, nil).Once()
		next.On("ProductMeta", ctx, "prod_pro").Return(renamed, nil).Once()
		c := billing.NewCachedCatalog(next, 0, 0)

		_, err := c.ProductMeta(ctx, "prod_pro")
		require.NoError(t, err)
		c.Forget("prod_pro")

		meta, err := c.ProductMeta(ctx, "prod_pro")
		require.NoError(t, err)
		assert.Equal(t, renamed, meta)
	})

	t.Run("nil catalog panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { billing.NewCachedCatalog(nil, 1, time.Minute) })
	})
}
