package billing_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/PaddleHQ/paddle-go-sdk/v4/pkg/paddleerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"

	"github.com/dmitrymomot/membership/pkg/billing"
)

type mockStripeProducts struct {
	mock.Mock
}

func (m *mockStripeProducts) Get(id string, params *stripe.ProductParams) (*stripe.Product, error) {
	args := m.Called(id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Product), args.Error(1)
}

type mockPaddleProducts struct {
	mock.Mock
}

func (m *mockPaddleProducts) GetProduct(ctx context.Context, req *paddle.GetProductRequest) (*paddle.Product, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paddle.Product), args.Error(1)
}

func TestStripeCatalog(t *testing.T) {
	t.Parallel()

	t.Run("maps product", func(t *testing.T) {
		t.Parallel()
		products := &mockStripeProducts{}
		products.On("Get", "prod_1", mock.Anything).Return(&stripe.Product{
			ID:          "prod_1",
			Name:        "Pro",
			Description: "Everything",
			Active:      false,
			Images:      []string{"https://img/1.png", "https://img/2.png"},
		}, nil)

		meta, err := billing.NewStripeCatalogWith(products).ProductMeta(context.Background(), "prod_1")
		require.NoError(t, err)
		assert.Equal(t, billing.ProductMeta{
			Name:        "Pro",
			Description: "Everything",
			Image:       "https://img/1.png",
			Active:      false,
		}, meta)
	})

	t.Run("missing product", func(t *testing.T) {
		t.Parallel()
		products := &mockStripeProducts{}
		products.On("Get", "prod_x", mock.Anything).Return(nil, &stripe.Error{HTTPStatusCode: http.StatusNotFound, Msg: "No such product"})

		_, err := billing.NewStripeCatalogWith(products).ProductMeta(context.Background(), "prod_x")
		assert.ErrorIs(t, err, billing.ErrProductNotFound)
	})

	t.Run("api failure", func(t *testing.T) {
		t.Parallel()
		products := &mockStripeProducts{}
		products.On("Get", "prod_1", mock.Anything).Return(nil, &stripe.Error{HTTPStatusCode: http.StatusBadGateway})

		_, err := billing.NewStripeCatalogWith(products).ProductMeta(context.Background(), "prod_1")
		assert.ErrorIs(t, err, billing.ErrProviderError)
		assert.True(t, billing.IsRetriable(err))
	})

	t.Run("requires api key", func(t *testing.T) {
		t.Parallel()
		_, err := billing.NewStripeCatalog("")
		assert.ErrorIs(t, err, billing.ErrMissingAPIKey)
		_, err = billing.NewStripeVerifier("")
		assert.ErrorIs(t, err, billing.ErrMissingWebhookKey)
	})
}

func TestPaddleCatalog(t *testing.T) {
	t.Parallel()

	t.Run("maps product", func(t *testing.T) {
		t.Parallel()
		desc, img := "Everything", "https://img/1.png"
		products := &mockPaddleProducts{}
		products.On("GetProduct", mock.Anything, &paddle.GetProductRequest{ProductID: "pro_1"}).Return(&paddle.Product{
			ID:          "pro_1",
			Name:        "Pro",
			Description: &desc,
			ImageURL:    &img,
			Status:      "active",
		}, nil)

		meta, err := billing.NewPaddleCatalogWith(products).ProductMeta(context.Background(), "pro_1")
		require.NoError(t, err)
		assert.Equal(t, billing.ProductMeta{Name: "Pro", Description: desc, Image: img, Active: true}, meta)
	})

	t.Run("missing product", func(t *testing.T) {
		t.Parallel()
		products := &mockPaddleProducts{}
		products.On("GetProduct", mock.Anything, mock.Anything).Return(nil, &paddleerr.Error{
			Status: http.StatusNotFound,
			Code:   paddle.ErrNotFound.Code,
			Type:   paddle.ErrNotFound.Type,
			Detail: "missing",
		})

		_, err := billing.NewPaddleCatalogWith(products).ProductMeta(context.Background(), "pro_gone")
		require.Error(t, err)
		assert.ErrorIs(t, err, billing.ErrProductNotFound)
		assert.ErrorIs(t, err, billing.ErrNotFound)
		assert.False(t, billing.IsRetriable(err))
	})

	t.Run("api failure", func(t *testing.T) {
		t.Parallel()
		products := &mockPaddleProducts{}
		products.On("GetProduct", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

		_, err := billing.NewPaddleCatalogWith(products).ProductMeta(context.Background(), "pro_1")
		assert.ErrorIs(t, err, billing.ErrProviderError)
	})

	t.Run("rejects unknown environment", func(t *testing.T) {
		t.Parallel()
		_, err := billing.NewPaddleCatalog(billing.PaddleConfig{APIKey: "key", Environment: "staging"})
		assert.ErrorIs(t, err, billing.ErrInvalidProviderEnvironment)
		_, err = billing.NewPaddleCatalog(billing.PaddleConfig{})
		assert.ErrorIs(t, err, billing.ErrMissingAPIKey)
	})
}
