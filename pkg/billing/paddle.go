package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle product catalog.
type PaddleConfig struct {
	APIKey      string `env:"PADDLE_API_KEY,required"`
	Environment string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

type paddleProductGetter interface {
	GetProduct(ctx context.Context, req *paddle.GetProductRequest) (*paddle.Product, error)
}

// PaddleCatalog resolves product metadata through the Paddle API.
// Used when plans are managed in Paddle while payments arrive through Stripe-shaped webhooks.
type PaddleCatalog struct {
	products paddleProductGetter
}

// NewPaddleCatalog creates a ProductCatalog for the configured Paddle environment.
func NewPaddleCatalog(cfg PaddleConfig) (*PaddleCatalog, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProviderEnvironment, cfg.Environment)
	}
	if err != nil {
		return nil, errors.Join(ErrProviderError, err)
	}

	return &PaddleCatalog{products: client.ProductsClient}, nil
}

func (c *PaddleCatalog) ProductMeta(ctx context.Context, productID string) (ProductMeta, error) {
	p, err := c.products.GetProduct(ctx, &paddle.GetProductRequest{ProductID: productID})
	if errors.Is(err, paddle.ErrNotFound) {
		return ProductMeta{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	if err != nil {
		return ProductMeta{}, errors.Join(ErrProviderError, err)
	}
	if p == nil {
		return ProductMeta{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}

	meta := ProductMeta{
		Name:   p.Name,
		Active: strings.EqualFold(string(p.Status), "active"),
	}
	if p.Description != nil {
		meta.Description = *p.Description
	}
	if p.ImageURL != nil {
		meta.Image = *p.ImageURL
	}
	return meta, nil
}
