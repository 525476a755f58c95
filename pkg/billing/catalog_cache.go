package billing

import (
	"context"
	"time"

	"github.com/dmitrymomot/membership/pkg/cache"
)

// Defaults for CachedCatalog.
const (
	DefaultProductCacheSize = 256
	DefaultProductCacheTTL  = 10 * time.Minute
)

// CachedCatalog memoizes successful product lookups of another catalog.
// Failures are never cached, so a provider outage does not outlive itself.
type CachedCatalog struct {
	next  ProductCatalog
	items *cache.LRUCache[string, ProductMeta]
}

// NewCachedCatalog wraps next with an LRU of size entries that expire after ttl.
// Non-positive values fall back to the defaults.
func NewCachedCatalog(next ProductCatalog, size int, ttl time.Duration) *CachedCatalog {
	if next == nil {
		panic("billing: ProductCatalog is required")
	}
	if size <= 0 {
		size = DefaultProductCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultProductCacheTTL
	}
	return &CachedCatalog{
		next:  next,
		items: cache.NewLRUCache[string, ProductMeta](size, cache.WithTTL(ttl)),
	}
}

func (c *CachedCatalog) ProductMeta(ctx context.Context, productID string) (ProductMeta, error) {
	if meta, ok := c.items.Get(productID); ok {
		return meta, nil
	}
	meta, err := c.next.ProductMeta(ctx, productID)
	if err != nil {
		return ProductMeta{}, err
	}
	c.items.Put(productID, meta)
	return meta, nil
}

// Forget drops productID so the next lookup reaches the provider,
// e.g. after a product.updated notification.
func (c *CachedCatalog) Forget(productID string) {
	c.items.Remove(productID)
}
