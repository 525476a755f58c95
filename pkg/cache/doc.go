// Package cache provides a small generic LRU cache with per-entry expiry.
//
// It backs lookups that are expensive to repeat and safe to serve slightly
// stale, such as product metadata fetched from a billing provider:
//
//	c := cache.NewLRUCache[string, billing.ProductMeta](512, cache.WithTTL(10*time.Minute))
//	c.Put("prod_123", meta)
//	meta, ok := c.Get("prod_123")
//
// All methods are safe for concurrent use.
package cache
