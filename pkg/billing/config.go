package billing

import (
	"fmt"
	"time"
)

// Config holds tunables of the billing service.
type Config struct {
	Collection       string        `env:"BILLING_COLLECTION" envDefault:"subscriptions"`             // Collection stores one subscription record per user.
	UsersCollection  string        `env:"BILLING_USERS_COLLECTION" envDefault:"users"`               // UsersCollection is where customer ids are mapped to users.
	CustomerIDField  string        `env:"BILLING_CUSTOMER_ID_FIELD" envDefault:"stripe_customer_id"` // CustomerIDField is the user document field holding the provider customer id.
	Catalog          string        `env:"BILLING_PRODUCT_CATALOG" envDefault:"stripe"`               // Catalog selects the product metadata source: "stripe" or "paddle".
	ProductCacheSize int           `env:"BILLING_PRODUCT_CACHE_SIZE" envDefault:"256"`               // ProductCacheSize bounds the number of cached product lookups.
	ProductCacheTTL  time.Duration `env:"BILLING_PRODUCT_CACHE_TTL" envDefault:"10m"`                // ProductCacheTTL is how long product metadata is served from cache.
	NewMemberWindow  time.Duration `env:"BILLING_NEW_MEMBER_WINDOW" envDefault:"720h"`               // NewMemberWindow is how long a subscription_create payment marks a member as new.
	MaxWriteAttempts int           `env:"BILLING_MAX_WRITE_ATTEMPTS" envDefault:"5"`                 // MaxWriteAttempts bounds optimistic write retries per mutation.
	LockTTL          time.Duration `env:"BILLING_LOCK_TTL" envDefault:"30s"`                         // LockTTL is the expiry of the distributed per-user write lock.
	EventDedupTTL    time.Duration `env:"BILLING_EVENT_DEDUP_TTL" envDefault:"72h"`                  // EventDedupTTL is how long processed webhook ids are remembered.
	Timezone         string        `env:"BILLING_REPORT_TIMEZONE" envDefault:"UTC"`                  // Timezone is used to assign periods to report buckets.
}

// Location resolves Timezone. An empty value means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: report timezone %q: %w", ErrInvalidInput, c.Timezone, err)
	}
	return loc, nil
}
