package billing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator remembers provider event ids so redelivered webhooks are not
// applied twice. Claim returns false if the id was already claimed.
// Release forgets a claim so a failed event can be redelivered.
type Deduplicator interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// MemoryDeduplicator keeps claims in process memory until they expire.
type MemoryDeduplicator struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	claims map[string]time.Time
}

// NewMemoryDeduplicator returns a Deduplicator remembering ids for ttl.
func NewMemoryDeduplicator(ttl time.Duration) *MemoryDeduplicator {
	return &MemoryDeduplicator{
		ttl:    ttl,
		now:    time.Now,
		claims: make(map[string]time.Time),
	}
}

func (d *MemoryDeduplicator) Claim(ctx context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, exp := range d.claims {
		if now.After(exp) {
			delete(d.claims, id)
		}
	}

	if _, ok := d.claims[eventID]; ok {
		return false, nil
	}
	d.claims[eventID] = now.Add(d.ttl)
	return true, nil
}

func (d *MemoryDeduplicator) Release(ctx context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.claims, eventID)
	return nil
}

// RedisDeduplicator stores claims as expiring Redis keys.
type RedisDeduplicator struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisDeduplicator returns a Deduplicator shared across instances.
func NewRedisDeduplicator(client redis.UniversalClient, ttl time.Duration) *RedisDeduplicator {
	if client == nil {
		panic("billing: redis client is required")
	}
	return &RedisDeduplicator{client: client, prefix: "billing:event:", ttl: ttl}
}

func (d *RedisDeduplicator) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.prefix+eventID, time.Now().UTC().Unix(), d.ttl).Result()
	if err != nil {
		return false, errors.Join(ErrStorage, err)
	}
	return ok, nil
}

func (d *RedisDeduplicator) Release(ctx context.Context, eventID string) error {
	if err := d.client.Del(ctx, d.prefix+eventID).Err(); err != nil {
		return errors.Join(ErrStorage, err)
	}
	return nil
}
