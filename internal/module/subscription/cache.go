package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Cache provides short-lived caching of active subscriptions.
// Staleness for a few seconds after an upgrade is acceptable because
// writes invalidate the entry synchronously.
type Cache interface {
	Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, bool)
	Set(ctx context.Context, sub *Subscription)
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

const defaultCacheTTL = 5 * time.Second

type redisCache struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed subscription cache.
func NewRedisCache(client goredis.UniversalClient, ttl time.Duration) Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisCache{client: client, ttl: ttl}
}

func (c *redisCache) key(tenantID uuid.UUID) string {
	return fmt.Sprintf("sub:active:%s", tenantID)
}

func (c *redisCache) Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, bool) {
	data, err := c.client.Get(ctx, c.key(tenantID)).Bytes()
	if err != nil {
		return nil, false
	}
	var sub Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return nil, false
	}
	return &sub, true
}

func (c *redisCache) Set(ctx context.Context, sub *Subscription) {
	data, err := json.Marshal(sub)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(sub.TenantID), data, c.ttl)
}

func (c *redisCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {
	c.client.Del(ctx, c.key(tenantID))
}

type noopCache struct{}

// NewNoopCache creates a cache that stores nothing.
// Used when Redis is not configured.
func NewNoopCache() Cache {
	return noopCache{}
}

func (noopCache) Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, bool) {
	return nil, false
}
func (noopCache) Set(ctx context.Context, sub *Subscription) {}

func (noopCache) Invalidate(ctx context.Context, tenantID uuid.UUID) {}
