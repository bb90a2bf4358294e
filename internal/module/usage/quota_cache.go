package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when the counter is not present in the cache.
var ErrCacheMiss = fmt.Errorf("usage counter not in cache")

// QuotaCache mirrors the per-period generation counters in Redis for fast
// Status reads. The database remains authoritative; the cache is updated
// after each successful increment/decrement and rebuilt from the database
// on a miss.
type QuotaCache interface {
	Get(ctx context.Context, tenantID uuid.UUID, periodStart time.Time) (int64, error)
	Set(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time, used int64) error
	Incr(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) error
	Decr(ctx context.Context, tenantID uuid.UUID, periodStart time.Time) error
}

type redisQuotaCache struct {
	client goredis.UniversalClient
}

// NewRedisQuotaCache creates a Redis-backed quota counter mirror.
func NewRedisQuotaCache(client goredis.UniversalClient) QuotaCache {
	return &redisQuotaCache{client: client}
}

func (c *redisQuotaCache) key(tenantID uuid.UUID, periodStart time.Time) string {
	return fmt.Sprintf("quota:gen:%s:%s", tenantID, periodStart.Format("2006-01"))
}

func (c *redisQuotaCache) Get(ctx context.Context, tenantID uuid.UUID, periodStart time.Time) (int64, error) {
	val, err := c.client.Get(ctx, c.key(tenantID, periodStart)).Int64()
	if err == goredis.Nil {
		return 0, ErrCacheMiss
	}
	if err != nil {
		return 0, fmt.Errorf("get quota counter: %w", err)
	}
	return val, nil
}

func (c *redisQuotaCache) Set(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time, used int64) error {
	key := c.key(tenantID, periodStart)
	if err := c.client.Set(ctx, key, used, ttlUntil(periodEnd)).Err(); err != nil {
		return fmt.Errorf("set quota counter: %w", err)
	}
	return nil
}

func (c *redisQuotaCache) Incr(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) error {
	key := c.key(tenantID, periodStart)
	pipe := c.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttlUntil(periodEnd))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("incr quota counter: %w", err)
	}
	return nil
}

func (c *redisQuotaCache) Decr(ctx context.Context, tenantID uuid.UUID, periodStart time.Time) error {
	if err := c.client.Decr(ctx, c.key(tenantID, periodStart)).Err(); err != nil {
		return fmt.Errorf("decr quota counter: %w", err)
	}
	return nil
}

// ttlUntil returns a TTL covering the rest of the period plus a day of
// slack so late rollbacks still find the key.
func ttlUntil(periodEnd time.Time) time.Duration {
	ttl := time.Until(periodEnd) + 24*time.Hour
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}

type noopQuotaCache struct{}

// NewNoopQuotaCache creates a quota cache that always misses.
// Used when Redis is not configured.
func NewNoopQuotaCache() QuotaCache {
	return noopQuotaCache{}
}

func (noopQuotaCache) Get(ctx context.Context, tenantID uuid.UUID, periodStart time.Time) (int64, error) {
	return 0, ErrCacheMiss
}

func (noopQuotaCache) Set(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time, used int64) error {
	return nil
}

func (noopQuotaCache) Incr(ctx context.Context, tenantID uuid.UUID, periodStart, periodEnd time.Time) error {
	return nil
}

func (noopQuotaCache) Decr(ctx context.Context, tenantID uuid.UUID, periodStart time.Time) error {
	return nil
}
