package usage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftforge/server/internal/module/plan"
	"github.com/draftforge/server/internal/module/subscription"
	"github.com/draftforge/server/internal/shared/metrics"
)

// SubscriptionSource resolves a tenant's active subscription.
type SubscriptionSource interface {
	GetActive(ctx context.Context, tenantID uuid.UUID) (*subscription.Subscription, error)
}

// Counter enforces per-tenant generation quotas.
//
// The check-and-increment is a single atomic database update followed by a
// post-check: the update unconditionally increments the counter and returns
// the new value, and if that value overshoots a finite limit the slot is
// immediately returned. Two concurrent requests competing for the last slot
// therefore cannot both be admitted. The critical section never spans the
// provider call.
type Counter struct {
	repo    Repository
	subs    SubscriptionSource
	catalog *plan.Catalog
	cache   QuotaCache
	metrics *metrics.Metrics
	logger  *zap.Logger
	clock   func() time.Time
}

// NewCounter creates a new usage counter. metrics may be nil.
func NewCounter(repo Repository, subs SubscriptionSource, catalog *plan.Catalog, cache QuotaCache, m *metrics.Metrics, logger *zap.Logger) *Counter {
	return &Counter{
		repo:    repo,
		subs:    subs,
		catalog: catalog,
		cache:   cache,
		metrics: m,
		logger:  logger,
		clock:   time.Now,
	}
}

// CheckAndReserve admits one generation for the tenant, incrementing the
// current period's counter. Returns ErrQuotaExceeded when no slot remains.
func (c *Counter) CheckAndReserve(ctx context.Context, tenantID uuid.UUID) (*Reservation, error) {
	def, start, end, err := c.resolvePlan(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if _, err := c.repo.EnsurePeriod(ctx, tenantID, start, end); err != nil {
		return nil, err
	}

	newVal, err := c.repo.Increment(ctx, tenantID, start)
	if err != nil {
		return nil, err
	}

	if !def.IsUnlimited() && newVal > def.GenerationLimit {
		// Overshot the limit; give the slot back.
		if derr := c.repo.Decrement(ctx, tenantID, start); derr != nil {
			c.logger.Error("failed to return overshot quota slot",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(derr))
		}
		if c.metrics != nil {
			c.metrics.QuotaDenialsTotal.WithLabelValues(string(def.ID)).Inc()
		}
		return nil, ErrQuotaExceeded
	}

	if err := c.cache.Incr(ctx, tenantID, start, end); err != nil {
		c.logger.Warn("failed to mirror quota increment",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err))
	}

	return &Reservation{
		TenantID:    tenantID,
		PeriodStart: start,
		Before:      newVal - 1,
	}, nil
}

// Rollback returns a reserved slot after a failed generation attempt.
// A rollback against a period that has since rolled over is a no-op.
func (c *Counter) Rollback(ctx context.Context, token *Reservation) error {
	if token == nil {
		return nil
	}

	start, _ := monthBounds(c.clock())
	if !token.PeriodStart.Equal(start) {
		// The stale period's counter no longer matters.
		return nil
	}

	if err := c.repo.Decrement(ctx, token.TenantID, token.PeriodStart); err != nil {
		return err
	}

	if err := c.cache.Decr(ctx, token.TenantID, token.PeriodStart); err != nil {
		c.logger.Warn("failed to mirror quota decrement",
			zap.String("tenant_id", token.TenantID.String()),
			zap.Error(err))
	}

	if c.metrics != nil {
		c.metrics.QuotaRollbacksTotal.Inc()
	}
	return nil
}

// Status returns a read-only snapshot of the tenant's quota.
func (c *Counter) Status(ctx context.Context, tenantID uuid.UUID) (*Status, error) {
	def, start, end, err := c.resolvePlan(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	used, err := c.cache.Get(ctx, tenantID, start)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("quota cache read failed",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err))
		}
		period, dberr := c.repo.Get(ctx, tenantID, start)
		if dberr != nil {
			return nil, dberr
		}
		used = 0
		if period != nil {
			used = period.GenerationsUsed
		}
		if serr := c.cache.Set(ctx, tenantID, start, end, used); serr != nil {
			c.logger.Warn("failed to rebuild quota cache",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(serr))
		}
	}

	status := &Status{
		Used:        used,
		PeriodStart: start,
		PeriodEnd:   end,
		ResetAt:     end,
	}

	if def.IsUnlimited() {
		status.Unlimited = true
		status.Limit = plan.Unlimited
		status.Remaining = plan.Unlimited
		status.PercentageUsed = 0
		return status, nil
	}

	status.Limit = def.GenerationLimit
	status.Remaining = def.GenerationLimit - used
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	if def.GenerationLimit > 0 {
		pct := int(used * 100 / def.GenerationLimit)
		if pct > 100 {
			pct = 100
		}
		status.PercentageUsed = pct
	}
	return status, nil
}

func (c *Counter) resolvePlan(ctx context.Context, tenantID uuid.UUID) (*plan.Definition, time.Time, time.Time, error) {
	sub, err := c.subs.GetActive(ctx, tenantID)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	def, err := c.catalog.Resolve(sub.PlanID)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	start, end := monthBounds(c.clock())
	return def, start, end, nil
}

// monthBounds returns the UTC calendar-month period containing t.
func monthBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return start, end
}
