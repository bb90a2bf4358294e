package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/draftforge/server/internal/module/plan"
	"github.com/draftforge/server/internal/shared/database"
)

// ServiceInterface defines the subscription service interface.
type ServiceInterface interface {
	// GetActive returns the tenant's active subscription, lazily creating
	// a free one on first access and handling lazy expiry.
	GetActive(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)
	// ApplyUpgrade closes the current active subscription and activates
	// the new plan. Upgrades always win over concurrent usage.
	ApplyUpgrade(ctx context.Context, tenantID uuid.UUID, newPlan plan.Type, billingRef string) (*Subscription, error)
	// ListHistory returns all subscription records for the tenant,
	// most recent first.
	ListHistory(ctx context.Context, tenantID uuid.UUID) ([]*Subscription, error)
}

// Service implements subscription lifecycle management.
type Service struct {
	repo    Repository
	catalog *plan.Catalog
	cache   Cache
	logger  *zap.Logger
	clock   func() time.Time
}

// NewService creates a new subscription service.
func NewService(repo Repository, catalog *plan.Catalog, cache Cache, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		cache:   cache,
		logger:  logger,
		clock:   time.Now,
	}
}

// GetActive returns the tenant's active subscription.
//
// A tenant with no subscription is implicitly on the free plan; the first
// access creates the record. Concurrent first accesses are serialized by
// the partial unique index on (tenant_id) WHERE status = 'active': the
// losing inserter reads back the winner's row.
//
// Expiry is checked lazily here rather than by a background sweep; a
// subscription whose expires_at has passed is closed as expired and
// replaced with a fresh free one.
func (s *Service) GetActive(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	if sub, ok := s.cache.Get(ctx, tenantID); ok {
		if !sub.IsPastExpiry(s.clock()) {
			return sub, nil
		}
		// Expired entry, fall through to the authoritative path.
		s.cache.Invalidate(ctx, tenantID)
	}

	sub, err := s.repo.GetActive(ctx, tenantID)
	if errors.Is(err, ErrSubscriptionNotFound) {
		sub, err = s.createDefault(ctx, tenantID)
	}
	if err != nil {
		return nil, err
	}

	if sub.IsPastExpiry(s.clock()) {
		sub, err = s.expire(ctx, sub)
		if err != nil {
			return nil, err
		}
	}

	s.cache.Set(ctx, sub)
	return sub, nil
}

func (s *Service) createDefault(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	sub := NewSubscription(tenantID, plan.TypeFree, nil, nil)
	err := s.repo.Create(ctx, sub)
	if err == nil {
		s.logger.Info("created default subscription",
			zap.String("tenant_id", tenantID.String()))
		return sub, nil
	}
	if database.IsUniqueViolation(err) {
		// Lost the race to a concurrent first access; use the winner's row.
		return s.repo.GetActive(ctx, tenantID)
	}
	return nil, err
}

func (s *Service) expire(ctx context.Context, current *Subscription) (*Subscription, error) {
	next := NewSubscription(current.TenantID, plan.TypeFree, nil, nil)
	err := s.repo.Replace(ctx, current.ID, StatusExpired, next)
	if errors.Is(err, ErrSubscriptionNotFound) {
		// Another request already expired it.
		return s.repo.GetActive(ctx, current.TenantID)
	}
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, current.TenantID)
	s.logger.Info("subscription expired, reverted to free",
		zap.String("tenant_id", current.TenantID.String()),
		zap.String("expired_plan", string(current.PlanID)))
	return next, nil
}

func (s *Service) ApplyUpgrade(ctx context.Context, tenantID uuid.UUID, newPlan plan.Type, billingRef string) (*Subscription, error) {
	if _, err := s.catalog.Resolve(newPlan); err != nil {
		return nil, ErrInvalidPlanTransition
	}

	current, err := s.GetActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var ref *string
	if billingRef != "" {
		ref = &billingRef
	}
	next := NewSubscription(tenantID, newPlan, ref, nil)

	if err := s.repo.Replace(ctx, current.ID, StatusCanceled, next); err != nil {
		return nil, err
	}

	// Readers must see the new plan on the next uncached access.
	s.cache.Invalidate(ctx, tenantID)

	s.logger.Info("applied plan upgrade",
		zap.String("tenant_id", tenantID.String()),
		zap.String("from_plan", string(current.PlanID)),
		zap.String("to_plan", string(newPlan)))
	return next, nil
}

func (s *Service) ListHistory(ctx context.Context, tenantID uuid.UUID) ([]*Subscription, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}
