package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/draftforge/server/internal/shared/database"
)

// Repository defines the interface for subscription data access.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	GetActive(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Subscription, error)
	// Replace closes the current active record with the given status and
	// inserts the next one in a single transaction.
	Replace(ctx context.Context, currentID uuid.UUID, closeTo Status, next *Subscription) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new subscription repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, sub *Subscription) error {
	if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (r *repository) GetActive(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	var sub Subscription
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, StatusActive).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get active subscription: %w", err)
	}
	return &sub, nil
}

func (r *repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Subscription, error) {
	var subs []*Subscription
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

func (r *repository) Replace(ctx context.Context, currentID uuid.UUID, closeTo Status, next *Subscription) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Subscription{}).
			Where("id = ? AND status = ?", currentID, StatusActive).
			Update("status", closeTo)
		if res.Error != nil {
			return fmt.Errorf("close subscription: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrSubscriptionNotFound
		}
		if err := tx.Create(next).Error; err != nil {
			return fmt.Errorf("create replacement subscription: %w", err)
		}
		return nil
	})
}
