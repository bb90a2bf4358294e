package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for usage period data access.
type Repository interface {
	// EnsurePeriod returns the period row for the given bounds, creating
	// it if absent. Safe under concurrent first access.
	EnsurePeriod(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*Period, error)
	// Increment atomically adds one to the period's counter and returns
	// the post-increment value.
	Increment(ctx context.Context, tenantID uuid.UUID, start time.Time) (int64, error)
	// Decrement atomically subtracts one from the period's counter,
	// flooring at zero.
	Decrement(ctx context.Context, tenantID uuid.UUID, start time.Time) error
	// Get returns the period row, or nil if it does not exist.
	Get(ctx context.Context, tenantID uuid.UUID, start time.Time) (*Period, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new usage repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) EnsurePeriod(ctx context.Context, tenantID uuid.UUID, start, end time.Time) (*Period, error) {
	period := &Period{
		ID:          uuid.New(),
		TenantID:    tenantID,
		PeriodStart: start,
		PeriodEnd:   end,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(period)
	if res.Error != nil {
		return nil, fmt.Errorf("ensure usage period: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// The period already exists; in the steady state every reserve
		// after the first lands here.
		return r.mustGet(ctx, tenantID, start)
	}
	return period, nil
}

func (r *repository) Increment(ctx context.Context, tenantID uuid.UUID, start time.Time) (int64, error) {
	var period Period
	res := r.db.WithContext(ctx).Model(&period).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "generations_used"}}}).
		Where("tenant_id = ? AND period_start = ?", tenantID, start).
		UpdateColumn("generations_used", gorm.Expr("generations_used + 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("increment usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("increment usage: period not found")
	}
	return period.GenerationsUsed, nil
}

func (r *repository) Decrement(ctx context.Context, tenantID uuid.UUID, start time.Time) error {
	err := r.db.WithContext(ctx).Model(&Period{}).
		Where("tenant_id = ? AND period_start = ?", tenantID, start).
		UpdateColumn("generations_used", gorm.Expr("GREATEST(generations_used - 1, 0)")).Error
	if err != nil {
		return fmt.Errorf("decrement usage: %w", err)
	}
	return nil
}

func (r *repository) Get(ctx context.Context, tenantID uuid.UUID, start time.Time) (*Period, error) {
	var period Period
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND period_start = ?", tenantID, start).
		First(&period).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get usage period: %w", err)
	}
	return &period, nil
}

func (r *repository) mustGet(ctx context.Context, tenantID uuid.UUID, start time.Time) (*Period, error) {
	period, err := r.Get(ctx, tenantID, start)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, fmt.Errorf("usage period vanished after conflict")
	}
	return period, nil
}
