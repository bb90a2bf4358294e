package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for history data access.
type Repository interface {
	Create(ctx context.Context, record *Record) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Record, error)
	// Delete removes a tenant's record by id and reports whether it existed.
	Delete(ctx context.Context, tenantID, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new history repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, record *Record) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create history record: %w", err)
	}
	return nil
}

func (r *repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Record, error) {
	var records []*Record
	q := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return records, nil
}

func (r *repository) Delete(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&Record{})
	if res.Error != nil {
		return false, fmt.Errorf("delete history record: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
