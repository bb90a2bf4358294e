package usage

import (
	"time"

	"github.com/google/uuid"
)

// Period tracks generations consumed by a tenant within one billing period.
// Rows are only mutated through the counter's atomic increment/decrement;
// callers never edit the count directly.
type Period struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID `json:"tenant_id" gorm:"type:uuid;not null;uniqueIndex:uq_usage_periods_tenant_period"`
	PeriodStart     time.Time `json:"period_start" gorm:"not null;uniqueIndex:uq_usage_periods_tenant_period"`
	PeriodEnd       time.Time `json:"period_end" gorm:"not null"`
	GenerationsUsed int64     `json:"generations_used" gorm:"not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Period) TableName() string {
	return "usage_periods"
}

// Reservation is a provisional quota slot handed out by CheckAndReserve.
// It records the period it was taken against and the pre-increment count,
// and is the only token Rollback accepts.
type Reservation struct {
	TenantID    uuid.UUID
	PeriodStart time.Time
	Before      int64
}

// Status is a read-only snapshot of a tenant's quota for display.
type Status struct {
	Used           int64     `json:"used"`
	Limit          int64     `json:"limit"` // -1 when unlimited
	Remaining      int64     `json:"remaining"`
	Unlimited      bool      `json:"unlimited"`
	PercentageUsed int       `json:"percentage_used"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
	ResetAt        time.Time `json:"reset_at"`
}
