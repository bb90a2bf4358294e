package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/draftforge/server/internal/module/plan"
)

// Status represents the lifecycle state of a subscription.
type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

// Subscription represents one plan assignment for a tenant.
// Plan changes never mutate an existing row; the current active row is
// closed and a new one inserted, preserving history.
type Subscription struct {
	ID                 uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID           uuid.UUID  `json:"tenant_id" gorm:"type:uuid;not null;index;uniqueIndex:uq_subscriptions_tenant_active,where:status = 'active'"`
	PlanID             plan.Type  `json:"plan_id" gorm:"not null"`
	Status             Status     `json:"status" gorm:"not null;index"`
	ExternalBillingRef *string    `json:"external_billing_ref,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName returns the database table name.
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsActive returns true if the subscription is currently active.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// IsPastExpiry returns true if the subscription has an expiry in the past.
func (s *Subscription) IsPastExpiry(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// NewSubscription creates an active subscription for the tenant.
func NewSubscription(tenantID uuid.UUID, planID plan.Type, billingRef *string, expiresAt *time.Time) *Subscription {
	return &Subscription{
		ID:                 uuid.New(),
		TenantID:           tenantID,
		PlanID:             planID,
		Status:             StatusActive,
		ExternalBillingRef: billingRef,
		ExpiresAt:          expiresAt,
	}
}
