package events

import "github.com/google/uuid"

// Billing event type constants.
const (
	PlanChangedType = "PlanChanged"
)

// PlanChangedEvent is emitted when the billing collaborator reports a plan
// change for a tenant (upgrade, downgrade or cancellation fallback).
// This is defined here so both the billing intake and the subscription
// module can reference it without a cyclic import.
type PlanChangedEvent struct {
	BaseEvent

	// TenantID is the tenant whose plan changed.
	TenantID uuid.UUID `json:"tenant_id"`

	// NewPlan is the plan identifier the tenant moved to.
	NewPlan string `json:"new_plan"`

	// ExternalBillingRef is the opaque billing-side reference
	// (e.g. a Stripe subscription id). May be empty.
	ExternalBillingRef string `json:"external_billing_ref,omitempty"`
}

// NewPlanChangedEvent creates a new PlanChangedEvent.
func NewPlanChangedEvent(tenantID uuid.UUID, newPlan, externalBillingRef string) *PlanChangedEvent {
	return &PlanChangedEvent{
		BaseEvent:          NewBaseEvent(PlanChangedType),
		TenantID:           tenantID,
		NewPlan:            newPlan,
		ExternalBillingRef: externalBillingRef,
	}
}
