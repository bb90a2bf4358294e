package subscription

import "fmt"

var (
	// ErrSubscriptionNotFound is returned when a tenant has no active subscription.
	ErrSubscriptionNotFound = fmt.Errorf("subscription not found")
	// ErrInvalidPlanTransition is returned when an upgrade targets an unknown plan.
	ErrInvalidPlanTransition = fmt.Errorf("invalid plan transition")
)
