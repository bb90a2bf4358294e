package subscription

import (
	"time"

	"github.com/draftforge/server/internal/module/plan"
)

// PlanResponse is the API representation of a plan definition.
type PlanResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	GenerationLimit *int64   `json:"generation_limit"` // null for unlimited
	Unlimited       bool     `json:"unlimited"`
	Features        []string `json:"features"`
}

// NewPlanResponse converts a plan definition to its API representation.
func NewPlanResponse(def *plan.Definition) *PlanResponse {
	resp := &PlanResponse{
		ID:        string(def.ID),
		Name:      def.Name,
		Unlimited: def.IsUnlimited(),
		Features:  def.FeatureList(),
	}
	if !def.IsUnlimited() {
		limit := def.GenerationLimit
		resp.GenerationLimit = &limit
	}
	return resp
}

// SubscriptionResponse is the API representation of a subscription.
type SubscriptionResponse struct {
	ID        string     `json:"id"`
	Plan      string     `json:"plan"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToResponse converts a subscription to its API representation.
func (s *Subscription) ToResponse() *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:        s.ID.String(),
		Plan:      string(s.PlanID),
		Status:    string(s.Status),
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
}
