package subscription

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/draftforge/server/internal/module/plan"
	"github.com/draftforge/server/internal/shared/middleware"
	"github.com/draftforge/server/internal/shared/response"
)

// Handler handles HTTP requests for subscriptions and plans.
type Handler struct {
	service ServiceInterface
	catalog *plan.Catalog
}

// NewHandler creates a new subscription handler.
func NewHandler(service ServiceInterface, catalog *plan.Catalog) *Handler {
	return &Handler{service: service, catalog: catalog}
}

// RegisterRoutes registers the subscription routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/plans", h.ListPlans)
	r.GET("/subscription", h.GetSubscription)
}

// ListPlans returns all available plans.
func (h *Handler) ListPlans(c *gin.Context) {
	defs := h.catalog.All()
	responses := make([]*PlanResponse, len(defs))
	for i, def := range defs {
		responses[i] = NewPlanResponse(def)
	}

	c.JSON(http.StatusOK, gin.H{"plans": responses})
}

// GetSubscription returns the tenant's active subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	sub, err := h.service.GetActive(c.Request.Context(), tenantID)
	if err != nil {
		response.InternalError(c, "failed to get subscription")
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": sub.ToResponse()})
}
