package generation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/draftforge/server/internal/module/usage"
	"github.com/draftforge/server/internal/shared/middleware"
	"github.com/draftforge/server/internal/shared/response"
)

// Handler handles HTTP requests for content generation.
type Handler struct {
	service *Service
}

// NewHandler creates a new generation handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the generation routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/generate", h.Generate)
	r.GET("/usage", h.GetUsage)
}

var generateErrorMappings = []response.ErrorMapping{
	{Err: ErrInvalidToolType, Status: http.StatusBadRequest, Code: "INVALID_TOOL_TYPE"},
	{Err: usage.ErrQuotaExceeded, Status: http.StatusPaymentRequired, Code: "QUOTA_EXCEEDED",
		Message: "generation quota exceeded, upgrade your plan to continue"},
	{Err: ErrProviderRateLimited, Status: http.StatusTooManyRequests, Code: "PROVIDER_RATE_LIMITED",
		Message: "the model provider is rate limiting requests, try again shortly"},
	{Err: ErrProviderPaymentRequired, Status: http.StatusBadGateway, Code: "PROVIDER_PAYMENT_REQUIRED",
		Message: "the model provider rejected the request for billing reasons"},
	{Err: ErrProviderUnknown, Status: http.StatusBadGateway, Code: "PROVIDER_ERROR",
		Message: "the model provider failed to process the request"},
}

// Generate runs one generation for the authenticated tenant.
func (h *Handler) Generate(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "tool_type and input are required")
		return
	}

	result, err := h.service.Generate(c.Request.Context(), tenantID, ToolType(req.ToolType), req.Language, req.Input)
	if err != nil {
		response.HandleErrorWithDefault(c, err, generateErrorMappings)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetUsage returns the tenant's quota snapshot.
func (h *Handler) GetUsage(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	status, err := h.service.GetUsage(c.Request.Context(), tenantID)
	if err != nil {
		response.InternalError(c, "failed to get usage")
		return
	}

	c.JSON(http.StatusOK, status)
}
