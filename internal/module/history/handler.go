package history

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/draftforge/server/internal/shared/middleware"
	"github.com/draftforge/server/internal/shared/response"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Handler handles HTTP requests for generation history.
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new history handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the history routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/history", h.List)
	r.DELETE("/history/:id", h.Delete)
	r.POST("/history/export", h.Export)
}

// List returns the tenant's generation history, most recent first.
func (h *Handler) List(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	limit := parseIntQuery(c, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := parseIntQuery(c, "offset", 0)

	records, err := h.service.List(c.Request.Context(), tenantID, limit, offset)
	if err != nil {
		response.InternalError(c, "failed to list history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

// Delete removes one history record by id.
func (h *Handler) Delete(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid record id")
		return
	}

	deleted, err := h.service.Delete(c.Request.Context(), tenantID, id)
	if err != nil {
		response.InternalError(c, "failed to delete history record")
		return
	}
	if !deleted {
		response.NotFound(c, "history record not found")
		return
	}

	c.Status(http.StatusNoContent)
}

// Export uploads the tenant's history and returns a download URL.
func (h *Handler) Export(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)
	if tenantID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	result, err := h.service.Export(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, ErrExportUnavailable) {
			response.Error(c, http.StatusServiceUnavailable, "export storage not configured")
			return
		}
		response.InternalError(c, "failed to export history")
		return
	}

	c.JSON(http.StatusOK, result)
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}
