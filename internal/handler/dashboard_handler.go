package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asrama-api/internal/middleware"
	"github.com/noah-isme/asrama-api/internal/models"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/response"
)

type dashboardService interface {
	Occupancy(ctx context.Context) (*models.OccupancySummary, bool, error)
	Invalidate(ctx context.Context)
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Occupancy godoc
// @Summary Occupancy per building
// @Tags Dashboard
// @Produce json
// @Param refresh query bool false "Recompute instead of serving the cached summary (admin only)"
// @Success 200 {object} response.Envelope
// @Router /dashboard/occupancy [get]
func (h *DashboardHandler) Occupancy(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	if c.Query("refresh") == "true" {
		if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleAdmin {
			h.service.Invalidate(c.Request.Context())
		}
	}
	summary, cacheHit, err := h.service.Occupancy(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}
