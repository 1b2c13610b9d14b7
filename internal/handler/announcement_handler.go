package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asrama-api/internal/models"
	"github.com/noah-isme/asrama-api/internal/service"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/response"
)

type announcementService interface {
	List(ctx context.Context, role models.UserRole, page, size int) ([]models.Announcement, *models.Pagination, error)
	Get(ctx context.Context, id string, role models.UserRole) (*models.Announcement, error)
	Create(ctx context.Context, req service.AnnouncementRequest, createdBy string) (*models.Announcement, error)
	Update(ctx context.Context, id string, req service.AnnouncementRequest) (*models.Announcement, error)
	Delete(ctx context.Context, id string) error
}

// AnnouncementHandler exposes dormitory announcements.
type AnnouncementHandler struct {
	announcements announcementService
}

// NewAnnouncementHandler constructs AnnouncementHandler.
func NewAnnouncementHandler(announcements announcementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements}
}

// List godoc
// @Summary List announcements visible to the caller
// @Tags Announcements
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	page, size := pageQuery(c)
	items, pagination, err := h.announcements.List(c.Request.Context(), callerRole(c), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get announcement
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id} [get]
func (h *AnnouncementHandler) Get(c *gin.Context) {
	item, err := h.announcements.Get(c.Request.Context(), c.Param("id"), callerRole(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Publish announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param payload body service.AnnouncementRequest true "Announcement payload"
// @Success 201 {object} response.Envelope
// @Router /announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	var req service.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.announcements.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param id path string true "Announcement ID"
// @Param payload body service.AnnouncementRequest true "Announcement payload"
// @Success 200 {object} response.Envelope
// @Router /announcements/{id} [put]
func (h *AnnouncementHandler) Update(c *gin.Context) {
	var req service.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	item, err := h.announcements.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete announcement
// @Tags Announcements
// @Param id path string true "Announcement ID"
// @Success 204
// @Router /announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	if err := h.announcements.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func callerRole(c *gin.Context) models.UserRole {
	if claims := claimsFromContext(c); claims != nil {
		return claims.Role
	}
	return models.RoleStudent
}
