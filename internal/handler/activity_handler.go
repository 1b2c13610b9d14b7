package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asrama-api/internal/models"
	"github.com/noah-isme/asrama-api/internal/service"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/response"
)

type activityService interface {
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error)
	Get(ctx context.Context, id string) (*models.Activity, error)
	Create(ctx context.Context, req service.ActivityRequest, createdBy string) (*models.Activity, error)
	Update(ctx context.Context, id string, req service.ActivityRequest) (*models.Activity, error)
	Delete(ctx context.Context, id string) error
}

// ActivityHandler exposes the dormitory activity calendar.
type ActivityHandler struct {
	activities activityService
}

// NewActivityHandler constructs ActivityHandler.
func NewActivityHandler(activities activityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// List godoc
// @Summary List activities
// @Tags Activities
// @Produce json
// @Param building query string false "Building code"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Success 200 {object} response.Envelope
// @Router /activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	filter := models.ActivityFilter{Building: strings.ToUpper(strings.TrimSpace(c.Query("building")))}
	var err error
	if filter.From, err = timeQuery(c, "from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.To, err = timeQuery(c, "to"); err != nil {
		response.Error(c, err)
		return
	}

	activities, err := h.activities.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, nil)
}

// Get godoc
// @Summary Get activity
// @Tags Activities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Router /activities/{id} [get]
func (h *ActivityHandler) Get(c *gin.Context) {
	activity, err := h.activities.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity, nil)
}

// Create godoc
// @Summary Schedule activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param payload body service.ActivityRequest true "Activity payload"
// @Success 201 {object} response.Envelope
// @Router /activities [post]
func (h *ActivityHandler) Create(c *gin.Context) {
	var req service.ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	activity, err := h.activities.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, activity)
}

// Update godoc
// @Summary Update activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param id path string true "Activity ID"
// @Param payload body service.ActivityRequest true "Activity payload"
// @Success 200 {object} response.Envelope
// @Router /activities/{id} [put]
func (h *ActivityHandler) Update(c *gin.Context) {
	var req service.ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	activity, err := h.activities.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity, nil)
}

// Delete godoc
// @Summary Delete activity
// @Tags Activities
// @Param id path string true "Activity ID"
// @Success 204
// @Router /activities/{id} [delete]
func (h *ActivityHandler) Delete(c *gin.Context) {
	if err := h.activities.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func timeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, key+" must be RFC3339")
	}
	return &parsed, nil
}
