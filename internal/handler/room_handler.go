package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asrama-api/internal/models"
	"github.com/noah-isme/asrama-api/internal/service"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/response"
)

type roomService interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, error)
	Get(ctx context.Context, ref models.RoomRef) (*models.Room, error)
	Update(ctx context.Context, ref models.RoomRef, req models.RoomUpdate) (*models.Room, []string, error)
	Reconcile(ctx context.Context) (*service.ReconcileResult, error)
}

// RoomHandler exposes the room directory.
type RoomHandler struct {
	rooms roomService
}

// NewRoomHandler constructs RoomHandler.
func NewRoomHandler(rooms roomService) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// List godoc
// @Summary List rooms
// @Tags Rooms
// @Produce json
// @Param building query string false "Building code, e.g. B2"
// @Param available query bool false "Only rooms with a free bed"
// @Param status query string false "AVAILABLE, FULL or UNDER_REPAIR"
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	filter := models.RoomFilter{
		Building:      strings.ToUpper(strings.TrimSpace(c.Query("building"))),
		AvailableOnly: c.Query("available") == "true",
		Status:        models.RoomStatus(strings.ToUpper(c.Query("status"))),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown room status"))
		return
	}
	rooms, err := h.rooms.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// Get godoc
// @Summary Get room
// @Tags Rooms
// @Produce json
// @Param building path string true "Building code"
// @Param number path string true "Room number"
// @Success 200 {object} response.Envelope
// @Router /rooms/{building}/{number} [get]
func (h *RoomHandler) Get(c *gin.Context) {
	room, err := h.rooms.Get(c.Request.Context(), roomRef(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Update godoc
// @Summary Update room capacity, status or notes
// @Tags Rooms
// @Accept json
// @Produce json
// @Param building path string true "Building code"
// @Param number path string true "Room number"
// @Param payload body models.RoomUpdate true "Room changes"
// @Success 200 {object} response.Envelope
// @Router /rooms/{building}/{number} [patch]
func (h *RoomHandler) Update(c *gin.Context) {
	var req models.RoomUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	room, warnings, err := h.rooms.Update(c.Request.Context(), roomRef(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, room, warnings)
}

// Reconcile godoc
// @Summary Recompute room occupancy now
// @Tags Rooms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rooms/reconcile [post]
func (h *RoomHandler) Reconcile(c *gin.Context) {
	result, err := h.rooms.Reconcile(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, result, result.Warnings())
}

func roomRef(c *gin.Context) models.RoomRef {
	return models.RoomRef{
		Building:   strings.ToUpper(strings.TrimSpace(c.Param("building"))),
		RoomNumber: strings.TrimSpace(c.Param("number")),
	}
}
