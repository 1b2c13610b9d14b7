package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asrama-api/internal/models"
	"github.com/noah-isme/asrama-api/internal/service"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/export"
	"github.com/noah-isme/asrama-api/pkg/response"
)

type residentService interface {
	List(ctx context.Context, kind models.ResidentKind, filter models.ResidentFilter) ([]models.Resident, *models.Pagination, error)
	Roster(ctx context.Context, kind models.ResidentKind, filter models.ResidentFilter) ([]models.Resident, error)
	Get(ctx context.Context, kind models.ResidentKind, nim string) (*models.Resident, error)
	Create(ctx context.Context, kind models.ResidentKind, req service.CreateResidentRequest) (*models.Resident, []string, error)
	Update(ctx context.Context, kind models.ResidentKind, nim string, req service.UpdateResidentRequest) (*models.Resident, []string, error)
	CheckOut(ctx context.Context, kind models.ResidentKind, nim string) (*models.Resident, error)
	Delete(ctx context.Context, kind models.ResidentKind, nim string) error
}

// ResidentHandler exposes one resident collection; the same handler type
// serves /students and /kasra.
type ResidentHandler struct {
	kind      models.ResidentKind
	residents residentService
}

// NewResidentHandler constructs ResidentHandler for kind.
func NewResidentHandler(kind models.ResidentKind, residents residentService) *ResidentHandler {
	return &ResidentHandler{kind: kind, residents: residents}
}

// List godoc
// @Summary List residents
// @Tags Residents
// @Produce json
// @Param search query string false "Search by name or NIM"
// @Param building query string false "Building code"
// @Param room query string false "Room number"
// @Param gender query string false "Laki-laki or Perempuan"
// @Param status query string false "LIVING or CHECKED_OUT"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
// @Router /kasra [get]
func (h *ResidentHandler) List(c *gin.Context) {
	filter := residentFilter(c)
	filter.Page, filter.PageSize = pageQuery(c)

	residents, pagination, err := h.residents.List(c.Request.Context(), h.kind, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, residents, pagination)
}

// Get godoc
// @Summary Get resident
// @Tags Residents
// @Produce json
// @Param nim path string true "NIM"
// @Success 200 {object} response.Envelope
// @Router /students/{nim} [get]
// @Router /kasra/{nim} [get]
func (h *ResidentHandler) Get(c *gin.Context) {
	resident, err := h.residents.Get(c.Request.Context(), h.kind, c.Param("nim"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resident, nil)
}

// Create godoc
// @Summary Register resident and assign a room
// @Tags Residents
// @Accept json
// @Produce json
// @Param payload body service.CreateResidentRequest true "Resident payload"
// @Success 201 {object} response.Envelope
// @Router /students [post]
// @Router /kasra [post]
func (h *ResidentHandler) Create(c *gin.Context) {
	var req service.CreateResidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resident, warnings, err := h.residents.Create(c.Request.Context(), h.kind, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusCreated, resident, warnings)
}

// Update godoc
// @Summary Update resident
// @Tags Residents
// @Accept json
// @Produce json
// @Param nim path string true "NIM"
// @Param payload body service.UpdateResidentRequest true "Resident payload"
// @Success 200 {object} response.Envelope
// @Router /students/{nim} [put]
// @Router /kasra/{nim} [put]
func (h *ResidentHandler) Update(c *gin.Context) {
	var req service.UpdateResidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resident, warnings, err := h.residents.Update(c.Request.Context(), h.kind, c.Param("nim"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, resident, warnings)
}

// CheckOut godoc
// @Summary Check resident out and free the bed
// @Tags Residents
// @Produce json
// @Param nim path string true "NIM"
// @Success 200 {object} response.Envelope
// @Router /students/{nim}/checkout [post]
// @Router /kasra/{nim}/checkout [post]
func (h *ResidentHandler) CheckOut(c *gin.Context) {
	resident, err := h.residents.CheckOut(c.Request.Context(), h.kind, c.Param("nim"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resident, nil)
}

// Delete godoc
// @Summary Delete resident record
// @Tags Residents
// @Param nim path string true "NIM"
// @Success 204
// @Router /students/{nim} [delete]
// @Router /kasra/{nim} [delete]
func (h *ResidentHandler) Delete(c *gin.Context) {
	if err := h.residents.Delete(c.Request.Context(), h.kind, c.Param("nim")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

var rosterColumns = []export.Column[models.Resident]{
	{Header: "nim", Value: func(r models.Resident) string { return r.NIM }},
	{Header: "name", Value: func(r models.Resident) string { return r.Name }},
	{Header: "gender", Value: func(r models.Resident) string { return string(r.Gender) }},
	{Header: "building", Value: func(r models.Resident) string { return r.Building }},
	{Header: "room_number", Value: func(r models.Resident) string { return r.RoomNumber }},
	{Header: "status", Value: func(r models.Resident) string { return string(r.Status) }},
	{Header: "program", Value: func(r models.Resident) string { return r.Program }},
	{Header: "faculty", Value: func(r models.Resident) string { return r.Faculty }},
	{Header: "phone", Value: func(r models.Resident) string { return r.Phone }},
}

// Export godoc
// @Summary Download the resident roster as CSV
// @Tags Residents
// @Produce text/csv
// @Param building query string false "Building code"
// @Param status query string false "LIVING or CHECKED_OUT"
// @Success 200 {string} string "CSV file"
// @Router /students/export [get]
// @Router /kasra/export [get]
func (h *ResidentHandler) Export(c *gin.Context) {
	residents, err := h.residents.Roster(c.Request.Context(), h.kind, residentFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("%s-%s.csv", strings.ToLower(string(h.kind)), time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, rosterColumns, residents); err != nil {
		_ = c.Error(err)
	}
}

func residentFilter(c *gin.Context) models.ResidentFilter {
	return models.ResidentFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Building: strings.ToUpper(strings.TrimSpace(c.Query("building"))),
		Room:     strings.TrimSpace(c.Query("room")),
		Gender:   models.Gender(c.Query("gender")),
		Status:   models.ResidencyStatus(strings.ToUpper(c.Query("status"))),
	}
}
