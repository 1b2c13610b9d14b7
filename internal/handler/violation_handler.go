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

type violationService interface {
	Record(ctx context.Context, req service.RecordViolationRequest, recordedBy string) (*models.Violation, error)
	List(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, *models.Pagination, error)
	Summary(ctx context.Context, nim string) (*models.ViolationSummary, error)
	Delete(ctx context.Context, id string) error
}

// ViolationHandler exposes disciplinary records.
type ViolationHandler struct {
	violations violationService
}

// NewViolationHandler constructs ViolationHandler.
func NewViolationHandler(violations violationService) *ViolationHandler {
	return &ViolationHandler{violations: violations}
}

// List godoc
// @Summary List violations
// @Tags Violations
// @Produce json
// @Param nim query string false "NIM, ignored for students"
// @Param category query string false "RINGAN, SEDANG or BERAT"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /violations [get]
func (h *ViolationHandler) List(c *gin.Context) {
	filter := models.ViolationFilter{
		NIM:      scopedNIM(c),
		Category: models.ViolationCategory(strings.ToUpper(c.Query("category"))),
	}
	filter.Page, filter.PageSize = pageQuery(c)

	violations, pagination, err := h.violations.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, violations, pagination)
}

// Record godoc
// @Summary Record a violation
// @Tags Violations
// @Accept json
// @Produce json
// @Param payload body service.RecordViolationRequest true "Violation payload"
// @Success 201 {object} response.Envelope
// @Router /violations [post]
func (h *ViolationHandler) Record(c *gin.Context) {
	var req service.RecordViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	violation, err := h.violations.Record(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, violation)
}

// Summary godoc
// @Summary Violation points for a resident
// @Tags Violations
// @Produce json
// @Param nim path string true "NIM"
// @Success 200 {object} response.Envelope
// @Router /violations/summary/{nim} [get]
func (h *ViolationHandler) Summary(c *gin.Context) {
	summary, err := h.violations.Summary(c.Request.Context(), c.Param("nim"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Delete godoc
// @Summary Delete violation
// @Tags Violations
// @Param id path string true "Violation ID"
// @Success 204
// @Router /violations/{id} [delete]
func (h *ViolationHandler) Delete(c *gin.Context) {
	if err := h.violations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
