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

type importService interface {
	Import(ctx context.Context, kind models.ResidentKind, rows []service.CreateResidentRequest) (*service.ImportReport, error)
}

// ImportHandler accepts bulk resident uploads that were already parsed
// into JSON rows by the client.
type ImportHandler struct {
	imports importService
}

// NewImportHandler constructs ImportHandler.
func NewImportHandler(imports importService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// Students godoc
// @Summary Bulk import students
// @Tags Imports
// @Accept json
// @Produce json
// @Param payload body []service.CreateResidentRequest true "Rows"
// @Success 200 {object} response.Envelope
// @Router /imports/students [post]
func (h *ImportHandler) Students(c *gin.Context) {
	h.run(c, models.KindStudent)
}

// Kasra godoc
// @Summary Bulk import resident assistants
// @Tags Imports
// @Accept json
// @Produce json
// @Param payload body []service.CreateResidentRequest true "Rows"
// @Success 200 {object} response.Envelope
// @Router /imports/kasra [post]
func (h *ImportHandler) Kasra(c *gin.Context) {
	h.run(c, models.KindKasra)
}

func (h *ImportHandler) run(c *gin.Context, kind models.ResidentKind) {
	var rows []service.CreateResidentRequest
	if err := c.ShouldBindJSON(&rows); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "payload must be a JSON array of rows"))
		return
	}
	report, err := h.imports.Import(c.Request.Context(), kind, rows)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.WithWarnings(c, http.StatusOK, report, report.Warnings)
}
