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

type complaintService interface {
	File(ctx context.Context, nim string, req service.CreateComplaintRequest) (*models.Complaint, error)
	List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Complaint, error)
	UpdateStatus(ctx context.Context, id string, req service.UpdateComplaintStatusRequest, handledBy string) (*models.Complaint, error)
}

// fileComplaintPayload lets staff file on behalf of a resident.
type fileComplaintPayload struct {
	NIM string `json:"nim"`
	service.CreateComplaintRequest
}

// ComplaintHandler exposes resident complaints.
type ComplaintHandler struct {
	complaints complaintService
}

// NewComplaintHandler constructs ComplaintHandler.
func NewComplaintHandler(complaints complaintService) *ComplaintHandler {
	return &ComplaintHandler{complaints: complaints}
}

// List godoc
// @Summary List complaints
// @Tags Complaints
// @Produce json
// @Param nim query string false "NIM, ignored for students"
// @Param status query string false "OPEN, IN_PROGRESS or RESOLVED"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /complaints [get]
func (h *ComplaintHandler) List(c *gin.Context) {
	filter := models.ComplaintFilter{
		NIM:    scopedNIM(c),
		Status: models.ComplaintStatus(strings.ToUpper(c.Query("status"))),
	}
	filter.Page, filter.PageSize = pageQuery(c)

	complaints, pagination, err := h.complaints.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaints, pagination)
}

// Get godoc
// @Summary Get complaint
// @Tags Complaints
// @Produce json
// @Param id path string true "Complaint ID"
// @Success 200 {object} response.Envelope
// @Router /complaints/{id} [get]
func (h *ComplaintHandler) Get(c *gin.Context) {
	complaint, err := h.complaints.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ownsRecord(c, complaint.NIM) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, complaint, nil)
}

// Create godoc
// @Summary File a complaint
// @Tags Complaints
// @Accept json
// @Produce json
// @Param payload body service.CreateComplaintRequest true "Complaint payload"
// @Success 201 {object} response.Envelope
// @Router /complaints [post]
func (h *ComplaintHandler) Create(c *gin.Context) {
	var payload fileComplaintPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	nim := payload.NIM
	if claims := claimsFromContext(c); claims != nil && !claims.IsStaff() {
		nim = claims.NIM
	}
	if nim == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "nim is required"))
		return
	}
	complaint, err := h.complaints.File(c.Request.Context(), nim, payload.CreateComplaintRequest)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, complaint)
}

// UpdateStatus godoc
// @Summary Move complaint forward
// @Tags Complaints
// @Accept json
// @Produce json
// @Param id path string true "Complaint ID"
// @Param payload body service.UpdateComplaintStatusRequest true "Status change"
// @Success 200 {object} response.Envelope
// @Router /complaints/{id}/status [patch]
func (h *ComplaintHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateComplaintStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	complaint, err := h.complaints.UpdateStatus(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, complaint, nil)
}
