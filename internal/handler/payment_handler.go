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

type paymentService interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Payment, error)
	Create(ctx context.Context, req service.CreatePaymentRequest) (*models.Payment, error)
	Verify(ctx context.Context, id string, req service.VerifyPaymentRequest, verifier string) (*models.Payment, error)
}

// PaymentHandler exposes dormitory fee payments.
type PaymentHandler struct {
	payments paymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// List godoc
// @Summary List payments
// @Tags Payments
// @Produce json
// @Param nim query string false "NIM, ignored for students"
// @Param status query string false "PENDING, PAID or REJECTED"
// @Param period query string false "Billing period YYYY-MM"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) List(c *gin.Context) {
	filter := models.PaymentFilter{
		NIM:    scopedNIM(c),
		Status: models.PaymentStatus(strings.ToUpper(c.Query("status"))),
		Period: c.Query("period"),
	}
	filter.Page, filter.PageSize = pageQuery(c)

	payments, pagination, err := h.payments.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// Get godoc
// @Summary Get payment
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.payments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ownsRecord(c, payment.NIM) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Create godoc
// @Summary Submit payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.CreatePaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent {
		req.NIM = claims.NIM
	}
	payment, err := h.payments.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, payment)
}

// Verify godoc
// @Summary Verify or reject a pending payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body service.VerifyPaymentRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req service.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	payment, err := h.payments.Verify(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// ownsRecord reports whether the caller may read a record belonging to nim.
func ownsRecord(c *gin.Context, nim string) bool {
	claims := claimsFromContext(c)
	if claims == nil || claims.IsStaff() {
		return true
	}
	return claims.NIM != "" && claims.NIM == nim
}
