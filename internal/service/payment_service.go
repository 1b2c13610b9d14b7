package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/asrama-api/internal/models"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/events"
)

// CreatePaymentRequest holds payload for recording a dormitory fee payment.
type CreatePaymentRequest struct {
	NIM    string `json:"nim" validate:"required"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Period string `json:"period" validate:"required,datetime=2006-01"`
	Method string `json:"method" validate:"required,max=32"`
	Notes  string `json:"notes" validate:"omitempty,max=500"`
}

// VerifyPaymentRequest carries the admin decision on a pending payment.
type VerifyPaymentRequest struct {
	Status models.PaymentStatus `json:"status" validate:"required,oneof=PAID REJECTED"`
	Notes  string               `json:"notes" validate:"omitempty,max=500"`
}

// PaymentService handles fee payments.
type PaymentService struct {
	records   *recordSet[models.Payment]
	residents residentLookup
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaymentService constructs the payment service.
func NewPaymentService(repo collectionRepository[models.Payment], residents residentLookup, bus changePublisher, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		records:   newRecordSet(repo, bus, events.CollectionPayments),
		residents: residents,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns payments newest first.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	payments, err := s.records.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	matched := make([]models.Payment, 0, len(payments))
	for _, p := range payments {
		if filter.NIM != "" && p.NIM != filter.NIM {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Period != "" && p.Period != filter.Period {
			continue
		}
		matched = append(matched, p)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	items, pagination := paginate(matched, filter.Page, filter.PageSize)
	return items, pagination, nil
}

// Get returns a payment by id.
func (s *PaymentService) Get(ctx context.Context, id string) (*models.Payment, error) {
	payments, err := s.records.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if p.ID == id {
			payment := p
			return &payment, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
}

// Create records a pending payment for an existing resident.
func (s *PaymentService) Create(ctx context.Context, req CreatePaymentRequest) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if _, _, err := s.residents.Lookup(ctx, req.NIM); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	payment := models.Payment{
		ID:        uuid.NewString(),
		NIM:       req.NIM,
		Amount:    req.Amount,
		Period:    req.Period,
		Method:    strings.ToUpper(strings.TrimSpace(req.Method)),
		Status:    models.PaymentPending,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.records.update(ctx, func(items []models.Payment) ([]models.Payment, error) {
		return append(items, payment), nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Verify settles a pending payment as paid or rejected.
func (s *PaymentService) Verify(ctx context.Context, id string, req VerifyPaymentRequest, verifier string) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}
	var out models.Payment
	err := s.records.update(ctx, func(items []models.Payment) ([]models.Payment, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if items[i].Status != models.PaymentPending {
				return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("payment already %s", strings.ToLower(string(items[i].Status))))
			}
			now := s.now().UTC()
			items[i].Status = req.Status
			items[i].VerifiedBy = verifier
			items[i].UpdatedAt = now
			if req.Notes != "" {
				items[i].Notes = req.Notes
			}
			if req.Status == models.PaymentPaid {
				items[i].PaidAt = &now
			}
			out = items[i]
			return items, nil
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("payment verified", zap.String("id", id), zap.String("status", string(out.Status)), zap.String("verified_by", verifier))
	return &out, nil
}
