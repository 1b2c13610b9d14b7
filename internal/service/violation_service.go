package service

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/asrama-api/internal/models"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/events"
)

// Points applied when a violation is recorded without explicit points.
var defaultViolationPoints = map[models.ViolationCategory]int{
	models.ViolationMinor:    5,
	models.ViolationModerate: 15,
	models.ViolationSevere:   30,
}

// RecordViolationRequest holds payload for a disciplinary record.
type RecordViolationRequest struct {
	NIM         string                   `json:"nim" validate:"required"`
	Category    models.ViolationCategory `json:"category" validate:"required,oneof=RINGAN SEDANG BERAT"`
	Description string                   `json:"description" validate:"required,max=1000"`
	Points      int                      `json:"points" validate:"min=0,max=100"`
	Date        *time.Time               `json:"date"`
}

// ViolationService records and summarises resident violations.
type ViolationService struct {
	records   *recordSet[models.Violation]
	residents residentLookup
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewViolationService constructs the violation service.
func NewViolationService(repo collectionRepository[models.Violation], residents residentLookup, bus changePublisher, validate *validator.Validate, logger *zap.Logger) *ViolationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViolationService{
		records:   newRecordSet(repo, bus, events.CollectionViolations),
		residents: residents,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Record stores a violation against an existing resident.
func (s *ViolationService) Record(ctx context.Context, req RecordViolationRequest, recordedBy string) (*models.Violation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid violation payload")
	}
	if _, _, err := s.residents.Lookup(ctx, req.NIM); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	date := now
	if req.Date != nil {
		date = req.Date.UTC()
	}
	points := req.Points
	if points == 0 {
		points = defaultViolationPoints[req.Category]
	}
	violation := models.Violation{
		ID:          uuid.NewString(),
		NIM:         req.NIM,
		Category:    req.Category,
		Description: req.Description,
		Points:      points,
		RecordedBy:  recordedBy,
		Date:        date,
		CreatedAt:   now,
	}
	err := s.records.update(ctx, func(items []models.Violation) ([]models.Violation, error) {
		return append(items, violation), nil
	})
	if err != nil {
		return nil, err
	}
	return &violation, nil
}

// List returns violations, most recent first.
func (s *ViolationService) List(ctx context.Context, filter models.ViolationFilter) ([]models.Violation, *models.Pagination, error) {
	violations, err := s.records.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	matched := make([]models.Violation, 0, len(violations))
	for _, v := range violations {
		if filter.NIM != "" && v.NIM != filter.NIM {
			continue
		}
		if filter.Category != "" && v.Category != filter.Category {
			continue
		}
		matched = append(matched, v)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Date.After(matched[j].Date) })
	items, pagination := paginate(matched, filter.Page, filter.PageSize)
	return items, pagination, nil
}

// Summary totals points and counts per category for nim.
func (s *ViolationService) Summary(ctx context.Context, nim string) (*models.ViolationSummary, error) {
	violations, err := s.records.load(ctx)
	if err != nil {
		return nil, err
	}
	summary := &models.ViolationSummary{NIM: nim, ByCategory: map[models.ViolationCategory]int{}}
	for _, v := range violations {
		if v.NIM != nim {
			continue
		}
		summary.Count++
		summary.TotalPoints += v.Points
		summary.ByCategory[v.Category]++
		if summary.LastAt == nil || v.Date.After(*summary.LastAt) {
			d := v.Date
			summary.LastAt = &d
		}
	}
	return summary, nil
}

// Delete removes a violation record.
func (s *ViolationService) Delete(ctx context.Context, id string) error {
	return s.records.update(ctx, func(items []models.Violation) ([]models.Violation, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "violation not found")
	})
}
