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

// ActivityRequest describes create and update payloads for activities.
type ActivityRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"omitempty,max=2000"`
	Location    string    `json:"location" validate:"required,max=200"`
	Building    string    `json:"building" validate:"omitempty,max=16"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	EndsAt      time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
}

// ActivityService manages the dormitory activity schedule.
type ActivityService struct {
	records   *recordSet[models.Activity]
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewActivityService constructs the service.
func NewActivityService(repo collectionRepository[models.Activity], bus changePublisher, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		records:   newRecordSet(repo, bus, events.CollectionActivities),
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns activities ordered by start time. Without a From bound only
// activities that have not ended yet are returned. Activities with no
// building are dormitory-wide and match every building filter.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	activities, err := s.records.load(ctx)
	if err != nil {
		return nil, err
	}
	from := s.now().UTC()
	if filter.From != nil {
		from = *filter.From
	}
	matched := make([]models.Activity, 0, len(activities))
	for _, a := range activities {
		if a.EndsAt.Before(from) {
			continue
		}
		if filter.To != nil && a.StartsAt.After(*filter.To) {
			continue
		}
		if filter.Building != "" && a.Building != "" && a.Building != filter.Building {
			continue
		}
		matched = append(matched, a)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].StartsAt.Before(matched[j].StartsAt) })
	return matched, nil
}

// Get returns an activity by id.
func (s *ActivityService) Get(ctx context.Context, id string) (*models.Activity, error) {
	activities, err := s.records.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range activities {
		if a.ID == id {
			activity := a
			return &activity, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
}

// Create schedules an activity.
func (s *ActivityService) Create(ctx context.Context, req ActivityRequest, createdBy string) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	now := s.now().UTC()
	activity := models.Activity{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Building:    req.Building,
		StartsAt:    req.StartsAt.UTC(),
		EndsAt:      req.EndsAt.UTC(),
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.records.update(ctx, func(items []models.Activity) ([]models.Activity, error) {
		return append(items, activity), nil
	})
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// Update modifies a scheduled activity.
func (s *ActivityService) Update(ctx context.Context, id string, req ActivityRequest) (*models.Activity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	var out models.Activity
	err := s.records.update(ctx, func(items []models.Activity) ([]models.Activity, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			items[i].Title = req.Title
			items[i].Description = req.Description
			items[i].Location = req.Location
			items[i].Building = req.Building
			items[i].StartsAt = req.StartsAt.UTC()
			items[i].EndsAt = req.EndsAt.UTC()
			items[i].UpdatedAt = s.now().UTC()
			out = items[i]
			return items, nil
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an activity.
func (s *ActivityService) Delete(ctx context.Context, id string) error {
	return s.records.update(ctx, func(items []models.Activity) ([]models.Activity, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
	})
}
