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

// AnnouncementRequest describes create and update payloads. A zero
// published_at publishes immediately.
type AnnouncementRequest struct {
	Title       string                      `json:"title" validate:"required,max=200"`
	Content     string                      `json:"content" validate:"required"`
	Audience    models.AnnouncementAudience `json:"audience" validate:"required,oneof=ALL STUDENT KASRA"`
	Pinned      bool                        `json:"pinned"`
	PublishedAt *time.Time                  `json:"published_at"`
	ExpiresAt   *time.Time                  `json:"expires_at"`
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	records   *recordSet[models.Announcement]
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo collectionRepository[models.Announcement], bus changePublisher, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{
		records:   newRecordSet(repo, bus, events.CollectionAnnouncements),
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns the announcements role may see, pinned first and then by
// publication date, newest first.
func (s *AnnouncementService) List(ctx context.Context, role models.UserRole, page, size int) ([]models.Announcement, *models.Pagination, error) {
	announcements, err := s.records.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	now := s.now().UTC()
	visible := make([]models.Announcement, 0, len(announcements))
	for _, a := range announcements {
		if a.VisibleTo(role, now) {
			visible = append(visible, a)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		if visible[i].Pinned != visible[j].Pinned {
			return visible[i].Pinned
		}
		return visible[i].PublishedAt.After(visible[j].PublishedAt)
	})
	items, pagination := paginate(visible, page, size)
	return items, pagination, nil
}

// Get returns an announcement if role may see it.
func (s *AnnouncementService) Get(ctx context.Context, id string, role models.UserRole) (*models.Announcement, error) {
	announcements, err := s.records.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range announcements {
		if a.ID == id && a.VisibleTo(role, s.now().UTC()) {
			ann := a
			return &ann, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
}

// Create registers a new announcement.
func (s *AnnouncementService) Create(ctx context.Context, req AnnouncementRequest, createdBy string) (*models.Announcement, error) {
	publishedAt, err := s.check(req)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	ann := models.Announcement{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Content:     req.Content,
		Audience:    req.Audience,
		Pinned:      req.Pinned,
		PublishedAt: publishedAt,
		ExpiresAt:   req.ExpiresAt,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.records.update(ctx, func(items []models.Announcement) ([]models.Announcement, error) {
		return append(items, ann), nil
	})
	if err != nil {
		return nil, err
	}
	return &ann, nil
}

// Update modifies an existing announcement.
func (s *AnnouncementService) Update(ctx context.Context, id string, req AnnouncementRequest) (*models.Announcement, error) {
	publishedAt, err := s.check(req)
	if err != nil {
		return nil, err
	}
	var out models.Announcement
	err = s.records.update(ctx, func(items []models.Announcement) ([]models.Announcement, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			items[i].Title = req.Title
			items[i].Content = req.Content
			items[i].Audience = req.Audience
			items[i].Pinned = req.Pinned
			items[i].PublishedAt = publishedAt
			items[i].ExpiresAt = req.ExpiresAt
			items[i].UpdatedAt = s.now().UTC()
			out = items[i]
			return items, nil
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an announcement by id.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	return s.records.update(ctx, func(items []models.Announcement) ([]models.Announcement, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
	})
}

func (s *AnnouncementService) check(req AnnouncementRequest) (time.Time, error) {
	if err := s.validator.Struct(req); err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	publishedAt := s.now().UTC()
	if req.PublishedAt != nil && !req.PublishedAt.IsZero() {
		publishedAt = req.PublishedAt.UTC()
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(publishedAt) {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "expires_at must be after published_at")
	}
	return publishedAt, nil
}
