package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/asrama-api/internal/models"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/events"
)

// complaintTransitions lists the allowed forward moves.
var complaintTransitions = map[models.ComplaintStatus][]models.ComplaintStatus{
	models.ComplaintOpen:       {models.ComplaintInProgress, models.ComplaintResolved},
	models.ComplaintInProgress: {models.ComplaintResolved},
}

// CreateComplaintRequest holds payload for filing a complaint. Building
// and room default to the resident's own room.
type CreateComplaintRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=2000"`
	Building    string `json:"building" validate:"omitempty,max=16"`
	RoomNumber  string `json:"room_number" validate:"omitempty,max=16"`
}

// UpdateComplaintStatusRequest moves a complaint forward.
type UpdateComplaintStatusRequest struct {
	Status   models.ComplaintStatus `json:"status" validate:"required,oneof=IN_PROGRESS RESOLVED"`
	Response string                 `json:"response" validate:"omitempty,max=2000"`
}

// ComplaintService handles resident complaints.
type ComplaintService struct {
	records   *recordSet[models.Complaint]
	residents residentLookup
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewComplaintService constructs the complaint service.
func NewComplaintService(repo collectionRepository[models.Complaint], residents residentLookup, bus changePublisher, validate *validator.Validate, logger *zap.Logger) *ComplaintService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplaintService{
		records:   newRecordSet(repo, bus, events.CollectionComplaints),
		residents: residents,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// File opens a complaint on behalf of nim.
func (s *ComplaintService) File(ctx context.Context, nim string, req CreateComplaintRequest) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid complaint payload")
	}
	resident, _, err := s.residents.Lookup(ctx, nim)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	complaint := models.Complaint{
		ID:          uuid.NewString(),
		NIM:         nim,
		Title:       req.Title,
		Description: req.Description,
		Building:    req.Building,
		RoomNumber:  req.RoomNumber,
		Status:      models.ComplaintOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if complaint.Building == "" {
		complaint.Building, complaint.RoomNumber = resident.Building, resident.RoomNumber
	}
	err = s.records.update(ctx, func(items []models.Complaint) ([]models.Complaint, error) {
		return append(items, complaint), nil
	})
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

// List returns complaints, newest first.
func (s *ComplaintService) List(ctx context.Context, filter models.ComplaintFilter) ([]models.Complaint, *models.Pagination, error) {
	complaints, err := s.records.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	matched := make([]models.Complaint, 0, len(complaints))
	for _, c := range complaints {
		if filter.NIM != "" && c.NIM != filter.NIM {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		matched = append(matched, c)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	items, pagination := paginate(matched, filter.Page, filter.PageSize)
	return items, pagination, nil
}

// Get returns a complaint by id.
func (s *ComplaintService) Get(ctx context.Context, id string) (*models.Complaint, error) {
	complaints, err := s.records.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range complaints {
		if c.ID == id {
			complaint := c
			return &complaint, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
}

// UpdateStatus moves a complaint forward. Resolved complaints are final.
func (s *ComplaintService) UpdateStatus(ctx context.Context, id string, req UpdateComplaintStatusRequest, handledBy string) (*models.Complaint, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	var out models.Complaint
	err := s.records.update(ctx, func(items []models.Complaint) ([]models.Complaint, error) {
		for i := range items {
			if items[i].ID != id {
				continue
			}
			if !canTransition(items[i].Status, req.Status) {
				return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move complaint from %s to %s", items[i].Status, req.Status))
			}
			items[i].Status = req.Status
			items[i].HandledBy = handledBy
			items[i].UpdatedAt = s.now().UTC()
			if req.Response != "" {
				items[i].Response = req.Response
			}
			out = items[i]
			return items, nil
		}
		return nil, appErrors.Clone(appErrors.ErrNotFound, "complaint not found")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func canTransition(from, to models.ComplaintStatus) bool {
	for _, next := range complaintTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
