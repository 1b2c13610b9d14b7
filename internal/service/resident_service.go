package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/asrama-api/internal/models"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/events"
)

// CreateResidentRequest holds payload for registering a student or kasra.
// Leave building and room_number empty to have a room chosen
// automatically, or give only building to pick the emptiest room there.
type CreateResidentRequest struct {
	NIM         string        `json:"nim" validate:"required,max=32"`
	Name        string        `json:"name" validate:"required,max=120"`
	Gender      models.Gender `json:"gender" validate:"required,oneof=Laki-laki Perempuan"`
	Building    string        `json:"building" validate:"omitempty,max=16"`
	RoomNumber  string        `json:"room_number" validate:"omitempty,max=16"`
	Program     string        `json:"program" validate:"omitempty,max=120"`
	Faculty     string        `json:"faculty" validate:"omitempty,max=120"`
	Email       string        `json:"email" validate:"omitempty,email"`
	Phone       string        `json:"phone" validate:"omitempty,max=32"`
	CheckInDate *time.Time    `json:"check_in_date"`
}

// UpdateResidentRequest holds payload for editing a resident. An empty
// building keeps the current room.
type UpdateResidentRequest struct {
	Name        string                  `json:"name" validate:"required,max=120"`
	Gender      models.Gender           `json:"gender" validate:"required,oneof=Laki-laki Perempuan"`
	Building    string                  `json:"building" validate:"omitempty,max=16"`
	RoomNumber  string                  `json:"room_number" validate:"omitempty,max=16"`
	Status      *models.ResidencyStatus `json:"status" validate:"omitempty,oneof=LIVING CHECKED_OUT"`
	Program     string                  `json:"program" validate:"omitempty,max=120"`
	Faculty     string                  `json:"faculty" validate:"omitempty,max=120"`
	Email       string                  `json:"email" validate:"omitempty,email"`
	Phone       string                  `json:"phone" validate:"omitempty,max=32"`
	CheckInDate *time.Time              `json:"check_in_date"`
}

// ResidentService handles student and kasra use-cases. Every write loads
// the collections, changes them in memory, writes them back whole and
// reconciles occupancy before releasing the lock.
type ResidentService struct {
	occupancy *OccupancyService
	residents residentRepository
	resolver  *RoomResolver
	bus       changePublisher
	validator *validator.Validate
	lock      *sync.Mutex
	logger    *zap.Logger
	now       func() time.Time
}

// NewResidentService constructs the resident service. lock must be the one
// shared with the occupancy service.
func NewResidentService(occupancy *OccupancyService, residents residentRepository, resolver *RoomResolver, bus changePublisher, validate *validator.Validate, lock *sync.Mutex, logger *zap.Logger) *ResidentService {
	if resolver == nil {
		resolver = NewRoomResolver(nil)
	}
	if validate == nil {
		validate = validator.New()
	}
	if lock == nil {
		lock = &sync.Mutex{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResidentService{
		occupancy: occupancy,
		residents: residents,
		resolver:  resolver,
		bus:       bus,
		validator: validate,
		lock:      lock,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns residents of kind matching filter and pagination metadata.
func (s *ResidentService) List(ctx context.Context, kind models.ResidentKind, filter models.ResidentFilter) ([]models.Resident, *models.Pagination, error) {
	matched, err := s.matching(ctx, kind, filter)
	if err != nil {
		return nil, nil, err
	}
	items, pagination := paginate(matched, filter.Page, filter.PageSize)
	return items, pagination, nil
}

// Roster returns every resident of kind matching filter, unpaginated, for
// exports.
func (s *ResidentService) Roster(ctx context.Context, kind models.ResidentKind, filter models.ResidentFilter) ([]models.Resident, error) {
	return s.matching(ctx, kind, filter)
}

func (s *ResidentService) matching(ctx context.Context, kind models.ResidentKind, filter models.ResidentFilter) ([]models.Resident, error) {
	residents, err := s.residents.LoadAll(ctx, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list residents")
	}

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]models.Resident, 0, len(residents))
	for _, r := range residents {
		if search != "" && !strings.Contains(strings.ToLower(r.Name), search) && !strings.Contains(strings.ToLower(r.NIM), search) {
			continue
		}
		if filter.Building != "" && r.Building != filter.Building {
			continue
		}
		if filter.Room != "" && r.RoomNumber != filter.Room {
			continue
		}
		if filter.Gender != "" && r.Gender != filter.Gender {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		matched = append(matched, r)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Building != matched[j].Building {
			return matched[i].Building < matched[j].Building
		}
		if matched[i].RoomNumber != matched[j].RoomNumber {
			return matched[i].RoomNumber < matched[j].RoomNumber
		}
		return matched[i].NIM < matched[j].NIM
	})
	return matched, nil
}

// Get returns the resident of kind with nim.
func (s *ResidentService) Get(ctx context.Context, kind models.ResidentKind, nim string) (*models.Resident, error) {
	residents, err := s.residents.LoadAll(ctx, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load residents")
	}
	for _, r := range residents {
		if r.NIM == nim {
			resident := r
			return &resident, nil
		}
	}
	return nil, residentNotFound(kind, nim)
}

// Lookup finds a resident by nim in either collection.
func (s *ResidentService) Lookup(ctx context.Context, nim string) (*models.Resident, models.ResidentKind, error) {
	for _, kind := range []models.ResidentKind{models.KindStudent, models.KindKasra} {
		resident, err := s.Get(ctx, kind, nim)
		if err == nil {
			return resident, kind, nil
		}
		if !errors.Is(err, appErrors.ErrResidentNotFound) {
			return nil, "", err
		}
	}
	return nil, "", appErrors.Clone(appErrors.ErrResidentNotFound, fmt.Sprintf("resident %s not found", nim))
}

// Create registers a resident and assigns a room.
func (s *ResidentService) Create(ctx context.Context, kind models.ResidentKind, req CreateResidentRequest) (*models.Resident, []string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resident payload")
	}
	req.NIM = strings.TrimSpace(req.NIM)

	var created models.Resident
	result, wrote, err := s.mutate(ctx, kind, func(state *occupancyState) error {
		if _, _, exists := state.findNIM(req.NIM); exists {
			return duplicateNIM(req.NIM)
		}
		requested := models.RoomRef{Building: strings.TrimSpace(req.Building), RoomNumber: strings.TrimSpace(req.RoomNumber)}
		room, err := s.resolver.Assign(state.freshRooms(), requested, req.Gender, nil)
		if err != nil {
			return err
		}
		created = newResident(req, room.Ref(), s.now().UTC())
		state.setResidents(kind, append(state.residents(kind), created))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.afterWrite(kind, wrote)
	s.logger.Info("resident registered", zap.String("kind", string(kind)), zap.String("nim", created.NIM), zap.String("room", created.Room().String()))
	return &created, result.Warnings(), nil
}

// Update edits a resident. Moving rooms or changing gender goes through
// the same checks as registration; staying in the current room is allowed
// even when it is full. A resident who is not living in keeps a recorded
// room that must still exist and match their gender.
func (s *ResidentService) Update(ctx context.Context, kind models.ResidentKind, nim string, req UpdateResidentRequest) (*models.Resident, []string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resident payload")
	}

	var updated models.Resident
	result, wrote, err := s.mutate(ctx, kind, func(state *occupancyState) error {
		residents := state.residents(kind)
		idx := indexOfNIM(residents, nim)
		if idx < 0 {
			return residentNotFound(kind, nim)
		}
		existing := residents[idx]
		next := existing
		next.Name = strings.TrimSpace(req.Name)
		next.Gender = req.Gender
		next.Program = req.Program
		next.Faculty = req.Faculty
		next.Email = req.Email
		next.Phone = req.Phone
		if req.CheckInDate != nil {
			next.CheckInDate = req.CheckInDate
		}
		if req.Status != nil {
			next.Status = *req.Status
		}

		requested := existing.Room()
		building, number := strings.TrimSpace(req.Building), strings.TrimSpace(req.RoomNumber)
		switch {
		case building != "":
			requested = models.RoomRef{Building: building, RoomNumber: number}
		case number != "":
			return appErrors.Clone(appErrors.ErrValidation, "room_number requires building")
		}

		if next.Living() {
			var current *models.RoomRef
			if existing.Living() {
				ref := existing.Room()
				current = &ref
			}
			room, err := s.resolver.Assign(state.freshRooms(), requested, next.Gender, current)
			if err != nil {
				return err
			}
			next.Building, next.RoomNumber = room.Building, room.RoomNumber
		} else {
			if requested.RoomNumber == "" && requested.Building == existing.Building {
				requested.RoomNumber = existing.RoomNumber
			}
			if err := s.resolver.ValidateRecorded(state.freshRooms(), requested, next.Gender); err != nil {
				return err
			}
			next.Building, next.RoomNumber = requested.Building, requested.RoomNumber
		}
		next.UpdatedAt = s.now().UTC()

		list := append([]models.Resident(nil), residents...)
		list[idx] = next
		state.setResidents(kind, list)
		updated = next
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.afterWrite(kind, wrote)
	return &updated, result.Warnings(), nil
}

// CheckOut marks the resident as moved out, freeing their bed. The record
// keeps its last room for history.
func (s *ResidentService) CheckOut(ctx context.Context, kind models.ResidentKind, nim string) (*models.Resident, error) {
	var out models.Resident
	_, wrote, err := s.mutate(ctx, kind, func(state *occupancyState) error {
		residents := state.residents(kind)
		idx := indexOfNIM(residents, nim)
		if idx < 0 {
			return residentNotFound(kind, nim)
		}
		list := append([]models.Resident(nil), residents...)
		list[idx].Status = models.ResidencyCheckedOut
		list[idx].UpdatedAt = s.now().UTC()
		state.setResidents(kind, list)
		out = list[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(kind, wrote)
	s.logger.Info("resident checked out", zap.String("kind", string(kind)), zap.String("nim", nim))
	return &out, nil
}

// Delete removes the resident record entirely.
func (s *ResidentService) Delete(ctx context.Context, kind models.ResidentKind, nim string) error {
	_, wrote, err := s.mutate(ctx, kind, func(state *occupancyState) error {
		residents := state.residents(kind)
		idx := indexOfNIM(residents, nim)
		if idx < 0 {
			return residentNotFound(kind, nim)
		}
		list := make([]models.Resident, 0, len(residents)-1)
		list = append(list, residents[:idx]...)
		list = append(list, residents[idx+1:]...)
		state.setResidents(kind, list)
		return nil
	})
	if err != nil {
		return err
	}
	s.afterWrite(kind, wrote)
	return nil
}

// mutate runs fn against a fresh snapshot under the lock, then writes the
// resident collection of kind and reconciles. It returns the reconcile
// result and whether rooms were written.
func (s *ResidentService) mutate(ctx context.Context, kind models.ResidentKind, fn func(*occupancyState) error) (*ReconcileResult, bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	state, err := s.occupancy.load(ctx)
	if err != nil {
		return nil, false, err
	}
	if err := fn(state); err != nil {
		return nil, false, err
	}
	if err := s.residents.ReplaceAll(ctx, kind, state.residents(kind)); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save residents")
	}
	return s.occupancy.apply(ctx, state, false)
}

func (s *ResidentService) afterWrite(kind models.ResidentKind, roomsWritten bool) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Change{Collection: collectionFor(kind), Source: events.SourceLocal})
	if roomsWritten {
		s.bus.Publish(events.Change{Collection: events.CollectionRooms, Source: events.SourceReconciler})
	}
}

func newResident(req CreateResidentRequest, room models.RoomRef, now time.Time) models.Resident {
	checkIn := req.CheckInDate
	if checkIn == nil {
		t := now
		checkIn = &t
	}
	return models.Resident{
		NIM:         strings.TrimSpace(req.NIM),
		Name:        strings.TrimSpace(req.Name),
		Gender:      req.Gender,
		Building:    room.Building,
		RoomNumber:  room.RoomNumber,
		Status:      models.ResidencyLiving,
		Program:     req.Program,
		Faculty:     req.Faculty,
		Email:       req.Email,
		Phone:       req.Phone,
		CheckInDate: checkIn,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func indexOfNIM(residents []models.Resident, nim string) int {
	for i := range residents {
		if residents[i].NIM == nim {
			return i
		}
	}
	return -1
}

func collectionFor(kind models.ResidentKind) events.Collection {
	if kind == models.KindKasra {
		return events.CollectionKasra
	}
	return events.CollectionStudents
}

func residentNotFound(kind models.ResidentKind, nim string) error {
	return appErrors.Clone(appErrors.ErrResidentNotFound, fmt.Sprintf("%s %s not found", strings.ToLower(string(kind)), nim))
}

func duplicateNIM(nim string) error {
	return appErrors.Clone(appErrors.ErrDuplicateNIM, fmt.Sprintf("nim %s already registered", nim))
}
