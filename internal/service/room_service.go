package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/asrama-api/internal/models"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/events"
)

// RoomServiceConfig describes the directory generated on first start.
type RoomServiceConfig struct {
	Buildings []string
	Layout    RoomLayout
}

// RoomService exposes the room directory.
type RoomService struct {
	rooms     roomRepository
	occupancy *OccupancyService
	bus       changePublisher
	validator *validator.Validate
	lock      *sync.Mutex
	cfg       RoomServiceConfig
	logger    *zap.Logger
}

// NewRoomService constructs the room service. lock must be the one shared
// with the occupancy service.
func NewRoomService(rooms roomRepository, occupancy *OccupancyService, bus changePublisher, validate *validator.Validate, lock *sync.Mutex, cfg RoomServiceConfig, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if lock == nil {
		lock = &sync.Mutex{}
	}
	if cfg.Layout.Floors <= 0 || cfg.Layout.RoomsPerFloor <= 0 || cfg.Layout.DefaultCapacity <= 0 {
		cfg.Layout = DefaultRoomLayout
	}
	if len(cfg.Buildings) == 0 {
		cfg.Buildings = []string{"B1", "B2", "B3", "B4", "B5"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{rooms: rooms, occupancy: occupancy, bus: bus, validator: validate, lock: lock, cfg: cfg, logger: logger}
}

// Bootstrap generates the directory when none is stored yet and then
// reconciles it. It reports whether rooms were generated.
func (s *RoomService) Bootstrap(ctx context.Context) (bool, error) {
	s.lock.Lock()
	rooms, err := s.rooms.LoadAll(ctx)
	if err != nil {
		s.lock.Unlock()
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	created := false
	if len(rooms) == 0 {
		rooms = InitializeRooms(s.cfg.Buildings, s.cfg.Layout)
		if err := s.rooms.ReplaceAll(ctx, rooms); err != nil {
			s.lock.Unlock()
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to initialize rooms")
		}
		created = true
		s.logger.Info("room directory initialized", zap.Int("rooms", len(rooms)), zap.Strings("buildings", s.cfg.Buildings))
	}
	s.lock.Unlock()

	if created {
		s.publish(events.SourceLocal)
	}
	if s.occupancy != nil {
		if _, err := s.occupancy.Run(ctx); err != nil {
			return created, err
		}
	}
	return created, nil
}

// List returns rooms matching filter in directory order.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, error) {
	rooms, err := s.rooms.LoadAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	if filter.Building != "" {
		if filter.AvailableOnly {
			rooms = ListAvailable(rooms, filter.Building)
		} else {
			rooms = ListByBuilding(rooms, filter.Building)
		}
	} else if filter.AvailableOnly {
		available := make([]models.Room, 0, len(rooms))
		for _, room := range rooms {
			if room.Status == models.RoomStatusAvailable && room.Occupied < room.Capacity {
				available = append(available, room)
			}
		}
		rooms = available
	}
	if filter.Status != "" {
		matching := make([]models.Room, 0, len(rooms))
		for _, room := range rooms {
			if room.Status == filter.Status {
				matching = append(matching, room)
			}
		}
		rooms = matching
	}
	sortRooms(rooms)
	return rooms, nil
}

// Get returns one room.
func (s *RoomService) Get(ctx context.Context, ref models.RoomRef) (*models.Room, error) {
	rooms, err := s.rooms.LoadAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	idx, ok := FindRoom(rooms, ref)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrRoomNotFound, fmt.Sprintf("room %s not found", ref))
	}
	room := rooms[idx]
	return &room, nil
}

// Update applies an admin edit. The status is re-derived right away, so
// only UnderRepair survives as an explicit choice; Available and Full
// always follow occupancy. A capacity below current occupancy is accepted
// and reported as a warning.
func (s *RoomService) Update(ctx context.Context, ref models.RoomRef, req models.RoomUpdate) (*models.Room, []string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}

	s.lock.Lock()
	state, err := s.occupancy.load(ctx)
	if err != nil {
		s.lock.Unlock()
		return nil, nil, err
	}
	idx, ok := FindRoom(state.rooms, ref)
	if !ok {
		s.lock.Unlock()
		return nil, nil, appErrors.Clone(appErrors.ErrRoomNotFound, fmt.Sprintf("room %s not found", ref))
	}

	rooms := append([]models.Room(nil), state.rooms...)
	room := &rooms[idx]
	if req.Capacity != nil {
		room.Capacity = *req.Capacity
	}
	if req.Notes != nil {
		room.Notes = *req.Notes
	}
	if req.Status != nil {
		if *req.Status == models.RoomStatusUnderRepair {
			room.Status = models.RoomStatusUnderRepair
		} else {
			// Clearing repair hands the status back to occupancy.
			room.Status = models.RoomStatusAvailable
		}
	}
	state.rooms = rooms

	result, _, err := s.occupancy.apply(ctx, state, true)
	s.lock.Unlock()
	if err != nil {
		return nil, nil, err
	}
	s.publish(events.SourceLocal)

	updated := result.Rooms[idx]
	var warnings []string
	if updated.Occupied > updated.Capacity {
		warnings = append(warnings, fmt.Sprintf("room %s is over capacity (%d/%d)", ref, updated.Occupied, updated.Capacity))
	}
	s.logger.Info("room updated", zap.String("room", ref.String()), zap.String("status", string(updated.Status)), zap.Int("capacity", updated.Capacity))
	return &updated, warnings, nil
}

// Reconcile runs a pass on demand.
func (s *RoomService) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	return s.occupancy.Run(ctx)
}

func (s *RoomService) publish(source events.Source) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Change{Collection: events.CollectionRooms, Source: source})
}
