package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/asrama-api/internal/models"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/events"
	"github.com/noah-isme/asrama-api/pkg/jobs"
)

// ReconcileJobType identifies queued reconciliation passes; all of them
// share ReconcileJobKey so a burst collapses into one pass.
const (
	ReconcileJobType = "reconcile"
	ReconcileJobKey  = "reconcile:rooms"
)

type roomRepository interface {
	LoadAll(ctx context.Context) ([]models.Room, error)
	ReplaceAll(ctx context.Context, rooms []models.Room) error
}

type residentRepository interface {
	LoadAll(ctx context.Context, kind models.ResidentKind) ([]models.Resident, error)
	ReplaceAll(ctx context.Context, kind models.ResidentKind, residents []models.Resident) error
}

type changePublisher interface {
	Publish(change events.Change)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) (bool, error)
}

// occupancyState is one snapshot of the three collections that drive
// occupancy.
type occupancyState struct {
	rooms    []models.Room
	students []models.Resident
	kasra    []models.Resident
}

func (st *occupancyState) residents(kind models.ResidentKind) []models.Resident {
	if kind == models.KindKasra {
		return st.kasra
	}
	return st.students
}

func (st *occupancyState) setResidents(kind models.ResidentKind, residents []models.Resident) {
	if kind == models.KindKasra {
		st.kasra = residents
		return
	}
	st.students = residents
}

// findNIM looks the nim up in both collections.
func (st *occupancyState) findNIM(nim string) (models.ResidentKind, int, bool) {
	for i := range st.students {
		if st.students[i].NIM == nim {
			return models.KindStudent, i, true
		}
	}
	for i := range st.kasra {
		if st.kasra[i].NIM == nim {
			return models.KindKasra, i, true
		}
	}
	return "", -1, false
}

// freshRooms returns the rooms with occupancy recomputed from the
// residents loaded alongside them.
func (st *occupancyState) freshRooms() []models.Room {
	return Reconcile(st.rooms, st.students, st.kasra).Rooms
}

// OccupancyService keeps stored room occupancy in line with residents.
type OccupancyService struct {
	rooms     roomRepository
	residents residentRepository
	bus       changePublisher
	metrics   *MetricsService
	lock      *sync.Mutex
	logger    *zap.Logger
}

// NewOccupancyService constructs the service. lock serializes every
// read-modify-write cycle on rooms and residents in this process and must
// be shared with the services that mutate those collections.
func NewOccupancyService(rooms roomRepository, residents residentRepository, bus changePublisher, metrics *MetricsService, lock *sync.Mutex, logger *zap.Logger) *OccupancyService {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OccupancyService{rooms: rooms, residents: residents, bus: bus, metrics: metrics, lock: lock, logger: logger}
}

// Run performs one full reconciliation pass and persists rooms only when
// something changed.
func (s *OccupancyService) Run(ctx context.Context) (*ReconcileResult, error) {
	s.lock.Lock()
	state, err := s.load(ctx)
	if err != nil {
		s.lock.Unlock()
		s.metrics.ObserveReconcile(nil, false, err, 0)
		return nil, err
	}
	result, wrote, err := s.apply(ctx, state, false)
	s.lock.Unlock()
	if err != nil {
		return nil, err
	}
	if wrote {
		s.publish(events.CollectionRooms, events.SourceReconciler)
	}
	return result, nil
}

// HandleJob adapts Run to the job queue.
func (s *OccupancyService) HandleJob(ctx context.Context, _ jobs.Job) error {
	_, err := s.Run(ctx)
	return err
}

// OnChange returns a bus handler that schedules a pass for every change
// that can affect occupancy, skipping the reconciler's own writes.
func (s *OccupancyService) OnChange(queue jobEnqueuer) events.Handler {
	return func(change events.Change) {
		switch change.Collection {
		case events.CollectionRooms, events.CollectionStudents, events.CollectionKasra:
		default:
			return
		}
		if change.Source == events.SourceReconciler {
			return
		}
		if _, err := queue.Enqueue(jobs.Job{Type: ReconcileJobType, Key: ReconcileJobKey}); err != nil {
			s.logger.Warn("failed to schedule reconciliation", zap.String("collection", string(change.Collection)), zap.Error(err))
		}
	}
}

// load reads the three collections. Callers hold the lock.
func (s *OccupancyService) load(ctx context.Context) (*occupancyState, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveStore("load", time.Since(start)) }()

	rooms, err := s.rooms.LoadAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	students, err := s.residents.LoadAll(ctx, models.KindStudent)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	kasra, err := s.residents.LoadAll(ctx, models.KindKasra)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load kasra")
	}
	return &occupancyState{rooms: rooms, students: students, kasra: kasra}, nil
}

// apply reconciles state and writes the rooms when they changed or force
// is set. Callers hold the lock and publish afterwards.
func (s *OccupancyService) apply(ctx context.Context, state *occupancyState, force bool) (*ReconcileResult, bool, error) {
	start := time.Now()
	result := Reconcile(state.rooms, state.students, state.kasra)

	wrote := false
	if result.Changed || force {
		writeStart := time.Now()
		err := s.rooms.ReplaceAll(ctx, result.Rooms)
		s.metrics.ObserveStore("replace", time.Since(writeStart))
		if err != nil {
			s.metrics.ObserveReconcile(&result, false, err, time.Since(start))
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist rooms")
		}
		wrote = true
		state.rooms = result.Rooms
	}
	s.metrics.ObserveReconcile(&result, wrote, nil, time.Since(start))
	s.logWarnings(result)
	return &result, wrote, nil
}

func (s *OccupancyService) logWarnings(result ReconcileResult) {
	for _, ref := range result.OverCapacity {
		s.logger.Warn("room over capacity", zap.String("building", ref.Building), zap.String("room_number", ref.RoomNumber))
	}
	for _, m := range result.Malformed {
		s.logger.Warn("skipping malformed resident", zap.String("kind", string(m.Kind)), zap.String("nim", m.NIM), zap.String("reason", m.Reason))
	}
	for _, m := range result.Unplaced {
		s.logger.Warn("resident points at unknown room", zap.String("kind", string(m.Kind)), zap.String("nim", m.NIM), zap.String("reason", m.Reason))
	}
}

func (s *OccupancyService) publish(collection events.Collection, source events.Source) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Change{Collection: collection, Source: source})
}
