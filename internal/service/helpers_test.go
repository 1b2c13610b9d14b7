package service

import (
	"context"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/asrama-api/internal/models"
	"github.com/noah-isme/asrama-api/internal/repository"
	"github.com/noah-isme/asrama-api/pkg/events"
	"github.com/noah-isme/asrama-api/pkg/kvstore"
)

// smallLayout gives every building two rooms of four beds on one floor.
var smallLayout = RoomLayout{Floors: 1, RoomsPerFloor: 2, DefaultCapacity: 4}

type testEnv struct {
	ctx       context.Context
	store     *kvstore.Memory
	bus       *events.Bus
	rooms     *repository.Collection[models.Room]
	residents *repository.ResidentRepository
	occupancy *OccupancyService
	roomSvc   *RoomService
	resSvc    *ResidentService
	importSvc *ImportService

	mu      sync.Mutex
	changes []events.Change
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	store := kvstore.NewMemory()
	bus := events.NewBus(logger)
	lock := &sync.Mutex{}
	validate := validator.New()
	resolver := NewRoomResolver(DefaultEligibility())

	env := &testEnv{
		ctx:       context.Background(),
		store:     store,
		bus:       bus,
		rooms:     repository.NewRoomRepository(store, logger),
		residents: repository.NewResidentRepository(store, logger),
	}
	env.occupancy = NewOccupancyService(env.rooms, env.residents, bus, NewMetricsService(), lock, logger)
	env.roomSvc = NewRoomService(env.rooms, env.occupancy, bus, validate, lock, RoomServiceConfig{
		Buildings: []string{"B1", "B2", "B3", "B4", "B5"},
		Layout:    smallLayout,
	}, logger)
	env.resSvc = NewResidentService(env.occupancy, env.residents, resolver, bus, validate, lock, logger)
	env.importSvc = NewImportService(env.occupancy, env.residents, resolver, bus, validate, lock, logger)

	bus.Subscribe(func(change events.Change) {
		env.mu.Lock()
		env.changes = append(env.changes, change)
		env.mu.Unlock()
	})

	_, err := env.roomSvc.Bootstrap(env.ctx)
	require.NoError(t, err)
	env.resetChanges()
	return env
}

func (e *testEnv) resetChanges() {
	e.mu.Lock()
	e.changes = nil
	e.mu.Unlock()
}

func (e *testEnv) recorded() []events.Change {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]events.Change(nil), e.changes...)
}

func (e *testEnv) room(t *testing.T, building, number string) models.Room {
	t.Helper()
	room, err := e.roomSvc.Get(e.ctx, models.RoomRef{Building: building, RoomNumber: number})
	require.NoError(t, err)
	return *room
}

func (e *testEnv) addStudent(t *testing.T, nim string, gender models.Gender, building, number string) *models.Resident {
	t.Helper()
	resident, _, err := e.resSvc.Create(e.ctx, models.KindStudent, CreateResidentRequest{
		NIM:        nim,
		Name:       "Student " + nim,
		Gender:     gender,
		Building:   building,
		RoomNumber: number,
	})
	require.NoError(t, err)
	return resident
}
