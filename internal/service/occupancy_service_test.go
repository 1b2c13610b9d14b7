package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/asrama-api/internal/models"
	"github.com/noah-isme/asrama-api/internal/repository"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/events"
	"github.com/noah-isme/asrama-api/pkg/jobs"
	"github.com/noah-isme/asrama-api/pkg/kvstore"
)

type countingRooms struct {
	roomRepository
	writes int
}

func (c *countingRooms) ReplaceAll(ctx context.Context, rooms []models.Room) error {
	c.writes++
	return c.roomRepository.ReplaceAll(ctx, rooms)
}

type failingRooms struct{}

func (failingRooms) LoadAll(context.Context) ([]models.Room, error) {
	return nil, errors.New("store down")
}

func (failingRooms) ReplaceAll(context.Context, []models.Room) error { return nil }

type recordingEnqueuer struct {
	jobs []jobs.Job
}

func (r *recordingEnqueuer) Enqueue(job jobs.Job) (bool, error) {
	r.jobs = append(r.jobs, job)
	return true, nil
}

func seedRooms(t *testing.T, store kvstore.Store, rooms []models.Room) {
	t.Helper()
	raw, err := json.Marshal(rooms)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), repository.KeyRooms, raw))
}

func TestOccupancyRunOnlyWritesWhenChanged(t *testing.T) {
	store := kvstore.NewMemory()
	seedRooms(t, store, InitializeRooms([]string{"B1", "B2"}, smallLayout))
	rooms := &countingRooms{roomRepository: repository.NewRoomRepository(store, nil)}
	bus := events.NewBus(zap.NewNop())
	var published []events.Change
	bus.Subscribe(func(c events.Change) { published = append(published, c) })

	svc := NewOccupancyService(rooms, repository.NewResidentRepository(store, nil), bus, NewMetricsService(), nil, nil)

	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, 0, rooms.writes)
	assert.Empty(t, published)

	// Another process adds a resident behind our back.
	students := `[{"nim":"x1","name":"X","gender":"Laki-laki","building":"B2","room_number":"2101","status":"LIVING"}]`
	require.NoError(t, store.SetExternal(context.Background(), repository.KeyStudents, json.RawMessage(students)))

	result, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 1, rooms.writes)
	require.Len(t, published, 1)
	assert.Equal(t, events.Change{Collection: events.CollectionRooms, Source: events.SourceReconciler, At: published[0].At}, published[0])

	stored, err := rooms.LoadAll(context.Background())
	require.NoError(t, err)
	idx, _ := FindRoom(stored, models.RoomRef{Building: "B2", RoomNumber: "2101"})
	assert.Equal(t, 1, stored[idx].Occupied)

	_, err = svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rooms.writes)
}

func TestOccupancyRunToleratesCorruptResidents(t *testing.T) {
	store := kvstore.NewMemory()
	seedRooms(t, store, []models.Room{{Building: "B1", RoomNumber: "1101", Capacity: 4, Occupied: 2, Status: models.RoomStatusAvailable}})
	require.NoError(t, store.Set(context.Background(), repository.KeyStudents, json.RawMessage(`not json`)))

	svc := NewOccupancyService(repository.NewRoomRepository(store, nil), repository.NewResidentRepository(store, nil), nil, nil, nil, nil)
	result, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 0, result.Rooms[0].Occupied)
}

func TestOccupancyRunLoadError(t *testing.T) {
	svc := NewOccupancyService(failingRooms{}, repository.NewResidentRepository(kvstore.NewMemory(), nil), nil, NewMetricsService(), nil, nil)
	_, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestOccupancyOnChangeSchedulesRelevantChanges(t *testing.T) {
	svc := NewOccupancyService(nil, nil, nil, nil, &sync.Mutex{}, nil)
	queue := &recordingEnqueuer{}
	handler := svc.OnChange(queue)

	handler(events.Change{Collection: events.CollectionStudents, Source: events.SourceLocal})
	handler(events.Change{Collection: events.CollectionKasra, Source: events.SourceExternal})
	handler(events.Change{Collection: events.CollectionRooms, Source: events.SourceExternal})
	handler(events.Change{Collection: events.CollectionRooms, Source: events.SourceReconciler})
	handler(events.Change{Collection: events.CollectionPayments, Source: events.SourceLocal})

	require.Len(t, queue.jobs, 3)
	for _, job := range queue.jobs {
		assert.Equal(t, ReconcileJobType, job.Type)
		assert.Equal(t, ReconcileJobKey, job.Key)
	}
}
