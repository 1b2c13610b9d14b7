package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asrama-api/internal/models"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/events"
)

type memoryCache struct {
	items   map[string]interface{}
	deletes int
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	v, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*models.OccupancySummary)) = *(v.(*models.OccupancySummary))
	return nil
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.items[key] = value
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.items, key)
	}
	m.deletes++
	return nil
}

func TestDashboardOccupancySummary(t *testing.T) {
	env := newTestEnv(t)
	for _, nim := range []string{"d1", "d2", "d3", "d4"} {
		env.addStudent(t, nim, models.GenderFemale, "B1", "1101")
	}
	_, _, err := env.resSvc.Create(env.ctx, models.KindKasra, CreateResidentRequest{NIM: "dk", Name: "RA", Gender: models.GenderMale})
	require.NoError(t, err)
	status := models.RoomStatusUnderRepair
	_, _, err = env.roomSvc.Update(env.ctx, models.RoomRef{Building: "B3", RoomNumber: "3102"}, models.RoomUpdate{Status: &status})
	require.NoError(t, err)

	cache := &memoryCache{items: map[string]interface{}{}}
	metrics := NewMetricsService()
	svc := NewDashboardService(DashboardServiceParams{
		Rooms:     env.rooms,
		Residents: env.residents,
		Cache:     NewCacheService(cache, metrics, time.Minute, nil, true),
	})

	summary, cached, err := svc.Occupancy(env.ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 10, summary.TotalRooms)
	assert.Equal(t, 40, summary.TotalCapacity)
	assert.Equal(t, 5, summary.TotalOccupied)
	assert.Equal(t, 4, summary.StudentsLiving)
	assert.Equal(t, 1, summary.KasraLiving)
	require.Len(t, summary.Buildings, 5)
	assert.Equal(t, models.BuildingOccupancy{Building: "B1", Rooms: 2, Capacity: 8, Occupied: 4, FullRooms: 1}, summary.Buildings[0])
	assert.Equal(t, 1, summary.Buildings[2].UnderRepair)

	_, cached, err = svc.Occupancy(env.ctx)
	require.NoError(t, err)
	assert.True(t, cached)

	handler := svc.OnChange()
	handler(events.Change{Collection: events.CollectionPayments})
	assert.Equal(t, 0, cache.deletes)
	handler(events.Change{Collection: events.CollectionStudents})
	assert.Equal(t, 1, cache.deletes)

	_, cached, err = svc.Occupancy(env.ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, uint64(1), metrics.Snapshot().CacheHits)
}

func TestDashboardWithoutCache(t *testing.T) {
	env := newTestEnv(t)
	svc := NewDashboardService(DashboardServiceParams{Rooms: env.rooms, Residents: env.residents})

	summary, cached, err := svc.Occupancy(env.ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 10, summary.TotalRooms)
}

// invalidatingRooms simulates a write landing while the summary is built.
type invalidatingRooms struct {
	roomRepository
	svc *DashboardService
}

func (r *invalidatingRooms) LoadAll(ctx context.Context) ([]models.Room, error) {
	r.svc.Invalidate(ctx)
	return r.roomRepository.LoadAll(ctx)
}

func TestDashboardDoesNotCacheSummaryRacingAChange(t *testing.T) {
	env := newTestEnv(t)
	cache := &memoryCache{items: map[string]interface{}{}}
	rooms := &invalidatingRooms{roomRepository: env.rooms}
	svc := NewDashboardService(DashboardServiceParams{
		Rooms:     rooms,
		Residents: env.residents,
		Cache:     NewCacheService(cache, nil, time.Minute, nil, true),
	})
	rooms.svc = svc

	_, cached, err := svc.Occupancy(env.ctx)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Empty(t, cache.items)
}
