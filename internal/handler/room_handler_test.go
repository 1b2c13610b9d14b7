package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asrama-api/internal/models"
	"github.com/noah-isme/asrama-api/internal/service"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
)

type fakeRoomService struct {
	rooms      []models.Room
	lastFilter models.RoomFilter
	lastRef    models.RoomRef
	lastUpdate models.RoomUpdate
	warnings   []string
	result     *service.ReconcileResult
	err        error
}

func (f *fakeRoomService) List(_ context.Context, filter models.RoomFilter) ([]models.Room, error) {
	f.lastFilter = filter
	return f.rooms, f.err
}

func (f *fakeRoomService) Get(_ context.Context, ref models.RoomRef) (*models.Room, error) {
	f.lastRef = ref
	if f.err != nil {
		return nil, f.err
	}
	return &f.rooms[0], nil
}

func (f *fakeRoomService) Update(_ context.Context, ref models.RoomRef, req models.RoomUpdate) (*models.Room, []string, error) {
	f.lastRef = ref
	f.lastUpdate = req
	if f.err != nil {
		return nil, nil, f.err
	}
	return &f.rooms[0], f.warnings, nil
}

func (f *fakeRoomService) Reconcile(context.Context) (*service.ReconcileResult, error) {
	return f.result, f.err
}

func TestRoomHandlerListParsesFilter(t *testing.T) {
	fake := &fakeRoomService{rooms: []models.Room{{Building: "B2", RoomNumber: "2101"}}}
	h := NewRoomHandler(fake)

	c, rec := newTestContext(http.MethodGet, "/rooms?building=b2&available=true&status=available", "", admin())
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoomFilter{Building: "B2", AvailableOnly: true, Status: models.RoomStatusAvailable}, fake.lastFilter)

	var rooms []models.Room
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &rooms))
	assert.Len(t, rooms, 1)
}

func TestRoomHandlerListRejectsUnknownStatus(t *testing.T) {
	h := NewRoomHandler(&fakeRoomService{})

	c, rec := newTestContext(http.MethodGet, "/rooms?status=closed", "", admin())
	h.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoomHandlerGetNotFound(t *testing.T) {
	fake := &fakeRoomService{err: appErrors.ErrRoomNotFound}
	h := NewRoomHandler(fake)

	c, rec := newTestContext(http.MethodGet, "/rooms/b9/9101", "", admin(),
		gin.Param{Key: "building", Value: "b9"}, gin.Param{Key: "number", Value: "9101"})
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, models.RoomRef{Building: "B9", RoomNumber: "9101"}, fake.lastRef)
	assert.Equal(t, "ROOM_NOT_FOUND", decodeEnvelope(t, rec).Error["code"])
}

func TestRoomHandlerUpdateReturnsWarnings(t *testing.T) {
	fake := &fakeRoomService{
		rooms:    []models.Room{{Building: "B1", RoomNumber: "1101", Capacity: 2, Occupied: 3}},
		warnings: []string{"room B1-1101 is over capacity"},
	}
	h := NewRoomHandler(fake)

	c, rec := newTestContext(http.MethodPatch, "/rooms/B1/1101", `{"capacity":2}`, admin(),
		gin.Param{Key: "building", Value: "B1"}, gin.Param{Key: "number", Value: "1101"})
	h.Update(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, fake.lastUpdate.Capacity)
	assert.Equal(t, 2, *fake.lastUpdate.Capacity)
	assert.Equal(t, fake.warnings, decodeEnvelope(t, rec).Warnings)
}

func TestRoomHandlerUpdateRejectsBadJSON(t *testing.T) {
	h := NewRoomHandler(&fakeRoomService{})

	c, rec := newTestContext(http.MethodPatch, "/rooms/B1/1101", `{"capacity":`, admin())
	h.Update(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoomHandlerReconcileSurfacesWarnings(t *testing.T) {
	fake := &fakeRoomService{result: &service.ReconcileResult{
		Changed:      true,
		OverCapacity: []models.RoomRef{{Building: "B3", RoomNumber: "3101"}},
	}}
	h := NewRoomHandler(fake)

	c, rec := newTestContext(http.MethodPost, "/rooms/reconcile", "", admin())
	h.Reconcile(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"room B3-3101 is over capacity"}, decodeEnvelope(t, rec).Warnings)
}
