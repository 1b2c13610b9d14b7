package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asrama-api/internal/models"
)

func TestInitializeRoomsDefaultLayout(t *testing.T) {
	rooms := InitializeRooms([]string{"B1", "B2", "B3", "B4", "B5"}, DefaultRoomLayout)
	require.Len(t, rooms, 500)

	assert.Equal(t, models.Room{Building: "B1", Floor: 1, RoomNumber: "1101", Capacity: 4, Status: models.RoomStatusAvailable}, rooms[0])
	assert.Equal(t, "1120", rooms[19].RoomNumber)
	assert.Equal(t, "1201", rooms[20].RoomNumber)
	last := rooms[len(rooms)-1]
	assert.Equal(t, "B5", last.Building)
	assert.Equal(t, 5, last.Floor)
	assert.Equal(t, "5520", last.RoomNumber)

	seen := make(map[models.RoomRef]struct{}, len(rooms))
	for _, room := range rooms {
		_, dup := seen[room.Ref()]
		require.False(t, dup, "duplicate room %s", room.Ref())
		seen[room.Ref()] = struct{}{}
		assert.Equal(t, 0, room.Occupied)
	}
}

func TestRoomNumberFormat(t *testing.T) {
	assert.Equal(t, "3207", RoomNumber(3, 2, 7))
	assert.Equal(t, "2115", RoomNumber(2, 1, 15))
}

func TestFindAndListRooms(t *testing.T) {
	rooms := []models.Room{
		{Building: "B1", RoomNumber: "1101", Capacity: 4, Occupied: 4, Status: models.RoomStatusFull},
		{Building: "B1", RoomNumber: "1102", Capacity: 4, Occupied: 1, Status: models.RoomStatusAvailable},
		{Building: "B1", RoomNumber: "1103", Capacity: 4, Status: models.RoomStatusUnderRepair},
		{Building: "B2", RoomNumber: "2101", Capacity: 4, Status: models.RoomStatusAvailable},
	}

	idx, ok := FindRoom(rooms, models.RoomRef{Building: "B1", RoomNumber: "1102"})
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = FindRoom(rooms, models.RoomRef{Building: "B2", RoomNumber: "1102"})
	assert.False(t, ok)

	assert.Len(t, ListByBuilding(rooms, "B1"), 3)
	available := ListAvailable(rooms, "B1")
	require.Len(t, available, 1)
	assert.Equal(t, "1102", available[0].RoomNumber)
	assert.Empty(t, ListAvailable(rooms, "B9"))
}

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, models.RoomStatusAvailable, deriveStatus(models.RoomStatusFull, 3, 4))
	assert.Equal(t, models.RoomStatusFull, deriveStatus(models.RoomStatusAvailable, 4, 4))
	assert.Equal(t, models.RoomStatusFull, deriveStatus(models.RoomStatusAvailable, 5, 4))
	assert.Equal(t, models.RoomStatusUnderRepair, deriveStatus(models.RoomStatusUnderRepair, 0, 4))
	assert.Equal(t, models.RoomStatusAvailable, deriveStatus("", 0, 4))
}
