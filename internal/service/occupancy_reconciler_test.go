package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asrama-api/internal/models"
)

func living(nim string, gender models.Gender, building, room string) models.Resident {
	return models.Resident{NIM: nim, Name: "Resident " + nim, Gender: gender, Building: building, RoomNumber: room, Status: models.ResidencyLiving}
}

func TestReconcileCountsLivingResidents(t *testing.T) {
	rooms := InitializeRooms([]string{"B1", "B2"}, RoomLayout{Floors: 1, RoomsPerFloor: 2, DefaultCapacity: 4})
	students := []models.Resident{
		living("1", models.GenderMale, "B2", "2101"),
		living("2", models.GenderMale, "B2", "2101"),
		living("3", models.GenderMale, "B2", "2101"),
	}
	checkedOut := living("4", models.GenderMale, "B2", "2101")
	checkedOut.Status = models.ResidencyCheckedOut
	students = append(students, checkedOut)
	kasra := []models.Resident{living("K1", models.GenderMale, "B2", "2101")}

	result := Reconcile(rooms, students, kasra)
	require.True(t, result.Changed)

	idx, _ := FindRoom(result.Rooms, models.RoomRef{Building: "B2", RoomNumber: "2101"})
	assert.Equal(t, 4, result.Rooms[idx].Occupied)
	assert.Equal(t, models.RoomStatusFull, result.Rooms[idx].Status)
	assert.Empty(t, result.OverCapacity)

	for i, room := range result.Rooms {
		if i != idx {
			assert.Equal(t, 0, room.Occupied)
			assert.Equal(t, models.RoomStatusAvailable, room.Status)
		}
	}
	// Input is untouched.
	assert.Equal(t, 0, rooms[idx].Occupied)
}

func TestReconcileOverCapacityIsRecordedNotClamped(t *testing.T) {
	rooms := []models.Room{{Building: "B1", RoomNumber: "1101", Capacity: 4, Status: models.RoomStatusAvailable}}
	students := make([]models.Resident, 0, 5)
	for _, nim := range []string{"a", "b", "c", "d", "e"} {
		students = append(students, living(nim, models.GenderFemale, "B1", "1101"))
	}

	result := Reconcile(rooms, students, nil)
	assert.Equal(t, 5, result.Rooms[0].Occupied)
	assert.Equal(t, models.RoomStatusFull, result.Rooms[0].Status)
	assert.Equal(t, []models.RoomRef{{Building: "B1", RoomNumber: "1101"}}, result.OverCapacity)
	assert.Contains(t, result.Warnings(), "room B1-1101 is over capacity")
}

func TestReconcileKeepsUnderRepair(t *testing.T) {
	rooms := []models.Room{{Building: "B1", RoomNumber: "1101", Capacity: 4, Status: models.RoomStatusUnderRepair}}
	students := []models.Resident{living("a", models.GenderFemale, "B1", "1101")}

	result := Reconcile(rooms, students, nil)
	assert.Equal(t, 1, result.Rooms[0].Occupied)
	assert.Equal(t, models.RoomStatusUnderRepair, result.Rooms[0].Status)
}

func TestReconcileSkipsMalformedRecords(t *testing.T) {
	rooms := []models.Room{{Building: "B1", RoomNumber: "1101", Capacity: 4, Status: models.RoomStatusAvailable}}
	students := []models.Resident{
		living("ok", models.GenderFemale, "B1", "1101"),
		{NIM: "nobuilding", Gender: models.GenderFemale, RoomNumber: "1101", Status: models.ResidencyLiving},
		{NIM: "nogender", Building: "B1", RoomNumber: "1101", Status: models.ResidencyLiving},
		living("elsewhere", models.GenderFemale, "B9", "9101"),
	}

	result := Reconcile(rooms, students, nil)
	assert.Equal(t, 1, result.Rooms[0].Occupied)
	require.Len(t, result.Malformed, 2)
	assert.Equal(t, "nobuilding", result.Malformed[0].NIM)
	assert.Equal(t, "missing building", result.Malformed[0].Reason)
	assert.Equal(t, "missing gender", result.Malformed[1].Reason)
	require.Len(t, result.Unplaced, 1)
	assert.Equal(t, "elsewhere", result.Unplaced[0].NIM)
}

func TestReconcileIsIdempotent(t *testing.T) {
	rooms := InitializeRooms([]string{"B1"}, RoomLayout{Floors: 1, RoomsPerFloor: 3, DefaultCapacity: 2})
	students := []models.Resident{
		living("a", models.GenderFemale, "B1", "1101"),
		living("b", models.GenderFemale, "B1", "1101"),
		living("c", models.GenderFemale, "B1", "1102"),
	}

	first := Reconcile(rooms, students, nil)
	require.True(t, first.Changed)
	second := Reconcile(first.Rooms, students, nil)
	assert.False(t, second.Changed)
	assert.Equal(t, first.Rooms, second.Rooms)
}

func TestReconcileFreesRoomAfterCheckout(t *testing.T) {
	rooms := []models.Room{{Building: "B1", RoomNumber: "1101", Capacity: 1, Occupied: 1, Status: models.RoomStatusFull}}
	resident := living("a", models.GenderFemale, "B1", "1101")
	resident.Status = models.ResidencyCheckedOut

	result := Reconcile(rooms, []models.Resident{resident}, nil)
	assert.True(t, result.Changed)
	assert.Equal(t, 0, result.Rooms[0].Occupied)
	assert.Equal(t, models.RoomStatusAvailable, result.Rooms[0].Status)
}
