package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asrama-api/internal/models"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
)

func TestRoomServiceBootstrapIsIdempotent(t *testing.T) {
	env := newTestEnv(t)

	rooms, err := env.roomSvc.List(env.ctx, models.RoomFilter{})
	require.NoError(t, err)
	require.Len(t, rooms, 10)

	capacity := 2
	_, _, err = env.roomSvc.Update(env.ctx, models.RoomRef{Building: "B1", RoomNumber: "1101"}, models.RoomUpdate{Capacity: &capacity})
	require.NoError(t, err)

	created, err := env.roomSvc.Bootstrap(env.ctx)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 2, env.room(t, "B1", "1101").Capacity)
}

func TestRoomServiceUnderRepairIsSticky(t *testing.T) {
	env := newTestEnv(t)
	ref := models.RoomRef{Building: "B2", RoomNumber: "2101"}
	status := models.RoomStatusUnderRepair
	notes := "leaking ceiling"

	room, _, err := env.roomSvc.Update(env.ctx, ref, models.RoomUpdate{Status: &status, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusUnderRepair, room.Status)
	assert.Equal(t, notes, room.Notes)

	// Automatic assignment skips it, explicit assignment is refused.
	resident := env.addStudent(t, "r1", models.GenderMale, "", "")
	assert.Equal(t, "2102", resident.RoomNumber)
	_, _, err = env.resSvc.Create(env.ctx, models.KindStudent, CreateResidentRequest{NIM: "r2", Name: "R2", Gender: models.GenderMale, Building: "B2", RoomNumber: "2101"})
	assert.True(t, errors.Is(err, appErrors.ErrRoomUnderRepair))

	_, err = env.occupancy.Run(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusUnderRepair, env.room(t, "B2", "2101").Status)

	available := models.RoomStatusAvailable
	room, _, err = env.roomSvc.Update(env.ctx, ref, models.RoomUpdate{Status: &available})
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusAvailable, room.Status)
}

func TestRoomServiceCapacityBelowOccupancyWarns(t *testing.T) {
	env := newTestEnv(t)
	for _, nim := range []string{"c1", "c2", "c3"} {
		env.addStudent(t, nim, models.GenderFemale, "B5", "5102")
	}

	capacity := 2
	room, warnings, err := env.roomSvc.Update(env.ctx, models.RoomRef{Building: "B5", RoomNumber: "5102"}, models.RoomUpdate{Capacity: &capacity})
	require.NoError(t, err)
	assert.Equal(t, 3, room.Occupied)
	assert.Equal(t, models.RoomStatusFull, room.Status)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "over capacity")
}

func TestRoomServiceStatusFollowsOccupancy(t *testing.T) {
	env := newTestEnv(t)
	full := models.RoomStatusFull

	room, _, err := env.roomSvc.Update(env.ctx, models.RoomRef{Building: "B3", RoomNumber: "3101"}, models.RoomUpdate{Status: &full})
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusAvailable, room.Status)
}

func TestRoomServiceUpdateErrors(t *testing.T) {
	env := newTestEnv(t)

	capacity := 4
	_, _, err := env.roomSvc.Update(env.ctx, models.RoomRef{Building: "B9", RoomNumber: "9101"}, models.RoomUpdate{Capacity: &capacity})
	assert.True(t, errors.Is(err, appErrors.ErrRoomNotFound))

	zero := 0
	_, _, err = env.roomSvc.Update(env.ctx, models.RoomRef{Building: "B1", RoomNumber: "1101"}, models.RoomUpdate{Capacity: &zero})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestRoomServiceListFilters(t *testing.T) {
	env := newTestEnv(t)
	for _, nim := range []string{"f1", "f2", "f3", "f4"} {
		env.addStudent(t, nim, models.GenderFemale, "B1", "1101")
	}

	rooms, err := env.roomSvc.List(env.ctx, models.RoomFilter{Building: "B1"})
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	rooms, err = env.roomSvc.List(env.ctx, models.RoomFilter{Building: "B1", AvailableOnly: true})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "1102", rooms[0].RoomNumber)

	rooms, err = env.roomSvc.List(env.ctx, models.RoomFilter{Status: models.RoomStatusFull})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "1101", rooms[0].RoomNumber)

	rooms, err = env.roomSvc.List(env.ctx, models.RoomFilter{AvailableOnly: true})
	require.NoError(t, err)
	assert.Len(t, rooms, 9)
}
