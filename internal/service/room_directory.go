package service

import (
	"fmt"
	"sort"

	"github.com/noah-isme/asrama-api/internal/models"
)

// RoomLayout describes how rooms are generated for every building.
type RoomLayout struct {
	Floors          int
	RoomsPerFloor   int
	DefaultCapacity int
}

// DefaultRoomLayout is five floors of twenty four-bed rooms.
var DefaultRoomLayout = RoomLayout{Floors: 5, RoomsPerFloor: 20, DefaultCapacity: 4}

// RoomNumber renders the room number for a 1-based building index, floor
// and in-floor sequence, e.g. (3, 2, 7) -> "3207".
func RoomNumber(buildingIndex, floor, seq int) string {
	return fmt.Sprintf("%d%d%02d", buildingIndex, floor, seq)
}

// InitializeRooms generates the full room directory. Building order
// determines the building index used in room numbers.
func InitializeRooms(buildings []string, layout RoomLayout) []models.Room {
	rooms := make([]models.Room, 0, len(buildings)*layout.Floors*layout.RoomsPerFloor)
	for i, building := range buildings {
		for floor := 1; floor <= layout.Floors; floor++ {
			for seq := 1; seq <= layout.RoomsPerFloor; seq++ {
				rooms = append(rooms, models.Room{
					Building:   building,
					Floor:      floor,
					RoomNumber: RoomNumber(i+1, floor, seq),
					Capacity:   layout.DefaultCapacity,
					Occupied:   0,
					Status:     models.RoomStatusAvailable,
				})
			}
		}
	}
	return rooms
}

// FindRoom returns the index of ref in rooms.
func FindRoom(rooms []models.Room, ref models.RoomRef) (int, bool) {
	for i := range rooms {
		if rooms[i].Building == ref.Building && rooms[i].RoomNumber == ref.RoomNumber {
			return i, true
		}
	}
	return -1, false
}

// ListByBuilding returns the rooms of one building in directory order.
func ListByBuilding(rooms []models.Room, building string) []models.Room {
	out := make([]models.Room, 0)
	for _, room := range rooms {
		if room.Building == building {
			out = append(out, room)
		}
	}
	return out
}

// ListAvailable returns rooms of building that are Available and not full.
func ListAvailable(rooms []models.Room, building string) []models.Room {
	out := make([]models.Room, 0)
	for _, room := range rooms {
		if room.Building == building && room.Status == models.RoomStatusAvailable && room.Occupied < room.Capacity {
			out = append(out, room)
		}
	}
	return out
}

// sortRooms orders rooms by building, floor and room number.
func sortRooms(rooms []models.Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		a, b := rooms[i], rooms[j]
		if a.Building != b.Building {
			return a.Building < b.Building
		}
		if a.Floor != b.Floor {
			return a.Floor < b.Floor
		}
		return a.RoomNumber < b.RoomNumber
	})
}

// deriveStatus applies the status rule: UnderRepair is sticky, otherwise
// a room is Full exactly when occupied reaches capacity.
func deriveStatus(current models.RoomStatus, occupied, capacity int) models.RoomStatus {
	if current == models.RoomStatusUnderRepair {
		return models.RoomStatusUnderRepair
	}
	if occupied >= capacity {
		return models.RoomStatusFull
	}
	return models.RoomStatusAvailable
}
