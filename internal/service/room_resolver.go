package service

import (
	"fmt"

	"github.com/noah-isme/asrama-api/internal/models"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
)

// RoomResolver picks or validates a room for a resident. Both paths share
// the same eligibility data and capacity rule.
type RoomResolver struct {
	eligibility Eligibility
}

// NewRoomResolver constructs a resolver; nil eligibility uses the default.
func NewRoomResolver(eligibility Eligibility) *RoomResolver {
	if eligibility == nil {
		eligibility = DefaultEligibility()
	}
	return &RoomResolver{eligibility: eligibility}
}

// Eligibility exposes the partition in use.
func (r *RoomResolver) Eligibility() Eligibility {
	return r.eligibility
}

// ResolveAutomatic returns the emptiest room with space in any building
// eligible for gender. Ties go to the first room in building, floor and
// room number order. It relies on occupied being freshly reconciled.
func (r *RoomResolver) ResolveAutomatic(rooms []models.Room, gender models.Gender) (models.Room, error) {
	return r.pick(rooms, gender, r.eligibility.Buildings(gender))
}

// ResolveInBuilding is ResolveAutomatic restricted to one building.
func (r *RoomResolver) ResolveInBuilding(rooms []models.Room, gender models.Gender, building string) (models.Room, error) {
	if !r.eligibility.Allows(gender, building) {
		return models.Room{}, mismatch(gender, building)
	}
	return r.pick(rooms, gender, []string{building})
}

func (r *RoomResolver) pick(rooms []models.Room, gender models.Gender, buildings []string) (models.Room, error) {
	allowed := make(map[string]struct{}, len(buildings))
	for _, b := range buildings {
		allowed[b] = struct{}{}
	}

	candidates := make([]models.Room, 0)
	for _, room := range rooms {
		if _, ok := allowed[room.Building]; ok && room.HasSpace() {
			candidates = append(candidates, room)
		}
	}
	if len(candidates) == 0 {
		return models.Room{}, appErrors.Clone(appErrors.ErrNoRoomAvailable, fmt.Sprintf("no room available for gender %s", gender))
	}

	sortRooms(candidates)
	best := candidates[0]
	for _, room := range candidates[1:] {
		if room.Occupied < best.Occupied {
			best = room
		}
	}
	return best, nil
}

// ValidateRequested checks an explicitly chosen room. current is the room
// the resident occupies right now, if any; a resident may keep a room that
// has since become full or gone under repair.
func (r *RoomResolver) ValidateRequested(rooms []models.Room, ref models.RoomRef, gender models.Gender, current *models.RoomRef) error {
	if !r.eligibility.Allows(gender, ref.Building) {
		return mismatch(gender, ref.Building)
	}
	idx, ok := FindRoom(rooms, ref)
	if !ok {
		return appErrors.Clone(appErrors.ErrRoomNotFound, fmt.Sprintf("room %s not found", ref))
	}
	room := rooms[idx]
	staying := current != nil && *current == ref
	if room.Status == models.RoomStatusUnderRepair && !staying {
		return appErrors.Clone(appErrors.ErrRoomUnderRepair, fmt.Sprintf("room %s is under repair", ref))
	}
	if room.Occupied >= room.Capacity && !staying {
		return appErrors.Clone(appErrors.ErrCapacityExceeded, fmt.Sprintf("room %s is full (%d/%d)", ref, room.Occupied, room.Capacity))
	}
	return nil
}

// ValidateRecorded checks the room kept on a resident who is not living
// in. It must exist and match gender; space and repair status do not apply.
func (r *RoomResolver) ValidateRecorded(rooms []models.Room, ref models.RoomRef, gender models.Gender) error {
	if ref.Building == "" || ref.RoomNumber == "" {
		return appErrors.Clone(appErrors.ErrValidation, "building and room_number are required")
	}
	if !r.eligibility.Allows(gender, ref.Building) {
		return mismatch(gender, ref.Building)
	}
	if _, ok := FindRoom(rooms, ref); !ok {
		return appErrors.Clone(appErrors.ErrRoomNotFound, fmt.Sprintf("room %s not found", ref))
	}
	return nil
}

// Assign runs the path matching the request: a full ref is validated, a
// building alone is resolved inside that building, and an empty ref is
// resolved automatically.
func (r *RoomResolver) Assign(rooms []models.Room, requested models.RoomRef, gender models.Gender, current *models.RoomRef) (models.Room, error) {
	switch {
	case requested.Building != "" && requested.RoomNumber != "":
		if err := r.ValidateRequested(rooms, requested, gender, current); err != nil {
			return models.Room{}, err
		}
		idx, _ := FindRoom(rooms, requested)
		return rooms[idx], nil
	case requested.Building != "":
		return r.ResolveInBuilding(rooms, gender, requested.Building)
	case requested.RoomNumber != "":
		return models.Room{}, appErrors.Clone(appErrors.ErrValidation, "room_number requires building")
	default:
		return r.ResolveAutomatic(rooms, gender)
	}
}

func mismatch(gender models.Gender, building string) error {
	return appErrors.Clone(appErrors.ErrGenderBuildingMismatch, fmt.Sprintf("building %s is not available for gender %s", building, gender))
}
