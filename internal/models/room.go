package models

// RoomStatus is the lifecycle state shown for a room.
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "AVAILABLE"
	RoomStatusFull        RoomStatus = "FULL"
	RoomStatusUnderRepair RoomStatus = "UNDER_REPAIR"
)

// Valid reports whether s is a known status.
func (s RoomStatus) Valid() bool {
	switch s {
	case RoomStatusAvailable, RoomStatusFull, RoomStatusUnderRepair:
		return true
	}
	return false
}

// Room is one physical room. Occupied is derived from the resident
// collections and is overwritten on every reconciliation.
type Room struct {
	Building   string     `json:"building"`
	Floor      int        `json:"floor"`
	RoomNumber string     `json:"room_number"`
	Capacity   int        `json:"capacity"`
	Occupied   int        `json:"occupied"`
	Status     RoomStatus `json:"status"`
	Notes      string     `json:"notes"`
}

// Ref returns the natural key residents use to point at the room.
func (r Room) Ref() RoomRef {
	return RoomRef{Building: r.Building, RoomNumber: r.RoomNumber}
}

// HasSpace reports whether the room can take another resident.
func (r Room) HasSpace() bool {
	return r.Status != RoomStatusUnderRepair && r.Occupied < r.Capacity
}

// RoomRef identifies a room by building and room number.
type RoomRef struct {
	Building   string `json:"building"`
	RoomNumber string `json:"room_number"`
}

// String renders the ref as "B2-2101".
func (r RoomRef) String() string {
	return r.Building + "-" + r.RoomNumber
}

// IsZero reports whether the ref points nowhere.
func (r RoomRef) IsZero() bool {
	return r.Building == "" && r.RoomNumber == ""
}

// RoomFilter narrows room listings.
type RoomFilter struct {
	Building      string
	AvailableOnly bool
	Status        RoomStatus
}

// RoomUpdate carries the admin-editable room fields. Nil means unchanged.
type RoomUpdate struct {
	Capacity *int        `json:"capacity" validate:"omitempty,min=1,max=20"`
	Status   *RoomStatus `json:"status" validate:"omitempty,oneof=AVAILABLE FULL UNDER_REPAIR"`
	Notes    *string     `json:"notes" validate:"omitempty,max=500"`
}
