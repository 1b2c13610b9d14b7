package models

import "time"

// Gender values as entered by dormitory staff.
type Gender string

const (
	GenderMale   Gender = "Laki-laki"
	GenderFemale Gender = "Perempuan"
)

// ResidencyStatus tells whether a resident still occupies their room.
type ResidencyStatus string

const (
	ResidencyLiving     ResidencyStatus = "LIVING"
	ResidencyCheckedOut ResidencyStatus = "CHECKED_OUT"
)

// ResidentKind separates the two resident collections.
type ResidentKind string

const (
	KindStudent ResidentKind = "STUDENT"
	KindKasra   ResidentKind = "KASRA"
)

// Resident is a student or resident assistant (kasra). Both share this
// shape; NIM is unique across both collections.
type Resident struct {
	NIM         string          `json:"nim"`
	Name        string          `json:"name"`
	Gender      Gender          `json:"gender"`
	Building    string          `json:"building"`
	RoomNumber  string          `json:"room_number"`
	Status      ResidencyStatus `json:"status"`
	Program     string          `json:"program,omitempty"`
	Faculty     string          `json:"faculty,omitempty"`
	Email       string          `json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	CheckInDate *time.Time      `json:"check_in_date,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Room returns the room the resident points at.
func (r Resident) Room() RoomRef {
	return RoomRef{Building: r.Building, RoomNumber: r.RoomNumber}
}

// Living reports whether the resident counts toward occupancy.
func (r Resident) Living() bool {
	return r.Status == ResidencyLiving
}

// ResidentFilter captures list parameters.
type ResidentFilter struct {
	Search   string
	Building string
	Room     string
	Gender   Gender
	Status   ResidencyStatus
	Page     int
	PageSize int
}
