package models

import "time"

// BuildingOccupancy summarises one building.
type BuildingOccupancy struct {
	Building     string `json:"building"`
	Rooms        int    `json:"rooms"`
	Capacity     int    `json:"capacity"`
	Occupied     int    `json:"occupied"`
	FullRooms    int    `json:"full_rooms"`
	UnderRepair  int    `json:"under_repair"`
	OverCapacity int    `json:"over_capacity"`
}

// OccupancySummary is the dashboard payload.
type OccupancySummary struct {
	Buildings      []BuildingOccupancy `json:"buildings"`
	TotalRooms     int                 `json:"total_rooms"`
	TotalCapacity  int                 `json:"total_capacity"`
	TotalOccupied  int                 `json:"total_occupied"`
	StudentsLiving int                 `json:"students_living"`
	KasraLiving    int                 `json:"kasra_living"`
	GeneratedAt    time.Time           `json:"generated_at"`
}
