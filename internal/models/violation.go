package models

import "time"

// ViolationCategory grades the severity of a disciplinary record.
type ViolationCategory string

const (
	ViolationMinor    ViolationCategory = "RINGAN"
	ViolationModerate ViolationCategory = "SEDANG"
	ViolationSevere   ViolationCategory = "BERAT"
)

// Violation is a disciplinary record against a resident.
type Violation struct {
	ID          string            `json:"id"`
	NIM         string            `json:"nim"`
	Category    ViolationCategory `json:"category"`
	Description string            `json:"description"`
	Points      int               `json:"points"`
	RecordedBy  string            `json:"recorded_by"`
	Date        time.Time         `json:"date"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ViolationFilter narrows violation listings.
type ViolationFilter struct {
	NIM      string
	Category ViolationCategory
	Page     int
	PageSize int
}

// ViolationSummary aggregates a resident's record.
type ViolationSummary struct {
	NIM         string                    `json:"nim"`
	TotalPoints int                       `json:"total_points"`
	Count       int                       `json:"count"`
	ByCategory  map[ViolationCategory]int `json:"by_category"`
	LastAt      *time.Time                `json:"last_at,omitempty"`
}
