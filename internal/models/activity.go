package models

import "time"

// Activity is a scheduled dormitory event.
type Activity struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location"`
	Building    string    `json:"building,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ActivityFilter narrows activity listings.
type ActivityFilter struct {
	Building string
	From     *time.Time
	To       *time.Time
}
