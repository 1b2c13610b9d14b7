package models

import "time"

// ComplaintStatus is the handling state of a complaint.
type ComplaintStatus string

const (
	ComplaintOpen       ComplaintStatus = "OPEN"
	ComplaintInProgress ComplaintStatus = "IN_PROGRESS"
	ComplaintResolved   ComplaintStatus = "RESOLVED"
)

// Complaint is a resident's report about a facility or another issue.
type Complaint struct {
	ID          string          `json:"id"`
	NIM         string          `json:"nim"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Building    string          `json:"building,omitempty"`
	RoomNumber  string          `json:"room_number,omitempty"`
	Status      ComplaintStatus `json:"status"`
	Response    string          `json:"response,omitempty"`
	HandledBy   string          `json:"handled_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ComplaintFilter narrows complaint listings.
type ComplaintFilter struct {
	NIM      string
	Status   ComplaintStatus
	Page     int
	PageSize int
}
