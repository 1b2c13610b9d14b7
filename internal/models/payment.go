package models

import "time"

// PaymentStatus tracks verification of a dormitory fee payment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRejected PaymentStatus = "REJECTED"
)

// Payment is one fee payment submitted for a resident.
type Payment struct {
	ID         string        `json:"id"`
	NIM        string        `json:"nim"`
	Amount     int64         `json:"amount"`
	Period     string        `json:"period"`
	Method     string        `json:"method"`
	Status     PaymentStatus `json:"status"`
	Notes      string        `json:"notes,omitempty"`
	VerifiedBy string        `json:"verified_by,omitempty"`
	PaidAt     *time.Time    `json:"paid_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	NIM      string
	Status   PaymentStatus
	Period   string
	Page     int
	PageSize int
}
