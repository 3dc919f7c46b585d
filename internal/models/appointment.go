package models

import "time"

type AppointmentStatus string

const (
	StatusPending       AppointmentStatus = "pending"
	StatusCompleted     AppointmentStatus = "completed"
	StatusRejected      AppointmentStatus = "rejected"
	StatusCancelled     AppointmentStatus = "cancelled"
	StatusNeedsRevision AppointmentStatus = "needsRevision"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusRejected, StatusCancelled, StatusNeedsRevision:
		return true
	}
	return false
}

// IsTerminal reports whether no further lifecycle transitions are allowed.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

type Appointment struct {
	ID           string            `json:"id" db:"id"`
	ClientID     string            `json:"userId" db:"client_id"`
	ClientName   string            `json:"userName" db:"client_name"`
	ClientEmail  string            `json:"userEmail" db:"client_email"`
	ContractorID string            `json:"conId" db:"contractor_id"`
	SlotDate     string            `json:"slotDate" db:"slot_date"`
	SlotTime     string            `json:"slotTime" db:"slot_time"`
	Amount       float64           `json:"amount" db:"amount"`
	Status       AppointmentStatus `json:"status" db:"status"`
	ProofImage   string            `json:"proofImage,omitempty" db:"proof_image"`
	HasBeenRated bool              `json:"hasBeenRated" db:"has_been_rated"`
	Version      int64             `json:"version" db:"version"`
	CreatedAt    time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time         `json:"updatedAt" db:"updated_at"`
}

func (a *Appointment) IsCompleted() bool {
	return a.Status == StatusCompleted
}

func (a *Appointment) Cancelled() bool {
	return a.Status == StatusCancelled
}

func (a *Appointment) HasProof() bool {
	return a.ProofImage != ""
}

// AppointmentFilter narrows list queries. Zero values mean "any".
type AppointmentFilter struct {
	ClientID     string
	ContractorID string
	Status       AppointmentStatus
	NeedsProof   bool
	Limit        int
	Offset       int
}
