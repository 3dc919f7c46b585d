package models

type AppointmentStats struct {
	Earnings     float64        `json:"earnings"`
	Appointments int            `json:"appointments"`
	Clients      int            `json:"clients"`
	ByStatus     map[string]int `json:"byStatus"`
}

type Dashboard struct {
	AppointmentStats
	Contractors      int            `json:"contractors,omitempty"`
	PendingApprovals int            `json:"pendingApprovals"`
	Latest           []*Appointment `json:"latestAppointments"`
}
