package models

import "time"

const (
	DefaultBookingDays = 30
	DefaultOpenHour    = 10
	DefaultCloseHour   = 21
	DefaultSlotStep    = 30 * time.Minute
)

const (
	MinStars = 1
	MaxStars = 5
)

const (
	RoleAdmin      = "admin"
	RoleContractor = "contractor"
	RoleClient     = "client"
)

const (
	DefaultBookingRateLimit  = 5
	DefaultBookingRateWindow = time.Minute
)
