package models

import "time"

type Contractor struct {
	ID          string      `json:"id" db:"id" yaml:"id"`
	Name        string      `json:"name" db:"name" yaml:"name"`
	Email       string      `json:"email" db:"email" yaml:"email"`
	Image       string      `json:"image" db:"image" yaml:"image"`
	Speciality  string      `json:"speciality" db:"speciality" yaml:"speciality"`
	Degree      string      `json:"degree" db:"degree" yaml:"degree"`
	Experience  string      `json:"experience" db:"experience" yaml:"experience"`
	About       string      `json:"about" db:"about" yaml:"about"`
	Fees        float64     `json:"fees" db:"fees" yaml:"fees"`
	Address     string      `json:"address" db:"address" yaml:"address"`
	Available   bool        `json:"available" db:"available" yaml:"available"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at" yaml:"-"`
	UpdatedAt   time.Time   `json:"updatedAt" db:"updated_at" yaml:"-"`
	SlotsBooked BookedSlots `json:"slotsBooked,omitempty" db:"-" yaml:"-"`
}

// BookedSlots maps a date key to the time labels already taken that day.
type BookedSlots map[string][]string

func (b BookedSlots) Has(dateKey, label string) bool {
	for _, l := range b[dateKey] {
		if l == label {
			return true
		}
	}
	return false
}

func (b BookedSlots) Add(dateKey, label string) {
	b[dateKey] = append(b[dateKey], label)
}
