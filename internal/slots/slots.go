// Package slots builds the bookable half-hour windows for a contractor.
package slots

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"localhire/internal/models"
)

const labelLayout = "03:04 PM"

// Window describes the bookable horizon and daily opening hours.
type Window struct {
	Days      int
	OpenHour  int
	CloseHour int
	Step      time.Duration
}

func DefaultWindow() Window {
	return Window{
		Days:      models.DefaultBookingDays,
		OpenHour:  models.DefaultOpenHour,
		CloseHour: models.DefaultCloseHour,
		Step:      models.DefaultSlotStep,
	}
}

type Slot struct {
	Datetime  time.Time `json:"datetime"`
	DateKey   string    `json:"slotDate"`
	TimeLabel string    `json:"time"`
}

type Day struct {
	Date    time.Time `json:"date"`
	DateKey string    `json:"slotDate"`
	Slots   []Slot    `json:"slots"`
}

// DateKey formats t as day_month_year with a 1-based month, e.g. 5_3_2024.
func DateKey(t time.Time) string {
	return fmt.Sprintf("%d_%d_%d", t.Day(), int(t.Month()), t.Year())
}

// ParseDateKey is the inverse of DateKey. The result is midnight in loc.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(key, "_")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date key %q", key)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date key %q: %w", key, err)
		}
		nums[i] = n
	}
	day, month, year := nums[0], nums[1], nums[2]
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid date key %q", key)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date key %q", key)
	}
	return t, nil
}

// TimeLabel renders t as a zero-padded 12-hour clock, e.g. "10:00 AM".
func TimeLabel(t time.Time) string {
	return t.Format(labelLayout)
}

func Generate(now time.Time, booked models.BookedSlots) []Day {
	return DefaultWindow().Generate(now, booked)
}

// Generate returns one bucket per day of the window starting with now's date.
// Buckets are always present; a day with nothing left has an empty slice.
func (w Window) Generate(now time.Time, booked models.BookedSlots) []Day {
	loc := now.Location()
	days := make([]Day, 0, w.Days)

	for i := 0; i < w.Days; i++ {
		date := time.Date(now.Year(), now.Month(), now.Day()+i, 0, 0, 0, 0, loc)
		end := time.Date(date.Year(), date.Month(), date.Day(), w.CloseHour, 0, 0, 0, loc)

		cursor := time.Date(date.Year(), date.Month(), date.Day(), w.OpenHour, 0, 0, 0, loc)
		if i == 0 {
			cursor = w.firstToday(now)
		}

		day := Day{Date: date, DateKey: DateKey(date), Slots: []Slot{}}
		for ; cursor.Before(end); cursor = cursor.Add(w.Step) {
			label := TimeLabel(cursor)
			if booked.Has(day.DateKey, label) {
				continue
			}
			day.Slots = append(day.Slots, Slot{Datetime: cursor, DateKey: day.DateKey, TimeLabel: label})
		}
		days = append(days, day)
	}

	return days
}

// firstToday is the next full hour (never before opening), moved to :30 when
// more than half of the current hour has passed.
func (w Window) firstToday(now time.Time) time.Time {
	hour := now.Hour() + 1
	if hour < w.OpenHour {
		hour = w.OpenHour
	}
	minute := 0
	if now.Minute() > 30 {
		minute = 30
	}
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
}

// IsAvailable reports whether dateKey/label would be offered by Generate.
func (w Window) IsAvailable(now time.Time, booked models.BookedSlots, dateKey, label string) bool {
	if booked.Has(dateKey, label) {
		return false
	}
	for _, day := range w.Generate(now, nil) {
		if day.DateKey != dateKey {
			continue
		}
		for _, s := range day.Slots {
			if s.TimeLabel == label {
				return true
			}
		}
		return false
	}
	return false
}

func IsAvailable(now time.Time, booked models.BookedSlots, dateKey, label string) bool {
	return DefaultWindow().IsAvailable(now, booked, dateKey, label)
}
