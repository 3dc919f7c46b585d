package models

import (
	"math"
	"time"
)

type Rating struct {
	ContractorID string    `json:"contractorId" db:"contractor_id"`
	TotalRating  int64     `json:"totalRating" db:"total_rating"`
	TotalReviews int64     `json:"totalReviews" db:"total_reviews"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// Average returns the mean star value rounded to one decimal, or 0 with no reviews.
func (r *Rating) Average() float64 {
	if r == nil || r.TotalReviews == 0 {
		return 0
	}
	avg := float64(r.TotalRating) / float64(r.TotalReviews)
	return math.Round(avg*10) / 10
}

type RatingSummary struct {
	ContractorID  string  `json:"contractorId"`
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int64   `json:"totalReviews"`
}

func (r *Rating) Summary() RatingSummary {
	s := RatingSummary{AverageRating: r.Average()}
	if r != nil {
		s.ContractorID = r.ContractorID
		s.TotalReviews = r.TotalReviews
	}
	return s
}
