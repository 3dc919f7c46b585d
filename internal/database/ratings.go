package database

import (
	"context"
	"fmt"
	"time"

	"localhire/internal/models"
)

// RatingStore keeps rating aggregates in the relational store.
type RatingStore struct {
	db *DB
}

func NewRatingStore(db *DB) *RatingStore {
	return &RatingStore{db: db}
}

// GetRating returns nil, nil when the contractor has never been rated.
func (s *RatingStore) GetRating(ctx context.Context, contractorID string) (*models.Rating, error) {
	var r models.Rating
	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT contractor_id, total_rating, total_reviews, updated_at
		FROM ratings WHERE contractor_id = ?`), contractorID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	return &r, nil
}

func (s *RatingStore) SetRating(ctx context.Context, r *models.Rating) error {
	r.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO ratings (contractor_id, total_rating, total_reviews, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(contractor_id) DO UPDATE SET
			total_rating = excluded.total_rating,
			total_reviews = excluded.total_reviews,
			updated_at = excluded.updated_at`),
		r.ContractorID, r.TotalRating, r.TotalReviews, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to set rating: %w", err)
	}
	return nil
}

// IncrementRating adds one review of the given stars inside the database.
func (s *RatingStore) IncrementRating(ctx context.Context, contractorID string, stars int) (*models.Rating, error) {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO ratings (contractor_id, total_rating, total_reviews, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(contractor_id) DO UPDATE SET
			total_rating = ratings.total_rating + excluded.total_rating,
			total_reviews = ratings.total_reviews + 1,
			updated_at = excluded.updated_at`),
		contractorID, stars, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to increment rating: %w", err)
	}
	return s.GetRating(ctx, contractorID)
}
