package service

import (
	"context"
	"fmt"

	"localhire/internal/domain"
	"localhire/internal/events"
	"localhire/internal/lifecycle"
	"localhire/internal/metrics"
	"localhire/internal/models"

	"github.com/rs/zerolog"
)

type RatingService struct {
	ratings  domain.RatingStore
	appts    domain.AppointmentRepository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewRatingService(ratings domain.RatingStore, appts domain.AppointmentRepository, eventBus domain.EventPublisher, logger *zerolog.Logger) *RatingService {
	return &RatingService{
		ratings:  ratings,
		appts:    appts,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Submit records stars for a completed appointment. The appointment is
// flagged as rated before the contractor counters move, so a lost race never
// counts a review twice. A failed increment clears the flag again.
func (s *RatingService) Submit(ctx context.Context, actor domain.Actor, appointmentID string, stars int) (models.RatingSummary, error) {
	if err := lifecycle.ValidStars(stars); err != nil {
		return models.RatingSummary{}, err
	}
	appt, err := s.appts.GetAppointment(ctx, appointmentID)
	if err != nil {
		return models.RatingSummary{}, err
	}
	if !actor.IsAdmin() && actor.ID != appt.ClientID {
		return models.RatingSummary{}, domain.ErrNotOwner
	}

	expected := appt.Version
	if err := lifecycle.MarkRated(appt); err != nil {
		return models.RatingSummary{}, err
	}
	if err := s.appts.UpdateAppointmentWithVersion(ctx, appt, expected); err != nil {
		return models.RatingSummary{}, err
	}

	rating, err := s.ratings.IncrementRating(ctx, appt.ContractorID, stars)
	if err != nil {
		s.logger.Error().Err(err).
			Str("appointment_id", appt.ID).
			Str("contractor_id", appt.ContractorID).
			Msg("rating increment failed, clearing rated flag")
		s.unmarkRated(ctx, appt)
		return models.RatingSummary{}, fmt.Errorf("failed to record rating: %w", err)
	}

	metrics.IncRating(stars)
	if s.eventBus != nil {
		payload := events.NewAppointmentPayload(appt)
		payload.Stars = stars
		payload.ChangedBy = actor.ID
		payload.ChangedByRole = actor.Role
		if err := s.eventBus.PublishJSON(events.EventAppointmentRated, payload); err != nil {
			s.logger.Error().Err(err).Str("appointment_id", appt.ID).Msg("publish rating event error")
		}
	}
	return rating.Summary(), nil
}

func (s *RatingService) unmarkRated(ctx context.Context, appt *models.Appointment) {
	appt.HasBeenRated = false
	if err := s.appts.UpdateAppointmentWithVersion(ctx, appt, appt.Version); err != nil {
		s.logger.Error().Err(err).Str("appointment_id", appt.ID).Msg("failed to clear rated flag")
	}
}

// Get returns the rating record, or an empty one for an unrated contractor.
func (s *RatingService) Get(ctx context.Context, contractorID string) (*models.Rating, error) {
	r, err := s.ratings.GetRating(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return &models.Rating{ContractorID: contractorID}, nil
	}
	return r, nil
}

// Set overwrites the stored totals. Totals must be reachable with 1..5 stars per review.
func (s *RatingService) Set(ctx context.Context, r *models.Rating) error {
	if r.ContractorID == "" {
		return domain.Validation("contractorId is required")
	}
	if r.TotalRating < 0 || r.TotalReviews < 0 {
		return domain.Validation("rating totals must not be negative")
	}
	if r.TotalRating < r.TotalReviews*models.MinStars || r.TotalRating > r.TotalReviews*models.MaxStars {
		return domain.Validation("totalRating is inconsistent with totalReviews")
	}
	if err := s.ratings.SetRating(ctx, r); err != nil {
		return err
	}
	s.logger.Info().Str("contractor_id", r.ContractorID).Int64("total_reviews", r.TotalReviews).Msg("rating overwritten")
	return nil
}
