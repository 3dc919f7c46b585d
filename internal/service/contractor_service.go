package service

import (
	"context"
	"strings"
	"time"

	"localhire/internal/domain"
	"localhire/internal/models"
	"localhire/internal/slots"

	"github.com/rs/zerolog"
)

const contractorImageFolder = "contractors"

type ContractorProfile struct {
	*models.Contractor
	Rating models.RatingSummary `json:"rating"`
}

type ContractorService struct {
	repo     domain.ContractorRepository
	ratings  domain.RatingStore
	uploader domain.MediaUploader
	policy   BookingPolicy
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewContractorService(repo domain.ContractorRepository, ratings domain.RatingStore, uploader domain.MediaUploader, policy BookingPolicy, logger *zerolog.Logger) *ContractorService {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	if policy.Window.Days == 0 {
		policy.Window = slots.DefaultWindow()
	}
	return &ContractorService{
		repo:     repo,
		ratings:  ratings,
		uploader: uploader,
		policy:   policy,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *ContractorService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *ContractorService) List(ctx context.Context) ([]*models.Contractor, error) {
	return s.repo.ListContractors(ctx)
}

// Get returns the contractor with its rating summary. A rating store outage
// degrades to an empty summary.
func (s *ContractorService) Get(ctx context.Context, id string) (*ContractorProfile, error) {
	c, err := s.repo.GetContractor(ctx, id)
	if err != nil {
		return nil, err
	}
	profile := &ContractorProfile{Contractor: c, Rating: models.RatingSummary{ContractorID: id}}
	if s.ratings == nil {
		return profile, nil
	}
	r, err := s.ratings.GetRating(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("contractor_id", id).Msg("rating lookup failed")
		return profile, nil
	}
	if r != nil {
		profile.Rating = r.Summary()
	}
	return profile, nil
}

// Slots returns the bookable windows for the contractor as of now.
func (s *ContractorService) Slots(ctx context.Context, id string) ([]slots.Day, error) {
	c, err := s.repo.GetContractor(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.policy.Window.Generate(s.now().In(s.policy.Location), c.SlotsBooked), nil
}

// Add creates a contractor, uploading image first when one is given.
func (s *ContractorService) Add(ctx context.Context, c *models.Contractor, image *domain.File) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	switch {
	case c.Name == "":
		return domain.Validation("name is required")
	case !strings.Contains(c.Email, "@"):
		return domain.Validation("a valid email is required")
	case c.Fees < 0:
		return domain.Validation("fees must not be negative")
	}

	if image != nil && image.Body != nil {
		url, err := s.uploader.Upload(ctx, contractorImageFolder, *image)
		if err != nil {
			return err
		}
		c.Image = url
	}
	c.Available = true

	if err := s.repo.CreateContractor(ctx, c); err != nil {
		return err
	}
	s.logger.Info().Str("contractor_id", c.ID).Str("email", c.Email).Msg("contractor added")
	return nil
}

// ToggleAvailability flips the available flag and returns the new value.
func (s *ContractorService) ToggleAvailability(ctx context.Context, id string) (bool, error) {
	c, err := s.repo.GetContractor(ctx, id)
	if err != nil {
		return false, err
	}
	available := !c.Available
	if err := s.repo.SetContractorAvailability(ctx, id, available); err != nil {
		return false, err
	}
	s.logger.Info().Str("contractor_id", id).Bool("available", available).Msg("availability changed")
	return available, nil
}

// Seed upserts contractors from configuration by id.
func (s *ContractorService) Seed(ctx context.Context, contractors []models.Contractor) error {
	for i := range contractors {
		c := contractors[i]
		if err := s.repo.UpsertContractor(ctx, &c); err != nil {
			return err
		}
	}
	s.logger.Info().Int("count", len(contractors)).Msg("contractors seeded")
	return nil
}
