package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"localhire/internal/config"
	"localhire/internal/domain"
	"localhire/internal/events"
	"localhire/internal/export"
	"localhire/internal/lifecycle"
	"localhire/internal/metrics"
	"localhire/internal/models"
	"localhire/internal/slots"

	"github.com/rs/zerolog"
)

const (
	latestLimit = 5
	proofFolder = "proofs"
)

// BookingPolicy is the booking window plus the per-client rate limit.
type BookingPolicy struct {
	Window     slots.Window
	Location   *time.Location
	RateLimit  int
	RateWindow time.Duration
}

func PolicyFromConfig(cfg config.BookingConfig) BookingPolicy {
	return BookingPolicy{
		Window: slots.Window{
			Days:      cfg.Days,
			OpenHour:  cfg.OpenHour,
			CloseHour: cfg.CloseHour,
			Step:      time.Duration(cfg.StepMinutes) * time.Minute,
		},
		Location:   cfg.Location(),
		RateLimit:  cfg.RateLimitBookings,
		RateWindow: cfg.RateLimitWindow,
	}
}

type BookRequest struct {
	ContractorID string `json:"conId"`
	SlotDate     string `json:"slotDate"`
	SlotTime     string `json:"slotTime"`
}

type AppointmentService struct {
	appts       domain.AppointmentRepository
	contractors domain.ContractorRepository
	uploader    domain.MediaUploader
	eventBus    domain.EventPublisher
	limiter     domain.RateLimiter
	policy      BookingPolicy
	now         func() time.Time
	logger      *zerolog.Logger
}

func NewAppointmentService(
	appts domain.AppointmentRepository,
	contractors domain.ContractorRepository,
	uploader domain.MediaUploader,
	eventBus domain.EventPublisher,
	limiter domain.RateLimiter,
	policy BookingPolicy,
	logger *zerolog.Logger,
) *AppointmentService {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	if policy.Window.Days == 0 {
		policy.Window = slots.DefaultWindow()
	}
	return &AppointmentService{
		appts:       appts,
		contractors: contractors,
		uploader:    uploader,
		eventBus:    eventBus,
		limiter:     limiter,
		policy:      policy,
		now:         time.Now,
		logger:      logger,
	}
}

// SetClock replaces the wall clock used to validate slots.
func (s *AppointmentService) SetClock(now func() time.Time) {
	s.now = now
}

// Book reserves a slot for the calling client at the contractor's current fee.
func (s *AppointmentService) Book(ctx context.Context, actor domain.Actor, req BookRequest) (*models.Appointment, error) {
	if req.ContractorID == "" || req.SlotDate == "" || req.SlotTime == "" {
		return nil, domain.Validation("missing booking details")
	}
	if err := s.checkBookingLimit(ctx, actor.ID); err != nil {
		return nil, err
	}

	contractor, err := s.contractors.GetContractor(ctx, req.ContractorID)
	if err != nil {
		return nil, err
	}
	if !contractor.Available {
		return nil, domain.ErrContractorUnavailable
	}
	if contractor.SlotsBooked.Has(req.SlotDate, req.SlotTime) {
		return nil, domain.ErrSlotUnavailable
	}
	now := s.now().In(s.policy.Location)
	if !s.policy.Window.IsAvailable(now, nil, req.SlotDate, req.SlotTime) {
		return nil, domain.ErrInvalidSlot
	}

	appt := &models.Appointment{
		ClientID:     actor.ID,
		ClientName:   actor.Name,
		ClientEmail:  actor.Email,
		ContractorID: contractor.ID,
		SlotDate:     req.SlotDate,
		SlotTime:     req.SlotTime,
		Amount:       contractor.Fees,
		Status:       models.StatusPending,
	}
	if err := s.appts.CreateAppointmentWithSlot(ctx, appt); err != nil {
		return nil, err
	}

	metrics.IncBooking()
	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("contractor_id", appt.ContractorID).
		Str("slot", appt.SlotDate+" "+appt.SlotTime).
		Msg("appointment booked")
	s.publish(ctx, events.EventAppointmentBooked, appt, contractor, actor)
	return appt, nil
}

// checkBookingLimit fails open when the limiter itself errors.
func (s *AppointmentService) checkBookingLimit(ctx context.Context, clientID string) error {
	if s.limiter == nil || s.policy.RateLimit <= 0 {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, "book:"+clientID, s.policy.RateLimit, s.policy.RateWindow)
	if err != nil {
		s.logger.Warn().Err(err).Str("client_id", clientID).Msg("booking limiter unavailable")
		return nil
	}
	if !ok {
		return domain.ErrTooManyBookings
	}
	return nil
}

// SubmitProof uploads the completion proof and moves the appointment back to
// pending review. A failed upload leaves the appointment untouched.
func (s *AppointmentService) SubmitProof(ctx context.Context, actor domain.Actor, id string, file domain.File) (*models.Appointment, error) {
	if file.Body == nil || file.Size == 0 {
		return nil, domain.ErrProofRequired
	}
	appt, err := s.appts.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != appt.ContractorID {
		return nil, domain.ErrNotOwner
	}
	if _, err := lifecycle.Transition(appt, lifecycle.EventSubmitProof); err != nil {
		return nil, err
	}

	url, err := s.uploader.Upload(ctx, proofFolder, file)
	if err != nil {
		s.logger.Error().Err(err).Str("appointment_id", id).Msg("proof upload failed")
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	if err := s.transition(ctx, actor, appt, lifecycle.EventSubmitProof, url); err != nil {
		return nil, err
	}
	return appt, nil
}

// DecideCompletion approves (completed) or rejects (needsRevision) a submitted proof.
func (s *AppointmentService) DecideCompletion(ctx context.Context, actor domain.Actor, id string, approved bool) (*models.Appointment, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrAdminOnly
	}
	appt, err := s.appts.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	ev := lifecycle.EventReject
	if approved {
		ev = lifecycle.EventApprove
	}
	if err := s.transition(ctx, actor, appt, ev, ""); err != nil {
		return nil, err
	}
	return appt, nil
}

// Cancel may be called by the booking client, the contractor or an admin.
func (s *AppointmentService) Cancel(ctx context.Context, actor domain.Actor, id string) (*models.Appointment, error) {
	appt, err := s.appts.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canCancel(actor, appt) {
		return nil, domain.ErrNotOwner
	}
	if err := s.transition(ctx, actor, appt, lifecycle.EventCancel, ""); err != nil {
		return nil, err
	}
	return appt, nil
}

func canCancel(actor domain.Actor, appt *models.Appointment) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.Role == models.RoleContractor:
		return actor.ID == appt.ContractorID
	default:
		return actor.ID == appt.ClientID
	}
}

func (s *AppointmentService) transition(ctx context.Context, actor domain.Actor, appt *models.Appointment, ev lifecycle.Event, proofURL string) error {
	expected := appt.Version
	from, err := lifecycle.Apply(appt, ev, proofURL)
	if err != nil {
		return err
	}

	if ev == lifecycle.EventCancel {
		err = s.appts.CancelAppointmentWithVersion(ctx, appt, expected)
	} else {
		err = s.appts.UpdateAppointmentWithVersion(ctx, appt, expected)
	}
	if err != nil {
		return err
	}

	metrics.IncTransition(string(from), string(appt.Status))
	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("event", string(ev)).
		Str("from", string(from)).
		Str("to", string(appt.Status)).
		Str("actor", actor.ID).
		Msg("appointment transition")

	s.publish(ctx, transitionEvent(ev, appt.Status), appt, nil, actor)
	return nil
}

func transitionEvent(ev lifecycle.Event, to models.AppointmentStatus) string {
	switch ev {
	case lifecycle.EventSubmitProof:
		return events.EventAppointmentProofSubmitted
	case lifecycle.EventCancel:
		return events.EventAppointmentCancelled
	}
	if to == models.StatusCompleted {
		return events.EventAppointmentApproved
	}
	return events.EventAppointmentNeedsRevision
}

// MarkRated flips hasBeenRated without recording stars.
func (s *AppointmentService) MarkRated(ctx context.Context, actor domain.Actor, id string) (*models.Appointment, error) {
	appt, err := s.appts.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.ID != appt.ClientID {
		return nil, domain.ErrNotOwner
	}
	expected := appt.Version
	if err := lifecycle.MarkRated(appt); err != nil {
		return nil, err
	}
	if err := s.appts.UpdateAppointmentWithVersion(ctx, appt, expected); err != nil {
		return nil, err
	}
	return appt, nil
}

// Status looks an appointment up by all three ids.
func (s *AppointmentService) Status(ctx context.Context, id, clientID, contractorID string) (*models.Appointment, error) {
	if id == "" || clientID == "" || contractorID == "" {
		return nil, domain.Validation("appointmentId, userId and contractorId are required")
	}
	return s.appts.FindAppointment(ctx, id, clientID, contractorID)
}

func (s *AppointmentService) ClientAppointments(ctx context.Context, clientID string) ([]*models.Appointment, error) {
	return s.appts.ListAppointments(ctx, models.AppointmentFilter{ClientID: clientID})
}

func (s *AppointmentService) ContractorAppointments(ctx context.Context, contractorID string) ([]*models.Appointment, error) {
	return s.appts.ListAppointments(ctx, models.AppointmentFilter{ContractorID: contractorID})
}

func (s *AppointmentService) List(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.Validation(fmt.Sprintf("unknown status %q", filter.Status))
	}
	return s.appts.ListAppointments(ctx, filter)
}

// PendingApprovals lists pending appointments that already carry a proof.
func (s *AppointmentService) PendingApprovals(ctx context.Context) ([]*models.Appointment, error) {
	return s.appts.ListAppointments(ctx, pendingFilter(""))
}

func pendingFilter(contractorID string) models.AppointmentFilter {
	return models.AppointmentFilter{
		ContractorID: contractorID,
		Status:       models.StatusPending,
		NeedsProof:   true,
	}
}

func (s *AppointmentService) ContractorDashboard(ctx context.Context, contractorID string) (*models.Dashboard, error) {
	return s.dashboard(ctx, contractorID)
}

func (s *AppointmentService) AdminDashboard(ctx context.Context) (*models.Dashboard, error) {
	d, err := s.dashboard(ctx, "")
	if err != nil {
		return nil, err
	}
	if d.Contractors, err = s.contractors.CountContractors(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *AppointmentService) dashboard(ctx context.Context, contractorID string) (*models.Dashboard, error) {
	stats, err := s.appts.AppointmentStats(ctx, contractorID)
	if err != nil {
		return nil, err
	}
	pending, err := s.appts.CountAppointments(ctx, pendingFilter(contractorID))
	if err != nil {
		return nil, err
	}
	latest, err := s.appts.ListAppointments(ctx, models.AppointmentFilter{ContractorID: contractorID, Limit: latestLimit})
	if err != nil {
		return nil, err
	}
	return &models.Dashboard{
		AppointmentStats: *stats,
		PendingApprovals: pending,
		Latest:           latest,
	}, nil
}

// ExportAppointments writes an xlsx report of the filtered appointments to w.
func (s *AppointmentService) ExportAppointments(ctx context.Context, w io.Writer, filter models.AppointmentFilter) error {
	appts, err := s.List(ctx, filter)
	if err != nil {
		return err
	}
	contractors, err := s.contractors.ListContractors(ctx)
	if err != nil {
		return err
	}
	names := make(map[string]string, len(contractors))
	for _, c := range contractors {
		names[c.ID] = c.Name
	}
	return export.WriteAppointments(w, appts, names)
}

// publish attaches contractor contact details when they are at hand. Lookup
// failures only cost the contractor e-mail.
func (s *AppointmentService) publish(ctx context.Context, eventType string, appt *models.Appointment, contractor *models.Contractor, actor domain.Actor) {
	if s.eventBus == nil {
		return
	}
	if contractor == nil {
		c, err := s.contractors.GetContractor(ctx, appt.ContractorID)
		if err != nil {
			s.logger.Warn().Err(err).Str("contractor_id", appt.ContractorID).Msg("event: contractor lookup failed")
		} else {
			contractor = c
		}
	}

	payload := events.NewAppointmentPayload(appt)
	if contractor != nil {
		payload.ContractorName = contractor.Name
		payload.ContractorEmail = contractor.Email
	}
	payload.ChangedBy = actor.ID
	payload.ChangedByRole = actor.Role

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("appointment_id", appt.ID).Msg("publish event error")
	}
}
