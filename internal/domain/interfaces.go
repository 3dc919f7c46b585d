package domain

import (
	"context"
	"io"
	"time"

	"localhire/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gopkg.in/gomail.v2"
)

type AppointmentRepository interface {
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	FindAppointment(ctx context.Context, id, clientID, contractorID string) (*models.Appointment, error)
	CreateAppointmentWithSlot(ctx context.Context, appt *models.Appointment) error
	UpdateAppointmentWithVersion(ctx context.Context, appt *models.Appointment, expectedVersion int64) error
	CancelAppointmentWithVersion(ctx context.Context, appt *models.Appointment, expectedVersion int64) error
	ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]*models.Appointment, error)
	CountAppointments(ctx context.Context, filter models.AppointmentFilter) (int, error)
	AppointmentStats(ctx context.Context, contractorID string) (*models.AppointmentStats, error)
}

type ContractorRepository interface {
	GetContractor(ctx context.Context, id string) (*models.Contractor, error)
	ListContractors(ctx context.Context) ([]*models.Contractor, error)
	CreateContractor(ctx context.Context, c *models.Contractor) error
	UpsertContractor(ctx context.Context, c *models.Contractor) error
	CountContractors(ctx context.Context) (int, error)
	SetContractorAvailability(ctx context.Context, id string, available bool) error
	GetBookedSlots(ctx context.Context, contractorID string) (models.BookedSlots, error)
}

type RatingStore interface {
	GetRating(ctx context.Context, contractorID string) (*models.Rating, error)
	SetRating(ctx context.Context, r *models.Rating) error
	IncrementRating(ctx context.Context, contractorID string, stars int) (*models.Rating, error)
}

// File is an uploaded blob as received from a multipart form.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

type MediaUploader interface {
	Upload(ctx context.Context, folder string, f File) (string, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID    string
	Role  string
	Name  string
	Email string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }
