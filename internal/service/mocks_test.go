package service

import (
	"context"
	"io"
	"time"

	"localhire/internal/domain"
	"localhire/internal/models"
	"localhire/internal/notify"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type mockAppointments struct {
	mock.Mock
}

func (m *mockAppointments) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *mockAppointments) FindAppointment(ctx context.Context, id, clientID, contractorID string) (*models.Appointment, error) {
	args := m.Called(ctx, id, clientID, contractorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *mockAppointments) CreateAppointmentWithSlot(ctx context.Context, appt *models.Appointment) error {
	return m.Called(ctx, appt).Error(0)
}

func (m *mockAppointments) UpdateAppointmentWithVersion(ctx context.Context, appt *models.Appointment, v int64) error {
	return m.Called(ctx, appt, v).Error(0)
}

func (m *mockAppointments) CancelAppointmentWithVersion(ctx context.Context, appt *models.Appointment, v int64) error {
	return m.Called(ctx, appt, v).Error(0)
}

func (m *mockAppointments) ListAppointments(ctx context.Context, f models.AppointmentFilter) ([]*models.Appointment, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Appointment), args.Error(1)
}

func (m *mockAppointments) CountAppointments(ctx context.Context, f models.AppointmentFilter) (int, error) {
	args := m.Called(ctx, f)
	return args.Int(0), args.Error(1)
}

func (m *mockAppointments) AppointmentStats(ctx context.Context, contractorID string) (*models.AppointmentStats, error) {
	args := m.Called(ctx, contractorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AppointmentStats), args.Error(1)
}

type mockContractors struct {
	mock.Mock
}

func (m *mockContractors) GetContractor(ctx context.Context, id string) (*models.Contractor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Contractor), args.Error(1)
}

func (m *mockContractors) ListContractors(ctx context.Context) ([]*models.Contractor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Contractor), args.Error(1)
}

func (m *mockContractors) CreateContractor(ctx context.Context, c *models.Contractor) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockContractors) UpsertContractor(ctx context.Context, c *models.Contractor) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockContractors) CountContractors(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockContractors) SetContractorAvailability(ctx context.Context, id string, available bool) error {
	return m.Called(ctx, id, available).Error(0)
}

func (m *mockContractors) GetBookedSlots(ctx context.Context, id string) (models.BookedSlots, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.BookedSlots), args.Error(1)
}

type mockRatings struct {
	mock.Mock
}

func (m *mockRatings) GetRating(ctx context.Context, id string) (*models.Rating, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rating), args.Error(1)
}

func (m *mockRatings) SetRating(ctx context.Context, r *models.Rating) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRatings) IncrementRating(ctx context.Context, id string, stars int) (*models.Rating, error) {
	args := m.Called(ctx, id, stars)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Rating), args.Error(1)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, folder string, f domain.File) (string, error) {
	args := m.Called(ctx, folder, f)
	return args.String(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(mail notify.Mail) error {
	return m.Called(mail).Error(0)
}
