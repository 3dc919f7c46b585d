package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"localhire/internal/domain"
	"localhire/internal/models"
	"localhire/internal/slots"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newContractorFixture() (*ContractorService, *mockContractors, *mockRatings, *mockUploader) {
	repo := new(mockContractors)
	ratings := new(mockRatings)
	uploader := new(mockUploader)
	svc := NewContractorService(repo, ratings, uploader, BookingPolicy{Window: slots.DefaultWindow(), Location: time.UTC}, testLogger())
	svc.SetClock(func() time.Time { return fixedNow })
	return svc, repo, ratings, uploader
}

func TestContractorProfile(t *testing.T) {
	svc, repo, ratings, _ := newContractorFixture()
	repo.On("GetContractor", mock.Anything, "c1").Return(contractorFixture(), nil)
	ratings.On("GetRating", mock.Anything, "c1").Return(&models.Rating{ContractorID: "c1", TotalRating: 14, TotalReviews: 3}, nil).Once()

	p, err := svc.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Jane", p.Name)
	assert.Equal(t, 4.7, p.Rating.AverageRating)

	ratings.On("GetRating", mock.Anything, "c1").Return(nil, errors.New("redis down")).Once()
	p, err = svc.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Zero(t, p.Rating.AverageRating)

	repo.On("GetContractor", mock.Anything, "missing").Return(nil, domain.ErrContractorNotFound)
	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContractorSlots(t *testing.T) {
	svc, repo, _, _ := newContractorFixture()
	c := contractorFixture()
	c.SlotsBooked.Add("5_3_2024", "10:00 AM")
	repo.On("GetContractor", mock.Anything, "c1").Return(c, nil)

	days, err := svc.Slots(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, days, models.DefaultBookingDays)
	assert.Equal(t, "5_3_2024", days[0].DateKey)
	assert.Equal(t, "10:30 AM", days[0].Slots[0].TimeLabel)
	assert.Equal(t, "10:00 AM", days[1].Slots[0].TimeLabel)
}

func TestAddContractor(t *testing.T) {
	svc, repo, _, uploader := newContractorFixture()
	uploader.On("Upload", mock.Anything, "contractors", mock.Anything).Return("https://cdn.test/contractors/j.png", nil)
	repo.On("CreateContractor", mock.Anything, mock.AnythingOfType("*models.Contractor")).Return(nil)

	c := &models.Contractor{Name: " Jane ", Email: "Jane@Mail.Test", Fees: 40}
	img := &domain.File{Name: "j.png", Size: 3, Body: strings.NewReader("png")}
	require.NoError(t, svc.Add(context.Background(), c, img))
	assert.Equal(t, "Jane", c.Name)
	assert.Equal(t, "jane@mail.test", c.Email)
	assert.Equal(t, "https://cdn.test/contractors/j.png", c.Image)
	assert.True(t, c.Available)

	assert.ErrorIs(t, svc.Add(context.Background(), &models.Contractor{Email: "x@y"}, nil), domain.ErrValidation)
	assert.ErrorIs(t, svc.Add(context.Background(), &models.Contractor{Name: "X", Email: "nope"}, nil), domain.ErrValidation)
	assert.ErrorIs(t, svc.Add(context.Background(), &models.Contractor{Name: "X", Email: "x@y", Fees: -1}, nil), domain.ErrValidation)
	repo.AssertNumberOfCalls(t, "CreateContractor", 1)
}

func TestToggleAvailability(t *testing.T) {
	svc, repo, _, _ := newContractorFixture()
	repo.On("GetContractor", mock.Anything, "c1").Return(contractorFixture(), nil)
	repo.On("SetContractorAvailability", mock.Anything, "c1", false).Return(nil)

	available, err := svc.ToggleAvailability(context.Background(), "c1")
	require.NoError(t, err)
	assert.False(t, available)
	repo.AssertExpectations(t)
}

func TestSeedContractors(t *testing.T) {
	svc, repo, _, _ := newContractorFixture()
	repo.On("UpsertContractor", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.Seed(context.Background(), []models.Contractor{{ID: "c1"}, {ID: "c2"}}))
	repo.AssertNumberOfCalls(t, "UpsertContractor", 2)
}
