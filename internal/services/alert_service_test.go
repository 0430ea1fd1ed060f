package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/360-proctor/proctoring-service/internal/models"
)

func newAlertServiceForTest(repo *MockRepository) AlertService {
	return NewAlertService(repo, testLogger(), testValidator())
}

func TestAlertService_Review(t *testing.T) {
	t.Run("pending alert is reviewed", func(t *testing.T) {
		repo := newMockRepository()
		repo.alertRepo.On("GetByID", mock.Anything, uint(10)).Return(&models.Alert{
			ID:           10,
			ReviewStatus: models.AlertReviewPending,
		}, nil)
		repo.alertRepo.On("UpdateReview", mock.Anything, uint(10), models.AlertReviewReviewed, "proctor-1", mock.Anything).Return(nil)

		service := newAlertServiceForTest(repo)
		err := service.Review(context.Background(), 10, &ReviewAlertRequest{
			Status: models.AlertReviewReviewed,
			Notes:  stringPtr("Confirmed phone usage"),
		}, "proctor-1")

		assert.NoError(t, err)
		repo.alertRepo.AssertExpectations(t)
	})

	t.Run("already reviewed alert is rejected", func(t *testing.T) {
		repo := newMockRepository()
		repo.alertRepo.On("GetByID", mock.Anything, uint(10)).Return(&models.Alert{
			ID:           10,
			ReviewStatus: models.AlertReviewDismissed,
		}, nil)

		service := newAlertServiceForTest(repo)
		err := service.Review(context.Background(), 10, &ReviewAlertRequest{
			Status: models.AlertReviewReviewed,
		}, "proctor-1")

		assert.ErrorIs(t, err, ErrAlertAlreadyReviewed)
		repo.alertRepo.AssertNotCalled(t, "UpdateReview")
	})

	t.Run("unknown alert", func(t *testing.T) {
		repo := newMockRepository()
		repo.alertRepo.On("GetByID", mock.Anything, uint(99)).Return(nil, gorm.ErrRecordNotFound)

		service := newAlertServiceForTest(repo)
		err := service.Review(context.Background(), 99, &ReviewAlertRequest{
			Status: models.AlertReviewDismissed,
		}, "proctor-1")

		assert.ErrorIs(t, err, ErrAlertNotFound)
	})

	t.Run("invalid status fails validation", func(t *testing.T) {
		repo := newMockRepository()

		service := newAlertServiceForTest(repo)
		err := service.Review(context.Background(), 10, &ReviewAlertRequest{
			Status: models.AlertReviewStatus("escalated"),
		}, "proctor-1")

		assert.Error(t, err)
		assert.True(t, IsValidationError(err))
		repo.alertRepo.AssertNotCalled(t, "GetByID")
	})
}

func TestAlertService_SessionStats(t *testing.T) {
	repo := newMockRepository()
	repo.alertRepo.On("GetBySession", mock.Anything, "session-1").Return([]*models.Alert{
		{Type: models.ViolationPhoneDetected, Severity: models.SeverityCritical, ReviewStatus: models.AlertReviewPending},
		{Type: models.ViolationTabSwitch, Severity: models.SeverityMedium, ReviewStatus: models.AlertReviewPending},
		{Type: models.ViolationTabSwitch, Severity: models.SeverityMedium, ReviewStatus: models.AlertReviewReviewed},
	}, nil)

	service := newAlertServiceForTest(repo)
	stats, err := service.SessionStats(context.Background(), "session-1")

	assert.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, 2, stats.ByType[models.ViolationTabSwitch])
	assert.Equal(t, 1, stats.BySeverity[models.SeverityCritical])
	assert.Equal(t, 2, stats.Pending)
}
