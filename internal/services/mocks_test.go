package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/360-proctor/proctoring-service/internal/models"
	"github.com/360-proctor/proctoring-service/internal/repositories"
	"github.com/360-proctor/proctoring-service/internal/utils"
)

// MockExamRepository is a mock implementation of repositories.ExamRepository
type MockExamRepository struct {
	mock.Mock
}

func (m *MockExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	args := m.Called(ctx, exam)
	return args.Error(0)
}

func (m *MockExamRepository) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Exam), args.Error(1)
}

func (m *MockExamRepository) GetByIDWithSettings(ctx context.Context, id uint) (*models.Exam, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Exam), args.Error(1)
}

func (m *MockExamRepository) Update(ctx context.Context, exam *models.Exam) error {
	args := m.Called(ctx, exam)
	return args.Error(0)
}

func (m *MockExamRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockExamRepository) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Exam), args.Get(1).(int64), args.Error(2)
}

func (m *MockExamRepository) UpdateStatus(ctx context.Context, id uint, status models.ExamStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockExamRepository) IsOwner(ctx context.Context, examID uint, userID string) (bool, error) {
	args := m.Called(ctx, examID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockExamRepository) GetSettings(ctx context.Context, examID uint) (*models.ExamProctoringSettings, error) {
	args := m.Called(ctx, examID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExamProctoringSettings), args.Error(1)
}

func (m *MockExamRepository) UpdateSettings(ctx context.Context, settings *models.ExamProctoringSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// MockSessionRepository is a mock implementation of repositories.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.ExamSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id string) (*models.ExamSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExamSession), args.Error(1)
}

func (m *MockSessionRepository) GetByIDWithAlerts(ctx context.Context, id string) (*models.ExamSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExamSession), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *models.ExamSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.ExamSession, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.ExamSession), args.Get(1).(int64), args.Error(2)
}

func (m *MockSessionRepository) GetActiveByUser(ctx context.Context, userID string) (*models.ExamSession, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ExamSession), args.Error(1)
}

func (m *MockSessionRepository) CountByExam(ctx context.Context, examID uint) (int64, error) {
	args := m.Called(ctx, examID)
	return args.Get(0).(int64), args.Error(1)
}

// MockAlertRepository is a mock implementation of repositories.AlertRepository
type MockAlertRepository struct {
	mock.Mock
}

func (m *MockAlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockAlertRepository) GetByID(ctx context.Context, id uint) (*models.Alert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Alert), args.Error(1)
}

func (m *MockAlertRepository) List(ctx context.Context, filters repositories.AlertFilters) ([]*models.Alert, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Alert), args.Get(1).(int64), args.Error(2)
}

func (m *MockAlertRepository) GetBySession(ctx context.Context, sessionID string) ([]*models.Alert, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Alert), args.Error(1)
}

func (m *MockAlertRepository) UpdateReview(ctx context.Context, id uint, status models.AlertReviewStatus, reviewerID string, notes *string) error {
	args := m.Called(ctx, id, status, reviewerID, notes)
	return args.Error(0)
}

func (m *MockAlertRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(int64), args.Error(1)
}

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByRole(ctx context.Context, role models.UserRole, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, role, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id string, loginTime time.Time) error {
	args := m.Called(ctx, id, loginTime)
	return args.Error(0)
}

// MockNotificationRepository is a mock implementation of repositories.NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotificationRepository) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	args := m.Called(ctx, notifications)
	return args.Error(0)
}

func (m *MockNotificationRepository) GetByID(ctx context.Context, id uint) (*models.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) List(ctx context.Context, filters repositories.NotificationFilters) ([]*models.Notification, int64, error) {
	args := m.Called(ctx, filters)
	return args.Get(0).([]*models.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id uint, readAt time.Time) error {
	args := m.Called(ctx, id, readAt)
	return args.Error(0)
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

// MockRepository aggregates the per-entity mocks behind repositories.Repository
type MockRepository struct {
	examRepo         *MockExamRepository
	sessionRepo      *MockSessionRepository
	alertRepo        *MockAlertRepository
	userRepo         *MockUserRepository
	notificationRepo *MockNotificationRepository
}

func newMockRepository() *MockRepository {
	return &MockRepository{
		examRepo:         &MockExamRepository{},
		sessionRepo:      &MockSessionRepository{},
		alertRepo:        &MockAlertRepository{},
		userRepo:         &MockUserRepository{},
		notificationRepo: &MockNotificationRepository{},
	}
}

func (m *MockRepository) Exam() repositories.ExamRepository                 { return m.examRepo }
func (m *MockRepository) Session() repositories.SessionRepository           { return m.sessionRepo }
func (m *MockRepository) Alert() repositories.AlertRepository               { return m.alertRepo }
func (m *MockRepository) User() repositories.UserRepository                 { return m.userRepo }
func (m *MockRepository) Notification() repositories.NotificationRepository { return m.notificationRepo }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testValidator() *utils.Validator {
	return utils.NewValidator()
}

func stringPtr(s string) *string { return &s }
