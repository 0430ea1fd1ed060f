package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/360-proctor/proctoring-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ExamFilters struct {
	Status    *models.ExamStatus `json:"status"`
	CreatedBy *string            `json:"created_by"`
	DateFrom  *time.Time         `json:"date_from"`
	DateTo    *time.Time         `json:"date_to"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
	SortBy    string             `json:"sort_by"`    // "created_at", "title", "start_time"
	SortOrder string             `json:"sort_order"` // "asc", "desc"
}

type SessionFilters struct {
	Status   *models.SessionStatus `json:"status"`
	ExamID   *uint                 `json:"exam_id"`
	UserID   *string               `json:"user_id"`
	DateFrom *time.Time            `json:"date_from"`
	DateTo   *time.Time            `json:"date_to"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
}

type AlertFilters struct {
	SessionID    *string                   `json:"session_id"`
	UserID       *string                   `json:"user_id"`
	Type         *models.ViolationType     `json:"type"`
	Severity     *models.Severity          `json:"severity"`
	ReviewStatus *models.AlertReviewStatus `json:"review_status"`
	DateFrom     *time.Time                `json:"date_from"`
	DateTo       *time.Time                `json:"date_to"`
	Limit        int                       `json:"limit"`
	Offset       int                       `json:"offset"`
}

type NotificationFilters struct {
	RecipientID *string                  `json:"recipient_id"`
	Type        *models.NotificationType `json:"type"`
	Unread      bool                     `json:"unread"`
	Limit       int                      `json:"limit"`
	Offset      int                      `json:"offset"`
}

// ===== REPOSITORY INTERFACES =====

type ExamRepository interface {
	Create(ctx context.Context, exam *models.Exam) error
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	GetByIDWithSettings(ctx context.Context, id uint) (*models.Exam, error)
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id uint) error // Soft delete
	List(ctx context.Context, filters ExamFilters) ([]*models.Exam, int64, error)
	UpdateStatus(ctx context.Context, id uint, status models.ExamStatus) error
	IsOwner(ctx context.Context, examID uint, userID string) (bool, error)

	// Settings management
	GetSettings(ctx context.Context, examID uint) (*models.ExamProctoringSettings, error)
	UpdateSettings(ctx context.Context, settings *models.ExamProctoringSettings) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.ExamSession) error
	GetByID(ctx context.Context, id string) (*models.ExamSession, error)
	GetByIDWithAlerts(ctx context.Context, id string) (*models.ExamSession, error)
	Update(ctx context.Context, session *models.ExamSession) error
	List(ctx context.Context, filters SessionFilters) ([]*models.ExamSession, int64, error)
	GetActiveByUser(ctx context.Context, userID string) (*models.ExamSession, error)
	CountByExam(ctx context.Context, examID uint) (int64, error)
}

type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id uint) (*models.Alert, error)
	List(ctx context.Context, filters AlertFilters) ([]*models.Alert, int64, error)
	GetBySession(ctx context.Context, sessionID string) ([]*models.Alert, error)
	UpdateReview(ctx context.Context, id uint, status models.AlertReviewStatus, reviewerID string, notes *string) error
	CountBySession(ctx context.Context, sessionID string) (int64, error)
}

type UserRepository interface {
	// The proctoring service is not the owner of user data; reads only,
	// plus login bookkeeping.
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByRole(ctx context.Context, role models.UserRole, limit, offset int) ([]*models.User, error)
	ExistsByID(ctx context.Context, id string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string, loginTime time.Time) error
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
	GetByID(ctx context.Context, id uint) (*models.Notification, error)
	List(ctx context.Context, filters NotificationFilters) ([]*models.Notification, int64, error)
	MarkRead(ctx context.Context, id uint, readAt time.Time) error
	CountUnread(ctx context.Context, recipientID string) (int64, error)
}

// Repository aggregates all repository interfaces behind one dependency.
type Repository interface {
	Exam() ExamRepository
	Session() SessionRepository
	Alert() AlertRepository
	User() UserRepository
	Notification() NotificationRepository
}

// IsNotFoundError checks whether an error from any repository represents a
// missing record.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
