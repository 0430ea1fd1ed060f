package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/360-proctor/proctoring-service/internal/models"
	"github.com/360-proctor/proctoring-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

func (s *SessionPostgreSQL) Create(ctx context.Context, session *models.ExamSession) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *SessionPostgreSQL) GetByID(ctx context.Context, id string) (*models.ExamSession, error) {
	var session models.ExamSession
	err := s.db.WithContext(ctx).
		Preload("Exam").
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetByIDWithAlerts(ctx context.Context, id string) (*models.ExamSession, error) {
	var session models.ExamSession
	err := s.db.WithContext(ctx).
		Preload("Exam").
		Preload("User").
		Preload("Alerts", func(db *gorm.DB) *gorm.DB {
			return db.Order("occurred_at ASC")
		}).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) Update(ctx context.Context, session *models.ExamSession) error {
	if err := s.db.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (s *SessionPostgreSQL) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.ExamSession, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.ExamSession{})
	query = s.applyFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	query = query.Order("created_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var sessions []*models.ExamSession
	if err := query.Preload("Exam").Find(&sessions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	return sessions, total, nil
}

// GetActiveByUser returns the user's currently active session, if any.
func (s *SessionPostgreSQL) GetActiveByUser(ctx context.Context, userID string) (*models.ExamSession, error) {
	var session models.ExamSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.SessionActive).
		Order("started_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) CountByExam(ctx context.Context, examID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.ExamSession{}).
		Where("exam_id = ?", examID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions for exam: %w", err)
	}
	return count, nil
}

func (s *SessionPostgreSQL) applyFilters(query *gorm.DB, filters repositories.SessionFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.ExamID != nil {
		query = query.Where("exam_id = ?", *filters.ExamID)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}
