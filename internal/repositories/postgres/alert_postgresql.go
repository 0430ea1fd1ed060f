package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/360-proctor/proctoring-service/internal/models"
	"github.com/360-proctor/proctoring-service/internal/repositories"
)

type AlertPostgreSQL struct {
	db *gorm.DB
}

func NewAlertPostgreSQL(db *gorm.DB) repositories.AlertRepository {
	return &AlertPostgreSQL{db: db}
}

func (a *AlertPostgreSQL) Create(ctx context.Context, alert *models.Alert) error {
	if err := a.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (a *AlertPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Alert, error) {
	var alert models.Alert
	err := a.db.WithContext(ctx).
		Preload("Session").
		First(&alert, id).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (a *AlertPostgreSQL) List(ctx context.Context, filters repositories.AlertFilters) ([]*models.Alert, int64, error) {
	query := a.db.WithContext(ctx).Model(&models.Alert{})
	query = a.applyFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	query = query.Order("occurred_at DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var alerts []*models.Alert
	if err := query.Find(&alerts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}

	return alerts, total, nil
}

func (a *AlertPostgreSQL) GetBySession(ctx context.Context, sessionID string) ([]*models.Alert, error) {
	var alerts []*models.Alert
	err := a.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("occurred_at ASC").
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get alerts for session: %w", err)
	}
	return alerts, nil
}

func (a *AlertPostgreSQL) UpdateReview(ctx context.Context, id uint, status models.AlertReviewStatus, reviewerID string, notes *string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"review_status": status,
		"reviewed_by":   reviewerID,
		"reviewed_at":   now,
	}
	if notes != nil {
		updates["review_notes"] = *notes
	}

	result := a.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update alert review: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (a *AlertPostgreSQL) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count alerts for session: %w", err)
	}
	return count, nil
}

func (a *AlertPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AlertFilters) *gorm.DB {
	if filters.SessionID != nil {
		query = query.Where("session_id = ?", *filters.SessionID)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Type != nil {
		query = query.Where("type = ?", *filters.Type)
	}
	if filters.Severity != nil {
		query = query.Where("severity = ?", *filters.Severity)
	}
	if filters.ReviewStatus != nil {
		query = query.Where("review_status = ?", *filters.ReviewStatus)
	}
	if filters.DateFrom != nil {
		query = query.Where("occurred_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("occurred_at <= ?", *filters.DateTo)
	}
	return query
}
