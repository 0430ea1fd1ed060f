package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/360-proctor/proctoring-service/internal/models"
	"github.com/360-proctor/proctoring-service/internal/repositories"
)

type ExamPostgreSQL struct {
	db *gorm.DB
}

func NewExamPostgreSQL(db *gorm.DB) repositories.ExamRepository {
	return &ExamPostgreSQL{db: db}
}

// Create creates an exam together with its default proctoring settings.
func (e *ExamPostgreSQL) Create(ctx context.Context, exam *models.Exam) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exam.Status = models.ExamDraft
		if err := tx.Create(exam).Error; err != nil {
			return fmt.Errorf("failed to create exam: %w", err)
		}

		settings := &models.ExamProctoringSettings{
			ExamID:                exam.ID,
			EnableFaceDetection:   true,
			EnableEyeTracking:     true,
			EnableAudioDetection:  true,
			EnableObjectDetection: true,
			PreventTabSwitching:   true,
			PreventCopyPaste:      true,
			CaptureScreenshots:    true,
		}
		if err := tx.Create(settings).Error; err != nil {
			return fmt.Errorf("failed to create exam settings: %w", err)
		}

		return nil
	})
}

func (e *ExamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	err := e.db.WithContext(ctx).
		Preload("Creator").
		First(&exam, id).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) GetByIDWithSettings(ctx context.Context, id uint) (*models.Exam, error) {
	var exam models.Exam
	err := e.db.WithContext(ctx).
		Preload("Creator").
		Preload("Settings").
		First(&exam, id).Error
	if err != nil {
		return nil, err
	}
	return &exam, nil
}

func (e *ExamPostgreSQL) Update(ctx context.Context, exam *models.Exam) error {
	if err := e.db.WithContext(ctx).Save(exam).Error; err != nil {
		return fmt.Errorf("failed to update exam: %w", err)
	}
	return nil
}

func (e *ExamPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := e.db.WithContext(ctx).Delete(&models.Exam{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete exam: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (e *ExamPostgreSQL) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	query := e.db.WithContext(ctx).Model(&models.Exam{})
	query = e.applyFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count exams: %w", err)
	}

	query = e.applyPaginationAndSort(query, filters)

	var exams []*models.Exam
	if err := query.Preload("Creator").Find(&exams).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list exams: %w", err)
	}

	return exams, total, nil
}

func (e *ExamPostgreSQL) UpdateStatus(ctx context.Context, id uint, status models.ExamStatus) error {
	result := e.db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update exam status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (e *ExamPostgreSQL) IsOwner(ctx context.Context, examID uint, userID string) (bool, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Model(&models.Exam{}).
		Where("id = ? AND created_by = ?", examID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check exam ownership: %w", err)
	}
	return count > 0, nil
}

func (e *ExamPostgreSQL) GetSettings(ctx context.Context, examID uint) (*models.ExamProctoringSettings, error) {
	var settings models.ExamProctoringSettings
	err := e.db.WithContext(ctx).
		Where("exam_id = ?", examID).
		First(&settings).Error
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (e *ExamPostgreSQL) UpdateSettings(ctx context.Context, settings *models.ExamProctoringSettings) error {
	if err := e.db.WithContext(ctx).Save(settings).Error; err != nil {
		return fmt.Errorf("failed to update exam settings: %w", err)
	}
	return nil
}

func (e *ExamPostgreSQL) applyFilters(query *gorm.DB, filters repositories.ExamFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	return query
}

func (e *ExamPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.ExamFilters) *gorm.DB {
	sortBy := filters.SortBy
	switch sortBy {
	case "title", "start_time", "created_at":
	default:
		sortBy = "created_at"
	}
	order := "DESC"
	if filters.SortOrder == "asc" {
		order = "ASC"
	}
	query = query.Order(fmt.Sprintf("%s %s", sortBy, order))

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
