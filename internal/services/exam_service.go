package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/360-proctor/proctoring-service/internal/cache"
	"github.com/360-proctor/proctoring-service/internal/models"
	"github.com/360-proctor/proctoring-service/internal/repositories"
	"github.com/360-proctor/proctoring-service/internal/utils"
)

// ExamService owns exam CRUD, lifecycle transitions and proctoring settings.
type ExamService interface {
	Create(ctx context.Context, req *CreateExamRequest, creatorID string) (*models.Exam, error)
	GetByID(ctx context.Context, id uint) (*models.Exam, error)
	Update(ctx context.Context, id uint, req *UpdateExamRequest, userID string) (*models.Exam, error)
	Delete(ctx context.Context, id uint, userID string) error
	List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error)

	// Lifecycle
	Publish(ctx context.Context, id uint, userID string) error
	Archive(ctx context.Context, id uint, userID string) error

	// Proctoring settings
	GetSettings(ctx context.Context, examID uint) (*models.ExamProctoringSettings, error)
	UpdateSettings(ctx context.Context, examID uint, req *UpdateSettingsRequest, userID string) (*models.ExamProctoringSettings, error)
}

type examService struct {
	repo      repositories.Repository
	cache     cache.CacheService
	logger    *slog.Logger
	validator *utils.Validator
}

func NewExamService(repo repositories.Repository, cacheService cache.CacheService, logger *slog.Logger, validator *utils.Validator) ExamService {
	return &examService{
		repo:      repo,
		cache:     cacheService,
		logger:    logger,
		validator: validator,
	}
}

type CreateExamRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=1000"`
	Duration    int        `json:"duration" validate:"required,min=5,max=300"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

type UpdateExamRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=1000"`
	Duration    *int       `json:"duration" validate:"omitempty,min=5,max=300"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

type UpdateSettingsRequest struct {
	EnableFaceDetection   *bool `json:"enable_face_detection"`
	EnableEyeTracking     *bool `json:"enable_eye_tracking"`
	EnableAudioDetection  *bool `json:"enable_audio_detection"`
	EnableObjectDetection *bool `json:"enable_object_detection"`
	PreventTabSwitching   *bool `json:"prevent_tab_switching"`
	PreventCopyPaste      *bool `json:"prevent_copy_paste"`
	PreventRightClick     *bool `json:"prevent_right_click"`
	RequireFullScreen     *bool `json:"require_full_screen"`
	CaptureScreenshots    *bool `json:"capture_screenshots"`
}

// ===== CORE CRUD OPERATIONS =====

func (s *examService) Create(ctx context.Context, req *CreateExamRequest, creatorID string) (*models.Exam, error) {
	s.logger.Info("Creating exam", "creator_id", creatorID, "title", req.Title)

	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	if err := s.requireRole(ctx, creatorID, "exam", "create", models.RoleTeacher, models.RoleAdmin); err != nil {
		return nil, err
	}

	exam := &models.Exam{
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		CreatedBy:   creatorID,
	}

	if err := s.repo.Exam().Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to create exam: %w", err)
	}

	return exam, nil
}

func (s *examService) GetByID(ctx context.Context, id uint) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByIDWithSettings(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	sessionCount, err := s.repo.Session().CountByExam(ctx, id)
	if err == nil {
		exam.SessionCount = int(sessionCount)
	}

	return exam, nil
}

func (s *examService) Update(ctx context.Context, id uint, req *UpdateExamRequest, userID string) (*models.Exam, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	exam, err := s.ownedExam(ctx, id, userID, "update")
	if err != nil {
		return nil, err
	}

	if exam.Status != models.ExamDraft {
		return nil, ErrExamNotEditable
	}

	if req.Title != nil {
		exam.Title = *req.Title
	}
	if req.Description != nil {
		exam.Description = req.Description
	}
	if req.Duration != nil {
		exam.Duration = *req.Duration
	}
	if req.StartTime != nil {
		exam.StartTime = req.StartTime
	}
	if req.EndTime != nil {
		exam.EndTime = req.EndTime
	}

	if err := s.repo.Exam().Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("failed to update exam: %w", err)
	}

	s.invalidateExamCache(ctx, id)
	return exam, nil
}

func (s *examService) Delete(ctx context.Context, id uint, userID string) error {
	if _, err := s.ownedExam(ctx, id, userID, "delete"); err != nil {
		return err
	}

	sessionCount, err := s.repo.Session().CountByExam(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count exam sessions: %w", err)
	}
	if sessionCount > 0 {
		return ErrExamNotDeletable
	}

	if err := s.repo.Exam().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete exam: %w", err)
	}

	s.invalidateExamCache(ctx, id)
	return nil
}

func (s *examService) List(ctx context.Context, filters repositories.ExamFilters) ([]*models.Exam, int64, error) {
	exams, total, err := s.repo.Exam().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list exams: %w", err)
	}
	return exams, total, nil
}

// ===== LIFECYCLE =====

func (s *examService) Publish(ctx context.Context, id uint, userID string) error {
	exam, err := s.ownedExam(ctx, id, userID, "publish")
	if err != nil {
		return err
	}

	if exam.Status != models.ExamDraft {
		return ErrExamInvalidStatus
	}

	if err := s.repo.Exam().UpdateStatus(ctx, id, models.ExamActive); err != nil {
		return fmt.Errorf("failed to publish exam: %w", err)
	}

	s.logger.Info("Exam published", "exam_id", id, "published_by", userID)
	s.invalidateExamCache(ctx, id)
	return nil
}

func (s *examService) Archive(ctx context.Context, id uint, userID string) error {
	exam, err := s.ownedExam(ctx, id, userID, "archive")
	if err != nil {
		return err
	}

	if exam.Status == models.ExamArchived {
		return ErrExamInvalidStatus
	}

	if err := s.repo.Exam().UpdateStatus(ctx, id, models.ExamArchived); err != nil {
		return fmt.Errorf("failed to archive exam: %w", err)
	}

	s.invalidateExamCache(ctx, id)
	return nil
}

// ===== PROCTORING SETTINGS =====

func (s *examService) GetSettings(ctx context.Context, examID uint) (*models.ExamProctoringSettings, error) {
	settings, err := s.repo.Exam().GetSettings(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam settings: %w", err)
	}
	return settings, nil
}

func (s *examService) UpdateSettings(ctx context.Context, examID uint, req *UpdateSettingsRequest, userID string) (*models.ExamProctoringSettings, error) {
	if _, err := s.ownedExam(ctx, examID, userID, "update settings of"); err != nil {
		return nil, err
	}

	settings, err := s.repo.Exam().GetSettings(ctx, examID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam settings: %w", err)
	}

	applyBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	applyBool(&settings.EnableFaceDetection, req.EnableFaceDetection)
	applyBool(&settings.EnableEyeTracking, req.EnableEyeTracking)
	applyBool(&settings.EnableAudioDetection, req.EnableAudioDetection)
	applyBool(&settings.EnableObjectDetection, req.EnableObjectDetection)
	applyBool(&settings.PreventTabSwitching, req.PreventTabSwitching)
	applyBool(&settings.PreventCopyPaste, req.PreventCopyPaste)
	applyBool(&settings.PreventRightClick, req.PreventRightClick)
	applyBool(&settings.RequireFullScreen, req.RequireFullScreen)
	applyBool(&settings.CaptureScreenshots, req.CaptureScreenshots)

	if err := s.repo.Exam().UpdateSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to update exam settings: %w", err)
	}

	s.invalidateExamCache(ctx, examID)
	return settings, nil
}

// ===== HELPERS =====

func (s *examService) ownedExam(ctx context.Context, id uint, userID, action string) (*models.Exam, error) {
	exam, err := s.repo.Exam().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("failed to get exam: %w", err)
	}

	if exam.CreatedBy != userID {
		user, err := s.repo.User().GetByID(ctx, userID)
		if err != nil || user.Role != models.RoleAdmin {
			return nil, NewPermissionError(userID, "exam", action, "not the exam owner")
		}
	}

	return exam, nil
}

func (s *examService) requireRole(ctx context.Context, userID, resource, action string, roles ...models.UserRole) error {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	for _, role := range roles {
		if user.Role == role {
			return nil
		}
	}
	return NewPermissionError(userID, resource, action, fmt.Sprintf("role %s not allowed", user.Role))
}

func (s *examService) invalidateExamCache(ctx context.Context, examID uint) {
	if s.cache == nil {
		return
	}
	key := fmt.Sprintf("proctoring:exam:%d", examID)
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to invalidate exam cache", "exam_id", examID, "error", err)
	}
}
