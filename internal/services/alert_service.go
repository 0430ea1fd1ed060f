package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/360-proctor/proctoring-service/internal/models"
	"github.com/360-proctor/proctoring-service/internal/repositories"
	"github.com/360-proctor/proctoring-service/internal/utils"
)

// AlertService exposes persisted violation alerts for proctor review.
type AlertService interface {
	GetByID(ctx context.Context, id uint) (*models.Alert, error)
	List(ctx context.Context, filters repositories.AlertFilters) ([]*models.Alert, int64, error)
	GetBySession(ctx context.Context, sessionID string) ([]*models.Alert, error)
	Review(ctx context.Context, id uint, req *ReviewAlertRequest, reviewerID string) error
	SessionStats(ctx context.Context, sessionID string) (*AlertStats, error)
}

type alertService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *utils.Validator
}

func NewAlertService(repo repositories.Repository, logger *slog.Logger, validator *utils.Validator) AlertService {
	return &alertService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

type ReviewAlertRequest struct {
	Status models.AlertReviewStatus `json:"status" validate:"required,oneof=reviewed dismissed"`
	Notes  *string                  `json:"notes" validate:"omitempty,max=1000"`
}

// AlertStats aggregates a session's persisted alerts.
type AlertStats struct {
	SessionID  string                       `json:"session_id"`
	Total      int64                        `json:"total"`
	BySeverity map[models.Severity]int      `json:"by_severity"`
	ByType     map[models.ViolationType]int `json:"by_type"`
	Pending    int                          `json:"pending_review"`
}

func (s *alertService) GetByID(ctx context.Context, id uint) (*models.Alert, error) {
	alert, err := s.repo.Alert().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

func (s *alertService) List(ctx context.Context, filters repositories.AlertFilters) ([]*models.Alert, int64, error) {
	alerts, total, err := s.repo.Alert().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, total, nil
}

func (s *alertService) GetBySession(ctx context.Context, sessionID string) ([]*models.Alert, error) {
	alerts, err := s.repo.Alert().GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session alerts: %w", err)
	}
	return alerts, nil
}

func (s *alertService) Review(ctx context.Context, id uint, req *ReviewAlertRequest, reviewerID string) error {
	if err := s.validator.ValidateStruct(req); err != nil {
		return err
	}

	alert, err := s.repo.Alert().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAlertNotFound
		}
		return fmt.Errorf("failed to get alert: %w", err)
	}

	if alert.ReviewStatus != models.AlertReviewPending {
		return ErrAlertAlreadyReviewed
	}

	if err := s.repo.Alert().UpdateReview(ctx, id, req.Status, reviewerID, req.Notes); err != nil {
		return fmt.Errorf("failed to review alert: %w", err)
	}

	s.logger.Info("Alert reviewed",
		"alert_id", id,
		"status", req.Status,
		"reviewer_id", reviewerID)
	return nil
}

func (s *alertService) SessionStats(ctx context.Context, sessionID string) (*AlertStats, error) {
	alerts, err := s.repo.Alert().GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session alerts: %w", err)
	}

	stats := &AlertStats{
		SessionID:  sessionID,
		Total:      int64(len(alerts)),
		BySeverity: make(map[models.Severity]int),
		ByType:     make(map[models.ViolationType]int),
	}
	for _, alert := range alerts {
		stats.BySeverity[alert.Severity]++
		stats.ByType[alert.Type]++
		if alert.ReviewStatus == models.AlertReviewPending {
			stats.Pending++
		}
	}

	return stats, nil
}
