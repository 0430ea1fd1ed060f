package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/360-proctor/proctoring-service/internal/events"
	"github.com/360-proctor/proctoring-service/internal/models"
	"github.com/360-proctor/proctoring-service/internal/repositories"
	"github.com/360-proctor/proctoring-service/internal/utils"
)

// NotificationService persists notifications and fans them out through the
// event stream for downstream delivery (email, push).
type NotificationService interface {
	SendBulkNotification(ctx context.Context, recipientIDs []string, req *NotificationRequest, senderID string) error
	NotifyTrustScoreCritical(ctx context.Context, sessionID, userID string, score float64) error
	NotifyReportReady(ctx context.Context, sessionID, recipientID string) error

	GetUserNotifications(ctx context.Context, userID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error)
	MarkRead(ctx context.Context, notificationID uint, userID string) error
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *utils.Validator
}

func NewNotificationService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *utils.Validator) NotificationService {
	return &notificationService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

type NotificationRequest struct {
	Type     models.NotificationType     `json:"type" validate:"required"`
	Title    string                      `json:"title" validate:"required,max=255"`
	Message  string                      `json:"message" validate:"required"`
	Priority models.NotificationPriority `json:"priority" validate:"omitempty,min=1,max=4"`
	Channels []string                    `json:"channels" validate:"omitempty,dive,oneof=email push in_app"`
	Metadata map[string]interface{}      `json:"metadata,omitempty"`
}

// ===== DISPATCH =====

func (s *notificationService) SendBulkNotification(ctx context.Context, recipientIDs []string, req *NotificationRequest, senderID string) error {
	if len(recipientIDs) == 0 {
		return ErrNoRecipients
	}
	if err := s.validator.ValidateStruct(req); err != nil {
		return err
	}

	priority := req.Priority
	if priority == 0 {
		priority = models.PriorityNormal
	}
	channels := req.Channels
	if len(channels) == 0 {
		channels = []string{"in_app"}
	}
	channelsJSON, err := json.Marshal(channels)
	if err != nil {
		return fmt.Errorf("failed to marshal channels: %w", err)
	}

	notifications := make([]*models.Notification, 0, len(recipientIDs))
	for _, recipientID := range recipientIDs {
		id := recipientID
		notifications = append(notifications, &models.Notification{
			Type:        req.Type,
			Title:       req.Title,
			Message:     req.Message,
			RecipientID: &id,
			Channels:    datatypes.JSON(channelsJSON),
			Priority:    int(priority),
			CreatedBy:   senderID,
		})
	}

	if err := s.repo.Notification().CreateBatch(ctx, notifications); err != nil {
		return fmt.Errorf("failed to persist notifications: %w", err)
	}

	event := events.NewBulkNotificationEvent(recipientIDs, req.Type, req.Title, req.Message, priority, req.Metadata, senderID)
	if err := s.publisher.PublishProctoringEvent(ctx, event); err != nil {
		// Rows are persisted; delivery retry is the consumer's concern
		s.logger.Error("failed to publish bulk notification event",
			"type", req.Type,
			"recipients", len(recipientIDs),
			"error", err)
	}

	s.logger.Info("Bulk notification sent",
		"type", req.Type,
		"recipients", len(recipientIDs),
		"sender_id", senderID)
	return nil
}

// NotifyTrustScoreCritical alerts the exam's proctors when a student's score
// drops into the critical band.
func (s *notificationService) NotifyTrustScoreCritical(ctx context.Context, sessionID, userID string, score float64) error {
	proctors, err := s.repo.User().GetByRole(ctx, models.RoleProctor, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to get proctors: %w", err)
	}
	if len(proctors) == 0 {
		s.logger.Warn("no proctors to notify for critical trust score", "session_id", sessionID)
		return nil
	}

	recipientIDs := make([]string, len(proctors))
	for i, p := range proctors {
		recipientIDs[i] = p.ID
	}

	return s.SendBulkNotification(ctx, recipientIDs, &NotificationRequest{
		Type:     models.NotificationTrustScoreCritical,
		Title:    "Critical trust score",
		Message:  fmt.Sprintf("Session %s dropped to trust score %.1f", sessionID, score),
		Priority: models.PriorityCritical,
		Metadata: map[string]interface{}{
			"session_id":  sessionID,
			"user_id":     userID,
			"trust_score": score,
		},
	}, "system")
}

func (s *notificationService) NotifyReportReady(ctx context.Context, sessionID, recipientID string) error {
	return s.SendBulkNotification(ctx, []string{recipientID}, &NotificationRequest{
		Type:     models.NotificationReportReady,
		Title:    "Session report ready",
		Message:  fmt.Sprintf("The proctoring report for session %s is ready for download", sessionID),
		Priority: models.PriorityNormal,
		Metadata: map[string]interface{}{"session_id": sessionID},
	}, "system")
}

// ===== MANAGEMENT =====

func (s *notificationService) GetUserNotifications(ctx context.Context, userID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error) {
	filters.RecipientID = &userID
	notifications, total, err := s.repo.Notification().List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID uint, userID string) error {
	notification, err := s.repo.Notification().GetByID(ctx, notificationID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to get notification: %w", err)
	}

	if notification.RecipientID == nil || *notification.RecipientID != userID {
		return NewPermissionError(userID, "notification", "mark read", "not the recipient")
	}

	if err := s.repo.Notification().MarkRead(ctx, notificationID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (s *notificationService) CountUnread(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.Notification().CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
