package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/360-proctor/proctoring-service/internal/models"
	"github.com/360-proctor/proctoring-service/internal/proctoring"
	"github.com/360-proctor/proctoring-service/internal/repositories"
)

// ReportService builds downloadable evidence reports for completed sessions.
type ReportService interface {
	ExportSessionReport(ctx context.Context, sessionID, requesterID string) ([]byte, error)
}

type reportService struct {
	repo        repositories.Repository
	coordinator *proctoring.Coordinator
	logger      *slog.Logger
}

func NewReportService(repo repositories.Repository, coordinator *proctoring.Coordinator, logger *slog.Logger) ReportService {
	return &reportService{
		repo:        repo,
		coordinator: coordinator,
		logger:      logger,
	}
}

// ExportSessionReport renders the session summary, every persisted alert and
// the trust score trajectory into an xlsx workbook.
func (s *reportService) ExportSessionReport(ctx context.Context, sessionID, requesterID string) ([]byte, error) {
	if err := s.requireReviewer(ctx, requesterID); err != nil {
		return nil, err
	}

	session, err := s.repo.Session().GetByIDWithAlerts(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.writeSummarySheet(f, session); err != nil {
		return nil, err
	}
	if err := s.writeViolationsSheet(f, session.Alerts); err != nil {
		return nil, err
	}
	if err := s.writeScoreHistorySheet(f, sessionID); err != nil {
		return nil, err
	}

	// Drop the default sheet so Summary opens first
	f.DeleteSheet("Sheet1")
	if index, err := f.GetSheetIndex("Summary"); err == nil {
		f.SetActiveSheet(index)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	s.logger.Info("Session report exported",
		"session_id", sessionID,
		"requester_id", requesterID,
		"alerts", len(session.Alerts))
	return buf.Bytes(), nil
}

func (s *reportService) writeSummarySheet(f *excelize.File, session *models.ExamSession) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Session ID", session.ID},
		{"Exam", session.Exam.Title},
		{"Student", session.User.FullName},
		{"Status", string(session.Status)},
		{"Total Violations", session.TotalViolations},
		{"Duration (seconds)", session.DurationSeconds},
	}
	if session.StartedAt != nil {
		rows = append(rows, []interface{}{"Started At", session.StartedAt.Format("2006-01-02 15:04:05")})
	}
	if session.EndedAt != nil {
		rows = append(rows, []interface{}{"Ended At", session.EndedAt.Format("2006-01-02 15:04:05")})
	}
	if session.FinalTrustScore != nil {
		rows = append(rows, []interface{}{"Final Trust Score", *session.FinalTrustScore})
	}

	for i, row := range rows {
		for j, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+j, i+1)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write summary cell: %w", err)
			}
		}
	}
	return nil
}

func (s *reportService) writeViolationsSheet(f *excelize.File, alerts []models.Alert) error {
	const sheet = "Violations"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create violations sheet: %w", err)
	}

	headers := []string{"Occurred At", "Type", "Severity", "Confidence", "Trust Score Impact", "Description", "Review Status"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write violations header: %w", err)
		}
	}

	for rowIndex, alert := range alerts {
		row := []interface{}{
			alert.OccurredAt.Format("2006-01-02 15:04:05"),
			string(alert.Type),
			string(alert.Severity),
			alert.Confidence,
			alert.TrustScoreImpact,
			alert.Description,
			string(alert.ReviewStatus),
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write violation row: %w", err)
			}
		}
	}
	return nil
}

func (s *reportService) writeScoreHistorySheet(f *excelize.File, sessionID string) error {
	const sheet = "Score History"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create score history sheet: %w", err)
	}

	f.SetCellValue(sheet, "A1", "Evaluation #")
	f.SetCellValue(sheet, "B1", "Trust Score")

	// History lives in memory; a session cleaned up after completion simply
	// exports an empty trajectory.
	var history []float64
	if s.coordinator != nil {
		if h, err := s.coordinator.ScoreHistory(sessionID); err == nil {
			history = h
		}
	}

	for i, score := range history {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), i+1)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), score)
	}
	return nil
}

func (s *reportService) requireReviewer(ctx context.Context, userID string) error {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	switch user.Role {
	case models.RoleTeacher, models.RoleProctor, models.RoleAdmin:
		return nil
	}
	return NewPermissionError(userID, "session report", "export", "students cannot export reports")
}
