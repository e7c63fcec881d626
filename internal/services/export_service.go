package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/ec0249-assessment/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Summary"
	attemptsSheet = "Attempts"
)

// ExportService renders assessment history as Excel workbooks.
type ExportService struct {
	logger *slog.Logger
}

func NewExportService(logger *slog.Logger) *ExportService {
	return &ExportService{logger: logger}
}

// ExportHistory writes a workbook with a summary sheet and one row per attempt.
func (s *ExportService) ExportHistory(ctx context.Context, a *models.AssessmentDefinition, h *models.History) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.WarnContext(ctx, "Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	lastAttempt := ""
	if h.LastAttemptAt != nil {
		lastAttempt = h.LastAttemptAt.Format(time.RFC3339)
	}
	summary := [][]interface{}{
		{"Assessment", a.Title},
		{"Assessment ID", a.ID},
		{"User ID", h.UserID},
		{"Passing score", a.PassingScoreOrDefault()},
		{"Max attempts", a.MaxAttempts},
		{"Attempts", h.Attempts},
		{"Best score", h.BestScore},
		{"Passed", h.Passed},
		{"Last attempt", lastAttempt},
	}
	for i, row := range summary {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	index, err := f.NewSheet(attemptsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	headers := []interface{}{"Attempt", "Session ID", "Completed At", "Status", "Percentage", "Final Score", "Grade", "Passed", "Duration (s)"}
	if err := f.SetSheetRow(attemptsSheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write headers: %w", err)
	}

	for i, entry := range h.Results {
		row := []interface{}{
			i + 1,
			entry.SessionID,
			entry.CompletedAt.Format(time.RFC3339),
			string(entry.Status),
			entry.Percentage,
			entry.FinalScore,
			entry.GradeLetter,
			entry.Passed,
			int(entry.Duration.Seconds()),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(attemptsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write attempt %d: %w", i+1, err)
		}
	}
	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
