package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizcraft-backend/internal/model"
	"github.com/xuri/excelize/v2"
)

const attemptsSheet = "Attempts"

var attemptsHeader = []any{"Learner", "Email", "Started", "Finished", "Complete", "Score", "Max Score"}

// AttemptLister is implemented by *AttemptService.
type AttemptLister interface {
	ListByQuiz(ctx context.Context, quizID, userID uuid.UUID) ([]model.AttemptSummary, error)
}

// ExportService renders quiz attempts as spreadsheets.
type ExportService struct {
	attempts AttemptLister
	log      zerolog.Logger
}

func NewExportService(attempts AttemptLister, log zerolog.Logger) *ExportService {
	return &ExportService{
		attempts: attempts,
		log:      log.With().Str("component", "export_service").Logger(),
	}
}

// WriteAttemptsXLSX writes one row per attempt on quizID to w. Only the quiz creator may export.
func (s *ExportService) WriteAttemptsXLSX(ctx context.Context, quizID, userID uuid.UUID, w io.Writer) error {
	attempts, err := s.attempts.ListByQuiz(ctx, quizID, userID)
	if err != nil {
		return err
	}

	f, err := buildAttemptsWorkbook(attempts)
	if err != nil {
		return fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	s.log.Info().Str("quiz_id", quizID.String()).Int("rows", len(attempts)).Msg("Attempts exported")
	return nil
}

func buildAttemptsWorkbook(attempts []model.AttemptSummary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", attemptsSheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := f.SetSheetRow(attemptsSheet, "A1", &attemptsHeader); err != nil {
		f.Close()
		return nil, err
	}

	for i, a := range attempts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []any{
			deref(a.LearnerName),
			a.LearnerEmail,
			a.StartTime.UTC().Format(time.RFC3339),
			formatTime(a.EndTime),
			strconv.FormatBool(a.IsComplete),
			intCell(a.Score),
			intCell(a.MaxScore),
		}
		if err := f.SetSheetRow(attemptsSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func intCell(n *int) any {
	if n == nil {
		return ""
	}
	return *n
}
