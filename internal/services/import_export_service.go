package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	resultsSheet    = "Results"
	maxImportRows   = 1000
)

var resultsHeader = []interface{}{
	"Assessment", "Trainee", "Attempt", "Status",
	"Score", "Percentage", "Passed", "Started At", "Submitted At",
}

// Question import columns, matched case-insensitively against the header row.
const (
	colType           = "type"
	colQuestionText   = "question_text"
	colPoints         = "points"
	colDifficulty     = "difficulty"
	colExplanation    = "explanation"
	colCorrectAnswer  = "correct_answer"
	colOptions        = "options"
	colCorrectOptions = "correct_options"
)

type importExportService struct {
	schedules ScheduleService
	questions QuestionService
	logger    *slog.Logger
}

func NewImportExportService(schedules ScheduleService, questions QuestionService, logger *slog.Logger) ImportExportService {
	return &importExportService{
		schedules: schedules,
		questions: questions,
		logger:    logger,
	}
}

// ===== EXPORT =====

// ExportScheduleResults writes one row per attempt. Trainees without
// attempts get a single row with status "not_attempted".
func (s *importExportService) ExportScheduleResults(ctx context.Context, scheduleID uint) (*ExportFile, error) {
	results, err := s.schedules.GetScheduleResults(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &resultsHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(resultsSheet, 1, 1, style)
	}

	row := 2
	for _, group := range results.Assessments {
		for _, trainee := range group.Trainees {
			if len(trainee.Attempts) == 0 {
				values := []interface{}{group.Title, trainee.TraineeID, "", "not_attempted"}
				if err := s.writeRow(f, row, values); err != nil {
					return nil, err
				}
				row++
				continue
			}
			for _, a := range trainee.Attempts {
				if err := s.writeRow(f, row, attemptRowValues(group.Title, trainee.TraineeID, a)); err != nil {
					return nil, err
				}
				row++
			}
		}
	}
	_ = f.SetColWidth(resultsSheet, "A", "I", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info("Schedule results exported",
		"schedule_id", scheduleID,
		"rows", row-2)

	return &ExportFile{
		Filename:    fmt.Sprintf("schedule-%d-results.xlsx", scheduleID),
		ContentType: xlsxContentType,
		Data:        buf.Bytes(),
	}, nil
}

func (s *importExportService) writeRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func attemptRowValues(title, traineeID string, a AttemptResultRow) []interface{} {
	values := []interface{}{
		title, traineeID, a.AttemptNumber, string(a.Status),
		"", "", "", a.StartedAt.UTC().Format(time.RFC3339), "",
	}
	if a.Score != nil {
		values[4] = *a.Score
	}
	if a.Percentage != nil {
		values[5] = *a.Percentage
	}
	if a.IsPassed != nil {
		values[6] = strconv.FormatBool(*a.IsPassed)
	}
	if a.SubmittedAt != nil {
		values[8] = a.SubmittedAt.UTC().Format(time.RFC3339)
	}
	return values
}

// ===== IMPORT =====

// ImportQuestions creates one question per data row of the first sheet.
// Rows that fail validation are reported and skipped; the rest are created.
func (s *importExportService) ImportQuestions(ctx context.Context, courseID uint, r io.Reader, creatorID string) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ErrInvalidSpreadsheet
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil || len(rows) < 1 {
		return nil, ErrInvalidSpreadsheet
	}
	if len(rows)-1 > maxImportRows {
		return nil, NewBusinessRuleError("import_size",
			fmt.Sprintf("at most %d questions per import", maxImportRows),
			map[string]interface{}{"rows": len(rows) - 1})
	}

	columns := headerIndex(rows[0])
	for _, required := range []string{colType, colQuestionText, colPoints} {
		if _, ok := columns[required]; !ok {
			return nil, ErrInvalidSpreadsheet
		}
	}

	result := &ImportResult{QuestionIDs: []uint{}, Failed: []ImportRowError{}}
	for i, cells := range rows[1:] {
		rowNumber := i + 2
		if blankRow(cells) {
			continue
		}

		req, errs := parseQuestionRow(courseID, columns, cells)
		if len(errs) > 0 {
			result.Failed = append(result.Failed, ImportRowError{Row: rowNumber, Errors: errs})
			continue
		}

		question, err := s.questions.Create(ctx, req, creatorID)
		if err != nil {
			var verrs ValidationErrors
			if errors.As(err, &verrs) {
				result.Failed = append(result.Failed, ImportRowError{Row: rowNumber, Errors: verrs})
				continue
			}
			return nil, err
		}
		result.Created++
		result.QuestionIDs = append(result.QuestionIDs, question.ID)
	}

	s.logger.Info("Questions imported",
		"course_id", courseID,
		"created", result.Created,
		"failed", len(result.Failed),
		"creator_id", creatorID)
	return result, nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseQuestionRow(courseID uint, columns map[string]int, cells []string) (*CreateQuestionRequest, ValidationErrors) {
	cell := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	var errs ValidationErrors
	req := &CreateQuestionRequest{
		CourseID:     courseID,
		QuestionText: cell(colQuestionText),
		QuestionType: models.QuestionType(strings.ToLower(cell(colType))),
		Difficulty:   models.DifficultyLevel(strings.ToLower(cell(colDifficulty))),
	}

	points, err := strconv.ParseFloat(cell(colPoints), 64)
	if err != nil {
		errs = append(errs, ValidationError{
			Field:   colPoints,
			Message: "must be a number",
			Value:   cell(colPoints),
			Rule:    "numeric",
		})
	}
	req.Points = points

	if v := cell(colExplanation); v != "" {
		req.Explanation = &v
	}
	if v := cell(colCorrectAnswer); v != "" {
		req.CorrectAnswer = &v
	}

	if raw := cell(colOptions); raw != "" {
		correct := map[int]bool{}
		for _, tok := range splitList(cell(colCorrectOptions), ",") {
			n, err := strconv.Atoi(tok)
			if err != nil || n < 1 {
				errs = append(errs, ValidationError{
					Field:   colCorrectOptions,
					Message: "must list 1-based option positions",
					Value:   tok,
					Rule:    "numeric",
				})
				continue
			}
			correct[n] = true
		}
		for i, text := range splitList(raw, "|") {
			req.Options = append(req.Options, QuestionOptionRequest{
				Text:      text,
				IsCorrect: correct[i+1],
			})
		}
	}

	return req, errs
}

func splitList(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
