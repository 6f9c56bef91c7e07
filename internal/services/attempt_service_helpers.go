package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
)

// ===== LOOKUPS =====

func (s *attemptService) getActiveAssessment(ctx context.Context, id uint) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if !assessment.IsActive {
		return nil, ErrAssessmentInactive
	}
	return assessment, nil
}

// getDefinition loads the assessment with its ordered questions and options.
func (s *attemptService) getDefinition(ctx context.Context, id uint) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment definition: %w", err)
	}
	return assessment, nil
}

// getOwnedAttempt hides attempts of other trainees behind not found.
func (s *attemptService) getOwnedAttempt(ctx context.Context, attemptID uint, traineeID string) (*models.AssessmentAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.TraineeID != traineeID {
		return nil, ErrAttemptNotFound
	}
	return attempt, nil
}

// finalizedConflict explains a lost compare-and-set from the stored state.
func (s *attemptService) finalizedConflict(ctx context.Context, attemptID uint) error {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("failed to reload attempt: %w", err)
	}
	if attempt.Status == models.AttemptSubmitted {
		return ErrAttemptAlreadySubmitted
	}
	return ErrAttemptNotActive
}

// ===== FINALIZATION =====

func (s *attemptService) expireLapsed(ctx context.Context, attempt *models.AssessmentAttempt, now time.Time) error {
	assessment, err := s.getDefinition(ctx, attempt.AssessmentID)
	if err != nil {
		return err
	}
	return s.finalizeExpired(ctx, attempt, assessment, now)
}

// finalizeExpired moves a lapsed attempt to expired. Losing the race to
// another finalizer is not an error.
func (s *attemptService) finalizeExpired(ctx context.Context, attempt *models.AssessmentAttempt, assessment *models.Assessment, now time.Time) error {
	_, err := s.finalize(ctx, attempt, assessment, repositories.AttemptFinalization{
		Status: models.AttemptExpired,
	})
	if errors.Is(err, errFinalizeLost) {
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info("Assessment attempt expired",
		"attempt_id", attempt.ID,
		"started_at", attempt.StartedAt,
		"detected_at", now)
	return nil
}

// finalize scores the saved answers and applies the terminal state in one
// transaction. It returns errFinalizeLost when the attempt had already left
// in_progress.
func (s *attemptService) finalize(ctx context.Context, attempt *models.AssessmentAttempt, assessment *models.Assessment, fin repositories.AttemptFinalization) (*ScoreResult, error) {
	var result *ScoreResult
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		answers, err := tx.Answer().GetByAttempt(ctx, attempt.ID)
		if err != nil {
			return fmt.Errorf("failed to get answers: %w", err)
		}

		result = s.grading.ScoreAttempt(assessment, answers)
		fin.Score = result.Score
		fin.Percentage = result.Percentage
		fin.IsPassed = result.IsPassed

		won, err := tx.Attempt().Finalize(ctx, attempt.ID, fin)
		if err != nil {
			return fmt.Errorf("failed to finalize attempt: %w", err)
		}
		if !won {
			return errFinalizeLost
		}
		if err := tx.Answer().ApplyGrades(ctx, attempt.ID, result.Grades); err != nil {
			return fmt.Errorf("failed to write grades: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.AttemptFinalized(string(fin.Status))

	eventType := events.AttemptSubmitted
	if fin.Status == models.AttemptExpired {
		eventType = events.AttemptExpired
	}
	s.notifier.Notify(ctx, eventType, attemptEventData(attempt, result))

	return result, nil
}

func attemptEventData(attempt *models.AssessmentAttempt, result *ScoreResult) *events.AttemptEventData {
	data := &events.AttemptEventData{
		AttemptID:     attempt.ID,
		AssessmentID:  attempt.AssessmentID,
		TraineeID:     attempt.TraineeID,
		AttemptNumber: attempt.AttemptNumber,
	}
	if result != nil {
		data.Score = &result.Score
		data.Percentage = &result.Percentage
		data.IsPassed = &result.IsPassed
	}
	return data
}

// ===== RESPONSE BUILDERS =====

func buildAttemptSheet(assessment *models.Assessment, attempt *models.AssessmentAttempt, answers []*models.AssessmentAnswer, now time.Time) *AttemptSheetResponse {
	saved := make(map[uint]json.RawMessage, len(answers))
	for _, a := range answers {
		saved[a.QuestionID] = json.RawMessage(a.AnswerData)
	}

	questions := assessment.OrderedQuestions()
	if assessment.RandomizeQuestions {
		shuffleQuestions(questions, attempt.ID)
	}

	sheet := &AttemptSheetResponse{
		Assessment: SheetAssessment{
			ID:             assessment.ID,
			Title:          assessment.Title,
			Instructions:   assessment.Instructions,
			TimeLimit:      assessment.TimeLimit,
			QuestionsCount: len(questions),
			TotalPoints:    roundFloat(assessment.TotalPoints, 2),
		},
		Attempt: SheetAttempt{
			ID:            attempt.ID,
			AttemptNumber: attempt.AttemptNumber,
			StartedAt:     attempt.StartedAt,
			TimeRemaining: attempt.RemainingSeconds(assessment.TimeLimit, now),
		},
		Questions: make([]SheetQuestion, 0, len(questions)),
	}

	for _, q := range questions {
		sheet.Questions = append(sheet.Questions, SheetQuestion{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			QuestionType: q.QuestionType,
			Points:       q.Points,
			Options:      sheetOptions(&q),
			SavedAnswer:  saved[q.ID],
		})
	}
	return sheet
}

func sheetOptions(q *models.Question) []SheetOption {
	if !q.QuestionType.IsChoice() {
		return nil
	}
	opts := q.SortedOptions()
	out := make([]SheetOption, 0, len(opts))
	for _, o := range opts {
		out = append(out, SheetOption{ID: o.ID, Text: o.Text})
	}
	return out
}

// shuffleQuestions permutes the display order deterministically per attempt
// so reloads show the same sequence.
func shuffleQuestions(questions []models.Question, attemptID uint) {
	rng := rand.New(rand.NewPCG(uint64(attemptID), 0x9e3779b97f4a7c15))
	rng.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
}

func buildAttemptResult(assessment *models.Assessment, attempt *models.AssessmentAttempt, reveal bool) *AttemptResultResponse {
	answers := make(map[uint]*models.AssessmentAnswer, len(attempt.Answers))
	for i := range attempt.Answers {
		answers[attempt.Answers[i].QuestionID] = &attempt.Answers[i]
	}

	result := &AttemptResultResponse{
		Attempt:     attempt,
		TotalPoints: roundFloat(assessment.TotalPoints, 2),
		Revealed:    reveal,
	}
	for _, q := range assessment.OrderedQuestions() {
		row := QuestionResult{
			QuestionID:   q.ID,
			QuestionText: q.QuestionText,
			QuestionType: q.QuestionType,
			Points:       q.Points,
			Options:      sheetOptions(&q),
		}
		if a, ok := answers[q.ID]; ok {
			row.Answer = json.RawMessage(a.AnswerData)
			if a.IsCorrect != nil {
				row.IsCorrect = *a.IsCorrect
			}
			if a.PointsEarned != nil {
				row.PointsEarned = *a.PointsEarned
			}
		}
		if reveal {
			if q.QuestionType.IsChoice() {
				row.CorrectOptionIDs = q.CorrectOptionIDs()
			} else {
				row.CorrectAnswer = q.CorrectAnswer
			}
			row.Explanation = q.Explanation
		}
		result.Questions = append(result.Questions, row)
	}

	// Answers are reported per question above
	attempt.Answers = nil
	return result
}
