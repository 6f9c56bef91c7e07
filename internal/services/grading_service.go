package services

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
)

type gradingService struct {
	logger *slog.Logger
}

func NewGradingService(logger *slog.Logger) GradingService {
	return &gradingService{logger: logger}
}

// ScoreAttempt scores answers against the assessment's questions in
// assessment order. Unanswered questions add to the total and earn nothing.
// Answers to questions outside the assessment are ignored.
func (s *gradingService) ScoreAttempt(assessment *models.Assessment, answers []*models.AssessmentAnswer) *ScoreResult {
	byQuestion := make(map[uint]*models.AssessmentAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	result := &ScoreResult{Grades: make([]repositories.AnswerGrade, 0, len(answers))}
	for _, q := range assessment.OrderedQuestions() {
		question := q
		result.TotalPoints += question.Points

		answer, ok := byQuestion[question.ID]
		if !ok {
			continue
		}

		grade := repositories.AnswerGrade{QuestionID: question.ID}
		if s.IsCorrect(&question, json.RawMessage(answer.AnswerData)) {
			grade.IsCorrect = true
			grade.PointsEarned = question.Points
			result.Score += question.Points
		}
		result.Grades = append(result.Grades, grade)
	}

	result.Score = roundFloat(result.Score, 2)
	result.TotalPoints = roundFloat(result.TotalPoints, 2)
	result.Percentage = calculatePercentage(result.Score, result.TotalPoints)
	result.IsPassed = result.Percentage >= assessment.PassingScore
	return result
}

// IsCorrect applies the all-or-nothing rule of the question's type. A payload
// of the wrong shape is incorrect.
func (s *gradingService) IsCorrect(question *models.Question, answerData json.RawMessage) bool {
	payload, err := decodeAnswer(question.QuestionType, answerData)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("Malformed answer payload scored as incorrect",
				"question_id", question.ID,
				"question_type", question.QuestionType,
				"error", err)
		}
		return false
	}

	switch question.QuestionType {
	case models.Identification:
		return gradeIdentification(question, payload.Text)
	case models.MultipleChoice:
		return gradeMultipleChoice(question, payload.OptionIDs)
	case models.Checkbox:
		return gradeCheckbox(question, payload.OptionIDs)
	default:
		return false
	}
}

func gradeIdentification(question *models.Question, answer string) bool {
	if question.CorrectAnswer == nil {
		return false
	}
	expected := strings.TrimSpace(*question.CorrectAnswer)
	if expected == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), expected)
}

// gradeMultipleChoice requires exactly one selection and exactly one correct
// option in the definition.
func gradeMultipleChoice(question *models.Question, selected []uint) bool {
	correct := question.CorrectOptionIDs()
	if len(correct) != 1 || len(selected) != 1 {
		return false
	}
	return selected[0] == correct[0]
}

// gradeCheckbox compares the selection as a set with the correct options.
func gradeCheckbox(question *models.Question, selected []uint) bool {
	correct := question.CorrectOptionIDs()
	if len(correct) == 0 {
		return false
	}

	chosen := make(map[uint]struct{}, len(selected))
	for _, id := range selected {
		chosen[id] = struct{}{}
	}
	if len(chosen) != len(correct) {
		return false
	}
	for _, id := range correct {
		if _, ok := chosen[id]; !ok {
			return false
		}
	}
	return true
}
