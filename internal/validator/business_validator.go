package validator

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

// BusinessValidator holds the rules that span several fields or need stored
// state.
type BusinessValidator struct {
	validate *validator.Validate
}

func registerCustomRules(validate *validator.Validate) {
	validate.RegisterValidation("assessment_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})

	validate.RegisterValidation("not_blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return models.QuestionType(fl.Field().String()).Valid()
	})

	validate.RegisterValidation("difficulty_level", func(fl validator.FieldLevel) bool {
		switch models.DifficultyLevel(fl.Field().String()) {
		case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
			return true
		}
		return false
	})
}

// ValidateQuestionCreate checks tags and the per-type definition rules.
func (bv *BusinessValidator) ValidateQuestionCreate(req *QuestionCreateRequest) ValidationErrors {
	var errs ValidationErrors
	if err := bv.validate.Struct(req); err != nil {
		errs = append(errs, ToValidationErrors(err)...)
	}
	return append(errs, bv.validateQuestionDefinition(req)...)
}

func (bv *BusinessValidator) validateQuestionDefinition(req *QuestionCreateRequest) ValidationErrors {
	var errs ValidationErrors

	correct := 0
	for _, o := range req.Options {
		if o.IsCorrect {
			correct++
		}
	}

	switch req.QuestionType {
	case models.MultipleChoice, models.Checkbox:
		if len(req.Options) < 2 {
			errs = append(errs, ValidationError{
				Field:   "options",
				Message: "must have at least 2 options",
				Value:   len(req.Options),
				Rule:    "option_count",
			})
		}
		if req.QuestionType == models.MultipleChoice && correct != 1 {
			errs = append(errs, ValidationError{
				Field:   "options",
				Message: "multiple choice questions need exactly one correct option",
				Value:   correct,
				Rule:    "correct_options",
			})
		}
		if req.QuestionType == models.Checkbox && correct < 1 {
			errs = append(errs, ValidationError{
				Field:   "options",
				Message: "checkbox questions need at least one correct option",
				Value:   correct,
				Rule:    "correct_options",
			})
		}
		if req.CorrectAnswer != nil {
			errs = append(errs, ValidationError{
				Field:   "correct_answer",
				Message: "only identification questions carry a correct answer",
				Rule:    "question_type",
			})
		}
	case models.Identification:
		if req.CorrectAnswer == nil || strings.TrimSpace(*req.CorrectAnswer) == "" {
			errs = append(errs, ValidationError{
				Field:   "correct_answer",
				Message: "is required for identification questions",
				Rule:    "required",
			})
		}
		if len(req.Options) > 0 {
			errs = append(errs, ValidationError{
				Field:   "options",
				Message: "identification questions have no options",
				Value:   len(req.Options),
				Rule:    "question_type",
			})
		}
	}

	return errs
}

// ValidateQuestionUpdate checks tags, then the per-type rules against the
// question as it would look after the update. It returns the merged
// definition for the caller to apply.
func (bv *BusinessValidator) ValidateQuestionUpdate(existing *models.Question, req *QuestionUpdateRequest) (*QuestionCreateRequest, ValidationErrors) {
	if err := bv.validate.Struct(req); err != nil {
		return nil, ToValidationErrors(err)
	}
	if req.QuestionText == nil && req.Points == nil && req.Difficulty == nil && req.Explanation == nil &&
		req.CorrectAnswer == nil && req.Options == nil && req.IsActive == nil {
		return nil, ValidationErrors{{
			Field:   "request",
			Message: "at least one field must be provided",
			Rule:    "required",
		}}
	}

	merged := mergeQuestionUpdate(existing, req)
	if errs := bv.validateQuestionDefinition(merged); len(errs) > 0 {
		return nil, errs
	}
	return merged, nil
}

func mergeQuestionUpdate(q *models.Question, req *QuestionUpdateRequest) *QuestionCreateRequest {
	merged := &QuestionCreateRequest{
		CourseID:      q.CourseID,
		QuestionText:  q.QuestionText,
		QuestionType:  q.QuestionType,
		Points:        q.Points,
		Difficulty:    q.Difficulty,
		Explanation:   q.Explanation,
		CorrectAnswer: q.CorrectAnswer,
	}
	for _, o := range q.SortedOptions() {
		merged.Options = append(merged.Options, QuestionOptionRequest{Text: o.Text, IsCorrect: o.IsCorrect})
	}

	if req.QuestionText != nil {
		merged.QuestionText = *req.QuestionText
	}
	if req.Points != nil {
		merged.Points = *req.Points
	}
	if req.Difficulty != nil {
		merged.Difficulty = *req.Difficulty
	}
	if req.Explanation != nil {
		merged.Explanation = req.Explanation
	}
	if req.CorrectAnswer != nil {
		merged.CorrectAnswer = req.CorrectAnswer
	}
	if req.Options != nil {
		merged.Options = req.Options
	}
	return merged
}

// ValidateAssessmentUpdate rejects updates that leave nothing to change.
func (bv *BusinessValidator) ValidateAssessmentUpdate(req *AssessmentUpdateRequest) ValidationErrors {
	var errs ValidationErrors
	if err := bv.validate.Struct(req); err != nil {
		errs = append(errs, ToValidationErrors(err)...)
	}
	if req.Title == nil && req.Description == nil && req.Instructions == nil && req.TimeLimit == nil &&
		req.MaxAttempts == nil && req.PassingScore == nil && req.IsActive == nil &&
		req.RandomizeQuestions == nil && req.ShowResultsImmediately == nil {
		errs = append(errs, ValidationError{
			Field:   "request",
			Message: "at least one field must be provided",
			Rule:    "required",
		})
	}
	return errs
}

// ValidateAssignmentWindow checks the availability window against the
// schedule; the end date is inclusive through the end of its day.
func (bv *BusinessValidator) ValidateAssignmentWindow(schedule *models.Schedule, from, until *time.Time) ValidationErrors {
	var errs ValidationErrors

	if from != nil && until != nil && from.After(*until) {
		errs = append(errs, ValidationError{
			Field:   "available_from",
			Message: "must not be after available_until",
			Value:   from,
			Rule:    "window_order",
		})
	}

	bounds := []struct {
		field string
		value *time.Time
	}{
		{"available_from", from},
		{"available_until", until},
	}
	for _, b := range bounds {
		if b.value != nil && !schedule.Contains(*b.value) {
			errs = append(errs, ValidationError{
				Field: b.field,
				Message: fmt.Sprintf("must fall within the schedule (%s to %s)",
					schedule.StartDate.Format(time.DateOnly), schedule.EndDate.Format(time.DateOnly)),
				Value: b.value,
				Rule:  "within_schedule",
			})
		}
	}

	return errs
}
