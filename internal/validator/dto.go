package validator

import (
	"encoding/json"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

// ===== ASSESSMENT AUTHORING =====

type AssessmentCreateRequest struct {
	CourseID               uint    `json:"course_id" validate:"required"`
	Title                  string  `json:"title" validate:"required,assessment_title"`
	Description            *string `json:"description" validate:"omitempty,max=5000"`
	Instructions           *string `json:"instructions" validate:"omitempty,max=5000"`
	TimeLimit              int     `json:"time_limit" validate:"required,min=1,max=1440"` // minutes
	MaxAttempts            int     `json:"max_attempts" validate:"required,min=1,max=100"`
	PassingScore           float64 `json:"passing_score" validate:"gte=0,lte=100"`
	IsActive               *bool   `json:"is_active"`
	RandomizeQuestions     bool    `json:"randomize_questions"`
	ShowResultsImmediately bool    `json:"show_results_immediately"`
	QuestionIDs            []uint  `json:"question_ids" validate:"omitempty,unique,dive,required"`
}

// AssessmentUpdateRequest is a partial update; nil fields are left unchanged.
type AssessmentUpdateRequest struct {
	Title                  *string  `json:"title" validate:"omitempty,assessment_title"`
	Description            *string  `json:"description" validate:"omitempty,max=5000"`
	Instructions           *string  `json:"instructions" validate:"omitempty,max=5000"`
	TimeLimit              *int     `json:"time_limit" validate:"omitempty,min=1,max=1440"`
	MaxAttempts            *int     `json:"max_attempts" validate:"omitempty,min=1,max=100"`
	PassingScore           *float64 `json:"passing_score" validate:"omitempty,gte=0,lte=100"`
	IsActive               *bool    `json:"is_active"`
	RandomizeQuestions     *bool    `json:"randomize_questions"`
	ShowResultsImmediately *bool    `json:"show_results_immediately"`
}

type AssessmentQuestionsRequest struct {
	QuestionIDs []uint `json:"question_ids" validate:"required,min=1,unique,dive,required"`
}

type QuestionOptionRequest struct {
	Text      string `json:"text" validate:"required,not_blank,max=1000"`
	IsCorrect bool   `json:"is_correct"`
}

type QuestionCreateRequest struct {
	CourseID      uint                    `json:"course_id" validate:"required"`
	QuestionText  string                  `json:"question_text" validate:"required,not_blank,max=5000"`
	QuestionType  models.QuestionType     `json:"question_type" validate:"required,question_type"`
	Points        float64                 `json:"points" validate:"required,gte=0.5,lte=1000"`
	Difficulty    models.DifficultyLevel  `json:"difficulty" validate:"omitempty,difficulty_level"`
	Explanation   *string                 `json:"explanation" validate:"omitempty,max=5000"`
	CorrectAnswer *string                 `json:"correct_answer" validate:"omitempty,max=1000"`
	Options       []QuestionOptionRequest `json:"options" validate:"omitempty,max=20,dive"`
}

// QuestionUpdateRequest changes a question in place. The type is fixed once
// created; options, when sent, replace the whole list.
type QuestionUpdateRequest struct {
	QuestionText  *string                 `json:"question_text" validate:"omitempty,not_blank,max=5000"`
	Points        *float64                `json:"points" validate:"omitempty,gte=0.5,lte=1000"`
	Difficulty    *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Explanation   *string                 `json:"explanation" validate:"omitempty,max=5000"`
	CorrectAnswer *string                 `json:"correct_answer" validate:"omitempty,max=1000"`
	Options       []QuestionOptionRequest `json:"options" validate:"omitempty,max=20,dive"`
	IsActive      *bool                   `json:"is_active"`
}

// ===== ATTEMPTS =====

type SaveAnswerRequest struct {
	Answer json.RawMessage `json:"answer" validate:"required"`
}

type SyncTimeRequest struct {
	TimeRemaining *int `json:"time_remaining" validate:"required,min=0"`
}

// ===== SCHEDULE ASSIGNMENT =====

type AssignAssessmentRequest struct {
	AssessmentID   uint       `json:"assessment_id" validate:"required"`
	IsActive       *bool      `json:"is_active"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
}

// AssignmentUpdateRequest replaces the window; a nil bound clears it.
type AssignmentUpdateRequest struct {
	IsActive       *bool      `json:"is_active"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`
}

// ===== MATERIALS =====

type MaterialUploadRequest struct {
	CourseID    uint    `form:"course_id" validate:"required"`
	Title       string  `form:"title" validate:"required,not_blank,max=255"`
	Description *string `form:"description" validate:"omitempty,max=5000"`
}
