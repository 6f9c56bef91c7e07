package repositories

import (
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type AssessmentFilters struct {
	CourseID  *uint   `json:"course_id"`
	IsActive  *bool   `json:"is_active"`
	CreatedBy *string `json:"created_by"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"`    // "created_at", "title"
	SortOrder string  `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	AssessmentIDs []uint                `json:"assessment_ids"`
	TraineeIDs    []string              `json:"trainee_ids"`
	Status        *models.AttemptStatus `json:"status"`
	DateFrom      *time.Time            `json:"date_from"`
	DateTo        *time.Time            `json:"date_to"`
	Limit         int                   `json:"limit"`
	Offset        int                   `json:"offset"`
}

type QuestionFilters struct {
	QuestionType *models.QuestionType    `json:"question_type"`
	Difficulty   *models.DifficultyLevel `json:"difficulty"`
	Search       string                  `json:"search"`
	Limit        int                     `json:"limit"`
	Offset       int                     `json:"offset"`
	SortBy       string                  `json:"sort_by"`
	SortOrder    string                  `json:"sort_order"`
}

type MaterialFilters struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ===== SHARED HELPER STRUCTS =====

// AnswerGrade is the scoring outcome written back onto one answer row.
type AnswerGrade struct {
	QuestionID   uint    `json:"question_id"`
	IsCorrect    bool    `json:"is_correct"`
	PointsEarned float64 `json:"points_earned"`
}

// AttemptFinalization carries the terminal state of an attempt. It is applied
// only while the attempt is still in_progress.
type AttemptFinalization struct {
	Status        models.AttemptStatus
	SubmittedAt   *time.Time
	TimeRemaining int
	Score         float64
	Percentage    float64
	IsPassed      bool
}

// AttemptSummary aggregates a trainee's attempts on one assessment.
type AttemptSummary struct {
	AssessmentID    uint     `json:"assessment_id"`
	AttemptsCount   int      `json:"attempts_count"`
	ExpiredCount    int      `json:"expired_count"`
	ActiveAttemptID *uint    `json:"active_attempt_id"`
	BestScore       *float64 `json:"best_score"`
}
