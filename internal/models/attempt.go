package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptExpired    AttemptStatus = "expired"
)

// IsFinal reports whether no further transition is possible.
func (s AttemptStatus) IsFinal() bool {
	return s == AttemptSubmitted || s == AttemptExpired
}

// ActiveAttemptIndex is the partial unique index that allows at most one
// in_progress attempt per trainee and assessment.
const ActiveAttemptIndex = "idx_single_active_attempt"

type AssessmentAttempt struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	AssessmentID  uint          `json:"assessment_id" gorm:"not null;index;uniqueIndex:idx_attempt_number"`
	TraineeID     string        `json:"trainee_id" gorm:"not null;index;size:255;uniqueIndex:idx_attempt_number"`
	AttemptNumber int           `json:"attempt_number" gorm:"not null;uniqueIndex:idx_attempt_number"`
	Status        AttemptStatus `json:"status" gorm:"not null;size:20;default:in_progress;index"`

	// Timing
	StartedAt     time.Time  `json:"started_at" gorm:"not null"`
	SubmittedAt   *time.Time `json:"submitted_at"`
	TimeRemaining *int       `json:"time_remaining"` // seconds, null until first sync

	// Scoring, null until scored
	Score      *float64 `json:"score"`
	Percentage *float64 `json:"percentage"`
	IsPassed   *bool    `json:"is_passed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Assessment *Assessment        `json:"assessment,omitempty" gorm:"foreignKey:AssessmentID"`
	Answers    []AssessmentAnswer `json:"answers,omitempty" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}

type AssessmentAnswer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_answer_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_answer_question;index"`

	// Array of option ids for choice questions, a string for identification.
	AnswerData datatypes.JSON `json:"answer_data" gorm:"type:jsonb;not null"`

	// Grading, null until scored
	IsCorrect    *bool    `json:"is_correct"`
	PointsEarned *float64 `json:"points_earned"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AssessmentAttempt) TableName() string {
	return "assessment_attempts"
}

func (AssessmentAnswer) TableName() string {
	return "assessment_answers"
}

// IsExpired applies the dual-path rule: a persisted countdown wins over
// wall-clock elapsed time.
func (a *AssessmentAttempt) IsExpired(timeLimitMinutes int, now time.Time) bool {
	if a.TimeRemaining != nil {
		return *a.TimeRemaining <= 0
	}
	return a.ElapsedSeconds(now) >= timeLimitMinutes*60
}

// RemainingSeconds mirrors IsExpired and never goes below zero.
func (a *AssessmentAttempt) RemainingSeconds(timeLimitMinutes int, now time.Time) int {
	var remaining int
	if a.TimeRemaining != nil {
		remaining = *a.TimeRemaining
	} else {
		remaining = timeLimitMinutes*60 - a.ElapsedSeconds(now)
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (a *AssessmentAttempt) ElapsedSeconds(now time.Time) int {
	elapsed := now.Sub(a.StartedAt)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / time.Second)
}
