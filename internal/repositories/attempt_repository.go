package repositories

import (
	"context"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

// AttemptRepository interface for attempt-specific operations. Attempts are
// always read from the database.
type AttemptRepository interface {
	// Create inserts a new attempt. A violation of either uniqueness guard
	// surfaces as an error satisfying IsDuplicateError.
	Create(ctx context.Context, attempt *models.AssessmentAttempt) error
	GetByID(ctx context.Context, id uint) (*models.AssessmentAttempt, error)
	GetByIDWithAnswers(ctx context.Context, id uint) (*models.AssessmentAttempt, error)

	// GetActiveAttempt returns the in_progress attempt or a not-found error.
	GetActiveAttempt(ctx context.Context, traineeID string, assessmentID uint) (*models.AssessmentAttempt, error)
	CountAttempts(ctx context.Context, traineeID string, assessmentID uint, includeExpired bool) (int, error)
	GetNextAttemptNumber(ctx context.Context, traineeID string, assessmentID uint) (int, error)
	GetByTraineeAndAssessment(ctx context.Context, traineeID string, assessmentID uint) ([]*models.AssessmentAttempt, error)
	GetSummaries(ctx context.Context, traineeID string, assessmentIDs []uint) (map[uint]*AttemptSummary, error)
	List(ctx context.Context, filters AttemptFilters) ([]*models.AssessmentAttempt, int64, error)

	// Finalize moves an in_progress attempt to a final state. It reports
	// false when the attempt was no longer in_progress.
	Finalize(ctx context.Context, id uint, result AttemptFinalization) (bool, error)

	// UpdateScore overwrites the scoring columns without touching status.
	UpdateScore(ctx context.Context, id uint, score, percentage float64, passed bool) error

	// UpdateTimeRemaining persists the countdown while in_progress. It reports
	// false when the attempt was no longer in_progress.
	UpdateTimeRemaining(ctx context.Context, id uint, seconds int) (bool, error)

	// GetLapsed returns in_progress attempts whose time has run out at now.
	GetLapsed(ctx context.Context, now time.Time, limit int) ([]*models.AssessmentAttempt, error)
}

// AnswerRepository interface for answer operations
type AnswerRepository interface {
	// Upsert stores the answer keyed by (attempt_id, question_id); the last
	// write wins and clears any earlier grade.
	Upsert(ctx context.Context, answer *models.AssessmentAnswer) error
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AssessmentAnswer, error)
	GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.AssessmentAnswer, error)

	// ApplyGrades writes scoring results onto existing answer rows.
	ApplyGrades(ctx context.Context, attemptID uint, grades []AnswerGrade) error
}
