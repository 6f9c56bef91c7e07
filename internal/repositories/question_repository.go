package repositories

import (
	"context"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

// QuestionRepository interface for question-specific operations
type QuestionRepository interface {
	// Create inserts the question together with its options.
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error)
	GetByCourse(ctx context.Context, courseID uint, filters QuestionFilters) ([]*models.Question, int64, error)

	// Update saves the editable fields. When replaceOptions is set the stored
	// options are swapped for question.Options in the same transaction.
	Update(ctx context.Context, question *models.Question, replaceOptions bool) error
	Delete(ctx context.Context, id uint) error

	// IsUsedInAttemptedAssessment reports whether the question belongs to any
	// assessment that already has attempts.
	IsUsedInAttemptedAssessment(ctx context.Context, id uint) (bool, error)
}
