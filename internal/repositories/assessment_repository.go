package repositories

import (
	"context"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

// AssessmentRepository interface for assessment-specific operations
type AssessmentRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, assessment *models.Assessment) error
	GetByID(ctx context.Context, id uint) (*models.Assessment, error)
	Update(ctx context.Context, assessment *models.Assessment) error
	Delete(ctx context.Context, id uint) error

	// GetWithQuestions loads the definition with ordered questions and their
	// options. Implementations may serve it from cache.
	GetWithQuestions(ctx context.Context, id uint) (*models.Assessment, error)

	// ReplaceQuestions swaps the ordered question list. Position in ids is the
	// display order.
	ReplaceQuestions(ctx context.Context, assessmentID uint, questionIDs []uint) error

	// InvalidateCache drops the cached definition. Callers run it after the
	// transaction that changed the definition has committed.
	InvalidateCache(ctx context.Context, id uint)

	List(ctx context.Context, filters AssessmentFilters) ([]*models.Assessment, int64, error)
	HasAttempts(ctx context.Context, id uint) (bool, error)
}
