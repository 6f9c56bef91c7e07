package repositories

import (
	"context"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

type MaterialRepository interface {
	Create(ctx context.Context, material *models.TrainingMaterial) error
	GetByID(ctx context.Context, id uint) (*models.TrainingMaterial, error)
	Delete(ctx context.Context, id uint) error
	GetByCourse(ctx context.Context, courseID uint, filters MaterialFilters) ([]*models.TrainingMaterial, int64, error)
}
