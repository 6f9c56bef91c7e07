package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
)

type MaterialPostgreSQL struct {
	db *gorm.DB
}

func NewMaterialPostgreSQL(db *gorm.DB) repositories.MaterialRepository {
	return &MaterialPostgreSQL{db: db}
}

func (m *MaterialPostgreSQL) Create(ctx context.Context, material *models.TrainingMaterial) error {
	if err := m.db.WithContext(ctx).Create(material).Error; err != nil {
		return fmt.Errorf("failed to create material: %w", err)
	}
	return nil
}

func (m *MaterialPostgreSQL) GetByID(ctx context.Context, id uint) (*models.TrainingMaterial, error) {
	var material models.TrainingMaterial
	if err := m.db.WithContext(ctx).First(&material, id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (m *MaterialPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := m.db.WithContext(ctx).Delete(&models.TrainingMaterial{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete material: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (m *MaterialPostgreSQL) GetByCourse(ctx context.Context, courseID uint, filters repositories.MaterialFilters) ([]*models.TrainingMaterial, int64, error) {
	var materials []*models.TrainingMaterial
	var total int64

	query := m.db.WithContext(ctx).Model(&models.TrainingMaterial{}).Where("course_id = ?", courseID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, "created_at", "desc", filters.Limit, filters.Offset)
	if err := query.Find(&materials).Error; err != nil {
		return nil, 0, err
	}
	return materials, total, nil
}
