package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
)

type AssessmentPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAssessmentPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (a *AssessmentPostgreSQL) Create(ctx context.Context, assessment *models.Assessment) error {
	if err := a.db.WithContext(ctx).Omit("Questions").Create(assessment).Error; err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	cache.SafeInvalidatePattern(ctx, a.cacheManager.Assessment, "list:*")
	return nil
}

func (a *AssessmentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Assessment, error) {
	var assessment models.Assessment
	if err := a.db.WithContext(ctx).First(&assessment, id).Error; err != nil {
		return nil, err
	}
	return &assessment, nil
}

// GetWithQuestions retrieves the assessment definition with caching
func (a *AssessmentPostgreSQL) GetWithQuestions(ctx context.Context, id uint) (*models.Assessment, error) {
	var assessment models.Assessment

	err := a.cacheManager.Assessment.CacheOrExecute(ctx, cache.DefinitionKey(id), &assessment, cache.AssessmentCacheConfig.TTL, func() (interface{}, error) {
		var dbAssessment models.Assessment
		err := a.db.WithContext(ctx).
			Preload("Questions", func(db *gorm.DB) *gorm.DB {
				return db.Order(`assessment_questions."order" ASC, assessment_questions.question_id ASC`)
			}).
			Preload("Questions.Question").
			Preload("Questions.Question.Options", func(db *gorm.DB) *gorm.DB {
				return db.Order(`question_options."order" ASC, question_options.id ASC`)
			}).
			First(&dbAssessment, id).Error
		if err != nil {
			return nil, err
		}

		dbAssessment.ComputeTotals()
		return &dbAssessment, nil
	})
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

// Update saves scalar columns and invalidates the cached definition
func (a *AssessmentPostgreSQL) Update(ctx context.Context, assessment *models.Assessment) error {
	if err := a.db.WithContext(ctx).Omit("Questions").Save(assessment).Error; err != nil {
		return fmt.Errorf("failed to update assessment: %w", err)
	}
	cache.InvalidateAssessmentCache(ctx, a.cacheManager, assessment.ID)
	return nil
}

func (a *AssessmentPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := a.db.WithContext(ctx).Delete(&models.Assessment{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete assessment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidateAssessmentCache(ctx, a.cacheManager, id)
	return nil
}

// ReplaceQuestions rewrites the ordered question links of an assessment.
// The cached definition is left for InvalidateCache.
func (a *AssessmentPostgreSQL) ReplaceQuestions(ctx context.Context, assessmentID uint, questionIDs []uint) error {
	db := a.db.WithContext(ctx)

	if err := db.Where("assessment_id = ?", assessmentID).Delete(&models.AssessmentQuestion{}).Error; err != nil {
		return fmt.Errorf("failed to clear assessment questions: %w", err)
	}

	if len(questionIDs) > 0 {
		links := make([]models.AssessmentQuestion, len(questionIDs))
		for i, qid := range questionIDs {
			links[i] = models.AssessmentQuestion{
				AssessmentID: assessmentID,
				QuestionID:   qid,
				Order:        i + 1,
			}
		}
		if err := db.Omit("Question").Create(&links).Error; err != nil {
			return fmt.Errorf("failed to attach questions: %w", err)
		}
	}
	return nil
}

func (a *AssessmentPostgreSQL) InvalidateCache(ctx context.Context, id uint) {
	cache.InvalidateAssessmentCache(ctx, a.cacheManager, id)
}

func (a *AssessmentPostgreSQL) List(ctx context.Context, filters repositories.AssessmentFilters) ([]*models.Assessment, int64, error) {
	var assessments []*models.Assessment
	var total int64

	query := applyAssessmentFilters(a.db.WithContext(ctx).Model(&models.Assessment{}), filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&assessments).Error; err != nil {
		return nil, 0, err
	}
	return assessments, total, nil
}

func (a *AssessmentPostgreSQL) HasAttempts(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Where("assessment_id = ?", id).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}
