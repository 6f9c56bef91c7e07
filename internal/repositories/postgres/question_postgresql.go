package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/lms-service/internal/cache"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewQuestionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.QuestionRepository {
	return &QuestionPostgreSQL{
		db:           db,
		cacheManager: cacheManager,
	}
}

// Create inserts the question and its options in one statement set
func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	if err := q.db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question

	err := q.cacheManager.Question.CacheOrExecute(ctx, fmt.Sprintf("id:%d", id), &question, cache.QuestionCacheConfig.TTL, func() (interface{}, error) {
		var dbQuestion models.Question
		if err := q.db.WithContext(ctx).Preload("Options").First(&dbQuestion, id).Error; err != nil {
			return nil, err
		}
		return &dbQuestion, nil
	})
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) GetByIDs(ctx context.Context, ids []uint) ([]*models.Question, error) {
	var questions []*models.Question
	if len(ids) == 0 {
		return questions, nil
	}
	if err := q.db.WithContext(ctx).Preload("Options").Where("id IN ?", ids).Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

func (q *QuestionPostgreSQL) GetByCourse(ctx context.Context, courseID uint, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	var questions []*models.Question
	var total int64

	query := q.db.WithContext(ctx).Model(&models.Question{}).Where("course_id = ?", courseID)
	if filters.QuestionType != nil {
		query = query.Where("question_type = ?", *filters.QuestionType)
	}
	if filters.Difficulty != nil {
		query = query.Where("difficulty = ?", *filters.Difficulty)
	}
	if filters.Search != "" {
		query = query.Where("question_text ILIKE ?", "%"+filters.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count questions: %w", err)
	}

	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Preload("Options").Find(&questions).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, total, nil
}

func (q *QuestionPostgreSQL) Update(ctx context.Context, question *models.Question, replaceOptions bool) error {
	question.UpdatedAt = time.Now()
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(question).
			Select("question_text", "points", "difficulty", "explanation", "correct_answer", "is_active", "updated_at").
			Updates(question)
		if result.Error != nil {
			return fmt.Errorf("failed to update question: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if !replaceOptions {
			return nil
		}
		if err := tx.Where("question_id = ?", question.ID).Delete(&models.QuestionOption{}).Error; err != nil {
			return fmt.Errorf("failed to clear options: %w", err)
		}
		if len(question.Options) == 0 {
			return nil
		}
		for i := range question.Options {
			question.Options[i].ID = 0
			question.Options[i].QuestionID = question.ID
		}
		if err := tx.Create(&question.Options).Error; err != nil {
			return fmt.Errorf("failed to create options: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, question.ID)
	return nil
}

// Delete removes the question with its assessment links and options
func (q *QuestionPostgreSQL) Delete(ctx context.Context, id uint) error {
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", id).Delete(&models.AssessmentQuestion{}).Error; err != nil {
			return fmt.Errorf("failed to detach question: %w", err)
		}

		result := tx.Select("Options").Delete(&models.Question{ID: id})
		if result.Error != nil {
			return fmt.Errorf("failed to delete question: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	cache.InvalidateQuestionCache(ctx, q.cacheManager, id)
	return nil
}

func (q *QuestionPostgreSQL) IsUsedInAttemptedAssessment(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Table("assessment_questions").
		Joins("JOIN assessment_attempts ON assessment_attempts.assessment_id = assessment_questions.assessment_id").
		Where("assessment_questions.question_id = ?", id).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}
