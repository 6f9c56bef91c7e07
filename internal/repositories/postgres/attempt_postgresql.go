package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.AssessmentAttempt) error {
	return a.db.WithContext(ctx).Omit(clause.Associations).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.AssessmentAttempt, error) {
	var attempt models.AssessmentAttempt
	if err := a.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDWithAnswers(ctx context.Context, id uint) (*models.AssessmentAttempt, error) {
	var attempt models.AssessmentAttempt
	if err := a.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_id ASC")
		}).
		First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetActiveAttempt(ctx context.Context, traineeID string, assessmentID uint) (*models.AssessmentAttempt, error) {
	var attempt models.AssessmentAttempt
	if err := a.db.WithContext(ctx).
		Where("trainee_id = ? AND assessment_id = ? AND status = ?", traineeID, assessmentID, models.AttemptInProgress).
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) CountAttempts(ctx context.Context, traineeID string, assessmentID uint, includeExpired bool) (int, error) {
	var count int64
	query := a.db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Where("trainee_id = ? AND assessment_id = ?", traineeID, assessmentID)
	if !includeExpired {
		query = query.Where("status <> ?", models.AttemptExpired)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return int(count), nil
}

func (a *AttemptPostgreSQL) GetNextAttemptNumber(ctx context.Context, traineeID string, assessmentID uint) (int, error) {
	var maxNumber int
	err := a.db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Select("COALESCE(MAX(attempt_number), 0)").
		Where("trainee_id = ? AND assessment_id = ?", traineeID, assessmentID).
		Scan(&maxNumber).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get next attempt number: %w", err)
	}
	return maxNumber + 1, nil
}

// GetByTraineeAndAssessment returns the trainee's attempts, newest first
func (a *AttemptPostgreSQL) GetByTraineeAndAssessment(ctx context.Context, traineeID string, assessmentID uint) ([]*models.AssessmentAttempt, error) {
	var attempts []*models.AssessmentAttempt
	if err := a.db.WithContext(ctx).
		Where("trainee_id = ? AND assessment_id = ?", traineeID, assessmentID).
		Order("attempt_number DESC").
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to get attempts by trainee and assessment: %w", err)
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) GetSummaries(ctx context.Context, traineeID string, assessmentIDs []uint) (map[uint]*repositories.AttemptSummary, error) {
	summaries := make(map[uint]*repositories.AttemptSummary, len(assessmentIDs))
	if len(assessmentIDs) == 0 {
		return summaries, nil
	}

	var attempts []*models.AssessmentAttempt
	if err := a.db.WithContext(ctx).
		Select("id, assessment_id, status, score").
		Where("trainee_id = ? AND assessment_id IN ?", traineeID, assessmentIDs).
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to summarize attempts: %w", err)
	}

	return summarizeAttempts(assessmentIDs, attempts), nil
}

func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.AssessmentAttempt, int64, error) {
	var attempts []*models.AssessmentAttempt
	var total int64

	query := applyAttemptFilters(a.db.WithContext(ctx).Model(&models.AssessmentAttempt{}), filters)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, "started_at", "asc", filters.Limit, filters.Offset)
	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

// Finalize is a compare-and-set on status; only one caller can win it
func (a *AttemptPostgreSQL) Finalize(ctx context.Context, id uint, result repositories.AttemptFinalization) (bool, error) {
	res := a.db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":         result.Status,
			"submitted_at":   result.SubmittedAt,
			"time_remaining": result.TimeRemaining,
			"score":          result.Score,
			"percentage":     result.Percentage,
			"is_passed":      result.IsPassed,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to finalize attempt: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (a *AttemptPostgreSQL) UpdateScore(ctx context.Context, id uint, score, percentage float64, passed bool) error {
	return a.db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"score":      score,
			"percentage": percentage,
			"is_passed":  passed,
		}).Error
}

func (a *AttemptPostgreSQL) UpdateTimeRemaining(ctx context.Context, id uint, seconds int) (bool, error) {
	res := a.db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress).
		Update("time_remaining", seconds)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update time remaining: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// GetLapsed applies the dual-path expiry rule in SQL: a stored countdown wins,
// otherwise started_at plus the time limit.
func (a *AttemptPostgreSQL) GetLapsed(ctx context.Context, now time.Time, limit int) ([]*models.AssessmentAttempt, error) {
	var attempts []*models.AssessmentAttempt
	query := a.db.WithContext(ctx).
		Model(&models.AssessmentAttempt{}).
		Joins("JOIN assessments ON assessments.id = assessment_attempts.assessment_id").
		Where("assessment_attempts.status = ?", models.AttemptInProgress).
		Where(`((assessment_attempts.time_remaining IS NOT NULL AND assessment_attempts.time_remaining <= 0)
			OR (assessment_attempts.time_remaining IS NULL
				AND assessment_attempts.started_at + assessments.time_limit * INTERVAL '1 minute' <= ?))`, now).
		Order("assessment_attempts.started_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to get lapsed attempts: %w", err)
	}
	return attempts, nil
}

func summarizeAttempts(assessmentIDs []uint, attempts []*models.AssessmentAttempt) map[uint]*repositories.AttemptSummary {
	summaries := make(map[uint]*repositories.AttemptSummary, len(assessmentIDs))
	for _, id := range assessmentIDs {
		summaries[id] = &repositories.AttemptSummary{AssessmentID: id}
	}

	for _, attempt := range attempts {
		s, ok := summaries[attempt.AssessmentID]
		if !ok {
			continue
		}
		s.AttemptsCount++
		switch attempt.Status {
		case models.AttemptInProgress:
			id := attempt.ID
			s.ActiveAttemptID = &id
		case models.AttemptExpired:
			s.ExpiredCount++
		}
		if attempt.Status.IsFinal() && attempt.Score != nil {
			if s.BestScore == nil || *attempt.Score > *s.BestScore {
				score := *attempt.Score
				s.BestScore = &score
			}
		}
	}
	return summaries
}

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

// Upsert overwrites the payload and clears the grade on conflict
func (ar *AnswerPostgreSQL) Upsert(ctx context.Context, answer *models.AssessmentAnswer) error {
	answer.IsCorrect = nil
	answer.PointsEarned = nil
	return ar.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"answer_data", "is_correct", "points_earned", "updated_at"}),
		}).
		Create(answer).Error
}

func (ar *AnswerPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AssessmentAnswer, error) {
	var answers []*models.AssessmentAnswer
	if err := ar.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("question_id ASC").
		Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	return answers, nil
}

func (ar *AnswerPostgreSQL) GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID uint) (*models.AssessmentAnswer, error) {
	var answer models.AssessmentAnswer
	if err := ar.db.WithContext(ctx).
		Where("attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

func (ar *AnswerPostgreSQL) ApplyGrades(ctx context.Context, attemptID uint, grades []repositories.AnswerGrade) error {
	db := ar.db.WithContext(ctx)
	for _, g := range grades {
		err := db.Model(&models.AssessmentAnswer{}).
			Where("attempt_id = ? AND question_id = ?", attemptID, g.QuestionID).
			Updates(map[string]interface{}{
				"is_correct":    g.IsCorrect,
				"points_earned": g.PointsEarned,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to grade answer for question %d: %w", g.QuestionID, err)
		}
	}
	return nil
}
