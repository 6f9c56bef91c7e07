package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
)

type EnrollmentPostgreSQL struct {
	db *gorm.DB
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{db: db}
}

func (e *EnrollmentPostgreSQL) IsEnrolledInCourse(ctx context.Context, traineeID string, courseID uint) (bool, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("trainee_id = ? AND course_id = ? AND status = ?", traineeID, courseID, models.EnrollmentActive).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return count > 0, nil
}

func (e *EnrollmentPostgreSQL) IsEnrolledInSchedule(ctx context.Context, traineeID string, scheduleID uint) (bool, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("trainee_id = ? AND schedule_id = ? AND status = ?", traineeID, scheduleID, models.EnrollmentActive).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check schedule enrollment: %w", err)
	}
	return count > 0, nil
}

func (e *EnrollmentPostgreSQL) GetTraineesBySchedule(ctx context.Context, scheduleID uint) ([]string, error) {
	var trainees []string
	err := e.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Distinct("trainee_id").
		Where("schedule_id = ? AND status = ?", scheduleID, models.EnrollmentActive).
		Order("trainee_id ASC").
		Pluck("trainee_id", &trainees).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule trainees: %w", err)
	}
	return trainees, nil
}

type SchedulePostgreSQL struct {
	db *gorm.DB
}

func NewSchedulePostgreSQL(db *gorm.DB) repositories.ScheduleRepository {
	return &SchedulePostgreSQL{db: db}
}

func (s *SchedulePostgreSQL) GetByID(ctx context.Context, id uint) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := s.db.WithContext(ctx).First(&schedule, id).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

// CreateAssignment relies on idx_schedule_assessment for duplicate detection
func (s *SchedulePostgreSQL) CreateAssignment(ctx context.Context, assignment *models.ScheduleAssessment) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(assignment).Error
}

func (s *SchedulePostgreSQL) GetAssignment(ctx context.Context, scheduleID, assessmentID uint) (*models.ScheduleAssessment, error) {
	var assignment models.ScheduleAssessment
	if err := s.db.WithContext(ctx).
		Where("schedule_id = ? AND assessment_id = ?", scheduleID, assessmentID).
		First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (s *SchedulePostgreSQL) UpdateAssignment(ctx context.Context, assignment *models.ScheduleAssessment) error {
	return s.db.WithContext(ctx).
		Model(assignment).
		Select("is_active", "available_from", "available_until").
		Updates(assignment).Error
}

func (s *SchedulePostgreSQL) GetAssignments(ctx context.Context, scheduleID uint, activeOnly bool) ([]*models.ScheduleAssessment, error) {
	var assignments []*models.ScheduleAssessment
	query := s.db.WithContext(ctx).
		Preload("Assessment").
		Where("schedule_id = ?", scheduleID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Order("id ASC").Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list schedule assessments: %w", err)
	}
	return assignments, nil
}
