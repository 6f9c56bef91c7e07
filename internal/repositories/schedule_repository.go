package repositories

import (
	"context"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

// EnrollmentRepository answers membership questions. Only active enrollments
// grant access.
type EnrollmentRepository interface {
	IsEnrolledInCourse(ctx context.Context, traineeID string, courseID uint) (bool, error)
	IsEnrolledInSchedule(ctx context.Context, traineeID string, scheduleID uint) (bool, error)
	GetTraineesBySchedule(ctx context.Context, scheduleID uint) ([]string, error)
}

// ScheduleRepository interface for schedules and their assessment assignments
type ScheduleRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Schedule, error)

	CreateAssignment(ctx context.Context, assignment *models.ScheduleAssessment) error
	GetAssignment(ctx context.Context, scheduleID, assessmentID uint) (*models.ScheduleAssessment, error)
	UpdateAssignment(ctx context.Context, assignment *models.ScheduleAssessment) error

	// GetAssignments lists assignments with their assessments loaded.
	GetAssignments(ctx context.Context, scheduleID uint, activeOnly bool) ([]*models.ScheduleAssessment, error)
}
