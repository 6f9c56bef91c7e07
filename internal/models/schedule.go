package models

import "time"

// Schedule is a cohort/batch of a course with its own date range.
type Schedule struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CourseID  uint      `json:"course_id" gorm:"not null;index"`
	BatchNo   string    `json:"batch_no" gorm:"size:50"`
	StartDate time.Time `json:"start_date" gorm:"not null"`
	EndDate   time.Time `json:"end_date" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contains reports whether t falls within the schedule, end date inclusive
// through the end of that day.
func (s *Schedule) Contains(t time.Time) bool {
	endOfDay := time.Date(s.EndDate.Year(), s.EndDate.Month(), s.EndDate.Day(), 23, 59, 59, 0, s.EndDate.Location())
	return !t.Before(s.StartDate) && !t.After(endOfDay)
}

type EnrollmentStatus string

const (
	EnrollmentActive  EnrollmentStatus = "active"
	EnrollmentPending EnrollmentStatus = "pending"
	EnrollmentDropped EnrollmentStatus = "dropped"
)

type Enrollment struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	TraineeID  string           `json:"trainee_id" gorm:"not null;size:255;index:idx_enrollment_trainee_course"`
	CourseID   uint             `json:"course_id" gorm:"not null;index:idx_enrollment_trainee_course"`
	ScheduleID *uint            `json:"schedule_id" gorm:"index"`
	Status     EnrollmentStatus `json:"status" gorm:"not null;size:20;default:active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduleAssessment assigns an assessment to a schedule with an optional
// availability window.
type ScheduleAssessment struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	ScheduleID     uint       `json:"schedule_id" gorm:"not null;uniqueIndex:idx_schedule_assessment"`
	AssessmentID   uint       `json:"assessment_id" gorm:"not null;uniqueIndex:idx_schedule_assessment;index"`
	IsActive       bool       `json:"is_active" gorm:"not null;default:true"`
	AvailableFrom  *time.Time `json:"available_from"`
	AvailableUntil *time.Time `json:"available_until"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Schedule   *Schedule   `json:"schedule,omitempty" gorm:"foreignKey:ScheduleID"`
	Assessment *Assessment `json:"assessment,omitempty" gorm:"foreignKey:AssessmentID"`
}

func (Schedule) TableName() string {
	return "schedules"
}

func (Enrollment) TableName() string {
	return "enrollments"
}

func (ScheduleAssessment) TableName() string {
	return "schedule_assessments"
}

// IsAvailableAt reports whether the assignment is active and t is within the
// window. Missing bounds are open.
func (sa *ScheduleAssessment) IsAvailableAt(t time.Time) bool {
	if !sa.IsActive {
		return false
	}
	if sa.AvailableFrom != nil && t.Before(*sa.AvailableFrom) {
		return false
	}
	if sa.AvailableUntil != nil && t.After(*sa.AvailableUntil) {
		return false
	}
	return true
}
