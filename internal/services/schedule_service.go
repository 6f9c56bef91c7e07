package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
)

type scheduleService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	notifier  *eventNotifier
	clock     Clock

	quotaCountsExpired bool
}

func NewScheduleService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, clock Clock, quotaCountsExpired bool) ScheduleService {
	if clock == nil {
		clock = SystemClock()
	}
	return &scheduleService{
		repo:               repo,
		logger:             logger,
		validator:          validator,
		notifier:           newEventNotifier(publisher, logger),
		clock:              clock,
		quotaCountsExpired: quotaCountsExpired,
	}
}

// ===== ASSIGNMENT =====

func (s *scheduleService) AssignAssessment(ctx context.Context, scheduleID uint, req *AssignAssessmentRequest, staffID string) (*models.ScheduleAssessment, error) {
	s.logger.Info("Assigning assessment to schedule",
		"schedule_id", scheduleID,
		"assessment_id", req.AssessmentID,
		"staff_id", staffID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	schedule, err := s.getSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, req.AssessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if assessment.CourseID != schedule.CourseID {
		return nil, ErrCourseMismatch
	}

	if errs := s.validator.GetBusinessValidator().ValidateAssignmentWindow(schedule, req.AvailableFrom, req.AvailableUntil); len(errs) > 0 {
		return nil, errs
	}

	assignment := &models.ScheduleAssessment{
		ScheduleID:     scheduleID,
		AssessmentID:   req.AssessmentID,
		IsActive:       true,
		AvailableFrom:  req.AvailableFrom,
		AvailableUntil: req.AvailableUntil,
	}
	if req.IsActive != nil {
		assignment.IsActive = *req.IsActive
	}

	if err := s.repo.Schedule().CreateAssignment(ctx, assignment); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrAssignmentExists
		}
		return nil, fmt.Errorf("failed to assign assessment: %w", err)
	}

	s.notifier.Notify(ctx, events.ScheduleAssessmentAssigned, &events.ScheduleAssignmentEventData{
		ScheduleID:     scheduleID,
		AssessmentID:   req.AssessmentID,
		AvailableFrom:  req.AvailableFrom,
		AvailableUntil: req.AvailableUntil,
		AssignedBy:     staffID,
	})
	return assignment, nil
}

func (s *scheduleService) UpdateAssignment(ctx context.Context, scheduleID, assessmentID uint, req *UpdateAssignmentRequest, staffID string) (*models.ScheduleAssessment, error) {
	s.logger.Info("Updating schedule assignment",
		"schedule_id", scheduleID,
		"assessment_id", assessmentID,
		"staff_id", staffID)

	schedule, err := s.getSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	assignment, err := s.repo.Schedule().GetAssignment(ctx, scheduleID, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get schedule assignment: %w", err)
	}

	if errs := s.validator.GetBusinessValidator().ValidateAssignmentWindow(schedule, req.AvailableFrom, req.AvailableUntil); len(errs) > 0 {
		return nil, errs
	}

	if req.IsActive != nil {
		assignment.IsActive = *req.IsActive
	}
	assignment.AvailableFrom = req.AvailableFrom
	assignment.AvailableUntil = req.AvailableUntil

	if err := s.repo.Schedule().UpdateAssignment(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to update schedule assignment: %w", err)
	}
	return assignment, nil
}

// ===== TRAINEE VIEW =====

// ListScheduleAssessments returns the active assignments of a schedule with
// the trainee's attempt summary for each.
func (s *scheduleService) ListScheduleAssessments(ctx context.Context, scheduleID uint, traineeID string) ([]*ScheduleAssessmentItem, error) {
	if _, err := s.getSchedule(ctx, scheduleID); err != nil {
		return nil, err
	}

	enrolled, err := s.repo.Enrollment().IsEnrolledInSchedule(ctx, traineeID, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to check schedule enrollment: %w", err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	assignments, err := s.repo.Schedule().GetAssignments(ctx, scheduleID, true)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(assignments))
	for _, a := range assignments {
		if a.Assessment != nil && a.Assessment.IsActive {
			ids = append(ids, a.AssessmentID)
		}
	}

	summaries, err := s.repo.Attempt().GetSummaries(ctx, traineeID, ids)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	items := make([]*ScheduleAssessmentItem, 0, len(ids))
	for _, a := range assignments {
		if a.Assessment == nil || !a.Assessment.IsActive {
			continue
		}
		items = append(items, s.buildItem(a, summaries[a.AssessmentID], now))
	}
	return items, nil
}

func (s *scheduleService) buildItem(a *models.ScheduleAssessment, summary *repositories.AttemptSummary, now time.Time) *ScheduleAssessmentItem {
	if summary == nil {
		summary = &repositories.AttemptSummary{AssessmentID: a.AssessmentID}
	}

	used := summary.AttemptsCount
	if !s.quotaCountsExpired {
		used -= summary.ExpiredCount
	}

	item := &ScheduleAssessmentItem{
		AssessmentID:     a.AssessmentID,
		Title:            a.Assessment.Title,
		TimeLimit:        a.Assessment.TimeLimit,
		MaxAttempts:      a.Assessment.MaxAttempts,
		PassingScore:     a.Assessment.PassingScore,
		AvailableFrom:    a.AvailableFrom,
		AvailableUntil:   a.AvailableUntil,
		IsAvailable:      a.IsAvailableAt(now),
		AttemptsCount:    summary.AttemptsCount,
		HasActiveAttempt: summary.ActiveAttemptID != nil,
		ActiveAttemptID:  summary.ActiveAttemptID,
		BestScore:        summary.BestScore,
	}
	item.CanAttempt = item.IsAvailable && !item.HasActiveAttempt && used < a.Assessment.MaxAttempts
	return item
}

// ===== STAFF VIEW =====

// GetScheduleResults groups attempts per assessment and per enrolled trainee.
// Trainees without attempts are listed with an empty attempt list.
func (s *scheduleService) GetScheduleResults(ctx context.Context, scheduleID uint) (*ScheduleResultsResponse, error) {
	schedule, err := s.getSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.repo.Schedule().GetAssignments(ctx, scheduleID, false)
	if err != nil {
		return nil, err
	}

	trainees, err := s.repo.Enrollment().GetTraineesBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	response := &ScheduleResultsResponse{
		ScheduleID:  schedule.ID,
		CourseID:    schedule.CourseID,
		BatchNo:     schedule.BatchNo,
		Assessments: make([]AssessmentResultGroup, 0, len(assignments)),
	}
	if len(assignments) == 0 {
		return response, nil
	}

	ids := make([]uint, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.AssessmentID)
	}

	var attempts []*models.AssessmentAttempt
	if len(trainees) > 0 {
		attempts, _, err = s.repo.Attempt().List(ctx, repositories.AttemptFilters{
			AssessmentIDs: ids,
			TraineeIDs:    trainees,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list attempts: %w", err)
		}
	}

	byKey := make(map[resultKey][]AttemptResultRow)
	for _, at := range attempts {
		k := resultKey{assessmentID: at.AssessmentID, traineeID: at.TraineeID}
		byKey[k] = append(byKey[k], AttemptResultRow{
			AttemptID:     at.ID,
			AttemptNumber: at.AttemptNumber,
			Status:        at.Status,
			Score:         at.Score,
			Percentage:    at.Percentage,
			IsPassed:      at.IsPassed,
			StartedAt:     at.StartedAt,
			SubmittedAt:   at.SubmittedAt,
		})
	}

	for _, a := range assignments {
		group := AssessmentResultGroup{
			AssessmentID: a.AssessmentID,
			Trainees:     make([]TraineeResultGroup, 0, len(trainees)),
		}
		if a.Assessment != nil {
			group.Title = a.Assessment.Title
			group.PassingScore = a.Assessment.PassingScore
		}
		for _, traineeID := range trainees {
			rows := byKey[resultKey{assessmentID: a.AssessmentID, traineeID: traineeID}]
			if rows == nil {
				rows = []AttemptResultRow{}
			}
			group.Trainees = append(group.Trainees, TraineeResultGroup{
				TraineeID: traineeID,
				Attempts:  rows,
			})
		}
		response.Assessments = append(response.Assessments, group)
	}
	return response, nil
}

type resultKey struct {
	assessmentID uint
	traineeID    string
}

func (s *scheduleService) getSchedule(ctx context.Context, id uint) (*models.Schedule, error) {
	schedule, err := s.repo.Schedule().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return schedule, nil
}
