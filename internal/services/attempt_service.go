package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/lms-service/internal/events"
	"github.com/SAP-F-2025/lms-service/internal/metrics"
	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
)

// AttemptServiceOptions carries the engine's collaborators. Nil fields fall
// back to no-op or default implementations.
type AttemptServiceOptions struct {
	Grading   GradingService
	Publisher events.EventPublisher
	Metrics   *metrics.Metrics
	Clock     Clock

	// QuotaCountsExpired makes expired attempts count toward max_attempts.
	QuotaCountsExpired bool
}

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	grading   GradingService
	notifier  *eventNotifier
	metrics   *metrics.Metrics
	clock     Clock

	quotaCountsExpired bool
}

func NewAttemptService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, opts AttemptServiceOptions) AttemptService {
	if opts.Grading == nil {
		opts.Grading = NewGradingService(logger)
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	return &attemptService{
		repo:               repo,
		logger:             logger,
		validator:          validator,
		grading:            opts.Grading,
		notifier:           newEventNotifier(opts.Publisher, logger),
		metrics:            opts.Metrics,
		clock:              opts.Clock,
		quotaCountsExpired: opts.QuotaCountsExpired,
	}
}

// ===== STARTING ATTEMPTS =====

func (s *attemptService) StartAttempt(ctx context.Context, assessmentID uint, traineeID string) (*StartAttemptResponse, error) {
	s.logger.Info("Starting assessment attempt",
		"assessment_id", assessmentID,
		"trainee_id", traineeID)

	assessment, err := s.getActiveAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.repo.Enrollment().IsEnrolledInCourse(ctx, traineeID, assessment.CourseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	return s.createAttempt(ctx, assessment, traineeID)
}

func (s *attemptService) StartScheduledAttempt(ctx context.Context, scheduleID, assessmentID uint, traineeID string) (*StartAttemptResponse, error) {
	s.logger.Info("Starting scheduled assessment attempt",
		"schedule_id", scheduleID,
		"assessment_id", assessmentID,
		"trainee_id", traineeID)

	enrolled, err := s.repo.Enrollment().IsEnrolledInSchedule(ctx, traineeID, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to check schedule enrollment: %w", err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	assignment, err := s.repo.Schedule().GetAssignment(ctx, scheduleID, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get schedule assignment: %w", err)
	}

	assessment, err := s.getActiveAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	if !assignment.IsAvailableAt(s.clock.Now()) {
		return nil, ErrAssessmentUnavailable
	}

	return s.createAttempt(ctx, assessment, traineeID)
}

// createAttempt runs the shared tail of both start variants: active attempt
// check, quota check, then the numbered insert.
func (s *attemptService) createAttempt(ctx context.Context, assessment *models.Assessment, traineeID string) (*StartAttemptResponse, error) {
	now := s.clock.Now()

	active, err := s.repo.Attempt().GetActiveAttempt(ctx, traineeID, assessment.ID)
	switch {
	case err == nil:
		if !active.IsExpired(assessment.TimeLimit, now) {
			return nil, ErrAttemptAlreadyActive
		}
		if err := s.expireLapsed(ctx, active, now); err != nil {
			return nil, err
		}
	case !repositories.IsNotFoundError(err):
		return nil, fmt.Errorf("failed to check active attempt: %w", err)
	}

	count, err := s.repo.Attempt().CountAttempts(ctx, traineeID, assessment.ID, s.quotaCountsExpired)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	if count >= assessment.MaxAttempts {
		return nil, ErrAttemptLimitExceeded
	}

	attempt := &models.AssessmentAttempt{
		AssessmentID: assessment.ID,
		TraineeID:    traineeID,
		Status:       models.AttemptInProgress,
		StartedAt:    now,
	}
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		next, err := tx.Attempt().GetNextAttemptNumber(ctx, traineeID, assessment.ID)
		if err != nil {
			return fmt.Errorf("failed to get next attempt number: %w", err)
		}
		attempt.AttemptNumber = next
		return tx.Attempt().Create(ctx, attempt)
	})
	if err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrAttemptAlreadyActive
		}
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.metrics.AttemptStarted()
	s.notifier.Notify(ctx, events.AttemptStarted, attemptEventData(attempt, nil))
	s.logger.Info("Assessment attempt started",
		"attempt_id", attempt.ID,
		"attempt_number", attempt.AttemptNumber,
		"assessment_id", assessment.ID,
		"trainee_id", traineeID)

	return &StartAttemptResponse{
		AttemptID:     attempt.ID,
		AttemptNumber: attempt.AttemptNumber,
		StartedAt:     attempt.StartedAt,
		TimeLimit:     assessment.TimeLimit,
		TimeRemaining: attempt.RemainingSeconds(assessment.TimeLimit, now),
	}, nil
}

// ===== TAKING ATTEMPTS =====

func (s *attemptService) GetAttemptQuestions(ctx context.Context, assessmentID uint, traineeID string) (*AttemptSheetResponse, error) {
	assessment, err := s.getDefinition(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	attempt, err := s.repo.Attempt().GetActiveAttempt(ctx, traineeID, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get active attempt: %w", err)
	}

	now := s.clock.Now()
	if attempt.IsExpired(assessment.TimeLimit, now) {
		if err := s.finalizeExpired(ctx, attempt, assessment, now); err != nil {
			return nil, err
		}
		return nil, ErrAttemptTimeExpired
	}

	answers, err := s.repo.Answer().GetByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}

	return buildAttemptSheet(assessment, attempt, answers, now), nil
}

func (s *attemptService) SaveAnswer(ctx context.Context, attemptID, questionID uint, req *SaveAnswerRequest, traineeID string) (*SaveAnswerResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	attempt, err := s.getOwnedAttempt(ctx, attemptID, traineeID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}

	assessment, err := s.getDefinition(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if attempt.IsExpired(assessment.TimeLimit, now) {
		if err := s.finalizeExpired(ctx, attempt, assessment, now); err != nil {
			return nil, err
		}
		return nil, ErrAttemptTimeExpired
	}

	if !assessment.HasQuestion(questionID) {
		return nil, ErrQuestionNotInAssessment
	}

	payload := bytes.TrimSpace(req.Answer)
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) || !json.Valid(payload) {
		return nil, ValidationErrors{{
			Field:   "answer",
			Message: "must be a JSON array of option ids or a string",
			Rule:    "answer_payload",
		}}
	}

	answer := &models.AssessmentAnswer{
		AttemptID:  attempt.ID,
		QuestionID: questionID,
		AnswerData: datatypes.JSON(payload),
	}
	if err := s.repo.Answer().Upsert(ctx, answer); err != nil {
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}

	s.logger.Debug("Answer saved",
		"attempt_id", attempt.ID,
		"question_id", questionID)

	return &SaveAnswerResponse{
		AttemptID:     attempt.ID,
		QuestionID:    questionID,
		TimeRemaining: attempt.RemainingSeconds(assessment.TimeLimit, now),
		SavedAt:       now,
	}, nil
}

// SyncTimeRemaining persists the client's countdown. The stored value never
// grows, and reaching zero expires the attempt.
func (s *attemptService) SyncTimeRemaining(ctx context.Context, attemptID uint, req *SyncTimeRequest, traineeID string) (*AttemptStatusResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	attempt, err := s.getOwnedAttempt(ctx, attemptID, traineeID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptNotActive
	}

	assessment, err := s.getDefinition(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if attempt.IsExpired(assessment.TimeLimit, now) {
		if err := s.finalizeExpired(ctx, attempt, assessment, now); err != nil {
			return nil, err
		}
		return nil, ErrAttemptTimeExpired
	}

	remaining := min(*req.TimeRemaining, attempt.RemainingSeconds(assessment.TimeLimit, now))
	if remaining <= 0 {
		if err := s.finalizeExpired(ctx, attempt, assessment, now); err != nil {
			return nil, err
		}
		return &AttemptStatusResponse{
			AttemptID: attempt.ID,
			Status:    models.AttemptExpired,
			IsExpired: true,
		}, nil
	}

	updated, err := s.repo.Attempt().UpdateTimeRemaining(ctx, attempt.ID, remaining)
	if err != nil {
		return nil, fmt.Errorf("failed to update time remaining: %w", err)
	}
	if !updated {
		return nil, s.finalizedConflict(ctx, attempt.ID)
	}

	return &AttemptStatusResponse{
		AttemptID:     attempt.ID,
		Status:        models.AttemptInProgress,
		TimeRemaining: remaining,
	}, nil
}

// ===== FINALIZING ATTEMPTS =====

func (s *attemptService) Submit(ctx context.Context, attemptID uint, traineeID string) (*SubmitResponse, error) {
	s.logger.Info("Submitting assessment attempt",
		"attempt_id", attemptID,
		"trainee_id", traineeID)

	attempt, err := s.getOwnedAttempt(ctx, attemptID, traineeID)
	if err != nil {
		return nil, err
	}
	switch attempt.Status {
	case models.AttemptSubmitted:
		return nil, ErrAttemptAlreadySubmitted
	case models.AttemptExpired:
		return nil, ErrAttemptNotActive
	}

	assessment, err := s.getDefinition(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if attempt.IsExpired(assessment.TimeLimit, now) {
		if err := s.finalizeExpired(ctx, attempt, assessment, now); err != nil {
			return nil, err
		}
		return nil, ErrAttemptTimeExpired
	}

	remaining := attempt.RemainingSeconds(assessment.TimeLimit, now)
	result, err := s.finalize(ctx, attempt, assessment, repositories.AttemptFinalization{
		Status:        models.AttemptSubmitted,
		SubmittedAt:   &now,
		TimeRemaining: remaining,
	})
	if err != nil {
		if errors.Is(err, errFinalizeLost) {
			return nil, s.finalizedConflict(ctx, attempt.ID)
		}
		return nil, err
	}

	s.logger.Info("Assessment attempt submitted",
		"attempt_id", attempt.ID,
		"score", result.Score,
		"percentage", result.Percentage,
		"is_passed", result.IsPassed)

	return &SubmitResponse{
		AttemptID:     attempt.ID,
		Status:        models.AttemptSubmitted,
		Score:         result.Score,
		TotalPoints:   result.TotalPoints,
		Percentage:    result.Percentage,
		IsPassed:      result.IsPassed,
		SubmittedAt:   now,
		TimeRemaining: remaining,
	}, nil
}

func (s *attemptService) Expire(ctx context.Context, attemptID uint) (bool, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrAttemptNotFound
		}
		return false, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.Status != models.AttemptInProgress {
		return false, nil
	}

	assessment, err := s.getDefinition(ctx, attempt.AssessmentID)
	if err != nil {
		return false, err
	}

	now := s.clock.Now()
	if !attempt.IsExpired(assessment.TimeLimit, now) {
		return false, nil
	}

	_, err = s.finalize(ctx, attempt, assessment, repositories.AttemptFinalization{
		Status: models.AttemptExpired,
	})
	if errors.Is(err, errFinalizeLost) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ===== READING ATTEMPTS =====

func (s *attemptService) GetStatus(ctx context.Context, attemptID uint, traineeID string) (*AttemptStatusResponse, error) {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, traineeID)
	if err != nil {
		return nil, err
	}

	if attempt.Status == models.AttemptInProgress {
		assessment, err := s.getDefinition(ctx, attempt.AssessmentID)
		if err != nil {
			return nil, err
		}

		now := s.clock.Now()
		if !attempt.IsExpired(assessment.TimeLimit, now) {
			return &AttemptStatusResponse{
				AttemptID:     attempt.ID,
				Status:        models.AttemptInProgress,
				TimeRemaining: attempt.RemainingSeconds(assessment.TimeLimit, now),
			}, nil
		}

		if err := s.finalizeExpired(ctx, attempt, assessment, now); err != nil {
			return nil, err
		}
		if attempt, err = s.repo.Attempt().GetByID(ctx, attemptID); err != nil {
			return nil, fmt.Errorf("failed to reload attempt: %w", err)
		}
	}

	status := &AttemptStatusResponse{
		AttemptID: attempt.ID,
		Status:    attempt.Status,
		IsExpired: attempt.Status == models.AttemptExpired,
	}
	if attempt.TimeRemaining != nil && *attempt.TimeRemaining > 0 {
		status.TimeRemaining = *attempt.TimeRemaining
	}
	return status, nil
}

func (s *attemptService) GetResult(ctx context.Context, attemptID uint, user *models.User) (*AttemptResultResponse, error) {
	attempt, err := s.repo.Attempt().GetByIDWithAnswers(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if !user.Role.IsStaff() && attempt.TraineeID != user.ID {
		return nil, ErrAttemptNotFound
	}

	assessment, err := s.getDefinition(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	if attempt.Status == models.AttemptInProgress {
		now := s.clock.Now()
		if !attempt.IsExpired(assessment.TimeLimit, now) {
			return nil, ErrAttemptInProgress
		}
		if err := s.finalizeExpired(ctx, attempt, assessment, now); err != nil {
			return nil, err
		}
		if attempt, err = s.repo.Attempt().GetByIDWithAnswers(ctx, attemptID); err != nil {
			return nil, fmt.Errorf("failed to reload attempt: %w", err)
		}
	}

	reveal := assessment.ShowResultsImmediately || user.Role.IsStaff()
	return buildAttemptResult(assessment, attempt, reveal), nil
}

func (s *attemptService) ListMyAttempts(ctx context.Context, assessmentID uint, traineeID string) ([]*models.AssessmentAttempt, error) {
	if _, err := s.repo.Assessment().GetByID(ctx, assessmentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	attempts, err := s.repo.Attempt().GetByTraineeAndAssessment(ctx, traineeID, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

// RecomputeScore re-runs scoring on a finalized attempt and overwrites the
// stored grades. The status does not change.
func (s *attemptService) RecomputeScore(ctx context.Context, attemptID uint, staffID string) (*ScoreResult, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if !attempt.Status.IsFinal() {
		return nil, ErrAttemptInProgress
	}

	assessment, err := s.getDefinition(ctx, attempt.AssessmentID)
	if err != nil {
		return nil, err
	}

	var result *ScoreResult
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		answers, err := tx.Answer().GetByAttempt(ctx, attempt.ID)
		if err != nil {
			return fmt.Errorf("failed to get answers: %w", err)
		}
		result = s.grading.ScoreAttempt(assessment, answers)
		if err := tx.Answer().ApplyGrades(ctx, attempt.ID, result.Grades); err != nil {
			return fmt.Errorf("failed to write grades: %w", err)
		}
		return tx.Attempt().UpdateScore(ctx, attempt.ID, result.Score, result.Percentage, result.IsPassed)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to recompute score: %w", err)
	}

	s.logger.Info("Attempt score recomputed",
		"attempt_id", attempt.ID,
		"staff_id", staffID,
		"score", result.Score,
		"percentage", result.Percentage)

	return result, nil
}
