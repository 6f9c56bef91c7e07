package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
)

type assessmentService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAssessmentService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) AssessmentService {
	return &assessmentService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *assessmentService) Create(ctx context.Context, req *CreateAssessmentRequest, creatorID string) (*AssessmentResponse, error) {
	s.logger.Info("Creating assessment",
		"title", req.Title,
		"course_id", req.CourseID,
		"creator_id", creatorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if len(req.QuestionIDs) > 0 {
		if err := s.checkQuestions(ctx, req.CourseID, req.QuestionIDs); err != nil {
			return nil, err
		}
	}

	assessment := &models.Assessment{
		CourseID:               req.CourseID,
		Title:                  req.Title,
		Description:            req.Description,
		Instructions:           req.Instructions,
		TimeLimit:              req.TimeLimit,
		MaxAttempts:            req.MaxAttempts,
		PassingScore:           req.PassingScore,
		IsActive:               true,
		RandomizeQuestions:     req.RandomizeQuestions,
		ShowResultsImmediately: req.ShowResultsImmediately,
		CreatedBy:              creatorID,
	}
	if req.IsActive != nil {
		assessment.IsActive = *req.IsActive
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Assessment().Create(ctx, assessment); err != nil {
			return err
		}
		if len(req.QuestionIDs) == 0 {
			return nil
		}
		return tx.Assessment().ReplaceQuestions(ctx, assessment.ID, req.QuestionIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}
	s.repo.Assessment().InvalidateCache(ctx, assessment.ID)

	s.logger.Info("Assessment created", "assessment_id", assessment.ID)
	return s.staffView(ctx, assessment.ID)
}

// GetByID returns the full definition to staff. Trainees get the header
// only; questions reach them through the attempt sheet.
func (s *assessmentService) GetByID(ctx context.Context, id uint, user *models.User) (*AssessmentResponse, error) {
	if user.Role.IsStaff() {
		return s.staffView(ctx, id)
	}

	assessment, err := s.getDefinition(ctx, id)
	if err != nil {
		return nil, err
	}
	if !assessment.IsActive {
		return nil, ErrAssessmentNotFound
	}
	return &AssessmentResponse{Assessment: withoutQuestions(assessment)}, nil
}

func (s *assessmentService) Update(ctx context.Context, id uint, req *UpdateAssessmentRequest, userID string) (*AssessmentResponse, error) {
	s.logger.Info("Updating assessment", "assessment_id", id, "user_id", userID)

	if errs := s.validator.GetBusinessValidator().ValidateAssessmentUpdate(req); len(errs) > 0 {
		return nil, errs
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	applyAssessmentUpdate(assessment, req)

	if err := s.repo.Assessment().Update(ctx, assessment); err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}

	return s.staffView(ctx, id)
}

func (s *assessmentService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting assessment", "assessment_id", id, "user_id", userID)

	hasAttempts, err := s.repo.Assessment().HasAttempts(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check attempts: %w", err)
	}
	if hasAttempts {
		return ErrAssessmentHasAttempts
	}

	if err := s.repo.Assessment().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAssessmentNotFound
		}
		return fmt.Errorf("failed to delete assessment: %w", err)
	}
	return nil
}

// SetQuestions replaces the ordered question list. It is refused once the
// assessment has attempts, since scoring reads the list.
func (s *assessmentService) SetQuestions(ctx context.Context, id uint, req *SetAssessmentQuestionsRequest, userID string) (*AssessmentResponse, error) {
	s.logger.Info("Setting assessment questions",
		"assessment_id", id,
		"questions_count", len(req.QuestionIDs),
		"user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	hasAttempts, err := s.repo.Assessment().HasAttempts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check attempts: %w", err)
	}
	if hasAttempts {
		return nil, ErrAssessmentHasAttempts
	}

	if err := s.checkQuestions(ctx, assessment.CourseID, req.QuestionIDs); err != nil {
		return nil, err
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		return tx.Assessment().ReplaceQuestions(ctx, id, req.QuestionIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set assessment questions: %w", err)
	}
	s.repo.Assessment().InvalidateCache(ctx, id)

	return s.staffView(ctx, id)
}

func (s *assessmentService) List(ctx context.Context, filters repositories.AssessmentFilters) (*AssessmentListResponse, error) {
	assessments, total, err := s.repo.Assessment().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	page, size := pageFromFilters(filters.Limit, filters.Offset)
	return &AssessmentListResponse{
		Assessments: assessments,
		Total:       total,
		Page:        page,
		Size:        size,
	}, nil
}
