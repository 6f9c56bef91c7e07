package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
)

type questionService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewQuestionService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) QuestionService {
	return &questionService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

func (s *questionService) Create(ctx context.Context, req *CreateQuestionRequest, creatorID string) (*models.Question, error) {
	s.logger.Info("Creating question",
		"creator_id", creatorID,
		"course_id", req.CourseID,
		"type", req.QuestionType)

	if errs := s.validator.GetBusinessValidator().ValidateQuestionCreate(req); len(errs) > 0 {
		return nil, errs
	}

	question := buildQuestion(req, creatorID)
	if err := s.repo.Question().Create(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}

	s.logger.Info("Question created", "question_id", question.ID)
	return question, nil
}

func (s *questionService) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	question, err := s.repo.Question().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

// Update edits a question in place. Like Delete it is refused once an
// assessment using the question has attempts.
func (s *questionService) Update(ctx context.Context, id uint, req *UpdateQuestionRequest, userID string) (*models.Question, error) {
	s.logger.Info("Updating question", "question_id", id, "user_id", userID)

	question, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged, errs := s.validator.GetBusinessValidator().ValidateQuestionUpdate(question, req)
	if len(errs) > 0 {
		return nil, errs
	}

	inUse, err := s.repo.Question().IsUsedInAttemptedAssessment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check question usage: %w", err)
	}
	if inUse {
		return nil, ErrQuestionInUse
	}

	updated := buildQuestion(merged, question.CreatedBy)
	updated.ID = question.ID
	updated.Order = question.Order
	updated.IsActive = question.IsActive
	updated.CreatedAt = question.CreatedAt
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	replaceOptions := req.Options != nil
	if !replaceOptions {
		updated.Options = question.Options
	}

	if err := s.repo.Question().Update(ctx, updated, replaceOptions); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to update question: %w", err)
	}

	s.logger.Info("Question updated", "question_id", id, "options_replaced", replaceOptions)
	return updated, nil
}

func (s *questionService) ListByCourse(ctx context.Context, courseID uint, filters repositories.QuestionFilters) (*QuestionListResponse, error) {
	questions, total, err := s.repo.Question().GetByCourse(ctx, courseID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	page, size := pageFromFilters(filters.Limit, filters.Offset)
	return &QuestionListResponse{
		Questions: questions,
		Total:     total,
		Page:      page,
		Size:      size,
	}, nil
}

// Delete refuses questions that graded attempts depend on.
func (s *questionService) Delete(ctx context.Context, id uint, userID string) error {
	s.logger.Info("Deleting question", "question_id", id, "user_id", userID)

	inUse, err := s.repo.Question().IsUsedInAttemptedAssessment(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check question usage: %w", err)
	}
	if inUse {
		return ErrQuestionInUse
	}

	if err := s.repo.Question().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}
	return nil
}

func buildQuestion(req *CreateQuestionRequest, creatorID string) *models.Question {
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyMedium
	}

	question := &models.Question{
		CourseID:     req.CourseID,
		QuestionText: strings.TrimSpace(req.QuestionText),
		QuestionType: req.QuestionType,
		Points:       req.Points,
		Difficulty:   difficulty,
		Explanation:  req.Explanation,
		IsActive:     true,
		CreatedBy:    creatorID,
	}

	if req.QuestionType == models.Identification {
		answer := strings.TrimSpace(*req.CorrectAnswer)
		question.CorrectAnswer = &answer
		return question
	}

	question.Options = make([]models.QuestionOption, 0, len(req.Options))
	for i, opt := range req.Options {
		question.Options = append(question.Options, models.QuestionOption{
			Text:      strings.TrimSpace(opt.Text),
			IsCorrect: opt.IsCorrect,
			Order:     i + 1,
		})
	}
	return question
}
