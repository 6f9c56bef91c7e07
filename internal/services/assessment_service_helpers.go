package services

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
)

func (s *assessmentService) getDefinition(ctx context.Context, id uint) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetWithQuestions(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return assessment, nil
}

func (s *assessmentService) staffView(ctx context.Context, id uint) (*AssessmentResponse, error) {
	assessment, err := s.getDefinition(ctx, id)
	if err != nil {
		return nil, err
	}

	hasAttempts, err := s.repo.Assessment().HasAttempts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check attempts: %w", err)
	}
	return &AssessmentResponse{Assessment: assessment, HasAttempts: hasAttempts}, nil
}

// checkQuestions verifies that every id exists and belongs to the course.
func (s *assessmentService) checkQuestions(ctx context.Context, courseID uint, questionIDs []uint) error {
	questions, err := s.repo.Question().GetByIDs(ctx, questionIDs)
	if err != nil {
		return fmt.Errorf("failed to get questions: %w", err)
	}

	found := make(map[uint]*models.Question, len(questions))
	for _, q := range questions {
		found[q.ID] = q
	}

	var errs ValidationErrors
	for _, id := range questionIDs {
		q, ok := found[id]
		switch {
		case !ok:
			errs = append(errs, ValidationError{
				Field:   "question_ids",
				Message: fmt.Sprintf("question %d does not exist", id),
				Value:   id,
				Rule:    "exists",
			})
		case q.CourseID != courseID:
			errs = append(errs, ValidationError{
				Field:   "question_ids",
				Message: fmt.Sprintf("question %d belongs to another course", id),
				Value:   id,
				Rule:    "same_course",
			})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func applyAssessmentUpdate(a *models.Assessment, req *UpdateAssessmentRequest) {
	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Description != nil {
		a.Description = req.Description
	}
	if req.Instructions != nil {
		a.Instructions = req.Instructions
	}
	if req.TimeLimit != nil {
		a.TimeLimit = *req.TimeLimit
	}
	if req.MaxAttempts != nil {
		a.MaxAttempts = *req.MaxAttempts
	}
	if req.PassingScore != nil {
		a.PassingScore = *req.PassingScore
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	if req.RandomizeQuestions != nil {
		a.RandomizeQuestions = *req.RandomizeQuestions
	}
	if req.ShowResultsImmediately != nil {
		a.ShowResultsImmediately = *req.ShowResultsImmediately
	}
}

// withoutQuestions copies the header and computed totals.
func withoutQuestions(a *models.Assessment) *models.Assessment {
	header := *a
	header.Questions = nil
	return &header
}

func pageFromFilters(limit, offset int) (page, size int) {
	if limit <= 0 {
		return 1, 0
	}
	return offset/limit + 1, limit
}
