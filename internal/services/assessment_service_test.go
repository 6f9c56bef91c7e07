package services

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
)

func hasRule(err error, field, rule string) bool {
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, e := range verrs {
		if e.Field == field && e.Rule == rule {
			return true
		}
	}
	return false
}

func TestAssessmentService_Create(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAssessmentService(env.repo, env.logger, env.validator)
	seed := env.seedAssessment(t, 1, 50)
	foreign := &models.Question{CourseID: 99, QuestionText: "elsewhere", QuestionType: models.Identification, Points: 1}
	_ = env.repo.Question().Create(context.Background(), foreign)
	ctx := context.Background()

	base := func() *CreateAssessmentRequest {
		return &CreateAssessmentRequest{
			CourseID:     testCourseID,
			Title:        "Midterm",
			TimeLimit:    45,
			MaxAttempts:  2,
			PassingScore: 60,
			QuestionIDs:  []uint{seed.idID, seed.mcID},
		}
	}

	t.Run("creates with ordered questions", func(t *testing.T) {
		got, err := svc.Create(ctx, base(), testInstructor)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if !got.IsActive || got.CreatedBy != testInstructor || got.HasAttempts {
			t.Errorf("Create() = %+v", got.Assessment)
		}
		if got.QuestionsCount != 2 || got.TotalPoints != 4 {
			t.Errorf("totals = %d questions %v points, want 2 and 4", got.QuestionsCount, got.TotalPoints)
		}
		ordered := got.OrderedQuestions()
		if ordered[0].ID != seed.idID || ordered[1].ID != seed.mcID {
			t.Errorf("question order = %d, %d", ordered[0].ID, ordered[1].ID)
		}
	})

	t.Run("inactive on request", func(t *testing.T) {
		req := base()
		inactive := false
		req.IsActive = &inactive
		req.QuestionIDs = nil
		got, err := svc.Create(ctx, req, testInstructor)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if got.IsActive || got.QuestionsCount != 0 {
			t.Errorf("Create() = %+v", got.Assessment)
		}
	})

	tests := []struct {
		name   string
		mutate func(*CreateAssessmentRequest)
		field  string
		rule   string
	}{
		{name: "zero time limit", mutate: func(r *CreateAssessmentRequest) { r.TimeLimit = 0 }, field: "time_limit", rule: "required"},
		{name: "passing above 100", mutate: func(r *CreateAssessmentRequest) { r.PassingScore = 101 }, field: "passing_score", rule: "lte"},
		{name: "duplicate questions", mutate: func(r *CreateAssessmentRequest) { r.QuestionIDs = []uint{seed.mcID, seed.mcID} }, field: "question_ids", rule: "unique"},
		{name: "unknown question", mutate: func(r *CreateAssessmentRequest) { r.QuestionIDs = []uint{9999} }, field: "question_ids", rule: "exists"},
		{name: "question of another course", mutate: func(r *CreateAssessmentRequest) { r.QuestionIDs = []uint{foreign.ID} }, field: "question_ids", rule: "same_course"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(req)
			_, err := svc.Create(ctx, req, testInstructor)
			if !hasRule(err, tt.field, tt.rule) {
				t.Errorf("error = %v, want %s/%s", err, tt.field, tt.rule)
			}
		})
	}
}

func TestAssessmentService_GetByIDByRole(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAssessmentService(env.repo, env.logger, env.validator)
	seed := env.seedAssessment(t, 1, 50)
	ctx := context.Background()

	staff, err := svc.GetByID(ctx, seed.id, staffUser)
	if err != nil {
		t.Fatalf("GetByID() as staff error = %v", err)
	}
	if len(staff.Questions) != 3 {
		t.Errorf("staff questions = %d, want 3", len(staff.Questions))
	}

	trainee, err := svc.GetByID(ctx, seed.id, traineeUser)
	if err != nil {
		t.Fatalf("GetByID() as trainee error = %v", err)
	}
	if trainee.Questions != nil || trainee.QuestionsCount != 3 || trainee.TotalPoints != 6 {
		t.Errorf("trainee view = %+v", trainee.Assessment)
	}

	env.store.assessments[seed.id].IsActive = false
	_, err = svc.GetByID(ctx, seed.id, traineeUser)
	assertErrorIs(t, err, ErrAssessmentNotFound)
	if _, err := svc.GetByID(ctx, seed.id, staffUser); err != nil {
		t.Errorf("staff lost access to an inactive assessment: %v", err)
	}

	_, err = svc.GetByID(ctx, 4040, staffUser)
	assertErrorIs(t, err, ErrAssessmentNotFound)
}

func TestAssessmentService_Update(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAssessmentService(env.repo, env.logger, env.validator)
	seed := env.seedAssessment(t, 1, 50)
	ctx := context.Background()

	_, err := svc.Update(ctx, seed.id, &UpdateAssessmentRequest{}, testInstructor)
	if !hasRule(err, "request", "required") {
		t.Errorf("empty update error = %v", err)
	}

	title := "Renamed"
	attempts := 4
	got, err := svc.Update(ctx, seed.id, &UpdateAssessmentRequest{Title: &title, MaxAttempts: &attempts}, testInstructor)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Title != "Renamed" || got.MaxAttempts != 4 || got.TimeLimit != testTimeLimit || got.PassingScore != 50 {
		t.Errorf("Update() = %+v", got.Assessment)
	}

	_, err = svc.Update(ctx, 4040, &UpdateAssessmentRequest{Title: &title}, testInstructor)
	assertErrorIs(t, err, ErrAssessmentNotFound)
}

func TestAssessmentService_LockedOnceAttempted(t *testing.T) {
	env := newTestEnv(t)
	env.enroll(testTrainee, testCourseID, nil)
	svc := NewAssessmentService(env.repo, env.logger, env.validator)
	seed := env.seedAssessment(t, 1, 50)
	ctx := context.Background()

	reordered := &SetAssessmentQuestionsRequest{QuestionIDs: []uint{seed.mcID, seed.cbID}}
	got, err := svc.SetQuestions(ctx, seed.id, reordered, testInstructor)
	if err != nil {
		t.Fatalf("SetQuestions() error = %v", err)
	}
	if got.QuestionsCount != 2 || got.TotalPoints != 5 {
		t.Errorf("SetQuestions() totals = %d / %v", got.QuestionsCount, got.TotalPoints)
	}

	startAttempt(t, env, seed.id, testTrainee)

	_, err = svc.SetQuestions(ctx, seed.id, reordered, testInstructor)
	assertErrorIs(t, err, ErrAssessmentHasAttempts)
	assertErrorIs(t, svc.Delete(ctx, seed.id, testInstructor), ErrAssessmentHasAttempts)

	view, _ := svc.GetByID(ctx, seed.id, staffUser)
	if !view.HasAttempts {
		t.Error("staff view does not report attempts")
	}
}

func TestAssessmentService_DeleteAndList(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAssessmentService(env.repo, env.logger, env.validator)
	first := env.seedAssessment(t, 1, 50)
	env.seedAssessment(t, 1, 50)
	ctx := context.Background()

	courseID := testCourseID
	list, err := svc.List(ctx, repositories.AssessmentFilters{CourseID: &courseID, Limit: 10, Offset: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list.Total != 2 || list.Page != 2 || list.Size != 10 {
		t.Errorf("List() = total %d page %d size %d", list.Total, list.Page, list.Size)
	}

	if err := svc.Delete(ctx, first.id, testInstructor); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	assertErrorIs(t, svc.Delete(ctx, first.id, testInstructor), ErrAssessmentNotFound)
}

func TestQuestionService_Create(t *testing.T) {
	env := newTestEnv(t)
	svc := NewQuestionService(env.repo, env.logger, env.validator)
	ctx := context.Background()
	answer := "  Paris  "

	t.Run("identification", func(t *testing.T) {
		got, err := svc.Create(ctx, &CreateQuestionRequest{
			CourseID:      testCourseID,
			QuestionText:  "  Capital of France?  ",
			QuestionType:  models.Identification,
			Points:        2,
			CorrectAnswer: &answer,
		}, testInstructor)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if got.QuestionText != "Capital of France?" || *got.CorrectAnswer != "Paris" || got.Difficulty != models.DifficultyMedium {
			t.Errorf("Create() = %+v", got)
		}
	})

	t.Run("checkbox keeps option order", func(t *testing.T) {
		got, err := svc.Create(ctx, &CreateQuestionRequest{
			CourseID:     testCourseID,
			QuestionText: "Pick primes",
			QuestionType: models.Checkbox,
			Points:       1,
			Difficulty:   models.DifficultyHard,
			Options: []QuestionOptionRequest{
				{Text: "2", IsCorrect: true},
				{Text: "4"},
				{Text: " 7 ", IsCorrect: true},
			},
		}, testInstructor)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if len(got.Options) != 3 || got.Options[2].Order != 3 || got.Options[2].Text != "7" {
			t.Errorf("options = %+v", got.Options)
		}
		if len(got.CorrectOptionIDs()) != 2 {
			t.Errorf("correct options = %v", got.CorrectOptionIDs())
		}
	})

	tests := []struct {
		name  string
		req   *CreateQuestionRequest
		field string
		rule  string
	}{
		{
			name:  "multiple choice with two correct",
			req:   &CreateQuestionRequest{CourseID: testCourseID, QuestionText: "q", QuestionType: models.MultipleChoice, Points: 1, Options: []QuestionOptionRequest{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}}},
			field: "options", rule: "correct_options",
		},
		{
			name:  "single option",
			req:   &CreateQuestionRequest{CourseID: testCourseID, QuestionText: "q", QuestionType: models.Checkbox, Points: 1, Options: []QuestionOptionRequest{{Text: "a", IsCorrect: true}}},
			field: "options", rule: "option_count",
		},
		{
			name:  "identification without answer",
			req:   &CreateQuestionRequest{CourseID: testCourseID, QuestionText: "q", QuestionType: models.Identification, Points: 1},
			field: "correct_answer", rule: "required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req, testInstructor)
			if !hasRule(err, tt.field, tt.rule) {
				t.Errorf("error = %v, want %s/%s", err, tt.field, tt.rule)
			}
		})
	}
}

func TestQuestionService_Delete(t *testing.T) {
	env := newTestEnv(t)
	env.enroll(testTrainee, testCourseID, nil)
	svc := NewQuestionService(env.repo, env.logger, env.validator)
	seed := env.seedAssessment(t, 1, 50)
	ctx := context.Background()

	loose := &models.Question{CourseID: testCourseID, QuestionText: "unused", QuestionType: models.Identification, Points: 1}
	_ = env.repo.Question().Create(ctx, loose)

	startAttempt(t, env, seed.id, testTrainee)
	assertErrorIs(t, svc.Delete(ctx, seed.mcID, testInstructor), ErrQuestionInUse)

	if err := svc.Delete(ctx, loose.ID, testInstructor); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, err := svc.GetByID(ctx, loose.ID)
	assertErrorIs(t, err, ErrQuestionNotFound)
	assertErrorIs(t, svc.Delete(ctx, loose.ID, testInstructor), ErrQuestionNotFound)
}

func TestAssessmentService_SetQuestionsInvalidatesAfterCommit(t *testing.T) {
	env := newTestEnv(t)
	svc := NewAssessmentService(env.repo, env.logger, env.validator)
	seed := env.seedAssessment(t, 1, 50)
	ctx := context.Background()

	_, err := svc.SetQuestions(ctx, seed.id, &SetAssessmentQuestionsRequest{QuestionIDs: []uint{seed.mcID, 9999}}, testInstructor)
	if !hasRule(err, "question_ids", "exists") {
		t.Fatalf("unknown question error = %v", err)
	}
	if len(env.store.invalidations) != 0 {
		t.Errorf("rejected update invalidated %v", env.store.invalidations)
	}

	if _, err := svc.SetQuestions(ctx, seed.id, &SetAssessmentQuestionsRequest{QuestionIDs: []uint{seed.idID}}, testInstructor); err != nil {
		t.Fatalf("SetQuestions() error = %v", err)
	}
	if len(env.store.invalidations) != 1 || env.store.invalidations[0] != seed.id {
		t.Errorf("invalidations = %v, want [%d]", env.store.invalidations, seed.id)
	}
	if len(env.store.txInvalidations) != 0 {
		t.Errorf("cache invalidated inside the transaction: %v", env.store.txInvalidations)
	}
}
