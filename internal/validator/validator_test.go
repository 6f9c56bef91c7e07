package validator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

func strPtr(s string) *string { return &s }

func hasField(errs ValidationErrors, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidate_AssessmentCreate(t *testing.T) {
	v := New()

	valid := AssessmentCreateRequest{
		CourseID:     1,
		Title:        "Week 1 quiz",
		TimeLimit:    30,
		MaxAttempts:  2,
		PassingScore: 70,
	}

	tests := []struct {
		name      string
		mutate    func(r *AssessmentCreateRequest)
		wantField string
	}{
		{name: "valid", mutate: func(r *AssessmentCreateRequest) {}},
		{name: "missing course", mutate: func(r *AssessmentCreateRequest) { r.CourseID = 0 }, wantField: "course_id"},
		{name: "blank title", mutate: func(r *AssessmentCreateRequest) { r.Title = "   " }, wantField: "title"},
		{name: "zero time limit", mutate: func(r *AssessmentCreateRequest) { r.TimeLimit = 0 }, wantField: "time_limit"},
		{name: "zero attempts", mutate: func(r *AssessmentCreateRequest) { r.MaxAttempts = 0 }, wantField: "max_attempts"},
		{name: "passing score above 100", mutate: func(r *AssessmentCreateRequest) { r.PassingScore = 100.5 }, wantField: "passing_score"},
		{name: "negative passing score", mutate: func(r *AssessmentCreateRequest) { r.PassingScore = -1 }, wantField: "passing_score"},
		{name: "duplicate question ids", mutate: func(r *AssessmentCreateRequest) { r.QuestionIDs = []uint{1, 1} }, wantField: "question_ids"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)

			err := v.Validate(&req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error on %s", tt.wantField)
			}
			errs, ok := err.(ValidationErrors)
			if !ok {
				t.Fatalf("Validate() error type = %T, want ValidationErrors", err)
			}
			if !hasField(errs, tt.wantField) {
				t.Errorf("Validate() errors = %+v, want field %s", errs, tt.wantField)
			}
		})
	}
}

func TestValidate_SyncTimeRejectsNegative(t *testing.T) {
	v := New()

	neg := -1
	if err := v.Validate(&SyncTimeRequest{TimeRemaining: &neg}); err == nil {
		t.Error("negative time_remaining should be rejected")
	}
	if err := v.Validate(&SyncTimeRequest{}); err == nil {
		t.Error("missing time_remaining should be rejected")
	}
	zero := 0
	if err := v.Validate(&SyncTimeRequest{TimeRemaining: &zero}); err != nil {
		t.Errorf("zero time_remaining should pass: %v", err)
	}
}

func TestValidate_SaveAnswerRequiresPayload(t *testing.T) {
	v := New()

	if err := v.Validate(&SaveAnswerRequest{}); err == nil {
		t.Error("empty answer should be rejected")
	}
	if err := v.Validate(&SaveAnswerRequest{Answer: json.RawMessage(`[1]`)}); err != nil {
		t.Errorf("answer payload should pass: %v", err)
	}
}

func TestBusinessValidator_QuestionDefinition(t *testing.T) {
	bv := New().GetBusinessValidator()

	twoOptions := func(correctA, correctB bool) []QuestionOptionRequest {
		return []QuestionOptionRequest{{Text: "A", IsCorrect: correctA}, {Text: "B", IsCorrect: correctB}}
	}

	tests := []struct {
		name      string
		req       QuestionCreateRequest
		wantField string
	}{
		{
			name: "multiple choice valid",
			req:  QuestionCreateRequest{QuestionType: models.MultipleChoice, Options: twoOptions(false, true)},
		},
		{
			name:      "multiple choice two correct",
			req:       QuestionCreateRequest{QuestionType: models.MultipleChoice, Options: twoOptions(true, true)},
			wantField: "options",
		},
		{
			name:      "multiple choice no correct",
			req:       QuestionCreateRequest{QuestionType: models.MultipleChoice, Options: twoOptions(false, false)},
			wantField: "options",
		},
		{
			name: "checkbox two correct",
			req:  QuestionCreateRequest{QuestionType: models.Checkbox, Options: twoOptions(true, true)},
		},
		{
			name:      "checkbox single option",
			req:       QuestionCreateRequest{QuestionType: models.Checkbox, Options: []QuestionOptionRequest{{Text: "A", IsCorrect: true}}},
			wantField: "options",
		},
		{
			name:      "choice with correct answer text",
			req:       QuestionCreateRequest{QuestionType: models.Checkbox, Options: twoOptions(true, false), CorrectAnswer: strPtr("A")},
			wantField: "correct_answer",
		},
		{
			name: "identification valid",
			req:  QuestionCreateRequest{QuestionType: models.Identification, CorrectAnswer: strPtr("Paris")},
		},
		{
			name:      "identification blank answer",
			req:       QuestionCreateRequest{QuestionType: models.Identification, CorrectAnswer: strPtr("  ")},
			wantField: "correct_answer",
		},
		{
			name:      "identification with options",
			req:       QuestionCreateRequest{QuestionType: models.Identification, CorrectAnswer: strPtr("Paris"), Options: twoOptions(true, false)},
			wantField: "options",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.CourseID = 1
			req.QuestionText = "Question?"
			req.Points = 1

			errs := bv.ValidateQuestionCreate(&req)
			if tt.wantField == "" {
				if len(errs) > 0 {
					t.Fatalf("ValidateQuestionCreate() unexpected errors: %+v", errs)
				}
				return
			}
			if !hasField(errs, tt.wantField) {
				t.Errorf("ValidateQuestionCreate() errors = %+v, want field %s", errs, tt.wantField)
			}
		})
	}
}

func TestBusinessValidator_QuestionPointsFloor(t *testing.T) {
	bv := New().GetBusinessValidator()
	req := QuestionCreateRequest{
		CourseID:      1,
		QuestionText:  "Capital of France?",
		QuestionType:  models.Identification,
		Points:        0.25,
		CorrectAnswer: strPtr("Paris"),
	}
	if errs := bv.ValidateQuestionCreate(&req); !hasField(errs, "points") {
		t.Errorf("points below 0.5 should be rejected, got %+v", errs)
	}
}

func TestBusinessValidator_AssignmentWindow(t *testing.T) {
	bv := New().GetBusinessValidator()
	schedule := &models.Schedule{
		StartDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	at := func(day, hour int) *time.Time {
		t := time.Date(2025, 6, day, hour, 0, 0, 0, time.UTC)
		return &t
	}

	tests := []struct {
		name      string
		from      *time.Time
		until     *time.Time
		wantField string
	}{
		{name: "open window"},
		{name: "inside", from: at(2, 8), until: at(5, 17)},
		{name: "end date inclusive", from: at(29, 8), until: at(30, 23)},
		{name: "reversed", from: at(5, 8), until: at(2, 8), wantField: "available_from"},
		{name: "before schedule", from: func() *time.Time { t := time.Date(2025, 5, 31, 23, 0, 0, 0, time.UTC); return &t }(), wantField: "available_from"},
		{name: "after schedule", until: func() *time.Time { t := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC); return &t }(), wantField: "available_until"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateAssignmentWindow(schedule, tt.from, tt.until)
			if tt.wantField == "" {
				if len(errs) > 0 {
					t.Fatalf("unexpected errors: %+v", errs)
				}
				return
			}
			if !hasField(errs, tt.wantField) {
				t.Errorf("errors = %+v, want field %s", errs, tt.wantField)
			}
		})
	}
}

func TestBusinessValidator_AssessmentUpdateNeedsAField(t *testing.T) {
	bv := New().GetBusinessValidator()
	if errs := bv.ValidateAssessmentUpdate(&AssessmentUpdateRequest{}); !hasField(errs, "request") {
		t.Errorf("empty update should be rejected, got %+v", errs)
	}
	title := "Renamed"
	if errs := bv.ValidateAssessmentUpdate(&AssessmentUpdateRequest{Title: &title}); len(errs) > 0 {
		t.Errorf("title-only update should pass, got %+v", errs)
	}
}
