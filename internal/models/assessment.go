package models

import (
	"sort"
	"time"
)

type Assessment struct {
	ID           uint    `json:"id" gorm:"primaryKey"`
	CourseID     uint    `json:"course_id" gorm:"not null;index"`
	Title        string  `json:"title" gorm:"not null;size:200;index"`
	Description  *string `json:"description" gorm:"type:text"`
	Instructions *string `json:"instructions" gorm:"type:text"`

	TimeLimit    int     `json:"time_limit" gorm:"not null;check:time_limit >= 1"` // minutes
	MaxAttempts  int     `json:"max_attempts" gorm:"not null;default:1;check:max_attempts >= 1"`
	PassingScore float64 `json:"passing_score" gorm:"not null;check:passing_score >= 0 AND passing_score <= 100"`

	IsActive               bool `json:"is_active" gorm:"not null;default:true;index"`
	RandomizeQuestions     bool `json:"randomize_questions" gorm:"not null;default:false"`
	ShowResultsImmediately bool `json:"show_results_immediately" gorm:"not null;default:false"`

	// Metadata
	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Questions []AssessmentQuestion `json:"questions,omitempty" gorm:"foreignKey:AssessmentID;constraint:OnDelete:CASCADE"`

	// Computed fields (not stored)
	QuestionsCount int     `json:"questions_count" gorm:"-"`
	TotalPoints    float64 `json:"total_points" gorm:"-"`
}

// AssessmentQuestion orders a question inside an assessment.
type AssessmentQuestion struct {
	ID           uint `json:"id" gorm:"primaryKey"`
	AssessmentID uint `json:"assessment_id" gorm:"not null;uniqueIndex:idx_assessment_question"`
	QuestionID   uint `json:"question_id" gorm:"not null;uniqueIndex:idx_assessment_question;index"`
	Order        int  `json:"order" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Question Question `json:"question" gorm:"foreignKey:QuestionID"`
}

func (Assessment) TableName() string {
	return "assessments"
}

func (AssessmentQuestion) TableName() string {
	return "assessment_questions"
}

// OrderedQuestions returns the attached questions in assessment-defined order.
func (a *Assessment) OrderedQuestions() []Question {
	links := make([]AssessmentQuestion, len(a.Questions))
	copy(links, a.Questions)
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].Order != links[j].Order {
			return links[i].Order < links[j].Order
		}
		return links[i].QuestionID < links[j].QuestionID
	})
	questions := make([]Question, 0, len(links))
	for _, l := range links {
		questions = append(questions, l.Question)
	}
	return questions
}

// ComputeTotals fills QuestionsCount and TotalPoints from the loaded questions.
func (a *Assessment) ComputeTotals() {
	a.QuestionsCount = len(a.Questions)
	a.TotalPoints = 0
	for _, l := range a.Questions {
		a.TotalPoints += l.Question.Points
	}
}

// HasQuestion reports whether questionID is attached to the assessment.
func (a *Assessment) HasQuestion(questionID uint) bool {
	for _, l := range a.Questions {
		if l.QuestionID == questionID {
			return true
		}
	}
	return false
}
