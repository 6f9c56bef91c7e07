package models

import (
	"sort"
	"time"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	Checkbox       QuestionType = "checkbox"
	Identification QuestionType = "identification"
)

func (t QuestionType) IsChoice() bool {
	return t == MultipleChoice || t == Checkbox
}

func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, Checkbox, Identification:
		return true
	}
	return false
}

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

type Question struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	CourseID     uint            `json:"course_id" gorm:"not null;index"`
	QuestionText string          `json:"question_text" gorm:"type:text;not null"`
	QuestionType QuestionType    `json:"question_type" gorm:"not null;size:32;index"`
	Points       float64         `json:"points" gorm:"not null;default:1;check:points >= 0.5"`
	Difficulty   DifficultyLevel `json:"difficulty" gorm:"size:16;default:medium"`
	Explanation  *string         `json:"explanation" gorm:"type:text"`

	// Identification questions only.
	CorrectAnswer *string `json:"correct_answer,omitempty" gorm:"type:text"`

	Order     int       `json:"order" gorm:"default:0"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedBy string    `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Options []QuestionOption `json:"options,omitempty" gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE"`
}

type QuestionOption struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool   `json:"is_correct" gorm:"not null;default:false"`
	Order      int    `json:"order" gorm:"default:0"`
}

func (Question) TableName() string {
	return "questions"
}

func (QuestionOption) TableName() string {
	return "question_options"
}

// CorrectOptionIDs returns the ids of options flagged correct, ascending.
func (q *Question) CorrectOptionIDs() []uint {
	var ids []uint
	for _, o := range q.Options {
		if o.IsCorrect {
			ids = append(ids, o.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortedOptions returns options by their persisted order.
func (q *Question) SortedOptions() []QuestionOption {
	opts := make([]QuestionOption, len(q.Options))
	copy(opts, q.Options)
	sort.SliceStable(opts, func(i, j int) bool {
		if opts[i].Order != opts[j].Order {
			return opts[i].Order < opts[j].Order
		}
		return opts[i].ID < opts[j].ID
	})
	return opts
}
