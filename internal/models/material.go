package models

import "time"

// TrainingMaterial owns one secure file. FilePath is the encrypted path
// returned by the secure file store; the blob is never web accessible.
type TrainingMaterial struct {
	ID           uint    `json:"id" gorm:"primaryKey"`
	CourseID     uint    `json:"course_id" gorm:"not null;index"`
	Title        string  `json:"title" gorm:"not null;size:255"`
	Description  *string `json:"description" gorm:"type:text"`
	FilePath     string  `json:"-" gorm:"not null;size:500"`
	OriginalName string  `json:"original_name" gorm:"not null;size:255"`
	MimeType     string  `json:"mime_type" gorm:"not null;size:150"`
	FileSize     int64   `json:"file_size" gorm:"not null"`
	UploadedBy   string  `json:"uploaded_by" gorm:"not null;size:255"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TrainingMaterial) TableName() string {
	return "training_materials"
}
