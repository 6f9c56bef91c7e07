package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "lms-service"
	EventVersion = "1.0"
)

type EventType string

const (
	AttemptStarted             EventType = "attempt.started"
	AttemptSubmitted           EventType = "attempt.submitted"
	AttemptExpired             EventType = "attempt.expired"
	ScheduleAssessmentAssigned EventType = "schedule.assessment_assigned"
	MaterialUploaded           EventType = "material.uploaded"
)

// Event is the JSON envelope published for lifecycle notifications.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ===== EVENT PAYLOADS =====

type AttemptEventData struct {
	AttemptID     uint     `json:"attempt_id"`
	AssessmentID  uint     `json:"assessment_id"`
	TraineeID     string   `json:"trainee_id"`
	AttemptNumber int      `json:"attempt_number"`
	Score         *float64 `json:"score,omitempty"`
	Percentage    *float64 `json:"percentage,omitempty"`
	IsPassed      *bool    `json:"is_passed,omitempty"`
}

type ScheduleAssignmentEventData struct {
	ScheduleID     uint       `json:"schedule_id"`
	AssessmentID   uint       `json:"assessment_id"`
	AvailableFrom  *time.Time `json:"available_from,omitempty"`
	AvailableUntil *time.Time `json:"available_until,omitempty"`
	AssignedBy     string     `json:"assigned_by"`
}

type MaterialEventData struct {
	MaterialID uint   `json:"material_id"`
	CourseID   uint   `json:"course_id"`
	Title      string `json:"title"`
	UploadedBy string `json:"uploaded_by"`
}
