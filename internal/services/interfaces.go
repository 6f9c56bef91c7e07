package services

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/validator"
)

// ===== REQUEST DTOs =====

// Use business validator types
type CreateAssessmentRequest = validator.AssessmentCreateRequest
type UpdateAssessmentRequest = validator.AssessmentUpdateRequest
type SetAssessmentQuestionsRequest = validator.AssessmentQuestionsRequest
type CreateQuestionRequest = validator.QuestionCreateRequest
type UpdateQuestionRequest = validator.QuestionUpdateRequest
type QuestionOptionRequest = validator.QuestionOptionRequest
type SaveAnswerRequest = validator.SaveAnswerRequest
type SyncTimeRequest = validator.SyncTimeRequest
type AssignAssessmentRequest = validator.AssignAssessmentRequest
type UpdateAssignmentRequest = validator.AssignmentUpdateRequest
type UploadMaterialRequest = validator.MaterialUploadRequest

// ===== ASSESSMENT RELATED DTOs =====

type AssessmentResponse struct {
	*models.Assessment
	HasAttempts bool `json:"has_attempts"`
}

type AssessmentListResponse struct {
	Assessments []*models.Assessment `json:"assessments"`
	Total       int64                `json:"total"`
	Page        int                  `json:"page"`
	Size        int                  `json:"size"`
}

// ===== ATTEMPT RELATED DTOs =====

type StartAttemptResponse struct {
	AttemptID     uint      `json:"attempt_id"`
	AttemptNumber int       `json:"attempt_number"`
	StartedAt     time.Time `json:"started_at"`
	TimeLimit     int       `json:"time_limit"`     // minutes
	TimeRemaining int       `json:"time_remaining"` // seconds
}

// AttemptSheetResponse is the trainee's view of an active attempt. It never
// carries correctness data.
type AttemptSheetResponse struct {
	Assessment SheetAssessment `json:"assessment"`
	Attempt    SheetAttempt    `json:"attempt"`
	Questions  []SheetQuestion `json:"questions"`
}

type SheetAssessment struct {
	ID             uint    `json:"id"`
	Title          string  `json:"title"`
	Instructions   *string `json:"instructions"`
	TimeLimit      int     `json:"time_limit"`
	QuestionsCount int     `json:"questions_count"`
	TotalPoints    float64 `json:"total_points"`
}

type SheetAttempt struct {
	ID            uint      `json:"id"`
	AttemptNumber int       `json:"attempt_number"`
	StartedAt     time.Time `json:"started_at"`
	TimeRemaining int       `json:"time_remaining"`
}

type SheetQuestion struct {
	ID           uint                `json:"id"`
	QuestionText string              `json:"question_text"`
	QuestionType models.QuestionType `json:"question_type"`
	Points       float64             `json:"points"`
	Options      []SheetOption       `json:"options,omitempty"`
	SavedAnswer  json.RawMessage     `json:"saved_answer"`
}

type SheetOption struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type SaveAnswerResponse struct {
	AttemptID     uint      `json:"attempt_id"`
	QuestionID    uint      `json:"question_id"`
	TimeRemaining int       `json:"time_remaining"`
	SavedAt       time.Time `json:"saved_at"`
}

type AttemptStatusResponse struct {
	AttemptID     uint                 `json:"attempt_id"`
	Status        models.AttemptStatus `json:"status"`
	TimeRemaining int                  `json:"time_remaining"`
	IsExpired     bool                 `json:"is_expired"`
}

type SubmitResponse struct {
	AttemptID     uint                 `json:"attempt_id"`
	Status        models.AttemptStatus `json:"status"`
	Score         float64              `json:"score"`
	TotalPoints   float64              `json:"total_points"`
	Percentage    float64              `json:"percentage"`
	IsPassed      bool                 `json:"is_passed"`
	SubmittedAt   time.Time            `json:"submitted_at"`
	TimeRemaining int                  `json:"time_remaining"`
}

type AttemptResultResponse struct {
	Attempt     *models.AssessmentAttempt `json:"attempt"`
	TotalPoints float64                   `json:"total_points"`
	Revealed    bool                      `json:"revealed"`
	Questions   []QuestionResult          `json:"questions"`
}

// QuestionResult is one row of a finalized attempt. Correct answers and
// explanations are only filled when the result is revealed.
type QuestionResult struct {
	QuestionID       uint                `json:"question_id"`
	QuestionText     string              `json:"question_text"`
	QuestionType     models.QuestionType `json:"question_type"`
	Points           float64             `json:"points"`
	Answer           json.RawMessage     `json:"answer"`
	IsCorrect        bool                `json:"is_correct"`
	PointsEarned     float64             `json:"points_earned"`
	Options          []SheetOption       `json:"options,omitempty"`
	CorrectOptionIDs []uint              `json:"correct_option_ids,omitempty"`
	CorrectAnswer    *string             `json:"correct_answer,omitempty"`
	Explanation      *string             `json:"explanation,omitempty"`
}

// ===== GRADING RELATED DTOs =====

type ScoreResult struct {
	Score       float64                    `json:"score"`
	TotalPoints float64                    `json:"total_points"`
	Percentage  float64                    `json:"percentage"`
	IsPassed    bool                       `json:"is_passed"`
	Grades      []repositories.AnswerGrade `json:"grades"`
}

// ===== SCHEDULE RELATED DTOs =====

type ScheduleAssessmentItem struct {
	AssessmentID     uint       `json:"assessment_id"`
	Title            string     `json:"title"`
	TimeLimit        int        `json:"time_limit"`
	MaxAttempts      int        `json:"max_attempts"`
	PassingScore     float64    `json:"passing_score"`
	AvailableFrom    *time.Time `json:"available_from"`
	AvailableUntil   *time.Time `json:"available_until"`
	IsAvailable      bool       `json:"is_available"`
	AttemptsCount    int        `json:"attempts_count"`
	CanAttempt       bool       `json:"can_attempt"`
	HasActiveAttempt bool       `json:"has_active_attempt"`
	ActiveAttemptID  *uint      `json:"active_attempt_id"`
	BestScore        *float64   `json:"best_score"`
}

type ScheduleResultsResponse struct {
	ScheduleID  uint                    `json:"schedule_id"`
	CourseID    uint                    `json:"course_id"`
	BatchNo     string                  `json:"batch_no"`
	Assessments []AssessmentResultGroup `json:"assessments"`
}

type AssessmentResultGroup struct {
	AssessmentID uint                 `json:"assessment_id"`
	Title        string               `json:"title"`
	PassingScore float64              `json:"passing_score"`
	Trainees     []TraineeResultGroup `json:"trainees"`
}

type TraineeResultGroup struct {
	TraineeID string             `json:"trainee_id"`
	Attempts  []AttemptResultRow `json:"attempts"`
}

type AttemptResultRow struct {
	AttemptID     uint                 `json:"attempt_id"`
	AttemptNumber int                  `json:"attempt_number"`
	Status        models.AttemptStatus `json:"status"`
	Score         *float64             `json:"score"`
	Percentage    *float64             `json:"percentage"`
	IsPassed      *bool                `json:"is_passed"`
	StartedAt     time.Time            `json:"started_at"`
	SubmittedAt   *time.Time           `json:"submitted_at"`
}

// ===== FILE RELATED DTOs =====

// StoredFile describes a blob written by the secure file store. Size and
// MimeType describe the plaintext.
type StoredFile struct {
	OriginalName  string `json:"original_name"`
	StoredName    string `json:"stored_name"`
	EncryptedPath string `json:"encrypted_path"`
	Size          int64  `json:"size"`
	MimeType      string `json:"mime_type"`
}

type SecureFileInfo struct {
	EncryptedPath string `json:"encrypted_path"`
	Exists        bool   `json:"exists"`
	EncryptedSize int64  `json:"encrypted_size"`
	PlaintextSize int64  `json:"plaintext_size"`
}

type UploadedFile struct {
	Name     string
	MimeType string
	Data     []byte
}

type MaterialListResponse struct {
	Materials []*models.TrainingMaterial `json:"materials"`
	Total     int64                      `json:"total"`
	Page      int                        `json:"page"`
	Size      int                        `json:"size"`
}

type QuestionListResponse struct {
	Questions []*models.Question `json:"questions"`
	Total     int64              `json:"total"`
	Page      int                `json:"page"`
	Size      int                `json:"size"`
}

type MaterialContent struct {
	Material *models.TrainingMaterial
	Data     []byte
}

// ===== IMPORT/EXPORT DTOs =====

type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ImportResult struct {
	Created     int              `json:"created"`
	QuestionIDs []uint           `json:"question_ids"`
	Failed      []ImportRowError `json:"failed"`
}

type ImportRowError struct {
	Row    int              `json:"row"`
	Errors ValidationErrors `json:"errors"`
}

// ===== SERVICE INTERFACES =====

type AssessmentService interface {
	Create(ctx context.Context, req *CreateAssessmentRequest, creatorID string) (*AssessmentResponse, error)
	GetByID(ctx context.Context, id uint, user *models.User) (*AssessmentResponse, error)
	Update(ctx context.Context, id uint, req *UpdateAssessmentRequest, userID string) (*AssessmentResponse, error)
	Delete(ctx context.Context, id uint, userID string) error
	SetQuestions(ctx context.Context, id uint, req *SetAssessmentQuestionsRequest, userID string) (*AssessmentResponse, error)
	List(ctx context.Context, filters repositories.AssessmentFilters) (*AssessmentListResponse, error)
}

type QuestionService interface {
	Create(ctx context.Context, req *CreateQuestionRequest, creatorID string) (*models.Question, error)
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	Update(ctx context.Context, id uint, req *UpdateQuestionRequest, userID string) (*models.Question, error)
	Delete(ctx context.Context, id uint, userID string) error
	ListByCourse(ctx context.Context, courseID uint, filters repositories.QuestionFilters) (*QuestionListResponse, error)
}

// AttemptService is the attempt state machine. Every operation that reads an
// in_progress attempt checks it for expiry first.
type AttemptService interface {
	StartAttempt(ctx context.Context, assessmentID uint, traineeID string) (*StartAttemptResponse, error)
	StartScheduledAttempt(ctx context.Context, scheduleID, assessmentID uint, traineeID string) (*StartAttemptResponse, error)
	GetAttemptQuestions(ctx context.Context, assessmentID uint, traineeID string) (*AttemptSheetResponse, error)
	SaveAnswer(ctx context.Context, attemptID, questionID uint, req *SaveAnswerRequest, traineeID string) (*SaveAnswerResponse, error)
	SyncTimeRemaining(ctx context.Context, attemptID uint, req *SyncTimeRequest, traineeID string) (*AttemptStatusResponse, error)
	Submit(ctx context.Context, attemptID uint, traineeID string) (*SubmitResponse, error)
	// Expire finalizes a lapsed attempt. It reports whether this call made
	// the transition.
	Expire(ctx context.Context, attemptID uint) (bool, error)
	GetStatus(ctx context.Context, attemptID uint, traineeID string) (*AttemptStatusResponse, error)
	GetResult(ctx context.Context, attemptID uint, user *models.User) (*AttemptResultResponse, error)
	ListMyAttempts(ctx context.Context, assessmentID uint, traineeID string) ([]*models.AssessmentAttempt, error)
	RecomputeScore(ctx context.Context, attemptID uint, staffID string) (*ScoreResult, error)
}

// GradingService scores answers. It is pure and holds no state.
type GradingService interface {
	ScoreAttempt(assessment *models.Assessment, answers []*models.AssessmentAnswer) *ScoreResult
	IsCorrect(question *models.Question, answerData json.RawMessage) bool
}

type ScheduleService interface {
	AssignAssessment(ctx context.Context, scheduleID uint, req *AssignAssessmentRequest, staffID string) (*models.ScheduleAssessment, error)
	UpdateAssignment(ctx context.Context, scheduleID, assessmentID uint, req *UpdateAssignmentRequest, staffID string) (*models.ScheduleAssessment, error)
	ListScheduleAssessments(ctx context.Context, scheduleID uint, traineeID string) ([]*ScheduleAssessmentItem, error)
	GetScheduleResults(ctx context.Context, scheduleID uint) (*ScheduleResultsResponse, error)
}

// SecureFileService stores blobs encrypted at rest. Get distinguishes a
// missing blob (ErrSecureFileNotFound) from a damaged one
// (ErrSecureFileUndecryptable).
type SecureFileService interface {
	Store(ctx context.Context, data []byte, originalName, mimeType, directory string) (*StoredFile, error)
	Get(ctx context.Context, encryptedPath string) ([]byte, error)
	Delete(ctx context.Context, encryptedPath string) error
	Exists(ctx context.Context, encryptedPath string) (bool, error)
	Info(ctx context.Context, encryptedPath string) (*SecureFileInfo, error)
}

type MaterialService interface {
	Upload(ctx context.Context, req *UploadMaterialRequest, file *UploadedFile, uploaderID string) (*models.TrainingMaterial, error)
	GetByID(ctx context.Context, id uint, user *models.User) (*models.TrainingMaterial, error)
	ListByCourse(ctx context.Context, courseID uint, page, size int, user *models.User) (*MaterialListResponse, error)
	Open(ctx context.Context, id uint, user *models.User) (*MaterialContent, error)
	Delete(ctx context.Context, id uint, userID string) error
}

type ImportExportService interface {
	ExportScheduleResults(ctx context.Context, scheduleID uint) (*ExportFile, error)
	ImportQuestions(ctx context.Context, courseID uint, r io.Reader, creatorID string) (*ImportResult, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Assessment() AssessmentService
	Question() QuestionService
	Attempt() AttemptService
	Grading() GradingService
	Schedule() ScheduleService
	SecureFile() SecureFileService
	Material() MaterialService
	ImportExport() ImportExportService

	// Lifecycle management
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
