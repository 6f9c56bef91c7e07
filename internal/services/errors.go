package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/lms-service/internal/validator"
)

// ValidationErrors is the field level error list produced by the validator.
type ValidationErrors = validator.ValidationErrors

type ValidationError = validator.ValidationError

// ===== ASSESSMENT ERRORS =====

var (
	ErrAssessmentNotFound    = errors.New("assessment not found")
	ErrAssessmentInactive    = errors.New("assessment is not active")
	ErrAssessmentHasAttempts = errors.New("assessment already has attempts")
	ErrAssessmentUnavailable = errors.New("assessment is not available at this time")
)

// ===== QUESTION ERRORS =====

var (
	ErrQuestionNotFound        = errors.New("question not found")
	ErrQuestionNotInAssessment = errors.New("question does not belong to the assessment")
	ErrQuestionInUse           = errors.New("question is used by an assessment with attempts")
)

// ===== ATTEMPT ERRORS =====

var (
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptAlreadyActive    = errors.New("an attempt is already in progress")
	ErrAttemptLimitExceeded    = errors.New("maximum attempts exceeded")
	ErrAttemptNotActive        = errors.New("attempt is not active")
	ErrAttemptAlreadySubmitted = errors.New("attempt already submitted")
	ErrAttemptTimeExpired      = errors.New("attempt time has expired")
	ErrAttemptInProgress       = errors.New("attempt is still in progress")
)

// ===== SCHEDULE ERRORS =====

var (
	ErrScheduleNotFound   = errors.New("schedule not found")
	ErrAssignmentNotFound = errors.New("assessment is not assigned to the schedule")
	ErrAssignmentExists   = errors.New("assessment is already assigned to the schedule")
	ErrCourseMismatch     = errors.New("assessment belongs to a different course")
)

// ===== FILE ERRORS =====

var (
	ErrMaterialNotFound        = errors.New("material not found")
	ErrSecureFileNotFound      = errors.New("secure file not found")
	ErrSecureFileUndecryptable = errors.New("secure file could not be decrypted")
	ErrInvalidFilePath         = errors.New("invalid secure file path")
	ErrInvalidSpreadsheet      = errors.New("spreadsheet could not be read")
)

// ===== GENERIC ERRORS =====

var ErrNotEnrolled = errors.New("trainee is not enrolled")

// errFinalizeLost signals that another request finalized the attempt first.
var errFinalizeLost = errors.New("attempt was finalized concurrently")

// PermissionError records a denied action. Handlers never echo the reason.
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// BusinessRuleError is a request that is well formed but breaks a domain rule.
type BusinessRuleError struct {
	Rule    string
	Message string
	Context map[string]interface{}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Message)
}

func NewBusinessRuleError(rule, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Message: message, Context: context}
}
