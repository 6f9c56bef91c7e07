package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
)

// ErrorResponse is the body of every failed request. Code is stable and
// meant for clients; Message is for humans.
type ErrorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

const (
	CodeInvalidPayload  = "INVALID_PAYLOAD"
	CodeInvalidID       = "INVALID_ID"
	CodeValidation      = "VALIDATION_FAILED"
	CodeBusinessRule    = "BUSINESS_RULE_VIOLATION"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeFileUnavailable = "FILE_UNAVAILABLE"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL_ERROR"
)

// fileUnavailableMessage is the only thing a client learns about a blob that
// failed to decrypt.
const fileUnavailableMessage = "unable to access file"

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// serviceErrors maps sentinel service errors to responses. Order matters
// only for errors that wrap each other.
var serviceErrors = []errorMapping{
	// Assessments and questions
	{services.ErrAssessmentNotFound, http.StatusNotFound, "ASSESSMENT_NOT_FOUND", "Assessment not found"},
	{services.ErrAssessmentInactive, http.StatusForbidden, "ASSESSMENT_INACTIVE", "Assessment is not active"},
	{services.ErrAssessmentUnavailable, http.StatusForbidden, "ASSESSMENT_UNAVAILABLE", "Assessment is not available at this time"},
	{services.ErrAssessmentHasAttempts, http.StatusConflict, "ASSESSMENT_HAS_ATTEMPTS", "Assessment already has attempts"},
	{services.ErrQuestionNotFound, http.StatusNotFound, "QUESTION_NOT_FOUND", "Question not found"},
	{services.ErrQuestionNotInAssessment, http.StatusNotFound, "QUESTION_NOT_IN_ASSESSMENT", "Question does not belong to the assessment"},
	{services.ErrQuestionInUse, http.StatusConflict, "QUESTION_IN_USE", "Question is used by an assessment with attempts"},

	// Attempts
	{services.ErrAttemptNotFound, http.StatusNotFound, "ATTEMPT_NOT_FOUND", "Attempt not found"},
	{services.ErrAttemptAlreadyActive, http.StatusConflict, "ATTEMPT_ALREADY_ACTIVE", "An attempt is already in progress"},
	{services.ErrAttemptLimitExceeded, http.StatusConflict, "ATTEMPT_LIMIT_EXCEEDED", "Maximum attempts exceeded"},
	{services.ErrAttemptAlreadySubmitted, http.StatusConflict, "ATTEMPT_ALREADY_SUBMITTED", "Attempt already submitted"},
	{services.ErrAttemptNotActive, http.StatusConflict, "ATTEMPT_NOT_ACTIVE", "Attempt is not active"},
	{services.ErrAttemptInProgress, http.StatusConflict, "ATTEMPT_IN_PROGRESS", "Attempt is still in progress"},
	{services.ErrAttemptTimeExpired, http.StatusGone, "ATTEMPT_EXPIRED", "Attempt time has expired"},

	// Schedules
	{services.ErrScheduleNotFound, http.StatusNotFound, "SCHEDULE_NOT_FOUND", "Schedule not found"},
	{services.ErrAssignmentNotFound, http.StatusNotFound, "ASSIGNMENT_NOT_FOUND", "Assessment is not assigned to the schedule"},
	{services.ErrAssignmentExists, http.StatusConflict, "ASSIGNMENT_EXISTS", "Assessment is already assigned to the schedule"},
	{services.ErrCourseMismatch, http.StatusUnprocessableEntity, "COURSE_MISMATCH", "Assessment belongs to a different course"},

	// Files
	{services.ErrMaterialNotFound, http.StatusNotFound, "MATERIAL_NOT_FOUND", "Material not found"},
	{services.ErrSecureFileNotFound, http.StatusNotFound, "FILE_NOT_FOUND", "File not found"},
	{services.ErrSecureFileUndecryptable, http.StatusInternalServerError, CodeFileUnavailable, fileUnavailableMessage},
	{services.ErrInvalidFilePath, http.StatusInternalServerError, CodeFileUnavailable, fileUnavailableMessage},
	{services.ErrInvalidSpreadsheet, http.StatusBadRequest, "INVALID_SPREADSHEET", "Spreadsheet could not be read"},

	// Generic
	{services.ErrNotEnrolled, http.StatusForbidden, "NOT_ENROLLED", "Trainee is not enrolled"},
}

// BaseHandler carries the logger and the helpers every handler shares.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "method", c.Request.Method, "path", c.Request.URL.Path)
	if userID := c.GetString("user_id"); userID != "" {
		args = append(args, "user_id", userID)
	}
	utils.FromContext(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err, "method", c.Request.Method, "path", c.Request.URL.Path)
	utils.FromContext(c, h.logger).Error(msg, args...)
}

// handleServiceError writes the response for err. Permission reasons and
// integrity details are logged, never returned.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    CodeValidation,
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		utils.FromContext(c, h.logger).Warn("Permission denied",
			"resource", permissionError.Resource,
			"resource_id", permissionError.ResourceID,
			"action", permissionError.Action,
			"reason", permissionError.Reason)
		c.JSON(http.StatusForbidden, ErrorResponse{
			Code:    CodeForbidden,
			Message: "Access denied",
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Code:    CodeBusinessRule,
			Message: businessRuleError.Message,
			Details: map[string]interface{}{
				"rule":    businessRuleError.Rule,
				"context": businessRuleError.Context,
			},
		})
		return
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			if m.status >= http.StatusInternalServerError {
				h.LogError(c, err, "Secure file integrity failure")
			}
			c.JSON(m.status, ErrorResponse{Code: m.code, Message: m.message})
			return
		}
	}

	h.LogError(c, err, "Unexpected service error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    CodeInternal,
		Message: "Internal server error",
	})
}

// parseIDParam returns 0 after writing a 400 when the path parameter is not
// a positive id.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    CodeInvalidID,
			Message: "Invalid " + param,
		})
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func (h *BaseHandler) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    CodeInvalidPayload,
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// currentUser returns the authenticated user or writes a 401.
func (h *BaseHandler) currentUser(c *gin.Context) (*models.User, bool) {
	user, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Code:    CodeUnauthorized,
			Message: "User not authenticated",
		})
		return nil, false
	}
	return user, true
}
