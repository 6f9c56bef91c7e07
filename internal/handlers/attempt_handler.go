package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// StartAttempt starts a new assessment attempt
// @Summary Start assessment attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 201 {object} services.StartAttemptResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /assessments/{id}/attempts [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	assessmentID := h.parseIDParam(c, "id")
	if assessmentID == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting assessment attempt", "assessment_id", assessmentID)

	attempt, err := h.attemptService.StartAttempt(c.Request.Context(), assessmentID, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// ListMyAttempts lists the caller's attempts on an assessment, newest first
// @Summary List my attempts
// @Tags attempts
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 200 {array} models.AssessmentAttempt
// @Router /assessments/{id}/attempts [get]
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	assessmentID := h.parseIDParam(c, "id")
	if assessmentID == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	attempts, err := h.attemptService.ListMyAttempts(c.Request.Context(), assessmentID, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}

// GetAttemptQuestions returns the question sheet of the caller's active attempt
// @Summary Get attempt sheet
// @Tags attempts
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 200 {object} services.AttemptSheetResponse
// @Failure 404 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /assessments/{id}/sheet [get]
func (h *AttemptHandler) GetAttemptQuestions(c *gin.Context) {
	assessmentID := h.parseIDParam(c, "id")
	if assessmentID == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	sheet, err := h.attemptService.GetAttemptQuestions(c.Request.Context(), assessmentID, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sheet)
}

// SaveAnswer stores the answer to one question; the last write wins
// @Summary Save answer
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param question_id path uint true "Question ID"
// @Param answer body services.SaveAnswerRequest true "Answer payload"
// @Success 200 {object} services.SaveAnswerResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /attempts/{id}/answers/{question_id} [put]
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}

	var req services.SaveAnswerRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	saved, err := h.attemptService.SaveAnswer(c.Request.Context(), attemptID, questionID, &req, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, saved)
}

// SyncTimeRemaining records the client countdown. Remaining time never grows.
// @Summary Sync time remaining
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param time body services.SyncTimeRequest true "Seconds remaining"
// @Success 200 {object} services.AttemptStatusResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/time-remaining [put]
func (h *AttemptHandler) SyncTimeRemaining(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}

	var req services.SyncTimeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	status, err := h.attemptService.SyncTimeRemaining(c.Request.Context(), attemptID, &req, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// SubmitAttempt finalizes and scores the caller's attempt
// @Summary Submit assessment attempt
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.SubmitResponse
// @Failure 409 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting assessment attempt", "attempt_id", attemptID)

	result, err := h.attemptService.Submit(c.Request.Context(), attemptID, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAttemptStatus reports status and remaining time, expiring a lapsed attempt
// @Summary Get attempt status
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptStatusResponse
// @Router /attempts/{id}/status [get]
func (h *AttemptHandler) GetAttemptStatus(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	status, err := h.attemptService.GetStatus(c.Request.Context(), attemptID, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetAttemptResult returns a finalized attempt with per-question results
// @Summary Get attempt result
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.AttemptResultResponse
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/result [get]
func (h *AttemptHandler) GetAttemptResult(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	result, err := h.attemptService.GetResult(c.Request.Context(), attemptID, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RecomputeScore re-runs scoring on a finalized attempt
// @Summary Recompute attempt score
// @Tags attempts
// @Produce json
// @Param id path uint true "Attempt ID"
// @Success 200 {object} services.ScoreResult
// @Router /attempts/{id}/rescore [post]
func (h *AttemptHandler) RecomputeScore(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Recomputing attempt score", "attempt_id", attemptID)

	result, err := h.attemptService.RecomputeScore(c.Request.Context(), attemptID, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
