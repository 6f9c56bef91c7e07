package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
)

type ScheduleHandler struct {
	BaseHandler
	scheduleService services.ScheduleService
	attemptService  services.AttemptService
	exportService   services.ImportExportService
}

func NewScheduleHandler(
	scheduleService services.ScheduleService,
	attemptService services.AttemptService,
	exportService services.ImportExportService,
	logger utils.Logger,
) *ScheduleHandler {
	return &ScheduleHandler{
		BaseHandler:     NewBaseHandler(logger),
		scheduleService: scheduleService,
		attemptService:  attemptService,
		exportService:   exportService,
	}
}

// AssignAssessment attaches an assessment to a schedule
// @Summary Assign assessment to schedule
// @Tags schedules
// @Accept json
// @Produce json
// @Param id path uint true "Schedule ID"
// @Param assignment body services.AssignAssessmentRequest true "Assignment"
// @Success 201 {object} models.ScheduleAssessment
// @Failure 409 {object} ErrorResponse
// @Router /schedules/{id}/assessments [post]
func (h *ScheduleHandler) AssignAssessment(c *gin.Context) {
	scheduleID := h.parseIDParam(c, "id")
	if scheduleID == 0 {
		return
	}

	var req services.AssignAssessmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Assigning assessment", "schedule_id", scheduleID, "assessment_id", req.AssessmentID)

	assignment, err := h.scheduleService.AssignAssessment(c.Request.Context(), scheduleID, &req, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// UpdateAssignment replaces the activation flag and availability window
// @Summary Update schedule assignment
// @Tags schedules
// @Accept json
// @Produce json
// @Param id path uint true "Schedule ID"
// @Param assessment_id path uint true "Assessment ID"
// @Param assignment body services.UpdateAssignmentRequest true "Assignment"
// @Success 200 {object} models.ScheduleAssessment
// @Router /schedules/{id}/assessments/{assessment_id} [put]
func (h *ScheduleHandler) UpdateAssignment(c *gin.Context) {
	scheduleID := h.parseIDParam(c, "id")
	if scheduleID == 0 {
		return
	}
	assessmentID := h.parseIDParam(c, "assessment_id")
	if assessmentID == 0 {
		return
	}

	var req services.UpdateAssignmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	assignment, err := h.scheduleService.UpdateAssignment(c.Request.Context(), scheduleID, assessmentID, &req, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// ListScheduleAssessments lists what the caller can take in a schedule
// @Summary List schedule assessments
// @Tags schedules
// @Produce json
// @Param id path uint true "Schedule ID"
// @Success 200 {array} services.ScheduleAssessmentItem
// @Router /schedules/{id}/assessments [get]
func (h *ScheduleHandler) ListScheduleAssessments(c *gin.Context) {
	scheduleID := h.parseIDParam(c, "id")
	if scheduleID == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	items, err := h.scheduleService.ListScheduleAssessments(c.Request.Context(), scheduleID, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// StartScheduledAttempt starts an attempt inside the schedule's window
// @Summary Start scheduled attempt
// @Tags schedules
// @Produce json
// @Param id path uint true "Schedule ID"
// @Param assessment_id path uint true "Assessment ID"
// @Success 201 {object} services.StartAttemptResponse
// @Failure 403 {object} ErrorResponse
// @Router /schedules/{id}/assessments/{assessment_id}/attempts [post]
func (h *ScheduleHandler) StartScheduledAttempt(c *gin.Context) {
	scheduleID := h.parseIDParam(c, "id")
	if scheduleID == 0 {
		return
	}
	assessmentID := h.parseIDParam(c, "assessment_id")
	if assessmentID == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting scheduled attempt", "schedule_id", scheduleID, "assessment_id", assessmentID)

	attempt, err := h.attemptService.StartScheduledAttempt(c.Request.Context(), scheduleID, assessmentID, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// GetScheduleResults groups attempts by assessment and enrolled trainee
// @Summary Schedule results
// @Tags schedules
// @Produce json
// @Param id path uint true "Schedule ID"
// @Success 200 {object} services.ScheduleResultsResponse
// @Router /schedules/{id}/results [get]
func (h *ScheduleHandler) GetScheduleResults(c *gin.Context) {
	scheduleID := h.parseIDParam(c, "id")
	if scheduleID == 0 {
		return
	}

	results, err := h.scheduleService.GetScheduleResults(c.Request.Context(), scheduleID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// ExportScheduleResults streams the schedule results as an .xlsx attachment
// @Summary Export schedule results
// @Tags schedules
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Schedule ID"
// @Success 200 {file} file
// @Router /schedules/{id}/results/export [get]
func (h *ScheduleHandler) ExportScheduleResults(c *gin.Context) {
	scheduleID := h.parseIDParam(c, "id")
	if scheduleID == 0 {
		return
	}

	h.LogRequest(c, "Exporting schedule results", "schedule_id", scheduleID)

	file, err := h.exportService.ExportScheduleResults(c.Request.Context(), scheduleID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", contentDisposition("attachment", file.Filename))
	c.Header("Content-Length", strconv.Itoa(len(file.Data)))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
