package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
)

type AssessmentHandler struct {
	BaseHandler
	assessmentService services.AssessmentService
}

func NewAssessmentHandler(assessmentService services.AssessmentService, logger utils.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assessmentService: assessmentService,
	}
}

// CreateAssessment creates a new assessment
// @Summary Create assessment
// @Tags assessments
// @Accept json
// @Produce json
// @Param assessment body services.CreateAssessmentRequest true "Assessment data"
// @Success 201 {object} services.AssessmentResponse
// @Failure 400 {object} ErrorResponse
// @Router /assessments [post]
func (h *AssessmentHandler) CreateAssessment(c *gin.Context) {
	var req services.CreateAssessmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Creating assessment", "course_id", req.CourseID)

	assessment, err := h.assessmentService.Create(c.Request.Context(), &req, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assessment)
}

// GetAssessment retrieves an assessment with its ordered questions. Trainees
// never see correctness data.
// @Summary Get assessment
// @Tags assessments
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 200 {object} services.AssessmentResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	assessment, err := h.assessmentService.GetByID(c.Request.Context(), id, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// ListAssessments lists assessments, optionally narrowed by course and status
// @Summary List assessments
// @Tags assessments
// @Produce json
// @Param course_id query int false "Course ID"
// @Param is_active query bool false "Active flag"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} services.AssessmentListResponse
// @Router /assessments [get]
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	result, err := h.assessmentService.List(c.Request.Context(), h.parseAssessmentFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateAssessment applies a partial update
// @Summary Update assessment
// @Tags assessments
// @Accept json
// @Produce json
// @Param id path uint true "Assessment ID"
// @Param assessment body services.UpdateAssessmentRequest true "Fields to change"
// @Success 200 {object} services.AssessmentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id} [put]
func (h *AssessmentHandler) UpdateAssessment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateAssessmentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Updating assessment", "assessment_id", id)

	assessment, err := h.assessmentService.Update(c.Request.Context(), id, &req, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// DeleteAssessment deletes an assessment that has no attempts
// @Summary Delete assessment
// @Tags assessments
// @Param id path uint true "Assessment ID"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /assessments/{id} [delete]
func (h *AssessmentHandler) DeleteAssessment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting assessment", "assessment_id", id)

	if err := h.assessmentService.Delete(c.Request.Context(), id, user.ID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SetAssessmentQuestions replaces the ordered question list
// @Summary Set assessment questions
// @Tags assessments
// @Accept json
// @Produce json
// @Param id path uint true "Assessment ID"
// @Param questions body services.SetAssessmentQuestionsRequest true "Ordered question ids"
// @Success 200 {object} services.AssessmentResponse
// @Failure 409 {object} ErrorResponse
// @Router /assessments/{id}/questions [put]
func (h *AssessmentHandler) SetAssessmentQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.SetAssessmentQuestionsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Setting assessment questions", "assessment_id", id, "count", len(req.QuestionIDs))

	assessment, err := h.assessmentService.SetQuestions(c.Request.Context(), id, &req, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

func (h *AssessmentHandler) parseAssessmentFilters(c *gin.Context) repositories.AssessmentFilters {
	page := max(h.parseIntQuery(c, "page", 1), 1)
	size := min(max(h.parseIntQuery(c, "size", 10), 1), 100)

	filters := repositories.AssessmentFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if courseID, err := strconv.ParseUint(c.Query("course_id"), 10, 32); err == nil {
		id := uint(courseID)
		filters.CourseID = &id
	}
	if isActive, err := strconv.ParseBool(c.Query("is_active")); err == nil {
		filters.IsActive = &isActive
	}
	if createdBy := c.Query("created_by"); createdBy != "" {
		filters.CreatedBy = &createdBy
	}

	return filters
}
