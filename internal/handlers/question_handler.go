package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-service/internal/models"
	"github.com/SAP-F-2025/lms-service/internal/repositories"
	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
)

// maxImportBytes bounds an uploaded question workbook.
const maxImportBytes = 10 << 20

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
	importService   services.ImportExportService
}

func NewQuestionHandler(questionService services.QuestionService, importService services.ImportExportService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
		importService:   importService,
	}
}

// CreateQuestion creates a question with its options
// @Summary Create question
// @Tags questions
// @Accept json
// @Produce json
// @Param question body services.CreateQuestionRequest true "Question data"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Router /questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var req services.CreateQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Creating question", "course_id", req.CourseID, "type", req.QuestionType)

	question, err := h.questionService.Create(c.Request.Context(), &req, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// GetQuestion returns a question including correctness data (staff only)
// @Summary Get question
// @Tags questions
// @Produce json
// @Param id path uint true "Question ID"
// @Success 200 {object} models.Question
// @Failure 404 {object} ErrorResponse
// @Router /questions/{id} [get]
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	question, err := h.questionService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// UpdateQuestion edits a question; options, when sent, replace the list
// @Summary Update question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Question ID"
// @Param question body services.UpdateQuestionRequest true "Fields to change"
// @Success 200 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /questions/{id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateQuestionRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Updating question", "question_id", id)

	question, err := h.questionService.Update(c.Request.Context(), id, &req, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// ListCourseQuestions pages through a course's questions
// @Summary List course questions
// @Tags questions
// @Produce json
// @Param id path uint true "Course ID"
// @Param type query string false "Question type"
// @Param difficulty query string false "Difficulty"
// @Param search query string false "Text search"
// @Param page query int false "Page" default(1)
// @Param size query int false "Page size" default(20)
// @Success 200 {object} services.QuestionListResponse
// @Router /courses/{id}/questions [get]
func (h *QuestionHandler) ListCourseQuestions(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}

	result, err := h.questionService.ListByCourse(c.Request.Context(), courseID, h.parseQuestionFilters(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *QuestionHandler) parseQuestionFilters(c *gin.Context) repositories.QuestionFilters {
	page := max(h.parseIntQuery(c, "page", 1), 1)
	size := min(max(h.parseIntQuery(c, "size", 20), 1), 50)

	filters := repositories.QuestionFilters{
		Search:    c.Query("search"),
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if t := models.QuestionType(c.Query("type")); t.Valid() {
		filters.QuestionType = &t
	}
	switch d := models.DifficultyLevel(c.Query("difficulty")); d {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		filters.Difficulty = &d
	}
	return filters
}

// DeleteQuestion deletes a question and its options
// @Summary Delete question
// @Tags questions
// @Param id path uint true "Question ID"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /questions/{id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting question", "question_id", id)

	if err := h.questionService.Delete(c.Request.Context(), id, user.ID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ImportQuestions creates questions from an uploaded .xlsx workbook. Rows
// that fail validation are reported and skipped.
// @Summary Import questions
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Param id path uint true "Course ID"
// @Param file formData file true "Workbook"
// @Success 200 {object} services.ImportResult
// @Failure 400 {object} ErrorResponse
// @Router /courses/{id}/questions/import [post]
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    CodeInvalidPayload,
			Message: "A workbook must be uploaded in the file field",
		})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing questions", "course_id", courseID, "file_name", fileHeader.Filename)

	result, err := h.importService.ImportQuestions(c.Request.Context(), courseID, file, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
