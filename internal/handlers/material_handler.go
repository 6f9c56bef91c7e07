package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/lms-service/internal/services"
	"github.com/SAP-F-2025/lms-service/internal/utils"
)

// maxMaterialBytes bounds a single material upload.
const maxMaterialBytes = 50 << 20

type MaterialHandler struct {
	BaseHandler
	materialService services.MaterialService
}

func NewMaterialHandler(materialService services.MaterialService, logger utils.Logger) *MaterialHandler {
	return &MaterialHandler{
		BaseHandler:     NewBaseHandler(logger),
		materialService: materialService,
	}
}

// UploadMaterial encrypts an uploaded file and records it against a course
// @Summary Upload training material
// @Tags materials
// @Accept multipart/form-data
// @Produce json
// @Param course_id formData int true "Course ID"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param file formData file true "File"
// @Success 201 {object} models.TrainingMaterial
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Router /materials [post]
func (h *MaterialHandler) UploadMaterial(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMaterialBytes+1<<20)

	var req services.UploadMaterialRequest
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fileTooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    CodeInvalidPayload,
			Message: "Invalid upload form",
			Details: err.Error(),
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    CodeInvalidPayload,
			Message: "A file must be uploaded in the file field",
		})
		return
	}
	if fileHeader.Size > maxMaterialBytes {
		h.fileTooLarge(c)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxMaterialBytes+1))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if len(data) > maxMaterialBytes {
		h.fileTooLarge(c)
		return
	}

	h.LogRequest(c, "Uploading training material", "course_id", req.CourseID, "size", len(data))

	material, err := h.materialService.Upload(c.Request.Context(), &req, &services.UploadedFile{
		Name:     fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Data:     data,
	}, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, material)
}

// GetMaterial returns the material metadata
// @Summary Get training material
// @Tags materials
// @Produce json
// @Param id path uint true "Material ID"
// @Success 200 {object} models.TrainingMaterial
// @Router /materials/{id} [get]
func (h *MaterialHandler) GetMaterial(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	material, err := h.materialService.GetByID(c.Request.Context(), id, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, material)
}

// ListCourseMaterials pages through a course's materials
// @Summary List course materials
// @Tags materials
// @Produce json
// @Param id path uint true "Course ID"
// @Param page query int false "Page number"
// @Param size query int false "Page size"
// @Success 200 {object} services.MaterialListResponse
// @Router /courses/{id}/materials [get]
func (h *MaterialHandler) ListCourseMaterials(c *gin.Context) {
	courseID := h.parseIDParam(c, "id")
	if courseID == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 0)

	materials, err := h.materialService.ListByCourse(c.Request.Context(), courseID, page, size, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, materials)
}

// DownloadMaterial streams the decrypted file as an attachment
// @Summary Download training material
// @Tags materials
// @Produce octet-stream
// @Param id path uint true "Material ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /materials/{id}/download [get]
func (h *MaterialHandler) DownloadMaterial(c *gin.Context) {
	h.serveMaterial(c, "attachment")
}

// ViewMaterial streams the decrypted file for display in the browser
// @Summary View training material
// @Tags materials
// @Param id path uint true "Material ID"
// @Success 200 {file} file
// @Router /materials/{id}/view [get]
func (h *MaterialHandler) ViewMaterial(c *gin.Context) {
	h.serveMaterial(c, "inline")
}

// DeleteMaterial removes the material and its blob
// @Summary Delete training material
// @Tags materials
// @Param id path uint true "Material ID"
// @Success 204
// @Router /materials/{id} [delete]
func (h *MaterialHandler) DeleteMaterial(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting training material", "material_id", id)

	if err := h.materialService.Delete(c.Request.Context(), id, user.ID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *MaterialHandler) serveMaterial(c *gin.Context, disposition string) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	content, err := h.materialService.Open(c.Request.Context(), id, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", contentDisposition(disposition, content.Material.OriginalName))
	c.Header("Content-Length", strconv.Itoa(len(content.Data)))
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, content.Material.MimeType, content.Data)
}

func (h *MaterialHandler) fileTooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
		Code:    CodeFileTooLarge,
		Message: "File exceeds the " + strconv.Itoa(maxMaterialBytes>>20) + " MB limit",
	})
}

// contentDisposition formats the header value, encoding non-ASCII names per
// RFC 2231.
func contentDisposition(disposition, filename string) string {
	if v := mime.FormatMediaType(disposition, map[string]string{"filename": filename}); v != "" {
		return v
	}
	return disposition
}
