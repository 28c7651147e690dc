package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/services"
	"github.com/SAP-F-2025/course-service/internal/utils"
)

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

// UploadMaterial uploads a course material
// @Summary Upload material
// @Description Owner-only multipart upload; the file goes to blob storage, metadata to the database
// @Tags materials
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Course ID"
// @Param title formData string true "Material title"
// @Param description formData string false "Material description"
// @Param file formData file true "PDF file"
// @Success 201 {object} services.MaterialResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /courses/{id}/materials [post]
func (h *MaterialHandler) UploadMaterial(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var req services.MaterialUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "File is required",
			Details: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to read uploaded file",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	h.LogRequest(c, "Uploading material",
		"course_id", c.Param("id"),
		"filename", fileHeader.Filename,
		"size", fileHeader.Size)

	upload := &services.MaterialUpload{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	}

	material, err := h.materialService.Upload(c.Request.Context(), actor, c.Param("id"), &req, upload)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, material)
}

// ListMaterials lists course materials
// @Summary List materials
// @Description Visible to the course owner and enrolled students, newest first
// @Tags materials
// @Produce json
// @Param id path string true "Course ID"
// @Param q query string false "Search in titles"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} services.MaterialListResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/materials [get]
func (h *MaterialHandler) ListMaterials(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	filters := repositories.MaterialFilters{Query: c.Query("q")}
	filters.Limit, filters.Offset = parsePagination(c)

	materials, err := h.materialService.List(c.Request.Context(), actor, c.Param("id"), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, materials)
}

// GetMaterial retrieves a single material with a download URL
// @Summary Get material
// @Tags materials
// @Produce json
// @Param id path string true "Course ID"
// @Param key path string true "Material key"
// @Success 200 {object} services.MaterialResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/materials/{key} [get]
func (h *MaterialHandler) GetMaterial(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	material, err := h.materialService.Get(c.Request.Context(), actor, c.Param("id"), c.Param("key"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, material)
}

// UpdateMaterial updates material metadata
// @Summary Update material metadata
// @Tags materials
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param key path string true "Material key"
// @Param material body services.MaterialUpdateRequest true "Fields to update"
// @Success 200 {object} services.MaterialResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/materials/{key} [put]
func (h *MaterialHandler) UpdateMaterial(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var req services.MaterialUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	material, err := h.materialService.UpdateMetadata(c.Request.Context(), actor, c.Param("id"), c.Param("key"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, material)
}

// DeleteMaterial deletes a material
// @Summary Delete material
// @Description Owner-only; deleting a material that is already gone succeeds
// @Tags materials
// @Produce json
// @Param id path string true "Course ID"
// @Param key path string true "Material key"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/materials/{key} [delete]
func (h *MaterialHandler) DeleteMaterial(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting material", "course_id", c.Param("id"), "material_key", c.Param("key"))

	if err := h.materialService.Delete(c.Request.Context(), actor, c.Param("id"), c.Param("key")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Material deleted"})
}
