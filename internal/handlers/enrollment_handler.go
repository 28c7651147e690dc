package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/services"
	"github.com/SAP-F-2025/course-service/internal/utils"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

type EnrollmentHandler struct {
	BaseHandler
	enrollmentService services.EnrollmentService
}

func NewEnrollmentHandler(enrollmentService services.EnrollmentService, logger utils.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		enrollmentService: enrollmentService,
	}
}

// Enroll redeems an enrollment code
// @Summary Enroll with code
// @Description Joins the course the code belongs to; redeeming the same code twice is a no-op
// @Tags enrollments
// @Accept json
// @Produce json
// @Param enrollment body validator.EnrollRequest true "Enrollment code"
// @Success 200 {object} services.EnrollmentResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /courses/enroll [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var req validator.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	enrollment, err := h.enrollmentService.Enroll(c.Request.Context(), actor, req.Code)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if enrollment.AlreadyEnrolled {
		c.JSON(http.StatusOK, enrollment)
		return
	}
	c.JSON(http.StatusCreated, enrollment)
}

// GetRoster lists enrolled students
// @Summary Get course roster
// @Description Owner-only paginated list of enrolled students
// @Tags enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} services.RosterResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/students [get]
func (h *EnrollmentHandler) GetRoster(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	filters := repositories.EnrollmentFilters{
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		filters.Status = &status
	}
	filters.Limit, filters.Offset = parsePagination(c)

	roster, err := h.enrollmentService.GetRoster(c.Request.Context(), actor, c.Param("id"), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, roster)
}

// ExportRoster downloads the roster as a spreadsheet
// @Summary Export course roster
// @Description Owner-only roster export in xlsx format
// @Tags enrollments
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Course ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/students/export [get]
func (h *EnrollmentHandler) ExportRoster(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting roster", "course_id", c.Param("id"))

	export, err := h.enrollmentService.ExportRoster(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Content)
}

// RemoveStudent removes a student from a course
// @Summary Remove student
// @Description Owner-only removal of an enrolled student
// @Tags enrollments
// @Produce json
// @Param id path string true "Course ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/students/{studentId} [delete]
func (h *EnrollmentHandler) RemoveStudent(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Removing student", "course_id", c.Param("id"), "student_id", c.Param("studentId"))

	if err := h.enrollmentService.RemoveStudent(c.Request.Context(), actor, c.Param("id"), c.Param("studentId")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Student removed"})
}
