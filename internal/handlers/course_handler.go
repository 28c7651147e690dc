package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/services"
	"github.com/SAP-F-2025/course-service/internal/utils"
)

type CourseHandler struct {
	BaseHandler
	courseService services.CourseService
}

func NewCourseHandler(courseService services.CourseService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:   NewBaseHandler(logger),
		courseService: courseService,
	}
}

// CreateCourse creates a new course
// @Summary Create course
// @Description Creates a course owned by the authenticated teacher
// @Tags courses
// @Accept json
// @Produce json
// @Param course body services.CreateCourseRequest true "Course data"
// @Success 201 {object} services.CourseResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var req services.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Creating course", "course_name", req.CourseName)

	course, err := h.courseService.Create(c.Request.Context(), actor, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, course)
}

// GetCourse retrieves a course by ID
// @Summary Get course
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} services.CourseResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	course, err := h.courseService.GetByID(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// ListCourses lists the caller's courses
// @Summary List courses
// @Description Teachers see courses they own, students see courses they are enrolled in
// @Tags courses
// @Produce json
// @Param department query string false "Filter by department"
// @Param term query string false "Filter by term"
// @Param year query int false "Filter by year"
// @Param q query string false "Search in course name and number"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} services.CourseListResponse
// @Router /courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	filters := parseCourseFilters(c)

	courses, err := h.courseService.ListForActor(c.Request.Context(), actor, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// UpdateCourse updates an existing course
// @Summary Update course
// @Tags courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param course body services.UpdateCourseRequest true "Course update data"
// @Success 200 {object} services.CourseResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [put]
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var req services.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	course, err := h.courseService.Update(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// DeleteCourse deletes a course and everything hanging off it
// @Summary Delete course
// @Description Removes the course, its enrollments, and its materials
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [delete]
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting course", "course_id", c.Param("id"))

	if err := h.courseService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Course deleted"})
}

// GetCode returns the current enrollment code
// @Summary Get enrollment code
// @Description Owner-only view of the course's active enrollment code
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} services.CodeResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/code [get]
func (h *CourseHandler) GetCode(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	code, err := h.courseService.GetCode(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, code)
}

// RegenerateCode issues a fresh enrollment code
// @Summary Regenerate enrollment code
// @Description Replaces the active code; the previous code stops working immediately
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} services.CodeResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /courses/{id}/code/generate [post]
func (h *CourseHandler) RegenerateCode(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Regenerating enrollment code", "course_id", c.Param("id"))

	code, err := h.courseService.RegenerateCode(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, code)
}

func parseCourseFilters(c *gin.Context) repositories.CourseFilters {
	filters := repositories.CourseFilters{
		Query:     c.Query("q"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if department := c.Query("department"); department != "" {
		filters.Department = &department
	}
	if term := c.Query("term"); term != "" {
		t := models.CourseTerm(term)
		filters.Term = &t
	}
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filters.Year = &year
	}

	filters.Limit, filters.Offset = parsePagination(c)
	return filters
}

func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
