package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-service/internal/services"
	"github.com/SAP-F-2025/course-service/internal/utils"
)

type UserHandler struct {
	BaseHandler
	identityService services.IdentityService
}

func NewUserHandler(identityService services.IdentityService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler:     NewBaseHandler(logger),
		identityService: identityService,
	}
}

// GetProfile retrieves a user profile
// @Summary Get user profile
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	user, err := h.identityService.GetProfile(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile updates the caller's own profile
// @Summary Update user profile
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param profile body services.ProfileUpdateRequest true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var req services.ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Updating profile", "user_id", c.Param("id"))

	user, err := h.identityService.UpdateProfile(c.Request.Context(), actor, c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ChangePassword changes the caller's own password
// @Summary Change password
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param passwords body services.PasswordChangeRequest true "Current and new password"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /users/{id}/password [put]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	actor, ok := h.getActor(c)
	if !ok {
		return
	}

	var req services.PasswordChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.identityService.ChangePassword(c.Request.Context(), actor, c.Param("id"), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Password changed"})
}
