package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-service/internal/services"
	"github.com/SAP-F-2025/course-service/internal/utils"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse wraps payloads that carry no natural envelope.
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// BaseHandler carries the pieces every handler needs.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// getActor pulls the authenticated caller from the request context.
// The auth middleware is the only writer of these keys.
func (h *BaseHandler) getActor(c *gin.Context) (services.Actor, bool) {
	value, exists := c.Get("actor")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return services.Actor{}, false
	}

	actor, ok := value.(services.Actor)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Invalid authentication context",
		})
		return services.Actor{}, false
	}

	return actor, true
}

// handleServiceError translates service-layer errors onto HTTP status
// codes. Unrecognized errors become opaque 500s; their detail stays in
// the logs.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	var permissionErr *services.PermissionError
	var conflictErr *services.ConflictError
	var transientErr *services.TransientError

	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrs,
		})

	case errors.As(err, &permissionErr):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Permission denied",
		})

	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: conflictErr.Reason,
		})

	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrUsernameTaken):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrCourseNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrEnrollmentNotFound),
		errors.Is(err, services.ErrMaterialNotFound),
		errors.Is(err, services.ErrCodeNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrUnsupportedMediaType):
		c.JSON(http.StatusUnsupportedMediaType, ErrorResponse{
			Message: err.Error(),
		})

	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidRefreshToken),
		errors.Is(err, services.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: err.Error(),
		})

	case errors.As(err, &transientErr):
		h.logger.Error("Transient failure", "op", transientErr.Op, "error", transientErr.Err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "Service temporarily unavailable",
		})

	default:
		h.logger.Error("Unhandled service error", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

// LogRequest logs request details with the request-scoped logger.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	logger := utils.LoggerFromContext(c.Request.Context(), h.logger)
	args = append(args, "method", c.Request.Method, "path", c.Request.URL.Path)
	logger.Info(msg, args...)
}
