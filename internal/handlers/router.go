package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/services"
	"github.com/SAP-F-2025/course-service/internal/utils"
)

const healthCheckTimeout = 5 * time.Second

// AuthProvider abstracts over the local JWT middleware and the Casdoor
// middleware; both resolve Bearer tokens into an Actor in context.
type AuthProvider interface {
	AuthMiddleware() gin.HandlerFunc
	OptionalAuthMiddleware() gin.HandlerFunc
}

type HandlerManager struct {
	authHandler       *AuthHandler
	userHandler       *UserHandler
	courseHandler     *CourseHandler
	enrollmentHandler *EnrollmentHandler
	materialHandler   *MaterialHandler
	authProvider      AuthProvider
	serviceManager    services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	authProvider AuthProvider,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		authHandler:       NewAuthHandler(serviceManager.Identity(), logger),
		userHandler:       NewUserHandler(serviceManager.Identity(), logger),
		courseHandler:     NewCourseHandler(serviceManager.Course(), logger),
		enrollmentHandler: NewEnrollmentHandler(serviceManager.Enrollment(), logger),
		materialHandler:   NewMaterialHandler(serviceManager.Material(), logger),
		authProvider:      authProvider,
		serviceManager:    serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	// Auth routes are the only unauthenticated surface
	auth := v1.Group("/auth")
	{
		auth.POST("/register", hm.authHandler.Register)
		auth.POST("/login", hm.authHandler.Login)
		auth.POST("/refresh", hm.authHandler.Refresh)
		auth.POST("/logout", hm.authHandler.Logout)
	}

	authed := v1.Group("")
	authed.Use(hm.authProvider.AuthMiddleware())
	{
		// User routes
		users := authed.Group("/users")
		{
			users.GET("/:id", hm.userHandler.GetProfile)
			users.PUT("/:id", hm.userHandler.UpdateProfile)
			users.PUT("/:id/password", hm.userHandler.ChangePassword)
		}

		// Course routes
		courses := authed.Group("/courses")
		{
			// Course CRUD - creation is teacher-only, ownership guards the rest
			courses.POST("", RequireRoleMiddleware(models.RoleTeacher), hm.courseHandler.CreateCourse)
			courses.GET("", hm.courseHandler.ListCourses)
			courses.GET("/:id", hm.courseHandler.GetCourse)
			courses.PUT("/:id", RequireRoleMiddleware(models.RoleTeacher), hm.courseHandler.UpdateCourse)
			courses.DELETE("/:id", RequireRoleMiddleware(models.RoleTeacher), hm.courseHandler.DeleteCourse)

			// Enrollment code lifecycle - owner only
			courses.GET("/:id/code", RequireRoleMiddleware(models.RoleTeacher), hm.courseHandler.GetCode)
			courses.POST("/:id/code/generate", RequireRoleMiddleware(models.RoleTeacher), hm.courseHandler.RegenerateCode)

			// Code redemption - students only; the service enforces
			// the same rule for callers that bypass HTTP
			courses.POST("/enroll", RequireRoleMiddleware(models.RoleStudent), hm.enrollmentHandler.Enroll)

			// Roster - owner only
			courses.GET("/:id/students", RequireRoleMiddleware(models.RoleTeacher), hm.enrollmentHandler.GetRoster)
			courses.GET("/:id/students/export", RequireRoleMiddleware(models.RoleTeacher), hm.enrollmentHandler.ExportRoster)
			courses.DELETE("/:id/students/:studentId", RequireRoleMiddleware(models.RoleTeacher), hm.enrollmentHandler.RemoveStudent)

			// Materials - writes are owner-only, reads cover members too
			courses.POST("/:id/materials", RequireRoleMiddleware(models.RoleTeacher), hm.materialHandler.UploadMaterial)
			courses.GET("/:id/materials", hm.materialHandler.ListMaterials)
			courses.GET("/:id/materials/:key", hm.materialHandler.GetMaterial)
			courses.PUT("/:id/materials/:key", RequireRoleMiddleware(models.RoleTeacher), hm.materialHandler.UpdateMaterial)
			courses.DELETE("/:id/materials/:key", RequireRoleMiddleware(models.RoleTeacher), hm.materialHandler.DeleteMaterial)
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		if err := hm.serviceManager.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "course-service",
				"error":   err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "course-service",
		})
	})
}
