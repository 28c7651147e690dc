package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/course-service/internal/auth"
	"github.com/SAP-F-2025/course-service/internal/services"
	"github.com/SAP-F-2025/course-service/internal/utils"
)

// JWTAuthMiddleware validates locally issued access tokens and places the
// authenticated actor in the request context. All identity information
// downstream comes from the verified token, never from request bodies.
type JWTAuthMiddleware struct {
	jwtService *auth.JWTService
	logger     utils.Logger
}

func NewJWTAuthMiddleware(jwtService *auth.JWTService, logger utils.Logger) *JWTAuthMiddleware {
	return &JWTAuthMiddleware{
		jwtService: jwtService,
		logger:     logger,
	}
}

// AuthMiddleware requires a valid Bearer access token
func (m *JWTAuthMiddleware) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.parseBearerToken(c)
		if !ok {
			c.Abort()
			return
		}

		m.setActor(c, claims)
		c.Next()
	}
}

// OptionalAuthMiddleware sets the actor when a valid token is present but
// lets unauthenticated requests through
func (m *JWTAuthMiddleware) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.Next()
			return
		}

		claims, err := m.jwtService.ValidateToken(token)
		if err != nil {
			m.logger.Debug("optional auth token validation failed", "error", err)
			c.Next()
			return
		}

		m.setActor(c, claims)
		c.Next()
	}
}

func (m *JWTAuthMiddleware) parseBearerToken(c *gin.Context) (*auth.Claims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "authorization header required",
		})
		return nil, false
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "bearer token required",
		})
		return nil, false
	}

	claims, err := m.jwtService.ValidateToken(token)
	if err != nil {
		m.logger.Debug("token validation failed", "error", err)
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "invalid or expired token",
		})
		return nil, false
	}

	return claims, true
}

func (m *JWTAuthMiddleware) setActor(c *gin.Context, claims *auth.Claims) {
	c.Set("actor", services.Actor{
		ID:   claims.UserID,
		Role: claims.Role,
	})
	c.Set("user_id", claims.UserID)
	c.Set("user_role", claims.Role)
	c.Set("user_email", claims.Email)
}
