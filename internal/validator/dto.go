package validator

import (
	"github.com/SAP-F-2025/course-service/internal/models"
)

// RegisterRequest represents the request structure for account registration
type RegisterRequest struct {
	FirstName   string          `json:"first_name" validate:"required,max=100"`
	LastName    string          `json:"last_name" validate:"required,max=100"`
	Email       string          `json:"email" validate:"required,email,max=255"`
	Username    string          `json:"username" validate:"required,min=4,max=100,alphanum"`
	Password    string          `json:"password" validate:"required,password_strength"`
	Role        models.UserRole `json:"role" validate:"required,user_role"`
	Institution string          `json:"institution" validate:"required,max=200"`
}

// LoginRequest represents the request structure for authentication
type LoginRequest struct {
	Username string          `json:"username" validate:"required"`
	Password string          `json:"password" validate:"required"`
	Role     models.UserRole `json:"role" validate:"required,user_role"`
}

// RefreshRequest carries a refresh token for rotation
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ProfileUpdateRequest represents the request structure for updating profiles.
// Identity and role are immutable; only display fields may change.
type ProfileUpdateRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName    *string `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email       *string `json:"email" validate:"omitempty,email,max=255"`
	Institution *string `json:"institution" validate:"omitempty,min=1,max=200"`
}

// PasswordChangeRequest represents the request structure for password changes
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password_strength"`
}

// CourseCreateRequest represents the request structure for creating courses
type CourseCreateRequest struct {
	CourseName   string            `json:"course_name" validate:"required,min=1,max=200"`
	Department   string            `json:"department" validate:"required,max=100"`
	CourseNumber string            `json:"course_number" validate:"required,max=20"`
	Term         models.CourseTerm `json:"term" validate:"required,course_term"`
	Year         int               `json:"year" validate:"required,academic_year"`
	Institution  string            `json:"institution" validate:"required,max=200"`
}

// CourseUpdateRequest represents the request structure for updating courses
type CourseUpdateRequest struct {
	CourseName   *string            `json:"course_name" validate:"omitempty,min=1,max=200"`
	Department   *string            `json:"department" validate:"omitempty,max=100"`
	CourseNumber *string            `json:"course_number" validate:"omitempty,max=20"`
	Term         *models.CourseTerm `json:"term" validate:"omitempty,course_term"`
	Year         *int               `json:"year" validate:"omitempty,academic_year"`
	Institution  *string            `json:"institution" validate:"omitempty,max=200"`
}

// EnrollRequest represents the request structure for redeeming an enrollment code
type EnrollRequest struct {
	Code string `json:"code" validate:"required,enroll_code"`
}

// MaterialUploadRequest carries the metadata half of a material upload;
// the file itself arrives as multipart form data.
type MaterialUploadRequest struct {
	Title       string  `json:"title" form:"title" validate:"required,min=1,max=200"`
	Description *string `json:"description" form:"description" validate:"omitempty,max=2000"`
}

// MaterialUpdateRequest represents the request structure for editing material metadata
type MaterialUpdateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}
