package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

// Actor is the authenticated caller. It is built from verified token
// claims in the transport layer; no field of it ever comes from a
// request payload.
type Actor struct {
	ID   string
	Role models.UserRole
}

func (a Actor) IsTeacher() bool {
	return a.Role == models.RoleTeacher
}

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type RegisterRequest = validator.RegisterRequest
type LoginRequest = validator.LoginRequest
type ProfileUpdateRequest = validator.ProfileUpdateRequest
type PasswordChangeRequest = validator.PasswordChangeRequest
type CreateCourseRequest = validator.CourseCreateRequest
type UpdateCourseRequest = validator.CourseUpdateRequest
type MaterialUploadRequest = validator.MaterialUploadRequest
type MaterialUpdateRequest = validator.MaterialUpdateRequest

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

type CourseResponse struct {
	*models.Course
	CanEdit      bool  `json:"can_edit"`
	IsEnrolled   bool  `json:"is_enrolled"`
	StudentCount int64 `json:"student_count"`
}

type CourseListResponse struct {
	Courses []*CourseResponse `json:"courses"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	Size    int               `json:"size"`
}

type CodeResponse struct {
	CourseID    string     `json:"course_id"`
	Code        string     `json:"code"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
}

type EnrollmentResponse struct {
	Course   *models.Course `json:"course"`
	Status   string         `json:"status"`
	JoinedAt time.Time      `json:"joined_at"`

	// AlreadyEnrolled distinguishes a fresh enrollment from an
	// idempotent re-redeem of the same code.
	AlreadyEnrolled bool `json:"already_enrolled"`
}

type RosterResponse struct {
	CourseID string                      `json:"course_id"`
	Students []*repositories.RosterEntry `json:"students"`
	Total    int64                       `json:"total"`
	Page     int                         `json:"page"`
	Size     int                         `json:"size"`
}

// MaterialUpload carries the file half of an upload request.
type MaterialUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type MaterialResponse struct {
	*models.Material
	DownloadURL string `json:"download_url,omitempty"`
	CanEdit     bool   `json:"can_edit"`
}

type MaterialListResponse struct {
	Materials []*MaterialResponse `json:"materials"`
	Total     int64               `json:"total"`
	Page      int                 `json:"page"`
	Size      int                 `json:"size"`
}

// RosterExport is a rendered spreadsheet ready for download.
type RosterExport struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ===== SERVICE INTERFACES =====

// IdentityService handles registration, login, token rotation, and
// profile self-service.
type IdentityService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error

	GetProfile(ctx context.Context, actor Actor, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, actor Actor, userID string, req *ProfileUpdateRequest) (*models.User, error)
	ChangePassword(ctx context.Context, actor Actor, userID string, req *PasswordChangeRequest) error
}

// CourseService handles course CRUD and enrollment code lifecycle.
type CourseService interface {
	Create(ctx context.Context, actor Actor, req *CreateCourseRequest) (*CourseResponse, error)
	GetByID(ctx context.Context, actor Actor, id string) (*CourseResponse, error)
	ListForActor(ctx context.Context, actor Actor, filters repositories.CourseFilters) (*CourseListResponse, error)
	Update(ctx context.Context, actor Actor, id string, req *UpdateCourseRequest) (*CourseResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error

	RegenerateCode(ctx context.Context, actor Actor, id string) (*CodeResponse, error)
	GetCode(ctx context.Context, actor Actor, id string) (*CodeResponse, error)
}

// EnrollmentService handles code redemption and roster management.
type EnrollmentService interface {
	Enroll(ctx context.Context, actor Actor, code string) (*EnrollmentResponse, error)
	RemoveStudent(ctx context.Context, actor Actor, courseID, studentID string) error
	GetRoster(ctx context.Context, actor Actor, courseID string, filters repositories.EnrollmentFilters) (*RosterResponse, error)
	ExportRoster(ctx context.Context, actor Actor, courseID string) (*RosterExport, error)
}

// MaterialService handles course material uploads, listing, and removal.
type MaterialService interface {
	Upload(ctx context.Context, actor Actor, courseID string, req *MaterialUploadRequest, file *MaterialUpload) (*MaterialResponse, error)
	List(ctx context.Context, actor Actor, courseID string, filters repositories.MaterialFilters) (*MaterialListResponse, error)
	Get(ctx context.Context, actor Actor, courseID, key string) (*MaterialResponse, error)
	UpdateMetadata(ctx context.Context, actor Actor, courseID, key string, req *MaterialUpdateRequest) (*MaterialResponse, error)
	Delete(ctx context.Context, actor Actor, courseID, key string) error
}

// ServiceManager wires and owns all service instances.
type ServiceManager interface {
	Identity() IdentityService
	Course() CourseService
	Enrollment() EnrollmentService
	Material() MaterialService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
