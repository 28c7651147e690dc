package repositories

import (
	"time"

	"github.com/SAP-F-2025/course-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type CourseFilters struct {
	Department *string            `json:"department"`
	Term       *models.CourseTerm `json:"term"`
	Year       *int               `json:"year"`
	TeacherID  *string            `json:"teacher_id"`
	Query      string             `json:"query"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
	SortBy     string             `json:"sort_by"`    // "created_at", "course_name", "year"
	SortOrder  string             `json:"sort_order"` // "asc", "desc"
}

type EnrollmentFilters struct {
	Status    *string `json:"status"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"` // "joined_at", "last_name"
	SortOrder string  `json:"sort_order"`
}

type MaterialFilters struct {
	Query  string `json:"query"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// UserFilters defines filters for user queries
type UserFilters struct {
	Query  string // Search query for name or email
	Role   *models.UserRole
	Limit  int
	Offset int
}

// ===== SHARED PROJECTION STRUCTS =====

// RosterEntry is one row of a course roster: the student plus when they joined.
type RosterEntry struct {
	Student  *models.UserSummary `json:"student"`
	Status   string              `json:"status"`
	JoinedAt time.Time           `json:"joined_at"`
}
