package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/models"
)

// EnrollmentRepository interface for enrollment operations
type EnrollmentRepository interface {
	// Enroll inserts the (course, student) pair if it does not exist yet
	// and reports whether a new row was created. Re-enrolling an already
	// enrolled student is not an error.
	Enroll(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) (created bool, err error)
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error)
	GetByCourseAndStudent(ctx context.Context, tx *gorm.DB, courseID, studentID string) (*models.Enrollment, error)
	Remove(ctx context.Context, tx *gorm.DB, courseID, studentID string) error
	RemoveByCourse(ctx context.Context, tx *gorm.DB, courseID string) error

	// Query operations
	GetRoster(ctx context.Context, tx *gorm.DB, courseID string, filters EnrollmentFilters) ([]*RosterEntry, int64, error)
	CountByCourse(ctx context.Context, tx *gorm.DB, courseID string) (int64, error)

	// Validation and checks
	IsEnrolled(ctx context.Context, tx *gorm.DB, courseID, studentID string) (bool, error)
}
