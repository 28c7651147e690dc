package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/models"
)

// CourseRepository interface for course-specific operations
type CourseRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error)
	GetByIDWithTeacher(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error)
	Update(ctx context.Context, tx *gorm.DB, course *models.Course) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters CourseFilters) ([]*models.Course, int64, error)
	GetByTeacher(ctx context.Context, tx *gorm.DB, teacherID string, filters CourseFilters) ([]*models.Course, int64, error)
	GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters CourseFilters) ([]*models.Course, int64, error)

	// Enrollment code operations. GetByCode matches only the currently
	// active code of a course.
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Course, error)
	SetEnrollmentCode(ctx context.Context, tx *gorm.DB, id string, code string) error
	CodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error)

	// Validation and checks
	ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	IsOwnedBy(ctx context.Context, tx *gorm.DB, id string, teacherID string) (bool, error)
}
