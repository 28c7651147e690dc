package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/cache"
	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
)

type CoursePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewCoursePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.CourseRepository {
	return &CoursePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (c *CoursePostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return c.db
}

// Create creates a new course and invalidates listing caches
func (c *CoursePostgreSQL) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	if err := c.getDB(tx).WithContext(ctx).Create(course).Error; err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	cache.SafeInvalidatePattern(ctx, c.cacheManager.Course, fmt.Sprintf("teacher:%s:*", course.TeacherID))
	cache.SafeInvalidatePattern(ctx, c.cacheManager.Course, "list:*")

	return nil
}

// GetByID retrieves a course by ID with caching
func (c *CoursePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	cacheKey := fmt.Sprintf("id:%s", id)
	var course models.Course

	err := c.cacheManager.Course.CacheOrExecute(ctx, cacheKey, &course, cache.CourseCacheConfig.TTL, func() (interface{}, error) {
		var dbCourse models.Course
		if err := c.getDB(tx).WithContext(ctx).First(&dbCourse, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &dbCourse, nil
	})
	if err != nil {
		return nil, err
	}

	return &course, nil
}

// GetByIDWithTeacher retrieves a course with the owning teacher preloaded.
// Never cached: the teacher relation carries profile fields that change
// independently of the course.
func (c *CoursePostgreSQL) GetByIDWithTeacher(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	var course models.Course
	err := c.getDB(tx).WithContext(ctx).
		Preload("Teacher").
		First(&course, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// Update updates a course and invalidates cache
func (c *CoursePostgreSQL) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	if err := c.getDB(tx).WithContext(ctx).Save(course).Error; err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}
	cache.InvalidateCourseCache(ctx, c.cacheManager, course.ID)
	cache.SafeInvalidatePattern(ctx, c.cacheManager.Course, fmt.Sprintf("teacher:%s:*", course.TeacherID))
	cache.SafeInvalidatePattern(ctx, c.cacheManager.Course, "list:*")

	return nil
}

// Delete soft-deletes a course
func (c *CoursePostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	result := c.getDB(tx).WithContext(ctx).Delete(&models.Course{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete course: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidateCourseCache(ctx, c.cacheManager, id)
	cache.SafeInvalidatePattern(ctx, c.cacheManager.Course, "teacher:*")
	cache.SafeInvalidatePattern(ctx, c.cacheManager.Course, "list:*")

	return nil
}

// List retrieves courses matching the filters with a total count
func (c *CoursePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	query := c.getDB(tx).WithContext(ctx).Model(&models.Course{})
	query = c.helpers.ApplyCourseFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	var courses []*models.Course
	query = c.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}

	return courses, total, nil
}

// GetByTeacher retrieves courses owned by a teacher
func (c *CoursePostgreSQL) GetByTeacher(ctx context.Context, tx *gorm.DB, teacherID string, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	filters.TeacherID = &teacherID
	return c.List(ctx, tx, filters)
}

// GetByStudent retrieves courses a student is actively enrolled in
func (c *CoursePostgreSQL) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	query := c.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Joins("JOIN enrollments ON enrollments.course_id = courses.id").
		Where("enrollments.student_id = ? AND enrollments.status = ?", studentID, models.EnrollmentStatusActive)
	query = c.helpers.ApplyCourseFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count student courses: %w", err)
	}

	var courses []*models.Course
	query = c.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list student courses: %w", err)
	}

	return courses, total, nil
}

// GetByCode retrieves the course currently holding an enrollment code.
// Codes retired by regeneration match nothing here.
func (c *CoursePostgreSQL) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Course, error) {
	var course models.Course
	err := c.getDB(tx).WithContext(ctx).
		First(&course, "enrollment_code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// SetEnrollmentCode stores a freshly generated code, replacing any
// previous one. The unique index on enrollment_code surfaces collisions
// as gorm.ErrDuplicatedKey for the caller to retry.
func (c *CoursePostgreSQL) SetEnrollmentCode(ctx context.Context, tx *gorm.DB, id string, code string) error {
	result := c.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"enrollment_code":   code,
			"code_generated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to set enrollment code: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidateCourseCache(ctx, c.cacheManager, id)

	return nil
}

// CodeExists checks whether any course currently holds the code
func (c *CoursePostgreSQL) CodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	var count int64
	err := c.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("enrollment_code = ?", code).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check code existence: %w", err)
	}
	return count > 0, nil
}

// ExistsByID checks course existence with short-lived caching
func (c *CoursePostgreSQL) ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	cacheKey := fmt.Sprintf("course:%s", id)
	var exists bool

	err := c.cacheManager.Exists.CacheOrExecute(ctx, cacheKey, &exists, cache.ExistsCacheConfig.TTL, func() (interface{}, error) {
		var count int64
		err := c.getDB(tx).WithContext(ctx).
			Model(&models.Course{}).
			Where("id = ?", id).
			Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check course existence: %w", err)
		}
		return count > 0, nil
	})

	return exists, err
}

// IsOwnedBy checks whether the course belongs to the teacher
func (c *CoursePostgreSQL) IsOwnedBy(ctx context.Context, tx *gorm.DB, id string, teacherID string) (bool, error) {
	var count int64
	err := c.getDB(tx).WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ? AND teacher_id = ?", id, teacherID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check course ownership: %w", err)
	}
	return count > 0, nil
}
