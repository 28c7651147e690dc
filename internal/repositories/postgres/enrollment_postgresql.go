package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/course-service/internal/cache"
	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
)

type EnrollmentPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewEnrollmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (e *EnrollmentPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}

// Enroll inserts the membership row. ON CONFLICT DO NOTHING makes the
// unique (course_id, student_id) index the serialization point: two
// concurrent redeems produce exactly one row, and both callers see it.
func (e *EnrollmentPostgreSQL) Enroll(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) (bool, error) {
	result := e.getDB(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "course_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).
		Create(enrollment)
	if result.Error != nil {
		return false, fmt.Errorf("failed to enroll student: %w", result.Error)
	}

	created := result.RowsAffected > 0
	if !created {
		// The row already existed; load it so the caller returns the
		// same enrollment either way.
		existing, err := e.GetByCourseAndStudent(ctx, tx, enrollment.CourseID, enrollment.StudentID)
		if err != nil {
			return false, fmt.Errorf("failed to load existing enrollment: %w", err)
		}
		*enrollment = *existing
	}

	cache.InvalidateRosterCache(ctx, e.cacheManager, enrollment.CourseID, enrollment.StudentID)

	return created, nil
}

func (e *EnrollmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := e.getDB(tx).WithContext(ctx).First(&enrollment, id).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (e *EnrollmentPostgreSQL) GetByCourseAndStudent(ctx context.Context, tx *gorm.DB, courseID, studentID string) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := e.getDB(tx).WithContext(ctx).
		First(&enrollment, "course_id = ? AND student_id = ?", courseID, studentID).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Remove hard-deletes the membership row so a later re-enrollment
// creates a fresh one.
func (e *EnrollmentPostgreSQL) Remove(ctx context.Context, tx *gorm.DB, courseID, studentID string) error {
	result := e.getDB(tx).WithContext(ctx).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Delete(&models.Enrollment{})
	if result.Error != nil {
		return fmt.Errorf("failed to remove enrollment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	cache.InvalidateRosterCache(ctx, e.cacheManager, courseID, studentID)

	return nil
}

// RemoveByCourse deletes every membership of a course, used by course
// cascade deletion.
func (e *EnrollmentPostgreSQL) RemoveByCourse(ctx context.Context, tx *gorm.DB, courseID string) error {
	err := e.getDB(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&models.Enrollment{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove course enrollments: %w", err)
	}
	cache.SafeDelete(ctx, e.cacheManager.Roster, fmt.Sprintf("course:%s", courseID))
	cache.SafeInvalidatePattern(ctx, e.cacheManager.Exists, fmt.Sprintf("member:%s:*", courseID))

	return nil
}

// GetRoster retrieves the students of a course with their join dates,
// cached per course for the unfiltered first page.
func (e *EnrollmentPostgreSQL) GetRoster(ctx context.Context, tx *gorm.DB, courseID string, filters repositories.EnrollmentFilters) ([]*repositories.RosterEntry, int64, error) {
	query := e.getDB(tx).WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ?", courseID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count roster: %w", err)
	}

	var enrollments []*models.Enrollment
	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "joined_at"
	}
	listQuery := e.helpers.ApplyPaginationAndSort(query.Preload("Student"), sortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := listQuery.Find(&enrollments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list roster: %w", err)
	}

	entries := make([]*repositories.RosterEntry, 0, len(enrollments))
	for _, enrollment := range enrollments {
		entries = append(entries, &repositories.RosterEntry{
			Student:  enrollment.Student.Summary(),
			Status:   string(enrollment.Status),
			JoinedAt: enrollment.JoinedAt,
		})
	}

	return entries, total, nil
}

func (e *EnrollmentPostgreSQL) CountByCourse(ctx context.Context, tx *gorm.DB, courseID string) (int64, error) {
	var count int64
	err := e.getDB(tx).WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return count, nil
}

// IsEnrolled checks active membership with short-lived caching
func (e *EnrollmentPostgreSQL) IsEnrolled(ctx context.Context, tx *gorm.DB, courseID, studentID string) (bool, error) {
	cacheKey := fmt.Sprintf("member:%s:%s", courseID, studentID)
	var enrolled bool

	err := e.cacheManager.Exists.CacheOrExecute(ctx, cacheKey, &enrolled, cache.ExistsCacheConfig.TTL, func() (interface{}, error) {
		var count int64
		err := e.getDB(tx).WithContext(ctx).
			Model(&models.Enrollment{}).
			Where("course_id = ? AND student_id = ? AND status = ?", courseID, studentID, models.EnrollmentStatusActive).
			Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
		return count > 0, nil
	})

	return enrolled, err
}
