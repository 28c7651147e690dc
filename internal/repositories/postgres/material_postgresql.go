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

type MaterialPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewMaterialPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.MaterialRepository {
	return &MaterialPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (m *MaterialPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return m.db
}

func (m *MaterialPostgreSQL) Create(ctx context.Context, tx *gorm.DB, material *models.Material) error {
	if err := m.getDB(tx).WithContext(ctx).Create(material).Error; err != nil {
		return fmt.Errorf("failed to create material: %w", err)
	}
	cache.InvalidateMaterialCache(ctx, m.cacheManager, material.CourseID)

	return nil
}

func (m *MaterialPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Material, error) {
	var material models.Material
	if err := m.getDB(tx).WithContext(ctx).First(&material, id).Error; err != nil {
		return nil, err
	}
	return &material, nil
}

func (m *MaterialPostgreSQL) GetByKey(ctx context.Context, tx *gorm.DB, courseID, key string) (*models.Material, error) {
	var material models.Material
	err := m.getDB(tx).WithContext(ctx).
		First(&material, "course_id = ? AND key = ?", courseID, key).Error
	if err != nil {
		return nil, err
	}
	return &material, nil
}

func (m *MaterialPostgreSQL) Update(ctx context.Context, tx *gorm.DB, material *models.Material) error {
	if err := m.getDB(tx).WithContext(ctx).Save(material).Error; err != nil {
		return fmt.Errorf("failed to update material: %w", err)
	}
	cache.InvalidateMaterialCache(ctx, m.cacheManager, material.CourseID)

	return nil
}

func (m *MaterialPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	var material models.Material
	if err := m.getDB(tx).WithContext(ctx).First(&material, id).Error; err != nil {
		return err
	}

	if err := m.getDB(tx).WithContext(ctx).Delete(&material).Error; err != nil {
		return fmt.Errorf("failed to delete material: %w", err)
	}
	cache.InvalidateMaterialCache(ctx, m.cacheManager, material.CourseID)

	return nil
}

// DeleteByCourse removes all material rows of a course, used by course
// cascade deletion. Blob cleanup is the caller's responsibility.
func (m *MaterialPostgreSQL) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID string) error {
	err := m.getDB(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Delete(&models.Material{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete course materials: %w", err)
	}
	cache.InvalidateMaterialCache(ctx, m.cacheManager, courseID)

	return nil
}

// ListByCourse retrieves materials in a stable order: newest upload
// first, id descending as tiebreaker for same-second uploads.
func (m *MaterialPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID string, filters repositories.MaterialFilters) ([]*models.Material, int64, error) {
	query := m.getDB(tx).WithContext(ctx).
		Model(&models.Material{}).
		Where("course_id = ?", courseID)
	if filters.Query != "" {
		query = query.Where("title ILIKE ?", "%"+filters.Query+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count materials: %w", err)
	}

	query = query.Order("uploaded_at DESC, id DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var materials []*models.Material
	if err := query.Find(&materials).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list materials: %w", err)
	}

	return materials, total, nil
}

func (m *MaterialPostgreSQL) ExistsByKey(ctx context.Context, tx *gorm.DB, courseID, key string) (bool, error) {
	var count int64
	err := m.getDB(tx).WithContext(ctx).
		Model(&models.Material{}).
		Where("course_id = ? AND key = ?", courseID, key).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check material existence: %w", err)
	}
	return count > 0, nil
}
