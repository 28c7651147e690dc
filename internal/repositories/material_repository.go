package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/models"
)

// MaterialRepository interface for course material metadata
type MaterialRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, material *models.Material) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Material, error)
	GetByKey(ctx context.Context, tx *gorm.DB, courseID, key string) (*models.Material, error)
	Update(ctx context.Context, tx *gorm.DB, material *models.Material) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID string) error

	// ListByCourse returns materials in a stable order: newest upload
	// first, id as tiebreaker.
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID string, filters MaterialFilters) ([]*models.Material, int64, error)

	// Validation and checks
	ExistsByKey(ctx context.Context, tx *gorm.DB, courseID, key string) (bool, error)
}
