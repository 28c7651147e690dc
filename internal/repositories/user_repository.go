package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/models"
)

// UserRepository interface for user operations. The postgres
// implementation owns user rows; the casdoor implementation is a
// read-mostly adapter over the identity provider.
type UserRepository interface {
	// Write operations (no-ops under an external identity provider)
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error

	// Basic read operations
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.User, error)

	// Validation and checks
	ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error)
	ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error)
	ExistsByUsername(ctx context.Context, tx *gorm.DB, username string) (bool, error)
	HasRole(ctx context.Context, tx *gorm.DB, id string, role models.UserRole) (bool, error)
}
