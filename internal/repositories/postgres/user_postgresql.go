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

type UserPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewUserPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.UserRepository {
	return &UserPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (u *UserPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return u.db
}

// Create inserts a new account. Duplicate email or username surfaces
// as gorm.ErrDuplicatedKey via the unique indexes.
func (u *UserPostgreSQL) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	if err := u.getDB(tx).WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (u *UserPostgreSQL) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	if err := u.getDB(tx).WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	cache.InvalidateUserCache(ctx, u.cacheManager, user.ID)

	return nil
}

// GetByID retrieves a user by ID with caching
func (u *UserPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	cacheKey := fmt.Sprintf("id:%s", id)
	var user models.User

	err := u.cacheManager.User.CacheOrExecute(ctx, cacheKey, &user, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		var dbUser models.User
		if err := u.getDB(tx).WithContext(ctx).First(&dbUser, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &dbUser, nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetByEmail is used on the login path and is never cached.
func (u *UserPostgreSQL) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := u.getDB(tx).WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername is used on the login path and is never cached.
func (u *UserPostgreSQL) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error) {
	var user models.User
	if err := u.getDB(tx).WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var users []*models.User
	if err := u.getDB(tx).WithContext(ctx).Find(&users, "id IN ?", ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

func (u *UserPostgreSQL) ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	return u.countWhere(ctx, tx, "id = ?", id)
}

func (u *UserPostgreSQL) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	return u.countWhere(ctx, tx, "email = ?", email)
}

func (u *UserPostgreSQL) ExistsByUsername(ctx context.Context, tx *gorm.DB, username string) (bool, error) {
	return u.countWhere(ctx, tx, "username = ?", username)
}

func (u *UserPostgreSQL) HasRole(ctx context.Context, tx *gorm.DB, id string, role models.UserRole) (bool, error) {
	return u.countWhere(ctx, tx, "id = ? AND role = ?", id, role)
}

func (u *UserPostgreSQL) countWhere(ctx context.Context, tx *gorm.DB, query string, args ...interface{}) (bool, error) {
	var count int64
	err := u.getDB(tx).WithContext(ctx).
		Model(&models.User{}).
		Where(query, args...).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return count > 0, nil
}
