package casdoor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
)

// ErrExternallyManaged is returned for write operations that only the
// identity provider may perform.
var ErrExternallyManaged = errors.New("user accounts are managed by the identity provider")

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// UserCasdoor adapts the Casdoor SDK to the UserRepository interface.
// The tx parameter is accepted for interface compatibility and ignored;
// the provider has no notion of the local transaction.
type UserCasdoor struct {
	client *casdoorsdk.Client
	redis  *redis.Client
	config CasdoorConfig

	cachePrefix string
	cacheTTL    time.Duration
}

func NewUserCasdoor(config CasdoorConfig, redisClient *redis.Client) repositories.UserRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return &UserCasdoor{
		client:      client,
		redis:       redisClient,
		config:      config,
		cachePrefix: "user:",
		cacheTTL:    15 * time.Minute,
	}
}

// ===== CACHE METHODS =====

func (u *UserCasdoor) getCacheKey(key string) string {
	return fmt.Sprintf("%s%s", u.cachePrefix, key)
}

func (u *UserCasdoor) getUserFromCache(ctx context.Context, key string) (*models.User, error) {
	if u.redis == nil {
		return nil, nil
	}

	data, err := u.redis.Get(ctx, u.getCacheKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached user: %w", err)
	}

	return &user, nil
}

func (u *UserCasdoor) setUserCache(ctx context.Context, key string, user *models.User) error {
	if u.redis == nil {
		return nil
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user for cache: %w", err)
	}

	return u.redis.Set(ctx, u.getCacheKey(key), data, u.cacheTTL).Err()
}

// ===== CONVERSION METHODS =====

func (u *UserCasdoor) convertCasdoorUserToModel(casdoorUser *casdoorsdk.User) *models.User {
	if casdoorUser == nil {
		return nil
	}

	firstName, lastName := splitDisplayName(casdoorUser.DisplayName)
	if casdoorUser.FirstName != "" {
		firstName = casdoorUser.FirstName
	}
	if casdoorUser.LastName != "" {
		lastName = casdoorUser.LastName
	}

	var createdAt, updatedAt time.Time
	if casdoorUser.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, casdoorUser.CreatedTime)
	}
	if casdoorUser.UpdatedTime != "" {
		updatedAt, _ = time.Parse(time.RFC3339, casdoorUser.UpdatedTime)
	}

	return &models.User{
		ID:          casdoorUser.Id,
		FirstName:   firstName,
		LastName:    lastName,
		Email:       casdoorUser.Email,
		Username:    casdoorUser.Name,
		Role:        u.convertCasdoorRolesToModel(casdoorUser),
		Institution: u.getPropertyOrDefault(casdoorUser.Properties, "institution", casdoorUser.Affiliation),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}
}

func splitDisplayName(displayName string) (string, string) {
	parts := strings.SplitN(strings.TrimSpace(displayName), " ", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return displayName, ""
}

// convertCasdoorRolesToModel collapses provider roles onto the closed
// two-variant role enum. Anything that is not recognizably a teacher
// defaults to student, the lower privilege.
func (u *UserCasdoor) convertCasdoorRolesToModel(casdoorUser *casdoorsdk.User) models.UserRole {
	for _, casdoorRole := range casdoorUser.Roles {
		switch strings.ToLower(casdoorRole.Name) {
		case "teacher", "instructor", "faculty":
			return models.RoleTeacher
		}
	}
	return models.RoleStudent
}

func (u *UserCasdoor) getPropertyOrDefault(properties map[string]string, key, defaultValue string) string {
	if value, exists := properties[key]; exists && value != "" {
		return value
	}
	return defaultValue
}

// ===== WRITE OPERATIONS =====

// Create is rejected; registration happens in the provider.
func (u *UserCasdoor) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	return ErrExternallyManaged
}

// Update pushes the mutable profile fields back to the provider and
// drops the local cache entries.
func (u *UserCasdoor) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	casdoorUser, err := u.client.GetUserByUserId(user.ID)
	if err != nil {
		return fmt.Errorf("failed to get user from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return gorm.ErrRecordNotFound
	}

	casdoorUser.DisplayName = strings.TrimSpace(user.FirstName + " " + user.LastName)
	casdoorUser.FirstName = user.FirstName
	casdoorUser.LastName = user.LastName
	casdoorUser.Email = user.Email
	casdoorUser.Affiliation = user.Institution

	if _, err := u.client.UpdateUser(casdoorUser); err != nil {
		return fmt.Errorf("failed to update user in Casdoor: %w", err)
	}

	if u.redis != nil {
		u.redis.Del(ctx,
			u.getCacheKey(fmt.Sprintf("id:%s", user.ID)),
			u.getCacheKey(fmt.Sprintf("email:%s", user.Email)))
	}

	return nil
}

// ===== BASIC READ OPERATIONS =====

// GetByID retrieves a user by ID
func (u *UserCasdoor) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	cacheKey := fmt.Sprintf("id:%s", id)
	if cachedUser, err := u.getUserFromCache(ctx, cacheKey); err == nil && cachedUser != nil {
		return cachedUser, nil
	}

	casdoorUser, err := u.client.GetUserByUserId(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return nil, gorm.ErrRecordNotFound
	}

	user := u.convertCasdoorUserToModel(casdoorUser)

	u.setUserCache(ctx, cacheKey, user)
	u.setUserCache(ctx, fmt.Sprintf("email:%s", user.Email), user)

	return user, nil
}

// GetByEmail retrieves a user by email
func (u *UserCasdoor) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	cacheKey := fmt.Sprintf("email:%s", email)
	if cachedUser, err := u.getUserFromCache(ctx, cacheKey); err == nil && cachedUser != nil {
		return cachedUser, nil
	}

	casdoorUser, err := u.client.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return nil, gorm.ErrRecordNotFound
	}

	user := u.convertCasdoorUserToModel(casdoorUser)

	u.setUserCache(ctx, cacheKey, user)
	u.setUserCache(ctx, fmt.Sprintf("id:%s", user.ID), user)

	return user, nil
}

// GetByUsername retrieves a user by provider login name
func (u *UserCasdoor) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error) {
	casdoorUser, err := u.client.GetUser(username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by name from Casdoor: %w", err)
	}
	if casdoorUser == nil {
		return nil, gorm.ErrRecordNotFound
	}

	return u.convertCasdoorUserToModel(casdoorUser), nil
}

// GetByIDs retrieves multiple users by their IDs
func (u *UserCasdoor) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}

	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		user, err := u.GetByID(ctx, tx, id)
		if err != nil {
			// Skip users the provider no longer knows about
			continue
		}
		users = append(users, user)
	}

	return users, nil
}

// ===== VALIDATION AND CHECKS =====

func (u *UserCasdoor) ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	user, err := u.GetByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return user != nil, nil
}

func (u *UserCasdoor) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	user, err := u.GetByEmail(ctx, tx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return user != nil, nil
}

func (u *UserCasdoor) ExistsByUsername(ctx context.Context, tx *gorm.DB, username string) (bool, error) {
	user, err := u.GetByUsername(ctx, tx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return user != nil, nil
}

func (u *UserCasdoor) HasRole(ctx context.Context, tx *gorm.DB, id string, role models.UserRole) (bool, error) {
	user, err := u.GetByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.Role == role, nil
}
