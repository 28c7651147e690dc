package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/cache"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/repositories/casdoor"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	// Repository instances
	course     repositories.CourseRepository
	enrollment repositories.EnrollmentRepository
	material   repositories.MaterialRepository
	user       repositories.UserRepository

	// userIsExternal marks a user repository backed by an identity
	// provider instead of the local database.
	userIsExternal bool
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client

	// UseCasdoor selects the external identity provider for the user
	// repository; otherwise users live in the local database.
	UseCasdoor    bool
	CasdoorConfig casdoor.CasdoorConfig
}

// NewPostgreSQLRepository creates a new repository manager with all sub-repositories
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	repo := &PostgreSQLRepository{
		db:           config.DB,
		redisClient:  config.RedisClient,
		cacheManager: cache.NewCacheManager(config.RedisClient),
	}

	repo.course = NewCoursePostgreSQL(config.DB, config.RedisClient)
	repo.enrollment = NewEnrollmentPostgreSQL(config.DB, config.RedisClient)
	repo.material = NewMaterialPostgreSQL(config.DB, config.RedisClient)

	if config.UseCasdoor {
		repo.user = casdoor.NewUserCasdoor(config.CasdoorConfig, config.RedisClient)
		repo.userIsExternal = true
	} else {
		repo.user = NewUserPostgreSQL(config.DB, config.RedisClient)
	}

	return repo
}

// Course returns the course repository
func (r *PostgreSQLRepository) Course() repositories.CourseRepository {
	return r.course
}

// Enrollment returns the enrollment repository
func (r *PostgreSQLRepository) Enrollment() repositories.EnrollmentRepository {
	return r.enrollment
}

// Material returns the material repository
func (r *PostgreSQLRepository) Material() repositories.MaterialRepository {
	return r.material
}

// User returns the user repository
func (r *PostgreSQLRepository) User() repositories.UserRepository {
	return r.user
}

// WithTransaction executes a function within a database transaction
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			db:             tx,
			redisClient:    r.redisClient,
			cacheManager:   r.cacheManager,
			userIsExternal: r.userIsExternal,
		}

		txRepo.course = NewCoursePostgreSQL(tx, r.redisClient)
		txRepo.enrollment = NewEnrollmentPostgreSQL(tx, r.redisClient)
		txRepo.material = NewMaterialPostgreSQL(tx, r.redisClient)

		// An external user repository has no local transaction to join
		if r.userIsExternal {
			txRepo.user = r.user
		} else {
			txRepo.user = NewUserPostgreSQL(tx, r.redisClient)
		}

		return fn(txRepo)
	})
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}

	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}

	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{
		config: config,
	}
}

// Initialize initializes all repositories and connections
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	rm.repo = NewPostgreSQLRepository(rm.config)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return rm.repo.Ping(ctx)
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// HealthCheck verifies all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repositories not initialized")
	}
	return rm.repo.Ping(ctx)
}

// Shutdown closes all repository connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}
