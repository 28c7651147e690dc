package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/auth"
	"github.com/SAP-F-2025/course-service/internal/events"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/storage"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

// ServiceManagerConfig holds the cross-service dependencies that are
// not repositories.
type ServiceManagerConfig struct {
	JWTService     *auth.JWTService
	TokenStore     auth.TokenStoreInterface
	BlobStore      storage.BlobStore
	EventPublisher events.EventPublisher
	Material       MaterialServiceConfig
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	identityService   IdentityService
	courseService     CourseService
	enrollmentService EnrollmentService
	materialService   MaterialService

	// Lifecycle management
	initialized bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if sm.config.JWTService == nil || sm.config.TokenStore == nil {
		return fmt.Errorf("auth dependencies are required")
	}
	if sm.config.BlobStore == nil {
		return fmt.Errorf("blob store is required")
	}

	sm.identityService = NewIdentityService(sm.repo, sm.db, sm.logger, sm.validator, sm.config.JWTService, sm.config.TokenStore, sm.config.EventPublisher)
	sm.logger.Info("Identity service initialized")

	sm.courseService = NewCourseService(sm.repo, sm.db, sm.logger, sm.validator, sm.config.BlobStore, sm.config.EventPublisher)
	sm.logger.Info("Course service initialized")

	sm.enrollmentService = NewEnrollmentService(sm.repo, sm.db, sm.logger, sm.validator, sm.config.EventPublisher)
	sm.logger.Info("Enrollment service initialized")

	sm.materialService = NewMaterialService(sm.repo, sm.db, sm.logger, sm.validator, sm.config.BlobStore, sm.config.EventPublisher, sm.config.Material)
	sm.logger.Info("Material service initialized")

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters
func (sm *serviceManager) Identity() IdentityService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.identityService
}

func (sm *serviceManager) Course() CourseService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.courseService
}

func (sm *serviceManager) Enrollment() EnrollmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.enrollmentService
}

func (sm *serviceManager) Material() MaterialService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.materialService
}

// HealthCheck verifies the backing stores are reachable
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	return sm.repo.Ping(ctx)
}

// Shutdown releases resources held by the services
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.config.EventPublisher != nil {
		if err := sm.config.EventPublisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.initialized = false
	return nil
}
