package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/auth"
	"github.com/SAP-F-2025/course-service/internal/events"
	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

const bcryptCost = 10

type identityService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	jwtService     *auth.JWTService
	tokenStore     auth.TokenStoreInterface
	eventPublisher events.EventPublisher
}

func NewIdentityService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	eventPublisher events.EventPublisher,
) IdentityService {
	return &identityService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      validator,
		jwtService:     jwtService,
		tokenStore:     tokenStore,
		eventPublisher: eventPublisher,
	}
}

// Register creates an account with a hashed password and signs the new
// user in.
func (s *identityService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	s.logger.Info("Registering user", "username", req.Username, "role", req.Role)

	// Pre-checks give precise conflict errors; the unique indexes stay
	// the last line of defense under races.
	if taken, err := s.repo.User().ExistsByEmail(ctx, s.db, req.Email); err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	} else if taken {
		return nil, ErrEmailTaken
	}
	if taken, err := s.repo.User().ExistsByUsername(ctx, s.db, req.Username); err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	} else if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         req.Role,
		Institution:  req.Institution,
	}

	if err := s.repo.User().Create(ctx, s.db, user); err != nil {
		if isDuplicateKey(err) {
			return nil, NewConflictError("user", "email or username already in use")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventUserRegistered, map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	}))

	return s.issueTokens(ctx, user)
}

// Login authenticates by username, password, and role. Every mismatch
// reads the same to the caller; nothing discloses which field was wrong.
func (s *identityService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByUsername(ctx, s.db, req.Username)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Role != req.Role {
		return nil, ErrInvalidCredentials
	}

	s.logger.Info("User logged in", "user_id", user.ID)

	return s.issueTokens(ctx, user)
}

// Refresh exchanges a live refresh token for a new access token. The
// token must still be present in the store; logout revokes it.
func (s *identityService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	userID, _, err := s.tokenStore.GetRefreshToken(ctx, tokenID)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	// Re-read the user so a changed role takes effect on refresh.
	user, err := s.repo.User().GetByID(ctx, s.db, userID)
	if err != nil {
		if isNotFound(err) {
			return "", ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}

	return accessToken, nil
}

// Logout revokes the refresh token. Revoking an already-revoked token
// succeeds.
func (s *identityService) Logout(ctx context.Context, refreshToken string) error {
	tokenID, err := s.jwtService.ExtractTokenID(refreshToken)
	if err != nil {
		return ErrInvalidRefreshToken
	}
	return s.tokenStore.DeleteRefreshToken(ctx, tokenID)
}

// GetProfile returns a user profile. Any authenticated user may read
// any profile; credentials are never serialized.
func (s *identityService) GetProfile(ctx context.Context, actor Actor, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, s.db, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes display fields on the actor's own profile.
// Role and id are immutable here.
func (s *identityService) UpdateProfile(ctx context.Context, actor Actor, userID string, req *ProfileUpdateRequest) (*models.User, error) {
	if actor.ID != userID {
		return nil, NewPermissionError(actor.ID, userID, "user", "update", "profiles are self-service only")
	}

	if errs := s.validator.GetBusinessValidator().ValidateProfileUpdate(req); len(errs) > 0 {
		return nil, errs
	}

	user, err := s.repo.User().GetByID(ctx, s.db, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if req.Email != nil && *req.Email != user.Email {
		taken, err := s.repo.User().ExistsByEmail(ctx, s.db, *req.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if taken {
			return nil, ErrEmailTaken
		}
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Institution != nil {
		user.Institution = *req.Institution
	}

	if err := s.repo.User().Update(ctx, s.db, user); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("Profile updated", "user_id", user.ID)

	return user, nil
}

// ChangePassword verifies the current password before setting the new one.
func (s *identityService) ChangePassword(ctx context.Context, actor Actor, userID string, req *PasswordChangeRequest) error {
	if actor.ID != userID {
		return NewPermissionError(actor.ID, userID, "user", "change_password", "passwords are self-service only")
	}

	if err := s.validator.Validate(req); err != nil {
		return err
	}

	user, err := s.repo.User().GetByID(ctx, s.db, userID)
	if err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	if err := s.repo.User().Update(ctx, s.db, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("Password changed", "user_id", user.ID)

	return nil
}

func (s *identityService) issueTokens(ctx context.Context, user *models.User) (*AuthResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, user.ID, user.Role, auth.RefreshTokenExpiry); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

// publishEvent publishes best-effort; event delivery never fails the
// user-facing operation.
func (s *identityService) publishEvent(ctx context.Context, event events.Event) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "type", event.Type, "error", err)
	}
}
