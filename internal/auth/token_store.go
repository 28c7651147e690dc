package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/course-service/internal/models"
)

const refreshTokenKeyPrefix = "refresh_token:"

// ErrRefreshTokenNotFound is returned when the token was never issued,
// expired, or was revoked by logout.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// TokenStoreInterface defines the interface for refresh token storage.
type TokenStoreInterface interface {
	StoreRefreshToken(ctx context.Context, tokenID, userID string, role models.UserRole, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, tokenID string) (userID string, role models.UserRole, err error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
}

// TokenStore handles storage and retrieval of refresh tokens in Redis.
// Presence of the key is what makes a refresh token live; logout
// revokes by deleting it.
type TokenStore struct {
	client *redis.Client
}

var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

type refreshTokenData struct {
	UserID string          `json:"user_id"`
	Role   models.UserRole `json:"role"`
}

// StoreRefreshToken stores a refresh token in Redis with TTL.
func (s *TokenStore) StoreRefreshToken(ctx context.Context, tokenID, userID string, role models.UserRole, ttl time.Duration) error {
	payload, err := json.Marshal(refreshTokenData{UserID: userID, Role: role})
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}

	return s.client.Set(ctx, refreshTokenKeyPrefix+tokenID, payload, ttl).Err()
}

// GetRefreshToken retrieves refresh token data from Redis.
func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (string, models.UserRole, error) {
	data, err := s.client.Get(ctx, refreshTokenKeyPrefix+tokenID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", "", ErrRefreshTokenNotFound
		}
		return "", "", fmt.Errorf("get refresh token: %w", err)
	}

	var tokenData refreshTokenData
	if err := json.Unmarshal([]byte(data), &tokenData); err != nil {
		return "", "", fmt.Errorf("unmarshal token data: %w", err)
	}

	return tokenData.UserID, tokenData.Role, nil
}

// DeleteRefreshToken removes a refresh token from Redis.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return s.client.Del(ctx, refreshTokenKeyPrefix+tokenID).Err()
}
