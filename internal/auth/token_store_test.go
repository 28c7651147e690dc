package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/course-service/internal/models"
)

func testTokenStore(t *testing.T) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTokenStore(client), mr
}

func TestTokenStoreRoundTrip(t *testing.T) {
	store, _ := testTokenStore(t)
	ctx := context.Background()

	if err := store.StoreRefreshToken(ctx, "tok1", "u1", models.RoleStudent, time.Hour); err != nil {
		t.Fatalf("StoreRefreshToken() error = %v", err)
	}

	userID, role, err := store.GetRefreshToken(ctx, "tok1")
	if err != nil {
		t.Fatalf("GetRefreshToken() error = %v", err)
	}
	if userID != "u1" {
		t.Errorf("userID = %q, want u1", userID)
	}
	if role != models.RoleStudent {
		t.Errorf("role = %q, want student", role)
	}
}

func TestTokenStoreUnknownToken(t *testing.T) {
	store, _ := testTokenStore(t)

	_, _, err := store.GetRefreshToken(context.Background(), "missing")
	if !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Errorf("GetRefreshToken() error = %v, want ErrRefreshTokenNotFound", err)
	}
}

func TestTokenStoreDelete(t *testing.T) {
	store, _ := testTokenStore(t)
	ctx := context.Background()

	if err := store.StoreRefreshToken(ctx, "tok1", "u1", models.RoleTeacher, time.Hour); err != nil {
		t.Fatalf("StoreRefreshToken() error = %v", err)
	}
	if err := store.DeleteRefreshToken(ctx, "tok1"); err != nil {
		t.Fatalf("DeleteRefreshToken() error = %v", err)
	}

	if _, _, err := store.GetRefreshToken(ctx, "tok1"); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Errorf("GetRefreshToken() after delete error = %v, want ErrRefreshTokenNotFound", err)
	}

	// Deleting again is a no-op.
	if err := store.DeleteRefreshToken(ctx, "tok1"); err != nil {
		t.Errorf("second DeleteRefreshToken() error = %v", err)
	}
}

func TestTokenStoreExpiry(t *testing.T) {
	store, mr := testTokenStore(t)
	ctx := context.Background()

	if err := store.StoreRefreshToken(ctx, "tok1", "u1", models.RoleStudent, time.Minute); err != nil {
		t.Fatalf("StoreRefreshToken() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, _, err := store.GetRefreshToken(ctx, "tok1"); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Errorf("GetRefreshToken() after expiry error = %v, want ErrRefreshTokenNotFound", err)
	}
}
