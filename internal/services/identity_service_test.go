package services

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/course-service/internal/auth"
	"github.com/SAP-F-2025/course-service/internal/events"
	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

func newIdentityFixture(t *testing.T) (*fakeRepository, *events.MockEventPublisher, IdentityService) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := newFakeRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewIdentityService(
		repo, nil, testLogger(), testValidator(),
		auth.NewJWTService("test-secret"),
		auth.NewTokenStore(client),
		publisher,
	)
	return repo, publisher, svc
}

func registerRequest() *RegisterRequest {
	return &RegisterRequest{
		FirstName:   "Grace",
		LastName:    "Hopper",
		Email:       "grace@example.edu",
		Username:    "ghopper",
		Password:    "compilers1",
		Role:        models.RoleTeacher,
		Institution: "Example University",
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	_, publisher, svc := newIdentityFixture(t)

	resp, err := svc.Register(ctx, registerRequest())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("registration did not issue a token pair")
	}
	if resp.User.PasswordHash == registerRequest().Password {
		t.Error("password stored in plaintext")
	}
	if resp.User.Role != models.RoleTeacher {
		t.Errorf("Role = %s, want teacher", resp.User.Role)
	}

	found := false
	for _, event := range publisher.GetPublishedEvents() {
		if event.Type == events.EventUserRegistered {
			found = true
		}
	}
	if !found {
		t.Error("user.registered event not published")
	}
}

func TestRegisterConflicts(t *testing.T) {
	ctx := context.Background()

	_, _, svc := newIdentityFixture(t)

	if _, err := svc.Register(ctx, registerRequest()); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	dupEmail := registerRequest()
	dupEmail.Username = "different"
	if _, err := svc.Register(ctx, dupEmail); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Register() with taken email error = %v, want ErrEmailTaken", err)
	}

	dupUsername := registerRequest()
	dupUsername.Email = "different@example.edu"
	if _, err := svc.Register(ctx, dupUsername); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Register() with taken username error = %v, want ErrUsernameTaken", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()

	_, _, svc := newIdentityFixture(t)

	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
	}{
		{name: "weak password", mutate: func(r *RegisterRequest) { r.Password = "short" }},
		{name: "letters-only password", mutate: func(r *RegisterRequest) { r.Password = "longenoughbutletters" }},
		{name: "bad email", mutate: func(r *RegisterRequest) { r.Email = "not-an-email" }},
		{name: "bad role", mutate: func(r *RegisterRequest) { r.Role = "admin" }},
		{name: "short username", mutate: func(r *RegisterRequest) { r.Username = "ab" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := registerRequest()
			tt.mutate(req)
			_, err := svc.Register(ctx, req)
			var validationErrs validator.ValidationErrors
			if !errors.As(err, &validationErrs) {
				t.Errorf("Register() error = %v, want ValidationErrors", err)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	_, _, svc := newIdentityFixture(t)
	if _, err := svc.Register(ctx, registerRequest()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	resp, err := svc.Login(ctx, &LoginRequest{Username: "ghopper", Password: "compilers1", Role: models.RoleTeacher})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("login issued no access token")
	}

	if _, err := svc.Login(ctx, &LoginRequest{Username: "ghopper", Password: "wrong", Role: models.RoleTeacher}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() with wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, &LoginRequest{Username: "nobody", Password: "whatever", Role: models.RoleStudent}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() for unknown user error = %v, want ErrInvalidCredentials", err)
	}

	// Role is part of the credentials; a mismatch reads exactly like a
	// bad password.
	if _, err := svc.Login(ctx, &LoginRequest{Username: "ghopper", Password: "compilers1", Role: models.RoleStudent}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() with wrong role error = %v, want ErrInvalidCredentials", err)
	}
}

func TestRefreshAndLogout(t *testing.T) {
	ctx := context.Background()

	_, _, svc := newIdentityFixture(t)
	registered, err := svc.Register(ctx, registerRequest())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	accessToken, err := svc.Refresh(ctx, registered.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if accessToken == "" {
		t.Error("refresh issued no access token")
	}

	if err := svc.Logout(ctx, registered.RefreshToken); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	// Logout is idempotent.
	if err := svc.Logout(ctx, registered.RefreshToken); err != nil {
		t.Errorf("second Logout() error = %v, want nil", err)
	}
	// The revoked token no longer refreshes.
	if _, err := svc.Refresh(ctx, registered.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("Refresh() after logout error = %v, want ErrInvalidRefreshToken", err)
	}

	if _, err := svc.Refresh(ctx, "garbage"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Errorf("Refresh() with garbage error = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	_, _, svc := newIdentityFixture(t)
	registered, err := svc.Register(ctx, registerRequest())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	self := Actor{ID: registered.User.ID, Role: registered.User.Role}

	updated, err := svc.UpdateProfile(ctx, self, self.ID, &ProfileUpdateRequest{
		FirstName: stringPtr("Amazing"),
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.FirstName != "Amazing" {
		t.Errorf("FirstName = %s after update", updated.FirstName)
	}
	if updated.Role != registered.User.Role {
		t.Error("role changed through profile update")
	}

	_, err = svc.UpdateProfile(ctx, Actor{ID: "someone-else", Role: models.RoleTeacher}, self.ID, &ProfileUpdateRequest{
		FirstName: stringPtr("Hacked"),
	})
	var permissionErr *PermissionError
	if !errors.As(err, &permissionErr) {
		t.Errorf("UpdateProfile() on another user error = %v, want PermissionError", err)
	}

	_, err = svc.UpdateProfile(ctx, self, self.ID, &ProfileUpdateRequest{})
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		t.Errorf("UpdateProfile() with no fields error = %v, want ValidationErrors", err)
	}
}

func TestUpdateProfileEmailConflict(t *testing.T) {
	ctx := context.Background()

	_, _, svc := newIdentityFixture(t)
	first, err := svc.Register(ctx, registerRequest())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	other := registerRequest()
	other.Email = "alan@example.edu"
	other.Username = "aturing"
	if _, err := svc.Register(ctx, other); err != nil {
		t.Fatalf("second Register() error = %v", err)
	}

	self := Actor{ID: first.User.ID, Role: first.User.Role}
	_, err = svc.UpdateProfile(ctx, self, self.ID, &ProfileUpdateRequest{
		Email: stringPtr("alan@example.edu"),
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("UpdateProfile() to taken email error = %v, want ErrEmailTaken", err)
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()

	_, _, svc := newIdentityFixture(t)
	registered, err := svc.Register(ctx, registerRequest())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	self := Actor{ID: registered.User.ID, Role: registered.User.Role}

	err = svc.ChangePassword(ctx, self, self.ID, &PasswordChangeRequest{
		CurrentPassword: "wrong",
		NewPassword:     "newsecret2",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("ChangePassword() with wrong current error = %v, want ErrInvalidCredentials", err)
	}

	err = svc.ChangePassword(ctx, self, self.ID, &PasswordChangeRequest{
		CurrentPassword: "compilers1",
		NewPassword:     "newsecret2",
	})
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}

	if _, err := svc.Login(ctx, &LoginRequest{Username: "ghopper", Password: "compilers1", Role: models.RoleTeacher}); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password still works after change")
	}
	if _, err := svc.Login(ctx, &LoginRequest{Username: "ghopper", Password: "newsecret2", Role: models.RoleTeacher}); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}
}
