package services

import (
	"errors"
	"fmt"
)

// ===== NOT FOUND ERRORS =====

var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrMaterialNotFound   = errors.New("material not found")

	// ErrCodeNotFound covers both codes that never existed and codes
	// retired by regeneration; the two are indistinguishable on purpose.
	ErrCodeNotFound = errors.New("enrollment code not found")
)

// ===== UPLOAD ERRORS =====

// ErrUnsupportedMediaType rejects uploads whose content type is
// outside the configured allow-list.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// ===== AUTH ERRORS =====

var (
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrNotAuthenticated    = errors.New("not authenticated")
)

// ===== CONFLICT ERRORS =====

var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
)

// ConflictError reports a state conflict that retrying with the same
// input will not fix.
type ConflictError struct {
	Resource string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %s", e.Resource, e.Reason)
}

func NewConflictError(resource, reason string) *ConflictError {
	return &ConflictError{Resource: resource, Reason: reason}
}

// ===== PERMISSION ERRORS =====

// PermissionError reports a denied action. It never discloses whether
// the resource exists beyond what the caller already proved.
type PermissionError struct {
	UserID     string
	ResourceID string
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %s: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID string, resourceID interface{}, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: fmt.Sprintf("%v", resourceID),
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// ===== TRANSIENT ERRORS =====

// TransientError marks a failure of a dependency (database, cache,
// broker, object store) that a retry may resolve.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func NewTransientError(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

// stringPtr returns a pointer to s.
func stringPtr(s string) *string {
	return &s
}
