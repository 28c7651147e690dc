package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a cache pattern, logging instead of
// failing when the cache is unhealthy.
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes cache keys, logging instead of failing.
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateCourseCache drops everything keyed on one course: the course
// itself, its roster, its material listing, and the code lookup entry.
func InvalidateCourseCache(ctx context.Context, cm *CacheManager, courseID string) {
	SafeDelete(ctx, cm.Course, fmt.Sprintf("id:%s", courseID))
	SafeInvalidatePattern(ctx, cm.Course, "code:*")
	SafeDelete(ctx, cm.Roster, fmt.Sprintf("course:%s", courseID))
	SafeDelete(ctx, cm.Material, fmt.Sprintf("course:%s", courseID))
	SafeInvalidatePattern(ctx, cm.Exists, fmt.Sprintf("member:%s:*", courseID))
}

// InvalidateRosterCache drops the roster and membership entries for one course
func InvalidateRosterCache(ctx context.Context, cm *CacheManager, courseID, studentID string) {
	SafeDelete(ctx, cm.Roster, fmt.Sprintf("course:%s", courseID))
	SafeDelete(ctx, cm.Exists, fmt.Sprintf("member:%s:%s", courseID, studentID))
	SafeInvalidatePattern(ctx, cm.Course, fmt.Sprintf("student:%s:*", studentID))
}

// InvalidateMaterialCache drops the material listing for one course
func InvalidateMaterialCache(ctx context.Context, cm *CacheManager, courseID string) {
	SafeDelete(ctx, cm.Material, fmt.Sprintf("course:%s", courseID))
}

// InvalidateUserCache drops a cached user profile
func InvalidateUserCache(ctx context.Context, cm *CacheManager, userID string) {
	SafeDelete(ctx, cm.User, fmt.Sprintf("id:%s", userID))
}
