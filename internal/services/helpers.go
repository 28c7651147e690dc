package services

import (
	"errors"

	"gorm.io/gorm"
)

// isNotFound reports whether err is the database's record-not-found.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicateKey reports whether err is a unique constraint violation.
// Requires TranslateError on the gorm connection.
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func pageOf(limit, offset int) int {
	if limit <= 0 {
		return 1
	}
	return offset/limit + 1
}
