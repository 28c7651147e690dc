package services

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet excludes nothing: all 36 uppercase alphanumerics are
// valid, matching what students type in from a whiteboard photo.
const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// generateEnrollmentCode produces one random candidate code. Uniqueness
// is not guaranteed here; the database unique index is the arbiter and
// the caller retries on collision.
func generateEnrollmentCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	code := make([]byte, codeLength)
	for i, b := range buf {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(code), nil
}
