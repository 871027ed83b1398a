package errors

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrValidation marks bad caller input. It is always returned before
	// the store is touched.
	ErrValidation = errors.New("validation failed")

	// ErrUnknownEntity marks a reference to something the store has never
	// seen, such as a rating for a food that was never on a menu.
	ErrUnknownEntity = errors.New("unknown entity")
)

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnknownEntity reports whether err refers to a missing entity.
func IsUnknownEntity(err error) bool {
	return errors.Is(err, ErrUnknownEntity)
}

// IsConflict reports whether err is a unique constraint violation. Two
// writers racing to create the same key end up here; re-running the
// operation resolves the row the winner created.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "unique constraint")
}

// IsRetryable reports whether the same call may be repeated verbatim.
// Ingestion and rating submission are both safe to replay.
func IsRetryable(err error) bool {
	if err == nil || IsValidation(err) || IsUnknownEntity(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if IsConflict(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "serialization") ||
		strings.Contains(lower, "deadlock") ||
		strings.Contains(lower, "database is locked")
}
