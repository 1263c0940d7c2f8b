package request

import (
	"errors"
	"fmt"
)

// Sentinel errors for the request package.
var (
	// ErrNotFound indicates the request doesn't exist.
	ErrNotFound = errors.New("request not found")

	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate entry")

	// ErrConstraint indicates a foreign key or check constraint violation.
	ErrConstraint = errors.New("constraint violation")

	// ErrLegacyIDRequired rejects TV submissions lacking the legacy TV
	// database ID the series automation service keys on. Checked before
	// any lock is taken.
	ErrLegacyIDRequired = errors.New("tv request requires a legacy series id")

	// ErrNotConfigured rejects privileged submissions for a media kind
	// whose automation service is absent. Unlike downstream failures it
	// leaves no marker record.
	ErrNotConfigured = errors.New("automation service not configured")
)

// ConflictError reports that an active request already covers the
// subject. Carries the winner so callers can point the user at it.
type ConflictError struct {
	ExistingID string
	Status     Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("an active request already exists (id %s, status %s)", e.ExistingID, e.Status)
}

// QuotaError reports an exhausted rolling quota.
type QuotaError struct {
	Limit      int
	Remaining  int
	WindowDays int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("request quota exhausted: %d remaining of %d per %d days", e.Remaining, e.Limit, e.WindowDays)
}
