/*
errors.go - Centralized error types for the attendance core

PURPOSE:
  All error kinds in one place for consistency and discoverability.
  The HTTP layer maps these to status codes in a single switch.

ERROR CATEGORIES:
  1. Authorization errors - missing/malformed user, denied scope
  2. Submission errors - malformed form input
  3. Store errors - persistence failures, missing rows

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, attendance.ErrInvalidSubmission) {
        // reject the form, don't 500
    }

SEE ALSO:
  - scope.go, merge.go: return these errors
  - api/handlers.go: maps them to HTTP responses
*/
package attendance

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidUser is returned when the acting user is malformed,
	// typically a session user without a role.
	ErrInvalidUser = errors.New("invalid user")

	// ErrInvalidSubmission is returned when a per-kid submission is malformed.
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrStorage is returned when the store fails to read or write.
	ErrStorage = errors.New("storage failure")

	// ErrNotFound is returned when a referenced kid, user, or day doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrBadCredentials is returned on a failed login. Deliberately silent
	// about whether the username or the password was wrong.
	ErrBadCredentials = errors.New("bad credentials")

	// ErrScopeDenied is returned when a user acts on a kid outside their scope.
	ErrScopeDenied = errors.New("kid outside user scope")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidUserError reports why a session user was rejected.
type InvalidUserError struct {
	Username string
	Reason   string
}

func (e *InvalidUserError) Error() string {
	return fmt.Sprintf("invalid user %q: %s", e.Username, e.Reason)
}

func (e *InvalidUserError) Unwrap() error {
	return ErrInvalidUser
}

// InvalidSubmissionError reports which submitted mark was malformed.
type InvalidSubmissionError struct {
	KidID  string
	Reason string
}

func (e *InvalidSubmissionError) Error() string {
	return fmt.Sprintf("invalid submission for kid %q: %s", e.KidID, e.Reason)
}

func (e *InvalidSubmissionError) Unwrap() error {
	return ErrInvalidSubmission
}

// StorageError wraps a driver-level failure with the operation that hit it.
type StorageError struct {
	Op  string // e.g., "attendance.replace_day"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return ErrStorage
}

// NotFoundError identifies the missing row.
type NotFoundError struct {
	Kind string // "kid", "user"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidUser) ||
		errors.Is(err, ErrInvalidSubmission) ||
		errors.Is(err, ErrBadCredentials) ||
		errors.Is(err, ErrScopeDenied)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
