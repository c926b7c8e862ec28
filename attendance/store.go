/*
store.go - Persistence interfaces for roster, attendance, and users

PURPOSE:
  Defines the boundary between the attendance core and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  RosterStore:     The kid list (read for marking, admin CRUD)
  AttendanceStore: The record table, keyed by (date, kid)
  UserStore:       Accounts with roles and program assignments

REPLACE-A-DAY CONTRACT:
  Submissions rewrite one day wholesale, so the attendance interface
  models that explicitly: ReplaceDay atomically swaps a day's slice for
  the given records. There is no per-record update; the last submission
  for a day wins. SaveAll replaces the entire table and exists for bulk
  import from the legacy flat-file deployment.

ERRORS:
  Implementations surface driver failures as *StorageError and missing
  rows as *NotFoundError, so callers classify with errors.Is against
  ErrStorage / ErrNotFound without knowing the backend.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - attendance/store/memory.go: In-memory for testing and dev mode

SEE ALSO:
  - merge.go: Produces the slices ReplaceDay persists
  - api/handlers.go: Orchestrates stores around the engine
*/
package attendance

import "context"

// =============================================================================
// ROSTER STORE
// =============================================================================

type RosterStore interface {
	// ListKids returns the full roster in name order.
	ListKids(ctx context.Context) ([]Kid, error)

	// GetKid returns one kid, or a NotFoundError.
	GetKid(ctx context.Context, id string) (Kid, error)

	// SaveKid inserts or replaces a kid by id.
	SaveKid(ctx context.Context, kid Kid) error

	// DeleteKid removes a kid. Unknown ids are a NotFoundError.
	DeleteKid(ctx context.Context, id string) error
}

// =============================================================================
// ATTENDANCE STORE
// =============================================================================

type AttendanceStore interface {
	// LoadAll returns every record, all dates.
	LoadAll(ctx context.Context) (AttendanceSet, error)

	// LoadDay returns the records dated day.
	LoadDay(ctx context.Context, day Day) (AttendanceSet, error)

	// ReplaceDay atomically swaps day's slice for records, which must all
	// be dated day. An empty records slice clears the day.
	ReplaceDay(ctx context.Context, day Day, records AttendanceSet) error

	// SaveAll replaces the entire table. Bulk import only.
	SaveAll(ctx context.Context, records AttendanceSet) error

	// Days returns the distinct days having records, newest first.
	Days(ctx context.Context) ([]Day, error)
}

// =============================================================================
// USER STORE
// =============================================================================

// StoredUser is a User plus the credential hash. It never crosses the API
// boundary; handlers strip it down to User.
type StoredUser struct {
	User
	PasswordHash string
}

type UserStore interface {
	// GetUser returns one account by username, or a NotFoundError.
	GetUser(ctx context.Context, username string) (StoredUser, error)

	// ListUsers returns all accounts in username order.
	ListUsers(ctx context.Context) ([]StoredUser, error)

	// SaveUser inserts or replaces an account by username.
	SaveUser(ctx context.Context, u StoredUser) error

	// DeleteUser removes an account. Unknown usernames are a NotFoundError.
	DeleteUser(ctx context.Context, username string) error
}
