/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (RosterStore, AttendanceStore,
  UserStore) using SQLite. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  attendance.RosterStore:     The kid roster
  attendance.AttendanceStore: Daily records, keyed by (date, kid)
  attendance.UserStore:       Accounts with roles and programs

REPLACE-A-DAY ENFORCEMENT:
  Submissions rewrite one day wholesale. ReplaceDay runs DELETE-for-day
  plus the fresh inserts inside a single transaction, so a day's slice
  is never observed half-written. There is no per-record UPDATE.

KEY TABLES:
  kids:       The roster (id, name, age, gender, program)
  attendance: One row per kid per day
  users:      Accounts (username, role, comma-separated programs, bcrypt hash)

INDEXES:
  - idx_attendance_date_kid: UNIQUE, enforces one record per (date, kid)
  - idx_attendance_date:     Day loads and distinct-day listing
  - idx_kids_program:        Leader scope filtering

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/rollcall.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - attendance/store.go: Interface definitions
  - attendance/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/rollcall/attendance"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ attendance.RosterStore     = (*Store)(nil)
	_ attendance.AttendanceStore = (*Store)(nil)
	_ attendance.UserStore       = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Kids (the roster)
	CREATE TABLE IF NOT EXISTS kids (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		age INTEGER NOT NULL DEFAULT 0,
		gender TEXT NOT NULL DEFAULT '',
		program TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_kids_program
		ON kids(program);

	-- Attendance (one row per kid per day)
	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		kid_id TEXT NOT NULL,
		present INTEGER NOT NULL DEFAULT 0,
		note TEXT NOT NULL DEFAULT '',
		program TEXT NOT NULL DEFAULT '',
		marked_by TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	-- CRITICAL: one record per (date, kid). Submissions replace whole days,
	-- so a violation here means a caller bypassed the merge path.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_date_kid
		ON attendance(date, kid_id);

	CREATE INDEX IF NOT EXISTS idx_attendance_date
		ON attendance(date);
	CREATE INDEX IF NOT EXISTS idx_attendance_kid
		ON attendance(kid_id);

	-- Users (accounts with roles and program assignments)
	CREATE TABLE IF NOT EXISTS users (
		username TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		programs TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ROSTER STORE (attendance.RosterStore interface)
// =============================================================================

// ListKids returns the full roster in name order.
func (s *Store) ListKids(ctx context.Context) ([]attendance.Kid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, age, gender, program FROM kids ORDER BY name, id",
	)
	if err != nil {
		return nil, storeErr("roster.list", err)
	}
	defer rows.Close()

	var kids []attendance.Kid
	for rows.Next() {
		var k attendance.Kid
		if err := rows.Scan(&k.ID, &k.Name, &k.Age, &k.Gender, &k.Program); err != nil {
			return nil, storeErr("roster.scan", err)
		}
		kids = append(kids, k)
	}
	return kids, rowsErr("roster.list", rows)
}

// GetKid retrieves one kid by id.
func (s *Store) GetKid(ctx context.Context, id string) (attendance.Kid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var k attendance.Kid
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, age, gender, program FROM kids WHERE id = ?", id,
	).Scan(&k.ID, &k.Name, &k.Age, &k.Gender, &k.Program)

	if err == sql.ErrNoRows {
		return attendance.Kid{}, &attendance.NotFoundError{Kind: "kid", ID: id}
	}
	if err != nil {
		return attendance.Kid{}, storeErr("roster.get", err)
	}
	return k, nil
}

// SaveKid inserts or replaces a kid by id.
func (s *Store) SaveKid(ctx context.Context, kid attendance.Kid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO kids (id, name, age, gender, program, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			age = excluded.age,
			gender = excluded.gender,
			program = excluded.program
	`

	_, err := s.db.ExecContext(ctx, query,
		kid.ID, kid.Name, kid.Age, kid.Gender, kid.Program,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("roster.save", err)
	}
	return nil
}

// DeleteKid removes a kid from the roster. Past attendance rows keep their
// denormalized program and stay in place.
func (s *Store) DeleteKid(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM kids WHERE id = ?", id)
	if err != nil {
		return storeErr("roster.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &attendance.NotFoundError{Kind: "kid", ID: id}
	}
	return nil
}

// =============================================================================
// ATTENDANCE STORE (attendance.AttendanceStore interface)
// =============================================================================

// LoadAll returns every record, all dates.
func (s *Store) LoadAll(ctx context.Context) (attendance.AttendanceSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, date, kid_id, present, note, program, marked_by, timestamp
		FROM attendance
		ORDER BY date ASC, kid_id ASC
	`

	return s.queryRecords(ctx, query)
}

// LoadDay returns the records dated day.
func (s *Store) LoadDay(ctx context.Context, day attendance.Day) (attendance.AttendanceSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, date, kid_id, present, note, program, marked_by, timestamp
		FROM attendance
		WHERE date = ?
		ORDER BY kid_id ASC
	`

	return s.queryRecords(ctx, query, day.String())
}

// ReplaceDay atomically swaps day's slice for records.
func (s *Store) ReplaceDay(ctx context.Context, day attendance.Day, records attendance.AttendanceSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// ReplaceDay owns exactly one day; stray dates would corrupt others.
	for _, r := range records {
		if !r.Date.Equal(day) {
			return &attendance.InvalidSubmissionError{
				KidID:  r.KidID,
				Reason: fmt.Sprintf("record dated %s in replacement of %s", r.Date, day),
			}
		}
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("attendance.replace_day", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM attendance WHERE date = ?", day.String()); err != nil {
		return storeErr("attendance.replace_day", err)
	}
	for _, r := range records {
		if err := s.insertRecord(ctx, sqlTx, r); err != nil {
			return err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return storeErr("attendance.replace_day", err)
	}
	return nil
}

// SaveAll replaces the entire table. Bulk import only.
func (s *Store) SaveAll(ctx context.Context, records attendance.AttendanceSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("attendance.save_all", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM attendance"); err != nil {
		return storeErr("attendance.save_all", err)
	}
	for _, r := range records {
		if err := s.insertRecord(ctx, sqlTx, r); err != nil {
			return err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return storeErr("attendance.save_all", err)
	}
	return nil
}

// Days returns the distinct days having records, newest first.
func (s *Store) Days(ctx context.Context) ([]attendance.Day, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT date FROM attendance ORDER BY date DESC",
	)
	if err != nil {
		return nil, storeErr("attendance.days", err)
	}
	defer rows.Close()

	var days []attendance.Day
	for rows.Next() {
		var dayStr string
		if err := rows.Scan(&dayStr); err != nil {
			return nil, storeErr("attendance.days", err)
		}
		day, err := attendance.ParseDay(dayStr)
		if err != nil {
			return nil, storeErr("attendance.days", err)
		}
		days = append(days, day)
	}
	return days, rowsErr("attendance.days", rows)
}

func (s *Store) insertRecord(ctx context.Context, db interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}, r attendance.AttendanceRecord) error {
	query := `
		INSERT INTO attendance (id, date, kid_id, present, note, program, marked_by, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		r.ID,
		r.Date.String(),
		r.KidID,
		r.Present,
		r.Note,
		r.Program,
		r.MarkedBy,
		r.Timestamp.UTC().Format(time.RFC3339),
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return &attendance.InvalidSubmissionError{
				KidID:  r.KidID,
				Reason: "duplicate record for " + r.Date.String(),
			}
		}
		return storeErr("attendance.insert", err)
	}
	return nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) (attendance.AttendanceSet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("attendance.query", err)
	}
	defer rows.Close()

	var records attendance.AttendanceSet
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rowsErr("attendance.query", rows)
}

func scanRecord(rows *sql.Rows) (attendance.AttendanceRecord, error) {
	var (
		r         attendance.AttendanceRecord
		dateStr   string
		timestamp string
	)

	err := rows.Scan(
		&r.ID, &dateStr, &r.KidID, &r.Present,
		&r.Note, &r.Program, &r.MarkedBy, &timestamp,
	)
	if err != nil {
		return r, storeErr("attendance.scan", err)
	}

	r.Date, err = attendance.ParseDay(dateStr)
	if err != nil {
		return r, storeErr("attendance.scan", err)
	}
	r.Timestamp, _ = time.Parse(time.RFC3339, timestamp)

	return r, nil
}

// =============================================================================
// USER STORE (attendance.UserStore interface)
// =============================================================================

// GetUser retrieves one account by username.
func (s *Store) GetUser(ctx context.Context, username string) (attendance.StoredUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		u        attendance.StoredUser
		role     string
		programs string
	)

	err := s.db.QueryRowContext(ctx,
		"SELECT username, name, role, programs, password_hash FROM users WHERE username = ?",
		username,
	).Scan(&u.Username, &u.Name, &role, &programs, &u.PasswordHash)

	if err == sql.ErrNoRows {
		return attendance.StoredUser{}, &attendance.NotFoundError{Kind: "user", ID: username}
	}
	if err != nil {
		return attendance.StoredUser{}, storeErr("users.get", err)
	}

	u.Role = attendance.Role(role)
	u.Programs = splitPrograms(programs)
	return u, nil
}

// ListUsers returns all accounts in username order.
func (s *Store) ListUsers(ctx context.Context) ([]attendance.StoredUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT username, name, role, programs, password_hash FROM users ORDER BY username",
	)
	if err != nil {
		return nil, storeErr("users.list", err)
	}
	defer rows.Close()

	var users []attendance.StoredUser
	for rows.Next() {
		var (
			u        attendance.StoredUser
			role     string
			programs string
		)
		if err := rows.Scan(&u.Username, &u.Name, &role, &programs, &u.PasswordHash); err != nil {
			return nil, storeErr("users.scan", err)
		}
		u.Role = attendance.Role(role)
		u.Programs = splitPrograms(programs)
		users = append(users, u)
	}
	return users, rowsErr("users.list", rows)
}

// SaveUser inserts or replaces an account by username.
func (s *Store) SaveUser(ctx context.Context, u attendance.StoredUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO users (username, name, role, programs, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			programs = excluded.programs,
			password_hash = excluded.password_hash
	`

	_, err := s.db.ExecContext(ctx, query,
		u.Username, u.Name, string(u.Role), joinPrograms(u.Programs),
		u.PasswordHash,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("users.save", err)
	}
	return nil
}

// DeleteUser removes an account.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return storeErr("users.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &attendance.NotFoundError{Kind: "user", ID: username}
	}
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"attendance", "kids", "users"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return storeErr("reset", err)
		}
	}
	return nil
}

// Helper functions

func storeErr(op string, err error) error {
	return &attendance.StorageError{Op: op, Err: err}
}

func rowsErr(op string, rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		return storeErr(op, err)
	}
	return nil
}

// Programs are stored as a comma-separated list, matching how admins
// type them into the management form.
func joinPrograms(programs []string) string {
	return strings.Join(programs, ",")
}

func splitPrograms(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	programs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			programs = append(programs, p)
		}
	}
	return programs
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
