/*
Package attendance provides the core attendance marking engine.

PURPOSE:
  This package contains the domain types and algorithms for daily
  attendance: scoping a roster to what a user may mark, rebuilding one
  day's records from a submitted form, and resolving form defaults
  from previously saved records.

KEY CONCEPTS IN THIS FILE (types.go):
  - Kid: A roster entry belonging to a program
  - User: The acting account, with a role and program assignments
  - Mark: One submitted checkbox+note pair for a kid
  - AttendanceRecord: A row keyed by (date, kid)
  - AttendanceSet: The full record table as a slice

DESIGN PRINCIPLES:
  1. Purity: scope/merge/defaults are side-effect free; stores do I/O
  2. Explicit actor: the User is always a parameter, never ambient state
  3. Day replacement: a submission rebuilds one day wholesale, other
     days are never touched
  4. Uniqueness: at most one record per (date, kid) in any result

USAGE:
  kids, _ := attendance.Scope(roster, user)
  set, _ := attendance.Merge(existing, day, subs, kids, user.Username, time.Now())

SEE ALSO:
  - scope.go: Roster filtering by role and programs
  - merge.go: Day replacement algorithm
  - defaults.go: Form pre-population from saved records
  - store.go: Persistence interfaces
*/
package attendance

import (
	"time"
)

// =============================================================================
// ROLES
// =============================================================================

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleLeader Role = "leader"
)

// =============================================================================
// KID - Roster entry
// =============================================================================

type Kid struct {
	ID      string
	Name    string
	Age     int
	Gender  string
	Program string
}

// =============================================================================
// USER - Acting account
// =============================================================================

// User is supplied by the session layer. Programs is only meaningful for
// leaders; every other role sees the full roster.
type User struct {
	Username string
	Name     string
	Role     Role
	Programs []string
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u User) HasProgram(program string) bool {
	for _, p := range u.Programs {
		if p == program {
			return true
		}
	}
	return false
}

// =============================================================================
// SUBMISSIONS - One form post, kid id -> mark
// =============================================================================

type Mark struct {
	Present bool
	Note    string
}

type Submissions map[string]Mark

// =============================================================================
// ATTENDANCE RECORD - One kid on one day
// =============================================================================

type AttendanceRecord struct {
	ID        string // surrogate storage id, assigned at emission
	Date      Day
	KidID     string
	Present   bool
	Note      string
	Program   string // kid's program at marking time, denormalized
	MarkedBy  string
	Timestamp time.Time
}

// =============================================================================
// ATTENDANCE SET - The record table
// =============================================================================

// AttendanceSet is an unordered collection; order carries no meaning.
type AttendanceSet []AttendanceRecord

// ForDay returns the records dated day.
func (s AttendanceSet) ForDay(day Day) AttendanceSet {
	var out AttendanceSet
	for _, r := range s {
		if r.Date.Equal(day) {
			out = append(out, r)
		}
	}
	return out
}

// WithoutDay returns the records dated anything but day.
func (s AttendanceSet) WithoutDay(day Day) AttendanceSet {
	var out AttendanceSet
	for _, r := range s {
		if !r.Date.Equal(day) {
			out = append(out, r)
		}
	}
	return out
}

// PresentCount counts the records marked present.
func (s AttendanceSet) PresentCount() int {
	n := 0
	for _, r := range s {
		if r.Present {
			n++
		}
	}
	return n
}
