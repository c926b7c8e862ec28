// Package store provides in-memory implementations of the attendance
// persistence interfaces, for tests and the dev server mode.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/rollcall/attendance"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	kids    map[string]attendance.Kid
	records attendance.AttendanceSet
	users   map[string]attendance.StoredUser
}

var (
	_ attendance.RosterStore     = (*Memory)(nil)
	_ attendance.AttendanceStore = (*Memory)(nil)
	_ attendance.UserStore       = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{
		kids:  make(map[string]attendance.Kid),
		users: make(map[string]attendance.StoredUser),
	}
}

// =============================================================================
// ROSTER
// =============================================================================

func (m *Memory) ListKids(_ context.Context) ([]attendance.Kid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	kids := make([]attendance.Kid, 0, len(m.kids))
	for _, k := range m.kids {
		kids = append(kids, k)
	}
	sort.Slice(kids, func(i, j int) bool { return kids[i].Name < kids[j].Name })
	return kids, nil
}

func (m *Memory) GetKid(_ context.Context, id string) (attendance.Kid, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	k, ok := m.kids[id]
	if !ok {
		return attendance.Kid{}, &attendance.NotFoundError{Kind: "kid", ID: id}
	}
	return k, nil
}

func (m *Memory) SaveKid(_ context.Context, kid attendance.Kid) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kids[kid.ID] = kid
	return nil
}

func (m *Memory) DeleteKid(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.kids[id]; !ok {
		return &attendance.NotFoundError{Kind: "kid", ID: id}
	}
	delete(m.kids, id)
	return nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (m *Memory) LoadAll(_ context.Context) (attendance.AttendanceSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(attendance.AttendanceSet, len(m.records))
	copy(out, m.records)
	return out, nil
}

func (m *Memory) LoadDay(_ context.Context, day attendance.Day) (attendance.AttendanceSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records.ForDay(day), nil
}

// ReplaceDay swaps day's slice in one step, the same splice the merge
// engine performs on full sets.
func (m *Memory) ReplaceDay(_ context.Context, day attendance.Day, records attendance.AttendanceSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records.WithoutDay(day), records...)
	return nil
}

func (m *Memory) SaveAll(_ context.Context, records attendance.AttendanceSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = make(attendance.AttendanceSet, len(records))
	copy(m.records, records)
	return nil
}

func (m *Memory) Days(_ context.Context) ([]attendance.Day, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]attendance.Day)
	for _, r := range m.records {
		seen[r.Date.String()] = r.Date
	}
	days := make([]attendance.Day, 0, len(seen))
	for _, d := range seen {
		days = append(days, d)
	}
	// ISO day strings sort lexicographically; newest first.
	sort.Slice(days, func(i, j int) bool { return days[i].String() > days[j].String() })
	return days, nil
}

// =============================================================================
// USERS
// =============================================================================

func (m *Memory) GetUser(_ context.Context, username string) (attendance.StoredUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[username]
	if !ok {
		return attendance.StoredUser{}, &attendance.NotFoundError{Kind: "user", ID: username}
	}
	return u, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]attendance.StoredUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]attendance.StoredUser, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (m *Memory) SaveUser(_ context.Context, u attendance.StoredUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.Username] = u
	return nil
}

func (m *Memory) DeleteUser(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[username]; !ok {
		return &attendance.NotFoundError{Kind: "user", ID: username}
	}
	delete(m.users, username)
	return nil
}
