package attendance_test

import (
	"errors"
	"testing"

	"github.com/warp/rollcall/attendance"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func testRoster() []attendance.Kid {
	return []attendance.Kid{
		{ID: "k1", Name: "Ana", Program: "Alpha"},
		{ID: "k2", Name: "Ben", Program: "Beta"},
		{ID: "k3", Name: "Cleo", Program: "Alpha"},
		{ID: "k4", Name: "Dana", Program: ""},
	}
}

func leaderOf(programs ...string) attendance.User {
	return attendance.User{Username: "leader1", Role: attendance.RoleLeader, Programs: programs}
}

func adminUser() attendance.User {
	return attendance.User{Username: "admin", Role: attendance.RoleAdmin}
}

func kidIDs(kids []attendance.Kid) []string {
	ids := make([]string, len(kids))
	for i, k := range kids {
		ids[i] = k.ID
	}
	return ids
}

// =============================================================================
// SCOPE TESTS
// =============================================================================

func TestScope_Admin_SeesFullRoster(t *testing.T) {
	// GIVEN: A roster spanning several programs
	// WHEN: An admin resolves their scope
	// THEN: The roster comes back unchanged

	roster := testRoster()
	scoped, err := attendance.Scope(roster, adminUser())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scoped) != len(roster) {
		t.Fatalf("expected %d kids, got %d", len(roster), len(scoped))
	}
}

func TestScope_Leader_SeesOnlyAssignedPrograms(t *testing.T) {
	// GIVEN: A leader assigned to Alpha
	// WHEN: Resolving scope over a mixed roster
	// THEN: Only Alpha kids remain, in roster order

	scoped, err := attendance.Scope(testRoster(), leaderOf("Alpha"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := kidIDs(scoped)
	want := []string{"k1", "k3"}
	if len(got) != len(want) {
		t.Fatalf("expected kids %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestScope_Leader_MultiplePrograms(t *testing.T) {
	scoped, err := attendance.Scope(testRoster(), leaderOf("Alpha", "Beta"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scoped) != 3 {
		t.Fatalf("expected 3 kids, got %v", kidIDs(scoped))
	}
}

func TestScope_LeaderWithoutPrograms_SeesNothing(t *testing.T) {
	// GIVEN: A leader with no program assignments
	// WHEN: Resolving scope
	// THEN: The scope is empty, not an error

	scoped, err := attendance.Scope(testRoster(), leaderOf())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scoped) != 0 {
		t.Fatalf("expected empty scope, got %v", kidIDs(scoped))
	}
}

func TestScope_UnknownRole_SeesFullRoster(t *testing.T) {
	// Any role string other than leader passes the roster through.
	user := attendance.User{Username: "aide", Role: "helper"}
	scoped, err := attendance.Scope(testRoster(), user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scoped) != len(testRoster()) {
		t.Fatalf("expected full roster, got %v", kidIDs(scoped))
	}
}

func TestScope_MissingRole_Rejected(t *testing.T) {
	// GIVEN: A session user without a role
	// WHEN: Resolving scope
	// THEN: InvalidUserError, not a silent empty result

	_, err := attendance.Scope(testRoster(), attendance.User{Username: "ghost"})
	if !errors.Is(err, attendance.ErrInvalidUser) {
		t.Fatalf("expected ErrInvalidUser, got %v", err)
	}

	var iu *attendance.InvalidUserError
	if !errors.As(err, &iu) {
		t.Fatalf("expected *InvalidUserError, got %T", err)
	}
	if iu.Username != "ghost" {
		t.Errorf("expected username ghost in error, got %q", iu.Username)
	}
}

func TestScope_DisjointLeaders_DisjointKids(t *testing.T) {
	// GIVEN: Two leaders with disjoint program assignments
	// WHEN: Each resolves their scope
	// THEN: No kid appears in both scopes

	roster := testRoster()
	a, err := attendance.Scope(roster, leaderOf("Alpha"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := attendance.Scope(roster, leaderOf("Beta"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := make(map[string]bool)
	for _, k := range a {
		seen[k.ID] = true
	}
	for _, k := range b {
		if seen[k.ID] {
			t.Errorf("kid %s appears in both disjoint scopes", k.ID)
		}
	}
}

func TestInScope(t *testing.T) {
	kids := testRoster()
	if !attendance.InScope(kids, "k2") {
		t.Error("expected k2 in scope")
	}
	if attendance.InScope(kids, "k99") {
		t.Error("expected k99 out of scope")
	}
	if attendance.InScope(nil, "k1") {
		t.Error("expected nothing in an empty scope")
	}
}
