package attendance

// =============================================================================
// SCOPE FILTER - Which kids may this user mark?
// =============================================================================

// Scope restricts the roster to the kids the user is authorized to mark.
//
// Leaders see only kids whose program is among their assigned programs; a
// leader with no programs sees nothing. Any other role sees the roster
// unchanged. Roster order is preserved and the input is never mutated.
// A user without a role is rejected with an InvalidUserError.
func Scope(kids []Kid, user User) ([]Kid, error) {
	if user.Role == "" {
		return nil, &InvalidUserError{Username: user.Username, Reason: "missing role"}
	}
	if user.Role != RoleLeader {
		return kids, nil
	}
	scoped := make([]Kid, 0, len(kids))
	for _, k := range kids {
		if user.HasProgram(k.Program) {
			scoped = append(scoped, k)
		}
	}
	return scoped, nil
}

// InScope reports whether a single kid id is in the user's scope.
// Used by the submission path to reject marks for out-of-scope kids.
func InScope(kids []Kid, kidID string) bool {
	for _, k := range kids {
		if k.ID == kidID {
			return true
		}
	}
	return false
}
