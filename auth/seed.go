package auth

import (
	"context"
	"fmt"
	"log"

	"github.com/warp/rollcall/attendance"
)

// =============================================================================
// DEFAULT ACCOUNTS - Seeded on first boot so the app is usable immediately
// =============================================================================

type seedAccount struct {
	Username string
	Name     string
	Role     attendance.Role
	Password string
}

var defaultAccounts = []seedAccount{
	{Username: "admin", Name: "Administrator", Role: attendance.RoleAdmin, Password: "123"},
	{Username: "leader1", Name: "Leader One", Role: attendance.RoleLeader, Password: "123"},
}

// EnsureDefaultUsers seeds the default accounts when the user table is
// empty. Does nothing once any account exists, so admin edits survive
// restarts. Passwords are throwaways; change them after first login.
func EnsureDefaultUsers(ctx context.Context, users attendance.UserStore) error {
	existing, err := users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, acct := range defaultAccounts {
		hash, err := HashPassword(acct.Password)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", acct.Username, err)
		}
		u := attendance.StoredUser{
			User: attendance.User{
				Username: acct.Username,
				Name:     acct.Name,
				Role:     acct.Role,
			},
			PasswordHash: hash,
		}
		if err := users.SaveUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", acct.Username, err)
		}
		log.Printf("seeded default account %q (role %s) - change its password", acct.Username, acct.Role)
	}
	return nil
}
