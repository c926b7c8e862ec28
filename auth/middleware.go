/*
middleware.go - Request authentication for the HTTP API

PURPOSE:
  Resolves the Authorization header to an acting attendance.User and
  stores it in the request context. Handlers downstream never see an
  unauthenticated request; the form controller blocks here instead of
  passing a missing user into the core.

FLOW:
  Bearer token -> TokenService.Validate -> UserStore.GetUser -> context

  The account is re-read on every request so role and program changes
  apply immediately and deleted accounts lose access at once.

SEE ALSO:
  - token.go: Token signing and validation
  - api/server.go: Mounts RequireUser / RequireAdmin on route groups
*/
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/warp/rollcall/attendance"
)

type ctxKey int

const userKey ctxKey = iota

// Middleware authenticates requests against the user store.
type Middleware struct {
	Tokens *TokenService
	Users  attendance.UserStore
}

func NewMiddleware(tokens *TokenService, users attendance.UserStore) *Middleware {
	return &Middleware{Tokens: tokens, Users: users}
}

// RequireUser rejects unauthenticated requests and injects the acting
// user into the request context.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeAuthError(w, http.StatusUnauthorized, "authorization header is required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeAuthError(w, http.StatusUnauthorized, "authorization header must be in the format: Bearer {token}")
			return
		}

		username, err := m.Tokens.Validate(parts[1])
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		stored, err := m.Users.GetUser(r.Context(), username)
		if err != nil {
			if attendance.IsNotFound(err) {
				// Account deleted after the token was issued.
				writeAuthError(w, http.StatusUnauthorized, "unknown account")
				return
			}
			writeAuthError(w, http.StatusInternalServerError, "failed to load account")
			return
		}
		if stored.Role == "" {
			writeAuthError(w, http.StatusUnauthorized, "account has no role")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, stored.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin allows only admin accounts through. Mount after RequireUser.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFrom(r.Context())
		if !ok || !user.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFrom extracts the acting user stored by RequireUser.
func UserFrom(ctx context.Context) (attendance.User, bool) {
	user, ok := ctx.Value(userKey).(attendance.User)
	return user, ok
}

// WithUser returns a context carrying user. Test helper; the middleware
// is the production path.
func WithUser(ctx context.Context, user attendance.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	code := "unauthorized"
	switch status {
	case http.StatusForbidden:
		code = "forbidden"
	case http.StatusInternalServerError:
		code = "internal"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}
