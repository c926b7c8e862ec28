package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/warp/rollcall/attendance"
	"github.com/warp/rollcall/attendance/store"
	"github.com/warp/rollcall/auth"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestMiddleware(t *testing.T) (*auth.Middleware, *auth.TokenService, *store.Memory) {
	t.Helper()
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	users := store.NewMemory()
	return auth.NewMiddleware(tokens, users), tokens, users
}

func seedUser(t *testing.T, users *store.Memory, username string, role attendance.Role, programs ...string) {
	t.Helper()
	err := users.SaveUser(context.Background(), attendance.StoredUser{
		User: attendance.User{
			Username: username,
			Role:     role,
			Programs: programs,
		},
		PasswordHash: "unused",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// echoUser records whether the wrapped handler ran and which user it saw.
type echoUser struct {
	ran  bool
	user attendance.User
}

func (e *echoUser) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.ran = true
		e.user, _ = auth.UserFrom(r.Context())
	})
}

// =============================================================================
// REQUIRE USER TESTS
// =============================================================================

func TestRequireUser_MissingHeader_Unauthorized(t *testing.T) {
	m, _, _ := newTestMiddleware(t)
	echo := &echoUser{}

	rec := httptest.NewRecorder()
	m.RequireUser(echo.handler()).ServeHTTP(rec, httptest.NewRequest("GET", "/api/kids", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if echo.ran {
		t.Fatal("handler must not run without credentials")
	}
}

func TestRequireUser_MalformedHeader_Unauthorized(t *testing.T) {
	m, _, _ := newTestMiddleware(t)
	echo := &echoUser{}

	req := httptest.NewRequest("GET", "/api/kids", nil)
	req.Header.Set("Authorization", "Basic abc123")

	rec := httptest.NewRecorder()
	m.RequireUser(echo.handler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireUser_BadToken_Unauthorized(t *testing.T) {
	m, _, _ := newTestMiddleware(t)
	echo := &echoUser{}

	req := httptest.NewRequest("GET", "/api/kids", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")

	rec := httptest.NewRecorder()
	m.RequireUser(echo.handler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireUser_ValidToken_InjectsFreshUser(t *testing.T) {
	// GIVEN: A leader account and a token issued for it
	// WHEN: The request passes the middleware
	// THEN: The handler sees the account as stored right now

	m, tokens, users := newTestMiddleware(t)
	seedUser(t, users, "leader1", attendance.RoleLeader, "Alpha")

	token, err := tokens.Generate("leader1", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	echo := &echoUser{}
	req := httptest.NewRequest("GET", "/api/kids", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	m.RequireUser(echo.handler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if !echo.ran {
		t.Fatal("handler should have run")
	}
	if echo.user.Username != "leader1" || echo.user.Role != attendance.RoleLeader {
		t.Fatalf("unexpected injected user: %+v", echo.user)
	}
	if len(echo.user.Programs) != 1 || echo.user.Programs[0] != "Alpha" {
		t.Fatalf("programs not carried: %+v", echo.user.Programs)
	}
}

func TestRequireUser_DeletedAccount_Unauthorized(t *testing.T) {
	// The token outlives the account; access ends with the account.
	m, tokens, _ := newTestMiddleware(t)

	token, err := tokens.Generate("ghost", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	echo := &echoUser{}
	req := httptest.NewRequest("GET", "/api/kids", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	m.RequireUser(echo.handler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if echo.ran {
		t.Fatal("handler must not run for a deleted account")
	}
}

// =============================================================================
// REQUIRE ADMIN TESTS
// =============================================================================

func TestRequireAdmin_Leader_Forbidden(t *testing.T) {
	m, _, _ := newTestMiddleware(t)
	echo := &echoUser{}

	req := httptest.NewRequest("POST", "/api/kids", nil)
	ctx := auth.WithUser(req.Context(), attendance.User{Username: "leader1", Role: attendance.RoleLeader})

	rec := httptest.NewRecorder()
	m.RequireAdmin(echo.handler()).ServeHTTP(rec, req.WithContext(ctx))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if echo.ran {
		t.Fatal("handler must not run for a non-admin")
	}
}

func TestRequireAdmin_Admin_Allowed(t *testing.T) {
	m, _, _ := newTestMiddleware(t)
	echo := &echoUser{}

	req := httptest.NewRequest("POST", "/api/kids", nil)
	ctx := auth.WithUser(req.Context(), attendance.User{Username: "admin", Role: attendance.RoleAdmin})

	rec := httptest.NewRecorder()
	m.RequireAdmin(echo.handler()).ServeHTTP(rec, req.WithContext(ctx))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !echo.ran {
		t.Fatal("handler should have run for an admin")
	}
}
