/*
handlers_test.go - End-to-end tests for the core API flows

Tests for:
- Login and token auth
- Roster scoping per role
- Attendance submission, resubmission, and day wipes
- Form defaults
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
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

// The handler clock is pinned so "today" is stable in every test.
var frozenNow = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

const frozenToday = "2026-03-10"

type testEnv struct {
	t        *testing.T
	server   *httptest.Server
	store    *store.Memory
	tokenSvc *auth.TokenService
	tokens   map[string]string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mem := store.NewMemory()
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)

	h := NewHandler(mem, tokens)
	h.now = func() time.Time { return frozenNow }

	srv := httptest.NewServer(NewRouter(h, auth.NewMiddleware(tokens, mem)))
	t.Cleanup(srv.Close)

	env := &testEnv{
		t:        t,
		server:   srv,
		store:    mem,
		tokenSvc: tokens,
		tokens:   make(map[string]string),
	}
	env.seed()
	return env
}

// seed loads a three-kid roster across two programs plus one account per
// role. Password hashes are placeholders; tests mint tokens directly and
// the login flow creates its own account with a real hash.
func (e *testEnv) seed() {
	ctx := context.Background()
	for _, k := range []attendance.Kid{
		{ID: "k1", Name: "Ana", Age: 8, Program: "Alpha"},
		{ID: "k2", Name: "Ben", Age: 9, Program: "Beta"},
		{ID: "k3", Name: "Cleo", Age: 7, Program: "Alpha"},
	} {
		if err := e.store.SaveKid(ctx, k); err != nil {
			e.t.Fatalf("seed kid: %v", err)
		}
	}

	e.addUser("admin", attendance.RoleAdmin)
	e.addUser("leader1", attendance.RoleLeader, "Alpha")
	e.addUser("leader2", attendance.RoleLeader, "Beta")
}

func (e *testEnv) addUser(username string, role attendance.Role, programs ...string) {
	err := e.store.SaveUser(context.Background(), attendance.StoredUser{
		User: attendance.User{
			Username: username,
			Name:     username,
			Role:     role,
			Programs: programs,
		},
		PasswordHash: "placeholder",
	})
	if err != nil {
		e.t.Fatalf("seed user %s: %v", username, err)
	}
}

func (e *testEnv) tokenFor(username string) string {
	if tok, ok := e.tokens[username]; ok {
		return tok
	}
	tok, err := e.tokenSvc.Generate(username, time.Now())
	if err != nil {
		e.t.Fatalf("mint token for %s: %v", username, err)
	}
	e.tokens[username] = tok
	return tok
}

func (e *testEnv) request(method, path, token string, body any) *http.Response {
	e.t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, e.server.URL+path, rdr)
	if err != nil {
		e.t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// read asserts the status and returns the body.
func (e *testEnv) read(resp *http.Response, wantStatus int) []byte {
	e.t.Helper()
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		e.t.Fatalf("read response: %v", err)
	}
	if resp.StatusCode != wantStatus {
		e.t.Fatalf("expected status %d, got %d: %s", wantStatus, resp.StatusCode, b)
	}
	return b
}

func (e *testEnv) readJSON(resp *http.Response, wantStatus int, into any) {
	e.t.Helper()
	b := e.read(resp, wantStatus)
	if err := json.Unmarshal(b, into); err != nil {
		e.t.Fatalf("decode response: %v\n%s", err, b)
	}
}

func mark(present bool, note string) MarkDTO {
	return MarkDTO{Present: &present, Note: &note}
}

func (e *testEnv) submit(token, date string, marks map[string]MarkDTO) SubmitAttendanceResponse {
	e.t.Helper()
	resp := e.request("POST", "/api/attendance", token, SubmitAttendanceRequest{Date: date, Marks: marks})
	var out SubmitAttendanceResponse
	e.readJSON(resp, http.StatusOK, &out)
	return out
}

// =============================================================================
// LOGIN TESTS
// =============================================================================

func TestLogin_IssuesUsableToken(t *testing.T) {
	// GIVEN: An account with a real password hash
	// WHEN: Logging in and calling /api/me with the issued token
	// THEN: Both succeed and identify the account

	env := newTestEnv(t)
	hash, err := auth.HashPassword("open-sesame")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := env.store.SaveUser(context.Background(), attendance.StoredUser{
		User:         attendance.User{Username: "gate", Name: "Gate Keeper", Role: attendance.RoleAdmin},
		PasswordHash: hash,
	}); err != nil {
		t.Fatalf("save user: %v", err)
	}

	var login LoginResponse
	resp := env.request("POST", "/api/login", "", LoginRequest{Username: "gate", Password: "open-sesame"})
	env.readJSON(resp, http.StatusOK, &login)

	if login.Token == "" {
		t.Fatal("expected a token")
	}
	if login.User.Username != "gate" || login.User.Role != "admin" {
		t.Fatalf("unexpected login user: %+v", login.User)
	}

	var me UserDTO
	resp = env.request("GET", "/api/me", login.Token, nil)
	env.readJSON(resp, http.StatusOK, &me)
	if me.Username != "gate" {
		t.Fatalf("expected gate, got %+v", me)
	}
}

func TestLogin_BadPassword_Unauthorized(t *testing.T) {
	env := newTestEnv(t)
	hash, _ := auth.HashPassword("right")
	env.store.SaveUser(context.Background(), attendance.StoredUser{
		User:         attendance.User{Username: "gate", Role: attendance.RoleAdmin},
		PasswordHash: hash,
	})

	var errResp ErrorResponse
	resp := env.request("POST", "/api/login", "", LoginRequest{Username: "gate", Password: "wrong"})
	env.readJSON(resp, http.StatusUnauthorized, &errResp)
	if errResp.Code != "bad_credentials" {
		t.Fatalf("expected bad_credentials, got %q", errResp.Code)
	}
}

func TestLogin_UnknownUser_SameFailure(t *testing.T) {
	// Unknown account and wrong password are indistinguishable.
	env := newTestEnv(t)

	var errResp ErrorResponse
	resp := env.request("POST", "/api/login", "", LoginRequest{Username: "nobody", Password: "x"})
	env.readJSON(resp, http.StatusUnauthorized, &errResp)
	if errResp.Code != "bad_credentials" {
		t.Fatalf("expected bad_credentials, got %q", errResp.Code)
	}
}

func TestLogin_MissingFields_BadRequest(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request("POST", "/api/login", "", LoginRequest{Username: "gate"})
	env.read(resp, http.StatusBadRequest)
}

func TestAuth_ProtectedRoutesNeedToken(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/api/me", "/api/kids", "/api/attendance/form", "/api/reports/days"} {
		resp := env.request("GET", path, "", nil)
		env.read(resp, http.StatusUnauthorized)
	}
}

func TestHealth_Public(t *testing.T) {
	env := newTestEnv(t)

	var health map[string]string
	resp := env.request("GET", "/api/health", "", nil)
	env.readJSON(resp, http.StatusOK, &health)
	if health["status"] != "ok" {
		t.Fatalf("expected ok, got %v", health)
	}
}

// =============================================================================
// ROSTER SCOPE TESTS
// =============================================================================

func TestListKids_ScopedByRole(t *testing.T) {
	// GIVEN: Three kids across programs Alpha and Beta
	// WHEN: Each role lists the roster
	// THEN: Admin sees all, each leader sees only their programs

	env := newTestEnv(t)

	var kids []KidDTO
	resp := env.request("GET", "/api/kids", env.tokenFor("admin"), nil)
	env.readJSON(resp, http.StatusOK, &kids)
	if len(kids) != 3 {
		t.Fatalf("admin should see 3 kids, got %d", len(kids))
	}

	resp = env.request("GET", "/api/kids", env.tokenFor("leader1"), nil)
	env.readJSON(resp, http.StatusOK, &kids)
	if len(kids) != 2 {
		t.Fatalf("leader1 should see 2 kids, got %d", len(kids))
	}
	for _, k := range kids {
		if k.Program != "Alpha" {
			t.Errorf("leader1 saw kid %s from program %q", k.ID, k.Program)
		}
	}

	resp = env.request("GET", "/api/kids", env.tokenFor("leader2"), nil)
	env.readJSON(resp, http.StatusOK, &kids)
	if len(kids) != 1 || kids[0].ID != "k2" {
		t.Fatalf("leader2 should see only k2, got %+v", kids)
	}
}

// =============================================================================
// ATTENDANCE FLOW TESTS
// =============================================================================

func TestSubmit_FirstMarking(t *testing.T) {
	// GIVEN: An empty day
	// WHEN: leader1 marks both Alpha kids
	// THEN: Exactly one stamped record per kid comes back

	env := newTestEnv(t)

	out := env.submit(env.tokenFor("leader1"), frozenToday, map[string]MarkDTO{
		"k1": mark(true, "on time"),
		"k3": mark(false, "sick"),
	})

	if out.Date != frozenToday {
		t.Fatalf("expected date %s, got %s", frozenToday, out.Date)
	}
	if len(out.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(out.Records))
	}
	for _, r := range out.Records {
		if r.MarkedBy != "leader1" {
			t.Errorf("expected marked_by leader1, got %q", r.MarkedBy)
		}
		if r.Program != "Alpha" {
			t.Errorf("expected program Alpha, got %q", r.Program)
		}
		if r.Date != frozenToday {
			t.Errorf("expected date %s, got %s", frozenToday, r.Date)
		}
		if r.ID == "" {
			t.Error("expected generated record ids")
		}
	}
}

func TestSubmit_Resubmission_LastWriteWins(t *testing.T) {
	// GIVEN: A day already marked
	// WHEN: Resubmitting with flipped values
	// THEN: The day holds the latest submission only

	env := newTestEnv(t)
	token := env.tokenFor("leader1")

	env.submit(token, frozenToday, map[string]MarkDTO{
		"k1": mark(true, ""),
		"k3": mark(true, ""),
	})
	env.submit(token, frozenToday, map[string]MarkDTO{
		"k1": mark(false, "left early"),
		"k3": mark(true, ""),
	})

	var records []AttendanceRecordDTO
	resp := env.request("GET", "/api/attendance/day?date="+frozenToday, token, nil)
	env.readJSON(resp, http.StatusOK, &records)

	if len(records) != 2 {
		t.Fatalf("expected one record per kid, got %d", len(records))
	}
	for _, r := range records {
		if r.KidID == "k1" && (r.Present || r.Note != "left early") {
			t.Errorf("k1 should carry resubmitted values, got %+v", r)
		}
	}
}

func TestSubmit_EmptyMarks_WipesDay(t *testing.T) {
	// An explicitly empty marks object clears the day.
	env := newTestEnv(t)
	token := env.tokenFor("leader1")

	env.submit(token, frozenToday, map[string]MarkDTO{"k1": mark(true, "")})
	out := env.submit(token, frozenToday, map[string]MarkDTO{})

	if len(out.Records) != 0 {
		t.Fatalf("expected wiped day, got %d records", len(out.Records))
	}

	var records []AttendanceRecordDTO
	resp := env.request("GET", "/api/attendance/day?date="+frozenToday, env.tokenFor("admin"), nil)
	env.readJSON(resp, http.StatusOK, &records)
	if len(records) != 0 {
		t.Fatalf("expected no stored records, got %d", len(records))
	}
}

func TestSubmit_MissingMarksKey_Rejected(t *testing.T) {
	// A body without marks is malformed, not a wipe.
	env := newTestEnv(t)

	resp := env.request("POST", "/api/attendance", env.tokenFor("leader1"),
		map[string]any{"date": frozenToday})
	env.read(resp, http.StatusBadRequest)
}

func TestSubmit_MarkMissingPresent_Rejected(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request("POST", "/api/attendance", env.tokenFor("leader1"), map[string]any{
		"date":  frozenToday,
		"marks": map[string]any{"k1": map[string]any{"note": "no checkbox"}},
	})
	env.read(resp, http.StatusBadRequest)
}

func TestSubmit_OutOfScopeKid_Forbidden(t *testing.T) {
	// GIVEN: leader1 is assigned Alpha only
	// WHEN: Submitting a mark for the Beta kid
	// THEN: 403 scope_denied and nothing is stored

	env := newTestEnv(t)

	var errResp ErrorResponse
	resp := env.request("POST", "/api/attendance", env.tokenFor("leader1"), SubmitAttendanceRequest{
		Date:  frozenToday,
		Marks: map[string]MarkDTO{"k2": mark(true, "")},
	})
	env.readJSON(resp, http.StatusForbidden, &errResp)
	if errResp.Code != "scope_denied" {
		t.Fatalf("expected scope_denied, got %q", errResp.Code)
	}

	var records []AttendanceRecordDTO
	resp = env.request("GET", "/api/attendance/day?date="+frozenToday, env.tokenFor("admin"), nil)
	env.readJSON(resp, http.StatusOK, &records)
	if len(records) != 0 {
		t.Fatalf("rejected submission must not persist, got %d records", len(records))
	}
}

func TestSubmit_NoDate_DefaultsToToday(t *testing.T) {
	env := newTestEnv(t)

	out := env.submit(env.tokenFor("leader1"), "", map[string]MarkDTO{"k1": mark(true, "")})
	if out.Date != frozenToday {
		t.Fatalf("expected pinned today %s, got %s", frozenToday, out.Date)
	}
}

func TestSubmit_LeaderWipeDoesNotTouchOtherDays(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor("leader1")

	env.submit(token, "2026-03-09", map[string]MarkDTO{"k1": mark(true, "")})
	env.submit(token, frozenToday, map[string]MarkDTO{})

	var records []AttendanceRecordDTO
	resp := env.request("GET", "/api/attendance/day?date=2026-03-09", token, nil)
	env.readJSON(resp, http.StatusOK, &records)
	if len(records) != 1 {
		t.Fatalf("yesterday should survive today's wipe, got %d records", len(records))
	}
}

func TestGetDay_LeaderSeesOnlyTheirPrograms(t *testing.T) {
	// GIVEN: Admin marked kids across both programs
	// WHEN: leader2 reads the day
	// THEN: Only Beta records are visible

	env := newTestEnv(t)

	env.submit(env.tokenFor("admin"), frozenToday, map[string]MarkDTO{
		"k1": mark(true, ""),
		"k2": mark(true, ""),
		"k3": mark(false, ""),
	})

	var records []AttendanceRecordDTO
	resp := env.request("GET", "/api/attendance/day?date="+frozenToday, env.tokenFor("leader2"), nil)
	env.readJSON(resp, http.StatusOK, &records)

	if len(records) != 1 || records[0].KidID != "k2" {
		t.Fatalf("leader2 should see only k2, got %+v", records)
	}
}

// =============================================================================
// FORM STATE TESTS
// =============================================================================

func TestForm_FreshDay_AllAbsent(t *testing.T) {
	env := newTestEnv(t)

	var form FormStateDTO
	resp := env.request("GET", "/api/attendance/form", env.tokenFor("leader1"), nil)
	env.readJSON(resp, http.StatusOK, &form)

	if form.Date != frozenToday {
		t.Fatalf("expected today %s, got %s", frozenToday, form.Date)
	}
	if len(form.Kids) != 2 {
		t.Fatalf("leader1 form should list 2 kids, got %d", len(form.Kids))
	}
	for _, k := range form.Kids {
		if form.Present[k.ID] {
			t.Errorf("fresh day should default %s to absent", k.ID)
		}
		if form.Notes[k.ID] != "" {
			t.Errorf("fresh day should default %s to an empty note", k.ID)
		}
	}
}

func TestForm_ReflectsSavedMarks(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor("leader1")

	env.submit(token, frozenToday, map[string]MarkDTO{
		"k1": mark(true, "on time"),
		"k3": mark(false, "sick"),
	})

	var form FormStateDTO
	resp := env.request("GET", "/api/attendance/form?date="+frozenToday, token, nil)
	env.readJSON(resp, http.StatusOK, &form)

	if !form.Present["k1"] || form.Notes["k1"] != "on time" {
		t.Errorf("k1 defaults wrong: present=%v note=%q", form.Present["k1"], form.Notes["k1"])
	}
	if form.Present["k3"] || form.Notes["k3"] != "sick" {
		t.Errorf("k3 defaults wrong: present=%v note=%q", form.Present["k3"], form.Notes["k3"])
	}
}

func TestForm_BadDate_Rejected(t *testing.T) {
	env := newTestEnv(t)
	resp := env.request("GET", "/api/attendance/form?date=tomorrow", env.tokenFor("leader1"), nil)
	env.read(resp, http.StatusBadRequest)
}
