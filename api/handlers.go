/*
handlers.go - HTTP API handlers for the attendance system

PURPOSE:
  Exposes the attendance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Public:
    POST   /api/login                   Exchange credentials for a token
    GET    /api/health                  Liveness probe

  Authenticated:
    GET    /api/me                      Current account
    GET    /api/kids                    Roster in the caller's scope
    GET    /api/attendance/form         Form state for a day
    POST   /api/attendance              Submit one day's marks
    GET    /api/attendance/day          One day's saved records
    GET    /api/reports/days            Days having records
    GET    /api/reports/day             Day records + summary
    GET    /api/export/attendance.csv   Record table as CSV
    GET    /api/export/kids.csv         Roster as CSV
    GET    /api/dashboard               Scoped counters

  Admin:
    POST   /api/kids                    Create roster entry
    PUT    /api/kids/{id}               Update roster entry
    DELETE /api/kids/{id}               Remove roster entry
    GET    /api/admin/users             List accounts
    POST   /api/admin/users             Create account
    PUT    /api/admin/users/{username}  Update account
    DELETE /api/admin/users/{username}  Remove account
    POST   /api/admin/import/attendance Bulk import legacy CSV

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: roster + attendance + user persistence
  - Tokens: JWT signing for login
  - now: injectable clock so tests can pin "today"

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Resolve the acting user's scope
  4. Call domain logic (scope, merge, defaults, summary)
  5. Serialize response

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400 invalid_request:  validation errors, malformed submissions
  - 401 bad_credentials:  failed login
  - 403 scope_denied:     marks for kids outside the caller's scope
  - 404 not_found:        unknown kid or account
  - 409:                  duplicate username on create
  - 500 internal:         storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - csv.go: Legacy flat-file codec for export/import
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/rollcall/attendance"
	"github.com/warp/rollcall/auth"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store aggregates the persistence interfaces the API needs. Both the
// SQLite store and the in-memory store satisfy it.
type Store interface {
	attendance.RosterStore
	attendance.AttendanceStore
	attendance.UserStore
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  Store
	Tokens *auth.TokenService

	// now is swappable so tests can pin "today".
	now func() time.Time
}

// NewHandler creates a new handler with the given store and token service.
func NewHandler(store Store, tokens *auth.TokenService) *Handler {
	return &Handler{Store: store, Tokens: tokens, now: time.Now}
}

// =============================================================================
// PUBLIC HANDLERS
// =============================================================================

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   h.now().UTC().Format(time.RFC3339),
	})
}

// Login authenticates a username/password pair and issues a token.
// POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Username and password are required", err)
		return
	}

	stored, err := h.Store.GetUser(r.Context(), req.Username)
	if err != nil && !attendance.IsNotFound(err) {
		writeError(w, http.StatusInternalServerError, "Failed to load account", err)
		return
	}
	// Unknown account and wrong password fail identically.
	if err != nil || !auth.VerifyPassword(stored.PasswordHash, req.Password) {
		writeDomainError(w, "Invalid username or password", attendance.ErrBadCredentials)
		return
	}

	token, err := h.Tokens.Generate(stored.Username, h.now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		User:  toUserDTO(stored.User),
	})
}

// Me returns the authenticated account.
// GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// =============================================================================
// ROSTER HANDLERS
// =============================================================================

// ListKids returns the roster visible to the caller.
// GET /api/kids
func (h *Handler) ListKids(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	kids, err := h.scopedKids(r.Context(), user)
	if err != nil {
		writeDomainError(w, "Failed to list kids", err)
		return
	}

	writeJSON(w, http.StatusOK, toKidDTOs(kids))
}

// CreateKid adds a roster entry. ID is generated when absent.
// POST /api/kids
func (h *Handler) CreateKid(w http.ResponseWriter, r *http.Request) {
	var req SaveKidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid kid", err)
		return
	}

	kid := attendance.Kid{
		ID:      req.ID,
		Name:    req.Name,
		Age:     req.Age,
		Gender:  req.Gender,
		Program: req.Program,
	}
	if kid.ID == "" {
		kid.ID = uuid.NewString()
	}

	if err := h.Store.SaveKid(r.Context(), kid); err != nil {
		writeDomainError(w, "Failed to save kid", err)
		return
	}

	writeJSON(w, http.StatusCreated, toKidDTO(kid))
}

// UpdateKid replaces a roster entry by id.
// PUT /api/kids/{id}
func (h *Handler) UpdateKid(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.Store.GetKid(r.Context(), id); err != nil {
		writeDomainError(w, "Kid not found", err)
		return
	}

	var req SaveKidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid kid", err)
		return
	}
	if req.ID != "" && req.ID != id {
		writeError(w, http.StatusBadRequest, "Body id does not match URL", nil)
		return
	}

	kid := attendance.Kid{
		ID:      id,
		Name:    req.Name,
		Age:     req.Age,
		Gender:  req.Gender,
		Program: req.Program,
	}
	if err := h.Store.SaveKid(r.Context(), kid); err != nil {
		writeDomainError(w, "Failed to save kid", err)
		return
	}

	writeJSON(w, http.StatusOK, toKidDTO(kid))
}

// DeleteKid removes a roster entry. Saved attendance rows keep their
// denormalized copy of the kid's program.
// DELETE /api/kids/{id}
func (h *Handler) DeleteKid(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteKid(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete kid", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// ATTENDANCE HANDLERS
// =============================================================================

// GetForm returns the marking form state for a day: the kids in the
// caller's scope plus saved checkbox and note defaults.
// GET /api/attendance/form?date=YYYY-MM-DD
func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	day, err := h.queryDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	kids, err := h.scopedKids(r.Context(), user)
	if err != nil {
		writeDomainError(w, "Failed to load roster", err)
		return
	}
	existing, err := h.Store.LoadDay(r.Context(), day)
	if err != nil {
		writeDomainError(w, "Failed to load attendance", err)
		return
	}

	defaults := attendance.Defaults(existing, day)
	form := FormStateDTO{
		Date:    day.String(),
		Kids:    toKidDTOs(kids),
		Present: make(map[string]bool, len(kids)),
		Notes:   make(map[string]string, len(kids)),
	}
	for _, k := range kids {
		form.Present[k.ID] = defaults.PresentFor(k.ID)
		form.Notes[k.ID] = defaults.NoteFor(k.ID)
	}

	writeJSON(w, http.StatusOK, form)
}

// SubmitAttendance replaces one day's records with the submitted marks.
// An explicitly empty marks object clears the day.
// POST /api/attendance
func (h *Handler) SubmitAttendance(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req SubmitAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid attendance submission", err)
		return
	}

	day := attendance.DayOf(h.now())
	if req.Date != "" {
		var err error
		day, err = attendance.ParseDay(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
			return
		}
	}

	kids, err := h.scopedKids(r.Context(), user)
	if err != nil {
		writeDomainError(w, "Failed to load roster", err)
		return
	}

	subs := make(attendance.Submissions, len(req.Marks))
	for kidID, mark := range req.Marks {
		if !attendance.InScope(kids, kidID) {
			writeDomainError(w, fmt.Sprintf("Kid %q is not in your scope", kidID), attendance.ErrScopeDenied)
			return
		}
		subs[kidID] = attendance.Mark{Present: *mark.Present, Note: *mark.Note}
	}

	records, err := attendance.BuildRecords(day, subs, kids, user.Username, h.now())
	if err != nil {
		writeDomainError(w, "Invalid attendance submission", err)
		return
	}
	if err := h.Store.ReplaceDay(r.Context(), day, records); err != nil {
		writeDomainError(w, "Failed to save attendance", err)
		return
	}

	saved, err := h.Store.LoadDay(r.Context(), day)
	if err != nil {
		writeDomainError(w, "Failed to reload attendance", err)
		return
	}

	writeJSON(w, http.StatusOK, SubmitAttendanceResponse{
		Date:    day.String(),
		Records: toRecordDTOs(saved),
	})
}

// GetDay returns one day's saved records, scoped for leaders.
// GET /api/attendance/day?date=YYYY-MM-DD
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	day, err := h.queryDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	records, err := h.Store.LoadDay(r.Context(), day)
	if err != nil {
		writeDomainError(w, "Failed to load attendance", err)
		return
	}

	writeJSON(w, http.StatusOK, toRecordDTOs(scopeRecords(records, user)))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// ListDays returns the distinct days having records, newest first.
// GET /api/reports/days
func (h *Handler) ListDays(w http.ResponseWriter, r *http.Request) {
	days, err := h.Store.Days(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list days", err)
		return
	}

	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.String()
	}
	writeJSON(w, http.StatusOK, map[string][]string{"days": out})
}

// GetDayReport returns one day's records plus the summary math.
// GET /api/reports/day?date=YYYY-MM-DD
func (h *Handler) GetDayReport(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	day, err := h.queryDay(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	records, err := h.Store.LoadDay(r.Context(), day)
	if err != nil {
		writeDomainError(w, "Failed to load attendance", err)
		return
	}
	records = scopeRecords(records, user)

	writeJSON(w, http.StatusOK, DayReportDTO{
		Date:    day.String(),
		Records: toRecordDTOs(records),
		Summary: toSummaryDTO(attendance.Summarize(records, day)),
	})
}

// Dashboard returns the landing-page counters, scoped to the caller.
// GET /api/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	kids, err := h.scopedKids(r.Context(), user)
	if err != nil {
		writeDomainError(w, "Failed to load roster", err)
		return
	}

	today := attendance.DayOf(h.now())
	records, err := h.Store.LoadDay(r.Context(), today)
	if err != nil {
		writeDomainError(w, "Failed to load attendance", err)
		return
	}
	records = scopeRecords(records, user)

	programs := make(map[string]struct{})
	for _, k := range kids {
		if k.Program != "" {
			programs[k.Program] = struct{}{}
		}
	}

	writeJSON(w, http.StatusOK, DashboardDTO{
		Kids:         len(kids),
		Programs:     len(programs),
		MarkedToday:  len(records),
		PresentToday: records.PresentCount(),
	})
}

// =============================================================================
// EXPORT / IMPORT HANDLERS
// =============================================================================

// ExportAttendanceCSV downloads the record table in the legacy layout,
// scoped for leaders.
// GET /api/export/attendance.csv
func (h *Handler) ExportAttendanceCSV(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	records, err := h.Store.LoadAll(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to load attendance", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="attendance.csv"`)
	if err := writeAttendanceCSV(w, scopeRecords(records, user)); err != nil {
		// Headers are gone; all we can do is log the broken download.
		log.Printf("attendance export aborted: %v", err)
	}
}

// ExportKidsCSV downloads the roster in the legacy layout, scoped for
// leaders.
// GET /api/export/kids.csv
func (h *Handler) ExportKidsCSV(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	kids, err := h.scopedKids(r.Context(), user)
	if err != nil {
		writeDomainError(w, "Failed to load roster", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="kids.csv"`)
	if err := writeKidsCSV(w, kids); err != nil {
		log.Printf("kids export aborted: %v", err)
	}
}

// ImportAttendanceCSV replaces the whole record table from a CSV body in
// the legacy column order. Migration path from the flat-file deployment.
// POST /api/admin/import/attendance
func (h *Handler) ImportAttendanceCSV(w http.ResponseWriter, r *http.Request) {
	records, err := parseAttendanceCSV(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid CSV payload", err)
		return
	}

	if err := h.Store.SaveAll(r.Context(), records); err != nil {
		writeDomainError(w, "Failed to import attendance", err)
		return
	}

	writeJSON(w, http.StatusOK, ImportResponse{Imported: len(records)})
}

// =============================================================================
// USER ADMIN HANDLERS
// =============================================================================

// ListUsers returns all accounts, hashes stripped.
// GET /api/admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u.User)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateUser adds an account. Password is required here, unlike update.
// POST /api/admin/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req SaveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user", err)
		return
	}
	if req.Password == nil || *req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required", nil)
		return
	}

	if _, err := h.Store.GetUser(r.Context(), req.Username); err == nil {
		writeError(w, http.StatusConflict, fmt.Sprintf("User %q already exists", req.Username), nil)
		return
	} else if !attendance.IsNotFound(err) {
		writeDomainError(w, "Failed to check username", err)
		return
	}

	hash, err := auth.HashPassword(*req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password", err)
		return
	}

	stored := attendance.StoredUser{
		User: attendance.User{
			Username: req.Username,
			Name:     req.Name,
			Role:     attendance.Role(req.Role),
			Programs: req.Programs,
		},
		PasswordHash: hash,
	}
	if err := h.Store.SaveUser(r.Context(), stored); err != nil {
		writeDomainError(w, "Failed to save user", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserDTO(stored.User))
}

// UpdateUser replaces an account's profile; the password only changes
// when one is supplied.
// PUT /api/admin/users/{username}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	existing, err := h.Store.GetUser(r.Context(), username)
	if err != nil {
		writeDomainError(w, "User not found", err)
		return
	}

	var req SaveUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Username == "" {
		req.Username = username
	}
	if err := validateStruct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user", err)
		return
	}
	if req.Username != username {
		writeError(w, http.StatusBadRequest, "Body username does not match URL", nil)
		return
	}

	stored := attendance.StoredUser{
		User: attendance.User{
			Username: username,
			Name:     req.Name,
			Role:     attendance.Role(req.Role),
			Programs: req.Programs,
		},
		PasswordHash: existing.PasswordHash,
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to hash password", err)
			return
		}
		stored.PasswordHash = hash
	}

	if err := h.Store.SaveUser(r.Context(), stored); err != nil {
		writeDomainError(w, "Failed to save user", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(stored.User))
}

// DeleteUser removes an account. The acting account cannot delete itself.
// DELETE /api/admin/users/{username}
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	username := chi.URLParam(r, "username")
	if username == actor.Username {
		writeError(w, http.StatusBadRequest, "Cannot delete your own account", nil)
		return
	}

	if err := h.Store.DeleteUser(r.Context(), username); err != nil {
		writeDomainError(w, "Failed to delete user", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// HELPERS
// =============================================================================

// currentUser pulls the authenticated user injected by auth.RequireUser.
// The middleware guarantees presence on mounted routes; the check covers
// handlers invoked outside it.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (attendance.User, bool) {
	user, ok := auth.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "No authenticated user", nil)
	}
	return user, ok
}

// scopedKids loads the roster and narrows it to the caller's scope.
func (h *Handler) scopedKids(ctx context.Context, user attendance.User) ([]attendance.Kid, error) {
	kids, err := h.Store.ListKids(ctx)
	if err != nil {
		return nil, err
	}
	return attendance.Scope(kids, user)
}

// scopeRecords narrows saved records the way Scope narrows the roster:
// leaders see rows from their programs, every other role sees the full set.
func scopeRecords(records attendance.AttendanceSet, user attendance.User) attendance.AttendanceSet {
	if user.Role != attendance.RoleLeader {
		return records
	}
	scoped := make(attendance.AttendanceSet, 0, len(records))
	for _, rec := range records {
		if user.HasProgram(rec.Program) {
			scoped = append(scoped, rec)
		}
	}
	return scoped
}

// queryDay reads the optional ?date= parameter, defaulting to today.
func (h *Handler) queryDay(r *http.Request) (attendance.Day, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return attendance.DayOf(h.now()), nil
	}
	return attendance.ParseDay(raw)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps attendance errors onto HTTP statuses and codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case attendance.IsNotFound(err):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, attendance.ErrBadCredentials):
		status, code = http.StatusUnauthorized, "bad_credentials"
	case errors.Is(err, attendance.ErrScopeDenied):
		status, code = http.StatusForbidden, "scope_denied"
	case attendance.IsClientError(err):
		status, code = http.StatusBadRequest, "invalid_request"
	}

	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
