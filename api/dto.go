/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Auth:
    LoginRequest, LoginResponse, UserDTO

  Roster:
    KidDTO, SaveKidRequest

  Attendance:
    MarkDTO, SubmitAttendanceRequest, AttendanceRecordDTO, FormStateDTO

  Reports:
    DayReportDTO, DaySummaryDTO, DashboardDTO

VALIDATION:
  Request types carry go-playground/validator tags; handlers call
  validateStruct before touching the payload. Mark fields are pointers
  so a submission missing "present" or "note" is caught as malformed
  instead of silently defaulting.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Router setup and middleware
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/warp/rollcall/attendance"
)

var validate = validator.New()

func validateStruct(v any) error {
	return validate.Struct(v)
}

// =============================================================================
// AUTH TYPES
// =============================================================================

// UserDTO represents an account in API responses. Never carries the hash.
type UserDTO struct {
	Username string   `json:"username"`
	Name     string   `json:"name,omitempty"`
	Role     string   `json:"role"`
	Programs []string `json:"programs,omitempty"`
}

// LoginRequest is the credential payload for POST /api/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the access token and the account it belongs to.
type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// SaveUserRequest creates or updates an account. Password is optional on
// update (keep the current one) and required on create.
type SaveUserRequest struct {
	Username string   `json:"username" validate:"required"`
	Name     string   `json:"name"`
	Role     string   `json:"role" validate:"required,oneof=admin leader"`
	Programs []string `json:"programs"`
	Password *string  `json:"password,omitempty"`
}

// =============================================================================
// ROSTER TYPES
// =============================================================================

// KidDTO represents a roster entry in API responses.
type KidDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Age     int    `json:"age,omitempty"`
	Gender  string `json:"gender,omitempty"`
	Program string `json:"program"`
}

// SaveKidRequest creates or updates a roster entry. ID is optional on
// create; a fresh one is generated when absent.
type SaveKidRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name" validate:"required"`
	Age     int    `json:"age" validate:"gte=0"`
	Gender  string `json:"gender"`
	Program string `json:"program"`
}

// =============================================================================
// ATTENDANCE TYPES
// =============================================================================

// MarkDTO is one submitted checkbox+note pair. Pointer fields so missing
// keys fail validation instead of defaulting.
type MarkDTO struct {
	Present *bool   `json:"present" validate:"required"`
	Note    *string `json:"note" validate:"required"`
}

// SubmitAttendanceRequest replaces one day's records with the submitted
// marks. An explicitly empty marks object wipes the day; a missing marks
// key is rejected.
type SubmitAttendanceRequest struct {
	Date  string             `json:"date"` // ISO day, defaults to today
	Marks map[string]MarkDTO `json:"marks" validate:"required,dive"`
}

// AttendanceRecordDTO represents a saved record in API responses.
type AttendanceRecordDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	KidID     string `json:"kid_id"`
	Present   bool   `json:"present"`
	Note      string `json:"note"`
	Program   string `json:"program"`
	MarkedBy  string `json:"marked_by"`
	Timestamp string `json:"timestamp"`
}

// FormStateDTO pre-populates the marking form: the kids in scope plus
// the saved state for the requested day.
type FormStateDTO struct {
	Date    string            `json:"date"`
	Kids    []KidDTO          `json:"kids"`
	Present map[string]bool   `json:"present"`
	Notes   map[string]string `json:"notes"`
}

// SubmitAttendanceResponse returns the day as saved.
type SubmitAttendanceResponse struct {
	Date    string                `json:"date"`
	Records []AttendanceRecordDTO `json:"records"`
}

// =============================================================================
// REPORT TYPES
// =============================================================================

// DaySummaryDTO is the headline math for one day.
type DaySummaryDTO struct {
	Date    string  `json:"date"`
	Total   int     `json:"total"`
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Rate    float64 `json:"rate"`
}

// DayReportDTO is one day's records plus its summary.
type DayReportDTO struct {
	Date    string                `json:"date"`
	Records []AttendanceRecordDTO `json:"records"`
	Summary DaySummaryDTO         `json:"summary"`
}

// DashboardDTO is the landing-page counters, scoped to the caller.
type DashboardDTO struct {
	Kids         int `json:"kids"`
	Programs     int `json:"programs"`
	MarkedToday  int `json:"marked_today"`
	PresentToday int `json:"present_today"`
}

// ImportResponse reports how many records a bulk import replaced the
// table with.
type ImportResponse struct {
	Imported int `json:"imported"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toUserDTO(u attendance.User) UserDTO {
	return UserDTO{
		Username: u.Username,
		Name:     u.Name,
		Role:     string(u.Role),
		Programs: u.Programs,
	}
}

func toKidDTO(k attendance.Kid) KidDTO {
	return KidDTO{
		ID:      k.ID,
		Name:    k.Name,
		Age:     k.Age,
		Gender:  k.Gender,
		Program: k.Program,
	}
}

func toKidDTOs(kids []attendance.Kid) []KidDTO {
	dtos := make([]KidDTO, len(kids))
	for i, k := range kids {
		dtos[i] = toKidDTO(k)
	}
	return dtos
}

func toRecordDTO(r attendance.AttendanceRecord) AttendanceRecordDTO {
	return AttendanceRecordDTO{
		ID:        r.ID,
		Date:      r.Date.String(),
		KidID:     r.KidID,
		Present:   r.Present,
		Note:      r.Note,
		Program:   r.Program,
		MarkedBy:  r.MarkedBy,
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
	}
}

func toRecordDTOs(records attendance.AttendanceSet) []AttendanceRecordDTO {
	dtos := make([]AttendanceRecordDTO, len(records))
	for i, r := range records {
		dtos[i] = toRecordDTO(r)
	}
	return dtos
}

func toSummaryDTO(s attendance.DaySummary) DaySummaryDTO {
	rate, _ := s.Rate.Float64()
	return DaySummaryDTO{
		Date:    s.Day.String(),
		Total:   s.Total,
		Present: s.Present,
		Absent:  s.Absent,
		Rate:    rate,
	}
}
