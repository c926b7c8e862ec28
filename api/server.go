/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

AUTH:
  Bearer JWT via auth.Middleware. RequireUser gates everything under
  /api except login and health; a nested RequireAdmin group gates
  roster mutation and /api/admin.

ROUTE GROUPS:
  /api/login, /api/health   Public
  /api/kids, /api/me        Authenticated reads
  /api/attendance/*         Form state and submission
  /api/reports/*            Day summaries
  /api/export/*             CSV downloads
  /api/admin/*              Account management, bulk import
  /*                        Endpoint listing page

SEE ALSO:
  - handlers.go: Handler implementations
  - auth/middleware.go: RequireUser / RequireAdmin
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/rollcall/auth"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, am *auth.Middleware) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/login", h.Login)
		r.Get("/health", h.Health)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(am.RequireUser)

			r.Get("/me", h.Me)
			r.Get("/kids", h.ListKids)
			r.Get("/dashboard", h.Dashboard)

			r.Route("/attendance", func(r chi.Router) {
				r.Post("/", h.SubmitAttendance)
				r.Get("/form", h.GetForm)
				r.Get("/day", h.GetDay)
			})

			r.Route("/reports", func(r chi.Router) {
				r.Get("/days", h.ListDays)
				r.Get("/day", h.GetDayReport)
			})

			r.Route("/export", func(r chi.Router) {
				r.Get("/attendance.csv", h.ExportAttendanceCSV)
				r.Get("/kids.csv", h.ExportKidsCSV)
			})

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(am.RequireAdmin)

				r.Post("/kids", h.CreateKid)
				r.Put("/kids/{id}", h.UpdateKid)
				r.Delete("/kids/{id}", h.DeleteKid)

				r.Route("/admin", func(r chi.Router) {
					r.Get("/users", h.ListUsers)
					r.Post("/users", h.CreateUser)
					r.Put("/users/{username}", h.UpdateUser)
					r.Delete("/users/{username}", h.DeleteUser)
					r.Post("/import/attendance", h.ImportAttendanceCSV)
				})
			})
		})
	})

	// No bundled frontend; the root serves a plain endpoint listing.
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Rollcall</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Rollcall Attendance API</h1>
<p>JSON API only. Authenticate via <code>POST /api/login</code> and send the token as <code>Authorization: Bearer {token}</code>.</p>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/health">/api/health</a> - Liveness probe</li>
<li>/api/kids - Roster in the caller's scope</li>
<li>/api/attendance/form - Marking form state for a day</li>
<li>/api/attendance - Submit one day's marks (POST)</li>
<li>/api/reports/days - Days with saved records</li>
<li>/api/export/attendance.csv - Record table as CSV</li>
</ul>
</body>
</html>`))
	})

	return r
}
