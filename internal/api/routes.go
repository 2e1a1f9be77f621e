package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tmht/attendance-api/internal/config"
)

// SetupRoutes configures all HTTP routes and returns the router.
//
// Route structure:
//
//	GET    /health
//	GET    /api/v1/sundays?month=&year=
//	GET    /api/v1/months
//	POST   /api/v1/months
//	GET    /api/v1/months/{table}
//	DELETE /api/v1/months/{table}
//	GET    /api/v1/months/{table}/sundays
//	GET    /api/v1/months/{table}/members?q=&badge=
//	POST   /api/v1/months/{table}/members
//	GET    /api/v1/months/{table}/members/{id}
//	PATCH  /api/v1/months/{table}/members/{id}
//	DELETE /api/v1/months/{table}/members/{id}
//	PUT    /api/v1/months/{table}/members/{id}/badge
//	POST   /api/v1/months/{table}/attendance
//	POST   /api/v1/months/{table}/attendance/bulk
//	GET    /api/v1/months/{table}/attendance?date=
//	GET    /api/v1/months/{table}/summary
//	POST   /api/v1/months/{table}/badges/refresh?dry_run=
//	GET    /api/v1/settings
//	PUT    /api/v1/settings
//
// Everything under /api/v1 requires X-API-Key.
func SetupRoutes(handlers *Handlers, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", "METHOD_NOT_ALLOWED")
	})

	// ==========================================================================
	// Public routes
	// ==========================================================================
	r.Get("/health", handlers.HealthCheck)

	// ==========================================================================
	// API routes (authenticated)
	// ==========================================================================
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg, logger))

		r.Get("/sundays", handlers.GetSundays)

		r.Get("/settings", handlers.GetSettings)
		r.Put("/settings", handlers.PutSettings)

		r.Get("/months", handlers.ListMonths)
		r.Post("/months", handlers.CreateMonth)

		r.Route("/months/{table}", func(r chi.Router) {
			r.Use(MonthTableMiddleware())

			r.Get("/", handlers.GetMonth)
			r.Delete("/", handlers.DeleteMonth)
			r.Get("/sundays", handlers.GetAvailableSundays)

			r.Get("/members", handlers.ListMembers)
			r.Post("/members", handlers.CreateMember)
			r.Get("/members/{id}", handlers.GetMember)
			r.Patch("/members/{id}", handlers.PatchMember)
			r.Delete("/members/{id}", handlers.DeleteMember)
			r.Put("/members/{id}/badge", handlers.SetBadge)

			r.Post("/attendance", handlers.MarkAttendance)
			r.Post("/attendance/bulk", handlers.BulkMarkAttendance)
			r.Get("/attendance", handlers.GetAttendance)

			r.Get("/summary", handlers.GetSummary)
			r.Post("/badges/refresh", handlers.RefreshBadges)
		})
	})

	return r
}
