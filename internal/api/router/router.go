// Package router assembles the HTTP surface: slot listings, patient
// booking, doctor schedule management, and the admin endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chikitsa-health/hospital-backend/internal/http/handlers"
	httpmiddleware "github.com/chikitsa-health/hospital-backend/internal/http/middleware"
	"github.com/chikitsa-health/hospital-backend/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger       *logging.Logger
	Appointments *handlers.AppointmentsHandler
	Schedule     *handlers.ScheduleHandler
	JWTSecret    string

	MetricsHandler http.Handler
	HealthCheck    http.HandlerFunc
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.HealthCheck != nil {
			public.Get("/health", cfg.HealthCheck)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		// Slot availability is readable by any authenticated-or-not caller;
		// the grid exposes no patient data.
		public.Get("/appointments/slots/{doctorID}", cfg.Appointments.GetSlots)
	})

	// Patient endpoints
	r.Route("/patient", func(patient chi.Router) {
		patient.Use(httpmiddleware.RequireRole(cfg.JWTSecret, "patient"))
		patient.Route("/appointments", func(r chi.Router) {
			r.Post("/", cfg.Appointments.Create)
			r.Get("/", cfg.Appointments.ListMine)
			r.Get("/{id}", cfg.Appointments.Get)
			r.Put("/{id}/reschedule", cfg.Appointments.Reschedule)
			r.Put("/{id}/notes", cfg.Appointments.UpdateNotes)
			r.Post("/{id}/cancel", cfg.Appointments.Cancel)
		})
	})

	// Doctor endpoints
	r.Route("/doctor", func(doctor chi.Router) {
		doctor.Use(httpmiddleware.RequireRole(cfg.JWTSecret, "doctor"))
		doctor.Get("/appointments", cfg.Appointments.ListForDoctor)
		doctor.Patch("/appointments/{id}/status", cfg.Appointments.UpdateStatus)
		doctor.Get("/calendar", cfg.Appointments.Calendar)
		doctor.Get("/schedule/{date}", cfg.Appointments.DailySchedule)

		doctor.Route("/working-hours", func(r chi.Router) {
			r.Get("/", cfg.Schedule.GetWorkingHours)
			r.Post("/", cfg.Schedule.CreateWorkingHours)
			r.Put("/", cfg.Schedule.ReplaceWorkingHours)
			r.Put("/{day}", cfg.Schedule.UpdateWorkingDay)
			r.Delete("/", cfg.Schedule.DeleteWorkingHours)
		})
		doctor.Route("/unavailability", func(r chi.Router) {
			r.Get("/", cfg.Schedule.ListUnavailability)
			r.Post("/", cfg.Schedule.CreateUnavailability)
			r.Put("/{id}", cfg.Schedule.UpdateUnavailability)
			r.Delete("/{id}", cfg.Schedule.DeleteUnavailability)
		})
	})

	// Admin endpoints
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.RequireRole(cfg.JWTSecret, "admin"))
		admin.Post("/holidays", cfg.Schedule.CreateHoliday)
		admin.Get("/appointments", cfg.Appointments.ListAll)
		admin.Patch("/appointments/{id}/status", cfg.Appointments.UpdateStatus)
	})

	return r
}
