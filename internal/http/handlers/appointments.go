package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chikitsa-health/hospital-backend/internal/apperr"
	"github.com/chikitsa-health/hospital-backend/internal/appointments"
	httpmiddleware "github.com/chikitsa-health/hospital-backend/internal/http/middleware"
	"github.com/chikitsa-health/hospital-backend/internal/schedule"
	"github.com/chikitsa-health/hospital-backend/pkg/logging"
)

// appointmentView is the wire shape of an appointment.
type appointmentView struct {
	ID           uuid.UUID `json:"id"`
	PatientID    uuid.UUID `json:"patient_id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	Date         string    `json:"appointment_date"`
	Time         string    `json:"appointment_time"`
	Status       string    `json:"status"`
	BookingNotes string    `json:"booking_notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toView(a *appointments.Appointment) appointmentView {
	return appointmentView{
		ID:           a.ID,
		PatientID:    a.PatientID,
		DoctorID:     a.DoctorID,
		Date:         a.DateString(),
		Time:         a.Time,
		Status:       string(a.Status),
		BookingNotes: a.BookingNotes,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func toViews(list []appointments.Appointment) []appointmentView {
	out := make([]appointmentView, 0, len(list))
	for i := range list {
		out = append(out, toView(&list[i]))
	}
	return out
}

// AppointmentsHandler serves the slot listing, booking, and calendar
// endpoints.
type AppointmentsHandler struct {
	service  *appointments.Service
	store    *appointments.Store
	gen      *appointments.Generator
	cache    *appointments.SlotCache
	calendar *appointments.CalendarService
	logger   *logging.Logger
}

// NewAppointmentsHandler creates the appointments HTTP handler. cache may
// be nil.
func NewAppointmentsHandler(service *appointments.Service, store *appointments.Store, gen *appointments.Generator, cache *appointments.SlotCache, calendar *appointments.CalendarService, logger *logging.Logger) *AppointmentsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{
		service:  service,
		store:    store,
		gen:      gen,
		cache:    cache,
		calendar: calendar,
		logger:   logger,
	}
}

// GetSlots handles GET /appointments/slots/{doctorID}?date=YYYY-MM-DD.
// Served through the short-TTL cache; booking writes invalidate it.
func (h *AppointmentsHandler) GetSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		writeError(w, h.logger, apperr.Conflict("invalid doctor id"))
		return
	}
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		writeError(w, h.logger, apperr.Conflict("date required (YYYY-MM-DD)"))
		return
	}
	day, err := schedule.ParseDate(dateStr)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if slots, ok := h.cache.Get(r.Context(), doctorID, day); ok {
		writeJSON(w, http.StatusOK, "", map[string]any{"slots": slots})
		return
	}

	slots, err := h.gen.AvailableSlots(r.Context(), doctorID, day)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.cache.Set(r.Context(), doctorID, day, slots)
	writeJSON(w, http.StatusOK, "", map[string]any{"slots": slots})
}

type createAppointmentRequest struct {
	DoctorID        uuid.UUID `json:"doctor_id"`
	AppointmentDate string    `json:"appointment_date"`
	AppointmentTime string    `json:"appointment_time"`
	BookingNotes    string    `json:"booking_notes,omitempty"`
}

// Create handles POST /patient/appointments.
func (h *AppointmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := httpmiddleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	day, err := schedule.ParseDate(req.AppointmentDate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	appt, err := h.service.Create(r.Context(), appointments.CreateInput{
		PatientID:    identity.SubjectID,
		DoctorID:     req.DoctorID,
		Date:         day,
		Time:         req.AppointmentTime,
		BookingNotes: req.BookingNotes,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, "appointment booked successfully", map[string]any{"appointment": toView(appt)})
}

// ListMine handles GET /patient/appointments with status/upcoming filters.
func (h *AppointmentsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := httpmiddleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	opts := appointments.ListOptions{
		Status:       appointments.Status(r.URL.Query().Get("status")),
		UpcomingOnly: r.URL.Query().Get("upcoming") == "true",
	}
	list, err := h.store.ListByPatient(r.Context(), identity.SubjectID, opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", map[string]any{"appointments": toViews(list)})
}

// Get handles GET /patient/appointments/{id}, scoped to the caller.
func (h *AppointmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.IdentityFromContext(r.Context())
	appt, err := h.loadOwned(r, identity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", map[string]any{"appointment": toView(appt)})
}

type rescheduleRequest struct {
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
}

// Reschedule handles PUT /patient/appointments/{id}/reschedule.
func (h *AppointmentsHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.IdentityFromContext(r.Context())
	appt, err := h.loadOwned(r, identity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req rescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	day, err := schedule.ParseDate(req.AppointmentDate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.service.Reschedule(r.Context(), appt.ID, day, req.AppointmentTime)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "appointment rescheduled", map[string]any{"appointment": toView(updated)})
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Cancel handles POST /patient/appointments/{id}/cancel.
func (h *AppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.IdentityFromContext(r.Context())
	appt, err := h.loadOwned(r, identity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req cancelRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	updated, err := h.service.Cancel(r.Context(), appt.ID, req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "appointment cancelled", map[string]any{"appointment": toView(updated)})
}

type notesRequest struct {
	BookingNotes string `json:"booking_notes"`
}

// UpdateNotes handles PUT /patient/appointments/{id}/notes.
func (h *AppointmentsHandler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.IdentityFromContext(r.Context())
	appt, err := h.loadOwned(r, identity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req notesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.service.UpdateNotes(r.Context(), appt.ID, req.BookingNotes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "notes updated", map[string]any{"appointment": toView(updated)})
}

type statusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// UpdateStatus handles PATCH /doctor/appointments/{id}/status.
func (h *AppointmentsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.IdentityFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, apperr.Conflict("invalid appointment id"))
		return
	}

	appt, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if identity.Role == "doctor" && appt.DoctorID != identity.SubjectID {
		writeError(w, h.logger, apperr.NotFound("appointment"))
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.service.UpdateStatus(r.Context(), id, appointments.Status(req.Status), req.Reason)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "appointment marked as "+req.Status, map[string]any{"appointment": toView(updated)})
}

// ListForDoctor handles GET /doctor/appointments.
func (h *AppointmentsHandler) ListForDoctor(w http.ResponseWriter, r *http.Request) {
	identity, ok := httpmiddleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	opts := appointments.ListOptions{
		Status:       appointments.Status(r.URL.Query().Get("status")),
		UpcomingOnly: r.URL.Query().Get("upcoming") == "true",
	}
	if v := r.URL.Query().Get("start_date"); v != "" {
		d, err := schedule.ParseDate(v)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		opts.StartDate = &d
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		d, err := schedule.ParseDate(v)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		opts.EndDate = &d
	}

	list, err := h.store.ListByDoctor(r.Context(), identity.SubjectID, opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", map[string]any{"appointments": toViews(list)})
}

// ListAll handles GET /admin/appointments with the same filters as the
// doctor listing, unscoped.
func (h *AppointmentsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	opts := appointments.ListOptions{
		Status:       appointments.Status(r.URL.Query().Get("status")),
		UpcomingOnly: r.URL.Query().Get("upcoming") == "true",
	}
	if v := r.URL.Query().Get("start_date"); v != "" {
		d, err := schedule.ParseDate(v)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		opts.StartDate = &d
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		d, err := schedule.ParseDate(v)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		opts.EndDate = &d
	}

	list, err := h.store.ListAll(r.Context(), opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", map[string]any{"appointments": toViews(list)})
}

// Calendar handles GET /doctor/calendar?start_date=&end_date=.
func (h *AppointmentsHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	identity, ok := httpmiddleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	start, err := schedule.ParseDate(r.URL.Query().Get("start_date"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	end, err := schedule.ParseDate(r.URL.Query().Get("end_date"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	days, err := h.calendar.MonthCalendar(r.Context(), identity.SubjectID, start, end)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", map[string]any{"calendar": days})
}

// DailySchedule handles GET /doctor/schedule/{date}.
func (h *AppointmentsHandler) DailySchedule(w http.ResponseWriter, r *http.Request) {
	identity, ok := httpmiddleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	day, err := schedule.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	sched, err := h.calendar.DailySchedule(r.Context(), identity.SubjectID, day)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", map[string]any{"schedule": sched})
}

// loadOwned loads the appointment in the path and verifies the caller owns
// it. A foreign appointment reads as not found rather than forbidden.
func (h *AppointmentsHandler) loadOwned(r *http.Request, identity httpmiddleware.Identity) (*appointments.Appointment, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return nil, apperr.Conflict("invalid appointment id")
	}
	appt, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if identity.Role == "patient" && appt.PatientID != identity.SubjectID {
		return nil, apperr.NotFound("appointment")
	}
	return appt, nil
}
