package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chikitsa-health/hospital-backend/internal/apperr"
	httpmiddleware "github.com/chikitsa-health/hospital-backend/internal/http/middleware"
	"github.com/chikitsa-health/hospital-backend/internal/schedule"
	"github.com/chikitsa-health/hospital-backend/pkg/logging"
)

// ScheduleHandler serves doctor working-hours and unavailability management,
// plus the admin hospital-holiday endpoint.
type ScheduleHandler struct {
	workingHours   *schedule.WorkingHoursStore
	unavailability *schedule.UnavailabilityStore
	logger         *logging.Logger
}

// NewScheduleHandler creates the schedule HTTP handler.
func NewScheduleHandler(workingHours *schedule.WorkingHoursStore, unavailability *schedule.UnavailabilityStore, logger *logging.Logger) *ScheduleHandler {
	if workingHours == nil || unavailability == nil {
		panic("handlers: schedule stores are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ScheduleHandler{
		workingHours:   workingHours,
		unavailability: unavailability,
		logger:         logger,
	}
}

// GetWorkingHours handles GET /doctor/working-hours.
func (h *ScheduleHandler) GetWorkingHours(w http.ResponseWriter, r *http.Request) {
	identity, ok := httpmiddleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	hours, err := h.workingHours.GetForDoctor(r.Context(), identity.SubjectID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", map[string]any{"working_hours": hours})
}

type workingHoursRequest struct {
	Days []schedule.DayInput `json:"working_hours"`
}

// CreateWorkingHours handles POST /doctor/working-hours. Fails with a
// Conflict when a schedule already exists.
func (h *ScheduleHandler) CreateWorkingHours(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.IdentityFromContext(r.Context())

	var req workingHoursRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if len(req.Days) == 0 {
		writeError(w, h.logger, apperr.Conflict("working_hours must not be empty"))
		return
	}

	created, err := h.workingHours.CreateWeek(r.Context(), identity.SubjectID, req.Days)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, "working hours created", map[string]any{"working_hours": created})
}

// ReplaceWorkingHours handles PUT /doctor/working-hours (bulk replace).
func (h *ScheduleHandler) ReplaceWorkingHours(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.IdentityFromContext(r.Context())

	var req workingHoursRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if len(req.Days) == 0 {
		writeError(w, h.logger, apperr.Conflict("working_hours must not be empty"))
		return
	}

	created, err := h.workingHours.ReplaceWeek(r.Context(), identity.SubjectID, req.Days)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "working hours updated", map[string]any{"working_hours": created})
}

type updateDayRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// UpdateWorkingDay handles PUT /doctor/working-hours/{day}.
func (h *ScheduleHandler) UpdateWorkingDay(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.IdentityFromContext(r.Context())

	day, err := parseDayOfWeek(chi.URLParam(r, "day"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req updateDayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.workingHours.UpdateDay(r.Context(), identity.SubjectID, day, req.StartTime, req.EndTime)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "working hours updated", map[string]any{"working_hours": updated})
}

// DeleteWorkingHours handles DELETE /doctor/working-hours.
func (h *ScheduleHandler) DeleteWorkingHours(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.IdentityFromContext(r.Context())

	deleted, err := h.workingHours.DeleteAll(r.Context(), identity.SubjectID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "working hours deleted", map[string]any{"deleted": deleted})
}

// ListUnavailability handles GET /doctor/unavailability?from=&to=.
func (h *ScheduleHandler) ListUnavailability(w http.ResponseWriter, r *http.Request) {
	identity, ok := httpmiddleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var from, to *time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		d, err := schedule.ParseDate(v)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		from = &d
	}
	if v := r.URL.Query().Get("to"); v != "" {
		d, err := schedule.ParseDate(v)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		// inclusive end of day
		e := d.AddDate(0, 0, 1)
		to = &e
	}

	list, err := h.unavailability.ListForDoctor(r.Context(), identity.SubjectID, from, to)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "", map[string]any{"unavailability": list})
}

type unavailabilityRequest struct {
	StartDatetime time.Time `json:"start_datetime"`
	EndDatetime   time.Time `json:"end_datetime"`
	Reason        string    `json:"reason,omitempty"`
}

// CreateUnavailability handles POST /doctor/unavailability.
func (h *ScheduleHandler) CreateUnavailability(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.IdentityFromContext(r.Context())

	var req unavailabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	u := &schedule.Unavailability{
		DoctorID:  identity.SubjectID,
		StartAt:   req.StartDatetime,
		EndAt:     req.EndDatetime,
		Reason:    req.Reason,
		CreatedBy: identity.SubjectID,
	}
	if err := h.unavailability.Create(r.Context(), u); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, "unavailability created", map[string]any{"unavailability": u})
}

// UpdateUnavailability handles PUT /doctor/unavailability/{id}. Hospital
// holiday rows are admin-owned and cannot be edited here.
func (h *ScheduleHandler) UpdateUnavailability(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.IdentityFromContext(r.Context())

	existing, err := h.loadOwnedUnavailability(r, identity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if existing.IsHospitalHoliday() {
		writeError(w, h.logger, apperr.Conflict("hospital holidays can only be managed by an administrator"))
		return
	}

	var req struct {
		StartDatetime *time.Time `json:"start_datetime"`
		EndDatetime   *time.Time `json:"end_datetime"`
		Reason        *string    `json:"reason"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	updated, err := h.unavailability.Update(r.Context(), existing.ID, schedule.UnavailabilityPatch{
		StartAt: req.StartDatetime,
		EndAt:   req.EndDatetime,
		Reason:  req.Reason,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "unavailability updated", map[string]any{"unavailability": updated})
}

// DeleteUnavailability handles DELETE /doctor/unavailability/{id}.
func (h *ScheduleHandler) DeleteUnavailability(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.IdentityFromContext(r.Context())

	existing, err := h.loadOwnedUnavailability(r, identity)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if existing.IsHospitalHoliday() {
		writeError(w, h.logger, apperr.Conflict("hospital holidays can only be managed by an administrator"))
		return
	}

	if err := h.unavailability.Delete(r.Context(), existing.ID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, "unavailability deleted", nil)
}

type holidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// CreateHoliday handles POST /admin/holidays: a full-day unavailability row
// for every doctor, skipping doctors already blocked that day.
func (h *ScheduleHandler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	identity, _ := httpmiddleware.IdentityFromContext(r.Context())

	var req holidayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Name == "" {
		writeError(w, h.logger, apperr.Conflict("name required"))
		return
	}
	day, err := schedule.ParseDate(req.Date)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	created, err := h.unavailability.CreateHolidayForAll(r.Context(), day, req.Name, identity.SubjectID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, "hospital holiday created", map[string]any{"doctors_affected": created})
}

func (h *ScheduleHandler) loadOwnedUnavailability(r *http.Request, identity httpmiddleware.Identity) (*schedule.Unavailability, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return nil, apperr.Conflict("invalid unavailability id")
	}
	u, err := h.unavailability.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if identity.Role == "doctor" && u.DoctorID != identity.SubjectID {
		return nil, apperr.NotFound("unavailability")
	}
	return u, nil
}

func parseDayOfWeek(raw string) (int, error) {
	if len(raw) != 1 || raw[0] < '0' || raw[0] > '6' {
		return 0, apperr.Conflict("day must be 0 (Monday) through 6 (Sunday)")
	}
	return int(raw[0] - '0'), nil
}
