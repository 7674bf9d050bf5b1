package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chikitsa-health/hospital-backend/internal/apperr"
	"github.com/chikitsa-health/hospital-backend/internal/appointments"
	"github.com/chikitsa-health/hospital-backend/internal/directory"
	httpmiddleware "github.com/chikitsa-health/hospital-backend/internal/http/middleware"
	"github.com/chikitsa-health/hospital-backend/internal/schedule"
	"github.com/chikitsa-health/hospital-backend/pkg/logging"
)

const testSecret = "handler-test-secret"

// 2025-06-02 is a Monday.
var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)

type fakeDoctors map[uuid.UUID]*directory.Doctor

func (f fakeDoctors) GetDoctor(_ context.Context, id uuid.UUID) (*directory.Doctor, error) {
	if d, ok := f[id]; ok {
		return d, nil
	}
	return nil, apperr.NotFound("doctor")
}

type fakePatients map[uuid.UUID]*directory.Patient

func (f fakePatients) GetPatient(_ context.Context, id uuid.UUID) (*directory.Patient, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, apperr.NotFound("patient")
}

type fakeHours map[int]*schedule.WorkingHours

func (f fakeHours) GetForDay(_ context.Context, _ uuid.UUID, day int) (*schedule.WorkingHours, error) {
	return f[day], nil
}

func (f fakeHours) GetForDoctor(_ context.Context, _ uuid.UUID) ([]schedule.WorkingHours, error) {
	var out []schedule.WorkingHours
	for i := 0; i < 7; i++ {
		if wh := f[i]; wh != nil {
			out = append(out, *wh)
		}
	}
	return out, nil
}

type fakeUnavail []schedule.Unavailability

func (f fakeUnavail) ListOverlapping(_ context.Context, _ uuid.UUID, start, end time.Time) ([]schedule.Unavailability, error) {
	var out []schedule.Unavailability
	for _, u := range f {
		if u.StartAt.Before(end) && u.EndAt.After(start) {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeApptStore implements appointments.AppointmentStore and
// appointments.BookedTimesProvider for handler tests.
type fakeApptStore struct {
	rows map[uuid.UUID]*appointments.Appointment
}

func newFakeApptStore() *fakeApptStore {
	return &fakeApptStore{rows: make(map[uuid.UUID]*appointments.Appointment)}
}

func (s *fakeApptStore) CreateScheduled(_ context.Context, a *appointments.Appointment) error {
	for _, existing := range s.rows {
		if existing.Status == appointments.StatusScheduled &&
			existing.DoctorID == a.DoctorID && existing.Date.Equal(a.Date) && existing.Time == a.Time {
			return appointments.ErrSlotTaken
		}
	}
	a.ID = uuid.New()
	a.Status = appointments.StatusScheduled
	cp := *a
	s.rows[a.ID] = &cp
	return nil
}

func (s *fakeApptStore) GetByID(_ context.Context, id uuid.UUID) (*appointments.Appointment, error) {
	if a, ok := s.rows[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, apperr.NotFound("appointment")
}

func (s *fakeApptStore) UpdateSchedule(_ context.Context, id uuid.UUID, newDate time.Time, newTime string) error {
	a, ok := s.rows[id]
	if !ok {
		return apperr.NotFound("appointment")
	}
	a.Date, a.Time = newDate, newTime
	return nil
}

func (s *fakeApptStore) UpdateStatus(_ context.Context, id uuid.UUID, status appointments.Status, notes string) error {
	a, ok := s.rows[id]
	if !ok {
		return apperr.NotFound("appointment")
	}
	a.Status, a.BookingNotes = status, notes
	return nil
}

func (s *fakeApptStore) UpdateNotes(_ context.Context, id uuid.UUID, notes string) error {
	a, ok := s.rows[id]
	if !ok {
		return apperr.NotFound("appointment")
	}
	a.BookingNotes = notes
	return nil
}

func (s *fakeApptStore) BookedTimes(_ context.Context, doctorID uuid.UUID, day time.Time) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	for _, a := range s.rows {
		if a.DoctorID == doctorID && a.Date.Equal(day) &&
			(a.Status == appointments.StatusScheduled || a.Status == appointments.StatusCompleted) {
			out[a.Time] = struct{}{}
		}
	}
	return out, nil
}

type handlerFixture struct {
	doctorID  uuid.UUID
	patientID uuid.UUID
	store     *fakeApptStore
	router    http.Handler
}

func newHandlerFixture(t *testing.T, now time.Time) *handlerFixture {
	t.Helper()
	doctorID := uuid.New()
	patientID := uuid.New()

	doctors := fakeDoctors{doctorID: {ID: doctorID, FirstName: "Meera", LastName: "Shah", IsAvailable: true}}
	patients := fakePatients{patientID: {ID: patientID, FirstName: "Asha", LastName: "Rao"}}
	hours := fakeHours{0: {DayOfWeek: 0, StartTime: "09:00", EndTime: "12:00"}}
	var unavail fakeUnavail

	cfg := appointments.Config{
		SlotDuration:   30 * time.Minute,
		MaxAdvanceDays: 30,
		MinCancelLead:  2 * time.Hour,
		Now:            func() time.Time { return now },
	}
	store := newFakeApptStore()
	gen := appointments.NewGenerator(doctors, hours, unavail, store, cfg)
	svc := appointments.NewService(store, gen, doctors, patients, nil, nil, cfg, logging.Default())
	calendar := appointments.NewCalendarService(doctors, hours, unavail, nil, cfg)

	// The listing endpoints need the pgx-backed store; they are covered by
	// the store tests, so a silent mock suffices here.
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	pgStore := appointments.NewStore(mock)

	h := NewAppointmentsHandler(svc, pgStore, gen, nil, calendar, logging.Default())

	r := chi.NewRouter()
	r.Get("/appointments/slots/{doctorID}", h.GetSlots)
	r.Route("/patient/appointments", func(r chi.Router) {
		r.Use(httpmiddleware.RequireRole(testSecret, "patient"))
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}/reschedule", h.Reschedule)
		r.Post("/{id}/cancel", h.Cancel)
	})
	r.With(httpmiddleware.RequireRole(testSecret, "doctor")).
		Patch("/doctor/appointments/{id}/status", h.UpdateStatus)

	return &handlerFixture{
		doctorID:  doctorID,
		patientID: patientID,
		store:     store,
		router:    r,
	}
}

func bearerToken(t *testing.T, role string, subject uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, httpmiddleware.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doJSON(t *testing.T, router http.Handler, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetSlotsEndpoint(t *testing.T) {
	f := newHandlerFixture(t, monday.Add(-24*time.Hour))

	path := fmt.Sprintf("/appointments/slots/%s?date=2025-06-02", f.doctorID)
	rec := doJSON(t, f.router, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Slots []appointments.Slot `json:"slots"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Len(t, resp.Data.Slots, 6)
	assert.Equal(t, "09:00", resp.Data.Slots[0].Time)
}

func TestGetSlotsEndpointRejectsBadInput(t *testing.T) {
	f := newHandlerFixture(t, monday.Add(-24*time.Hour))

	rec := doJSON(t, f.router, http.MethodGet, "/appointments/slots/not-a-uuid?date=2025-06-02", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, f.router, http.MethodGet, fmt.Sprintf("/appointments/slots/%s", f.doctorID), "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, f.router, http.MethodGet, fmt.Sprintf("/appointments/slots/%s?date=June+2", f.doctorID), "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, f.router, http.MethodGet, fmt.Sprintf("/appointments/slots/%s?date=2025-06-02", uuid.New()), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAppointmentEndpoint(t *testing.T) {
	f := newHandlerFixture(t, monday.Add(-24*time.Hour))
	auth := bearerToken(t, "patient", f.patientID)

	body := map[string]any{
		"doctor_id":        f.doctorID,
		"appointment_date": "2025-06-02",
		"appointment_time": "10:00",
		"booking_notes":    "first visit",
	}

	rec := doJSON(t, f.router, http.MethodPost, "/patient/appointments/", auth, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			Appointment struct {
				ID     uuid.UUID `json:"id"`
				Date   string    `json:"appointment_date"`
				Time   string    `json:"appointment_time"`
				Status string    `json:"status"`
			} `json:"appointment"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2025-06-02", resp.Data.Appointment.Date)
	assert.Equal(t, "10:00", resp.Data.Appointment.Time)
	assert.Equal(t, "scheduled", resp.Data.Appointment.Status)

	// Same slot again loses with a 400.
	rec = doJSON(t, f.router, http.MethodPost, "/patient/appointments/", auth, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No token at all is a 401.
	rec = doJSON(t, f.router, http.MethodPost, "/patient/appointments/", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPatientCannotTouchForeignAppointment(t *testing.T) {
	f := newHandlerFixture(t, monday.Add(-24*time.Hour))
	owner := bearerToken(t, "patient", f.patientID)

	rec := doJSON(t, f.router, http.MethodPost, "/patient/appointments/", owner, map[string]any{
		"doctor_id":        f.doctorID,
		"appointment_date": "2025-06-02",
		"appointment_time": "09:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data struct {
			Appointment struct {
				ID uuid.UUID `json:"id"`
			} `json:"appointment"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	stranger := bearerToken(t, "patient", uuid.New())
	rec = doJSON(t, f.router, http.MethodGet, "/patient/appointments/"+created.Data.Appointment.ID.String(), stranger, nil)
	// A foreign appointment reads as not found, not forbidden.
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDoctorStatusEndpoint(t *testing.T) {
	f := newHandlerFixture(t, monday.Add(-24*time.Hour))
	patient := bearerToken(t, "patient", f.patientID)

	rec := doJSON(t, f.router, http.MethodPost, "/patient/appointments/", patient, map[string]any{
		"doctor_id":        f.doctorID,
		"appointment_date": "2025-06-02",
		"appointment_time": "11:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data struct {
			Appointment struct {
				ID uuid.UUID `json:"id"`
			} `json:"appointment"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Data.Appointment.ID.String()

	doctor := bearerToken(t, "doctor", f.doctorID)
	rec = doJSON(t, f.router, http.MethodPatch, "/doctor/appointments/"+id+"/status", doctor, map[string]any{
		"status": "completed",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Terminal now; further transitions are rejected.
	rec = doJSON(t, f.router, http.MethodPatch, "/doctor/appointments/"+id+"/status", doctor, map[string]any{
		"status": "no_show",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Another doctor cannot see the appointment.
	other := bearerToken(t, "doctor", uuid.New())
	rec = doJSON(t, f.router, http.MethodPatch, "/doctor/appointments/"+id+"/status", other, map[string]any{
		"status": "completed",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
