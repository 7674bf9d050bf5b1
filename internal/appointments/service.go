package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/chikitsa-health/hospital-backend/internal/apperr"
	"github.com/chikitsa-health/hospital-backend/internal/observability/metrics"
	"github.com/chikitsa-health/hospital-backend/internal/schedule"
	"github.com/chikitsa-health/hospital-backend/pkg/logging"
)

var bookingTracer = otel.Tracer("hospital.internal.appointments")

// AppointmentStore is the persistence surface the booking engine writes
// through. *Store implements it; tests inject stubs.
type AppointmentStore interface {
	CreateScheduled(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, newDate time.Time, newTime string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes string) error
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error
}

// SlotCacheInvalidator drops cached slot listings after a booking write.
type SlotCacheInvalidator interface {
	Invalidate(ctx context.Context, doctorID uuid.UUID)
}

// Service is the booking engine. Every write re-validates availability
// through the slot generator before touching the store.
type Service struct {
	store    AppointmentStore
	gen      *Generator
	doctors  DoctorProvider
	patients PatientProvider
	cache    SlotCacheInvalidator
	metrics  *metrics.BookingMetrics
	cfg      Config
	logger   *logging.Logger
}

// NewService constructs the booking engine. cache and m may be nil.
func NewService(store AppointmentStore, gen *Generator, doctors DoctorProvider, patients PatientProvider, cache SlotCacheInvalidator, m *metrics.BookingMetrics, cfg Config, logger *logging.Logger) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if gen == nil {
		panic("appointments: slot generator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:    store,
		gen:      gen,
		doctors:  doctors,
		patients: patients,
		cache:    cache,
		metrics:  m,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// CreateInput carries a booking request.
type CreateInput struct {
	PatientID    uuid.UUID
	DoctorID     uuid.UUID
	Date         time.Time
	Time         string // "HH:MM"
	BookingNotes string
}

// Create books a new appointment. The requested slot must currently appear
// available; the store's transaction and the unique constraint arbitrate
// races, with the loser receiving a Conflict.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("hospital.doctor_id", in.DoctorID.String()),
		attribute.String("hospital.patient_id", in.PatientID.String()),
	)

	if _, err := s.patients.GetPatient(ctx, in.PatientID); err != nil {
		return nil, err
	}
	doctor, err := s.doctors.GetDoctor(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.IsAvailable {
		return nil, apperr.Conflict("doctor is not available for appointments")
	}
	if _, _, err := schedule.ParseClock(in.Time); err != nil {
		return nil, err
	}

	if err := s.requireAvailable(ctx, in.DoctorID, in.Date, in.Time); err != nil {
		s.metrics.ObserveBooking("rejected")
		return nil, err
	}

	appt := &Appointment{
		PatientID:    in.PatientID,
		DoctorID:     in.DoctorID,
		Date:         schedule.DateOf(in.Date),
		Time:         in.Time,
		BookingNotes: in.BookingNotes,
	}
	if err := s.store.CreateScheduled(ctx, appt); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveConflict()
			return nil, apperr.Conflict("the selected time slot is already booked")
		}
		span.RecordError(err)
		return nil, err
	}

	s.invalidate(ctx, in.DoctorID)
	s.metrics.ObserveBooking("created")
	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"patient_id", in.PatientID,
		"doctor_id", in.DoctorID,
		"date", appt.DateString(),
		"time", appt.Time,
	)
	return appt, nil
}

// Reschedule moves a scheduled appointment to a new date and time. Status
// is untouched.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time, newTime string) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("hospital.appointment_id", id.String()))

	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusScheduled {
		return nil, apperr.Conflict("only scheduled appointments can be rescheduled")
	}
	if _, _, err := schedule.ParseClock(newTime); err != nil {
		return nil, err
	}

	if err := s.requireAvailable(ctx, appt.DoctorID, newDate, newTime); err != nil {
		return nil, err
	}

	if err := s.store.UpdateSchedule(ctx, id, newDate, newTime); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveConflict()
			return nil, apperr.Conflict("the selected time slot is already booked")
		}
		span.RecordError(err)
		return nil, err
	}

	appt.Date = schedule.DateOf(newDate)
	appt.Time = newTime
	s.invalidate(ctx, appt.DoctorID)
	s.logger.Info("appointment rescheduled", "appointment_id", id, "date", appt.DateString(), "time", newTime)
	return appt, nil
}

// UpdateStatus applies a lifecycle transition. Terminal states admit no
// further transitions; cancelling a scheduled appointment requires the
// configured lead time. A reason is appended to the booking notes as the
// audit trail.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status, reason string) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "appointments.update_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("hospital.appointment_id", id.String()),
		attribute.String("hospital.status", string(newStatus)),
	)

	if !newStatus.Valid() {
		return nil, apperr.Conflictf("invalid status %q", string(newStatus))
	}

	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, apperr.Conflictf("cannot change status of a %s appointment", string(appt.Status))
	}

	if newStatus == StatusCancelled && appt.Status == StatusScheduled {
		startAt, err := appt.StartAt()
		if err != nil {
			return nil, err
		}
		if startAt.Sub(s.cfg.Now()) < s.cfg.MinCancelLead {
			return nil, apperr.Conflictf("appointments can only be cancelled at least %s in advance", formatLead(s.cfg.MinCancelLead))
		}
	}

	notes := appt.BookingNotes
	if reason != "" {
		notes = notes + fmt.Sprintf("\nStatus changed to %s: %s", newStatus, reason)
	}

	if err := s.store.UpdateStatus(ctx, id, newStatus, notes); err != nil {
		span.RecordError(err)
		return nil, err
	}

	oldStatus := appt.Status
	appt.Status = newStatus
	appt.BookingNotes = notes
	s.invalidate(ctx, appt.DoctorID)
	s.metrics.ObserveBooking(string(newStatus))
	s.logger.Info("appointment status updated", "appointment_id", id, "from", string(oldStatus), "to", string(newStatus))
	return appt, nil
}

// Cancel is the patient-facing cancellation path.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	return s.UpdateStatus(ctx, id, StatusCancelled, reason)
}

// UpdateNotes overwrites the booking notes.
func (s *Service) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error) {
	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateNotes(ctx, id, notes); err != nil {
		return nil, err
	}
	appt.BookingNotes = notes
	return appt, nil
}

// GetByID loads one appointment through the engine's store.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.store.GetByID(ctx, id)
}

// requireAvailable re-derives the slot grid and demands that the requested
// time appears and is bookable right now.
func (s *Service) requireAvailable(ctx context.Context, doctorID uuid.UUID, day time.Time, clock string) error {
	slots, err := s.gen.AvailableSlots(ctx, doctorID, day)
	if err != nil {
		return err
	}
	for _, slot := range slots {
		if slot.Time == clock {
			if !slot.IsAvailable {
				return apperr.Conflict("selected time slot is not available")
			}
			return nil
		}
	}
	return apperr.Conflict("selected time slot is not available")
}

func (s *Service) invalidate(ctx context.Context, doctorID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, doctorID)
	}
}

func formatLead(d time.Duration) string {
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}
