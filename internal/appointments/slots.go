package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chikitsa-health/hospital-backend/internal/directory"
	"github.com/chikitsa-health/hospital-backend/internal/observability/metrics"
	"github.com/chikitsa-health/hospital-backend/internal/schedule"
)

// DoctorProvider resolves doctor existence and the global availability flag.
type DoctorProvider interface {
	GetDoctor(ctx context.Context, id uuid.UUID) (*directory.Doctor, error)
}

// PatientProvider resolves patient existence.
type PatientProvider interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*directory.Patient, error)
}

// WorkingHoursProvider resolves a doctor's window for one weekday. A nil
// result with nil error means the doctor does not work that day.
type WorkingHoursProvider interface {
	GetForDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*schedule.WorkingHours, error)
	GetForDoctor(ctx context.Context, doctorID uuid.UUID) ([]schedule.WorkingHours, error)
}

// UnavailabilityProvider resolves unavailability ranges overlapping a
// half-open datetime window.
type UnavailabilityProvider interface {
	ListOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]schedule.Unavailability, error)
}

// BookedTimesProvider resolves the set of booked "HH:MM" times for one day.
type BookedTimesProvider interface {
	BookedTimes(ctx context.Context, doctorID uuid.UUID, day time.Time) (map[string]struct{}, error)
}

// Generator derives the bookable slot grid for a doctor and a date. It is a
// pure read path: fresh output on every call, no caching of its own.
type Generator struct {
	doctors DoctorProvider
	hours   WorkingHoursProvider
	unavail UnavailabilityProvider
	booked  BookedTimesProvider
	m       *metrics.BookingMetrics
	cfg     Config
}

// NewGenerator creates a slot generator. cfg must match the booking
// engine's configuration.
func NewGenerator(doctors DoctorProvider, hours WorkingHoursProvider, unavail UnavailabilityProvider, booked BookedTimesProvider, cfg Config) *Generator {
	return &Generator{
		doctors: doctors,
		hours:   hours,
		unavail: unavail,
		booked:  booked,
		cfg:     cfg.withDefaults(),
	}
}

// WithMetrics attaches latency instrumentation.
func (g *Generator) WithMetrics(m *metrics.BookingMetrics) *Generator {
	g.m = m
	return g
}

// AvailableSlots returns the ordered slot grid for doctorID on day. An
// unknown doctor is an error; a doctor who is globally unavailable, a date
// in the past or beyond the advance-booking horizon, and a weekday without
// working hours all yield an empty grid.
func (g *Generator) AvailableSlots(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Slot, error) {
	start := time.Now()
	defer func() { g.m.ObserveSlotGeneration(time.Since(start).Seconds()) }()

	doctor, err := g.doctors.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	day = schedule.DateOf(day)
	now := g.cfg.Now()
	today := schedule.DateOf(now)

	if !doctor.IsAvailable {
		return []Slot{}, nil
	}
	if day.Before(today) {
		return []Slot{}, nil
	}
	if day.After(today.AddDate(0, 0, g.cfg.MaxAdvanceDays)) {
		return []Slot{}, nil
	}

	hours, err := g.hours.GetForDay(ctx, doctorID, schedule.Weekday(day))
	if err != nil {
		return nil, err
	}
	if hours == nil {
		return []Slot{}, nil
	}

	dayStart, err := schedule.Combine(day, hours.StartTime)
	if err != nil {
		return nil, err
	}
	dayEnd, err := schedule.Combine(day, hours.EndTime)
	if err != nil {
		return nil, err
	}

	unavail, err := g.unavail.ListOverlapping(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	booked, err := g.booked.BookedTimes(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}

	return buildGrid(dayStart, dayEnd, g.cfg.SlotDuration, unavail, booked, now, day.Equal(today)), nil
}

// buildGrid walks [dayStart, dayEnd) in fixed steps and classifies each slot.
// One interval rule everywhere: a slot is blocked iff some unavailability
// range satisfies start <= slot_start < end.
func buildGrid(dayStart, dayEnd time.Time, step time.Duration, unavail []schedule.Unavailability, booked map[string]struct{}, now time.Time, isToday bool) []Slot {
	slots := make([]Slot, 0, dayEnd.Sub(dayStart)/step)
	for t := dayStart; t.Before(dayEnd); t = t.Add(step) {
		clock := schedule.FormatClock(t)

		isPast := isToday && !t.After(now)
		_, isBooked := booked[clock]

		blocked := false
		for _, u := range unavail {
			if u.Blocks(t) {
				blocked = true
				break
			}
		}

		slots = append(slots, Slot{
			Time:        clock,
			IsAvailable: !isBooked && !isPast && !blocked,
			IsPast:      isPast,
			IsBooked:    isBooked,
		})
	}
	return slots
}
