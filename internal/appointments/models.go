// Package appointments implements the slot-allocation and booking engine:
// deriving the bookable grid for a doctor and a date, and enforcing the
// booking, reschedule and cancellation rules on top of it.
package appointments

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chikitsa-health/hospital-backend/internal/schedule"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

// Valid reports whether s is a recognized status value.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Appointment is a booked visit. Date carries calendar-day semantics in
// server-local time; Time is the "HH:MM" slot start.
type Appointment struct {
	ID           uuid.UUID `json:"id"`
	PatientID    uuid.UUID `json:"patient_id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	Date         time.Time `json:"-"`
	Time         string    `json:"appointment_time"`
	Status       Status    `json:"status"`
	BookingNotes string    `json:"booking_notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DateString renders the appointment date for the wire.
func (a *Appointment) DateString() string {
	return a.Date.Format(schedule.DateLayout)
}

// StartAt combines date and time into the appointment's start datetime.
func (a *Appointment) StartAt() (time.Time, error) {
	return schedule.Combine(a.Date, a.Time)
}

// Slot is one fixed-duration candidate appointment time, derived fresh on
// every read and never persisted.
type Slot struct {
	Time        string `json:"time"`
	IsAvailable bool   `json:"is_available"`
	IsPast      bool   `json:"is_past"`
	IsBooked    bool   `json:"is_booked"`
}

// ErrSlotTaken is returned by the store when an insert or reschedule loses
// the race for a (doctor, date, time) slot. First committer wins; the loser
// surfaces a conflict to the caller.
var ErrSlotTaken = errors.New("appointments: slot already booked")

// Config carries the scheduling knobs shared by the slot generator and the
// booking validator. Both must see identical values or the write-time
// re-validation would disagree with what was shown to the patient.
type Config struct {
	SlotDuration   time.Duration
	MaxAdvanceDays int
	MinCancelLead  time.Duration
	Now            func() time.Time
}

func (c Config) withDefaults() Config {
	if c.SlotDuration <= 0 {
		c.SlotDuration = 30 * time.Minute
	}
	if c.MaxAdvanceDays <= 0 {
		c.MaxAdvanceDays = 30
	}
	if c.MinCancelLead <= 0 {
		c.MinCancelLead = 2 * time.Hour
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
