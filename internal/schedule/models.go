// Package schedule owns a doctor's recurring weekly availability and the
// ad-hoc unavailability windows layered on top of it.
package schedule

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// HolidayReasonPrefix marks unavailability rows created in bulk by an
// administrator. Rows carrying it cannot be edited by the owning doctor.
const HolidayReasonPrefix = "[Hospital Holiday]"

// WorkingHours is one weekday's availability window for a doctor.
// Absence of a row for a weekday means the doctor does not work that day.
type WorkingHours struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	DayOfWeek int       `json:"day_of_week"` // Monday=0 .. Sunday=6
	DayName   string    `json:"day_name"`
	StartTime string    `json:"start_time"` // "HH:MM"
	EndTime   string    `json:"end_time"`   // "HH:MM"
}

// Unavailability is an explicit datetime range during which a doctor
// cannot be booked, regardless of working hours. Ranges may span days.
type Unavailability struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	StartAt   time.Time `json:"start_datetime"`
	EndAt     time.Time `json:"end_datetime"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy uuid.UUID `json:"created_by,omitempty"`
}

// IsHospitalHoliday reports whether this row was bulk-created by an admin.
func (u Unavailability) IsHospitalHoliday() bool {
	return strings.HasPrefix(u.Reason, HolidayReasonPrefix)
}

// Blocks reports whether the range blocks a slot starting at t, using the
// single half-open convention shared with the slot generator:
// start_at <= t < end_at. A range ending exactly at a slot start leaves
// that slot bookable.
func (u Unavailability) Blocks(t time.Time) bool {
	return !u.StartAt.After(t) && t.Before(u.EndAt)
}

// Covers reports whether the range fully covers [from, to].
func (u Unavailability) Covers(from, to time.Time) bool {
	return !u.StartAt.After(from) && !u.EndAt.Before(to)
}
