package schedule

import (
	"fmt"
	"time"

	"github.com/chikitsa-health/hospital-backend/internal/apperr"
)

// ClockLayout is the wire format for times of day.
const ClockLayout = "15:04"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ParseClock validates an "HH:MM" string and returns its hour and minute.
func ParseClock(value string) (hour, minute int, err error) {
	t, err := time.Parse(ClockLayout, value)
	if err != nil {
		return 0, 0, apperr.Conflictf("invalid time %q, expected HH:MM", value)
	}
	return t.Hour(), t.Minute(), nil
}

// FormatClock renders a datetime's time of day as "HH:MM".
func FormatClock(t time.Time) string {
	return t.Format(ClockLayout)
}

// ParseDate validates a "YYYY-MM-DD" string into a server-local date.
func ParseDate(value string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, apperr.Conflictf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}

// DateOf truncates a datetime to midnight of its calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Combine attaches an "HH:MM" time of day to a calendar date.
func Combine(day time.Time, clock string) (time.Time, error) {
	h, m, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location()), nil
}

// Weekday maps a date to the Monday=0 .. Sunday=6 convention used by
// working-hours rows.
func Weekday(day time.Time) int {
	return (int(day.Weekday()) + 6) % 7
}

// DayName returns the human-readable name for a Monday=0 weekday index.
func DayName(dayOfWeek int) string {
	names := []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	if dayOfWeek < 0 || dayOfWeek >= len(names) {
		return fmt.Sprintf("Unknown(%d)", dayOfWeek)
	}
	return names[dayOfWeek]
}
