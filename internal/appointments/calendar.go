package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chikitsa-health/hospital-backend/internal/apperr"
	"github.com/chikitsa-health/hospital-backend/internal/schedule"
)

// Day classifications for the month calendar.
const (
	DayOffDay      = "off_day"
	DayPast        = "past"
	DayUnavailable = "unavailable"
	DayAvailable   = "available"
)

// Unavailability coverage for the daily schedule.
const (
	CoverageNone    = "none"
	CoveragePartial = "partial"
	CoverageFull    = "full"
)

// StatusCounts rolls up a day's appointments by status.
type StatusCounts struct {
	Scheduled int `json:"scheduled"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
	NoShow    int `json:"no_show"`
}

func (c *StatusCounts) add(s Status) {
	switch s {
	case StatusScheduled:
		c.Scheduled++
	case StatusCompleted:
		c.Completed++
	case StatusCancelled:
		c.Cancelled++
	case StatusNoShow:
		c.NoShow++
	}
}

// CalendarDay is one date's entry in the month calendar.
type CalendarDay struct {
	Date         string       `json:"date"`
	Status       string       `json:"status"`
	Appointments StatusCounts `json:"appointments"`
}

// ScheduleSlot is one slot in the daily schedule, with appointment status
// folded into its display.
type ScheduleSlot struct {
	Time   string `json:"time"`
	Status string `json:"status"` // available | past | blocked | scheduled | completed | cancelled | no_show
}

// DaySchedule is the detailed view of a single working day.
type DaySchedule struct {
	Date           string         `json:"date"`
	WorksToday     bool           `json:"works_today"`
	StartTime      string         `json:"start_time,omitempty"`
	EndTime        string         `json:"end_time,omitempty"`
	Unavailability string         `json:"unavailability"` // none | partial | full
	Slots          []ScheduleSlot `json:"slots"`
	Appointments   StatusCounts   `json:"appointments"`
}

// DayLister returns the appointments relevant to the calendar views.
type DayLister interface {
	ListForDay(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Appointment, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, opts ListOptions) ([]Appointment, error)
}

// CalendarService builds the read-only month and daily views. It shares the
// generator's interval rule so the two surfaces never disagree about what is
// bookable.
type CalendarService struct {
	hours   WorkingHoursProvider
	unavail UnavailabilityProvider
	appts   DayLister
	doctors DoctorProvider
	cfg     Config
}

// NewCalendarService constructs the calendar/schedule view builder.
func NewCalendarService(doctors DoctorProvider, hours WorkingHoursProvider, unavail UnavailabilityProvider, appts DayLister, cfg Config) *CalendarService {
	return &CalendarService{
		doctors: doctors,
		hours:   hours,
		unavail: unavail,
		appts:   appts,
		cfg:     cfg.withDefaults(),
	}
}

// MonthCalendar walks each date in [start, end] and classifies it, rolling
// up appointment counts by status. The range is capped at 62 days.
func (c *CalendarService) MonthCalendar(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]CalendarDay, error) {
	if _, err := c.doctors.GetDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	start = schedule.DateOf(start)
	end = schedule.DateOf(end)
	if end.Before(start) {
		return nil, apperr.Conflict("end_date must not be before start_date")
	}
	if end.Sub(start) > 62*24*time.Hour {
		return nil, apperr.Conflict("calendar range cannot exceed 62 days")
	}

	week, err := c.hours.GetForDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	byWeekday := make(map[int]schedule.WorkingHours, len(week))
	for _, wh := range week {
		byWeekday[wh.DayOfWeek] = wh
	}

	startDate := start
	endDate := end
	appts, err := c.appts.ListByDoctor(ctx, doctorID, ListOptions{StartDate: &startDate, EndDate: &endDate})
	if err != nil {
		return nil, err
	}
	countsByDate := make(map[string]*StatusCounts)
	for _, a := range appts {
		key := a.DateString()
		if countsByDate[key] == nil {
			countsByDate[key] = &StatusCounts{}
		}
		countsByDate[key].add(a.Status)
	}

	unavail, err := c.unavail.ListOverlapping(ctx, doctorID, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	today := schedule.DateOf(c.cfg.Now())
	var days []CalendarDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day := CalendarDay{Date: d.Format(schedule.DateLayout)}
		if counts := countsByDate[day.Date]; counts != nil {
			day.Appointments = *counts
		}
		day.Status = c.classifyDay(d, today, byWeekday, unavail)
		days = append(days, day)
	}
	return days, nil
}

func (c *CalendarService) classifyDay(d, today time.Time, byWeekday map[int]schedule.WorkingHours, unavail []schedule.Unavailability) string {
	wh, works := byWeekday[schedule.Weekday(d)]
	if !works {
		return DayOffDay
	}
	if d.Before(today) {
		return DayPast
	}

	dayStart, err1 := schedule.Combine(d, wh.StartTime)
	dayEnd, err2 := schedule.Combine(d, wh.EndTime)
	if err1 == nil && err2 == nil {
		for _, u := range unavail {
			if u.Covers(dayStart, dayEnd) {
				return DayUnavailable
			}
		}
	}
	return DayAvailable
}

// DailySchedule builds the detailed per-slot view for one date, folding
// appointment statuses into the grid and reporting whether unavailability
// covers none, part, or all of the working window.
func (c *CalendarService) DailySchedule(ctx context.Context, doctorID uuid.UUID, day time.Time) (*DaySchedule, error) {
	if _, err := c.doctors.GetDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	day = schedule.DateOf(day)
	out := &DaySchedule{
		Date:           day.Format(schedule.DateLayout),
		Unavailability: CoverageNone,
		Slots:          []ScheduleSlot{},
	}

	wh, err := c.hours.GetForDay(ctx, doctorID, schedule.Weekday(day))
	if err != nil {
		return nil, err
	}
	if wh == nil {
		return out, nil
	}
	out.WorksToday = true
	out.StartTime = wh.StartTime
	out.EndTime = wh.EndTime

	dayStart, err := schedule.Combine(day, wh.StartTime)
	if err != nil {
		return nil, err
	}
	dayEnd, err := schedule.Combine(day, wh.EndTime)
	if err != nil {
		return nil, err
	}

	unavail, err := c.unavail.ListOverlapping(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	if len(unavail) > 0 {
		out.Unavailability = CoveragePartial
		for _, u := range unavail {
			if u.Covers(dayStart, dayEnd) {
				out.Unavailability = CoverageFull
				break
			}
		}
	}

	appts, err := c.appts.ListForDay(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}
	byTime := make(map[string]Status, len(appts))
	for _, a := range appts {
		out.Appointments.add(a.Status)
		// An active booking wins over a cancelled one at the same time.
		if existing, ok := byTime[a.Time]; ok && existing != StatusCancelled {
			continue
		}
		byTime[a.Time] = a.Status
	}

	now := c.cfg.Now()
	isToday := day.Equal(schedule.DateOf(now))
	for t := dayStart; t.Before(dayEnd); t = t.Add(c.cfg.SlotDuration) {
		clock := schedule.FormatClock(t)
		slot := ScheduleSlot{Time: clock}

		switch {
		case hasActiveStatus(byTime, clock):
			slot.Status = string(byTime[clock])
		case isToday && !t.After(now):
			slot.Status = DayPast
		case blockedAt(unavail, t):
			slot.Status = "blocked"
		case byTime[clock] == StatusCancelled:
			slot.Status = string(StatusCancelled)
		default:
			slot.Status = DayAvailable
		}
		out.Slots = append(out.Slots, slot)
	}
	return out, nil
}

func hasActiveStatus(byTime map[string]Status, clock string) bool {
	s, ok := byTime[clock]
	return ok && s != StatusCancelled
}

func blockedAt(unavail []schedule.Unavailability, t time.Time) bool {
	for _, u := range unavail {
		if u.Blocks(t) {
			return true
		}
	}
	return false
}
