// Package reminders sends day-before appointment reminder emails on a
// ticker. Delivery failures retry with exponential backoff; everything else
// in the system rejects immediately and leaves retrying to the caller.
package reminders

import (
	"context"
	"time"

	"github.com/chikitsa-health/hospital-backend/internal/notify"
	"github.com/chikitsa-health/hospital-backend/internal/schedule"
	"github.com/chikitsa-health/hospital-backend/pkg/logging"
)

type reminderLister interface {
	ListForDate(ctx context.Context, day time.Time) ([]Reminder, error)
}

// Worker emails tomorrow's scheduled patients once per calendar day.
type Worker struct {
	store         reminderLister
	sender        notify.EmailSender
	logger        *logging.Logger
	interval      time.Duration
	maxAttempts   int
	baseDelay     time.Duration
	hospitalPhone string
	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error

	lastProcessed time.Time // date of the last run's target day
}

// NewWorker creates the reminder worker.
func NewWorker(store reminderLister, sender notify.EmailSender, logger *logging.Logger) *Worker {
	if store == nil {
		panic("reminders: store required")
	}
	if sender == nil {
		sender = notify.NewStubEmailSender(logger)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		store:       store,
		sender:      sender,
		logger:      logger,
		interval:    1 * time.Hour,
		maxAttempts: 3,
		baseDelay:   2 * time.Second,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

func (w *Worker) WithInterval(d time.Duration) *Worker {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *Worker) WithRetry(maxAttempts int, baseDelay time.Duration) *Worker {
	if maxAttempts > 0 {
		w.maxAttempts = maxAttempts
	}
	if baseDelay > 0 {
		w.baseDelay = baseDelay
	}
	return w
}

func (w *Worker) WithHospitalPhone(phone string) *Worker {
	w.hospitalPhone = phone
	return w
}

// WithClock overrides the wall clock, for tests.
func (w *Worker) WithClock(now func() time.Time) *Worker {
	w.now = now
	return w
}

// Run ticks until the context is cancelled. The first pass runs immediately.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	tomorrow := schedule.DateOf(w.now()).AddDate(0, 0, 1)
	if tomorrow.Equal(w.lastProcessed) {
		return
	}
	sent, failed := w.ProcessDate(ctx, tomorrow)
	w.lastProcessed = tomorrow
	if sent > 0 || failed > 0 {
		w.logger.Info("reminder run finished", "date", tomorrow.Format(schedule.DateLayout), "sent", sent, "failed", failed)
	}
}

// ProcessDate sends a reminder for each scheduled appointment on the given
// date. Each email gets its own retry budget; one undeliverable patient does
// not block the rest.
func (w *Worker) ProcessDate(ctx context.Context, day time.Time) (sent, failed int) {
	due, err := w.store.ListForDate(ctx, day)
	if err != nil {
		w.logger.Error("reminder fetch failed", "error", err, "date", day.Format(schedule.DateLayout))
		return 0, 0
	}

	for _, rem := range due {
		msg := notify.AppointmentReminder(notify.ReminderDetails{
			PatientName:   rem.PatientName,
			PatientEmail:  rem.PatientEmail,
			DoctorName:    rem.DoctorName,
			Date:          rem.Date,
			Time:          rem.Time,
			HospitalPhone: w.hospitalPhone,
		})
		if err := w.sendWithRetry(ctx, msg); err != nil {
			w.logger.Error("reminder delivery failed", "error", err, "appointment_id", rem.AppointmentID)
			failed++
			continue
		}
		sent++
	}
	return sent, failed
}

func (w *Worker) sendWithRetry(ctx context.Context, msg notify.EmailMessage) error {
	var err error
	for attempt := 0; attempt < w.maxAttempts; attempt++ {
		if attempt > 0 {
			if serr := w.sleep(ctx, w.baseDelay*time.Duration(1<<(attempt-1))); serr != nil {
				return serr
			}
		}
		if err = w.sender.Send(ctx, msg); err == nil {
			return nil
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
