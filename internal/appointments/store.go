package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chikitsa-health/hospital-backend/internal/apperr"
	"github.com/chikitsa-health/hospital-backend/internal/schedule"
)

// DB abstracts the pgx pool interface for testing. Begin is required because
// the create and reschedule paths run inside explicit transactions.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store persists appointment rows. The appointments table carries a unique
// constraint on (doctor_id, appointment_date, appointment_time) which is the
// authoritative guard against double booking; the in-transaction pre-check
// exists only to reject early with a cleaner error.
type Store struct {
	db DB
}

// NewStore creates an appointment store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const appointmentColumns = `id, patient_id, doctor_id, appointment_date, to_char(appointment_time, 'HH24:MI'), status, COALESCE(booking_notes, ''), created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	if err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.Date, &a.Time, &a.Status, &a.BookingNotes, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()
	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// BookedTimes returns the set of "HH:MM" times holding a scheduled or
// completed appointment for the doctor on the given date.
func (s *Store) BookedTimes(ctx context.Context, doctorID uuid.UUID, day time.Time) (map[string]struct{}, error) {
	rows, err := s.db.Query(ctx, `
		SELECT to_char(appointment_time, 'HH24:MI')
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2 AND status IN ('scheduled', 'completed')`,
		doctorID, schedule.DateOf(day))
	if err != nil {
		return nil, fmt.Errorf("appointments: booked times: %w", err)
	}
	defer rows.Close()

	booked := make(map[string]struct{})
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("appointments: scan booked time: %w", err)
		}
		booked[t] = struct{}{}
	}
	return booked, rows.Err()
}

// CreateScheduled inserts a new scheduled appointment inside one transaction.
// The transaction re-checks for a scheduled row at the same (doctor, date,
// time) to close the window between slot read and write; the unique
// constraint catches whatever slips through. Both paths report ErrSlotTaken.
func (s *Store) CreateScheduled(ctx context.Context, a *Appointment) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appointments: begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND appointment_date = $2 AND appointment_time = $3::time AND status = 'scheduled'
		)`, a.DoctorID, schedule.DateOf(a.Date), a.Time).Scan(&exists)
	if err != nil {
		return fmt.Errorf("appointments: duplicate pre-check: %w", err)
	}
	if exists {
		return ErrSlotTaken
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Status = StatusScheduled
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, appointment_date, appointment_time, status, booking_notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::time, $6, $7, $8, $9)`,
		a.ID, a.PatientID, a.DoctorID, schedule.DateOf(a.Date), a.Time, a.Status, a.BookingNotes, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: commit create: %w", err)
	}
	return nil
}

// GetByID loads one appointment.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return a, nil
}

// UpdateSchedule moves an appointment to a new date and time. The unique
// constraint arbitrates concurrent moves onto the same slot.
func (s *Store) UpdateSchedule(ctx context.Context, id uuid.UUID, newDate time.Time, newTime string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET appointment_date = $1, appointment_time = $2::time, updated_at = $3
		WHERE id = $4`,
		schedule.DateOf(newDate), newTime, time.Now().UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}

// UpdateStatus writes a new status along with the (possibly extended) notes.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments
		SET status = $1, booking_notes = $2, updated_at = $3
		WHERE id = $4`,
		status, notes, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("appointments: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}

// UpdateNotes overwrites the booking notes.
func (s *Store) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET booking_notes = $1, updated_at = $2 WHERE id = $3`,
		notes, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("appointments: update notes: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment")
	}
	return nil
}

// ListOptions filter the listing queries.
type ListOptions struct {
	Status       Status
	StartDate    *time.Time
	EndDate      *time.Time
	UpcomingOnly bool
}

// ListByPatient returns a patient's appointments ordered by date then time.
func (s *Store) ListByPatient(ctx context.Context, patientID uuid.UUID, opts ListOptions) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE patient_id = $1`
	args := []any{patientID}
	query, args = applyListFilters(query, args, opts)
	query += " ORDER BY appointment_date, appointment_time"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list by patient: %w", err)
	}
	return collectAppointments(rows)
}

// ListByDoctor returns a doctor's appointments ordered by date then time.
func (s *Store) ListByDoctor(ctx context.Context, doctorID uuid.UUID, opts ListOptions) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE doctor_id = $1`
	args := []any{doctorID}
	query, args = applyListFilters(query, args, opts)
	query += " ORDER BY appointment_date, appointment_time"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list by doctor: %w", err)
	}
	return collectAppointments(rows)
}

// ListAll returns appointments across all doctors and patients, ordered by
// date then time. Admin surface only.
func (s *Store) ListAll(ctx context.Context, opts ListOptions) ([]Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE 1=1`
	var args []any
	query, args = applyListFilters(query, args, opts)
	query += " ORDER BY appointment_date, appointment_time"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list all: %w", err)
	}
	return collectAppointments(rows)
}

// ListForDay returns all appointments for a doctor on one date, every status
// included, ordered by time. The daily schedule view folds these statuses
// into its slot display.
func (s *Store) ListForDay(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2
		ORDER BY appointment_time`, doctorID, schedule.DateOf(day))
	if err != nil {
		return nil, fmt.Errorf("appointments: list for day: %w", err)
	}
	return collectAppointments(rows)
}

func applyListFilters(query string, args []any, opts ListOptions) (string, []any) {
	if opts.Status != "" {
		args = append(args, opts.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if opts.StartDate != nil {
		args = append(args, schedule.DateOf(*opts.StartDate))
		query += fmt.Sprintf(" AND appointment_date >= $%d", len(args))
	}
	if opts.EndDate != nil {
		args = append(args, schedule.DateOf(*opts.EndDate))
		query += fmt.Sprintf(" AND appointment_date <= $%d", len(args))
	}
	if opts.UpcomingOnly {
		query += " AND appointment_date >= CURRENT_DATE"
	}
	return query, args
}
