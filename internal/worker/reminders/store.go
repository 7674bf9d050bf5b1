package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chikitsa-health/hospital-backend/internal/schedule"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Reminder is one scheduled appointment due for a day-before email.
type Reminder struct {
	AppointmentID uuid.UUID
	PatientName   string
	PatientEmail  string
	DoctorName    string
	Date          string // YYYY-MM-DD
	Time          string // HH:MM
}

// Store reads the appointments due for reminders.
type Store struct {
	db DB
}

// NewStore creates a reminder store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// ListForDate returns every scheduled appointment on the given date, joined
// with the patient contact and doctor name the email needs. Patients without
// an email address are skipped.
func (s *Store) ListForDate(ctx context.Context, day time.Time) ([]Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a.id,
		       p.first_name || ' ' || p.last_name,
		       u.email,
		       'Dr. ' || d.first_name || ' ' || d.last_name,
		       to_char(a.appointment_date, 'YYYY-MM-DD'),
		       to_char(a.appointment_time, 'HH24:MI')
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN users u ON u.id = p.user_id
		JOIN doctors d ON d.id = a.doctor_id
		WHERE a.appointment_date = $1 AND a.status = 'scheduled' AND u.email <> ''
		ORDER BY a.appointment_time`, schedule.DateOf(day))
	if err != nil {
		return nil, fmt.Errorf("reminders: list for date: %w", err)
	}
	defer rows.Close()

	var out []Reminder
	for rows.Next() {
		var rem Reminder
		if err := rows.Scan(&rem.AppointmentID, &rem.PatientName, &rem.PatientEmail, &rem.DoctorName, &rem.Date, &rem.Time); err != nil {
			return nil, fmt.Errorf("reminders: scan: %w", err)
		}
		out = append(out, rem)
	}
	return out, rows.Err()
}
