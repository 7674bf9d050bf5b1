package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chikitsa-health/hospital-backend/internal/apperr"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WorkingHoursStore persists per-weekday availability windows.
type WorkingHoursStore struct {
	db DB
}

// NewWorkingHoursStore creates a working-hours store.
func NewWorkingHoursStore(db DB) *WorkingHoursStore {
	return &WorkingHoursStore{db: db}
}

// DayInput is one weekday entry in a create or replace request.
type DayInput struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func validateDay(d DayInput) error {
	if d.DayOfWeek < 0 || d.DayOfWeek > 6 {
		return apperr.Conflictf("day_of_week must be 0-6, got %d", d.DayOfWeek)
	}
	startH, startM, err := ParseClock(d.StartTime)
	if err != nil {
		return err
	}
	endH, endM, err := ParseClock(d.EndTime)
	if err != nil {
		return err
	}
	if endH*60+endM <= startH*60+startM {
		return apperr.Conflictf("end_time must be after start_time for %s", DayName(d.DayOfWeek))
	}
	return nil
}

const workingHoursColumns = `id, doctor_id, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI')`

func scanWorkingHours(row pgx.Row) (*WorkingHours, error) {
	var wh WorkingHours
	if err := row.Scan(&wh.ID, &wh.DoctorID, &wh.DayOfWeek, &wh.StartTime, &wh.EndTime); err != nil {
		return nil, err
	}
	wh.DayName = DayName(wh.DayOfWeek)
	return &wh, nil
}

// GetForDoctor returns all working-hours rows for a doctor, ordered by weekday.
func (s *WorkingHoursStore) GetForDoctor(ctx context.Context, doctorID uuid.UUID) ([]WorkingHours, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+workingHoursColumns+`
		FROM doctor_working_hours
		WHERE doctor_id = $1
		ORDER BY day_of_week`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("schedule: list working hours: %w", err)
	}
	defer rows.Close()

	var out []WorkingHours
	for rows.Next() {
		wh, err := scanWorkingHours(rows)
		if err != nil {
			return nil, fmt.Errorf("schedule: scan working hours: %w", err)
		}
		out = append(out, *wh)
	}
	return out, rows.Err()
}

// GetForDay returns the working-hours row for one weekday, or nil when the
// doctor does not work that day.
func (s *WorkingHoursStore) GetForDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*WorkingHours, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+workingHoursColumns+`
		FROM doctor_working_hours
		WHERE doctor_id = $1 AND day_of_week = $2`, doctorID, dayOfWeek)
	wh, err := scanWorkingHours(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: get working hours: %w", err)
	}
	return wh, nil
}

// CreateWeek inserts a doctor's weekly schedule. Fails with a Conflict when
// any row already exists; ReplaceWeek is the overwrite path.
func (s *WorkingHoursStore) CreateWeek(ctx context.Context, doctorID uuid.UUID, days []DayInput) ([]WorkingHours, error) {
	for _, d := range days {
		if err := validateDay(d); err != nil {
			return nil, err
		}
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM doctor_working_hours WHERE doctor_id = $1)`, doctorID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("schedule: check existing working hours: %w", err)
	}
	if exists {
		return nil, apperr.Conflict("working hours already exist, use update instead")
	}

	return s.insertWeek(ctx, doctorID, days)
}

// ReplaceWeek atomically swaps the doctor's entire weekly schedule.
func (s *WorkingHoursStore) ReplaceWeek(ctx context.Context, doctorID uuid.UUID, days []DayInput) ([]WorkingHours, error) {
	for _, d := range days {
		if err := validateDay(d); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("schedule: begin replace week: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM doctor_working_hours WHERE doctor_id = $1`, doctorID); err != nil {
		return nil, fmt.Errorf("schedule: clear working hours: %w", err)
	}

	created := make([]WorkingHours, 0, len(days))
	for _, d := range days {
		wh := WorkingHours{
			ID:        uuid.New(),
			DoctorID:  doctorID,
			DayOfWeek: d.DayOfWeek,
			DayName:   DayName(d.DayOfWeek),
			StartTime: d.StartTime,
			EndTime:   d.EndTime,
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO doctor_working_hours (id, doctor_id, day_of_week, start_time, end_time)
			VALUES ($1, $2, $3, $4::time, $5::time)`,
			wh.ID, wh.DoctorID, wh.DayOfWeek, wh.StartTime, wh.EndTime); err != nil {
			return nil, fmt.Errorf("schedule: insert working hours: %w", err)
		}
		created = append(created, wh)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("schedule: commit replace week: %w", err)
	}
	return created, nil
}

func (s *WorkingHoursStore) insertWeek(ctx context.Context, doctorID uuid.UUID, days []DayInput) ([]WorkingHours, error) {
	created := make([]WorkingHours, 0, len(days))
	for _, d := range days {
		wh := WorkingHours{
			ID:        uuid.New(),
			DoctorID:  doctorID,
			DayOfWeek: d.DayOfWeek,
			DayName:   DayName(d.DayOfWeek),
			StartTime: d.StartTime,
			EndTime:   d.EndTime,
		}
		if _, err := s.db.Exec(ctx, `
			INSERT INTO doctor_working_hours (id, doctor_id, day_of_week, start_time, end_time)
			VALUES ($1, $2, $3, $4::time, $5::time)`,
			wh.ID, wh.DoctorID, wh.DayOfWeek, wh.StartTime, wh.EndTime); err != nil {
			return nil, fmt.Errorf("schedule: insert working hours: %w", err)
		}
		created = append(created, wh)
	}
	return created, nil
}

// UpdateDay overwrites the start/end times for a single weekday.
func (s *WorkingHoursStore) UpdateDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int, startTime, endTime string) (*WorkingHours, error) {
	if err := validateDay(DayInput{DayOfWeek: dayOfWeek, StartTime: startTime, EndTime: endTime}); err != nil {
		return nil, err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE doctor_working_hours SET start_time = $1::time, end_time = $2::time
		WHERE doctor_id = $3 AND day_of_week = $4`,
		startTime, endTime, doctorID, dayOfWeek)
	if err != nil {
		return nil, fmt.Errorf("schedule: update working hours: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("working hours for " + DayName(dayOfWeek))
	}
	return s.GetForDay(ctx, doctorID, dayOfWeek)
}

// DeleteAll removes every working-hours row for a doctor.
func (s *WorkingHoursStore) DeleteAll(ctx context.Context, doctorID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM doctor_working_hours WHERE doctor_id = $1`, doctorID)
	if err != nil {
		return 0, fmt.Errorf("schedule: delete working hours: %w", err)
	}
	return tag.RowsAffected(), nil
}
