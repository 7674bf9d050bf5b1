// Package directory provides the doctor and patient lookups the scheduling
// engine depends on. Account management lives elsewhere; this is the
// read-mostly surface the engine consumes.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/chikitsa-health/hospital-backend/internal/apperr"
)

// Doctor is the engine-facing view of a doctor row.
type Doctor struct {
	ID              uuid.UUID `json:"id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Specialization  string    `json:"specialization"`
	DepartmentName  string    `json:"department_name,omitempty"`
	ConsultationFee float64   `json:"consultation_fee,omitempty"`
	IsAvailable     bool      `json:"is_available"`
}

// DisplayName returns the doctor's name as shown to patients.
func (d *Doctor) DisplayName() string {
	return "Dr. " + d.FirstName + " " + d.LastName
}

// Patient is the engine-facing view of a patient row.
type Patient struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone"`
}

// DisplayName returns the patient's full name.
func (p *Patient) DisplayName() string {
	return p.FirstName + " " + p.LastName
}

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store looks up doctors and patients.
type Store struct {
	db DB
}

// NewStore creates a directory store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// GetDoctor loads a doctor with their department name.
func (s *Store) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	var d Doctor
	err := s.db.QueryRow(ctx, `
		SELECT d.id, d.first_name, d.last_name, d.specialization,
		       COALESCE(dep.name, ''), COALESCE(d.consultation_fee, 0), d.is_available
		FROM doctors d
		LEFT JOIN departments dep ON dep.id = d.department_id
		WHERE d.id = $1`, id).
		Scan(&d.ID, &d.FirstName, &d.LastName, &d.Specialization, &d.DepartmentName, &d.ConsultationFee, &d.IsAvailable)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("doctor")
	}
	if err != nil {
		return nil, fmt.Errorf("directory: get doctor: %w", err)
	}
	return &d, nil
}

// GetPatient loads a patient.
func (s *Store) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := s.db.QueryRow(ctx, `
		SELECT p.id, p.first_name, p.last_name, COALESCE(u.email, ''), p.phone
		FROM patients p
		LEFT JOIN users u ON u.id = p.user_id
		WHERE p.id = $1`, id).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("patient")
	}
	if err != nil {
		return nil, fmt.Errorf("directory: get patient: %w", err)
	}
	return &p, nil
}

// SetDoctorAvailability flips the global availability flag. A doctor marked
// unavailable yields no slots regardless of working hours.
func (s *Store) SetDoctorAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE doctors SET is_available = $1, updated_at = NOW() WHERE id = $2`, available, id)
	if err != nil {
		return fmt.Errorf("directory: set doctor availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("doctor")
	}
	return nil
}
