package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/chikitsa-health/hospital-backend/internal/apperr"
)

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewStore(mock)
}

func TestGetDoctor(t *testing.T) {
	mock, store := newMock(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT d.id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "first_name", "last_name", "specialization", "department", "fee", "is_available"}).
			AddRow(id, "Meera", "Shah", "Cardiology", "Cardiology", 500.0, true))

	d, err := store.GetDoctor(context.Background(), id)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.DisplayName() != "Dr. Meera Shah" {
		t.Fatalf("unexpected display name %q", d.DisplayName())
	}
	if !d.IsAvailable || d.DepartmentName != "Cardiology" {
		t.Fatalf("unexpected doctor %+v", d)
	}
}

func TestGetDoctorNotFound(t *testing.T) {
	mock, store := newMock(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT d.id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "first_name", "last_name", "specialization", "department", "fee", "is_available"}))

	_, err := store.GetDoctor(context.Background(), id)
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetDoctorAvailability(t *testing.T) {
	mock, store := newMock(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE doctors").
		WithArgs(false, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := store.SetDoctorAvailability(context.Background(), id, false); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	mock.ExpectExec("UPDATE doctors").
		WithArgs(true, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := store.SetDoctorAvailability(context.Background(), id, true); !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
