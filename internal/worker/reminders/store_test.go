package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestListForDate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	day := time.Date(2025, 6, 3, 0, 0, 0, 0, time.Local)
	apptID := uuid.New()

	mock.ExpectQuery("SELECT a.id").
		WithArgs(day).
		WillReturnRows(pgxmock.NewRows([]string{"id", "patient", "email", "doctor", "date", "time"}).
			AddRow(apptID, "Asha Rao", "asha@example.com", "Dr. Meera Shah", "2025-06-03", "10:00"))

	due, err := NewStore(mock).ListForDate(context.Background(), day)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(due))
	}
	r := due[0]
	if r.AppointmentID != apptID || r.PatientEmail != "asha@example.com" || r.Time != "10:00" {
		t.Fatalf("unexpected reminder %+v", r)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
