package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/chikitsa-health/hospital-backend/internal/apperr"
)

func newStoreMock(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewStore(mock)
}

func TestCreateScheduledCommits(t *testing.T) {
	mock, store := newStoreMock(t)

	appt := &Appointment{
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Date:      time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local),
		Time:      "10:00",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(appt.DoctorID, appt.Date, appt.Time).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), appt.PatientID, appt.DoctorID, appt.Date, appt.Time,
			StatusScheduled, "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback() // deferred rollback after commit is a no-op

	if err := store.CreateScheduled(context.Background(), appt); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if appt.ID == uuid.Nil {
		t.Fatal("expected an ID to be assigned")
	}
	if appt.Status != StatusScheduled {
		t.Fatalf("expected scheduled, got %s", appt.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateScheduledPreCheckRejectsDuplicate(t *testing.T) {
	mock, store := newStoreMock(t)

	appt := &Appointment{
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Date:      time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local),
		Time:      "10:00",
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(appt.DoctorID, appt.Date, appt.Time).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	if err := store.CreateScheduled(context.Background(), appt); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateScheduledUniqueViolationLosesRace(t *testing.T) {
	mock, store := newStoreMock(t)

	appt := &Appointment{
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Date:      time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local),
		Time:      "10:00",
	}

	// The pre-check passes but a concurrent commit claims the slot first;
	// the constraint violation surfaces as ErrSlotTaken.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(appt.DoctorID, appt.Date, appt.Time).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), appt.PatientID, appt.DoctorID, appt.Date, appt.Time,
			StatusScheduled, "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_one_per_slot"})
	mock.ExpectRollback()

	if err := store.CreateScheduled(context.Background(), appt); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateScheduleMapsUniqueViolation(t *testing.T) {
	mock, store := newStoreMock(t)
	id := uuid.New()

	mock.ExpectExec("UPDATE appointments").
		WithArgs(pgxmock.AnyArg(), "11:00", pgxmock.AnyArg(), id).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := store.UpdateSchedule(context.Background(), id, time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local), "11:00")
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	mock, store := newStoreMock(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM appointments").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "doctor_id", "appointment_date", "to_char",
			"status", "booking_notes", "created_at", "updated_at",
		}))

	_, err := store.GetByID(context.Background(), id)
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBookedTimesIncludesScheduledAndCompleted(t *testing.T) {
	mock, store := newStoreMock(t)
	doctorID := uuid.New()
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)

	mock.ExpectQuery("SELECT to_char").
		WithArgs(doctorID, day).
		WillReturnRows(pgxmock.NewRows([]string{"time"}).AddRow("09:00").AddRow("10:30"))

	booked, err := store.BookedTimes(context.Background(), doctorID, day)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(booked) != 2 {
		t.Fatalf("expected 2 booked times, got %d", len(booked))
	}
	if _, ok := booked["09:00"]; !ok {
		t.Fatal("expected 09:00 in the booked set")
	}
}

func TestListByDoctorAppliesFilters(t *testing.T) {
	mock, store := newStoreMock(t)
	doctorID := uuid.New()
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.Local)

	mock.ExpectQuery("SELECT .+ FROM appointments").
		WithArgs(doctorID, StatusScheduled, start, end).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "patient_id", "doctor_id", "appointment_date", "to_char",
			"status", "booking_notes", "created_at", "updated_at",
		}).AddRow(uuid.New(), uuid.New(), doctorID, start.AddDate(0, 0, 1), "10:00",
			StatusScheduled, "", time.Now(), time.Now()))

	list, err := store.ListByDoctor(context.Background(), doctorID, ListOptions{
		Status:    StatusScheduled,
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(list) != 1 || list[0].Time != "10:00" {
		t.Fatalf("unexpected listing %+v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
