package notify

import (
	"strings"
	"testing"
)

func TestAppointmentReminder(t *testing.T) {
	msg := AppointmentReminder(ReminderDetails{
		PatientName:   "Asha Rao",
		PatientEmail:  "asha@example.com",
		DoctorName:    "Dr. Meera Shah",
		Date:          "2025-06-03",
		Time:          "10:00",
		HospitalPhone: "+91-11-5555-0101",
	})

	if msg.To != "asha@example.com" || msg.ToName != "Asha Rao" {
		t.Fatalf("unexpected recipient %q (%q)", msg.To, msg.ToName)
	}
	if !strings.Contains(msg.Subject, "2025-06-03") || !strings.Contains(msg.Subject, "10:00") {
		t.Fatalf("subject should carry date and time, got %q", msg.Subject)
	}
	for _, want := range []string{"Dr. Meera Shah", "2025-06-03", "10:00", "+91-11-5555-0101"} {
		if !strings.Contains(msg.Body, want) {
			t.Fatalf("body missing %q:\n%s", want, msg.Body)
		}
	}
}

func TestAppointmentReminderWithoutPhone(t *testing.T) {
	msg := AppointmentReminder(ReminderDetails{
		PatientName:  "Asha Rao",
		PatientEmail: "asha@example.com",
		DoctorName:   "Dr. Meera Shah",
		Date:         "2025-06-03",
		Time:         "10:00",
	})
	if strings.Contains(msg.Body, "call us") {
		t.Fatalf("body should omit the phone line when unset:\n%s", msg.Body)
	}
}
