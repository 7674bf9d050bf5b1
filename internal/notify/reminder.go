package notify

import "fmt"

// ReminderDetails carries what the reminder email needs to say.
type ReminderDetails struct {
	PatientName   string
	PatientEmail  string
	DoctorName    string
	Date          string // YYYY-MM-DD
	Time          string // HH:MM
	HospitalPhone string
}

// AppointmentReminder builds the day-before reminder email.
func AppointmentReminder(d ReminderDetails) EmailMessage {
	body := fmt.Sprintf(
		"Dear %s,\n\nThis is a reminder of your appointment with %s tomorrow, %s at %s.\n\nIf you need to reschedule or cancel, please do so at least 2 hours in advance",
		d.PatientName, d.DoctorName, d.Date, d.Time)
	if d.HospitalPhone != "" {
		body += fmt.Sprintf(", or call us at %s", d.HospitalPhone)
	}
	body += ".\n\nChikitsa Hospital"

	return EmailMessage{
		To:      d.PatientEmail,
		ToName:  d.PatientName,
		Subject: fmt.Sprintf("Appointment reminder for %s at %s", d.Date, d.Time),
		Body:    body,
	}
}
