package notify

import (
	"fmt"

	"medtrack/internal/model"
)

func Welcome(u *model.User) Message {
	return Message{
		To:      u.Email,
		Subject: "Welcome to MedTrack!",
		Body:    fmt.Sprintf("Dear %s,\n\nWelcome to MedTrack. Your account is now active.", u.Name),
	}
}

func Registered(u *model.User) Event {
	return Event{
		Subject: "New Registration on MedTrack",
		Message: fmt.Sprintf("New %s registered: %s (%s)", u.Role, u.Name, u.Email),
	}
}

func Booked(a *model.Appointment) Event {
	return Event{
		Subject: "New Appointment - MedTrack",
		Message: fmt.Sprintf("New appointment booked by %s for Dr. %s on %s at %s.",
			a.PatientName, a.DoctorName, a.Date, a.Time),
	}
}

func BookedForDoctor(a *model.Appointment) Message {
	return Message{
		To:      a.DoctorEmail,
		Subject: "New Appointment Booked",
		Body: fmt.Sprintf("Dear %s,\n\nYou have a new appointment booked by %s for %s at %s.\nSymptoms: %s",
			a.DoctorName, a.PatientName, a.Date, a.Time, a.Symptoms),
	}
}

func BookedForPatient(a *model.Appointment) Message {
	return Message{
		To:      a.PatientEmail,
		Subject: "Appointment Booked",
		Body: fmt.Sprintf("Dear %s,\n\nYour appointment with Dr. %s is booked for %s at %s.",
			a.PatientName, a.DoctorName, a.Date, a.Time),
	}
}

func Completed(a *model.Appointment) Message {
	return Message{
		To:      a.PatientEmail,
		Subject: "Appointment Completed",
		Body: fmt.Sprintf("Dear %s,\n\nYour appointment with Dr. %s has been completed.\nDiagnosis: %s\nTreatment plan: %s\nPrescription: %s",
			a.PatientName, a.DoctorName, a.Diagnosis, a.TreatmentPlan, a.Prescription),
	}
}
