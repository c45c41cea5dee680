package clinic

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"medtrack/internal/auth"
	"medtrack/internal/model"
	"medtrack/internal/notify"
	"medtrack/internal/store"
)

func (s *Service) Doctors(ctx context.Context) ([]model.User, error) {
	docs, err := s.users.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return docs, nil
}

type BookInput struct {
	DoctorEmail string
	Date        string
	Time        string
	Symptoms    string
}

// Book creates a pending appointment for the calling patient. Booking the same
// doctor, date and time twice yields two appointments.
func (s *Service) Book(ctx context.Context, patient auth.Identity, in BookInput) (*model.Appointment, error) {
	if !patient.IsPatient() {
		return nil, ErrUnauthorized
	}
	doc, err := s.users.GetUser(ctx, model.NormalizeEmail(in.DoctorEmail))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup doctor: %w", err)
	}
	if !doc.IsDoctor() {
		return nil, ErrDoctorNotFound
	}

	pat := &model.User{Email: patient.Email, Name: patient.Name, Role: model.RolePatient}
	a, err := model.NewAppointment(doc, pat, in.Date, in.Time, in.Symptoms)
	if err != nil {
		return nil, err
	}
	if err := s.appts.CreateAppointment(ctx, a); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	s.rec.Booked()
	s.log.WithFields(logrus.Fields{"id": a.ID, "doctor": a.DoctorEmail}).Info("appointment booked")

	_ = s.notify.Publish(ctx, notify.Booked(a))
	_ = s.notify.Email(ctx, notify.BookedForDoctor(a))
	_ = s.notify.Email(ctx, notify.BookedForPatient(a))
	return a, nil
}

// Appointment returns the record if caller is its doctor or its patient.
func (s *Service) Appointment(ctx context.Context, caller auth.Identity, id string) (*model.Appointment, error) {
	a, err := s.appts.GetAppointment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if !canView(caller, a) {
		return nil, ErrUnauthorized
	}
	return a, nil
}

func canView(caller auth.Identity, a *model.Appointment) bool {
	switch caller.Role {
	case model.RoleDoctor:
		return a.DoctorEmail == caller.Email
	case model.RolePatient:
		return a.PatientEmail == caller.Email
	}
	return false
}

// Diagnose completes an appointment. Only its doctor may call it. The three
// fields are stored exactly as submitted, empty ones included; a repeat call
// overwrites the previous diagnosis and the status stays completed.
func (s *Service) Diagnose(ctx context.Context, caller auth.Identity, id string, d model.Diagnosis) (*model.Appointment, error) {
	a, err := s.Appointment(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsDoctor() {
		return nil, ErrUnauthorized
	}
	at := s.now()
	err = s.appts.CompleteAppointment(ctx, id, d, at)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("complete appointment: %w", err)
	}
	a.Diagnosis, a.TreatmentPlan, a.Prescription = d.Diagnosis, d.TreatmentPlan, d.Prescription
	a.Status = model.StatusCompleted
	a.UpdatedAt = at
	s.rec.Diagnosed()

	_ = s.notify.Email(ctx, notify.Completed(a))
	return a, nil
}

// Search scans the caller's own appointments. Doctors match on patient
// name; patients match on doctor name or status. The term is matched as
// given, so an empty term lists all and a blank one matches on spaces.
func (s *Service) Search(ctx context.Context, caller auth.Identity, term string) ([]model.Appointment, error) {
	var (
		out []model.Appointment
		err error
	)
	switch caller.Role {
	case model.RoleDoctor:
		out, err = s.appts.SearchByPatientName(ctx, caller.Email, term)
	case model.RolePatient:
		out, err = s.appts.SearchByDoctorOrStatus(ctx, caller.Email, term)
	default:
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("search appointments: %w", err)
	}
	return out, nil
}

type Dashboard struct {
	Appointments []model.Appointment
	Pending      int
	Completed    int
	Total        int
	// Doctors is filled for patients only.
	Doctors []model.User
}

func (s *Service) Dashboard(ctx context.Context, caller auth.Identity) (*Dashboard, error) {
	var (
		appts []model.Appointment
		err   error
	)
	switch caller.Role {
	case model.RoleDoctor:
		appts, err = s.appts.FindByDoctor(ctx, caller.Email)
	case model.RolePatient:
		appts, err = s.appts.FindByPatient(ctx, caller.Email)
	default:
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("dashboard appointments: %w", err)
	}

	d := &Dashboard{Appointments: appts, Total: len(appts)}
	for _, a := range appts {
		switch a.Status {
		case model.StatusPending:
			d.Pending++
		case model.StatusCompleted:
			d.Completed++
		}
	}
	if caller.IsPatient() {
		if d.Doctors, err = s.Doctors(ctx); err != nil {
			return nil, err
		}
	}
	return d, nil
}
