// Package clinic holds the booking rules: who may register, log in, book,
// read, diagnose and search what. Handlers translate its errors into flash
// messages; it never sees HTTP.
package clinic

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"medtrack/internal/model"
	"medtrack/internal/notify"
)

var (
	ErrPasswordMismatch    = errors.New("passwords do not match")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrUnauthorized        = errors.New("unauthorized")
)

type Users interface {
	GetUser(ctx context.Context, email string) (*model.User, error)
	PutUser(ctx context.Context, u *model.User) error
	UpdateProfile(ctx context.Context, email string, p model.ProfileUpdate) error
	ListDoctors(ctx context.Context) ([]model.User, error)
}

type Appointments interface {
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	CompleteAppointment(ctx context.Context, id string, d model.Diagnosis, at time.Time) error
	FindByDoctor(ctx context.Context, email string) ([]model.Appointment, error)
	FindByPatient(ctx context.Context, email string) ([]model.Appointment, error)
	SearchByPatientName(ctx context.Context, doctorEmail, term string) ([]model.Appointment, error)
	SearchByDoctorOrStatus(ctx context.Context, patientEmail, term string) ([]model.Appointment, error)
}

// Notifier delivers best-effort notifications. Results are informational.
type Notifier interface {
	Email(ctx context.Context, m notify.Message) notify.Result
	Publish(ctx context.Context, e notify.Event) notify.Result
}

// Recorder counts domain events; optional.
type Recorder interface {
	Booked()
	Diagnosed()
	Registered(role string)
}

type Service struct {
	users  Users
	appts  Appointments
	notify Notifier
	rec    Recorder
	log    logrus.FieldLogger
	now    func() time.Time
}

func New(users Users, appts Appointments, n Notifier, log logrus.FieldLogger) *Service {
	return &Service{
		users:  users,
		appts:  appts,
		notify: n,
		rec:    nopRecorder{},
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithRecorder attaches metrics.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.rec = r
	return s
}

type nopRecorder struct{}

func (nopRecorder) Booked()           {}
func (nopRecorder) Diagnosed()        {}
func (nopRecorder) Registered(string) {}
