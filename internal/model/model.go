package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimSpace(s)); r {
	case RolePatient, RoleDoctor:
		return r, nil
	}
	return "", &ValidationError{Field: "role", Msg: "role must be patient or doctor"}
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

// ValidationError reports a user-fixable problem with one input field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Msg }

type User struct {
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	PasswordHash   string    `json:"password"`
	Age            int       `json:"age"`
	Gender         string    `json:"gender"`
	Role           Role      `json:"role"`
	Specialization string    `json:"specialization,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NormalizeEmail is applied to every email before it is used as a key.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseAge accepts an empty string as zero.
func ParseAge(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 150 {
		return 0, &ValidationError{Field: "age", Msg: "age must be a number between 0 and 150"}
	}
	return n, nil
}

// NewUser builds a user record. Specialization is dropped for patients.
func NewUser(email, name, passwordHash string, age int, gender string, role Role, specialization string) (*User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	switch {
	case email == "" || !strings.Contains(email, "@"):
		return nil, &ValidationError{Field: "email", Msg: "a valid email is required"}
	case name == "":
		return nil, &ValidationError{Field: "name", Msg: "name is required"}
	case passwordHash == "":
		return nil, &ValidationError{Field: "password", Msg: "password is required"}
	case age < 0:
		return nil, &ValidationError{Field: "age", Msg: "age must not be negative"}
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	u := &User{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Age:          age,
		Gender:       strings.TrimSpace(gender),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if role == RoleDoctor {
		u.Specialization = strings.TrimSpace(specialization)
	}
	return u, nil
}

func (u *User) IsDoctor() bool { return u.Role == RoleDoctor }

// ProfileUpdate holds the mutable user fields. Specialization applies to doctors only.
type ProfileUpdate struct {
	Name           string
	Age            int
	Gender         string
	Specialization string
}

func (p ProfileUpdate) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Msg: "name is required"}
	}
	if p.Age < 0 {
		return &ValidationError{Field: "age", Msg: "age must not be negative"}
	}
	return nil
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Appointment struct {
	ID            string    `json:"appointment_id"`
	DoctorEmail   string    `json:"doctor_email"`
	DoctorName    string    `json:"doctor_name"`
	PatientEmail  string    `json:"patient_email"`
	PatientName   string    `json:"patient_name"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Symptoms      string    `json:"symptoms"`
	Status        Status    `json:"status"`
	Diagnosis     string    `json:"diagnosis,omitempty"`
	TreatmentPlan string    `json:"treatment_plan,omitempty"`
	Prescription  string    `json:"prescription,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"`
}

// NewAppointment returns a pending appointment with a fresh id and the
// doctor and patient names copied in.
func NewAppointment(doctor, patient *User, date, tm, symptoms string) (*Appointment, error) {
	if doctor == nil || !doctor.IsDoctor() {
		return nil, &ValidationError{Field: "doctor_email", Msg: "a doctor is required"}
	}
	if patient == nil || patient.Email == "" {
		return nil, &ValidationError{Field: "patient_email", Msg: "a patient is required"}
	}
	date, tm = strings.TrimSpace(date), strings.TrimSpace(tm)
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, &ValidationError{Field: "date", Msg: "date must look like 2024-01-31"}
	}
	if _, err := time.Parse(TimeLayout, tm); err != nil {
		return nil, &ValidationError{Field: "time", Msg: "time must look like 14:30"}
	}
	return &Appointment{
		ID:           uuid.New().String(),
		DoctorEmail:  doctor.Email,
		DoctorName:   doctor.Name,
		PatientEmail: patient.Email,
		PatientName:  patient.Name,
		Date:         date,
		Time:         tm,
		Symptoms:     strings.TrimSpace(symptoms),
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Diagnosis is what a doctor submits to complete an appointment.
type Diagnosis struct {
	Diagnosis     string
	TreatmentPlan string
	Prescription  string
}

// Validate checks a record decoded from storage.
func (a *Appointment) Validate() error {
	if a.ID == "" || a.DoctorEmail == "" || a.PatientEmail == "" {
		return fmt.Errorf("appointment %q: missing key fields", a.ID)
	}
	_, err := ParseStatus(string(a.Status))
	return err
}
