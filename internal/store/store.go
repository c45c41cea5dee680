// Package store persists users and appointments. Two backends share one
// method set: Bolt (embedded key-value file) and Postgres. Both keep two flat
// tables, users keyed by email and appointments keyed by id, and answer every
// filtered lookup with a full scan.
package store

import (
	"errors"
	"sort"
	"strings"

	"medtrack/internal/model"
)

var ErrNotFound = errors.New("not found")

// Tables names the two record tables (buckets for bolt).
type Tables struct {
	Users        string
	Appointments string
}

// apptFilter mirrors the scan filter expressions the handlers need.
type apptFilter func(a *model.Appointment) bool

func byDoctor(email string) apptFilter {
	return func(a *model.Appointment) bool { return a.DoctorEmail == email }
}

func byPatient(email string) apptFilter {
	return func(a *model.Appointment) bool { return a.PatientEmail == email }
}

// doctor side: contains(patient_name, term)
func doctorSearch(email, term string) apptFilter {
	return func(a *model.Appointment) bool {
		return a.DoctorEmail == email && strings.Contains(a.PatientName, term)
	}
}

// patient side: contains(doctor_name, term) OR contains(status, term)
func patientSearch(email, term string) apptFilter {
	return func(a *model.Appointment) bool {
		return a.PatientEmail == email &&
			(strings.Contains(a.DoctorName, term) || strings.Contains(string(a.Status), term))
	}
}

// newestFirst gives scan results a stable display order.
func newestFirst(out []model.Appointment) {
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
}
