// Package view renders the server-side HTML pages. Every page is parsed
// together with layout.html and the shared appointments table.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"medtrack/internal/auth"
	"medtrack/internal/session"
)

//go:embed templates/*.html
var files embed.FS

const (
	Index                  = "index.html"
	Register               = "register.html"
	Login                  = "login.html"
	DoctorDashboard        = "doctor_dashboard.html"
	PatientDashboard       = "patient_dashboard.html"
	BookAppointment        = "book_appointment.html"
	ViewAppointmentDoctor  = "view_appointment_doctor.html"
	ViewAppointmentPatient = "view_appointment_patient.html"
	SearchResults          = "search_results.html"
	Profile                = "profile.html"
)

var pages = []string{
	Index, Register, Login,
	DoctorDashboard, PatientDashboard,
	BookAppointment, ViewAppointmentDoctor, ViewAppointmentPatient,
	SearchResults, Profile,
}

// Page is what every template receives. Identity is nil for anonymous callers.
type Page struct {
	Identity *auth.Identity
	Flash    *session.Flash
	Data     any
}

type Renderer struct {
	pages map[string]*template.Template
}

func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New(name).ParseFS(files,
			"templates/layout.html",
			"templates/appointments.html",
			"templates/"+name,
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes the page into a buffer first so a template error never
// leaves a half-written response behind.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, p Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
