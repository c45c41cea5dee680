package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"medtrack/internal/clinic"
	"medtrack/internal/model"
	"medtrack/internal/session"
	"medtrack/internal/view"
)

type bookView struct {
	PatientName string
	Doctors     []model.User
	Form        clinic.BookInput
}

type searchView struct {
	Query   string
	Results []model.Appointment
}

func (h *Handler) bookForm(w http.ResponseWriter, r *http.Request) {
	h.renderBook(w, r, http.StatusOK, nil, clinic.BookInput{})
}

func (h *Handler) renderBook(w http.ResponseWriter, r *http.Request, status int, flash *session.Flash, in clinic.BookInput) {
	docs, err := h.svc.Doctors(r.Context())
	if err != nil {
		h.internal(w, r, err)
		return
	}
	h.render(w, r, status, view.BookAppointment, flash, bookView{
		PatientName: caller(r).Name,
		Doctors:     docs,
		Form:        in,
	})
}

func (h *Handler) book(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderBook(w, r, http.StatusBadRequest, danger("Invalid form submission."), clinic.BookInput{})
		return
	}
	in := clinic.BookInput{
		DoctorEmail: r.PostFormValue("doctor_email"),
		Date:        r.PostFormValue("date"),
		Time:        r.PostFormValue("time"),
		Symptoms:    r.PostFormValue("symptoms"),
	}
	if _, err := h.svc.Book(r.Context(), caller(r), in); err != nil {
		if h.redirectOnDenied(w, r, err) {
			return
		}
		msg, ok := userMessage(err)
		if !ok {
			h.internal(w, r, err)
			return
		}
		h.renderBook(w, r, http.StatusOK, danger(msg), in)
		return
	}
	h.redirect(w, r, session.LevelSuccess, "Appointment booked successfully.", "/dashboard")
}

func (h *Handler) viewAppointment(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	a, err := h.svc.Appointment(r.Context(), id, chi.URLParam(r, "id"))
	if err != nil {
		if !h.redirectOnDenied(w, r, err) {
			h.internal(w, r, err)
		}
		return
	}
	h.renderAppointment(w, r, nil, a)
}

func (h *Handler) renderAppointment(w http.ResponseWriter, r *http.Request, flash *session.Flash, a *model.Appointment) {
	page := view.ViewAppointmentPatient
	if caller(r).IsDoctor() {
		page = view.ViewAppointmentDoctor
	}
	h.render(w, r, http.StatusOK, page, flash, a)
}

// diagnose handles POSTs to an appointment. Patients have nothing to submit
// and get the read-only page back.
func (h *Handler) diagnose(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	apptID := chi.URLParam(r, "id")
	if !id.IsDoctor() {
		h.viewAppointment(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	d := model.Diagnosis{
		Diagnosis:     r.PostFormValue("diagnosis"),
		TreatmentPlan: r.PostFormValue("treatment_plan"),
		Prescription:  r.PostFormValue("prescription"),
	}
	if _, err := h.svc.Diagnose(r.Context(), id, apptID, d); err != nil {
		if h.redirectOnDenied(w, r, err) {
			return
		}
		msg, ok := userMessage(err)
		if !ok {
			h.internal(w, r, err)
			return
		}
		a, gerr := h.svc.Appointment(r.Context(), id, apptID)
		if gerr != nil {
			h.internal(w, r, gerr)
			return
		}
		h.renderAppointment(w, r, danger(msg), a)
		return
	}
	h.redirect(w, r, session.LevelSuccess, "Diagnosis submitted successfully.", "/dashboard")
}

// search reads search_term from the query string on GET and from the form
// on POST.
func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("search_term")
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		term = r.PostFormValue("search_term")
	}
	res, err := h.svc.Search(r.Context(), caller(r), term)
	if err != nil {
		if !h.redirectOnDenied(w, r, err) {
			h.internal(w, r, err)
		}
		return
	}
	h.render(w, r, http.StatusOK, view.SearchResults, nil, searchView{Query: term, Results: res})
}
