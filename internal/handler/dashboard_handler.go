package handler

import (
	"net/http"

	"medtrack/internal/auth"
	"medtrack/internal/clinic"
	"medtrack/internal/model"
	"medtrack/internal/session"
	"medtrack/internal/view"
)

type dashboardView struct {
	Name string
	*clinic.Dashboard
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	id := caller(r)
	d, err := h.svc.Dashboard(r.Context(), id)
	if err != nil {
		if !h.redirectOnDenied(w, r, err) {
			h.internal(w, r, err)
		}
		return
	}
	page := view.PatientDashboard
	if id.IsDoctor() {
		page = view.DoctorDashboard
	}
	h.render(w, r, http.StatusOK, page, nil, dashboardView{Name: id.Name, Dashboard: d})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Profile(r.Context(), caller(r))
	if err != nil {
		if !h.redirectOnDenied(w, r, err) {
			h.internal(w, r, err)
		}
		return
	}
	h.render(w, r, http.StatusOK, view.Profile, nil, u)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	id := caller(r)
	updated, err := h.applyProfile(r, id)
	if err != nil {
		if h.redirectOnDenied(w, r, err) {
			return
		}
		msg, ok := userMessage(err)
		if !ok {
			h.internal(w, r, err)
			return
		}
		u, perr := h.svc.Profile(r.Context(), id)
		if perr != nil {
			h.internal(w, r, perr)
			return
		}
		h.render(w, r, http.StatusOK, view.Profile, danger(msg), u)
		return
	}
	// the display name lives in the session cookie
	if updated.Name != id.Name {
		if err := h.sessions.Start(w, updated); err != nil {
			h.internal(w, r, err)
			return
		}
	}
	h.redirect(w, r, session.LevelSuccess, "Profile updated.", "/profile")
}

func (h *Handler) applyProfile(r *http.Request, id auth.Identity) (auth.Identity, error) {
	age, err := model.ParseAge(r.PostFormValue("age"))
	if err != nil {
		return id, err
	}
	return h.svc.UpdateProfile(r.Context(), id, model.ProfileUpdate{
		Name:           r.PostFormValue("name"),
		Age:            age,
		Gender:         r.PostFormValue("gender"),
		Specialization: r.PostFormValue("specialization"),
	})
}
