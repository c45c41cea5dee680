package handler

import (
	"net/http"

	"medtrack/internal/clinic"
	"medtrack/internal/model"
	"medtrack/internal/session"
	"medtrack/internal/view"
)

type registerForm struct {
	Name           string
	Email          string
	Age            string
	Gender         string
	Role           string
	Specialization string
}

type loginForm struct {
	Email string
	Role  string
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.Index, nil, nil)
}

func (h *Handler) registerForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.Register, nil, registerForm{Role: string(model.RolePatient)})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, view.Register, danger("Invalid form submission."), registerForm{})
		return
	}
	in := clinic.RegisterInput{
		Name:            r.PostFormValue("name"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
		Age:             r.PostFormValue("age"),
		Gender:          r.PostFormValue("gender"),
		Role:            r.PostFormValue("role"),
		Specialization:  r.PostFormValue("specialization"),
	}
	if _, err := h.svc.Register(r.Context(), in); err != nil {
		msg, ok := userMessage(err)
		if !ok {
			h.internal(w, r, err)
			return
		}
		// passwords are never echoed back
		form := registerForm{
			Name:           in.Name,
			Email:          in.Email,
			Age:            in.Age,
			Gender:         in.Gender,
			Role:           in.Role,
			Specialization: in.Specialization,
		}
		h.render(w, r, http.StatusOK, view.Register, danger(msg), form)
		return
	}
	h.redirect(w, r, session.LevelSuccess, "Registration successful. Please login.", "/login")
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.Login, nil, loginForm{Role: string(model.RolePatient)})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, r, http.StatusBadRequest, view.Login, danger("Invalid form submission."), loginForm{})
		return
	}
	email, role := r.PostFormValue("email"), r.PostFormValue("role")
	id, err := h.svc.Login(r.Context(), email, r.PostFormValue("password"), role)
	if err != nil {
		msg, ok := userMessage(err)
		if !ok {
			h.internal(w, r, err)
			return
		}
		h.render(w, r, http.StatusOK, view.Login, danger(msg), loginForm{Email: email, Role: role})
		return
	}
	if err := h.sessions.Start(w, id); err != nil {
		h.internal(w, r, err)
		return
	}
	h.redirect(w, r, session.LevelSuccess, "Login successful.", "/dashboard")
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	h.redirect(w, r, session.LevelSuccess, "You have been logged out.", "/login")
}
