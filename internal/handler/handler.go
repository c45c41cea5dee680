package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"medtrack/internal/auth"
	"medtrack/internal/clinic"
	"medtrack/internal/metrics"
	"medtrack/internal/middleware"
	"medtrack/internal/model"
	"medtrack/internal/session"
	"medtrack/internal/view"
)

type Handler struct {
	svc      *clinic.Service
	sessions *session.Manager
	views    *view.Renderer
	limiter  *middleware.RateLimiter
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

func New(svc *clinic.Service, sm *session.Manager, views *view.Renderer, limiter *middleware.RateLimiter, m *metrics.Metrics, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, sessions: sm, views: views, limiter: limiter, metrics: m, log: log}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Observe(h.log, h.metrics))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", h.healthz)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Get("/", h.index)
	r.Get("/logout", h.logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AnonOnly(h.sessions))
		r.Use(h.limiter.Limit(h.log))
		r.Get("/register", h.registerForm)
		r.Post("/register", h.register)
		r.Get("/login", h.loginForm)
		r.Post("/login", h.login)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.sessions))
		r.Get("/dashboard", h.dashboard)
		r.Get("/view_appointment/{id}", h.viewAppointment)
		r.Post("/view_appointment/{id}", h.diagnose)
		r.Get("/search_appointments", h.search)
		r.Post("/search_appointments", h.search)
		r.Get("/profile", h.profile)
		r.Post("/profile", h.updateProfile)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(h.sessions, model.RolePatient))
			r.Get("/book_appointment", h.bookForm)
			r.Post("/book_appointment", h.book)
		})
	})
	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// render always consumes the pending flash; an explicit flash wins over it.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, flash *session.Flash, data any) {
	if pending := h.sessions.PopFlash(w, r); flash == nil {
		flash = pending
	}
	p := view.Page{Flash: flash, Data: data}
	if id, ok := middleware.IdentityFrom(r.Context()); ok {
		p.Identity = &id
	} else if id, ok := h.sessions.Identity(r); ok {
		p.Identity = &id
	}
	if err := h.views.Render(w, status, page, p); err != nil {
		h.internal(w, r, err)
	}
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, level, msg, to string) {
	h.sessions.SetFlash(w, session.Flash{Level: level, Message: msg})
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func danger(msg string) *session.Flash {
	return &session.Flash{Level: session.LevelDanger, Message: msg}
}

// redirectOnDenied handles the errors that always end on the dashboard.
func (h *Handler) redirectOnDenied(w http.ResponseWriter, r *http.Request, err error) bool {
	switch {
	case errors.Is(err, clinic.ErrUnauthorized):
		h.redirect(w, r, session.LevelDanger, "Unauthorized.", "/dashboard")
	case errors.Is(err, clinic.ErrAppointmentNotFound):
		h.redirect(w, r, session.LevelDanger, "Appointment not found.", "/dashboard")
	default:
		return false
	}
	return true
}

// userMessage returns the flash text for errors the caller can fix.
func userMessage(err error) (string, bool) {
	var ve *model.ValidationError
	switch {
	case errors.Is(err, clinic.ErrPasswordMismatch):
		return "Passwords do not match!", true
	case errors.Is(err, clinic.ErrEmailTaken):
		return "Email already registered!", true
	case errors.Is(err, clinic.ErrInvalidCredentials):
		return "Invalid credentials.", true
	case errors.Is(err, clinic.ErrDoctorNotFound):
		return "Doctor not found.", true
	case errors.As(err, &ve):
		return ve.Msg, true
	}
	return "", false
}

func (h *Handler) internal(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithError(err).WithFields(logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": chimw.GetReqID(r.Context()),
	}).Error("request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// caller is only valid behind RequireAuth.
func caller(r *http.Request) auth.Identity {
	id, _ := middleware.IdentityFrom(r.Context())
	return id
}
