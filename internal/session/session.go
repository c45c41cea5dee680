// Package session keeps the caller identity in a signed cookie and carries
// one-shot flash messages between a redirect and the next page.
package session

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"medtrack/internal/auth"
)

const (
	CookieName = "medtrack_session"
	FlashName  = "medtrack_flash"
)

type Manager struct {
	secret string
	ttl    time.Duration
	secure bool
}

func NewManager(secret string, ttl time.Duration, secure bool) *Manager {
	return &Manager{secret: secret, ttl: ttl, secure: secure}
}

func (m *Manager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   m.secure,
		MaxAge:   maxAge,
	}
}

// Start issues a session cookie for id, replacing any previous one.
func (m *Manager) Start(w http.ResponseWriter, id auth.Identity) error {
	tok, err := auth.MakeToken(id, m.secret, m.ttl)
	if err != nil {
		return err
	}
	http.SetCookie(w, m.cookie(CookieName, tok, int(m.ttl.Seconds())))
	return nil
}

func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie(CookieName, "", -1))
}

// Identity reads the caller from the request. ok is false for anonymous
// callers and for cookies that fail verification.
func (m *Manager) Identity(r *http.Request) (auth.Identity, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return auth.Identity{}, false
	}
	id, err := auth.ParseToken(c.Value, m.secret)
	if err != nil {
		return auth.Identity{}, false
	}
	return id, true
}

const (
	LevelSuccess = "success"
	LevelDanger  = "danger"
)

type Flash struct {
	Level   string
	Message string
}

// SetFlash stores f for the next rendered page.
func (m *Manager) SetFlash(w http.ResponseWriter, f Flash) {
	v := url.QueryEscape(f.Level) + "|" + url.QueryEscape(f.Message)
	http.SetCookie(w, m.cookie(FlashName, v, 60))
}

// PopFlash returns the pending flash, if any, and clears it.
func (m *Manager) PopFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(FlashName)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, m.cookie(FlashName, "", -1))
	level, msg, ok := strings.Cut(c.Value, "|")
	if !ok {
		return nil
	}
	level, _ = url.QueryUnescape(level)
	msg, _ = url.QueryUnescape(msg)
	return &Flash{Level: level, Message: msg}
}
