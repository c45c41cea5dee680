package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrack/internal/auth"
	"medtrack/internal/model"
	"medtrack/internal/session"
)

// carry copies the cookies set on rec into a fresh request.
func carry(rec *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestStartAndIdentity(t *testing.T) {
	sm := session.NewManager("secret", time.Hour, false)
	id := auth.Identity{Email: "pat@example.com", Role: model.RolePatient, Name: "Pat"}

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Start(rec, id))

	c := rec.Result().Cookies()
	require.Len(t, c, 1)
	assert.Equal(t, session.CookieName, c[0].Name)
	assert.True(t, c[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c[0].SameSite)

	got, ok := sm.Identity(carry(rec))
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestIdentityRejectsForeignCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, session.NewManager("one", time.Hour, false).Start(rec, auth.Identity{Email: "a@b.c", Role: model.RoleDoctor}))

	_, ok := session.NewManager("two", time.Hour, false).Identity(carry(rec))
	assert.False(t, ok)

	_, ok = session.NewManager("one", time.Hour, false).Identity(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	sm := session.NewManager("secret", time.Hour, true)
	rec := httptest.NewRecorder()
	sm.Clear(rec)
	c := rec.Result().Cookies()
	require.Len(t, c, 1)
	assert.Equal(t, -1, c[0].MaxAge)
	assert.True(t, c[0].Secure)
}

func TestFlashIsOneShot(t *testing.T) {
	sm := session.NewManager("secret", time.Hour, false)
	rec := httptest.NewRecorder()
	sm.SetFlash(rec, session.Flash{Level: session.LevelDanger, Message: "Passwords do not match!"})

	rec2 := httptest.NewRecorder()
	f := sm.PopFlash(rec2, carry(rec))
	require.NotNil(t, f)
	assert.Equal(t, session.LevelDanger, f.Level)
	assert.Equal(t, "Passwords do not match!", f.Message)

	cleared := rec2.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, session.FlashName, cleared[0].Name)
	assert.Equal(t, -1, cleared[0].MaxAge)

	assert.Nil(t, sm.PopFlash(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)))
}
