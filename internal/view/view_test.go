package view_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrack/internal/auth"
	"medtrack/internal/model"
	"medtrack/internal/session"
	"medtrack/internal/view"
)

func TestRenderEscapesAndShowsFlash(t *testing.T) {
	r, err := view.New()
	require.NoError(t, err)

	a := &model.Appointment{
		ID: "a-1", DoctorName: "Grey", PatientName: "<script>x</script>",
		Status: model.StatusPending, Date: "2025-01-01", Time: "10:00",
	}
	rec := httptest.NewRecorder()
	err = r.Render(rec, http.StatusOK, view.ViewAppointmentDoctor, view.Page{
		Identity: &auth.Identity{Email: "doc@example.com", Role: model.RoleDoctor, Name: "Grey"},
		Flash:    &session.Flash{Level: session.LevelSuccess, Message: "Saved."},
		Data:     a,
	})
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "flash-success")
	assert.Contains(t, body, "Saved.")
	assert.NotContains(t, body, "<script>x</script>")
	assert.Contains(t, body, `action="/view_appointment/a-1"`)
}

func TestRenderAnonymousLanding(t *testing.T) {
	r, err := view.New()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusOK, view.Index, view.Page{}))
	assert.Contains(t, rec.Body.String(), `href="/register"`)
	assert.NotContains(t, rec.Body.String(), "Log out")
}

func TestRenderUnknownPage(t *testing.T) {
	r, err := view.New()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	assert.Error(t, r.Render(rec, http.StatusOK, "nope.html", view.Page{}))
	assert.Equal(t, 0, rec.Body.Len())
}
