package clinic_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medtrack/internal/auth"
	"medtrack/internal/clinic"
	"medtrack/internal/metrics"
	"medtrack/internal/model"
	"medtrack/internal/notify"
	"medtrack/internal/store"
)

// recordingNotifier remembers every notification and can be told to fail.
type recordingNotifier struct {
	mu     sync.Mutex
	emails []notify.Message
	events []notify.Event
	fail   bool
}

func (n *recordingNotifier) Email(_ context.Context, m notify.Message) notify.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return notify.Result{Channel: notify.ChannelEmail, Err: errors.New("smtp down")}
	}
	n.emails = append(n.emails, m)
	return notify.Result{Channel: notify.ChannelEmail}
}

func (n *recordingNotifier) Publish(_ context.Context, e notify.Event) notify.Result {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return notify.Result{Channel: notify.ChannelTopic, Err: errors.New("topic down")}
	}
	n.events = append(n.events, e)
	return notify.Result{Channel: notify.ChannelTopic}
}

type fixture struct {
	svc     *clinic.Service
	db      *store.Bolt
	notify  *recordingNotifier
	metrics *metrics.Metrics
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := store.OpenBolt(filepath.Join(t.TempDir(), "clinic.db"),
		store.Tables{Users: "UsersTable", Appointments: "AppointmentsTable"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log, _ := test.NewNullLogger()
	n := &recordingNotifier{}
	m := metrics.New()
	return &fixture{
		svc:     clinic.New(db, db, n, log).WithRecorder(m),
		db:      db,
		notify:  n,
		metrics: m,
	}
}

// counter sums every series of the named metric family.
func counter(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	mfs, err := m.Registry.Gather()
	require.NoError(t, err)
	var sum float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, s := range mf.GetMetric() {
			sum += s.GetCounter().GetValue()
		}
	}
	return sum
}

func registerInput(email, name, role string) clinic.RegisterInput {
	return clinic.RegisterInput{
		Name:            name,
		Email:           email,
		Password:        "password123",
		ConfirmPassword: "password123",
		Age:             "40",
		Gender:          "f",
		Role:            role,
		Specialization:  "cardiology",
	}
}

func (f *fixture) login(t *testing.T, email, role string) auth.Identity {
	t.Helper()
	id, err := f.svc.Login(context.Background(), email, "password123", role)
	require.NoError(t, err)
	return id
}

// seed registers one doctor and one patient and returns their identities.
func (f *fixture) seed(t *testing.T) (doc, pat auth.Identity) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Register(ctx, registerInput("doc@example.com", "Meredith Grey", "doctor"))
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, registerInput("pat@example.com", "Alice Smith", "patient"))
	require.NoError(t, err)
	return f.login(t, "doc@example.com", "doctor"), f.login(t, "pat@example.com", "patient")
}

func (f *fixture) book(t *testing.T, pat auth.Identity) *model.Appointment {
	t.Helper()
	a, err := f.svc.Book(context.Background(), pat, clinic.BookInput{
		DoctorEmail: "doc@example.com", Date: "2025-05-01", Time: "09:00", Symptoms: "headache",
	})
	require.NoError(t, err)
	return a
}

func TestRegister(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, registerInput(" New@Example.com ", "New User", "patient"))
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", u.Email)
	assert.Empty(t, u.Specialization)
	assert.NotEqual(t, "password123", u.PasswordHash)

	stored, err := f.db.GetUser(ctx, "new@example.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(stored.PasswordHash, "password123"))

	require.Len(t, f.notify.emails, 1)
	assert.Equal(t, "new@example.com", f.notify.emails[0].To)
	require.Len(t, f.notify.events, 1)
	assert.Equal(t, 1.0, counter(t, f.metrics, "medtrack_users_registrations_total"))
}

func TestRegisterDuplicateEmailKeepsOriginal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, registerInput("dup@example.com", "First", "patient"))
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, registerInput("DUP@example.com", "Second", "doctor"))
	assert.ErrorIs(t, err, clinic.ErrEmailTaken)

	u, err := f.db.GetUser(ctx, "dup@example.com")
	require.NoError(t, err)
	assert.Equal(t, "First", u.Name)
	assert.Equal(t, model.RolePatient, u.Role)
}

func TestRegisterValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	in := registerInput("a@example.com", "A", "patient")
	in.ConfirmPassword = "different1"
	_, err := f.svc.Register(ctx, in)
	assert.ErrorIs(t, err, clinic.ErrPasswordMismatch)

	_, err = f.svc.Register(ctx, registerInput("a@example.com", "A", "admin"))
	var ve *model.ValidationError
	assert.ErrorAs(t, err, &ve)

	in = registerInput("a@example.com", "A", "patient")
	in.Age = "old"
	_, err = f.svc.Register(ctx, in)
	assert.ErrorAs(t, err, &ve)

	_, err = f.db.GetUser(ctx, "a@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound, "nothing written on failure")
}

func TestRegisterAcceptsAnyMatchingPassword(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, pw := range []string{"x", "short"} {
		in := registerInput(pw+"@example.com", "Short", "patient")
		in.Password, in.ConfirmPassword = pw, pw
		_, err := f.svc.Register(ctx, in)
		require.NoError(t, err)

		id, err := f.svc.Login(ctx, pw+"@example.com", pw, "patient")
		require.NoError(t, err)
		assert.Equal(t, pw+"@example.com", id.Email)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := setup(t)
	f.seed(t)
	ctx := context.Background()

	_, errRole := f.svc.Login(ctx, "pat@example.com", "password123", "doctor")
	_, errPass := f.svc.Login(ctx, "pat@example.com", "wrong-password", "patient")
	_, errUser := f.svc.Login(ctx, "ghost@example.com", "password123", "patient")

	assert.ErrorIs(t, errRole, clinic.ErrInvalidCredentials)
	assert.ErrorIs(t, errPass, clinic.ErrInvalidCredentials)
	assert.ErrorIs(t, errUser, clinic.ErrInvalidCredentials)
	assert.Equal(t, errRole.Error(), errPass.Error())
	assert.Equal(t, errRole.Error(), errUser.Error())
}

func TestLoginIdentity(t *testing.T) {
	f := setup(t)
	doc, pat := f.seed(t)
	assert.Equal(t, auth.Identity{Email: "doc@example.com", Role: model.RoleDoctor, Name: "Meredith Grey"}, doc)
	assert.True(t, pat.IsPatient())
}

func TestBookTwiceYieldsTwoPendingAppointments(t *testing.T) {
	f := setup(t)
	_, pat := f.seed(t)

	a := f.book(t, pat)
	b := f.book(t, pat)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, model.StatusPending, a.Status)
	assert.Equal(t, model.StatusPending, b.Status)
	assert.Equal(t, "Meredith Grey", a.DoctorName)
	assert.Equal(t, "Alice Smith", a.PatientName)
	assert.Equal(t, 2.0, counter(t, f.metrics, "medtrack_appointments_booked_total"))

	// one event and two emails per booking, on top of the two registrations
	assert.Len(t, f.notify.events, 2+2)
	assert.Len(t, f.notify.emails, 2+4)
}

func TestBookRules(t *testing.T) {
	f := setup(t)
	doc, pat := f.seed(t)
	ctx := context.Background()

	_, err := f.svc.Book(ctx, doc, clinic.BookInput{DoctorEmail: "doc@example.com", Date: "2025-05-01", Time: "09:00"})
	assert.ErrorIs(t, err, clinic.ErrUnauthorized)

	_, err = f.svc.Book(ctx, pat, clinic.BookInput{DoctorEmail: "ghost@example.com", Date: "2025-05-01", Time: "09:00"})
	assert.ErrorIs(t, err, clinic.ErrDoctorNotFound)

	_, err = f.svc.Book(ctx, pat, clinic.BookInput{DoctorEmail: "pat@example.com", Date: "2025-05-01", Time: "09:00"})
	assert.ErrorIs(t, err, clinic.ErrDoctorNotFound, "a patient is not a doctor")

	_, err = f.svc.Book(ctx, pat, clinic.BookInput{DoctorEmail: "doc@example.com", Date: "tomorrow", Time: "09:00"})
	var ve *model.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestNotifierOutageDoesNotBlockWrites(t *testing.T) {
	f := setup(t)
	f.notify.fail = true
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registerInput("doc@example.com", "Meredith Grey", "doctor"))
	require.NoError(t, err)
	_, err = f.svc.Register(ctx, registerInput("pat@example.com", "Alice Smith", "patient"))
	require.NoError(t, err)
	pat := f.login(t, "pat@example.com", "patient")
	doc := f.login(t, "doc@example.com", "doctor")

	a := f.book(t, pat)
	stored, err := f.db.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)

	_, err = f.svc.Diagnose(ctx, doc, a.ID, model.Diagnosis{Diagnosis: "migraine"})
	require.NoError(t, err)
	stored, err = f.db.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)
}

func TestAppointmentAccess(t *testing.T) {
	f := setup(t)
	doc, pat := f.seed(t)
	ctx := context.Background()
	a := f.book(t, pat)

	_, err := f.svc.Register(ctx, registerInput("other@example.com", "Other Doc", "doctor"))
	require.NoError(t, err)
	otherDoc := f.login(t, "other@example.com", "doctor")
	_, err = f.svc.Register(ctx, registerInput("bob@example.com", "Bob", "patient"))
	require.NoError(t, err)
	otherPat := f.login(t, "bob@example.com", "patient")

	_, err = f.svc.Appointment(ctx, doc, a.ID)
	assert.NoError(t, err)
	_, err = f.svc.Appointment(ctx, pat, a.ID)
	assert.NoError(t, err)
	_, err = f.svc.Appointment(ctx, otherDoc, a.ID)
	assert.ErrorIs(t, err, clinic.ErrUnauthorized)
	_, err = f.svc.Appointment(ctx, otherPat, a.ID)
	assert.ErrorIs(t, err, clinic.ErrUnauthorized)
	_, err = f.svc.Appointment(ctx, doc, "no-such-id")
	assert.ErrorIs(t, err, clinic.ErrAppointmentNotFound)
}

func TestDiagnoseByNonOwnerLeavesRecordUnchanged(t *testing.T) {
	f := setup(t)
	_, pat := f.seed(t)
	ctx := context.Background()
	a := f.book(t, pat)

	_, err := f.svc.Register(ctx, registerInput("other@example.com", "Other Doc", "doctor"))
	require.NoError(t, err)
	otherDoc := f.login(t, "other@example.com", "doctor")

	_, err = f.svc.Diagnose(ctx, otherDoc, a.ID, model.Diagnosis{Diagnosis: "nothing"})
	assert.ErrorIs(t, err, clinic.ErrUnauthorized)
	_, err = f.svc.Diagnose(ctx, pat, a.ID, model.Diagnosis{Diagnosis: "self-diagnosed"})
	assert.ErrorIs(t, err, clinic.ErrUnauthorized)

	stored, err := f.db.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Empty(t, stored.Diagnosis)
	assert.True(t, stored.UpdatedAt.IsZero())
}

func TestDiagnoseCompletesAndResubmissionOverwrites(t *testing.T) {
	f := setup(t)
	doc, pat := f.seed(t)
	ctx := context.Background()
	a := f.book(t, pat)
	emailsBefore := len(f.notify.emails)

	done, err := f.svc.Diagnose(ctx, doc, a.ID, model.Diagnosis{Diagnosis: "  flu\n", TreatmentPlan: " rest ", Prescription: "tea"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	assert.Equal(t, "  flu\n", done.Diagnosis)
	stored, err := f.db.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "  flu\n", stored.Diagnosis, "stored as submitted")
	assert.Equal(t, " rest ", stored.TreatmentPlan)
	assert.False(t, done.UpdatedAt.IsZero())
	require.Len(t, f.notify.emails, emailsBefore+1)
	assert.Equal(t, "pat@example.com", f.notify.emails[emailsBefore].To)

	_, err = f.svc.Diagnose(ctx, doc, a.ID, model.Diagnosis{Diagnosis: "cold"})
	require.NoError(t, err)
	stored, err = f.db.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	assert.Equal(t, "cold", stored.Diagnosis)
	assert.Empty(t, stored.Prescription)
	assert.Equal(t, 2.0, counter(t, f.metrics, "medtrack_appointments_diagnoses_total"))

}

func TestDiagnoseAcceptsEmptyFields(t *testing.T) {
	f := setup(t)
	doc, pat := f.seed(t)
	ctx := context.Background()
	a := f.book(t, pat)

	done, err := f.svc.Diagnose(ctx, doc, a.ID, model.Diagnosis{TreatmentPlan: "rest"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)

	stored, err := f.db.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	assert.Empty(t, stored.Diagnosis)
	assert.Equal(t, "rest", stored.TreatmentPlan)

	_, err = f.svc.Diagnose(ctx, doc, a.ID, model.Diagnosis{Diagnosis: "   "})
	require.NoError(t, err)
	stored, err = f.db.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "   ", stored.Diagnosis)
}

func TestDashboardCounts(t *testing.T) {
	f := setup(t)
	doc, pat := f.seed(t)
	ctx := context.Background()

	a := f.book(t, pat)
	f.book(t, pat)
	f.book(t, pat)
	_, err := f.svc.Diagnose(ctx, doc, a.ID, model.Diagnosis{Diagnosis: "flu"})
	require.NoError(t, err)

	for _, id := range []auth.Identity{doc, pat} {
		d, err := f.svc.Dashboard(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 3, d.Total)
		assert.Equal(t, 2, d.Pending)
		assert.Equal(t, 1, d.Completed)
		assert.Equal(t, d.Total, d.Pending+d.Completed)
		assert.Len(t, d.Appointments, 3)
	}

	pd, err := f.svc.Dashboard(ctx, pat)
	require.NoError(t, err)
	require.Len(t, pd.Doctors, 1)
	dd, err := f.svc.Dashboard(ctx, doc)
	require.NoError(t, err)
	assert.Empty(t, dd.Doctors)
}

func TestSearch(t *testing.T) {
	f := setup(t)
	doc, pat := f.seed(t)
	ctx := context.Background()
	a := f.book(t, pat)
	f.book(t, pat)
	_, err := f.svc.Diagnose(ctx, doc, a.ID, model.Diagnosis{Diagnosis: "flu"})
	require.NoError(t, err)

	all, err := f.svc.Search(ctx, doc, "")
	require.NoError(t, err)
	assert.Len(t, all, 2, "empty term lists everything")

	// the term is matched verbatim, whitespace included
	res, err := f.svc.Search(ctx, doc, " ")
	require.NoError(t, err)
	assert.Len(t, res, 2, "\"Alice Smith\" contains a space")

	res, err = f.svc.Search(ctx, doc, "  ")
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = f.svc.Search(ctx, doc, " Alice")
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = f.svc.Search(ctx, doc, "Alice")
	require.NoError(t, err)
	assert.Len(t, res, 2)

	res, err = f.svc.Search(ctx, doc, "Zebra")
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = f.svc.Search(ctx, pat, "completed")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, a.ID, res[0].ID)

	res, err = f.svc.Search(ctx, pat, "Grey")
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestUpdateProfile(t *testing.T) {
	f := setup(t)
	doc, pat := f.seed(t)
	ctx := context.Background()

	id, err := f.svc.UpdateProfile(ctx, doc, model.ProfileUpdate{Name: "Dr Grey", Age: 45, Specialization: "neurology"})
	require.NoError(t, err)
	assert.Equal(t, "Dr Grey", id.Name)
	u, err := f.svc.Profile(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, "neurology", u.Specialization)
	assert.Equal(t, 45, u.Age)

	_, err = f.svc.UpdateProfile(ctx, pat, model.ProfileUpdate{Name: "Alice", Specialization: "hacker"})
	require.NoError(t, err)
	u, err = f.svc.Profile(ctx, pat)
	require.NoError(t, err)
	assert.Empty(t, u.Specialization)

	_, err = f.svc.UpdateProfile(ctx, pat, model.ProfileUpdate{Name: " "})
	var ve *model.ValidationError
	assert.ErrorAs(t, err, &ve)
}
