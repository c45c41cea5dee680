package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"medtrack/internal/model"
)

// Postgres stores both tables in Postgres through database/sql.
type Postgres struct {
	db    *sql.DB
	users string
	appts string
}

func OpenPostgres(ctx context.Context, dsn string, tables Tables) (*Postgres, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		d := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
		return d.DialContext(ctx, network, addr)
	}
	db := stdlib.OpenDB(*cfg)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return NewPostgres(db, tables), nil
}

// NewPostgres wraps an open handle. Table names are quoted as identifiers.
func NewPostgres(db *sql.DB, tables Tables) *Postgres {
	return &Postgres{
		db:    db,
		users: pgx.Identifier{tables.Users}.Sanitize(),
		appts: pgx.Identifier{tables.Appointments}.Sanitize(),
	}
}

func (s *Postgres) Close() error { return s.db.Close() }

// Migrate creates both tables when missing.
func (s *Postgres) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + s.users + ` (
			email          TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			password_hash  TEXT NOT NULL,
			age            INTEGER NOT NULL DEFAULT 0,
			gender         TEXT NOT NULL DEFAULT '',
			role           TEXT NOT NULL,
			specialization TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + s.appts + ` (
			appointment_id TEXT PRIMARY KEY,
			doctor_email   TEXT NOT NULL,
			doctor_name    TEXT NOT NULL,
			patient_email  TEXT NOT NULL,
			patient_name   TEXT NOT NULL,
			date           TEXT NOT NULL,
			time           TEXT NOT NULL,
			symptoms       TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL,
			diagnosis      TEXT NOT NULL DEFAULT '',
			treatment_plan TEXT NOT NULL DEFAULT '',
			prescription   TEXT NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

const userCols = `email, name, password_hash, age, gender, role, specialization, created_at`

func (s *Postgres) GetUser(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM `+s.users+` WHERE email = $1`, email,
	).Scan(&u.Email, &u.Name, &u.PasswordHash, &u.Age, &u.Gender, &u.Role, &u.Specialization, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// PutUser writes the whole record, replacing any existing one.
func (s *Postgres) PutUser(ctx context.Context, u *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.users+` (`+userCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (email) DO UPDATE SET
		   name = EXCLUDED.name, password_hash = EXCLUDED.password_hash, age = EXCLUDED.age,
		   gender = EXCLUDED.gender, role = EXCLUDED.role, specialization = EXCLUDED.specialization,
		   created_at = EXCLUDED.created_at`,
		u.Email, u.Name, u.PasswordHash, u.Age, u.Gender, string(u.Role), u.Specialization, u.CreatedAt,
	)
	return err
}

func (s *Postgres) UpdateProfile(ctx context.Context, email string, p model.ProfileUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+s.users+`
		 SET name = $1, age = $2, gender = $3,
		     specialization = CASE WHEN role = 'doctor' THEN $4 ELSE specialization END
		 WHERE email = $5`,
		p.Name, p.Age, p.Gender, p.Specialization, email,
	)
	return affected(res, err)
}

func (s *Postgres) ListDoctors(ctx context.Context) ([]model.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM `+s.users+` WHERE role = $1`, string(model.RoleDoctor))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.Email, &u.Name, &u.PasswordHash, &u.Age, &u.Gender, &u.Role, &u.Specialization, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

const apptCols = `appointment_id, doctor_email, doctor_name, patient_email, patient_name,
	date, time, symptoms, status, diagnosis, treatment_plan, prescription, created_at, updated_at`

func (s *Postgres) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.appts+` (`+apptCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		a.ID, a.DoctorEmail, a.DoctorName, a.PatientEmail, a.PatientName,
		a.Date, a.Time, a.Symptoms, string(a.Status), a.Diagnosis, a.TreatmentPlan, a.Prescription,
		a.CreatedAt, nullTime(a.UpdatedAt),
	)
	return err
}

func (s *Postgres) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+apptCols+` FROM `+s.appts+` WHERE appointment_id = $1`, id)
	if err != nil {
		return nil, err
	}
	out, err := scanAppointments(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (s *Postgres) CompleteAppointment(ctx context.Context, id string, d model.Diagnosis, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+s.appts+`
		 SET diagnosis = $1, treatment_plan = $2, prescription = $3, status = $4, updated_at = $5
		 WHERE appointment_id = $6`,
		d.Diagnosis, d.TreatmentPlan, d.Prescription, string(model.StatusCompleted), at, id,
	)
	return affected(res, err)
}

func (s *Postgres) FindByDoctor(ctx context.Context, email string) ([]model.Appointment, error) {
	return s.query(ctx, `doctor_email = $1`, email)
}

func (s *Postgres) FindByPatient(ctx context.Context, email string) ([]model.Appointment, error) {
	return s.query(ctx, `patient_email = $1`, email)
}

// strpos keeps the case-sensitive contains() semantics of the bolt scans.
func (s *Postgres) SearchByPatientName(ctx context.Context, doctorEmail, term string) ([]model.Appointment, error) {
	if term == "" {
		return s.FindByDoctor(ctx, doctorEmail)
	}
	return s.query(ctx, `doctor_email = $1 AND strpos(patient_name, $2) > 0`, doctorEmail, term)
}

func (s *Postgres) SearchByDoctorOrStatus(ctx context.Context, patientEmail, term string) ([]model.Appointment, error) {
	if term == "" {
		return s.FindByPatient(ctx, patientEmail)
	}
	return s.query(ctx,
		`patient_email = $1 AND (strpos(doctor_name, $2) > 0 OR strpos(status, $2) > 0)`,
		patientEmail, term)
}

func (s *Postgres) query(ctx context.Context, where string, args ...any) ([]model.Appointment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+apptCols+` FROM `+s.appts+` WHERE `+where+` ORDER BY created_at DESC, appointment_id`,
		args...)
	if err != nil {
		return nil, err
	}
	return scanAppointments(rows)
}

func scanAppointments(rows *sql.Rows) ([]model.Appointment, error) {
	defer rows.Close()
	var out []model.Appointment
	for rows.Next() {
		var (
			a       model.Appointment
			updated sql.NullTime
		)
		if err := rows.Scan(
			&a.ID, &a.DoctorEmail, &a.DoctorName, &a.PatientEmail, &a.PatientName,
			&a.Date, &a.Time, &a.Symptoms, &a.Status, &a.Diagnosis, &a.TreatmentPlan, &a.Prescription,
			&a.CreatedAt, &updated,
		); err != nil {
			return nil, err
		}
		if updated.Valid {
			a.UpdatedAt = updated.Time
		}
		if err := a.Validate(); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
