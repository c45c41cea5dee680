package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"medtrack/internal/model"
)

// Bolt keeps each table in its own bucket with JSON documents as values.
type Bolt struct {
	db     *bolt.DB
	tables Tables
}

func OpenBolt(path string, tables Tables) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	s := &Bolt{db: db, tables: tables}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{tables.Users, tables.Appointments} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return s, nil
}

// Close the database and release the file lock.
func (s *Bolt) Close() error { return s.db.Close() }

func (s *Bolt) get(ctx context.Context, table, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(table)).Get([]byte(key))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, v)
	})
}

func (s *Bolt) put(ctx context.Context, table, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(table)).Put([]byte(key), raw)
	})
}

// update is a read-modify-write of one document inside a single write tx.
func update[T any](ctx context.Context, s *Bolt, table, key string, fn func(*T)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(table))
		raw := b.Get([]byte(key))
		if raw == nil {
			return ErrNotFound
		}
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		fn(&doc)
		out, err := json.Marshal(&doc)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), out)
	})
}

func (s *Bolt) GetUser(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	if err := s.get(ctx, s.tables.Users, email, u); err != nil {
		return nil, err
	}
	return u, nil
}

// PutUser writes the whole record, replacing any existing one.
func (s *Bolt) PutUser(ctx context.Context, u *model.User) error {
	return s.put(ctx, s.tables.Users, u.Email, u)
}

func (s *Bolt) UpdateProfile(ctx context.Context, email string, p model.ProfileUpdate) error {
	return update(ctx, s, s.tables.Users, email, func(u *model.User) {
		u.Name = p.Name
		u.Age = p.Age
		u.Gender = p.Gender
		if u.Role == model.RoleDoctor {
			u.Specialization = p.Specialization
		}
	})
}

func (s *Bolt) ListDoctors(ctx context.Context) ([]model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []model.User
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(s.tables.Users)).ForEach(func(k, v []byte) error {
			var u model.User
			if err := json.Unmarshal(v, &u); err != nil {
				return fmt.Errorf("decode user %s: %w", k, err)
			}
			if u.Role == model.RoleDoctor {
				out = append(out, u)
			}
			return nil
		})
	})
	return out, err
}

func (s *Bolt) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	return s.put(ctx, s.tables.Appointments, a.ID, a)
}

func (s *Bolt) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	a := &model.Appointment{}
	if err := s.get(ctx, s.tables.Appointments, id, a); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Bolt) CompleteAppointment(ctx context.Context, id string, d model.Diagnosis, at time.Time) error {
	return update(ctx, s, s.tables.Appointments, id, func(a *model.Appointment) {
		a.Diagnosis = d.Diagnosis
		a.TreatmentPlan = d.TreatmentPlan
		a.Prescription = d.Prescription
		a.Status = model.StatusCompleted
		a.UpdatedAt = at
	})
}

func (s *Bolt) FindByDoctor(ctx context.Context, email string) ([]model.Appointment, error) {
	return s.scan(ctx, byDoctor(email))
}

func (s *Bolt) FindByPatient(ctx context.Context, email string) ([]model.Appointment, error) {
	return s.scan(ctx, byPatient(email))
}

func (s *Bolt) SearchByPatientName(ctx context.Context, doctorEmail, term string) ([]model.Appointment, error) {
	if term == "" {
		return s.FindByDoctor(ctx, doctorEmail)
	}
	return s.scan(ctx, doctorSearch(doctorEmail, term))
}

func (s *Bolt) SearchByDoctorOrStatus(ctx context.Context, patientEmail, term string) ([]model.Appointment, error) {
	if term == "" {
		return s.FindByPatient(ctx, patientEmail)
	}
	return s.scan(ctx, patientSearch(patientEmail, term))
}

func (s *Bolt) scan(ctx context.Context, keep apptFilter) ([]model.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []model.Appointment
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(s.tables.Appointments)).ForEach(func(k, v []byte) error {
			var a model.Appointment
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("decode appointment %s: %w", k, err)
			}
			if err := a.Validate(); err != nil {
				return err
			}
			if keep(&a) {
				out = append(out, a)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	newestFirst(out)
	return out, nil
}
