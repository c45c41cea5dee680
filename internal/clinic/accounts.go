package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"medtrack/internal/auth"
	"medtrack/internal/model"
	"medtrack/internal/notify"
	"medtrack/internal/store"
)

type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Age             string
	Gender          string
	Role            string
	Specialization  string
}

// Register creates an account. The email check and the write are separate
// store calls, so two concurrent registrations can both pass the check.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	role, err := model.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	age, err := model.ParseAge(in.Age)
	if err != nil {
		return nil, err
	}
	// validate before paying for bcrypt
	if _, err := model.NewUser(in.Email, in.Name, "-", age, in.Gender, role, in.Specialization); err != nil {
		return nil, err
	}

	email := model.NormalizeEmail(in.Email)
	switch _, err := s.users.GetUser(ctx, email); {
	case err == nil:
		return nil, ErrEmailTaken
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u, err := model.NewUser(email, in.Name, hash, age, in.Gender, role, in.Specialization)
	if err != nil {
		return nil, err
	}
	if err := s.users.PutUser(ctx, u); err != nil {
		return nil, fmt.Errorf("put user: %w", err)
	}
	s.rec.Registered(string(u.Role))
	s.log.WithFields(logrus.Fields{"email": u.Email, "role": u.Role}).Info("user registered")

	_ = s.notify.Email(ctx, notify.Welcome(u))
	_ = s.notify.Publish(ctx, notify.Registered(u))
	return u, nil
}

// Login checks email, password and claimed role together. Any mismatch,
// including an unknown email, yields ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password, role string) (auth.Identity, error) {
	u, err := s.users.GetUser(ctx, model.NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return auth.Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return auth.Identity{}, fmt.Errorf("lookup user: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) || string(u.Role) != strings.TrimSpace(role) {
		return auth.Identity{}, ErrInvalidCredentials
	}
	return auth.Identity{Email: u.Email, Role: u.Role, Name: u.Name}, nil
}

func (s *Service) Profile(ctx context.Context, caller auth.Identity) (*model.User, error) {
	u, err := s.users.GetUser(ctx, caller.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return u, nil
}

// UpdateProfile applies p to the caller's record and returns the identity
// carrying the new display name.
func (s *Service) UpdateProfile(ctx context.Context, caller auth.Identity, p model.ProfileUpdate) (auth.Identity, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Gender = strings.TrimSpace(p.Gender)
	p.Specialization = strings.TrimSpace(p.Specialization)
	if err := p.Validate(); err != nil {
		return caller, err
	}
	if !caller.IsDoctor() {
		p.Specialization = ""
	}
	err := s.users.UpdateProfile(ctx, caller.Email, p)
	if errors.Is(err, store.ErrNotFound) {
		return caller, ErrUnauthorized
	}
	if err != nil {
		return caller, fmt.Errorf("update profile: %w", err)
	}
	caller.Name = p.Name
	return caller, nil
}
