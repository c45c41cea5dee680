package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"medtrack/internal/model"
)

var ErrBadToken = errors.New("invalid token")

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Identity is the caller a session belongs to.
type Identity struct {
	Email string
	Role  model.Role
	Name  string
}

func (id Identity) IsDoctor() bool  { return id.Role == model.RoleDoctor }
func (id Identity) IsPatient() bool { return id.Role == model.RolePatient }

type Claims struct {
	Role model.Role `json:"role"`
	Name string     `json:"name"`
	jwt.RegisteredClaims
}

// MakeToken signs the identity into a session token valid for ttl.
func MakeToken(id Identity, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	c := Claims{
		Role: id.Role,
		Name: id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

func ParseToken(raw, secret string) (Identity, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		return Identity{}, err
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || c.Subject == "" {
		return Identity{}, ErrBadToken
	}
	if _, err := model.ParseRole(string(c.Role)); err != nil {
		return Identity{}, ErrBadToken
	}
	return Identity{Email: c.Subject, Role: c.Role, Name: c.Name}, nil
}
