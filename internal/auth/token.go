// Package auth issues and verifies bearer tokens and carries the caller's principal.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/fjod/azura/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Principal is the caller as established by the bearer token. The zero value is anonymous.
type Principal struct {
	ID    string
	Email string
	Role  domain.Role
}

func (p Principal) Authenticated() bool {
	return p.ID != ""
}

func (p Principal) IsAdmin() bool {
	return p.Authenticated() && p.Role == domain.RoleAdmin
}

type claims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs an HS256 token carrying {id, email, role}.
func (t *Tokens) Issue(u *domain.User) (string, error) {
	now := t.now()
	c := claims{
		ID:    u.ID,
		Email: u.Email,
		Role:  string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) Parse(token string) (Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	if c.ID == "" {
		return Principal{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, errors.New("token has no subject"))
	}
	return Principal{ID: c.ID, Email: c.Email, Role: domain.Role(c.Role)}, nil
}
