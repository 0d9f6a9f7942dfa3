// Package auth issues and validates session tokens. Identity is treated
// as an opaque credential validated server-side on every request; the
// token payload is never trusted as decoded client-side state.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/neurocanteen/canteen-go/internal/domain"
)

// AnonymousSubject is the sentinel subject older guest tokens carried.
// New guest tokens get a per-session subject so carts and submission
// guards never bleed across guests; Parse still honors the sentinel.
const AnonymousSubject = "Public"

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller, passed explicitly through the
// request context rather than held in ambient state.
type Identity struct {
	Subject string
	Role    string
	Guest   bool
}

// Anonymous reports whether the identity belongs to a guest session.
func (id Identity) Anonymous() bool {
	return id.Guest || id.Subject == AnonymousSubject
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret []byte, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: secret, ttl: ttl}
}

type sessionClaims struct {
	Role  string `json:"role"`
	Guest bool   `json:"guest,omitempty"`
	jwt.RegisteredClaims
}

// Issue signs a session token for the subject.
func (m *TokenManager) Issue(subject, role string) (string, error) {
	return m.issue(subject, role, false)
}

func (m *TokenManager) issue(subject, role string, guest bool) (string, error) {
	now := time.Now().UTC()
	claims := sessionClaims{
		Role:  role,
		Guest: guest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// IssueGuest signs an anonymous patient-role session token. Each guest
// session gets its own subject, so two guests never share a cart key.
func (m *TokenManager) IssueGuest() (string, error) {
	return m.issue("guest-"+uuid.New().String(), domain.RolePatient, true)
}

// Parse validates the token signature and expiry and returns the caller
// identity.
func (m *TokenManager) Parse(tokenString string) (Identity, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		Subject: claims.Subject,
		Role:    claims.Role,
		Guest:   claims.Guest || claims.Subject == AnonymousSubject,
	}, nil
}
