// Package jwtutil issues and verifies the bearer tokens handed to clients.
package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrSecretMissing = errors.New("jwt secret is not configured")
	ErrTokenExpired  = errors.New("token expired")
	ErrTokenInvalid  = errors.New("token invalid")
)

const DefaultTTL = time.Hour

type Claims struct {
	UserID uint `json:"userId"`
	jwt.RegisteredClaims
}

// Manager signs tokens with a server-held HMAC secret. A Manager built with an
// empty secret refuses to issue or accept any token.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) CanIssue() error {
	if len(m.secret) == 0 {
		return ErrSecretMissing
	}
	return nil
}

func (m *Manager) Issue(userID uint) (string, error) {
	if err := m.CanIssue(); err != nil {
		return "", err
	}
	if userID == 0 {
		return "", fmt.Errorf("issue token failed: empty user id")
	}

	now := m.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token failed: %w", err)
	}
	return token, nil
}

// Verify returns the user id bound to a token. Any failure other than expiry
// is reported as ErrTokenInvalid.
func (m *Manager) Verify(tokenString string) (uint, error) {
	if len(m.secret) == 0 {
		return 0, ErrTokenInvalid
	}
	if tokenString == "" {
		return 0, ErrTokenInvalid
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}
	if !token.Valid || claims.UserID == 0 {
		return 0, ErrTokenInvalid
	}
	return claims.UserID, nil
}
