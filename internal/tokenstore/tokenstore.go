// Package tokenstore persists the single active session token of a client.
package tokenstore

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Key is the fixed name the token is stored under.
const Key = "auth_token"

// ErrNoToken is returned by Load when no usable token is stored.
var ErrNoToken = errors.New("no valid token (login required)")

// Store holds at most one token. Save replaces the previous token.
type Store interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Expiry returns the exp claim of a JWT without verifying it. Opaque tokens and
// tokens without exp yield the zero time (no known expiry).
func Expiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func expired(exp, now time.Time) bool {
	return !exp.IsZero() && !now.Before(exp)
}

// MemStore is an in-process Store.
type MemStore struct {
	mu    sync.Mutex
	token string
	now   func() time.Time
}

// NewMem returns an empty MemStore.
func NewMem() *MemStore { return &MemStore{now: time.Now} }

func (m *MemStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || expired(Expiry(m.token), m.now()) {
		m.token = ""
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *MemStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("tokenstore: empty token")
	}
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Clear() error {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
	return nil
}
