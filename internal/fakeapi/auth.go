package fakeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/and161185/sublease/internal/model"
)

type claims struct {
	ID int64 `json:"id"`
	jwt.RegisteredClaims
}

type ctxKey string

const userIDKey ctxKey = "fakeapi.userID"

// AddUser creates an account directly and returns its profile.
func (s *Server) AddUser(username, email, password string, verified bool) model.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &account{
		User:     model.User{ID: s.id(), Username: username, Email: email},
		pwdHash:  hash,
		verified: verified,
	}
	a.code = fmt.Sprintf("%06d", 100000+a.ID)
	s.users[a.ID] = a
	return a.User
}

// Code returns the pending verification code of email ("" if unknown).
func (s *Server) Code(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.users {
		if a.Email == email {
			return a.code
		}
	}
	return ""
}

// IsVerified reports whether username has confirmed its email.
func (s *Server) IsVerified(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.byUsername(username)
	return a != nil && a.verified
}

// IssueToken signs a token for userID valid for ttl (negative ttl yields an expired token).
func (s *Server) IssueToken(userID int64, ttl time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issue(userID, ttl)
}

func (s *Server) issue(userID int64, ttl time.Duration) string {
	now := time.Now()
	a := s.users[userID]
	sub := ""
	if a != nil {
		sub = a.Username
	}
	c := claims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.signKey)
	if err != nil {
		panic(err)
	}
	return signed
}

// byUsername finds an account; callers hold s.mu.
func (s *Server) byUsername(name string) *account {
	for _, a := range s.users {
		if a.Username == name {
			return a
		}
	}
	return nil
}

// authed rejects requests without a valid bearer token.
func (s *Server) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := s.userIDFromRequest(r)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate user")
			return
		}
		h(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	}
}

func (s *Server) userIDFromRequest(r *http.Request) (int64, error) {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < 7 || !strings.EqualFold(v[:7], "bearer ") {
		return 0, errors.New("no bearer token")
	}
	var c claims
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(v[7:]), &c, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.signKey, nil
	})
	if err != nil || !parsed.Valid {
		return 0, errors.New("invalid token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[c.ID]; !ok {
		return 0, errors.New("user not found")
	}
	return c.ID, nil
}

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "bad form")
		return
	}
	name, pwd := r.PostForm.Get("username"), r.PostForm.Get("password")

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.byUsername(name)
	if a == nil || bcrypt.CompareHashAndPassword(a.pwdHash, []byte(pwd)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate user")
		return
	}
	if !a.verified {
		writeDetail(w, http.StatusForbidden, "Account not verified. Please check your email.")
		return
	}
	writeJSON(w, http.StatusOK, model.TokenResponse{AccessToken: s.issue(a.ID, s.tokenTTL), TokenType: "bearer"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" || req.Email == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "field required")
		return
	}
	s.mu.Lock()
	for _, a := range s.users {
		if a.Username == req.Username || a.Email == req.Email {
			s.mu.Unlock()
			writeDetail(w, http.StatusBadRequest, "Username or email already registered")
			return
		}
	}
	s.mu.Unlock()
	s.AddUser(req.Username, req.Email, req.Password, false)
	writeJSON(w, http.StatusCreated, nil)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "bad body")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.users {
		if a.Email == req.Email || a.Username == req.Email {
			if a.code != req.Code {
				writeDetail(w, http.StatusBadRequest, "Invalid verification code")
				return
			}
			a.verified = true
			writeJSON(w, http.StatusOK, map[string]string{"detail": "Email verified"})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "User not found")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.users[userID(r)].User)
}
