// Package fakeapi is an in-memory stand-in for the marketplace REST API used by tests.
//
// It mirrors the remote contract closely enough to exercise the clients end to end:
// HS256 bearer tokens carrying {sub, id, exp}, FastAPI-style {"detail": ...} errors,
// and the verification gate on /auth/token.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/and161185/sublease/internal/model"
)

type account struct {
	model.User
	pwdHash  []byte
	verified bool
	code     string
}

// Server is an http.Handler serving the fake API. Safe for concurrent use.
type Server struct {
	router *mux.Router

	mu        sync.Mutex
	signKey   []byte
	tokenTTL  time.Duration
	clock     time.Time
	nextID    int64
	users     map[int64]*account
	listings  map[int64]*model.Listing
	likes     map[int64]map[int64]bool // user -> listing
	messages  []model.Message
	hits      map[string]int
	failNext  map[string]int
	delays    map[string]time.Duration
	serverSet bool // server-side filtering available
}

// New returns an empty fake API.
func New() *Server {
	s := &Server{
		signKey:   []byte("fakeapi-secret"),
		tokenTTL:  20 * time.Minute,
		clock:     time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		users:     map[int64]*account{},
		listings:  map[int64]*model.Listing{},
		likes:     map[int64]map[int64]bool{},
		hits:      map[string]int{},
		failNext:  map[string]int{},
		delays:    map[string]time.Duration{},
		serverSet: true,
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) routes() {
	r := mux.NewRouter()

	r.HandleFunc("/auth/token", s.wrap("token", s.handleToken)).Methods(http.MethodPost)
	r.HandleFunc("/auth/", s.wrap("signup", s.handleSignup)).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify", s.wrap("verify", s.handleVerify)).Methods(http.MethodPost)
	r.HandleFunc("/auth/me", s.wrap("me", s.authed(s.handleMe))).Methods(http.MethodGet)

	l := r.PathPrefix("/listings").Subrouter()
	l.HandleFunc("/", s.wrap("list", s.handleList)).Methods(http.MethodGet)
	l.HandleFunc("/", s.wrap("create", s.authed(s.handleCreate))).Methods(http.MethodPost)
	l.HandleFunc("/liked", s.wrap("liked", s.authed(s.handleLiked))).Methods(http.MethodGet)
	l.HandleFunc("/my/listings", s.wrap("mine", s.authed(s.handleMine))).Methods(http.MethodGet)
	l.HandleFunc("/messages", s.wrap("send", s.authed(s.handleSend))).Methods(http.MethodPost)
	l.HandleFunc("/messages/conversations", s.wrap("conversations", s.authed(s.handleConversations))).Methods(http.MethodGet)
	l.HandleFunc("/messages/{other:[0-9]+}/{listing:[0-9]+}", s.wrap("messages", s.authed(s.handleThread))).Methods(http.MethodGet)
	l.HandleFunc("/messages/{other:[0-9]+}/{listing:[0-9]+}/read", s.wrap("read", s.authed(s.handleRead))).Methods(http.MethodPost)
	l.HandleFunc("/{id:[0-9]+}", s.wrap("get", s.authed(s.handleGet))).Methods(http.MethodGet)
	l.HandleFunc("/{id:[0-9]+}", s.wrap("update", s.authed(s.handleUpdate))).Methods(http.MethodPut)
	l.HandleFunc("/{id:[0-9]+}", s.wrap("delete", s.authed(s.handleDelete))).Methods(http.MethodDelete)
	l.HandleFunc("/{id:[0-9]+}/interested", s.wrap("interested", s.authed(s.handleInterested))).Methods(http.MethodPost)
	l.HandleFunc("/{id:[0-9]+}/like", s.wrap("like", s.authed(s.handleLike))).Methods(http.MethodPost)
	l.HandleFunc("/{id:[0-9]+}/unlike", s.wrap("unlike", s.authed(s.handleUnlike))).Methods(http.MethodPost)

	s.router = r
}

// wrap counts hits per route and applies injected failures and delays.
func (s *Server) wrap(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[name]++
		status, fail := s.failNext[name]
		delete(s.failNext, name)
		delay := s.delays[name]
		s.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if fail {
			writeDetail(w, status, fmt.Sprintf("injected failure %d", status))
			return
		}
		h(w, r)
	}
}

// Hits reports how many requests reached route name.
func (s *Server) Hits(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[name]
}

// FailNext makes the next request to route name answer with status.
func (s *Server) FailNext(name string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[name] = status
}

// Delay makes every request to route name wait d before being served.
func (s *Server) Delay(name string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[name] = d
}

// DisableServerFilter makes GET /listings/ ignore filter parameters (pagination still applies).
func (s *Server) DisableServerFilter() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverSet = false
}

// now returns a strictly increasing fake clock; callers hold s.mu.
func (s *Server) now() model.Time {
	s.clock = s.clock.Add(time.Second)
	return model.NewTime(s.clock)
}

// id returns the next identifier; callers hold s.mu.
func (s *Server) id() int64 {
	s.nextID++
	return s.nextID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
