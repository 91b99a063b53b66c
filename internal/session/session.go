// Package session is the process-wide authentication state of a client: the current
// token and user, login, signup with email verification, and logout.
//
// A Store is created once per process and shared by every consumer. The token and
// user are always replaced together under one lock, so readers never observe a token
// without its profile or the reverse.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/and161185/sublease/internal/errs"
	"github.com/and161185/sublease/internal/model"
	"github.com/and161185/sublease/internal/tokenstore"
)

// AuthAPI is the subset of the remote API a Store needs. *api.Client implements it.
type AuthAPI interface {
	Token(ctx context.Context, username, password string) (string, error)
	Signup(ctx context.Context, req model.SignupRequest) error
	Verify(ctx context.Context, email, code string) error
	Me(ctx context.Context, token string) (model.User, error)
}

// Store is the Auth Session Store. It is safe for concurrent use.
type Store struct {
	auth   AuthAPI
	tokens tokenstore.Store
	policy Policy
	log    *zap.Logger
	sf     singleflight.Group

	mu    sync.RWMutex
	token string
	user  *model.User
}

// Option configures a Store.
type Option func(*Store)

// WithPolicy replaces DefaultPolicy.
func WithPolicy(p Policy) Option { return func(s *Store) { s.policy = p } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// New returns an anonymous Store. Call Init to restore a persisted session.
func New(auth AuthAPI, tokens tokenstore.Store, opts ...Option) *Store {
	s := &Store{auth: auth, tokens: tokens, policy: DefaultPolicy(), log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Init restores the persisted token and re-fetches its profile. When the fetch fails
// the token is removed and the Store stays anonymous; the fetch error is returned.
// No persisted token is not an error.
func (s *Store) Init(ctx context.Context) error {
	tok, err := s.tokens.Load()
	if errors.Is(err, tokenstore.ErrNoToken) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session init: %w", err)
	}
	u, err := s.profile(ctx, tok)
	if err != nil {
		s.log.Info("stored token rejected, signing out", zap.Error(err))
		s.clear()
		return fmt.Errorf("session init: %w", err)
	}
	s.set(tok, u)
	return nil
}

// Login exchanges credentials for a token, fetches the profile and only then persists
// both. ErrNotVerified means the caller should start VerifySignIn; nothing is stored.
func (s *Store) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errs.Validation("", "Please fill in all fields")
	}
	tok, err := s.auth.Token(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	u, err := s.profile(ctx, tok)
	if err != nil {
		return fmt.Errorf("login: profile: %w", err)
	}
	if err := s.tokens.Save(tok); err != nil {
		return fmt.Errorf("login: persist token: %w", err)
	}
	s.set(tok, u)
	s.log.Info("signed in", zap.String("username", u.Username), zap.Int64("user_id", u.ID))
	return nil
}

// Signup validates f locally, registers the account and returns the verification step
// that must follow. It never authenticates.
func (s *Store) Signup(ctx context.Context, f SignupForm) (*Verification, error) {
	if err := s.policy.Validate(f); err != nil {
		return nil, err
	}
	req := model.SignupRequest{
		Username: strings.TrimSpace(f.Username),
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
	}
	if err := s.auth.Signup(ctx, req); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	s.log.Info("account registered, awaiting verification", zap.String("username", req.Username))
	return &Verification{s: s, Email: req.Email}, nil
}

// VerifySignIn starts verification for a sign-in rejected with ErrNotVerified. The code
// is sent for username when it looks like an email address, otherwise for email.
func (s *Store) VerifySignIn(username, password, email string) *Verification {
	username = strings.TrimSpace(username)
	target := strings.TrimSpace(email)
	if strings.Contains(username, "@") {
		target = username
	}
	return &Verification{s: s, Email: target, signIn: true, username: username, password: password}
}

// VerifySignUp resumes the verification of an account registered earlier, for example
// by a previous process. Submit does not sign in.
func (s *Store) VerifySignUp(email string) *Verification {
	return &Verification{s: s, Email: strings.TrimSpace(email)}
}

// Logout forgets the session and removes the persisted token.
func (s *Store) Logout() error {
	return s.clear()
}

// Invalidate drops token after the server rejected it. API clients call it on 401.
// A token that is no longer the active one is ignored, so a late 401 from an old
// session cannot sign out a newer one.
func (s *Store) Invalidate(token string) {
	s.mu.Lock()
	if token == "" || s.token != token {
		s.mu.Unlock()
		return
	}
	s.token, s.user = "", nil
	s.mu.Unlock()
	s.log.Info("token rejected by server, signing out")
	if err := s.tokens.Clear(); err != nil {
		s.log.Warn("clear token", zap.Error(err))
	}
}

// CurrentUser returns the signed-in user.
func (s *Store) CurrentUser() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// Token returns the active bearer token, or "" when anonymous.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// UserID returns the signed-in user's id.
func (s *Store) UserID() (int64, bool) {
	u, ok := s.CurrentUser()
	return u.ID, ok
}

// Refresh re-fetches the profile of the active token. Concurrent calls share one request.
func (s *Store) Refresh(ctx context.Context) (model.User, error) {
	tok := s.Token()
	if tok == "" {
		return model.User{}, errs.ErrUnauthorized
	}
	u, err := s.profile(ctx, tok)
	if errors.Is(err, errs.ErrUnauthorized) {
		s.Invalidate(tok)
	}
	if err != nil {
		return model.User{}, err
	}
	s.mu.Lock()
	if s.token == tok {
		s.user = &u
	}
	s.mu.Unlock()
	return u, nil
}

// profile fetches the owner of tok. Concurrent callers share one request, which outlives
// the cancellation of whichever caller started it; each caller stops waiting on its own ctx.
func (s *Store) profile(ctx context.Context, tok string) (model.User, error) {
	ch := s.sf.DoChan(tok, func() (any, error) {
		return s.auth.Me(context.WithoutCancel(ctx), tok)
	})
	select {
	case <-ctx.Done():
		return model.User{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return model.User{}, r.Err
		}
		return r.Val.(model.User), nil
	}
}

func (s *Store) set(tok string, u model.User) {
	s.mu.Lock()
	s.token, s.user = tok, &u
	s.mu.Unlock()
}

func (s *Store) clear() error {
	s.mu.Lock()
	s.token, s.user = "", nil
	s.mu.Unlock()
	if err := s.tokens.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
