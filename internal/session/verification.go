package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/sublease/internal/errs"
)

// Verification is a pending email confirmation, produced by Signup or VerifySignIn.
type Verification struct {
	s *Store

	// Email is the address the code is confirmed for.
	Email string

	signIn             bool
	username, password string
}

// SignIn reports whether a successful Submit also signs the user in.
func (v *Verification) SignIn() bool { return v.signIn }

// Submit confirms code. For a sign-in verification it then retries the original login
// once; if that retry fails the result matches errs.ErrLoginAfterVerify.
func (v *Verification) Submit(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if v.Email == "" {
		return errs.Validation("email", "Please enter your email")
	}
	if !validCode(code) {
		return errs.Validation("code", "Please enter the 6-digit code")
	}
	if err := v.s.auth.Verify(ctx, v.Email, code); err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	if !v.signIn {
		return nil
	}
	if err := v.s.Login(ctx, v.username, v.password); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrLoginAfterVerify, err)
	}
	return nil
}
