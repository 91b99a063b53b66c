package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/and161185/sublease/internal/errs"
)

// Doer performs one API request. *Client implements it.
type Doer interface {
	Do(ctx context.Context, r Request, out any) error
}

// Credentials supplies the current bearer token and is told when the server rejects it.
type Credentials interface {
	Token() string
	Invalidate(token string)
}

// Bearer sends requests with the current session token.
type Bearer struct {
	Doer  Doer
	Creds Credentials
}

// Do performs r with the current token, anonymously if there is none.
func (b Bearer) Do(ctx context.Context, r Request, out any) error {
	return b.do(ctx, r, out, false)
}

// MustDo is Do for endpoints that require a session: without a token it fails with
// errs.ErrUnauthorized before any network call.
func (b Bearer) MustDo(ctx context.Context, r Request, out any) error {
	return b.do(ctx, r, out, true)
}

func (b Bearer) do(ctx context.Context, r Request, out any, required bool) error {
	tok := b.Creds.Token()
	if tok == "" && required {
		return fmt.Errorf("%s %s: %w", r.Method, r.Path, errs.ErrUnauthorized)
	}
	r.Token = tok
	err := b.Doer.Do(ctx, r, out)
	var ae *errs.APIError
	if tok != "" && errors.As(err, &ae) && ae.Status == http.StatusUnauthorized {
		b.Creds.Invalidate(tok)
	}
	return err
}
