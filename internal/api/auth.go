package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/and161185/sublease/internal/errs"
	"github.com/and161185/sublease/internal/model"
)

// Token exchanges credentials for an access token (POST /auth/token, form-encoded).
// 401/400 map to ErrInvalidCredentials; a 403 "not verified" maps to ErrNotVerified.
func (c *Client) Token(ctx context.Context, username, password string) (string, error) {
	var out model.TokenResponse
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/auth/token",
		Form:   url.Values{"username": {username}, "password": {password}},
	}, &out)
	if err != nil {
		return "", remap(err, errs.ErrInvalidCredentials, http.StatusUnauthorized, http.StatusBadRequest)
	}
	return out.AccessToken, nil
}

// Signup registers an account (POST /auth/). It does not authenticate.
func (c *Client) Signup(ctx context.Context, req model.SignupRequest) error {
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/auth/", JSON: req}, nil)
	return remap(err, errs.ErrAlreadyExists, http.StatusBadRequest, http.StatusConflict)
}

// Verify confirms an email with a one-time code (POST /auth/verify).
func (c *Client) Verify(ctx context.Context, email, code string) error {
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/auth/verify",
		JSON:   model.VerifyRequest{Email: email, Code: code},
	}, nil)
	return remap(err, errs.ErrVerificationCode,
		http.StatusBadRequest, http.StatusNotFound, http.StatusGone, http.StatusUnprocessableEntity)
}

// Me fetches the profile of the token owner (GET /auth/me).
func (c *Client) Me(ctx context.Context, token string) (model.User, error) {
	var u model.User
	err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/auth/me", Token: token}, &u)
	return u, err
}
