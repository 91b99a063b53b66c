// Package api is the HTTP transport to the marketplace REST API.
//
// It attaches bearer tokens, maps HTTP statuses onto the errs sentinels, and
// decodes and validates JSON bodies before handing them to callers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/sublease/internal/errs"
)

// maxBody bounds decoded responses; listings may carry data-URI images.
const maxBody = 32 << 20

// RequestIDHeader carries a per-request id for server-side correlation.
const RequestIDHeader = "X-Request-ID"

// Client performs requests against one API base URL. It is safe for concurrent use.
type Client struct {
	base *url.URL
	hc   *http.Client
	log  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (its Transport is wrapped for logging).
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithTimeout sets the per-request timeout on a copy of the http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.hc
		hc.Timeout = d
		c.hc = &hc
	}
}

// New constructs a Client for baseURL (scheme and host required).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("api base url %q: need http(s)://host", baseURL)
	}
	c := &Client{base: u, hc: &http.Client{Timeout: 30 * time.Second}, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	hc := *c.hc
	hc.Transport = loggingTransport{next: hc.Transport, log: c.log}
	c.hc = &hc
	return c, nil
}

// Request describes one API call. At most one of JSON and Form is set.
type Request struct {
	Method string
	Path   string // absolute path, e.g. "/listings/"
	Query  url.Values
	JSON   any
	Form   url.Values
	Token  string // bearer token; empty means anonymous
}

type validator interface{ Validate() error }

// Do executes r and decodes a 2xx JSON body into out (when out is non-nil).
// If out has a Validate method it is called; a failure is reported as ErrServer.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	req, err := c.newRequest(ctx, r)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", r.Method, r.Path, errs.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w: %w", r.Method, r.Path, errs.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: %w", r.Method, r.Path, statusError(resp.StatusCode, body))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w: %w", r.Method, r.Path, errs.ErrServer, err)
	}
	if v, ok := out.(validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%s %s: malformed response: %w: %w", r.Method, r.Path, errs.ErrServer, err)
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + r.Path
	u.RawPath = ""
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.JSON != nil && r.Form != nil:
		return nil, errors.New("api: both JSON and Form set")
	case r.JSON != nil:
		b, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, fmt.Errorf("api: encode body: %w", err)
		}
		body, contentType = bytes.NewReader(b), "application/json"
	case r.Form != nil:
		body, contentType = strings.NewReader(r.Form.Encode()), "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.Token)
	}
	if id, err := uuid.NewV4(); err == nil {
		req.Header.Set(RequestIDHeader, id.String())
	}
	return req, nil
}

// statusError maps a non-2xx answer onto an *errs.APIError.
func statusError(status int, body []byte) *errs.APIError {
	d := parseDetail(body)
	ae := &errs.APIError{Status: status, Detail: d}
	switch {
	case status == http.StatusUnauthorized:
		ae.Kind = errs.ErrUnauthorized
	case status == http.StatusForbidden && IsNotVerified(d):
		ae.Kind = errs.ErrNotVerified
	case status == http.StatusForbidden:
		ae.Kind = errs.ErrUnauthorized
	case status == http.StatusNotFound:
		ae.Kind = errs.ErrNotFound
	case status == http.StatusConflict:
		ae.Kind = errs.ErrAlreadyExists
	case status >= 500:
		ae.Kind = errs.ErrServer
	default:
		ae.Kind = errs.ErrRejected
	}
	return ae
}

// IsNotVerified reports whether a 403 detail signals an unverified account.
// The backend has no dedicated code for this; the text match is the contract.
func IsNotVerified(detail string) bool {
	return strings.Contains(strings.ToLower(detail), "not verified")
}

// parseDetail extracts FastAPI-style {"detail": "..."} or {"detail": [{"msg": ...}]}.
func parseDetail(body []byte) string {
	var env struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &env) != nil || len(env.Detail) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(env.Detail, &s) == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(env.Detail, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// remap changes the Kind of an *errs.APIError whose status is in statuses.
func remap(err error, kind error, statuses ...int) error {
	var ae *errs.APIError
	if !errors.As(err, &ae) {
		return err
	}
	for _, s := range statuses {
		if ae.Status == s {
			ae.Kind = kind
			return err
		}
	}
	return err
}
