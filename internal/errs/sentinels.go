// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across transport/client layers.
var (
	// ErrValidation indicates local input rejected before any network call.
	ErrValidation = errors.New("validation")

	// ErrUnauthorized indicates a missing, expired or rejected bearer token (authentication required).
	ErrUnauthorized = errors.New("authentication required")

	// ErrInvalidCredentials indicates a wrong username/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotVerified indicates the account exists but its email is not confirmed yet.
	ErrNotVerified = errors.New("account not verified")

	// ErrVerificationCode indicates the server rejected a verification code.
	ErrVerificationCode = errors.New("invalid verification code")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrRejected indicates any other 4xx answer.
	ErrRejected = errors.New("request rejected")

	// ErrNetwork indicates the request never produced an HTTP response.
	ErrNetwork = errors.New("network error")

	// ErrServer indicates a 5xx answer or a malformed response body.
	ErrServer = errors.New("server error")

	// ErrLoginAfterVerify indicates that verification succeeded but the automatic sign-in retry did not.
	ErrLoginAfterVerify = errors.New("login failed after verification")

	// ErrClosed indicates use of a component after teardown.
	ErrClosed = errors.New("closed")
)
