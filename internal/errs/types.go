package errs

import (
	"errors"
	"fmt"
)

// ValidationError is a local input error. It matches ErrValidation.
type ValidationError struct {
	Field string
	Msg   string
}

// Validation builds a ValidationError for field.
func Validation(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Msg
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// Is reports ErrValidation as the sentinel.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// APIError is a non-2xx answer from the remote API.
type APIError struct {
	Status int
	Detail string
	Kind   error // one of the sentinels
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v (http %d)", e.Kind, e.Status)
	}
	return fmt.Sprintf("%v (http %d): %s", e.Kind, e.Status, e.Detail)
}

func (e *APIError) Unwrap() error { return e.Kind }

// Message renders err as a short, human-readable line suitable for inline display.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Msg
	}
	switch {
	case errors.Is(err, ErrLoginAfterVerify):
		return "Login failed after verification. Please try again."
	case errors.Is(err, ErrNotVerified):
		return "Your account is not verified. Enter the 6-digit code sent to your email."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, ErrVerificationCode):
		if d := detail(err); d != "" {
			return d
		}
		return "Invalid verification code"
	case errors.Is(err, ErrUnauthorized):
		return "Please sign in to continue"
	case errors.Is(err, ErrAlreadyExists):
		return "Username or email already exists"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrNetwork):
		return "Network error. Check your connection and try again."
	case errors.Is(err, ErrServer):
		return "Something went wrong on the server. Try again."
	case errors.Is(err, ErrRejected):
		if d := detail(err); d != "" {
			return d
		}
		return "Request rejected"
	}
	return err.Error()
}

func detail(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Detail
	}
	return ""
}
