package model

import "errors"

// User is the authenticated account profile returned by /auth/me.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Bio      string `json:"bio,omitempty"`
}

// Validate checks the fields every consumer relies on.
func (u User) Validate() error {
	if u.ID <= 0 {
		return errors.New("user: missing id")
	}
	if u.Username == "" {
		return errors.New("user: missing username")
	}
	return nil
}

// TokenResponse is the body of a successful /auth/token call.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

func (t TokenResponse) Validate() error {
	if t.AccessToken == "" {
		return errors.New("token: empty access_token")
	}
	return nil
}

// SignupRequest is the JSON body of POST /auth/.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyRequest is the JSON body of POST /auth/verify.
type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}
