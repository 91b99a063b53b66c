package session

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/and161185/sublease/internal/errs"
)

// Policy holds the local signup rules. The email domain restriction is a product
// policy, not a security control; the server remains the authority.
type Policy struct {
	EmailDomain    string
	MinUsernameLen int
	MinPasswordLen int
}

// DefaultPolicy allows @gmail.com addresses, usernames of 3+ and passwords of 6+ characters.
func DefaultPolicy() Policy {
	return Policy{EmailDomain: "gmail.com", MinUsernameLen: 3, MinPasswordLen: 6}
}

// SignupForm is the raw signup input.
type SignupForm struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate checks f and returns the first violated rule as an *errs.ValidationError.
func (p Policy) Validate(f SignupForm) error {
	username, email := strings.TrimSpace(f.Username), strings.TrimSpace(f.Email)
	switch {
	case username == "" || email == "" || f.Password == "" || f.ConfirmPassword == "":
		return errs.Validation("", "Please fill in all fields")
	case len([]rune(username)) < p.MinUsernameLen:
		return errs.Validation("username", fmt.Sprintf("Username must be at least %d characters long", p.MinUsernameLen))
	case len([]rune(f.Password)) < p.MinPasswordLen:
		return errs.Validation("password", fmt.Sprintf("Password must be at least %d characters long", p.MinPasswordLen))
	case f.Password != f.ConfirmPassword:
		return errs.Validation("confirm_password", "Passwords do not match")
	case !p.emailAllowed(email):
		return errs.Validation("email", "Only @"+p.EmailDomain+" emails are allowed")
	}
	return nil
}

// emailAllowed accepts local@domain with no whitespace and a single "@"; the domain
// must equal EmailDomain when one is set.
func (p Policy) emailAllowed(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || !emailPart(local) || !emailPart(domain) {
		return false
	}
	return p.EmailDomain == "" || domain == p.EmailDomain
}

func emailPart(s string) bool {
	return s != "" && !strings.ContainsFunc(s, func(r rune) bool { return r == '@' || unicode.IsSpace(r) })
}

var codeRE = regexp.MustCompile(`^[0-9]{6}$`)

// validCode reports whether code is a 6-digit verification code.
func validCode(code string) bool { return codeRE.MatchString(code) }
