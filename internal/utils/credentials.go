package utils

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/antonkondratyev/api-universal/internal/config"
)

// CredentialError describes the first policy rule a username or password
// broke. Its message is safe to show to clients.
type CredentialError struct {
	Field  string
	Reason string
}

func (e *CredentialError) Error() string {
	return e.Field + " " + e.Reason
}

// ValidateCredentials checks a username/password pair against the policy.
// Zero-valued limits are not enforced; empty values are always rejected.
func ValidateCredentials(opts config.CredentialOptions, username, password string) error {
	if username == "" || password == "" {
		return &CredentialError{Field: "username and password", Reason: "required"}
	}

	n := utf8.RuneCountInString(username)
	if opts.UserMinLength > 0 && n < opts.UserMinLength {
		return &CredentialError{Field: "username", Reason: fmt.Sprintf("must be at least %d characters", opts.UserMinLength)}
	}
	if opts.UserMaxLength > 0 && n > opts.UserMaxLength {
		return &CredentialError{Field: "username", Reason: fmt.Sprintf("must be at most %d characters", opts.UserMaxLength)}
	}

	var numbers, symbols, upper, lower int
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			numbers++
		case unicode.IsUpper(r):
			upper++
		case unicode.IsLower(r):
			lower++
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbols++
		}
	}
	checks := []struct {
		got, min int
		what     string
	}{
		{utf8.RuneCountInString(password), opts.PassMinLength, "characters"},
		{numbers, opts.PassMinNumbers, "numbers"},
		{symbols, opts.PassMinSymbols, "symbols"},
		{upper, opts.PassMinUpper, "uppercase letters"},
		{lower, opts.PassMinLower, "lowercase letters"},
	}
	for _, c := range checks {
		if c.min > 0 && c.got < c.min {
			return &CredentialError{Field: "password", Reason: fmt.Sprintf("must contain at least %d %s", c.min, c.what)}
		}
	}
	return nil
}
