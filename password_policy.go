package accounts

import (
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/pkg/errors"
)

// PasswordPolicy decides whether a candidate password is strong enough
type PasswordPolicy interface {
	Validate(password string) error
}

// PasswordPolicyFunc adapts a function to PasswordPolicy
type PasswordPolicyFunc func(password string) error

// Validate implements PasswordPolicy
func (f PasswordPolicyFunc) Validate(password string) error {
	if f == nil {
		return nil
	}
	return f(password)
}

// WeakPasswordError lists every rule a password failed
type WeakPasswordError struct {
	Reasons []string
}

func (e *WeakPasswordError) Error() string {
	return strings.Join(e.Reasons, " ")
}

// MaxPasswordBytes is the longest password bcrypt can hash
const MaxPasswordBytes = 72

const msgPasswordTooLong = "This password is too long."

// checkPasswordBytes rejects passwords the hasher would refuse
func checkPasswordBytes(password string) error {
	if len(password) > MaxPasswordBytes {
		return &WeakPasswordError{Reasons: []string{msgPasswordTooLong}}
	}
	return nil
}

// StrengthPolicy is the default PasswordPolicy
type StrengthPolicy struct {
	MinLength        int
	MaxLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumbers   bool
	RequireSpecial   bool
	RejectNumeric    bool
	RejectCommon     bool
}

// DefaultStrengthPolicy mirrors the usual web framework defaults
func DefaultStrengthPolicy() StrengthPolicy {
	return StrengthPolicy{
		MinLength:     8,
		MaxLength:     128,
		RejectNumeric: true,
		RejectCommon:  true,
	}
}

// Validate implements PasswordPolicy
func (p StrengthPolicy) Validate(password string) error {
	var reasons []string

	if p.MinLength > 0 || p.MaxLength > 0 {
		max := p.MaxLength
		if max < p.MinLength {
			max = 0
		}
		rule := validation.Length(p.MinLength, max).
			Error("This password is too short or too long.")
		if err := validation.Validate(password, validation.Required, rule); err != nil {
			reasons = append(reasons, err.Error())
		}
	}

	if len(password) > MaxPasswordBytes {
		reasons = append(reasons, msgPasswordTooLong)
	}

	var hasUpper, hasLower, hasDigit, hasSpecial, onlyDigits bool
	onlyDigits = password != ""
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
		if !unicode.IsDigit(r) {
			onlyDigits = false
		}
	}

	if p.RequireUppercase && !hasUpper {
		reasons = append(reasons, "This password must contain an uppercase letter.")
	}
	if p.RequireLowercase && !hasLower {
		reasons = append(reasons, "This password must contain a lowercase letter.")
	}
	if p.RequireNumbers && !hasDigit {
		reasons = append(reasons, "This password must contain a number.")
	}
	if p.RequireSpecial && !hasSpecial {
		reasons = append(reasons, "This password must contain a special character.")
	}
	if p.RejectNumeric && onlyDigits {
		reasons = append(reasons, "This password is entirely numeric.")
	}
	if p.RejectCommon && isCommonPassword(password) {
		reasons = append(reasons, "This password is too common.")
	}

	if len(reasons) == 0 {
		return nil
	}
	return &WeakPasswordError{Reasons: reasons}
}

// IsWeakPassword reports whether err came from a PasswordPolicy rejection
func IsWeakPassword(err error) bool {
	var weak *WeakPasswordError
	return errors.As(err, &weak)
}

var commonPasswords = map[string]struct{}{
	"123456": {}, "12345678": {}, "123456789": {}, "1234567890": {},
	"password": {}, "password1": {}, "password123": {}, "passw0rd": {},
	"qwerty": {}, "qwerty123": {}, "qwertyuiop": {}, "abc123": {},
	"letmein": {}, "welcome": {}, "welcome1": {}, "iloveyou": {},
	"admin": {}, "admin123": {}, "monkey": {}, "dragon": {},
	"football": {}, "baseball": {}, "sunshine": {}, "princess": {},
	"trustno1": {}, "superman": {}, "starwars": {}, "whatever": {},
	"11111111": {}, "00000000": {}, "1q2w3e4r": {}, "zaq12wsx": {},
}

func isCommonPassword(password string) bool {
	_, ok := commonPasswords[strings.ToLower(strings.TrimSpace(password))]
	return ok
}
