package accounts

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrAccountNotFound is returned when no account matches a lookup
var ErrAccountNotFound = errors.New("account not found")

// ErrEmailAlreadyExists is returned when creating an account with a taken email
var ErrEmailAlreadyExists = errors.New("email already registered")

// ErrInvalidOrExpiredLink is the single outcome of a failed password reset link check
var ErrInvalidOrExpiredLink = errors.New("link is invalid or expired")

// ErrUnableToFindSession is the error when our request has no session token
var ErrUnableToFindSession = errors.New("unable to find session")

// ErrUnableToDecodeSession unable to decode the session token
var ErrUnableToDecodeSession = errors.New("unable to decode session")

// ErrSessionRevoked is returned for a well formed token whose session row is gone
var ErrSessionRevoked = errors.New("session revoked")

// ErrTokenExpired is returned for tokens past their expiration
var ErrTokenExpired = errors.New("token is expired")

// ErrTokenMalformed is returned for tokens that fail to parse
var ErrTokenMalformed = errors.New("token is malformed")

// ErrMismatchedHashAndPassword password does not match stored hash
var ErrMismatchedHashAndPassword = errors.New("password does not match")

// ErrNoEmptyString empty passwords are never hashed
var ErrNoEmptyString = errors.New("password can not be empty")

// ErrStaleStatus is returned when a status compare-and-set lost against a concurrent change
var ErrStaleStatus = errors.New("account status changed concurrently")

// ErrAccountInactive is returned when a session belongs to an account that can no longer act
var ErrAccountInactive = errors.New("account is not active")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// ErrorCode identifies a domain outcome reported back to callers
type ErrorCode string

const (
	CodeRequired             ErrorCode = "required"
	CodeInvalid              ErrorCode = "invalid"
	CodeEmailAlreadyExists   ErrorCode = "email_already_exists"
	CodePasswordMismatch     ErrorCode = "password_mismatch"
	CodeWeakPassword         ErrorCode = "weak_password"
	CodeEmailNotRegistered   ErrorCode = "email_not_registered"
	CodeEmailNotVerified     ErrorCode = "email_not_verified"
	CodeIncorrectPassword    ErrorCode = "incorrect_password"
	CodeAlreadyActive        ErrorCode = "already_active"
	CodeAccountDeactivated   ErrorCode = "account_deactivated"
	CodePasswordRequired     ErrorCode = "password_required"
	CodeInvalidOrExpiredLink ErrorCode = "invalid_or_expired_link"
	CodeActivationNotFound   ErrorCode = "activation_not_found"
	CodeActivationExpired    ErrorCode = "activation_expired"
)

// User facing messages
const (
	MessageEmailAlreadyExists   = "This email is already registered."
	MessagePasswordMismatch     = "The password is not matching."
	MessageEmailNotRegistered   = "This email is not registered."
	MessageEmailNotVerified     = "The email is not verified."
	MessageIncorrectPassword    = "The password is incorrect."
	MessageAlreadyActive        = "This email is already active."
	MessageAccountDeactivated   = "This account has been deactivated."
	MessagePasswordRequired     = "Password is Required."
	MessageInvalidOrExpiredLink = "This link is invalid or expired. You can apply for resend."

	MessageRegistered         = "Successfully registered. To activate please verify email."
	MessageActivated          = "Successfully account activated."
	MessageActivationExpired  = "Activation code is expired. You can apply for resend code for activation."
	MessageActivationNotFound = "Activation code not found."
	MessageActivationResent   = "Re-sent account activation code."
	MessageResetLinkSent      = "Link for password reset sent to your email."
	MessagePasswordChanged    = "Password reset successful. You must login again."
	MessageDeactivated        = "Successfully account deactivated."
	MessageLoggedOut          = "Successfully logged out."
	MessageLoggedIn           = "Successfully logged in."
	MessageLoginFailed        = "Invalid credentials."
)

var codeMessages = map[ErrorCode]string{
	CodeEmailAlreadyExists:   MessageEmailAlreadyExists,
	CodePasswordMismatch:     MessagePasswordMismatch,
	CodeEmailNotRegistered:   MessageEmailNotRegistered,
	CodeEmailNotVerified:     MessageEmailNotVerified,
	CodeIncorrectPassword:    MessageIncorrectPassword,
	CodeAlreadyActive:        MessageAlreadyActive,
	CodeAccountDeactivated:   MessageAccountDeactivated,
	CodePasswordRequired:     MessagePasswordRequired,
	CodeInvalidOrExpiredLink: MessageInvalidOrExpiredLink,
	CodeActivationNotFound:   MessageActivationNotFound,
	CodeActivationExpired:    MessageActivationExpired,
}

// Message returns the default user facing message for the code
func (c ErrorCode) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return string(c)
}

// FieldError is a single validation problem attached to an input field
type FieldError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// FieldErrors maps an input field name to its first validation problem
type FieldErrors map[string]FieldError

// Add records code for field using the default message. The first error
// recorded for a field wins.
func (f FieldErrors) Add(field string, code ErrorCode) {
	f.AddMessage(field, code, code.Message())
}

// AddMessage records code for field with an explicit message.
func (f FieldErrors) AddMessage(field string, code ErrorCode, message string) {
	if _, exists := f[field]; exists {
		return
	}
	f[field] = FieldError{Code: code, Message: message}
}

// Has reports whether field carries an error
func (f FieldErrors) Has(field string) bool {
	_, ok := f[field]
	return ok
}

// Code returns the error code recorded for field, empty when none
func (f FieldErrors) Code(field string) ErrorCode {
	return f[field].Code
}

// Messages flattens the errors into field -> message
func (f FieldErrors) Messages() map[string]string {
	out := make(map[string]string, len(f))
	for field, fe := range f {
		out[field] = fe.Message
	}
	return out
}

// Merge copies errors from other that are not yet present
func (f FieldErrors) Merge(other FieldErrors) {
	for field, fe := range other {
		f.AddMessage(field, fe.Code, fe.Message)
	}
}
