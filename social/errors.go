package social

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/goliatone/go-accounts"
)

// ErrUnsupportedProvider is returned for provider names outside the supported set.
var ErrUnsupportedProvider = errors.New("unsupported social provider")

// ErrInvalidAssertion is returned when an identity assertion misses its provider user id.
var ErrInvalidAssertion = errors.New("invalid identity assertion")

// ErrIdentityNotFound is returned when no link matches a lookup.
var ErrIdentityNotFound = errors.New("social identity not found")

// ErrIdentityConflict is returned by repositories when an insert hits a unique index.
var ErrIdentityConflict = errors.New("social identity conflicts with an existing link")

// ErrIdentityNotLinked is returned when unlinking a provider the account never linked.
var ErrIdentityNotLinked = errors.New("social identity not linked")

// ErrProviderAlreadyLinked is returned when the account already holds another identity for the provider.
var ErrProviderAlreadyLinked = errors.New("provider already linked to a different identity")

// ErrLastAuthMethod is returned when unlinking would remove the last auth method.
var ErrLastAuthMethod = errors.New("cannot unlink last authentication method")

// ErrEmailRegisteredLocally is returned when a social sign in presents an
// unknown identity whose email belongs to an existing account.
var ErrEmailRegisteredLocally = errors.New("email registered with a local account")

// Outcome codes reported by the social operations
const (
	CodeAlreadyAssociated     accounts.ErrorCode = "already_associated"
	CodeLastAuthMethod        accounts.ErrorCode = "last_auth_method"
	CodeIdentityNotLinked     accounts.ErrorCode = "identity_not_linked"
	CodeProviderAlreadyLinked accounts.ErrorCode = "provider_already_linked"
	CodeUnsupportedProvider   accounts.ErrorCode = "unsupported_provider"
	CodeEmailRegistered       accounts.ErrorCode = "email_registered"
)

// User facing messages
const (
	MessageAlreadyAssociated     = "This social account is already associated with another account."
	MessageLastAuthMethod        = "You must set a password before disconnecting your last social account."
	MessageIdentityNotLinked     = "This social account is not connected."
	MessageProviderAlreadyLinked = "A different account of this provider is already connected."
	MessageUnsupportedProvider   = "This social provider is not supported."
	MessageEmailRegistered       = "This email is already registered. Log in and connect the social account from your settings."
	MessageLinked                = "Social account connected."
	MessageUnlinked              = "Social account disconnected."
)

// AlreadyAssociatedError reports that a provider identity already belongs to
// another account.
type AlreadyAssociatedError struct {
	Provider          Provider
	ProviderUserID    string
	ExistingAccountID string
}

func (e *AlreadyAssociatedError) Error() string {
	return fmt.Sprintf("%s identity %s is already associated with account %s",
		e.Provider, e.ProviderUserID, e.ExistingAccountID)
}

// IsAlreadyAssociated reports whether err is, or wraps, an AlreadyAssociatedError
func IsAlreadyAssociated(err error) bool {
	var target *AlreadyAssociatedError
	return errors.As(err, &target)
}

// outcome maps a ledger error to its code and message. ok is false for
// infrastructure errors.
func outcome(err error) (code accounts.ErrorCode, message string, ok bool) {
	switch {
	case IsAlreadyAssociated(err):
		return CodeAlreadyAssociated, MessageAlreadyAssociated, true
	case errors.Is(err, ErrLastAuthMethod):
		return CodeLastAuthMethod, MessageLastAuthMethod, true
	case errors.Is(err, ErrIdentityNotLinked):
		return CodeIdentityNotLinked, MessageIdentityNotLinked, true
	case errors.Is(err, ErrProviderAlreadyLinked):
		return CodeProviderAlreadyLinked, MessageProviderAlreadyLinked, true
	case errors.Is(err, ErrUnsupportedProvider):
		return CodeUnsupportedProvider, MessageUnsupportedProvider, true
	case errors.Is(err, ErrEmailRegisteredLocally):
		return CodeEmailRegistered, MessageEmailRegistered, true
	}
	return "", "", false
}
