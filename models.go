package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the lifecycle state of an account
type AccountStatus string

const (
	// AccountStatusUnverified registered, email not confirmed yet
	AccountStatusUnverified AccountStatus = "unverified"
	// AccountStatusActive may authenticate
	AccountStatusActive AccountStatus = "active"
	// AccountStatusDeactivated self deactivated, record retained
	AccountStatusDeactivated AccountStatus = "deactivated"
)

// IsValid reports whether the status is one of the known values
func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountStatusUnverified, AccountStatusActive, AccountStatusDeactivated:
		return true
	}
	return false
}

// unusablePasswordPrefix marks a hash that can never match.
const unusablePasswordPrefix = "!"

// Account is the account model
type Account struct {
	bun.BaseModel     `bun:"table:accounts,alias:acc"`
	ID                uuid.UUID     `bun:"id,pk,type:uuid" json:"id"`
	Email             string        `bun:"email,notnull,unique" json:"email"`
	PasswordHash      string        `bun:"password_hash" json:"-"`
	Status            AccountStatus `bun:"status,notnull" json:"status"`
	LoggedInAt        *time.Time    `bun:"logged_in_at,nullzero" json:"logged_in_at,omitempty"`
	PasswordChangedAt *time.Time    `bun:"password_changed_at,nullzero" json:"password_changed_at,omitempty"`
	ActivatedAt       *time.Time    `bun:"activated_at,nullzero" json:"activated_at,omitempty"`
	DeactivatedAt     *time.Time    `bun:"deactivated_at,nullzero" json:"deactivated_at,omitempty"`
	CreatedAt         time.Time     `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt         time.Time     `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// EnsureStatus defaults an empty status to unverified
func (a *Account) EnsureStatus() {
	if a != nil && a.Status == "" {
		a.Status = AccountStatusUnverified
	}
}

// IsActive reports whether the account may authenticate
func (a *Account) IsActive() bool {
	return a != nil && a.Status == AccountStatusActive
}

// IsUnverified reports whether the account still waits for activation
func (a *Account) IsUnverified() bool {
	return a != nil && a.Status == AccountStatusUnverified
}

// IsDeactivated reports whether the account was deactivated
func (a *Account) IsDeactivated() bool {
	return a != nil && a.Status == AccountStatusDeactivated
}

// HasUsablePassword reports whether a local password was deliberately set
func (a *Account) HasUsablePassword() bool {
	if a == nil || a.PasswordHash == "" {
		return false
	}
	return !strings.HasPrefix(a.PasswordHash, unusablePasswordPrefix)
}

// ActivationToken proves control of the registered email
type ActivationToken struct {
	bun.BaseModel `bun:"table:activation_tokens,alias:act"`
	Code          string    `bun:"code,pk" json:"code"`
	AccountID     uuid.UUID `bun:"account_id,notnull,type:uuid" json:"account_id"`
	Email         string    `bun:"email,notnull" json:"email"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// IsExpired reports whether the token is older than window at now
func (t *ActivationToken) IsExpired(now time.Time, window time.Duration) bool {
	if t == nil {
		return true
	}
	return now.Sub(t.CreatedAt) > window
}

// SessionRecord backs an issued session token
type SessionRecord struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	AccountID     uuid.UUID `bun:"account_id,notnull,type:uuid" json:"account_id"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
}

// NormalizeEmail trims the address and lowercases its domain part.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
