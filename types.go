package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Logger is the printf style logger used across the package.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds attributes that are part of an authenticated session
type Session interface {
	GetSessionID() string
	GetAccountID() string
	GetAccountUUID() (uuid.UUID, error)
	GetEmail() string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetExpiresAt() *time.Time
}

// Config holds the options consumed by the account core
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetSessionDuration() time.Duration
	GetActivationWindow() time.Duration
	GetPasswordResetTimeout() time.Duration
	GetBaseURL() string
	GetContextKey() string
	GetTokenLookup() string
	GetCookieName() string
	GetCookieSecure() bool
	GetRecoveryURL() string
}

// MailSink accepts outgoing mail for asynchronous, best effort delivery.
// Implementations must not block the caller.
type MailSink interface {
	Enqueue(recipient, subject, bodyHTML string)
}

// Renderer turns a template identifier plus a context into an HTML body.
type Renderer interface {
	Render(name string, data map[string]any) (string, error)
}

// Notifier is the mail composition boundary used by Service.
type Notifier interface {
	SendActivation(ctx context.Context, account *Account, code string)
	SendPasswordReset(ctx context.Context, account *Account, ref, token string)
}

// AccountFinder resolves accounts by id.
type AccountFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
