package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// DefaultSessionDuration is the lifetime of a session token
const DefaultSessionDuration = 24 * time.Hour

var _ Session = &SessionObject{}

// SessionObject is the decoded, store checked session
type SessionObject struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	Email     string     `json:"email,omitempty"`
	Issuer    string     `json:"issuer,omitempty"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s *SessionObject) GetSessionID() string {
	return s.ID
}

func (s *SessionObject) GetAccountID() string {
	return s.AccountID
}

func (s *SessionObject) GetAccountUUID() (uuid.UUID, error) {
	return uuid.Parse(s.AccountID)
}

func (s *SessionObject) GetEmail() string {
	return s.Email
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetExpiresAt() *time.Time {
	return s.ExpiresAt
}

// HasAccountUUID reports whether Session.GetAccountUUID will succeed.
func HasAccountUUID(session Session) bool {
	if session == nil {
		return false
	}
	_, err := session.GetAccountUUID()
	return err == nil
}

// SessionManagerOption configures a SessionManager
type SessionManagerOption func(*SessionManager)

// WithSessionDuration overrides the session lifetime
func WithSessionDuration(ttl time.Duration) SessionManagerOption {
	return func(m *SessionManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithSessionClock injects a custom clock (useful for tests)
func WithSessionClock(clock func() time.Time) SessionManagerOption {
	return func(m *SessionManager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// SessionManager persists sessions and hands out tokens bound to them
type SessionManager struct {
	sessions Sessions
	tokens   TokenService
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionManager returns a manager storing rows in sessions and signing with tokens
func NewSessionManager(sessions Sessions, tokens TokenService, opts ...SessionManagerOption) *SessionManager {
	m := &SessionManager{
		sessions: sessions,
		tokens:   tokens,
		ttl:      DefaultSessionDuration,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// CreateTx stores a session row for account and returns its signed token
func (m *SessionManager) CreateTx(ctx context.Context, tx bun.IDB, account *Account) (string, *SessionObject, error) {
	now := m.now()
	record, err := m.sessions.CreateTx(ctx, tx, &SessionRecord{
		ID:        uuid.New(),
		AccountID: account.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	})
	if err != nil {
		return "", nil, err
	}

	token, err := m.tokens.Generate(record, account)
	if err != nil {
		return "", nil, err
	}

	return token, sessionFromRecord(record, account.Email), nil
}

// Validate decodes token and checks that its session row still exists
func (m *SessionManager) Validate(ctx context.Context, token string) (*SessionObject, error) {
	if token == "" {
		return nil, ErrUnableToFindSession
	}

	claims, err := m.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, ErrUnableToDecodeSession
	}

	record, err := m.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, err
	}

	if record.AccountID.String() != claims.Subject {
		return nil, ErrUnableToDecodeSession
	}

	if m.now().After(record.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	session := sessionFromRecord(record, claims.Email)
	session.Issuer = claims.Issuer
	return session, nil
}

// Revoke deletes one session row
func (m *SessionManager) Revoke(ctx context.Context, session Session) error {
	if session == nil {
		return nil
	}
	id, err := uuid.Parse(session.GetSessionID())
	if err != nil {
		return ErrUnableToDecodeSession
	}
	return m.sessions.DeleteByID(ctx, id)
}

// RevokeAllTx deletes every session of accountID inside tx
func (m *SessionManager) RevokeAllTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID) (int64, error) {
	return m.sessions.DeleteByAccountTx(ctx, tx, accountID)
}

// PurgeExpired deletes rows past their expiration
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.sessions.DeleteExpired(ctx, m.now())
}

func sessionFromRecord(record *SessionRecord, email string) *SessionObject {
	issuedAt := record.CreatedAt
	expiresAt := record.ExpiresAt
	return &SessionObject{
		ID:        record.ID.String(),
		AccountID: record.AccountID.String(),
		Email:     email,
		IssuedAt:  &issuedAt,
		ExpiresAt: &expiresAt,
	}
}
