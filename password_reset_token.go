package accounts

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultPasswordResetTimeout is how long a reset link stays valid
const DefaultPasswordResetTimeout = 72 * time.Hour

const resetTokenAudience = "password-reset"

// ResetClaims are the claims carried by a password reset link
type ResetClaims struct {
	jwt.RegisteredClaims
	Fingerprint string `json:"fp"`
}

// ResetTokensOption configures ResetTokens
type ResetTokensOption func(*ResetTokens)

// WithResetTokensClock injects a custom clock (useful for tests)
func WithResetTokensClock(clock func() time.Time) ResetTokensOption {
	return func(r *ResetTokens) {
		if clock != nil {
			r.now = clock
		}
	}
}

// WithResetTokensTimeout overrides the link lifetime
func WithResetTokensTimeout(ttl time.Duration) ResetTokensOption {
	return func(r *ResetTokens) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithResetTokensIssuer sets the iss claim
func WithResetTokensIssuer(issuer string) ResetTokensOption {
	return func(r *ResetTokens) {
		r.issuer = issuer
	}
}

// ResetTokens issues and checks stateless password reset links. A link is
// bound to the account state it was issued for: changing the password hash,
// the email, the last login or the status invalidates it.
type ResetTokens struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	now        func() time.Time
}

// NewResetTokens returns a reset link issuer signing with signingKey
func NewResetTokens(signingKey []byte, opts ...ResetTokensOption) *ResetTokens {
	r := &ResetTokens{
		signingKey: signingKey,
		ttl:        DefaultPasswordResetTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Issue returns a signed token and the encoded account reference
func (r *ResetTokens) Issue(account *Account) (token string, ref string, err error) {
	if account == nil {
		return "", "", ErrAccountNotFound
	}

	now := r.now()
	claims := &ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    r.issuer,
			Subject:   account.ID.String(),
			Audience:  jwt.ClaimStrings{resetTokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
		},
		Fingerprint: r.fingerprint(account),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.signingKey)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to sign reset token")
	}

	return signed, EncodeAccountRef(account.ID), nil
}

// Validate resolves the account a link was issued for. Every failure is
// reported as ErrInvalidOrExpiredLink, infrastructure errors excepted.
func (r *ResetTokens) Validate(ctx context.Context, finder AccountFinder, token, ref string) (*Account, error) {
	id, err := DecodeAccountRef(ref)
	if err != nil {
		return nil, ErrInvalidOrExpiredLink
	}

	claims := &ResetClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return r.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(resetTokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidOrExpiredLink
	}

	if claims.Subject != id.String() {
		return nil, ErrInvalidOrExpiredLink
	}

	account, err := finder.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidOrExpiredLink
		}
		return nil, err
	}

	expected := r.fingerprint(account)
	if !hmac.Equal([]byte(expected), []byte(claims.Fingerprint)) {
		return nil, ErrInvalidOrExpiredLink
	}

	return account, nil
}

func (r *ResetTokens) fingerprint(account *Account) string {
	mac := hmac.New(sha256.New, r.signingKey)
	mac.Write([]byte(account.ID.String()))
	mac.Write([]byte{0})
	mac.Write([]byte(account.PasswordHash))
	mac.Write([]byte{0})
	mac.Write([]byte(account.Email))
	mac.Write([]byte{0})
	mac.Write([]byte(string(account.Status)))
	mac.Write([]byte{0})
	if account.LoggedInAt != nil {
		mac.Write([]byte(strconv.FormatInt(account.LoggedInAt.Unix(), 10)))
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// EncodeAccountRef encodes an account id for use in a link
func EncodeAccountRef(id uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id.String()))
}

// DecodeAccountRef reverses EncodeAccountRef
func DecodeAccountRef(ref string) (uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ref)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "invalid account reference")
	}
	return uuid.Parse(string(raw))
}
