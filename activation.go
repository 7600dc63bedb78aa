package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// DefaultActivationWindow is how long an activation code stays valid
const DefaultActivationWindow = time.Hour

// ActivationOutcome is the result of checking an activation code
type ActivationOutcome string

const (
	ActivationActivated ActivationOutcome = "activated"
	ActivationNotFound  ActivationOutcome = "not_found"
	ActivationExpired   ActivationOutcome = "expired"
)

// ActivationIssuerOption configures an ActivationIssuer
type ActivationIssuerOption func(*ActivationIssuer)

// WithActivationWindow overrides the validity window
func WithActivationWindow(window time.Duration) ActivationIssuerOption {
	return func(a *ActivationIssuer) {
		if window > 0 {
			a.window = window
		}
	}
}

// WithActivationClock injects a custom clock (useful for tests)
func WithActivationClock(clock func() time.Time) ActivationIssuerOption {
	return func(a *ActivationIssuer) {
		if clock != nil {
			a.now = clock
		}
	}
}

// WithActivationLogger overrides the logger
func WithActivationLogger(logger Logger) ActivationIssuerOption {
	return func(a *ActivationIssuer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// ActivationIssuer issues and consumes activation codes
type ActivationIssuer struct {
	repo      RepositoryManager
	lifecycle AccountStateMachine
	window    time.Duration
	now       func() time.Time
	logger    Logger
}

// NewActivationIssuer returns an issuer backed by repo, moving accounts through lifecycle
func NewActivationIssuer(repo RepositoryManager, lifecycle AccountStateMachine, opts ...ActivationIssuerOption) *ActivationIssuer {
	a := &ActivationIssuer{
		repo:      repo,
		lifecycle: lifecycle,
		window:    DefaultActivationWindow,
		now:       time.Now,
		logger:    defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Window returns the configured validity window
func (a *ActivationIssuer) Window() time.Duration {
	return a.window
}

// Issue creates a new code for account. Older codes stay valid.
func (a *ActivationIssuer) Issue(ctx context.Context, account *Account) (*ActivationToken, error) {
	var token *ActivationToken
	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		token, err = a.IssueTx(ctx, tx, account)
		return err
	})
	return token, err
}

// IssueTx creates a new code for account inside tx
func (a *ActivationIssuer) IssueTx(ctx context.Context, tx bun.IDB, account *Account) (*ActivationToken, error) {
	if account == nil {
		return nil, ErrAccountNotFound
	}

	return a.repo.ActivationTokens().CreateTx(ctx, tx, &ActivationToken{
		Code:      uuid.NewString(),
		AccountID: account.ID,
		Email:     account.Email,
		CreatedAt: a.now(),
	})
}

// Validate consumes code. Activated moves the account to active and purges
// every code it owns in the same transaction. Expired leaves the code and the
// account untouched.
func (a *ActivationIssuer) Validate(ctx context.Context, code string) (ActivationOutcome, *Account, error) {
	if _, err := uuid.Parse(code); err != nil {
		return ActivationNotFound, nil, nil
	}

	outcome := ActivationNotFound
	var account *Account

	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		token, err := a.repo.ActivationTokens().FindByCodeTx(ctx, tx, code)
		if err != nil {
			if errors.Is(err, ErrActivationTokenNotFound) {
				outcome = ActivationNotFound
				return nil
			}
			return err
		}

		if token.IsExpired(a.now(), a.window) {
			outcome = ActivationExpired
			return nil
		}

		// whoever deletes the row first owns the activation
		won, err := a.repo.ActivationTokens().DeleteByCodeTx(ctx, tx, code)
		if err != nil {
			return err
		}
		if !won {
			outcome = ActivationNotFound
			return nil
		}

		found, err := a.repo.Accounts().FindByIDTx(ctx, tx, token.AccountID)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				outcome = ActivationNotFound
				return nil
			}
			return err
		}

		if err := a.repo.ActivationTokens().DeleteByAccountTx(ctx, tx, found.ID); err != nil {
			return err
		}

		if !found.IsUnverified() {
			a.logger.Warn("activation code %s used for %s account %s", code, found.Status, found.ID)
			outcome = ActivationNotFound
			return nil
		}

		activated, err := a.lifecycle.Transition(ctx, ActorRef{ID: found.ID.String(), Type: "account"}, found, AccountStatusActive,
			WithTransitionTx(tx),
			WithTransitionReason("email activation"),
		)
		if err != nil {
			return err
		}

		outcome = ActivationActivated
		account = activated
		return nil
	})

	if err != nil {
		return "", nil, errors.Wrap(err, "activation transaction failed")
	}

	return outcome, account, nil
}
