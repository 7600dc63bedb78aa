package social

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-accounts"
)

// LedgerOption configures a Ledger
type LedgerOption func(*Ledger)

// WithLedgerClock injects a custom clock
func WithLedgerClock(clock func() time.Time) LedgerOption {
	return func(l *Ledger) {
		if clock != nil {
			l.now = clock
		}
	}
}

// Ledger records which provider identities belong to which account and
// guarantees that an account always keeps one way to authenticate.
type Ledger struct {
	repo       accounts.RepositoryManager
	identities IdentityRepository
	now        func() time.Time
}

// NewLedger returns a ledger storing links in identities
func NewLedger(repo accounts.RepositoryManager, identities IdentityRepository, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		repo:       repo,
		identities: identities,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// LinkIdentity attaches the asserted identity to account. Linking an
// identity that already belongs to account is a no-op.
func (l *Ledger) LinkIdentity(ctx context.Context, account *accounts.Account, assertion Assertion) (*Identity, error) {
	if account == nil {
		return nil, accounts.ErrAccountNotFound
	}

	assertion, err := normalizeAssertion(assertion)
	if err != nil {
		return nil, err
	}

	var identity *Identity
	err = l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		identity, err = l.LinkIdentityTx(ctx, tx, account, assertion)
		return err
	})

	if errors.Is(err, ErrIdentityConflict) {
		// lost an insert race, report what won
		return nil, l.explainConflict(ctx, account, assertion)
	}

	return identity, err
}

// LinkIdentityTx is LinkIdentity running inside tx
func (l *Ledger) LinkIdentityTx(ctx context.Context, tx bun.IDB, account *accounts.Account, assertion Assertion) (*Identity, error) {
	assertion, err := normalizeAssertion(assertion)
	if err != nil {
		return nil, err
	}

	existing, err := l.identities.FindByProviderIDTx(ctx, tx, assertion.Provider, assertion.ProviderUserID)
	switch {
	case err == nil && existing.AccountID == account.ID:
		return existing, nil
	case err == nil:
		return nil, &AlreadyAssociatedError{
			Provider:          assertion.Provider,
			ProviderUserID:    assertion.ProviderUserID,
			ExistingAccountID: existing.AccountID.String(),
		}
	case !errors.Is(err, ErrIdentityNotFound):
		return nil, err
	}

	links, err := l.identities.FindByAccountTx(ctx, tx, account.ID)
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		if link.Provider == assertion.Provider {
			return nil, ErrProviderAlreadyLinked
		}
	}

	now := l.now()
	identity := &Identity{
		ID:             uuid.New(),
		AccountID:      account.ID,
		Provider:       assertion.Provider,
		ProviderUserID: assertion.ProviderUserID,
		Email:          accounts.NormalizeEmail(assertion.Email),
		LinkedAt:       now,
		UpdatedAt:      now,
	}

	if err := l.identities.CreateTx(ctx, tx, identity); err != nil {
		return nil, err
	}

	return identity, nil
}

func (l *Ledger) explainConflict(ctx context.Context, account *accounts.Account, assertion Assertion) error {
	existing, err := l.identities.FindByProviderIDTx(ctx, l.repo.DB(), assertion.Provider, assertion.ProviderUserID)
	if err == nil && existing.AccountID != account.ID {
		return &AlreadyAssociatedError{
			Provider:          assertion.Provider,
			ProviderUserID:    assertion.ProviderUserID,
			ExistingAccountID: existing.AccountID.String(),
		}
	}
	return ErrProviderAlreadyLinked
}

// UnlinkIdentity removes the provider link of account. The last link can
// only go when the account has a usable password.
func (l *Ledger) UnlinkIdentity(ctx context.Context, account *accounts.Account, provider Provider) error {
	if account == nil {
		return accounts.ErrAccountNotFound
	}
	if !provider.IsValid() {
		return ErrUnsupportedProvider
	}

	return l.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// serialize unlinks of the same account
		if err := l.lockAccount(ctx, tx, account.ID); err != nil {
			return err
		}

		current, err := l.repo.Accounts().FindByIDTx(ctx, tx, account.ID)
		if err != nil {
			return err
		}

		links, err := l.identities.FindByAccountTx(ctx, tx, account.ID)
		if err != nil {
			return err
		}

		linked := false
		for _, link := range links {
			if link.Provider == provider {
				linked = true
				break
			}
		}
		if !linked {
			return ErrIdentityNotLinked
		}

		if len(links) <= 1 && !current.HasUsablePassword() {
			return ErrLastAuthMethod
		}

		n, err := l.identities.DeleteByAccountAndProviderTx(ctx, tx, account.ID, provider)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrIdentityNotLinked
		}
		return nil
	})
}

// CountLinks returns how many identities account has linked
func (l *Ledger) CountLinks(ctx context.Context, account *accounts.Account) (int, error) {
	if account == nil {
		return 0, accounts.ErrAccountNotFound
	}
	return l.identities.CountByAccountTx(ctx, l.repo.DB(), account.ID)
}

// HasUsablePassword reports whether account can log in with a local password
func (l *Ledger) HasUsablePassword(account *accounts.Account) bool {
	return account.HasUsablePassword()
}

// CanDisconnect reports whether removing one link keeps an auth method
func (l *Ledger) CanDisconnect(ctx context.Context, account *accounts.Account) (bool, error) {
	count, err := l.CountLinks(ctx, account)
	if err != nil {
		return false, err
	}
	return count > 1 || l.HasUsablePassword(account), nil
}

// Identities lists the links of account
func (l *Ledger) Identities(ctx context.Context, account *accounts.Account) ([]*Identity, error) {
	if account == nil {
		return nil, accounts.ErrAccountNotFound
	}
	return l.identities.FindByAccountTx(ctx, l.repo.DB(), account.ID)
}

// FindAccountTx returns the account owning the asserted identity
func (l *Ledger) FindAccountTx(ctx context.Context, tx bun.IDB, assertion Assertion) (*accounts.Account, error) {
	assertion, err := normalizeAssertion(assertion)
	if err != nil {
		return nil, err
	}

	identity, err := l.identities.FindByProviderIDTx(ctx, tx, assertion.Provider, assertion.ProviderUserID)
	if err != nil {
		return nil, err
	}

	return l.repo.Accounts().FindByIDTx(ctx, tx, identity.AccountID)
}

// Settings feeds the account settings view with the linked identities
func (l *Ledger) Settings(ctx context.Context, account *accounts.Account) (map[string]any, error) {
	links, err := l.Identities(ctx, account)
	if err != nil {
		return nil, err
	}

	canDisconnect := len(links) > 1 || account.HasUsablePassword()

	return map[string]any{
		"identities":     links,
		"can_disconnect": canDisconnect,
		"providers":      Providers(),
	}, nil
}

func (l *Ledger) lockAccount(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*accounts.Account)(nil)).
		Set("updated_at = ?", l.now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to lock account")
	}
	return nil
}

func normalizeAssertion(a Assertion) (Assertion, error) {
	if !a.Provider.IsValid() {
		p, err := ParseProvider(string(a.Provider))
		if err != nil {
			return a, err
		}
		a.Provider = p
	}
	a.ProviderUserID = strings.TrimSpace(a.ProviderUserID)
	if a.ProviderUserID == "" {
		return a, ErrInvalidAssertion
	}
	a.Email = strings.TrimSpace(a.Email)
	return a, nil
}
