package accounts

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Accounts is the credential store
type Accounts interface {
	repository.Repository[*Account]

	Register(ctx context.Context, email, rawPassword string) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, email, rawPassword string) (*Account, error)

	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	ExistsWithStatus(ctx context.Context, email string, status AccountStatus) (bool, error)

	VerifyPassword(account *Account, rawPassword string) bool
	SetPassword(ctx context.Context, account *Account, rawPassword string) error
	SetPasswordTx(ctx context.Context, tx bun.IDB, account *Account, rawPassword string) error

	SetStatus(ctx context.Context, account *Account, status AccountStatus) error
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, from, to AccountStatus, opts ...StatusUpdateOption) (*Account, error)

	TrackLoginTx(ctx context.Context, tx bun.IDB, account *Account) error
}

// AccountsOption configures the accounts repository
type AccountsOption func(*accounts)

// WithAccountsHasher overrides the password hasher
func WithAccountsHasher(hasher PasswordHasher) AccountsOption {
	return func(a *accounts) {
		if hasher != nil {
			a.hasher = hasher
		}
	}
}

// WithAccountsClock injects a custom clock (useful for tests)
func WithAccountsClock(clock func() time.Time) AccountsOption {
	return func(a *accounts) {
		if clock != nil {
			a.now = clock
		}
	}
}

// WithDeterministicIDs derives account ids from the email using hashid
func WithDeterministicIDs(enabled bool) AccountsOption {
	return func(a *accounts) {
		a.deterministicIDs = enabled
	}
}

type accounts struct {
	repository.Repository[*Account]
	db               *bun.DB
	hasher           PasswordHasher
	now              func() time.Time
	deterministicIDs bool
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

// NewAccountsRepository returns a bun backed credential store
func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoAccounts := &accounts{
		Repository: repo,
		db:         db,
		hasher:     NewBcryptHasher(0),
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoAccounts)
		}
	}
	return repoAccounts
}

func (a *accounts) Register(ctx context.Context, email, rawPassword string) (*Account, error) {
	return a.RegisterTx(ctx, a.db, email, rawPassword)
}

func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, email, rawPassword string) (*Account, error) {
	hash, err := a.hasher.Hash(rawPassword)
	if err != nil {
		return nil, err
	}

	return a.CreateTx(ctx, tx, &Account{
		Email:        email,
		PasswordHash: hash,
		Status:       AccountStatusUnverified,
	})
}

func (a *accounts) Create(ctx context.Context, record *Account) (*Account, error) {
	return a.CreateTx(ctx, a.db, record)
}

// CreateTx normalizes the email and refuses a second account for it.
func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	if record == nil {
		return nil, errors.New("account record is nil")
	}

	record.Email = NormalizeEmail(record.Email)
	record.EnsureStatus()

	if _, err := a.Repository.GetByIdentifierTx(ctx, tx, record.Email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !repository.IsRecordNotFound(err) {
		return nil, errors.Wrap(err, "failed to check email uniqueness")
	}

	if record.ID == uuid.Nil {
		record.ID = a.newID(record.Email)
	}

	now := a.now()
	record.CreatedAt = now
	record.UpdatedAt = now

	created, err := a.Repository.CreateTx(ctx, tx, record)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, errors.Wrap(err, "failed to insert account")
	}

	return created, nil
}

func (a *accounts) newID(email string) uuid.UUID {
	if a.deterministicIDs {
		if id, err := hashid.NewUUID(email); err == nil {
			return id
		}
	}
	return uuid.New()
}

func (a *accounts) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return a.FindByIDTx(ctx, a.db, id)
}

func (a *accounts) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Account, error) {
	record, err := a.Repository.GetByIDTx(ctx, tx, id.String())
	return foundAccount(record, err, "id")
}

func (a *accounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *accounts) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record, err := a.Repository.GetByIdentifierTx(ctx, tx, NormalizeEmail(email))
	return foundAccount(record, err, "email")
}

func foundAccount(record *Account, err error, column string) (*Account, error) {
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, errors.Wrapf(err, "failed to find account by %s", column)
	}
	record.EnsureStatus()
	return record, nil
}

func (a *accounts) ExistsWithStatus(ctx context.Context, email string, status AccountStatus) (bool, error) {
	_, err := a.Repository.Get(ctx,
		repository.SelectBy("email", "=", NormalizeEmail(email)),
		repository.SelectBy("status", "=", string(status)),
	)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to look up account")
	}
	return true, nil
}

func (a *accounts) VerifyPassword(account *Account, rawPassword string) bool {
	if !account.HasUsablePassword() || rawPassword == "" {
		return false
	}
	return a.hasher.Compare(rawPassword, account.PasswordHash) == nil
}

func (a *accounts) SetPassword(ctx context.Context, account *Account, rawPassword string) error {
	return a.SetPasswordTx(ctx, a.db, account, rawPassword)
}

func (a *accounts) SetPasswordTx(ctx context.Context, tx bun.IDB, account *Account, rawPassword string) error {
	if account == nil {
		return ErrAccountNotFound
	}

	hash, err := a.hasher.Hash(rawPassword)
	if err != nil {
		return err
	}

	now := a.now()
	update := &Account{
		ID:                account.ID,
		PasswordHash:      hash,
		PasswordChangedAt: &now,
		UpdatedAt:         now,
	}
	if _, err := a.Repository.UpdateTx(ctx, tx, update,
		repository.UpdateColumns("password_hash", "password_changed_at", "updated_at"),
	); err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrAccountNotFound
		}
		return errors.Wrap(err, "failed to update password")
	}

	account.PasswordHash = hash
	account.PasswordChangedAt = &now
	account.UpdatedAt = now
	return nil
}

func (a *accounts) SetStatus(ctx context.Context, account *Account, status AccountStatus) error {
	if account == nil {
		return ErrAccountNotFound
	}
	account.EnsureStatus()
	updated, err := a.UpdateStatusTx(ctx, a.db, account.ID, account.Status, status)
	if err != nil {
		return err
	}
	*account = *updated
	return nil
}

// StatusUpdateOption allows callers to stamp extra columns during a status change
type StatusUpdateOption func(*statusUpdate)

type statusUpdate struct {
	activatedAt   *time.Time
	deactivatedAt *time.Time
}

// WithActivatedAt records the activation timestamp
func WithActivatedAt(at time.Time) StatusUpdateOption {
	return func(u *statusUpdate) {
		u.activatedAt = &at
	}
}

// WithDeactivatedAt records the deactivation timestamp
func WithDeactivatedAt(at time.Time) StatusUpdateOption {
	return func(u *statusUpdate) {
		u.deactivatedAt = &at
	}
}

// UpdateStatusTx moves id from one status to another. The update only applies
// while the stored status still equals from, otherwise ErrStaleStatus.
func (a *accounts) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, from, to AccountStatus, opts ...StatusUpdateOption) (*Account, error) {
	update := &statusUpdate{}
	for _, opt := range opts {
		if opt != nil {
			opt(update)
		}
	}

	q := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", a.now()).
		Where("id = ?", id).
		Where("status = ?", from)

	if update.activatedAt != nil {
		q = q.Set("activated_at = ?", *update.activatedAt)
	}
	if update.deactivatedAt != nil {
		q = q.Set("deactivated_at = ?", *update.deactivatedAt)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update account status")
	}
	if !affected(res) {
		return nil, ErrStaleStatus
	}

	return a.FindByIDTx(ctx, tx, id)
}

func (a *accounts) TrackLoginTx(ctx context.Context, tx bun.IDB, account *Account) error {
	if account == nil {
		return ErrAccountNotFound
	}
	now := a.now()
	update := &Account{ID: account.ID, LoggedInAt: &now}
	if _, err := a.Repository.UpdateTx(ctx, tx, update, repository.UpdateColumns("logged_in_at")); err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrAccountNotFound
		}
		return errors.Wrap(err, "failed to track login")
	}
	account.LoggedInAt = &now
	return nil
}

func affected(res sql.Result) bool {
	if res == nil {
		return false
	}
	n, err := res.RowsAffected()
	return err == nil && n > 0
}

func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
