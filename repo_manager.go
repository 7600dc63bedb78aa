package accounts

import (
	"context"
	"database/sql"
	"log"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// TransactionManager runs a function inside a store transaction
type TransactionManager interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
}

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	TransactionManager
	Validate() error
	MustValidate()
	DB() *bun.DB
	Accounts() Accounts
	ActivationTokens() ActivationTokens
	Sessions() Sessions
}

type mngr struct {
	db               *bun.DB
	accounts         Accounts
	activationTokens ActivationTokens
	sessions         Sessions
}

// NewRepositoryManager wires the bun repositories around db
func NewRepositoryManager(db *bun.DB, opts ...AccountsOption) RepositoryManager {
	return &mngr{
		db:               db,
		accounts:         NewAccountsRepository(db, opts...),
		activationTokens: NewActivationTokensRepository(db),
		sessions:         NewSessionsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("database should be initialized")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.activationTokens == nil {
		return errors.New("repository activationTokens should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) DB() *bun.DB {
	return m.db
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) ActivationTokens() ActivationTokens {
	return m.activationTokens
}

func (m mngr) Sessions() Sessions {
	return m.sessions
}
