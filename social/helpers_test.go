package social_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/repository"
	"github.com/goliatone/go-accounts/social"
)

const localPassword = "Str0ng!Pass"

type coreConfig struct{}

func (coreConfig) GetSigningKey() string                  { return "social-test-signing-key-0123456789abcdef" }
func (coreConfig) GetIssuer() string                      { return "go-accounts-social-test" }
func (coreConfig) GetSessionDuration() time.Duration      { return time.Hour }
func (coreConfig) GetActivationWindow() time.Duration     { return time.Hour }
func (coreConfig) GetPasswordResetTimeout() time.Duration { return time.Hour }
func (coreConfig) GetBaseURL() string                     { return "http://localhost:8080" }
func (coreConfig) GetContextKey() string                  { return "session" }
func (coreConfig) GetTokenLookup() string                 { return "header:Authorization" }
func (coreConfig) GetCookieName() string                  { return "session" }
func (coreConfig) GetCookieSecure() bool                  { return false }
func (coreConfig) GetRecoveryURL() string                 { return "/accounts/login" }

type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

type socialFixture struct {
	db     *bun.DB
	repo   accounts.RepositoryManager
	core   *accounts.Service
	ledger *social.Ledger
	svc    *social.Service
}

func newSocialFixture(t *testing.T) *socialFixture {
	t.Helper()
	ctx := context.Background()

	sqldb, err := sql.Open(sqliteshim.ShimName, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, accounts.Migrate(ctx, db))
	require.NoError(t, repository.MigrateSocialIdentities(ctx, db))

	repo := accounts.NewRepositoryManager(db, accounts.WithAccountsHasher(accounts.NewBcryptHasher(bcrypt.MinCost)))
	core := accounts.NewService(repo, coreConfig{}, accounts.WithServiceLogger(quietLogger{}))
	ledger := social.NewLedger(repo, repository.NewSocialIdentityRepository(db))

	return &socialFixture{
		db:     db,
		repo:   repo,
		core:   core,
		ledger: ledger,
		svc:    social.NewService(core, ledger),
	}
}

// localAccount inserts an active account owning a usable password
func (f *socialFixture) localAccount(t *testing.T, email string) *accounts.Account {
	t.Helper()
	ctx := context.Background()
	account, err := f.repo.Accounts().Register(ctx, email, localPassword)
	require.NoError(t, err)
	require.NoError(t, f.repo.Accounts().SetStatus(ctx, account, accounts.AccountStatusActive))
	return account
}

// socialAccount signs up through provider and returns the new account and session
func (f *socialFixture) socialAccount(t *testing.T, provider social.Provider, uid, email string) (*accounts.Account, *accounts.SessionObject) {
	t.Helper()
	res, err := f.svc.Login(context.Background(), social.LoginMessage{
		Assertion: social.Assertion{Provider: provider, ProviderUserID: uid, Email: email},
	})
	require.NoError(t, err)
	require.True(t, res.OK(), "social login failed: %+v", res)
	return res.Account, res.Session
}

func (f *socialFixture) session(t *testing.T, account *accounts.Account) *accounts.SessionObject {
	t.Helper()
	_, session, err := f.core.Sessions().CreateTx(context.Background(), f.db, account)
	require.NoError(t, err)
	return session
}

func (f *socialFixture) reload(t *testing.T, account *accounts.Account) *accounts.Account {
	t.Helper()
	fresh, err := f.repo.Accounts().FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	return fresh
}
