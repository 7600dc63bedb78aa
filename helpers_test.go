package accounts_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	"github.com/goliatone/go-accounts"
)

const (
	testSigningKey = "test-signing-key-test-signing-key-0123456789"
	testIssuer     = "go-accounts-test"
	testBaseURL    = "http://localhost:8080"
	testPassword   = "Str0ng!Pass"
	otherPassword  = "An0ther!Secret"
)

// longPassword passes the strength rules but exceeds what bcrypt hashes
var longPassword = "Aa1!" + strings.Repeat("x", 96)

type testConfig struct {
	activationWindow time.Duration
	resetTimeout     time.Duration
	sessionDuration  time.Duration
}

func (c testConfig) GetSigningKey() string { return testSigningKey }
func (c testConfig) GetIssuer() string     { return testIssuer }
func (c testConfig) GetSessionDuration() time.Duration {
	if c.sessionDuration == 0 {
		return accounts.DefaultSessionDuration
	}
	return c.sessionDuration
}
func (c testConfig) GetActivationWindow() time.Duration {
	if c.activationWindow == 0 {
		return accounts.DefaultActivationWindow
	}
	return c.activationWindow
}
func (c testConfig) GetPasswordResetTimeout() time.Duration {
	if c.resetTimeout == 0 {
		return accounts.DefaultPasswordResetTimeout
	}
	return c.resetTimeout
}
func (c testConfig) GetBaseURL() string     { return testBaseURL }
func (c testConfig) GetContextKey() string  { return "session" }
func (c testConfig) GetTokenLookup() string { return "header:Authorization,cookie:session" }
func (c testConfig) GetCookieName() string  { return "session" }
func (c testConfig) GetCookieSecure() bool  { return false }
func (c testConfig) GetRecoveryURL() string { return "/accounts/login" }

// testClock is a settable clock shared by every component of a fixture
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingSink struct {
	mu    sync.Mutex
	mails []sentMail
}

func (s *recordingSink) Enqueue(recipient, subject, bodyHTML string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mails = append(s.mails, sentMail{To: recipient, Subject: subject, Body: bodyHTML})
}

func (s *recordingSink) Sent() []sentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentMail, len(s.mails))
	copy(out, s.mails)
	return out
}

func (s *recordingSink) Last(t *testing.T) sentMail {
	t.Helper()
	sent := s.Sent()
	require.NotEmpty(t, sent, "expected at least one mail")
	return sent[len(sent)-1]
}

// uriRenderer renders the link of the mail as the whole body
type uriRenderer struct{}

func (uriRenderer) Render(name string, data map[string]any) (string, error) {
	return fmt.Sprintf("%v", data["uri"]), nil
}

type activityRecorder struct {
	mu     sync.Mutex
	events []accounts.ActivityEvent
}

func (r *activityRecorder) Record(_ context.Context, event accounts.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *activityRecorder) Types() []accounts.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]accounts.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, accounts.Migrate(context.Background(), db))
	return db
}

type fixture struct {
	db       *bun.DB
	repo     accounts.RepositoryManager
	svc      *accounts.Service
	sink     *recordingSink
	mailer   *accounts.Mailer
	clock    *testClock
	activity *activityRecorder
	cfg      testConfig
}

func newFixture(t *testing.T, cfgs ...testConfig) *fixture {
	t.Helper()

	var cfg testConfig
	if len(cfgs) > 0 {
		cfg = cfgs[0]
	}

	db := newTestDB(t)
	clock := newTestClock()
	repo := accounts.NewRepositoryManager(db,
		accounts.WithAccountsHasher(accounts.NewBcryptHasher(bcrypt.MinCost)),
		accounts.WithAccountsClock(clock.Now),
	)

	sink := &recordingSink{}
	mailer := accounts.NewMailer(sink, uriRenderer{}, testBaseURL,
		accounts.WithMailerLogger(nopLogger{}),
		accounts.WithMailerActivationWindow(cfg.GetActivationWindow()),
	)
	activity := &activityRecorder{}

	svc := accounts.NewService(repo, cfg,
		accounts.WithServiceClock(clock.Now),
		accounts.WithServiceLogger(nopLogger{}),
		accounts.WithServiceActivitySink(activity),
		accounts.WithNotifier(mailer),
	)

	return &fixture{
		db:       db,
		repo:     repo,
		svc:      svc,
		sink:     sink,
		mailer:   mailer,
		clock:    clock,
		activity: activity,
		cfg:      cfg,
	}
}

func (f *fixture) register(t *testing.T, email string) *accounts.Account {
	t.Helper()
	res, err := f.svc.Register(context.Background(), accounts.RegisterMessage{
		Email:     email,
		Password1: testPassword,
		Password2: testPassword,
	})
	require.NoError(t, err)
	require.True(t, res.OK(), "register failed: %v", res.Errors)
	return res.Account
}

// activationCode returns the code linked from the last mail sent
func (f *fixture) activationCode(t *testing.T) string {
	t.Helper()
	mail := f.sink.Last(t)
	require.Equal(t, accounts.SubjectProfileActivation, mail.Subject)
	parts := linkParts(mail.Body)
	return parts[len(parts)-1]
}

// resetLink returns the ref and token linked from the last mail sent
func (f *fixture) resetLink(t *testing.T) (string, string) {
	t.Helper()
	mail := f.sink.Last(t)
	require.Equal(t, accounts.SubjectRestorePassword, mail.Subject)
	parts := linkParts(mail.Body)
	require.GreaterOrEqual(t, len(parts), 2)
	return parts[len(parts)-2], parts[len(parts)-1]
}

func (f *fixture) registerActive(t *testing.T, email string) *accounts.Account {
	t.Helper()
	f.register(t, email)
	res, err := f.svc.Activate(context.Background(), accounts.ActivateMessage{Code: f.activationCode(t)})
	require.NoError(t, err)
	require.Equal(t, accounts.ActivationActivated, res.Outcome)
	return res.Account
}

func (f *fixture) login(t *testing.T, email, password string) *accounts.LoginResponse {
	t.Helper()
	res, err := f.svc.Login(context.Background(), accounts.LoginMessage{Email: email, Password: password})
	require.NoError(t, err)
	require.True(t, res.OK(), "login failed: %v", res.Errors)
	return res
}

func (f *fixture) account(t *testing.T, id uuid.UUID) *accounts.Account {
	t.Helper()
	account, err := f.repo.Accounts().FindByID(context.Background(), id)
	require.NoError(t, err)
	return account
}

func linkParts(uri string) []string {
	return strings.Split(strings.Trim(strings.TrimPrefix(uri, testBaseURL), "/"), "/")
}
