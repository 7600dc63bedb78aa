package accounts_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
)

func TestServiceRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.Register(ctx, accounts.RegisterMessage{
		Email:     "alice@Example.com",
		Password1: testPassword,
		Password2: testPassword,
	})
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, accounts.MessageRegistered, res.Message)
	assert.Equal(t, "alice@example.com", res.Account.Email)
	assert.Equal(t, accounts.AccountStatusUnverified, res.Account.Status)

	sent := f.sink.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].To)
	assert.Equal(t, accounts.SubjectProfileActivation, sent[0].Subject)
	assert.Contains(t, sent[0].Body, testBaseURL+"/accounts/activate/")

	assert.Contains(t, f.activity.Types(), accounts.ActivityEventAccountRegistered)
}

func TestServiceRegisterFieldErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "taken@example.com")

	cases := []struct {
		name   string
		msg    accounts.RegisterMessage
		expect map[string]accounts.ErrorCode
	}{
		{
			name:   "all blank",
			msg:    accounts.RegisterMessage{},
			expect: map[string]accounts.ErrorCode{"email": accounts.CodeRequired, "password1": accounts.CodeRequired, "password2": accounts.CodeRequired},
		},
		{
			name:   "invalid email",
			msg:    accounts.RegisterMessage{Email: "not-an-email", Password1: testPassword, Password2: testPassword},
			expect: map[string]accounts.ErrorCode{"email": accounts.CodeInvalid},
		},
		{
			name:   "taken email with other domain case",
			msg:    accounts.RegisterMessage{Email: "taken@EXAMPLE.com", Password1: testPassword, Password2: testPassword},
			expect: map[string]accounts.ErrorCode{"email": accounts.CodeEmailAlreadyExists},
		},
		{
			name:   "mismatch",
			msg:    accounts.RegisterMessage{Email: "new@example.com", Password1: testPassword, Password2: otherPassword},
			expect: map[string]accounts.ErrorCode{"password2": accounts.CodePasswordMismatch},
		},
		{
			name:   "weak",
			msg:    accounts.RegisterMessage{Email: "new@example.com", Password1: "12345678", Password2: "12345678"},
			expect: map[string]accounts.ErrorCode{"password1": accounts.CodeWeakPassword},
		},
		{
			name:   "longer than the hasher accepts",
			msg:    accounts.RegisterMessage{Email: "new@example.com", Password1: longPassword, Password2: longPassword},
			expect: map[string]accounts.ErrorCode{"password1": accounts.CodeWeakPassword},
		},
		{
			name: "every problem reported together",
			msg:  accounts.RegisterMessage{Email: "taken@example.com", Password1: "password", Password2: "passw0rd"},
			expect: map[string]accounts.ErrorCode{
				"email":     accounts.CodeEmailAlreadyExists,
				"password2": accounts.CodePasswordMismatch,
				"password1": accounts.CodeWeakPassword,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := f.svc.Register(ctx, tc.msg)
			require.NoError(t, err)
			assert.False(t, res.OK())
			assert.Nil(t, res.Account)
			require.Len(t, res.Errors, len(tc.expect))
			for field, code := range tc.expect {
				assert.Equal(t, code, res.Errors.Code(field), field)
			}
		})
	}

	_, err := f.repo.Accounts().FindByEmail(ctx, "new@example.com")
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
	assert.Len(t, f.sink.Sent(), 1)
}

func TestServiceRegisterLongPasswordWithCustomPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	svc := accounts.NewService(f.repo, f.cfg,
		accounts.WithServiceLogger(nopLogger{}),
		accounts.WithPasswordPolicy(accounts.PasswordPolicyFunc(func(string) error { return nil })),
	)

	res, err := svc.Register(ctx, accounts.RegisterMessage{
		Email:     "long@example.com",
		Password1: longPassword,
		Password2: longPassword,
	})
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, accounts.CodeWeakPassword, res.Errors.Code("password1"))
	assert.Contains(t, res.Errors["password1"].Message, "too long")

	_, err = f.repo.Accounts().FindByEmail(ctx, "long@example.com")
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
}

func TestServiceConcurrentRegistration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan *accounts.RegisterResponse, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Register(ctx, accounts.RegisterMessage{
				Email:     "race@example.com",
				Password1: testPassword,
				Password2: testPassword,
			})
			if err == nil {
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)

	created, refused := 0, 0
	for res := range results {
		if res.OK() {
			created++
			continue
		}
		assert.Equal(t, accounts.CodeEmailAlreadyExists, res.Errors.Code("email"))
		refused++
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, refused)
	assert.Len(t, f.sink.Sent(), 1)
}

func TestServiceActivateMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice@example.com")
	code := f.activationCode(t)

	res, err := f.svc.Activate(ctx, accounts.ActivateMessage{Code: code})
	require.NoError(t, err)
	assert.Equal(t, accounts.ActivationActivated, res.Outcome)
	assert.Equal(t, accounts.MessageActivated, res.Message)

	res, err = f.svc.Activate(ctx, accounts.ActivateMessage{Code: code})
	require.NoError(t, err)
	assert.Equal(t, accounts.ActivationNotFound, res.Outcome)
	assert.Equal(t, accounts.MessageActivationNotFound, res.Message)
}

func TestServiceActivateExpiredMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "alice@example.com")
	code := f.activationCode(t)

	f.clock.Advance(accounts.DefaultActivationWindow + 1)

	res, err := f.svc.Activate(ctx, accounts.ActivateMessage{Code: code})
	require.NoError(t, err)
	assert.Equal(t, accounts.ActivationExpired, res.Outcome)
	assert.Equal(t, accounts.MessageActivationExpired, res.Message)
}

func TestServiceResendActivation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.ResendActivation(ctx, accounts.ResendActivationMessage{Email: "ghost@example.com"})
	require.NoError(t, err)
	assert.Equal(t, accounts.CodeEmailNotRegistered, res.Errors.Code("email"))

	res, err = f.svc.ResendActivation(ctx, accounts.ResendActivationMessage{Email: "nope"})
	require.NoError(t, err)
	assert.Equal(t, accounts.CodeInvalid, res.Errors.Code("email"))

	f.register(t, "pending@example.com")
	res, err = f.svc.ResendActivation(ctx, accounts.ResendActivationMessage{Email: "pending@example.com"})
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, accounts.MessageActivationResent, res.Message)
	assert.Len(t, f.sink.Sent(), 2)
	assert.Contains(t, f.activity.Types(), accounts.ActivityEventActivationIssued)

	active := f.registerActive(t, "active@example.com")
	res, err = f.svc.ResendActivation(ctx, accounts.ResendActivationMessage{Email: active.Email})
	require.NoError(t, err)
	assert.Equal(t, accounts.CodeAlreadyActive, res.Errors.Code("email"))
	assert.Equal(t, accounts.MessageAlreadyActive, res.Errors.Messages()["email"])

	login := f.login(t, active.Email, testPassword)
	_, err = f.svc.Deactivate(ctx, accounts.DeactivateMessage{Session: login.Session})
	require.NoError(t, err)

	res, err = f.svc.ResendActivation(ctx, accounts.ResendActivationMessage{Email: active.Email})
	require.NoError(t, err)
	assert.Equal(t, accounts.CodeAccountDeactivated, res.Errors.Code("email"))
}

func TestServiceLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "pending@example.com")
	active := f.registerActive(t, "alice@example.com")

	cases := []struct {
		name   string
		msg    accounts.LoginMessage
		expect map[string]accounts.ErrorCode
	}{
		{
			name:   "blank",
			msg:    accounts.LoginMessage{},
			expect: map[string]accounts.ErrorCode{"email": accounts.CodeRequired, "password": accounts.CodeRequired},
		},
		{
			name:   "unknown email",
			msg:    accounts.LoginMessage{Email: "ghost@example.com", Password: testPassword},
			expect: map[string]accounts.ErrorCode{"email": accounts.CodeEmailNotRegistered},
		},
		{
			name:   "unverified",
			msg:    accounts.LoginMessage{Email: "pending@example.com", Password: testPassword},
			expect: map[string]accounts.ErrorCode{"email": accounts.CodeEmailNotVerified},
		},
		{
			name:   "unverified with wrong password only reports the email",
			msg:    accounts.LoginMessage{Email: "pending@example.com", Password: "wrong"},
			expect: map[string]accounts.ErrorCode{"email": accounts.CodeEmailNotVerified},
		},
		{
			name:   "wrong password",
			msg:    accounts.LoginMessage{Email: "alice@example.com", Password: otherPassword},
			expect: map[string]accounts.ErrorCode{"password": accounts.CodeIncorrectPassword},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := f.svc.Login(ctx, tc.msg)
			require.NoError(t, err)
			assert.False(t, res.OK())
			assert.Empty(t, res.Token)
			assert.Equal(t, accounts.MessageLoginFailed, res.Message)
			require.Len(t, res.Errors, len(tc.expect))
			for field, code := range tc.expect {
				assert.Equal(t, code, res.Errors.Code(field), field)
			}
		})
	}

	res := f.login(t, "alice@EXAMPLE.com", testPassword)
	assert.Equal(t, accounts.MessageLoggedIn, res.Message)
	assert.Equal(t, active.ID, res.Account.ID)
	require.NotNil(t, res.Session)

	stored := f.account(t, active.ID)
	require.NotNil(t, stored.LoggedInAt)
	assert.True(t, stored.LoggedInAt.Equal(f.clock.Now()))

	types := f.activity.Types()
	assert.Contains(t, types, accounts.ActivityEventLoginFailure)
	assert.Contains(t, types, accounts.ActivityEventLoginSuccess)

	session, err := f.svc.Sessions().Validate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Session.ID, session.ID)
}

func TestServiceLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registerActive(t, "alice@example.com")

	first := f.login(t, "alice@example.com", testPassword)
	second := f.login(t, "alice@example.com", testPassword)

	res, err := f.svc.Logout(ctx, accounts.LogoutMessage{Session: first.Session})
	require.NoError(t, err)
	assert.Equal(t, accounts.MessageLoggedOut, res.Message)

	_, err = f.svc.Sessions().Validate(ctx, first.Token)
	assert.ErrorIs(t, err, accounts.ErrSessionRevoked)

	_, err = f.svc.Sessions().Validate(ctx, second.Token)
	assert.NoError(t, err)

	_, err = f.svc.Logout(accounts.WithSessionContext(ctx, second.Session), accounts.LogoutMessage{})
	require.NoError(t, err)
	_, err = f.svc.Sessions().Validate(ctx, second.Token)
	assert.ErrorIs(t, err, accounts.ErrSessionRevoked)

	_, err = f.svc.Logout(ctx, accounts.LogoutMessage{})
	assert.ErrorIs(t, err, accounts.ErrUnableToFindSession)
}

func TestServiceChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	account := f.registerActive(t, "alice@example.com")
	first := f.login(t, "alice@example.com", testPassword)
	second := f.login(t, "alice@example.com", testPassword)

	res, err := f.svc.ChangePassword(ctx, accounts.ChangePasswordMessage{
		Session:            first.Session,
		Password1:          otherPassword,
		Password2:          otherPassword,
		RequireOldPassword: true,
	})
	require.NoError(t, err)
	assert.Equal(t, accounts.CodePasswordRequired, res.Errors.Code("old_password"))

	res, err = f.svc.ChangePassword(ctx, accounts.ChangePasswordMessage{
		Session:            first.Session,
		OldPassword:        "wrong-password",
		Password1:          otherPassword,
		Password2:          "different",
		RequireOldPassword: true,
	})
	require.NoError(t, err)
	assert.Equal(t, accounts.CodeIncorrectPassword, res.Errors.Code("old_password"))
	assert.Equal(t, accounts.CodePasswordMismatch, res.Errors.Code("password2"))

	res, err = f.svc.ChangePassword(ctx, accounts.ChangePasswordMessage{
		Session:            first.Session,
		OldPassword:        testPassword,
		Password1:          otherPassword,
		Password2:          otherPassword,
		RequireOldPassword: true,
	})
	require.NoError(t, err)
	require.True(t, res.OK(), "%v", res.Errors)
	assert.Equal(t, accounts.MessagePasswordChanged, res.Message)
	assert.Equal(t, int64(2), res.RevokedSessions)

	for _, token := range []string{first.Token, second.Token} {
		_, err = f.svc.Sessions().Validate(ctx, token)
		assert.ErrorIs(t, err, accounts.ErrSessionRevoked)
	}

	stored := f.account(t, account.ID)
	assert.True(t, f.repo.Accounts().VerifyPassword(stored, otherPassword))
	assert.False(t, f.repo.Accounts().VerifyPassword(stored, testPassword))
	assert.Contains(t, f.activity.Types(), accounts.ActivityEventPasswordChanged)
}

func TestServiceChangePasswordWithoutOldPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registerActive(t, "alice@example.com")
	login := f.login(t, "alice@example.com", testPassword)

	res, err := f.svc.ChangePassword(accounts.WithSessionContext(ctx, login.Session), accounts.ChangePasswordMessage{
		Password1: otherPassword,
		Password2: otherPassword,
	})
	require.NoError(t, err)
	require.True(t, res.OK())

	f.login(t, "alice@example.com", otherPassword)
}

func TestServiceChangePasswordRequiresSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ChangePassword(context.Background(), accounts.ChangePasswordMessage{
		Password1: otherPassword,
		Password2: otherPassword,
	})
	assert.ErrorIs(t, err, accounts.ErrUnableToFindSession)
}

func TestServiceSetPasswordForSocialAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	account, err := f.repo.Accounts().CreateTx(ctx, f.db, &accounts.Account{
		Email:        "social@example.com",
		PasswordHash: accounts.UnusablePasswordHash(),
		Status:       accounts.AccountStatusActive,
	})
	require.NoError(t, err)
	require.False(t, account.HasUsablePassword())

	_, session, err := f.svc.Sessions().CreateTx(ctx, f.db, account)
	require.NoError(t, err)

	res, err := f.svc.SetPassword(ctx, accounts.SetPasswordMessage{
		Session:   session,
		Password1: testPassword,
		Password2: testPassword,
	})
	require.NoError(t, err)
	require.True(t, res.OK(), "%v", res.Errors)
	assert.Equal(t, int64(1), res.RevokedSessions)

	stored := f.account(t, account.ID)
	assert.True(t, stored.HasUsablePassword())
	f.login(t, "social@example.com", testPassword)
}

func TestServiceSetPasswordRequiresCurrentPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registerActive(t, "alice@example.com")
	login := f.login(t, "alice@example.com", testPassword)

	res, err := f.svc.SetPassword(ctx, accounts.SetPasswordMessage{
		Session:   login.Session,
		Password1: otherPassword,
		Password2: otherPassword,
	})
	require.NoError(t, err)
	assert.Equal(t, accounts.CodePasswordRequired, res.Errors.Code("old_password"))

	res, err = f.svc.SetPassword(ctx, accounts.SetPasswordMessage{
		Session:     login.Session,
		OldPassword: testPassword,
		Password1:   otherPassword,
		Password2:   otherPassword,
	})
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestServiceForgotPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "pending@example.com")
	f.registerActive(t, "alice@example.com")
	sent := len(f.sink.Sent())

	res, err := f.svc.ForgotPassword(ctx, accounts.ForgotPasswordMessage{Email: "ghost@example.com"})
	require.NoError(t, err)
	assert.Equal(t, accounts.CodeEmailNotRegistered, res.Errors.Code("email"))

	res, err = f.svc.ForgotPassword(ctx, accounts.ForgotPasswordMessage{Email: "pending@example.com"})
	require.NoError(t, err)
	assert.Equal(t, accounts.CodeEmailNotVerified, res.Errors.Code("email"))

	res, err = f.svc.ForgotPassword(ctx, accounts.ForgotPasswordMessage{Email: ""})
	require.NoError(t, err)
	assert.Equal(t, accounts.CodeRequired, res.Errors.Code("email"))

	assert.Len(t, f.sink.Sent(), sent)

	res, err = f.svc.ForgotPassword(ctx, accounts.ForgotPasswordMessage{Email: "alice@example.com"})
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, accounts.MessageResetLinkSent, res.Message)

	mail := f.sink.Last(t)
	assert.Equal(t, "alice@example.com", mail.To)
	assert.Equal(t, accounts.SubjectRestorePassword, mail.Subject)
	assert.Contains(t, mail.Body, testBaseURL+"/accounts/restore-password/")
	assert.Contains(t, f.activity.Types(), accounts.ActivityEventPasswordResetRequest)
}

func TestServiceConfirmPasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	account := f.registerActive(t, "alice@example.com")
	f.registerActive(t, "bob@example.com")
	bob := f.login(t, "bob@example.com", testPassword)

	_, err := f.svc.ForgotPassword(ctx, accounts.ForgotPasswordMessage{Email: "alice@example.com"})
	require.NoError(t, err)
	ref, token := f.resetLink(t)

	res, err := f.svc.ConfirmPasswordReset(ctx, accounts.ConfirmPasswordResetMessage{
		Ref:       ref,
		Token:     "garbage",
		Password1: otherPassword,
		Password2: "different",
	})
	require.NoError(t, err)
	assert.False(t, res.InvalidLink)
	assert.Equal(t, accounts.CodePasswordMismatch, res.Errors.Code("password2"))

	res, err = f.svc.ConfirmPasswordReset(ctx, accounts.ConfirmPasswordResetMessage{
		Ref:       ref,
		Token:     token,
		Password1: otherPassword,
		Password2: otherPassword,
		Session:   bob.Session,
	})
	require.NoError(t, err)
	require.True(t, res.OK(), "%v", res.Errors)
	assert.False(t, res.InvalidLink)
	assert.Equal(t, accounts.MessagePasswordChanged, res.Message)

	stored := f.account(t, account.ID)
	assert.True(t, f.repo.Accounts().VerifyPassword(stored, otherPassword))

	_, err = f.svc.Sessions().Validate(ctx, bob.Token)
	assert.ErrorIs(t, err, accounts.ErrSessionRevoked)

	res, err = f.svc.ConfirmPasswordReset(ctx, accounts.ConfirmPasswordResetMessage{
		Ref:       ref,
		Token:     token,
		Password1: "Y3t!Another",
		Password2: "Y3t!Another",
	})
	require.NoError(t, err)
	assert.True(t, res.InvalidLink)
	assert.Equal(t, accounts.MessageInvalidOrExpiredLink, res.Message)
}

func TestServiceDeactivate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	account := f.registerActive(t, "alice@example.com")
	first := f.login(t, "alice@example.com", testPassword)
	second := f.login(t, "alice@example.com", testPassword)

	res, err := f.svc.Deactivate(ctx, accounts.DeactivateMessage{Session: first.Session, Reason: "leaving"})
	require.NoError(t, err)
	assert.Equal(t, accounts.MessageDeactivated, res.Message)

	stored := f.account(t, account.ID)
	assert.True(t, stored.IsDeactivated())
	assert.NotNil(t, stored.DeactivatedAt)

	for _, token := range []string{first.Token, second.Token} {
		_, err = f.svc.Sessions().Validate(ctx, token)
		assert.ErrorIs(t, err, accounts.ErrSessionRevoked)
	}

	login, err := f.svc.Login(ctx, accounts.LoginMessage{Email: "alice@example.com", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, accounts.CodeEmailNotVerified, login.Errors.Code("email"))

	forgot, err := f.svc.ForgotPassword(ctx, accounts.ForgotPasswordMessage{Email: "alice@example.com"})
	require.NoError(t, err)
	assert.Equal(t, accounts.CodeEmailNotVerified, forgot.Errors.Code("email"))

	assert.Contains(t, f.activity.Types(), accounts.ActivityEventAccountStatusChanged)
}

func TestServiceCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Register(ctx, accounts.RegisterMessage{Email: "alice@example.com", Password1: testPassword, Password2: testPassword})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServiceResetFlowEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	reg, err := f.svc.Register(ctx, accounts.RegisterMessage{
		Email:     "alice@example.com",
		Password1: "Str0ng!Pass",
		Password2: "Str0ng!Pass",
	})
	require.NoError(t, err)
	require.True(t, reg.OK())

	activated, err := f.svc.Activate(ctx, accounts.ActivateMessage{Code: f.activationCode(t)})
	require.NoError(t, err)
	require.Equal(t, accounts.ActivationActivated, activated.Outcome)

	login := f.login(t, "alice@example.com", "Str0ng!Pass")

	forgot, err := f.svc.ForgotPassword(ctx, accounts.ForgotPasswordMessage{Email: "alice@example.com"})
	require.NoError(t, err)
	require.True(t, forgot.OK())
	ref, token := f.resetLink(t)

	confirm, err := f.svc.ConfirmPasswordReset(ctx, accounts.ConfirmPasswordResetMessage{
		Ref:       ref,
		Token:     token,
		Password1: "N3w!Secret",
		Password2: "N3w!Secret",
	})
	require.NoError(t, err)
	require.True(t, confirm.OK())
	assert.Equal(t, int64(1), confirm.RevokedSessions)

	_, err = f.svc.Sessions().Validate(ctx, login.Token)
	assert.ErrorIs(t, err, accounts.ErrSessionRevoked)

	stale, err := f.svc.Login(ctx, accounts.LoginMessage{Email: "alice@example.com", Password: "Str0ng!Pass"})
	require.NoError(t, err)
	assert.Equal(t, accounts.CodeIncorrectPassword, stale.Errors.Code("password"))

	f.login(t, "alice@example.com", "N3w!Secret")

	again, err := f.svc.ConfirmPasswordReset(ctx, accounts.ConfirmPasswordResetMessage{
		Ref:       ref,
		Token:     token,
		Password1: "Y3t!Another",
		Password2: "Y3t!Another",
	})
	require.NoError(t, err)
	assert.True(t, again.InvalidLink)
}
