package accounts_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
)

func TestActivationIssuerActivatesAndPurgesCodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	account := f.register(t, "alice@example.com")
	first := f.activationCode(t)

	_, err := f.svc.ResendActivation(ctx, accounts.ResendActivationMessage{Email: "alice@example.com"})
	require.NoError(t, err)
	second := f.activationCode(t)
	require.NotEqual(t, first, second)

	tokens, err := f.repo.ActivationTokens().ListByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Len(t, tokens, 2)

	outcome, activated, err := f.svc.Activations().Validate(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, accounts.ActivationActivated, outcome)
	require.NotNil(t, activated)
	assert.True(t, activated.IsActive())
	assert.NotNil(t, activated.ActivatedAt)

	tokens, err = f.repo.ActivationTokens().ListByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	outcome, _, err = f.svc.Activations().Validate(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, accounts.ActivationNotFound, outcome)
}

func TestActivationIssuerDoubleUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.register(t, "bob@example.com")
	code := f.activationCode(t)

	outcome, _, err := f.svc.Activations().Validate(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, accounts.ActivationActivated, outcome)

	outcome, account, err := f.svc.Activations().Validate(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, accounts.ActivationNotFound, outcome)
	assert.Nil(t, account)
}

func TestActivationIssuerExpiredLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig{activationWindow: time.Hour})

	account := f.register(t, "carol@example.com")
	code := f.activationCode(t)

	f.clock.Advance(time.Hour + time.Minute)

	outcome, _, err := f.svc.Activations().Validate(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, accounts.ActivationExpired, outcome)

	assert.True(t, f.account(t, account.ID).IsUnverified())

	tokens, err := f.repo.ActivationTokens().ListByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Len(t, tokens, 1)

	// the expired code keeps reporting expired, a fresh one works
	outcome, _, err = f.svc.Activations().Validate(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, accounts.ActivationExpired, outcome)

	_, err = f.svc.ResendActivation(ctx, accounts.ResendActivationMessage{Email: "carol@example.com"})
	require.NoError(t, err)

	outcome, _, err = f.svc.Activations().Validate(ctx, f.activationCode(t))
	require.NoError(t, err)
	assert.Equal(t, accounts.ActivationActivated, outcome)
}

func TestActivationIssuerUnknownCodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, code := range []string{"", "not-a-uuid", "6f1c1e4e-2b54-4b8a-9e44-7c1f0c9d2a11"} {
		outcome, account, err := f.svc.Activations().Validate(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, accounts.ActivationNotFound, outcome, code)
		assert.Nil(t, account)
	}
}

func TestActivationIssuerConcurrentUseHasOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	account := f.register(t, "dave@example.com")
	code := f.activationCode(t)

	const workers = 8
	outcomes := make(chan accounts.ActivationOutcome, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.Activate(ctx, accounts.ActivateMessage{Code: code})
			if assert.NoError(t, err) {
				outcomes <- res.Outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	counts := map[accounts.ActivationOutcome]int{}
	for outcome := range outcomes {
		counts[outcome]++
	}

	assert.Equal(t, 1, counts[accounts.ActivationActivated])
	assert.Equal(t, workers-1, counts[accounts.ActivationNotFound])
	assert.True(t, f.account(t, account.ID).IsActive())
}

func TestActivationIssuerIssueRequiresAccount(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Activations().Issue(context.Background(), nil)
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
	assert.Equal(t, accounts.DefaultActivationWindow, f.svc.Activations().Window())
}
