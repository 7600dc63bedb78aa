package social_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/social"
)

func TestParseProvider(t *testing.T) {
	p, err := social.ParseProvider("  GitHub ")
	require.NoError(t, err)
	assert.Equal(t, social.ProviderGitHub, p)

	p, err = social.ParseProvider("google-oauth2")
	require.NoError(t, err)
	assert.Equal(t, social.ProviderGoogle, p)

	_, err = social.ParseProvider("myspace")
	assert.ErrorIs(t, err, social.ErrUnsupportedProvider)

	assert.Len(t, social.Providers(), 4)
}

func TestLedgerLinkIdentity(t *testing.T) {
	ctx := context.Background()
	f := newSocialFixture(t)
	alice := f.localAccount(t, "alice@example.com")

	identity, err := f.ledger.LinkIdentity(ctx, alice, social.Assertion{
		Provider:       "GitHub",
		ProviderUserID: " 42 ",
		Email:          "octo@EXAMPLE.com",
	})
	require.NoError(t, err)
	assert.Equal(t, social.ProviderGitHub, identity.Provider)
	assert.Equal(t, "42", identity.ProviderUserID)
	assert.Equal(t, "octo@example.com", identity.Email)
	assert.Equal(t, alice.ID, identity.AccountID)

	again, err := f.ledger.LinkIdentity(ctx, alice, social.Assertion{Provider: social.ProviderGitHub, ProviderUserID: "42"})
	require.NoError(t, err)
	assert.Equal(t, identity.ID, again.ID)

	count, err := f.ledger.CountLinks(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	owner, err := f.ledger.FindAccountTx(ctx, f.db, social.Assertion{Provider: social.ProviderGitHub, ProviderUserID: "42"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, owner.ID)
}

func TestLedgerLinkConflicts(t *testing.T) {
	ctx := context.Background()
	f := newSocialFixture(t)
	alice := f.localAccount(t, "alice@example.com")
	bob := f.localAccount(t, "bob@example.com")

	_, err := f.ledger.LinkIdentity(ctx, alice, social.Assertion{Provider: social.ProviderGitHub, ProviderUserID: "42"})
	require.NoError(t, err)

	_, err = f.ledger.LinkIdentity(ctx, bob, social.Assertion{Provider: social.ProviderGitHub, ProviderUserID: "42"})
	require.Error(t, err)
	assert.True(t, social.IsAlreadyAssociated(err))
	var conflict *social.AlreadyAssociatedError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, alice.ID.String(), conflict.ExistingAccountID)

	_, err = f.ledger.LinkIdentity(ctx, alice, social.Assertion{Provider: social.ProviderGitHub, ProviderUserID: "43"})
	assert.ErrorIs(t, err, social.ErrProviderAlreadyLinked)

	_, err = f.ledger.LinkIdentity(ctx, alice, social.Assertion{Provider: social.ProviderGoogle, ProviderUserID: "  "})
	assert.ErrorIs(t, err, social.ErrInvalidAssertion)

	_, err = f.ledger.LinkIdentity(ctx, alice, social.Assertion{Provider: "myspace", ProviderUserID: "1"})
	assert.ErrorIs(t, err, social.ErrUnsupportedProvider)

	_, err = f.ledger.LinkIdentity(ctx, nil, social.Assertion{Provider: social.ProviderGitHub, ProviderUserID: "1"})
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
}

func TestLedgerUnlinkKeepsOneAuthMethod(t *testing.T) {
	ctx := context.Background()
	f := newSocialFixture(t)
	account, _ := f.socialAccount(t, social.ProviderGitHub, "42", "octo@example.com")

	ok, err := f.ledger.CanDisconnect(ctx, account)
	require.NoError(t, err)
	assert.False(t, ok)

	err = f.ledger.UnlinkIdentity(ctx, account, social.ProviderGitHub)
	assert.ErrorIs(t, err, social.ErrLastAuthMethod)

	err = f.ledger.UnlinkIdentity(ctx, account, social.ProviderTwitter)
	assert.ErrorIs(t, err, social.ErrIdentityNotLinked)

	_, err = f.ledger.LinkIdentity(ctx, account, social.Assertion{Provider: social.ProviderTwitter, ProviderUserID: "tw-1"})
	require.NoError(t, err)

	ok, err = f.ledger.CanDisconnect(ctx, account)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.ledger.UnlinkIdentity(ctx, account, social.ProviderGitHub))

	err = f.ledger.UnlinkIdentity(ctx, account, social.ProviderTwitter)
	assert.ErrorIs(t, err, social.ErrLastAuthMethod)

	links, err := f.ledger.Identities(ctx, account)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, social.ProviderTwitter, links[0].Provider)
}

func TestLedgerUnlinkWithUsablePassword(t *testing.T) {
	ctx := context.Background()
	f := newSocialFixture(t)
	alice := f.localAccount(t, "alice@example.com")

	_, err := f.ledger.LinkIdentity(ctx, alice, social.Assertion{Provider: social.ProviderFacebook, ProviderUserID: "fb-1"})
	require.NoError(t, err)

	require.NoError(t, f.ledger.UnlinkIdentity(ctx, alice, social.ProviderFacebook))

	count, err := f.ledger.CountLinks(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, f.ledger.UnlinkIdentity(ctx, alice, "myspace"), social.ErrUnsupportedProvider)
}

func TestLedgerSettings(t *testing.T) {
	ctx := context.Background()
	f := newSocialFixture(t)
	account, _ := f.socialAccount(t, social.ProviderGoogle, "g-1", "gina@example.com")

	settings, err := f.ledger.Settings(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, false, settings["can_disconnect"])

	links, ok := settings["identities"].([]*social.Identity)
	require.True(t, ok)
	require.Len(t, links, 1)
	assert.Equal(t, social.ProviderGoogle, links[0].Provider)
	assert.Equal(t, social.Providers(), settings["providers"])
}
