package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/studykit/go-study-auth/token"
	faketokenstore "github.com/studykit/go-study-auth/token/repofake"
)

const (
	testAccountID = "account-1"
	testAppID     = "app-1"
)

func newTestIssuer(t *testing.T, now func() time.Time) *token.Issuer {
	t.Helper()
	opts := []token.IssuerOption{}
	if now != nil {
		opts = append(opts, token.WithNowTime(now))
	}
	issuer, err := token.NewIssuer(faketokenstore.NewFakeTokenStore(), opts...)
	require.NoError(t, err)
	return issuer
}

func TestIssueAndValidate(t *testing.T) {
	issuer := newTestIssuer(t, nil)
	ctx := context.Background()

	value, err := issuer.Issue(ctx, token.PurposeEmailSignIn, testAccountID, testAppID, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, value)

	binding, err := issuer.Validate(ctx, value, token.PurposeEmailSignIn, testAppID)
	require.NoError(t, err)
	require.Equal(t, testAccountID, binding.AccountID)
	require.Equal(t, testAppID, binding.AppID)
	require.Equal(t, token.PurposeEmailSignIn, binding.Purpose)
}

func TestIssueCodeLength(t *testing.T) {
	issuer := newTestIssuer(t, nil)

	value, err := issuer.IssueCode(context.Background(), token.PurposePhoneSignIn, testAccountID, testAppID, 6, time.Minute)
	require.NoError(t, err)
	require.Len(t, value, 6)
}

func TestValidateUnknownToken(t *testing.T) {
	issuer := newTestIssuer(t, nil)

	_, err := issuer.Validate(context.Background(), "never-issued", token.PurposeEmailSignIn, testAppID)
	require.ErrorIs(t, err, token.ErrTokenNotFound)
}

func TestValidatePurposeMismatch(t *testing.T) {
	issuer := newTestIssuer(t, nil)
	ctx := context.Background()

	value, err := issuer.Issue(ctx, token.PurposeEmailVerify, testAccountID, testAppID, time.Minute)
	require.NoError(t, err)

	_, err = issuer.Validate(ctx, value, token.PurposeEmailSignIn, testAppID)
	require.ErrorIs(t, err, token.ErrPurposeMismatch)
}

func TestValidateAppBinding(t *testing.T) {
	issuer := newTestIssuer(t, nil)
	ctx := context.Background()

	value, err := issuer.Issue(ctx, token.PurposeEmailSignIn, testAccountID, testAppID, time.Minute)
	require.NoError(t, err)

	_, err = issuer.Validate(ctx, value, token.PurposeEmailSignIn, "other-app")
	require.ErrorIs(t, err, token.ErrBindingMismatch)

	// Empty appID skips the binding check, for callers that learn the app
	// from the binding itself.
	binding, err := issuer.Validate(ctx, value, token.PurposeEmailSignIn, "")
	require.NoError(t, err)
	require.Equal(t, testAppID, binding.AppID)
}

func TestValidateExpiry(t *testing.T) {
	now := time.Now()
	issuer := newTestIssuer(t, func() time.Time { return now })
	ctx := context.Background()

	value, err := issuer.Issue(ctx, token.PurposeEmailSignIn, testAccountID, testAppID, time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = issuer.Validate(ctx, value, token.PurposeEmailSignIn, testAppID)
	require.ErrorIs(t, err, token.ErrTokenExpired)
}

func TestConsumeMakesTokenSingleUse(t *testing.T) {
	issuer := newTestIssuer(t, nil)
	ctx := context.Background()

	value, err := issuer.Issue(ctx, token.PurposeEmailSignIn, testAccountID, testAppID, time.Minute)
	require.NoError(t, err)

	require.NoError(t, issuer.Consume(ctx, value))

	// The consumed record is retained, so a replay is distinguishable from
	// an unknown token.
	_, err = issuer.Validate(ctx, value, token.PurposeEmailSignIn, testAppID)
	require.ErrorIs(t, err, token.ErrTokenAlreadyUsed)
}

func TestNewOpaqueUniqueness(t *testing.T) {
	first, err := token.NewOpaque()
	require.NoError(t, err)
	second, err := token.NewOpaque()
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.Len(t, first, 64)
}
