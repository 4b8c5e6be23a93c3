package reauth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/studykit/go-study-auth/token"
	"github.com/studykit/go-study-auth/token/reauth"
	faketokenstore "github.com/studykit/go-study-auth/token/repofake"
)

const (
	testAccountID = "account-1"
	testAppID     = "app-1"
)

func newTestManager(t *testing.T, now func() time.Time) (*reauth.Manager, *token.Issuer) {
	t.Helper()
	opts := []token.IssuerOption{}
	if now != nil {
		opts = append(opts, token.WithNowTime(now))
	}
	issuer, err := token.NewIssuer(faketokenstore.NewFakeTokenStore(), opts...)
	require.NoError(t, err)
	manager, err := reauth.NewManager(issuer, time.Hour)
	require.NoError(t, err)
	return manager, issuer
}

func TestRotateReplacesToken(t *testing.T) {
	manager, _ := newTestManager(t, nil)
	ctx := context.Background()

	first, err := manager.Issue(ctx, testAccountID, testAppID)
	require.NoError(t, err)

	binding, next, err := manager.Rotate(ctx, first, testAppID)
	require.NoError(t, err)
	require.Equal(t, testAccountID, binding.AccountID)
	require.NotEqual(t, first, next)

	// The replacement is immediately usable.
	_, third, err := manager.Rotate(ctx, next, testAppID)
	require.NoError(t, err)
	require.NotEqual(t, next, third)
}

func TestRotateRejectsSpentToken(t *testing.T) {
	manager, _ := newTestManager(t, nil)
	ctx := context.Background()

	first, err := manager.Issue(ctx, testAccountID, testAppID)
	require.NoError(t, err)

	_, _, err = manager.Rotate(ctx, first, testAppID)
	require.NoError(t, err)

	_, _, err = manager.Rotate(ctx, first, testAppID)
	require.ErrorIs(t, err, reauth.ErrTokenAlreadyUsed)
}

func TestRotateRejectsUnknownToken(t *testing.T) {
	manager, _ := newTestManager(t, nil)

	_, _, err := manager.Rotate(context.Background(), "never-issued", testAppID)
	require.ErrorIs(t, err, reauth.ErrTokenInvalid)
}

func TestRotateRejectsWrongApp(t *testing.T) {
	manager, _ := newTestManager(t, nil)
	ctx := context.Background()

	value, err := manager.Issue(ctx, testAccountID, testAppID)
	require.NoError(t, err)

	_, _, err = manager.Rotate(ctx, value, "other-app")
	require.ErrorIs(t, err, reauth.ErrTokenInvalid)
}

func TestRotateRejectsWrongPurpose(t *testing.T) {
	manager, issuer := newTestManager(t, nil)
	ctx := context.Background()

	// A sign-in token presented as a reauth token must not rotate.
	value, err := issuer.Issue(ctx, token.PurposeEmailSignIn, testAccountID, testAppID, time.Hour)
	require.NoError(t, err)

	_, _, err = manager.Rotate(ctx, value, testAppID)
	require.ErrorIs(t, err, reauth.ErrTokenInvalid)
}

func TestRotateRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	manager, _ := newTestManager(t, func() time.Time { return now })
	ctx := context.Background()

	value, err := manager.Issue(ctx, testAccountID, testAppID)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, _, err = manager.Rotate(ctx, value, testAppID)
	require.ErrorIs(t, err, reauth.ErrTokenExpired)
}
