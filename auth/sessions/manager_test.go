package sessions_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/studykit/go-study-auth/accounts"
	fakeaccountstore "github.com/studykit/go-study-auth/accounts/repofake"
	"github.com/studykit/go-study-auth/auth/sessions"
	fakecachestore "github.com/studykit/go-study-auth/auth/sessions/repofakes"
)

func newTestManager(t *testing.T) (*sessions.Manager, *fakeaccountstore.FakeAccountStore) {
	t.Helper()
	store := fakeaccountstore.NewFakeAccountStore()
	cache, err := sessions.NewCache(fakecachestore.NewFakeCacheStore())
	require.NoError(t, err)
	manager, err := sessions.NewManager(cache, store, time.Hour)
	require.NoError(t, err)
	return manager, store
}

func seedAccount(store *fakeaccountstore.FakeAccountStore, roles []accounts.Role) *accounts.Account {
	return store.Add(&accounts.Account{
		AppID:  "app-1",
		Email:  "a@x.com",
		Roles:  roles,
		Status: accounts.AccountEnabled,
	})
}

func TestManagerCreateSnapshotsAccount(t *testing.T) {
	manager, store := newTestManager(t)
	account := seedAccount(store, []accounts.Role{accounts.RoleResearcher})

	session, err := manager.Create(context.Background(), account, "app-1", "pilot", false, "reauth-1")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token)
	require.Equal(t, account.ID, session.AccountID)
	require.Equal(t, "app-1", session.AppID)
	require.Equal(t, "app-1", session.EffectiveAppID)
	require.Equal(t, "pilot", session.SubstudyID)
	require.Equal(t, []accounts.Role{accounts.RoleResearcher}, session.Roles)
	require.Equal(t, "reauth-1", session.ReauthToken)

	read, err := manager.Get(context.Background(), session.Token)
	require.NoError(t, err)
	require.Equal(t, session.AccountID, read.AccountID)
}

func TestManagerCreateConcurrentSessions(t *testing.T) {
	manager, store := newTestManager(t)
	account := seedAccount(store, nil)

	first, err := manager.Create(context.Background(), account, "app-1", "", false, "")
	require.NoError(t, err)
	second, err := manager.Create(context.Background(), account, "app-1", "", false, "")
	require.NoError(t, err)

	// Two sign-ins coexist; neither invalidates the other.
	require.NotEqual(t, first.Token, second.Token)
	_, err = manager.Get(context.Background(), first.Token)
	require.NoError(t, err)
	_, err = manager.Get(context.Background(), second.Token)
	require.NoError(t, err)
}

func TestManagerUpdateAppKeepsToken(t *testing.T) {
	manager, store := newTestManager(t)
	account := seedAccount(store, []accounts.Role{accounts.RoleSuperAdmin})

	session, err := manager.Create(context.Background(), account, "app-1", "", false, "")
	require.NoError(t, err)

	updated, err := manager.UpdateApp(context.Background(), session, "app-2")
	require.NoError(t, err)
	require.Equal(t, session.Token, updated.Token)
	require.Equal(t, "app-2", updated.EffectiveAppID)
	require.Equal(t, "app-1", updated.AppID)

	read, err := manager.Get(context.Background(), session.Token)
	require.NoError(t, err)
	require.Equal(t, "app-2", read.EffectiveAppID)
}

func TestManagerUpdateAppDropsSubstudyScope(t *testing.T) {
	manager, store := newTestManager(t)
	account := seedAccount(store, []accounts.Role{accounts.RoleSuperAdmin})

	session, err := manager.Create(context.Background(), account, "app-1", "pilot", false, "")
	require.NoError(t, err)
	require.Equal(t, "pilot", session.SubstudyID)

	// The scope names a substudy of the app being left; it does not survive
	// the switch.
	updated, err := manager.UpdateApp(context.Background(), session, "app-2")
	require.NoError(t, err)
	require.Empty(t, updated.SubstudyID)

	read, err := manager.Get(context.Background(), session.Token)
	require.NoError(t, err)
	require.Empty(t, read.SubstudyID)
}

func TestManagerRefresh(t *testing.T) {
	manager, store := newTestManager(t)
	account := seedAccount(store, nil)

	session, err := manager.Create(context.Background(), account, "app-1", "", true, "")
	require.NoError(t, err)
	require.True(t, session.ConsentRequired)

	stored, err := store.FindByID(context.Background(), "app-1", account.ID)
	require.NoError(t, err)
	stored.Roles = []accounts.Role{accounts.RoleAdmin}
	stored.ConsentGranted = true
	_, err = store.Update(context.Background(), stored)
	require.NoError(t, err)

	refreshed, err := manager.Refresh(context.Background(), session, func(a *accounts.Account) bool {
		return !a.ConsentGranted
	})
	require.NoError(t, err)
	require.Equal(t, []accounts.Role{accounts.RoleAdmin}, refreshed.Roles)
	require.False(t, refreshed.ConsentRequired)
}

func TestManagerInvalidate(t *testing.T) {
	manager, store := newTestManager(t)
	account := seedAccount(store, nil)

	session, err := manager.Create(context.Background(), account, "app-1", "", false, "")
	require.NoError(t, err)

	require.NoError(t, manager.Invalidate(context.Background(), session.Token))
	_, err = manager.Get(context.Background(), session.Token)
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)

	// Invalidating again is a no-op.
	require.NoError(t, manager.Invalidate(context.Background(), session.Token))
}
