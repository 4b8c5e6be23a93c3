package sessions

import (
	"context"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/studykit/go-study-auth/accounts"
	"github.com/studykit/go-study-auth/token"
)

// Manager orchestrates session lifecycle: minting, in-place mutation, and
// invalidation. Authorization for mutations (who may switch apps) is decided
// by the auth service; the manager is mechanical.
type Manager struct {
	cache    *Cache
	accounts accounts.Store
	lifetime time.Duration
	nowTime  func() time.Time
}

// ManagerOption modifies a Manager.
type ManagerOption func(*Manager)

// WithManagerNowTime sets the now time function (primarily for testing).
func WithManagerNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

func NewManager(cache *Cache, accountStore accounts.Store, lifetime time.Duration, options ...ManagerOption) (*Manager, error) {
	if cache == nil {
		return nil, pkgerrors.New("[sessions.NewManager] cache is required")
	}
	if accountStore == nil {
		return nil, pkgerrors.New("[sessions.NewManager] account store is required")
	}
	if lifetime <= 0 {
		return nil, pkgerrors.New("[sessions.NewManager] lifetime must be positive")
	}
	manager := &Manager{
		cache:    cache,
		accounts: accountStore,
		lifetime: lifetime,
		nowTime:  NowTimeFunc,
	}
	for _, opt := range options {
		opt(manager)
	}
	return manager, nil
}

// Create mints a new session snapshotting the account's current roles and
// consent state, writes it to the cache exactly once, and returns a copy.
// Calling twice yields two distinct valid sessions; concurrent sessions per
// account are permitted by design.
func (m *Manager) Create(ctx context.Context, account *accounts.Account, appID, substudyID string, consentRequired bool, reauthToken string) (*Session, error) {
	sessionToken, err := token.NewOpaque()
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Manager.Create] session token")
	}

	now := m.nowTime()
	session := &Session{
		Token:           sessionToken,
		AccountID:       account.ID,
		AppID:           account.AppID,
		EffectiveAppID:  appID,
		SubstudyID:      substudyID,
		Roles:           account.RolesCopy(),
		ConsentRequired: consentRequired,
		ReauthToken:     reauthToken,
		IssuedAt:        now,
		ExpiresAt:       now.Add(m.lifetime),
	}
	if err := m.cache.Put(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(err, "[Manager.Create] cache write")
	}
	return session, nil
}

// UpdateApp switches the session's effective app in place. The session token
// is deliberately not rotated: switching apps must not force
// re-authentication. The substudy scope belongs to the app being left and is
// dropped whenever the effective app changes.
func (m *Manager) UpdateApp(ctx context.Context, session *Session, targetAppID string) (*Session, error) {
	updated := *session
	if targetAppID != updated.EffectiveAppID {
		updated.SubstudyID = ""
	}
	updated.EffectiveAppID = targetAppID
	if err := m.cache.Put(ctx, &updated); err != nil {
		return nil, pkgerrors.Wrap(err, "[Manager.UpdateApp] cache write")
	}
	return &updated, nil
}

// Refresh re-reads the account's role and consent snapshot from the account
// store and replaces the cached copy. Used after account mutations that may
// change permissions mid-session.
func (m *Manager) Refresh(ctx context.Context, session *Session, consentRequired func(account *accounts.Account) bool) (*Session, error) {
	account, err := m.accounts.FindByID(ctx, session.AppID, session.AccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "[Manager.Refresh] account lookup")
	}

	updated := *session
	updated.Roles = account.RolesCopy()
	if consentRequired != nil {
		updated.ConsentRequired = consentRequired(account)
	}
	if err := m.cache.Put(ctx, &updated); err != nil {
		return nil, pkgerrors.Wrap(err, "[Manager.Refresh] cache write")
	}
	return &updated, nil
}

// Invalidate removes the session from the cache. Invalidating an absent
// session is a no-op, not an error.
func (m *Manager) Invalidate(ctx context.Context, sessionToken string) error {
	return m.cache.Remove(ctx, sessionToken)
}

// Get reads the live session for a token through the cache.
func (m *Manager) Get(ctx context.Context, sessionToken string) (*Session, error) {
	return m.cache.Get(ctx, sessionToken)
}
